package netrtmp

import (
	"net"
	"sync"
	"time"

	"github.com/AgustinSRG/go-rtmp-session/handshake"
	"github.com/AgustinSRG/go-rtmp-session/session"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"

	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

// Connection drives one accepted socket through the handshake and then
// the server session, fanning published media out to the registry's
// other connections (spec section 11, grounded on the teacher's
// RTMPSession).
type Connection struct {
	server *Server
	id     uint64
	ip     string
	conn   net.Conn

	writeMutex sync.Mutex

	mutex   sync.Mutex
	session *session.ServerSession

	channel                 string
	isPublishing            bool
	publishKey              string
	streamIDFromCoordinator string
	isPlaying               bool
	playStreamID            uint32

	closeOnce sync.Once
}

func newConnection(server *Server, id uint64, ip string, conn net.Conn) *Connection {
	return &Connection{server: server, id: id, ip: ip, conn: conn}
}

// run drives the handshake and then the chunk/session loop until the
// socket closes or a fatal protocol error occurs.
func (c *Connection) run() {
	hs := handshake.New(handshake.RoleServer)
	buf := make([]byte, 8192)
	var leftover []byte

	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return
		}
		result, err := hs.ProcessBytes(buf[:n])
		if err != nil {
			rtmplog.DebugSession(c.id, c.ip, "handshake error: "+err.Error())
			return
		}
		if len(result.ResponseBytes) > 0 {
			if err := c.writeRaw(result.ResponseBytes); err != nil {
				return
			}
		}
		if result.Done {
			leftover = result.RemainingBytes
			break
		}
	}

	config := session.DefaultServerConfig()
	if c.server.config.OutChunkSize > 0 {
		config.ChunkSize = c.server.config.OutChunkSize
	}

	serverSession, initial, err := session.NewServerSession(config)
	if err != nil {
		rtmplog.Error(err)
		return
	}
	c.mutex.Lock()
	c.session = serverSession
	c.mutex.Unlock()

	if err := c.dispatch(initial); err != nil {
		return
	}

	if len(leftover) > 0 {
		if err := c.feed(leftover); err != nil {
			return
		}
	}

	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return
		}
		if err := c.feed(buf[:n]); err != nil {
			rtmplog.DebugSession(c.id, c.ip, "session error: "+err.Error())
			return
		}
	}
}

func (c *Connection) feed(data []byte) error {
	c.mutex.Lock()
	s := c.session
	c.mutex.Unlock()
	if s == nil {
		return nil
	}
	results, err := s.HandleInput(data)
	if err != nil {
		return err
	}
	return c.dispatch(results)
}

func (c *Connection) writeRaw(b []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	_, err := c.conn.Write(b)
	return err
}

func (c *Connection) dispatch(results []session.ServerResult) error {
	for _, r := range results {
		switch r.Kind {
		case session.ResultOutboundPacket:
			if err := c.writeRaw(r.Packet.Bytes); err != nil {
				return err
			}
		case session.ResultRaisedEvent:
			c.handleEvent(r.Event)
		case session.ResultUnhandleableMessage:
			rtmplog.DebugSession(c.id, c.ip, "unhandleable message received")
		}
	}
	return nil
}

func (c *Connection) handleEvent(ev session.ServerEvent) {
	switch ev.Kind {
	case session.ServerEventConnectionRequested:
		c.onConnectionRequested(ev)
	case session.ServerEventPublishStreamRequested:
		c.onPublishRequested(ev)
	case session.ServerEventPublishStreamFinished:
		c.onPublishFinished(ev)
	case session.ServerEventPlayStreamRequested:
		c.onPlayRequested(ev)
	case session.ServerEventStreamMetadataChanged:
		c.onMetadata(ev)
	case session.ServerEventAudioDataReceived:
		c.onMediaReceived(false, ev)
	case session.ServerEventVideoDataReceived:
		c.onMediaReceived(true, ev)
	case session.ServerEventUnhandleableAmf0Command:
		rtmplog.DebugSession(c.id, c.ip, "unhandled command: "+ev.CommandName)
	default:
		// ReleaseStreamRequested, PlayStreamFinished, chunk-size and
		// ack/ping bookkeeping events carry nothing this layer acts on.
	}
}

func (c *Connection) onConnectionRequested(ev session.ServerEvent) {
	rtmplog.Request(c.id, c.ip, "connect app="+ev.AppName)
	results, err := c.session.AcceptRequest(ev.RequestID)
	if err != nil {
		rtmplog.Error(err)
		return
	}
	c.dispatch(results)
}

func (c *Connection) onPublishRequested(ev session.ServerEvent) {
	channel := ev.AppName
	key := ev.StreamKey

	if c.server.control != nil {
		accepted, streamID := c.server.control.RequestPublish(channel, key, c.ip)
		if !accepted {
			if results, err := c.session.RejectRequest(ev.RequestID); err == nil {
				c.dispatch(results)
			}
			return
		}
		c.mutex.Lock()
		c.streamIDFromCoordinator = streamID
		c.mutex.Unlock()
	} else if streamID, accepted := c.sendStartCallback(channel, key); !accepted {
		if results, err := c.session.RejectRequest(ev.RequestID); err == nil {
			c.dispatch(results)
		}
		return
	} else {
		c.mutex.Lock()
		c.streamIDFromCoordinator = streamID
		c.mutex.Unlock()
	}

	if !c.server.registry.setPublisher(channel, key, c) {
		if results, err := c.session.RejectRequest(ev.RequestID); err == nil {
			c.dispatch(results)
		}
		return
	}

	results, err := c.session.AcceptRequest(ev.RequestID)
	if err != nil {
		rtmplog.Error(err)
		return
	}
	c.mutex.Lock()
	c.channel = channel
	c.publishKey = key
	c.isPublishing = true
	c.mutex.Unlock()

	rtmplog.Request(c.id, c.ip, "publish accepted on "+channel+"/"+key)
	c.dispatch(results)
}

func (c *Connection) onPublishFinished(ev session.ServerEvent) {
	c.mutex.Lock()
	channel := c.channel
	key := c.publishKey
	streamID := c.streamIDFromCoordinator
	wasPublishing := c.isPublishing
	c.isPublishing = false
	c.mutex.Unlock()

	if !wasPublishing {
		return
	}

	idled := c.server.registry.removePublisher(channel)
	c.server.registry.clearGopCache(channel)

	if c.server.control != nil {
		c.server.control.PublishEnd(channel, streamID)
	} else {
		c.sendStopCallback(channel, key, streamID)
	}

	for _, player := range idled {
		player.mutex.Lock()
		streamID := player.playStreamID
		playerSession := player.session
		player.mutex.Unlock()
		if playerSession == nil {
			continue
		}
		res, err := playerSession.SendStatus(streamID, "status", "NetStream.Play.UnpublishNotify", "stream is no longer published")
		if err == nil {
			player.dispatch([]session.ServerResult{res})
		}
	}
}

func (c *Connection) onPlayRequested(ev session.ServerEvent) {
	channel := ev.AppName
	key := ev.StreamKey

	ok, addErr := c.server.registry.addPlayer(channel, key, c)
	if !ok || addErr != nil {
		if results, err := c.session.RejectRequest(ev.RequestID); err == nil {
			c.dispatch(results)
		}
		return
	}

	results, err := c.session.AcceptRequest(ev.RequestID)
	if err != nil {
		rtmplog.Error(err)
		return
	}

	c.mutex.Lock()
	c.channel = channel
	c.isPlaying = true
	c.playStreamID = ev.StreamID
	c.mutex.Unlock()

	rtmplog.Request(c.id, c.ip, "play accepted on "+channel)
	c.dispatch(results)

	frames, metadata := c.server.registry.gopCacheSnapshot(channel)
	if metadata != nil {
		if res, err := c.session.SendMetadata(ev.StreamID, *metadata); err == nil {
			c.dispatch([]session.ServerResult{res})
		}
	}
	for _, f := range frames {
		var res session.ServerResult
		var err error
		if f.isVideo {
			res, err = c.session.SendVideoData(ev.StreamID, f.data, f.ts, false)
		} else {
			res, err = c.session.SendAudioData(ev.StreamID, f.data, f.ts, false)
		}
		if err == nil {
			c.dispatch([]session.ServerResult{res})
		}
	}
}

func (c *Connection) onMetadata(ev session.ServerEvent) {
	c.mutex.Lock()
	channel := c.channel
	publishing := c.isPublishing
	c.mutex.Unlock()
	if !publishing {
		return
	}

	c.server.registry.setMetadata(channel, ev.Metadata)

	for _, player := range c.server.registry.players(channel) {
		player.mutex.Lock()
		streamID := player.playStreamID
		playerSession := player.session
		player.mutex.Unlock()
		if playerSession == nil {
			continue
		}
		if res, err := playerSession.SendMetadata(streamID, ev.Metadata); err == nil {
			player.dispatch([]session.ServerResult{res})
		}
	}
}

func (c *Connection) onMediaReceived(isVideo bool, ev session.ServerEvent) {
	c.mutex.Lock()
	channel := c.channel
	publishing := c.isPublishing
	c.mutex.Unlock()
	if !publishing {
		return
	}

	c.server.registry.appendToGopCache(channel, isVideo, ev.Data, ev.Timestamp)

	for _, player := range c.server.registry.players(channel) {
		player.mutex.Lock()
		streamID := player.playStreamID
		playerSession := player.session
		player.mutex.Unlock()
		if playerSession == nil {
			continue
		}
		var res session.ServerResult
		var err error
		if isVideo {
			res, err = playerSession.SendVideoData(streamID, ev.Data, ev.Timestamp, true)
		} else {
			res, err = playerSession.SendAudioData(streamID, ev.Data, ev.Timestamp, true)
		}
		if err == nil {
			player.dispatch([]session.ServerResult{res})
		}
	}
}

// onClose releases whatever registry state this connection held.
func (c *Connection) onClose() {
	c.mutex.Lock()
	channel := c.channel
	key := c.publishKey
	streamID := c.streamIDFromCoordinator
	wasPublishing := c.isPublishing
	wasPlaying := c.isPlaying
	c.mutex.Unlock()

	if wasPublishing {
		idled := c.server.registry.removePublisher(channel)
		c.server.registry.clearGopCache(channel)
		if c.server.control != nil {
			c.server.control.PublishEnd(channel, streamID)
		} else {
			c.sendStopCallback(channel, key, streamID)
		}
		for _, player := range idled {
			player.mutex.Lock()
			streamID := player.playStreamID
			playerSession := player.session
			player.mutex.Unlock()
			if playerSession == nil {
				continue
			}
			if res, err := playerSession.SendStatus(streamID, "status", "NetStream.Play.UnpublishNotify", "stream is no longer published"); err == nil {
				player.dispatch([]session.ServerResult{res})
			}
		}
	}
	if wasPlaying {
		c.server.registry.removePlayer(channel, c)
	}
}

// sendPingRequest is invoked periodically by the server's ping ticker.
func (c *Connection) sendPingRequest() {
	c.mutex.Lock()
	s := c.session
	c.mutex.Unlock()
	if s == nil {
		return
	}
	res, err := s.SendPingRequest(timestamp.New(uint32(time.Now().UnixMilli() & 0x7fffffff)))
	if err != nil {
		return
	}
	c.dispatch([]session.ServerResult{res})
}

// kill forcibly drops the underlying socket, used when the control
// connection revokes a publisher or a Redis command targets it.
func (c *Connection) kill() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
