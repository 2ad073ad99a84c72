package netrtmp

import (
	"container/list"
	"crypto/subtle"
	"sync"

	"github.com/AgustinSRG/go-rtmp-session/session"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// cachedFrame is one entry of a channel's GOP cache. Frames are
// replayed by re-serializing through each player's own ServerSession,
// since chunk header compression is specific to the connection it is
// sent on (spec section 11, "GOP cache").
type cachedFrame struct {
	isVideo bool
	data    []byte
	ts      timestamp.Timestamp
	size    int
}

// channelState tracks one streaming channel: who is publishing, the
// key that publish required, and who is waiting to play it (spec
// section 11, "Publisher/player registry").
type channelState struct {
	key          string
	publisherID  uint64
	isPublishing bool
	players      map[uint64]bool

	metadata     *session.StreamMetadata
	gopCache     *list.List
	gopCacheSize int64
}

// registry is the server-wide table of connections and channels,
// grounded on the teacher's RTMPServer.sessions/channels maps.
type registry struct {
	mutex sync.Mutex

	connections map[uint64]*Connection
	channels    map[string]*channelState

	nextConnID uint64

	ipMutex  sync.Mutex
	ipCount  map[string]uint32
	ipLimit  uint32

	gopCacheLimit int64
}

func newRegistry(ipLimit uint32, gopCacheLimit int64) *registry {
	return &registry{
		connections:   make(map[uint64]*Connection),
		channels:      make(map[string]*channelState),
		nextConnID:    1,
		ipCount:       make(map[string]uint32),
		ipLimit:       ipLimit,
		gopCacheLimit: gopCacheLimit,
	}
}

func (r *registry) nextConnectionID() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	id := r.nextConnID
	r.nextConnID++
	return id
}

func (r *registry) addConnection(c *Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.connections[c.id] = c
}

func (r *registry) removeConnection(id uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.connections, id)
}

func (r *registry) addIP(ip string) bool {
	r.ipMutex.Lock()
	defer r.ipMutex.Unlock()

	if r.ipLimit == 0 {
		return true
	}

	c := r.ipCount[ip]
	if c >= r.ipLimit {
		return false
	}
	r.ipCount[ip] = c + 1
	return true
}

func (r *registry) removeIP(ip string) {
	r.ipMutex.Lock()
	defer r.ipMutex.Unlock()

	c := r.ipCount[ip]
	if c <= 1 {
		delete(r.ipCount, ip)
	} else {
		r.ipCount[ip] = c - 1
	}
}

func (r *registry) isPublishing(channel string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ch := r.channels[channel]
	return ch != nil && ch.isPublishing
}

func (r *registry) publisher(channel string) *Connection {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ch := r.channels[channel]
	if ch == nil || !ch.isPublishing {
		return nil
	}
	return r.connections[ch.publisherID]
}

func (r *registry) setPublisher(channel, key string, conn *Connection) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch != nil && ch.isPublishing {
		return false
	}
	if ch == nil {
		ch = &channelState{players: make(map[uint64]bool), gopCache: list.New()}
		r.channels[channel] = ch
	}
	ch.key = key
	ch.isPublishing = true
	ch.publisherID = conn.id
	ch.gopCache = list.New()
	ch.gopCacheSize = 0
	return true
}

func (r *registry) removePublisher(channel string) []*Connection {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil {
		return nil
	}
	ch.isPublishing = false
	ch.publisherID = 0
	ch.gopCache = list.New()
	ch.gopCacheSize = 0

	var idled []*Connection
	for id := range ch.players {
		if c := r.connections[id]; c != nil {
			idled = append(idled, c)
		}
	}

	if len(ch.players) == 0 {
		delete(r.channels, channel)
	}
	return idled
}

// addPlayer registers a connection as wanting to play channel/key. ok
// reports whether the key matched (only meaningful while publishing).
func (r *registry) addPlayer(channel, key string, conn *Connection) (ok bool, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil {
		ch = &channelState{players: make(map[uint64]bool), gopCache: list.New()}
		r.channels[channel] = ch
	}

	if ch.isPublishing {
		if subtle.ConstantTimeCompare([]byte(key), []byte(ch.key)) != 1 {
			return false, errInvalidStreamKey
		}
	}

	ch.players[conn.id] = true
	return true, nil
}

func (r *registry) removePlayer(channel string, conn *Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil {
		return
	}
	delete(ch.players, conn.id)
	if !ch.isPublishing && len(ch.players) == 0 {
		delete(r.channels, channel)
	}
}

func (r *registry) players(channel string) []*Connection {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil {
		return nil
	}
	var out []*Connection
	for id := range ch.players {
		if c := r.connections[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// appendToGopCache stores a decoded media frame for later replay to
// newly-joined players, evicting the oldest entries once gopCacheLimit
// is exceeded (spec section 11, "GOP cache").
func (r *registry) appendToGopCache(channel string, isVideo bool, data []byte, ts timestamp.Timestamp) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil || r.gopCacheLimit <= 0 {
		return
	}

	ch.gopCache.PushBack(cachedFrame{isVideo: isVideo, data: data, ts: ts, size: len(data)})
	ch.gopCacheSize += int64(len(data))

	for ch.gopCacheSize > r.gopCacheLimit && ch.gopCache.Len() > 0 {
		front := ch.gopCache.Front()
		frame := front.Value.(cachedFrame)
		ch.gopCacheSize -= int64(frame.size)
		ch.gopCache.Remove(front)
	}
}

func (r *registry) setMetadata(channel string, m session.StreamMetadata) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ch := r.channels[channel]
	if ch == nil {
		return
	}
	ch.metadata = &m
}

func (r *registry) clearGopCache(channel string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ch := r.channels[channel]
	if ch == nil {
		return
	}
	ch.gopCache = list.New()
	ch.gopCacheSize = 0
	ch.metadata = nil
}

func (r *registry) gopCacheSnapshot(channel string) (frames []cachedFrame, metadata *session.StreamMetadata) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := r.channels[channel]
	if ch == nil {
		return nil, nil
	}
	out := make([]cachedFrame, 0, ch.gopCache.Len())
	for e := ch.gopCache.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(cachedFrame))
	}
	return out, ch.metadata
}
