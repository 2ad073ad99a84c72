package session

import (
	"strings"
	"time"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/chunk"
	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

type serverStreamState int

const (
	serverStreamCreated serverStreamState = iota
	serverStreamPublishing
	serverStreamPlaying
	serverStreamCompleted
)

type serverStream struct {
	state     serverStreamState
	streamKey string
	mode      PublishMode
}

type serverOutstandingKind int

const (
	outstandingConnection serverOutstandingKind = iota
	outstandingPublish
	outstandingPlay
)

type serverOutstandingRequest struct {
	kind          serverOutstandingKind
	appName       string
	transactionID float64
	streamID      uint32
	streamKey     string
	mode          PublishMode
	startAt       PlayStart
	startTimeSecs uint32
	duration      *uint32
	reset         bool
}

// ServerSession is the server side of a single RTMP connection: it
// consumes deserialized client messages and produces outbound packets
// and domain events (spec section 4.7).
type ServerSession struct {
	config ServerConfig

	startTime    time.Time
	serializer   *chunk.Serializer
	deserializer *chunk.Deserializer

	selfWindowAckSize      uint32
	peerWindowAckSize      uint32
	bytesReceived          uint32
	bytesReceivedAtLastAck uint32

	connected      bool
	appName        string
	objectEncoding float64

	nextRequestID uint32
	outstanding   map[uint32]serverOutstandingRequest

	nextStreamID uint32
	streams      map[uint32]*serverStream
}

// NewServerSession creates a server session and the initial packets
// the caller must send to the peer, in order (spec section 4.6).
func NewServerSession(config ServerConfig) (*ServerSession, []ServerResult, error) {
	s := &ServerSession{
		config:            config,
		startTime:         time.Now(),
		serializer:        chunk.NewSerializer(),
		deserializer:      chunk.NewDeserializer(),
		selfWindowAckSize: config.WindowAckSize,
		outstanding:       make(map[uint32]serverOutstandingRequest),
		nextStreamID:      1,
		streams:           make(map[uint32]*serverStream),
	}

	var results []ServerResult

	chunkSizePacket, err := s.serializer.SetMaxChunkSize(config.ChunkSize, s.epoch())
	if err != nil {
		return nil, nil, err
	}
	results = append(results, ServerResult{Kind: ResultOutboundPacket, Packet: chunkSizePacket})

	windowAck, err := s.sendMessage(message.WindowAcknowledgement(s.selfWindowAckSize), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, windowAck)

	begin, err := s.sendMessage(message.StreamBeginEvent(0), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, begin)

	bandwidth, err := s.sendMessage(message.SetPeerBandwidth(config.PeerBandwidth, message.LimitDynamic), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, bandwidth)

	bwDone, err := s.sendMessage(message.Amf0Command("onBWDone", 0, amf0.Null(), []amf0.Value{amf0.Number(8192)}), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, bwDone)

	return s, results, nil
}

func (s *ServerSession) epoch() timestamp.Timestamp {
	return timestamp.New(uint32(time.Since(s.startTime).Milliseconds()))
}

func (s *ServerSession) sendMessage(m message.Message, messageStreamID uint32, forceUncompressed, droppable bool) (ServerResult, error) {
	payload, err := message.ToPayload(m, s.epoch(), messageStreamID)
	if err != nil {
		return ServerResult{}, err
	}
	packet, err := s.serializer.Serialize(payload, forceUncompressed, droppable)
	if err != nil {
		return ServerResult{}, err
	}
	return ServerResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

func eventResult(ev ServerEvent) ServerResult {
	return ServerResult{Kind: ResultRaisedEvent, Event: ev}
}

func statusObject(level, code, description string) amf0.Value {
	return amf0.Object(map[string]amf0.Value{
		"level":       amf0.String(level),
		"code":        amf0.String(code),
		"description": amf0.String(description),
	})
}

// HandleInput feeds newly received bytes through the chunk and message
// codecs, dispatching each completed message and returning the ordered
// sequence of results (spec section 4.6/4.7).
func (s *ServerSession) HandleInput(data []byte) ([]ServerResult, error) {
	s.bytesReceived += uint32(len(data))

	var results []ServerResult
	toProcess := data

	for {
		payload, err := s.deserializer.GetNextMessage(toProcess)
		if err != nil {
			return nil, err
		}
		toProcess = nil
		if payload == nil {
			break
		}

		msg, err := message.ToMessage(*payload)
		if err != nil {
			return nil, err
		}

		msgResults, err := s.handleMessage(*payload, msg)
		if err != nil {
			return nil, err
		}
		results = append(results, msgResults...)
	}

	if s.peerWindowAckSize > 0 && s.bytesReceived-s.bytesReceivedAtLastAck >= s.peerWindowAckSize {
		ack, err := s.sendMessage(message.Acknowledgement(s.bytesReceived), 0, true, false)
		if err != nil {
			return nil, err
		}
		results = append(results, ack)
		s.bytesReceivedAtLastAck = s.bytesReceived
	}

	return results, nil
}

func (s *ServerSession) handleMessage(payload message.Payload, msg message.Message) ([]ServerResult, error) {
	switch msg.Kind {
	case message.KindSetChunkSize:
		if err := s.deserializer.SetMaxChunkSize(int(msg.Size)); err != nil {
			return nil, err
		}
		return []ServerResult{eventResult(ServerEvent{Kind: ServerEventClientChunkSizeChanged, NewChunkSize: msg.Size})}, nil

	case message.KindAcknowledgement:
		return []ServerResult{eventResult(ServerEvent{Kind: ServerEventAcknowledgementReceived, BytesReceived: msg.SequenceNumber})}, nil

	case message.KindWindowAcknowledgement:
		s.peerWindowAckSize = msg.Size
		return nil, nil

	case message.KindUserControl:
		return s.handleUserControl(msg)

	case message.KindAmf0Command:
		return s.handleAmf0Command(payload, msg)

	case message.KindAmf0Data:
		return s.handleAmf0Data(payload, msg)

	case message.KindAudioData:
		return s.handleAudioOrVideo(payload, msg, true)

	case message.KindVideoData:
		return s.handleAudioOrVideo(payload, msg, false)

	case message.KindAbort, message.KindSetPeerBandwidth:
		return nil, nil

	default:
		return []ServerResult{{Kind: ResultUnhandleableMessage, Unhandled: payload}}, nil
	}
}

func (s *ServerSession) handleUserControl(msg message.Message) ([]ServerResult, error) {
	switch msg.EventType {
	case message.EventPingRequest:
		var ts timestamp.Timestamp
		if msg.EventTimestamp != nil {
			ts = *msg.EventTimestamp
		}
		resp, err := s.sendMessage(message.PingResponseEvent(ts), 0, true, false)
		if err != nil {
			return nil, err
		}
		return []ServerResult{resp}, nil

	case message.EventPingResponse:
		var ts timestamp.Timestamp
		if msg.EventTimestamp != nil {
			ts = *msg.EventTimestamp
		}
		return []ServerResult{eventResult(ServerEvent{Kind: ServerEventPingResponseReceived, Timestamp: ts})}, nil

	default:
		return nil, nil
	}
}

func (s *ServerSession) handleAmf0Command(payload message.Payload, msg message.Message) ([]ServerResult, error) {
	switch msg.CommandName {
	case "connect":
		return s.handleConnect(msg)
	case "releaseStream":
		return s.handleReleaseStream(msg)
	case "createStream":
		return s.handleCreateStream(msg)
	case "publish":
		return s.handlePublish(msg, payload.MessageStreamID)
	case "play":
		return s.handlePlay(msg, payload.MessageStreamID)
	case "deleteStream", "closeStream":
		return s.handleDeleteStream(msg, payload.MessageStreamID)
	default:
		return []ServerResult{eventResult(ServerEvent{
			Kind:                ServerEventUnhandleableAmf0Command,
			CommandName:         msg.CommandName,
			TransactionID:       msg.TransactionID,
			CommandObject:       msg.CommandObject,
			AdditionalArguments: msg.AdditionalArguments,
		})}, nil
	}
}

func (s *ServerSession) handleConnect(msg message.Message) ([]ServerResult, error) {
	appNameField, _ := msg.CommandObject.Field("app")
	appName, _ := appNameField.AsString()
	appName = strings.TrimSuffix(appName, "/")

	objectEncoding := 0.0
	if encodingField, ok := msg.CommandObject.Field("objectEncoding"); ok {
		if f, ok := encodingField.AsFloat64(); ok {
			objectEncoding = f
		}
	}
	s.objectEncoding = objectEncoding

	requestID := s.allocRequestID()
	s.outstanding[requestID] = serverOutstandingRequest{
		kind:          outstandingConnection,
		appName:       appName,
		transactionID: msg.TransactionID,
	}

	return []ServerResult{eventResult(ServerEvent{
		Kind:      ServerEventConnectionRequested,
		RequestID: requestID,
		AppName:   appName,
	})}, nil
}

func (s *ServerSession) handleReleaseStream(msg message.Message) ([]ServerResult, error) {
	var streamKey string
	if len(msg.AdditionalArguments) > 0 {
		streamKey, _ = msg.AdditionalArguments[0].AsString()
	}

	requestID := s.allocRequestID()
	return []ServerResult{eventResult(ServerEvent{
		Kind:      ServerEventReleaseStreamRequested,
		RequestID: requestID,
		AppName:   s.appName,
		StreamKey: streamKey,
	})}, nil
}

func (s *ServerSession) handleCreateStream(msg message.Message) ([]ServerResult, error) {
	if !s.connected {
		return nil, nil
	}

	streamID := s.nextStreamID
	s.nextStreamID++
	s.streams[streamID] = &serverStream{state: serverStreamCreated}

	result, err := s.sendMessage(message.Amf0Command("_result", msg.TransactionID, amf0.Null(), []amf0.Value{amf0.Number(float64(streamID))}), 0, false, false)
	if err != nil {
		return nil, err
	}
	return []ServerResult{result}, nil
}

func (s *ServerSession) handlePublish(msg message.Message, controlStreamID uint32) ([]ServerResult, error) {
	stream, ok := s.streams[controlStreamID]
	if !ok || stream.state != serverStreamCreated {
		return nil, nil
	}

	var streamKey string
	if len(msg.AdditionalArguments) > 0 {
		streamKey, _ = msg.AdditionalArguments[0].AsString()
	}

	mode := PublishModeLive
	if len(msg.AdditionalArguments) > 1 {
		if modeStr, ok := msg.AdditionalArguments[1].AsString(); ok {
			if parsed, ok := publishModeFromString(modeStr); ok {
				mode = parsed
			}
		}
	}

	requestID := s.allocRequestID()
	s.outstanding[requestID] = serverOutstandingRequest{
		kind:      outstandingPublish,
		streamID:  controlStreamID,
		streamKey: streamKey,
		mode:      mode,
	}

	return []ServerResult{eventResult(ServerEvent{
		Kind:      ServerEventPublishStreamRequested,
		RequestID: requestID,
		AppName:   s.appName,
		StreamKey: streamKey,
		Mode:      mode,
	})}, nil
}

func (s *ServerSession) handlePlay(msg message.Message, controlStreamID uint32) ([]ServerResult, error) {
	stream, ok := s.streams[controlStreamID]
	if !ok || stream.state != serverStreamCreated {
		return nil, nil
	}

	var streamKey string
	if len(msg.AdditionalArguments) > 0 {
		streamKey, _ = msg.AdditionalArguments[0].AsString()
	}

	startAt := PlayStartLiveOrRecorded
	var startTimeSecs uint32
	if len(msg.AdditionalArguments) > 1 {
		if f, ok := msg.AdditionalArguments[1].AsFloat64(); ok {
			switch {
			case f == -1:
				startAt = PlayStartLiveOnly
			case f >= 0:
				startAt = PlayStartAtTime
				startTimeSecs = uint32(f)
			default:
				startAt = PlayStartLiveOrRecorded
			}
		}
	}

	var duration *uint32
	if len(msg.AdditionalArguments) > 2 {
		if f, ok := msg.AdditionalArguments[2].AsFloat64(); ok && f >= 0 {
			d := uint32(f)
			duration = &d
		}
	}

	reset := true
	if len(msg.AdditionalArguments) > 3 {
		if b, ok := msg.AdditionalArguments[3].AsBool(); ok {
			reset = b
		}
	}

	requestID := s.allocRequestID()
	s.outstanding[requestID] = serverOutstandingRequest{
		kind:          outstandingPlay,
		streamID:      controlStreamID,
		streamKey:     streamKey,
		startAt:       startAt,
		startTimeSecs: startTimeSecs,
		duration:      duration,
		reset:         reset,
	}

	return []ServerResult{eventResult(ServerEvent{
		Kind:          ServerEventPlayStreamRequested,
		RequestID:     requestID,
		AppName:       s.appName,
		StreamKey:     streamKey,
		StartAt:       startAt,
		StartTimeSecs: startTimeSecs,
		Duration:      duration,
		Reset:         reset,
		StreamID:      controlStreamID,
	})}, nil
}

func (s *ServerSession) handleDeleteStream(msg message.Message, controlStreamID uint32) ([]ServerResult, error) {
	targetID := controlStreamID
	if targetID == 0 && len(msg.AdditionalArguments) > 0 {
		if f, ok := msg.AdditionalArguments[0].AsFloat64(); ok {
			targetID = uint32(f)
		}
	}

	stream, ok := s.streams[targetID]
	if !ok || stream.state != serverStreamPublishing {
		return nil, nil
	}

	stream.state = serverStreamCompleted
	return []ServerResult{eventResult(ServerEvent{
		Kind:      ServerEventPublishStreamFinished,
		AppName:   s.appName,
		StreamKey: stream.streamKey,
	})}, nil
}

func (s *ServerSession) handleAmf0Data(payload message.Payload, msg message.Message) ([]ServerResult, error) {
	if len(msg.Values) == 0 {
		return []ServerResult{{Kind: ResultUnhandleableMessage, Unhandled: payload}}, nil
	}

	name, _ := msg.Values[0].AsString()
	if name != "@setDataFrame" && name != "onMetaData" {
		return []ServerResult{{Kind: ResultUnhandleableMessage, Unhandled: payload}}, nil
	}

	stream, ok := s.streams[payload.MessageStreamID]
	if !ok || stream.state != serverStreamPublishing {
		return nil, nil
	}

	var metaValue amf0.Value
	switch {
	case name == "@setDataFrame" && len(msg.Values) > 2:
		metaValue = msg.Values[2]
	case name == "onMetaData" && len(msg.Values) > 1:
		metaValue = msg.Values[1]
	default:
		return nil, nil
	}

	metadata := parseStreamMetadata(metaValue)
	return []ServerResult{eventResult(ServerEvent{
		Kind:      ServerEventStreamMetadataChanged,
		AppName:   s.appName,
		StreamKey: stream.streamKey,
		Metadata:  metadata,
	})}, nil
}

func (s *ServerSession) handleAudioOrVideo(payload message.Payload, msg message.Message, audio bool) ([]ServerResult, error) {
	stream, ok := s.streams[payload.MessageStreamID]
	if !ok || stream.state != serverStreamPublishing {
		return nil, nil
	}

	kind := ServerEventVideoDataReceived
	if audio {
		kind = ServerEventAudioDataReceived
	}

	return []ServerResult{eventResult(ServerEvent{
		Kind:      kind,
		AppName:   s.appName,
		StreamKey: stream.streamKey,
		Data:      msg.Data,
		Timestamp: payload.Timestamp,
	})}, nil
}

func (s *ServerSession) allocRequestID() uint32 {
	s.nextRequestID++
	return s.nextRequestID
}

// AcceptRequest tells the server session to approve a pending
// connect/publish/play request, producing the response packets the
// protocol requires (spec section 4.7).
func (s *ServerSession) AcceptRequest(requestID uint32) ([]ServerResult, error) {
	req, ok := s.outstanding[requestID]
	if !ok {
		return nil, ErrInvalidOutstandingRequest
	}
	delete(s.outstanding, requestID)

	switch req.kind {
	case outstandingConnection:
		return s.acceptConnection(req)
	case outstandingPublish:
		return s.acceptPublish(req)
	case outstandingPlay:
		return s.acceptPlay(req)
	default:
		return nil, nil
	}
}

func (s *ServerSession) acceptConnection(req serverOutstandingRequest) ([]ServerResult, error) {
	s.connected = true
	s.appName = req.appName

	commandObject := amf0.Object(map[string]amf0.Value{
		"fmsVer":       amf0.String(s.config.FmsVersion),
		"capabilities": amf0.Number(31),
	})
	info := amf0.Object(map[string]amf0.Value{
		"level":          amf0.String("status"),
		"code":           amf0.String("NetConnection.Connect.Success"),
		"description":    amf0.String("Connection succeeded."),
		"objectEncoding": amf0.Number(s.objectEncoding),
	})

	result, err := s.sendMessage(message.Amf0Command("_result", req.transactionID, commandObject, []amf0.Value{info}), 0, false, false)
	if err != nil {
		return nil, err
	}
	return []ServerResult{result}, nil
}

func (s *ServerSession) acceptPublish(req serverOutstandingRequest) ([]ServerResult, error) {
	stream := s.streams[req.streamID]
	stream.state = serverStreamPublishing
	stream.streamKey = req.streamKey
	stream.mode = req.mode

	info := statusObject("status", "NetStream.Publish.Start", req.streamKey+" is now published.")
	result, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{info}), req.streamID, false, false)
	if err != nil {
		return nil, err
	}
	return []ServerResult{result}, nil
}

func (s *ServerSession) acceptPlay(req serverOutstandingRequest) ([]ServerResult, error) {
	stream := s.streams[req.streamID]
	stream.state = serverStreamPlaying
	stream.streamKey = req.streamKey

	var results []ServerResult

	isRecorded, err := s.sendMessage(message.StreamIsRecordedEvent(req.streamID), 0, true, false)
	if err != nil {
		return nil, err
	}
	results = append(results, isRecorded)

	begin, err := s.sendMessage(message.StreamBeginEvent(req.streamID), 0, true, false)
	if err != nil {
		return nil, err
	}
	results = append(results, begin)

	if req.reset {
		resetStatus, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{
			statusObject("status", "NetStream.Play.Reset", "Playing and resetting "+req.streamKey+"."),
		}), req.streamID, false, false)
		if err != nil {
			return nil, err
		}
		results = append(results, resetStatus)
	}

	startStatus, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{
		statusObject("status", "NetStream.Play.Start", "Started playing "+req.streamKey+"."),
	}), req.streamID, false, false)
	if err != nil {
		return nil, err
	}
	results = append(results, startStatus)

	sampleAccess, err := s.sendMessage(message.Amf0Data([]amf0.Value{
		amf0.String("|RtmpSampleAccess"),
		amf0.Bool(false),
		amf0.Bool(false),
	}), req.streamID, false, false)
	if err != nil {
		return nil, err
	}
	results = append(results, sampleAccess)

	dataStart, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{
		statusObject("status", "NetStream.Data.Start", "Started receiving stream data."),
	}), req.streamID, false, false)
	if err != nil {
		return nil, err
	}
	results = append(results, dataStart)

	return results, nil
}

// RejectRequest tells the server session to deny a pending request,
// emitting the matching error/status response (spec section 4.7).
func (s *ServerSession) RejectRequest(requestID uint32) ([]ServerResult, error) {
	req, ok := s.outstanding[requestID]
	if !ok {
		return nil, ErrInvalidOutstandingRequest
	}
	delete(s.outstanding, requestID)

	switch req.kind {
	case outstandingConnection:
		info := statusObject("error", "NetConnection.Connect.Rejected", "Connection rejected.")
		result, err := s.sendMessage(message.Amf0Command("_error", req.transactionID, amf0.Null(), []amf0.Value{info}), 0, false, false)
		if err != nil {
			return nil, err
		}
		return []ServerResult{result}, nil

	case outstandingPublish:
		info := statusObject("error", "NetStream.Publish.BadName", "Publish request rejected.")
		result, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{info}), req.streamID, false, false)
		if err != nil {
			return nil, err
		}
		return []ServerResult{result}, nil

	case outstandingPlay:
		info := statusObject("error", "NetStream.Play.StreamNotFound", "Stream not found.")
		result, err := s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{info}), req.streamID, false, false)
		if err != nil {
			return nil, err
		}
		return []ServerResult{result}, nil

	default:
		return nil, nil
	}
}

// SendMetadata sends an onMetaData message to a publishing stream's
// subscribers' channel (caller decides fan-out; this only serializes).
func (s *ServerSession) SendMetadata(streamID uint32, m StreamMetadata) (ServerResult, error) {
	fields := map[string]amf0.Value{}
	if m.VideoWidth != nil {
		fields["width"] = amf0.Number(float64(*m.VideoWidth))
	}
	if m.VideoHeight != nil {
		fields["height"] = amf0.Number(float64(*m.VideoHeight))
	}
	if m.VideoCodec != nil {
		fields["videocodecid"] = amf0.String(*m.VideoCodec)
	}
	if m.VideoFrameRate != nil {
		fields["framerate"] = amf0.Number(float64(*m.VideoFrameRate))
	}
	if m.VideoBitrateKbps != nil {
		fields["videodatarate"] = amf0.Number(float64(*m.VideoBitrateKbps))
	}
	if m.AudioCodec != nil {
		fields["audiocodecid"] = amf0.String(*m.AudioCodec)
	}
	if m.AudioBitrateKbps != nil {
		fields["audiodatarate"] = amf0.Number(float64(*m.AudioBitrateKbps))
	}
	if m.AudioSampleRate != nil {
		fields["audiosamplerate"] = amf0.Number(float64(*m.AudioSampleRate))
	}
	if m.AudioChannels != nil {
		fields["audiochannels"] = amf0.Number(float64(*m.AudioChannels))
	}
	if m.AudioIsStereo != nil {
		fields["stereo"] = amf0.Bool(*m.AudioIsStereo)
	}
	if m.Encoder != nil {
		fields["encoder"] = amf0.String(*m.Encoder)
	}

	return s.sendMessage(message.Amf0Data([]amf0.Value{amf0.String("onMetaData"), amf0.Object(fields)}), streamID, false, false)
}

// SendAudioData serializes an outbound audio packet for the given
// stream; droppable lets the caller discard it under backpressure
// without breaking header compression (spec section 5).
func (s *ServerSession) SendAudioData(streamID uint32, data []byte, ts timestamp.Timestamp, droppable bool) (ServerResult, error) {
	payload, err := message.ToPayload(message.AudioData(data), ts, streamID)
	if err != nil {
		return ServerResult{}, err
	}
	packet, err := s.serializer.Serialize(payload, false, droppable)
	if err != nil {
		return ServerResult{}, err
	}
	return ServerResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

// SendVideoData serializes an outbound video packet for the given
// stream.
func (s *ServerSession) SendVideoData(streamID uint32, data []byte, ts timestamp.Timestamp, droppable bool) (ServerResult, error) {
	payload, err := message.ToPayload(message.VideoData(data), ts, streamID)
	if err != nil {
		return ServerResult{}, err
	}
	packet, err := s.serializer.Serialize(payload, false, droppable)
	if err != nil {
		return ServerResult{}, err
	}
	return ServerResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

// SendStatus pushes a generic onStatus command on streamID, for events
// that don't arise from a client request (e.g. notifying an existing
// player that the publisher went away).
func (s *ServerSession) SendStatus(streamID uint32, level, code, description string) (ServerResult, error) {
	info := amf0.Object(map[string]amf0.Value{
		"level":       amf0.String(level),
		"code":        amf0.String(code),
		"description": amf0.String(description),
	})
	return s.sendMessage(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{info}), streamID, false, false)
}

// SendPingRequest asks the peer to echo back the given timestamp as a
// PCM ping response, used by the relay's keepalive ticker.
func (s *ServerSession) SendPingRequest(ts timestamp.Timestamp) (ServerResult, error) {
	return s.sendMessage(message.PingRequestEvent(ts), 0, true, false)
}
