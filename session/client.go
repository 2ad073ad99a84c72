package session

import (
	"time"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/chunk"
	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// ClientStateKind tags which variant a ClientState holds (spec section
// 4.8).
type ClientStateKind int

const (
	ClientStateDisconnected ClientStateKind = iota
	ClientStateConnecting
	ClientStateConnected
	ClientStateStreamCreatingForPlay
	ClientStatePlaying
	ClientStateStreamCreatingForPublish
	ClientStatePublishing
)

// ClientState is the client session's current state (spec section
// 4.8's state enum). Only the fields relevant to Kind are meaningful.
type ClientState struct {
	Kind      ClientStateKind
	AppName   string
	StreamKey string
	StreamID  uint32
}

func (s ClientState) String() string {
	switch s.Kind {
	case ClientStateDisconnected:
		return "Disconnected"
	case ClientStateConnecting:
		return "Connecting"
	case ClientStateConnected:
		return "Connected{" + s.AppName + "}"
	case ClientStateStreamCreatingForPlay:
		return "StreamCreatingForPlay"
	case ClientStatePlaying:
		return "Playing{" + s.StreamKey + "}"
	case ClientStateStreamCreatingForPublish:
		return "StreamCreatingForPublish"
	case ClientStatePublishing:
		return "Publishing{" + s.StreamKey + "}"
	default:
		return "Unknown"
	}
}

type clientTransactionKind int

const (
	transactionConnectionRequested clientTransactionKind = iota
	transactionCreateStreamForPlay
	transactionCreateStreamForPublish
)

type clientOutstandingTransaction struct {
	kind        clientTransactionKind
	appName     string
	streamKey   string
	publishMode PublishMode
}

// ClientSession is the client side of a single RTMP connection: it
// requests a connection, creates streams, and plays or publishes
// (spec section 4.8).
type ClientSession struct {
	config ClientConfig

	startTime    time.Time
	serializer   *chunk.Serializer
	deserializer *chunk.Deserializer

	selfWindowAckSize      uint32
	peerWindowAckSize      uint32
	bytesReceived          uint32
	bytesReceivedAtLastAck uint32

	state ClientState

	nextTransactionID float64
	outstanding       map[float64]clientOutstandingTransaction
}

// NewClientSession creates a client session and the initial packets
// the caller must send to the peer, in order (spec section 4.6).
func NewClientSession(config ClientConfig) (*ClientSession, []ClientResult, error) {
	c := &ClientSession{
		config:            config,
		startTime:         time.Now(),
		serializer:        chunk.NewSerializer(),
		deserializer:      chunk.NewDeserializer(),
		selfWindowAckSize: config.WindowAckSize,
		state:             ClientState{Kind: ClientStateDisconnected},
		outstanding:       make(map[float64]clientOutstandingTransaction),
		nextTransactionID: 1,
	}

	var results []ClientResult

	chunkSizePacket, err := c.serializer.SetMaxChunkSize(config.ChunkSize, c.epoch())
	if err != nil {
		return nil, nil, err
	}
	results = append(results, ClientResult{Kind: ResultOutboundPacket, Packet: chunkSizePacket})

	windowAck, err := c.sendMessage(message.WindowAcknowledgement(c.selfWindowAckSize), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, windowAck)

	begin, err := c.sendMessage(message.StreamBeginEvent(0), 0, true, false)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, begin)

	return c, results, nil
}

func (c *ClientSession) epoch() timestamp.Timestamp {
	return timestamp.New(uint32(time.Since(c.startTime).Milliseconds()))
}

func (c *ClientSession) sendMessage(m message.Message, messageStreamID uint32, forceUncompressed, droppable bool) (ClientResult, error) {
	payload, err := message.ToPayload(m, c.epoch(), messageStreamID)
	if err != nil {
		return ClientResult{}, err
	}
	packet, err := c.serializer.Serialize(payload, forceUncompressed, droppable)
	if err != nil {
		return ClientResult{}, err
	}
	return ClientResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

func clientEventResult(ev ClientEvent) ClientResult {
	return ClientResult{Kind: ResultRaisedEvent, Event: ev}
}

func u32ptr(v uint32) *uint32 { return &v }

func (c *ClientSession) allocTransactionID() float64 {
	id := c.nextTransactionID
	c.nextTransactionID++
	return id
}

// RequestConnection sends a `connect` command for the given
// application name. The session must currently be Disconnected.
func (c *ClientSession) RequestConnection(appName string) ([]ClientResult, error) {
	if c.state.Kind != ClientStateDisconnected {
		return nil, ErrCantConnectWhileAlreadyConnected
	}

	txnID := c.allocTransactionID()
	commandObject := amf0.Object(map[string]amf0.Value{
		"app":            amf0.String(appName),
		"flashVer":       amf0.String(c.config.FlashVersion),
		"tcUrl":          amf0.String(""),
		"fpad":           amf0.Bool(false),
		"capabilities":   amf0.Number(239),
		"audioCodecs":    amf0.Number(3575),
		"videoCodecs":    amf0.Number(252),
		"videoFunction":  amf0.Number(1),
		"objectEncoding": amf0.Number(0),
	})

	result, err := c.sendMessage(message.Amf0Command("connect", txnID, commandObject, nil), 0, true, false)
	if err != nil {
		return nil, err
	}

	c.outstanding[txnID] = clientOutstandingTransaction{kind: transactionConnectionRequested, appName: appName}
	c.state = ClientState{Kind: ClientStateConnecting}

	return []ClientResult{result}, nil
}

// RequestPlayback requests a stream be created and played; the
// session must currently be Connected.
func (c *ClientSession) RequestPlayback(streamKey string) ([]ClientResult, error) {
	if c.state.Kind != ClientStateConnected {
		return nil, &SessionInInvalidStateError{State: c.state}
	}

	txnID := c.allocTransactionID()
	result, err := c.sendMessage(message.Amf0Command("createStream", txnID, amf0.Null(), nil), 0, false, false)
	if err != nil {
		return nil, err
	}

	c.outstanding[txnID] = clientOutstandingTransaction{
		kind:      transactionCreateStreamForPlay,
		appName:   c.state.AppName,
		streamKey: streamKey,
	}
	c.state = ClientState{Kind: ClientStateStreamCreatingForPlay, AppName: c.state.AppName, StreamKey: streamKey}

	return []ClientResult{result}, nil
}

// RequestPublishing requests a stream be created and published; the
// session must currently be Connected.
func (c *ClientSession) RequestPublishing(streamKey string, mode PublishMode) ([]ClientResult, error) {
	if c.state.Kind != ClientStateConnected {
		return nil, &SessionInInvalidStateError{State: c.state}
	}

	txnID := c.allocTransactionID()
	result, err := c.sendMessage(message.Amf0Command("createStream", txnID, amf0.Null(), nil), 0, false, false)
	if err != nil {
		return nil, err
	}

	c.outstanding[txnID] = clientOutstandingTransaction{
		kind:        transactionCreateStreamForPublish,
		appName:     c.state.AppName,
		streamKey:   streamKey,
		publishMode: mode,
	}
	c.state = ClientState{Kind: ClientStateStreamCreatingForPublish, AppName: c.state.AppName, StreamKey: streamKey}

	return []ClientResult{result}, nil
}

// HandleInput feeds newly received bytes through the chunk and message
// codecs, dispatching each completed message (spec section 4.6/4.8).
func (c *ClientSession) HandleInput(data []byte) ([]ClientResult, error) {
	c.bytesReceived += uint32(len(data))

	var results []ClientResult
	toProcess := data

	for {
		payload, err := c.deserializer.GetNextMessage(toProcess)
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

		msgResults, err := c.handleMessage(*payload, msg)
		if err != nil {
			return nil, err
		}
		results = append(results, msgResults...)
	}

	if c.peerWindowAckSize > 0 && c.bytesReceived-c.bytesReceivedAtLastAck >= c.peerWindowAckSize {
		ack, err := c.sendMessage(message.Acknowledgement(c.bytesReceived), 0, true, false)
		if err != nil {
			return nil, err
		}
		results = append(results, ack)
		c.bytesReceivedAtLastAck = c.bytesReceived
	}

	return results, nil
}

func (c *ClientSession) handleMessage(payload message.Payload, msg message.Message) ([]ClientResult, error) {
	switch msg.Kind {
	case message.KindSetChunkSize:
		if err := c.deserializer.SetMaxChunkSize(int(msg.Size)); err != nil {
			return nil, err
		}
		return nil, nil

	case message.KindWindowAcknowledgement:
		c.peerWindowAckSize = msg.Size
		return nil, nil

	case message.KindUserControl:
		return c.handleUserControl(msg)

	case message.KindAmf0Command:
		return c.handleAmf0Command(msg)

	case message.KindAbort, message.KindAcknowledgement, message.KindSetPeerBandwidth,
		message.KindAudioData, message.KindVideoData, message.KindAmf0Data:
		return nil, nil

	default:
		return []ClientResult{{Kind: ResultUnhandleableMessage, Unhandled: payload}}, nil
	}
}

func (c *ClientSession) handleUserControl(msg message.Message) ([]ClientResult, error) {
	if msg.EventType != message.EventPingRequest {
		return nil, nil
	}

	var ts timestamp.Timestamp
	if msg.EventTimestamp != nil {
		ts = *msg.EventTimestamp
	}
	resp, err := c.sendMessage(message.PingResponseEvent(ts), 0, true, false)
	if err != nil {
		return nil, err
	}
	return []ClientResult{resp}, nil
}

func (c *ClientSession) handleAmf0Command(msg message.Message) ([]ClientResult, error) {
	switch msg.CommandName {
	case "_result":
		return c.handleResult(msg)
	case "_error":
		return c.handleError(msg)
	case "onStatus":
		return c.handleOnStatus(msg)
	default:
		return []ClientResult{clientEventResult(ClientEvent{
			Kind:                ClientEventUnhandleableAmf0Command,
			CommandName:         msg.CommandName,
			TransactionID:       msg.TransactionID,
			CommandObject:       msg.CommandObject,
			AdditionalArguments: msg.AdditionalArguments,
		})}, nil
	}
}

func codeAndDescription(values []amf0.Value) (string, string, bool) {
	if len(values) == 0 {
		return "", "", false
	}
	codeField, ok := values[0].Field("code")
	if !ok {
		return "", "", false
	}
	code, ok := codeField.AsString()
	if !ok {
		return "", "", false
	}
	description := ""
	if descField, ok := values[0].Field("description"); ok {
		description, _ = descField.AsString()
	}
	return code, description, true
}

func (c *ClientSession) handleResult(msg message.Message) ([]ClientResult, error) {
	req, ok := c.outstanding[msg.TransactionID]
	if !ok {
		return []ClientResult{clientEventResult(ClientEvent{
			Kind:                ClientEventUnknownTransactionResultReceived,
			TransactionID:       msg.TransactionID,
			CommandObject:       msg.CommandObject,
			AdditionalArguments: msg.AdditionalArguments,
		})}, nil
	}
	delete(c.outstanding, msg.TransactionID)

	switch req.kind {
	case transactionConnectionRequested:
		code, description, _ := codeAndDescription(msg.AdditionalArguments)
		if code == "NetConnection.Connect.Success" {
			c.state = ClientState{Kind: ClientStateConnected, AppName: req.appName}
			return []ClientResult{clientEventResult(ClientEvent{Kind: ClientEventConnectionRequestAccepted})}, nil
		}
		c.state = ClientState{Kind: ClientStateDisconnected}
		return []ClientResult{clientEventResult(ClientEvent{Kind: ClientEventConnectionRequestRejected, Description: description})}, nil

	case transactionCreateStreamForPlay:
		return c.continuePlaybackAfterCreateStream(req, msg)

	case transactionCreateStreamForPublish:
		return c.continuePublishingAfterCreateStream(req, msg)

	default:
		return nil, nil
	}
}

func (c *ClientSession) continuePlaybackAfterCreateStream(req clientOutstandingTransaction, msg message.Message) ([]ClientResult, error) {
	if len(msg.AdditionalArguments) == 0 {
		return nil, ErrCreateStreamResponseHadNoStreamNumber
	}
	streamIDFloat, ok := msg.AdditionalArguments[0].AsFloat64()
	if !ok {
		return nil, ErrCreateStreamResponseHadNoStreamNumber
	}
	streamID := uint32(streamIDFloat)

	c.state = ClientState{Kind: ClientStatePlaying, AppName: req.appName, StreamKey: req.streamKey, StreamID: streamID}

	var results []ClientResult

	bufferLen := c.config.PlaybackBufferLengthMs
	bufferMsg, err := c.sendMessage(message.UserControl(message.EventSetBufferLength, u32ptr(streamID), u32ptr(bufferLen), nil), 0, true, false)
	if err != nil {
		return nil, err
	}
	results = append(results, bufferMsg)

	playMsg, err := c.sendMessage(message.Amf0Command("play", 0, amf0.Null(), []amf0.Value{amf0.String(req.streamKey)}), streamID, false, false)
	if err != nil {
		return nil, err
	}
	results = append(results, playMsg)

	return results, nil
}

func (c *ClientSession) continuePublishingAfterCreateStream(req clientOutstandingTransaction, msg message.Message) ([]ClientResult, error) {
	if len(msg.AdditionalArguments) == 0 {
		return nil, ErrCreateStreamResponseHadNoStreamNumber
	}
	streamIDFloat, ok := msg.AdditionalArguments[0].AsFloat64()
	if !ok {
		return nil, ErrCreateStreamResponseHadNoStreamNumber
	}
	streamID := uint32(streamIDFloat)

	c.state = ClientState{Kind: ClientStatePublishing, AppName: req.appName, StreamKey: req.streamKey, StreamID: streamID}

	publishMsg, err := c.sendMessage(message.Amf0Command("publish", 0, amf0.Null(), []amf0.Value{
		amf0.String(req.streamKey),
		amf0.String(req.publishMode.String()),
	}), streamID, false, false)
	if err != nil {
		return nil, err
	}

	return []ClientResult{publishMsg}, nil
}

func (c *ClientSession) handleError(msg message.Message) ([]ClientResult, error) {
	req, ok := c.outstanding[msg.TransactionID]
	if !ok {
		return nil, nil
	}
	delete(c.outstanding, msg.TransactionID)

	switch req.kind {
	case transactionConnectionRequested:
		_, description, _ := codeAndDescription(msg.AdditionalArguments)
		c.state = ClientState{Kind: ClientStateDisconnected}
		return []ClientResult{clientEventResult(ClientEvent{Kind: ClientEventConnectionRequestRejected, Description: description})}, nil

	default:
		return nil, ErrCreateStreamFailed
	}
}

func (c *ClientSession) handleOnStatus(msg message.Message) ([]ClientResult, error) {
	code, _, ok := codeAndDescription(msg.AdditionalArguments)
	if !ok {
		return nil, ErrInvalidOnStatusArguments
	}

	switch code {
	case "NetStream.Play.Start":
		if c.state.Kind == ClientStatePlaying {
			return []ClientResult{clientEventResult(ClientEvent{Kind: ClientEventPlaybackRequestAccepted})}, nil
		}
	case "NetStream.Publish.Start":
		if c.state.Kind == ClientStatePublishing {
			return []ClientResult{clientEventResult(ClientEvent{Kind: ClientEventPublishRequestAccepted})}, nil
		}
	}

	return nil, nil
}

// PublishVideoData sends a video packet on the currently publishing
// stream; the session must be in the Publishing state.
func (c *ClientSession) PublishVideoData(data []byte, ts timestamp.Timestamp, droppable bool) (ClientResult, error) {
	if c.state.Kind != ClientStatePublishing {
		return ClientResult{}, &SessionInInvalidStateError{State: c.state}
	}
	payload, err := message.ToPayload(message.VideoData(data), ts, c.state.StreamID)
	if err != nil {
		return ClientResult{}, err
	}
	packet, err := c.serializer.Serialize(payload, false, droppable)
	if err != nil {
		return ClientResult{}, err
	}
	return ClientResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

// PublishAudioData sends an audio packet on the currently publishing
// stream; the session must be in the Publishing state.
func (c *ClientSession) PublishAudioData(data []byte, ts timestamp.Timestamp, droppable bool) (ClientResult, error) {
	if c.state.Kind != ClientStatePublishing {
		return ClientResult{}, &SessionInInvalidStateError{State: c.state}
	}
	payload, err := message.ToPayload(message.AudioData(data), ts, c.state.StreamID)
	if err != nil {
		return ClientResult{}, err
	}
	packet, err := c.serializer.Serialize(payload, false, droppable)
	if err != nil {
		return ClientResult{}, err
	}
	return ClientResult{Kind: ResultOutboundPacket, Packet: packet}, nil
}

// PublishMetadata sends an onMetaData message on the currently
// publishing stream; the session must be in the Publishing state.
func (c *ClientSession) PublishMetadata(m StreamMetadata) (ClientResult, error) {
	if c.state.Kind != ClientStatePublishing {
		return ClientResult{}, &SessionInInvalidStateError{State: c.state}
	}

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

	return c.sendMessage(message.Amf0Data([]amf0.Value{amf0.String("@setDataFrame"), amf0.String("onMetaData"), amf0.Object(fields)}), c.state.StreamID, false, false)
}
