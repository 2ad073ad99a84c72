package session

import (
	"testing"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/chunk"
	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// clientWire is a minimal peer-side encoder used to hand-build the
// byte streams a real RTMP client would send, so ServerSession can be
// exercised without any network I/O.
type clientWire struct {
	t          *testing.T
	serializer *chunk.Serializer
}

func newClientWire(t *testing.T) *clientWire {
	return &clientWire{t: t, serializer: chunk.NewSerializer()}
}

func (w *clientWire) encode(m message.Message, streamID uint32) []byte {
	w.t.Helper()
	payload, err := message.ToPayload(m, timestamp.New(0), streamID)
	if err != nil {
		w.t.Fatalf("ToPayload error: %v", err)
	}
	packet, err := w.serializer.Serialize(payload, false, false)
	if err != nil {
		w.t.Fatalf("Serialize error: %v", err)
	}
	return packet.Bytes
}

// wireReader decodes a sequence of outbound packets produced by a
// single Serializer, the way a real peer would.
type wireReader struct {
	t            *testing.T
	deserializer *chunk.Deserializer
}

func newWireReader(t *testing.T) *wireReader {
	return &wireReader{t: t, deserializer: chunk.NewDeserializer()}
}

func (r *wireReader) decode(results []ServerResult) []message.Message {
	r.t.Helper()
	var out []message.Message
	for _, res := range results {
		if res.Kind != ResultOutboundPacket {
			continue
		}
		toProcess := res.Packet.Bytes
		for {
			payload, err := r.deserializer.GetNextMessage(toProcess)
			if err != nil {
				r.t.Fatalf("GetNextMessage error: %v", err)
			}
			toProcess = nil
			if payload == nil {
				break
			}
			msg, err := message.ToMessage(*payload)
			if err != nil {
				r.t.Fatalf("ToMessage error: %v", err)
			}
			if msg.Kind == message.KindSetChunkSize {
				if err := r.deserializer.SetMaxChunkSize(int(msg.Size)); err != nil {
					r.t.Fatalf("SetMaxChunkSize error: %v", err)
				}
			}
			out = append(out, msg)
		}
	}
	return out
}

func TestServerSessionNewEmitsInitialSequence(t *testing.T) {
	config := DefaultServerConfig()
	_, results, err := NewServerSession(config)
	if err != nil {
		t.Fatalf("NewServerSession error: %v", err)
	}

	reader := newWireReader(t)
	msgs := reader.decode(results)

	var sawWindowAck, sawBandwidth, sawBwDone bool
	for _, m := range msgs {
		switch m.Kind {
		case message.KindWindowAcknowledgement:
			if m.Size != config.WindowAckSize {
				t.Errorf("window ack size = %d, want %d", m.Size, config.WindowAckSize)
			}
			sawWindowAck = true
		case message.KindSetPeerBandwidth:
			if m.Size != config.PeerBandwidth || m.LimitType != message.LimitDynamic {
				t.Errorf("unexpected peer bandwidth message: %+v", m)
			}
			sawBandwidth = true
		case message.KindAmf0Command:
			if m.CommandName == "onBWDone" {
				sawBwDone = true
			}
		}
	}

	if !sawWindowAck || !sawBandwidth || !sawBwDone {
		t.Fatalf("missing expected initial messages: windowAck=%v bandwidth=%v bwDone=%v", sawWindowAck, sawBandwidth, sawBwDone)
	}
}

// TestServerSessionConnectFlow implements the connect scenario: a
// client connect is raised as an event and, once accepted, responds
// with NetConnection.Connect.Success while preserving the client's
// objectEncoding.
func TestServerSessionConnectFlow(t *testing.T) {
	server, initial, err := NewServerSession(DefaultServerConfig())
	if err != nil {
		t.Fatalf("NewServerSession error: %v", err)
	}
	client := newClientWire(t)
	reader := newWireReader(t)
	reader.decode(initial)

	connectObj := amf0.Object(map[string]amf0.Value{
		"app":            amf0.String("some_app"),
		"objectEncoding": amf0.Number(3),
	})
	input := client.encode(message.Amf0Command("connect", 1, connectObj, nil), 0)

	results, err := server.HandleInput(input)
	if err != nil {
		t.Fatalf("HandleInput error: %v", err)
	}

	var requestID uint32
	found := false
	for _, r := range results {
		if r.Kind == ResultRaisedEvent && r.Event.Kind == ServerEventConnectionRequested {
			requestID = r.Event.RequestID
			found = true
			if r.Event.AppName != "some_app" {
				t.Errorf("app name = %q, want some_app", r.Event.AppName)
			}
		}
	}
	if !found {
		t.Fatalf("ConnectionRequested event not raised")
	}
	if requestID == 0 {
		t.Fatalf("request id should be non-zero")
	}

	acceptResults, err := server.AcceptRequest(requestID)
	if err != nil {
		t.Fatalf("AcceptRequest error: %v", err)
	}

	msgs := reader.decode(acceptResults)
	if len(msgs) != 1 || msgs[0].Kind != message.KindAmf0Command || msgs[0].CommandName != "_result" {
		t.Fatalf("expected a single _result command, got %+v", msgs)
	}

	info := msgs[0].AdditionalArguments[0]
	codeField, _ := info.Field("code")
	code, _ := codeField.AsString()
	if code != "NetConnection.Connect.Success" {
		t.Errorf("code = %q, want NetConnection.Connect.Success", code)
	}

	encodingField, _ := info.Field("objectEncoding")
	encoding, _ := encodingField.AsFloat64()
	if encoding != 3 {
		t.Errorf("objectEncoding = %v, want 3", encoding)
	}
}

// TestServerSessionPublishFlow implements the publish scenario:
// connect, createStream, publish, accept, then inbound video data
// raises VideoDataReceived.
func TestServerSessionPublishFlow(t *testing.T) {
	server, initial, err := NewServerSession(DefaultServerConfig())
	if err != nil {
		t.Fatalf("NewServerSession error: %v", err)
	}
	client := newClientWire(t)
	reader := newWireReader(t)
	reader.decode(initial)

	connectResults, err := server.HandleInput(client.encode(message.Amf0Command("connect", 1, amf0.Object(map[string]amf0.Value{"app": amf0.String("app")}), nil), 0))
	if err != nil {
		t.Fatalf("connect HandleInput error: %v", err)
	}
	connectRequestID := firstRequestID(t, connectResults, ServerEventConnectionRequested)
	connectAccept, err := server.AcceptRequest(connectRequestID)
	if err != nil {
		t.Fatalf("AcceptRequest(connect) error: %v", err)
	}
	reader.decode(connectAccept)

	createResults, err := server.HandleInput(client.encode(message.Amf0Command("createStream", 2, amf0.Null(), nil), 0))
	if err != nil {
		t.Fatalf("createStream HandleInput error: %v", err)
	}
	msgs := reader.decode(createResults)
	var streamID uint32
	for _, m := range msgs {
		if m.Kind == message.KindAmf0Command && m.CommandName == "_result" {
			v, _ := m.AdditionalArguments[0].AsFloat64()
			streamID = uint32(v)
		}
	}
	if streamID == 0 {
		t.Fatalf("expected a non-zero stream id from createStream")
	}

	publishInput := client.encode(message.Amf0Command("publish", 0, amf0.Null(), []amf0.Value{amf0.String("stream_key"), amf0.String("live")}), streamID)
	publishResults, err := server.HandleInput(publishInput)
	if err != nil {
		t.Fatalf("publish HandleInput error: %v", err)
	}

	var publishRequestID uint32
	var gotMode PublishMode
	for _, r := range publishResults {
		if r.Kind == ResultRaisedEvent && r.Event.Kind == ServerEventPublishStreamRequested {
			publishRequestID = r.Event.RequestID
			gotMode = r.Event.Mode
			if r.Event.StreamKey != "stream_key" {
				t.Errorf("stream key = %q, want stream_key", r.Event.StreamKey)
			}
		}
	}
	if publishRequestID == 0 {
		t.Fatalf("PublishStreamRequested event not raised")
	}
	if gotMode != PublishModeLive {
		t.Errorf("mode = %v, want Live", gotMode)
	}

	acceptResults, err := server.AcceptRequest(publishRequestID)
	if err != nil {
		t.Fatalf("AcceptRequest(publish) error: %v", err)
	}
	acceptMsgs := reader.decode(acceptResults)
	if len(acceptMsgs) != 1 || acceptMsgs[0].CommandName != "onStatus" {
		t.Fatalf("expected a single onStatus command, got %+v", acceptMsgs)
	}

	videoInput := client.encode(message.VideoData([]byte{1, 2, 3}), streamID)
	videoResults, err := server.HandleInput(videoInput)
	if err != nil {
		t.Fatalf("video HandleInput error: %v", err)
	}

	var sawVideo bool
	for _, r := range videoResults {
		if r.Kind == ResultRaisedEvent && r.Event.Kind == ServerEventVideoDataReceived {
			sawVideo = true
			if r.Event.StreamKey != "stream_key" {
				t.Errorf("stream key = %q, want stream_key", r.Event.StreamKey)
			}
			if string(r.Event.Data) != string([]byte{1, 2, 3}) {
				t.Errorf("video data = %v, want [1 2 3]", r.Event.Data)
			}
		}
	}
	if !sawVideo {
		t.Fatalf("VideoDataReceived event not raised")
	}
}

func TestServerSessionRejectConnectionSendsError(t *testing.T) {
	server, initial, err := NewServerSession(DefaultServerConfig())
	if err != nil {
		t.Fatalf("NewServerSession error: %v", err)
	}
	client := newClientWire(t)
	reader := newWireReader(t)
	reader.decode(initial)

	results, err := server.HandleInput(client.encode(message.Amf0Command("connect", 1, amf0.Object(map[string]amf0.Value{"app": amf0.String("app")}), nil), 0))
	if err != nil {
		t.Fatalf("HandleInput error: %v", err)
	}
	requestID := firstRequestID(t, results, ServerEventConnectionRequested)

	rejectResults, err := server.RejectRequest(requestID)
	if err != nil {
		t.Fatalf("RejectRequest error: %v", err)
	}
	msgs := reader.decode(rejectResults)
	if len(msgs) != 1 || msgs[0].CommandName != "_error" {
		t.Fatalf("expected a single _error command, got %+v", msgs)
	}

	if _, err := server.AcceptRequest(requestID); err == nil {
		t.Fatalf("expected AcceptRequest to fail for a request already resolved")
	}
}

func firstRequestID(t *testing.T, results []ServerResult, kind ServerEventKind) uint32 {
	t.Helper()
	for _, r := range results {
		if r.Kind == ResultRaisedEvent && r.Event.Kind == kind {
			return r.Event.RequestID
		}
	}
	t.Fatalf("no event of kind %v found", kind)
	return 0
}
