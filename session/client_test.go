package session

import (
	"testing"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/chunk"
	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// serverWire is a minimal peer-side encoder standing in for a real
// RTMP server, so ClientSession can be exercised without network I/O.
type serverWire struct {
	t          *testing.T
	serializer *chunk.Serializer
}

func newServerWire(t *testing.T) *serverWire {
	return &serverWire{t: t, serializer: chunk.NewSerializer()}
}

func (w *serverWire) encode(m message.Message, streamID uint32) []byte {
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

type clientWireReader struct {
	t            *testing.T
	deserializer *chunk.Deserializer
}

func newClientWireReader(t *testing.T) *clientWireReader {
	return &clientWireReader{t: t, deserializer: chunk.NewDeserializer()}
}

func (r *clientWireReader) decode(results []ClientResult) []message.Message {
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

func findClientEvent(results []ClientResult, kind ClientEventKind) (ClientEvent, bool) {
	for _, r := range results {
		if r.Kind == ResultRaisedEvent && r.Event.Kind == kind {
			return r.Event, true
		}
	}
	return ClientEvent{}, false
}

func TestClientSessionConnectFlow(t *testing.T) {
	client, initial, err := NewClientSession(DefaultClientConfig())
	if err != nil {
		t.Fatalf("NewClientSession error: %v", err)
	}

	connectResults, err := client.RequestConnection("some_app")
	if err != nil {
		t.Fatalf("RequestConnection error: %v", err)
	}
	if client.state.Kind != ClientStateConnecting {
		t.Fatalf("state = %v, want Connecting", client.state)
	}

	reader := newClientWireReader(t)
	reader.decode(initial)
	sentMsgs := reader.decode(connectResults)
	if len(sentMsgs) != 1 || sentMsgs[0].CommandName != "connect" {
		t.Fatalf("expected a single connect command, got %+v", sentMsgs)
	}
	txnID := sentMsgs[0].TransactionID

	server := newServerWire(t)
	info := amf0.Object(map[string]amf0.Value{
		"level":       amf0.String("status"),
		"code":        amf0.String("NetConnection.Connect.Success"),
		"description": amf0.String("Connection succeeded."),
	})
	reply := server.encode(message.Amf0Command("_result", txnID, amf0.Object(nil), []amf0.Value{info}), 0)

	results, err := client.HandleInput(reply)
	if err != nil {
		t.Fatalf("HandleInput error: %v", err)
	}

	if _, ok := findClientEvent(results, ClientEventConnectionRequestAccepted); !ok {
		t.Fatalf("ConnectionRequestAccepted event not raised, got %+v", results)
	}
	if client.state.Kind != ClientStateConnected {
		t.Fatalf("state = %v, want Connected", client.state)
	}
}

func TestClientSessionConnectRejected(t *testing.T) {
	client, initial, err := NewClientSession(DefaultClientConfig())
	if err != nil {
		t.Fatalf("NewClientSession error: %v", err)
	}

	connectResults, err := client.RequestConnection("some_app")
	if err != nil {
		t.Fatalf("RequestConnection error: %v", err)
	}
	reader := newClientWireReader(t)
	reader.decode(initial)
	sentMsgs := reader.decode(connectResults)
	txnID := sentMsgs[0].TransactionID

	server := newServerWire(t)
	info := amf0.Object(map[string]amf0.Value{
		"level":       amf0.String("error"),
		"code":        amf0.String("NetConnection.Connect.Rejected"),
		"description": amf0.String("app not allowed"),
	})
	reply := server.encode(message.Amf0Command("_result", txnID, amf0.Object(nil), []amf0.Value{info}), 0)

	results, err := client.HandleInput(reply)
	if err != nil {
		t.Fatalf("HandleInput error: %v", err)
	}

	ev, ok := findClientEvent(results, ClientEventConnectionRequestRejected)
	if !ok {
		t.Fatalf("ConnectionRequestRejected event not raised")
	}
	if ev.Description != "app not allowed" {
		t.Errorf("description = %q, want %q", ev.Description, "app not allowed")
	}
	if client.state.Kind != ClientStateDisconnected {
		t.Fatalf("state = %v, want Disconnected", client.state)
	}
}

// TestClientSessionPublishFlow drives connect, createStream, and
// publish from the client's point of view, then confirms the
// resulting onStatus reply produces PublishRequestAccepted.
func TestClientSessionPublishFlow(t *testing.T) {
	client, initial, err := NewClientSession(DefaultClientConfig())
	if err != nil {
		t.Fatalf("NewClientSession error: %v", err)
	}
	reader := newClientWireReader(t)
	reader.decode(initial)
	server := newServerWire(t)

	connectResults, err := client.RequestConnection("app")
	if err != nil {
		t.Fatalf("RequestConnection error: %v", err)
	}
	connectTxn := reader.decode(connectResults)[0].TransactionID
	acceptInfo := amf0.Object(map[string]amf0.Value{"code": amf0.String("NetConnection.Connect.Success")})
	if _, err := client.HandleInput(server.encode(message.Amf0Command("_result", connectTxn, amf0.Object(nil), []amf0.Value{acceptInfo}), 0)); err != nil {
		t.Fatalf("HandleInput(connect result) error: %v", err)
	}

	publishResults, err := client.RequestPublishing("stream_key", PublishModeLive)
	if err != nil {
		t.Fatalf("RequestPublishing error: %v", err)
	}
	createMsgs := reader.decode(publishResults)
	if len(createMsgs) != 1 || createMsgs[0].CommandName != "createStream" {
		t.Fatalf("expected a single createStream command, got %+v", createMsgs)
	}
	createTxn := createMsgs[0].TransactionID

	createReply := server.encode(message.Amf0Command("_result", createTxn, amf0.Null(), []amf0.Value{amf0.Number(5)}), 0)
	afterCreateResults, err := client.HandleInput(createReply)
	if err != nil {
		t.Fatalf("HandleInput(createStream result) error: %v", err)
	}
	if client.state.Kind != ClientStatePublishing || client.state.StreamID != 5 {
		t.Fatalf("state = %v, want Publishing on stream 5", client.state)
	}
	afterCreateMsgs := reader.decode(afterCreateResults)
	if len(afterCreateMsgs) != 1 || afterCreateMsgs[0].CommandName != "publish" {
		t.Fatalf("expected a single publish command, got %+v", afterCreateMsgs)
	}

	onStatusInfo := amf0.Object(map[string]amf0.Value{"code": amf0.String("NetStream.Publish.Start")})
	statusResults, err := client.HandleInput(server.encode(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{onStatusInfo}), 5))
	if err != nil {
		t.Fatalf("HandleInput(onStatus) error: %v", err)
	}
	if _, ok := findClientEvent(statusResults, ClientEventPublishRequestAccepted); !ok {
		t.Fatalf("PublishRequestAccepted event not raised")
	}

	videoResult, err := client.PublishVideoData([]byte{9, 9}, timestamp.New(10), false)
	if err != nil {
		t.Fatalf("PublishVideoData error: %v", err)
	}
	if videoResult.Kind != ResultOutboundPacket {
		t.Fatalf("expected an outbound packet from PublishVideoData")
	}
}

// TestClientSessionPlaybackFlow drives connect, createStream, and
// play from the client's point of view.
func TestClientSessionPlaybackFlow(t *testing.T) {
	client, initial, err := NewClientSession(DefaultClientConfig())
	if err != nil {
		t.Fatalf("NewClientSession error: %v", err)
	}
	reader := newClientWireReader(t)
	reader.decode(initial)
	server := newServerWire(t)

	connectResults, err := client.RequestConnection("app")
	if err != nil {
		t.Fatalf("RequestConnection error: %v", err)
	}
	connectTxn := reader.decode(connectResults)[0].TransactionID
	acceptInfo := amf0.Object(map[string]amf0.Value{"code": amf0.String("NetConnection.Connect.Success")})
	if _, err := client.HandleInput(server.encode(message.Amf0Command("_result", connectTxn, amf0.Object(nil), []amf0.Value{acceptInfo}), 0)); err != nil {
		t.Fatalf("HandleInput(connect result) error: %v", err)
	}

	playResults, err := client.RequestPlayback("stream_key")
	if err != nil {
		t.Fatalf("RequestPlayback error: %v", err)
	}
	createMsgs := reader.decode(playResults)
	createTxn := createMsgs[0].TransactionID

	createReply := server.encode(message.Amf0Command("_result", createTxn, amf0.Null(), []amf0.Value{amf0.Number(3)}), 0)
	afterCreateResults, err := client.HandleInput(createReply)
	if err != nil {
		t.Fatalf("HandleInput(createStream result) error: %v", err)
	}
	if client.state.Kind != ClientStatePlaying || client.state.StreamID != 3 {
		t.Fatalf("state = %v, want Playing on stream 3", client.state)
	}

	afterCreateMsgs := reader.decode(afterCreateResults)
	var sawPlay bool
	for _, m := range afterCreateMsgs {
		if m.Kind == message.KindAmf0Command && m.CommandName == "play" {
			sawPlay = true
		}
	}
	if !sawPlay {
		t.Fatalf("expected a play command among %+v", afterCreateMsgs)
	}

	onStatusInfo := amf0.Object(map[string]amf0.Value{"code": amf0.String("NetStream.Play.Start")})
	statusResults, err := client.HandleInput(server.encode(message.Amf0Command("onStatus", 0, amf0.Null(), []amf0.Value{onStatusInfo}), 3))
	if err != nil {
		t.Fatalf("HandleInput(onStatus) error: %v", err)
	}
	if _, ok := findClientEvent(statusResults, ClientEventPlaybackRequestAccepted); !ok {
		t.Fatalf("PlaybackRequestAccepted event not raised")
	}
}

func TestClientSessionRequestPublishingBeforeConnectedFails(t *testing.T) {
	client, _, err := NewClientSession(DefaultClientConfig())
	if err != nil {
		t.Fatalf("NewClientSession error: %v", err)
	}

	_, err = client.RequestPublishing("key", PublishModeLive)
	if err == nil {
		t.Fatalf("expected an error requesting publishing before the session is connected")
	}
	if _, ok := err.(*SessionInInvalidStateError); !ok {
		t.Fatalf("error = %v (%T), want *SessionInInvalidStateError", err, err)
	}
}
