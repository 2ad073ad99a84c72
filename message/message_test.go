package message

import (
	"reflect"
	"testing"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

func roundTripPayload(t *testing.T, m Message) Message {
	t.Helper()
	ts := timestamp.New(55)
	payload, err := ToPayload(m, ts, 15)
	if err != nil {
		t.Fatalf("ToPayload error: %v", err)
	}
	if payload.TypeID != m.TypeID() {
		t.Fatalf("type id mismatch: got %d, want %d", payload.TypeID, m.TypeID())
	}
	if payload.Timestamp != ts {
		t.Fatalf("timestamp did not round trip into the payload")
	}

	got, err := ToMessage(payload)
	if err != nil {
		t.Fatalf("ToMessage error: %v", err)
	}
	return got
}

func TestRoundTripAbort(t *testing.T) {
	m := Abort(15)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripAcknowledgement(t *testing.T) {
	m := Acknowledgement(23)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripSetChunkSize(t *testing.T) {
	m := SetChunkSize(4096)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripSetPeerBandwidth(t *testing.T) {
	m := SetPeerBandwidth(2500000, LimitDynamic)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripWindowAcknowledgement(t *testing.T) {
	m := WindowAcknowledgement(5000000)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripAudioAndVideoData(t *testing.T) {
	audio := AudioData([]byte{0xAF, 0x01, 0x02})
	got := roundTripPayload(t, audio)
	if !reflect.DeepEqual(got, audio) {
		t.Fatalf("got %+v, want %+v", got, audio)
	}

	video := VideoData([]byte{0x17, 0x01})
	got = roundTripPayload(t, video)
	if !reflect.DeepEqual(got, video) {
		t.Fatalf("got %+v, want %+v", got, video)
	}
}

func TestRoundTripUserControlStreamBegin(t *testing.T) {
	streamID := uint32(33)
	m := UserControl(EventStreamBegin, &streamID, nil, nil)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripUserControlSetBufferLength(t *testing.T) {
	streamID := uint32(5)
	bufLen := uint32(2000)
	m := UserControl(EventSetBufferLength, &streamID, &bufLen, nil)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripUserControlPingRequest(t *testing.T) {
	ts := timestamp.New(555)
	m := PingRequestEvent(ts)
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripAmf0Data(t *testing.T) {
	m := Amf0Data([]amf0.Value{amf0.Number(23.3)})
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestRoundTripAmf0Command(t *testing.T) {
	m := Amf0Command("connect", 1, amf0.Object(map[string]amf0.Value{
		"app": amf0.String("some_app"),
	}), []amf0.Value{amf0.Null()})
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestAmf0CommandFlaggedAsAmf3IsDecodedAsAmf0(t *testing.T) {
	m := Amf0Command("test", 15, amf0.Number(23), []amf0.Value{amf0.Null()})
	payload, err := ToPayload(m, timestamp.New(0), 15)
	if err != nil {
		t.Fatalf("ToPayload error: %v", err)
	}

	payload.TypeID = TypeIDAmf0CommandFlaggedAsAmf3
	payload.Data = append([]byte{0x00}, payload.Data...)

	got, err := ToMessage(payload)
	if err != nil {
		t.Fatalf("ToMessage error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestAmf0DataFlaggedAsAmf3IsDecodedAsAmf0(t *testing.T) {
	m := Amf0Data([]amf0.Value{amf0.Number(23.3)})
	payload, err := ToPayload(m, timestamp.New(0), 15)
	if err != nil {
		t.Fatalf("ToPayload error: %v", err)
	}
	payload.TypeID = TypeIDAmf0DataFlaggedAsAmf3

	got, err := ToMessage(payload)
	if err != nil {
		t.Fatalf("ToMessage error: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestUnknownTypeIDRoundTrips(t *testing.T) {
	m := Unknown(33, []byte{23})
	got := roundTripPayload(t, m)
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}
