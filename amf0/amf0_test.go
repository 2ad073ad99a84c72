package amf0

import (
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	encoded, err := Encode([]Value{v})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 value, got %d", len(decoded))
	}
	return decoded[0]
}

func TestRoundTripNumber(t *testing.T) {
	v := Number(1234.5)
	got := roundTrip(t, v)
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestRoundTripBoolean(t *testing.T) {
	for _, b := range []bool{true, false} {
		v := Bool(b)
		got := roundTrip(t, v)
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("got %+v, want %+v", got, v)
		}
	}
}

func TestRoundTripString(t *testing.T) {
	v := String("some_app")
	got := roundTrip(t, v)
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestRoundTripNullAndUndefined(t *testing.T) {
	if got := roundTrip(t, Null()); got.Kind != KindNull {
		t.Fatalf("expected Null, got %+v", got)
	}
	if got := roundTrip(t, Undefined()); got.Kind != KindUndefined {
		t.Fatalf("expected Undefined, got %+v", got)
	}
}

func TestRoundTripObject(t *testing.T) {
	v := Object(map[string]Value{
		"level":       String("status"),
		"code":        String("NetConnection.Connect.Success"),
		"description": String("Connection succeeded."),
	})
	got := roundTrip(t, v)
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestRoundTripStrictArray(t *testing.T) {
	v := StrictArray([]Value{Number(1), String("two"), Bool(true)})
	got := roundTrip(t, v)
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestRoundTripNestedObject(t *testing.T) {
	v := Object(map[string]Value{
		"info": Object(map[string]Value{
			"level": String("status"),
			"code":  String("NetStream.Publish.Start"),
		}),
	})
	got := roundTrip(t, v)
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestEcmaArrayDecodesAsObject(t *testing.T) {
	v := EcmaArray(map[string]Value{"width": Number(1920)})
	encoded, err := Encode([]Value{v})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if decoded[0].Kind != KindObject {
		t.Fatalf("expected decoded ECMA array to have Kind Object, got %v", decoded[0].Kind)
	}
	if decoded[0].Object["width"].Number != 1920 {
		t.Fatalf("expected width field to survive decode")
	}
}

func TestEcmaArrayCountIsIgnoredOnDecode(t *testing.T) {
	// Hand-craft an ECMA array with a bogus associative count; the
	// decoder must rely on the end marker, not the count.
	raw := []byte{markerEcmaArray, 0xFF, 0xFF, 0xFF, 0xFF}
	raw = append(raw, 0x00, 0x01, 'a', markerNumber)
	raw = append(raw, make([]byte, 8)...) // Number(0) payload
	raw = append(raw, 0x00, 0x00, markerObjectEnd)

	values, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(values) != 1 || values[0].Kind != KindObject {
		t.Fatalf("expected single decoded object, got %+v", values)
	}
	if _, ok := values[0].Object["a"]; !ok {
		t.Fatalf("expected key 'a' present")
	}
}

func TestDecodeUnknownMarkerFails(t *testing.T) {
	_, err := Decode([]byte{0x7F})
	if err != ErrUnknownMarker {
		t.Fatalf("expected ErrUnknownMarker, got %v", err)
	}
}

func TestDecodeShortInputFails(t *testing.T) {
	_, err := Decode([]byte{markerNumber, 0x00, 0x00})
	if err != ErrUnexpectedEof {
		t.Fatalf("expected ErrUnexpectedEof, got %v", err)
	}
}

func TestDecodeInvalidUtf8StringFails(t *testing.T) {
	raw := []byte{markerString, 0x00, 0x02, 0xFF, 0xFE}
	_, err := Decode(raw)
	if err != ErrInvalidString {
		t.Fatalf("expected ErrInvalidString, got %v", err)
	}
}

func TestEncodeKeyTooLongFails(t *testing.T) {
	longKey := make([]byte, 70000)
	for i := range longKey {
		longKey[i] = 'a'
	}

	v := Object(map[string]Value{string(longKey): Null()})
	_, err := Encode([]Value{v})
	if err != ErrKeyTooLong {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
}

func TestEncodeStringTooLongFails(t *testing.T) {
	longStr := make([]byte, 70000)
	v := String(string(longStr))
	_, err := Encode([]Value{v})
	if err != ErrStringTooLong {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
}

func TestDecodeMultipleValuesInSequence(t *testing.T) {
	values := []Value{String("connect"), Number(1), Null()}
	encoded, err := Encode(values)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if !reflect.DeepEqual(decoded, values) {
		t.Fatalf("got %+v, want %+v", decoded, values)
	}
}
