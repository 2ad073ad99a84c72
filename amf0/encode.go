package amf0

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

const (
	markerNumber      byte = 0x00
	markerBoolean     byte = 0x01
	markerString      byte = 0x02
	markerObject      byte = 0x03
	markerNull        byte = 0x05
	markerUndefined   byte = 0x06
	markerEcmaArray   byte = 0x08
	markerObjectEnd   byte = 0x09
	markerStrictArray byte = 0x0A
)

// Encode serializes a sequence of AMF0 values one after another, the
// wire shape used for command/data message bodies (spec section 4.5).
func Encode(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		if err := encodeOne(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeOne(buf *bytes.Buffer, v Value) error {
	switch v.Kind {
	case KindNumber:
		buf.WriteByte(markerNumber)
		return binary.Write(buf, binary.BigEndian, math.Float64bits(v.Number))

	case KindBoolean:
		buf.WriteByte(markerBoolean)
		if v.Boolean {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil

	case KindString:
		buf.WriteByte(markerString)
		return encodeUtf8(buf, v.Str)

	case KindObject:
		buf.WriteByte(markerObject)
		return encodeObjectBody(buf, v.Object)

	case KindEcmaArray:
		buf.WriteByte(markerEcmaArray)
		if err := binary.Write(buf, binary.BigEndian, uint32(len(v.Object))); err != nil {
			return err
		}
		return encodeObjectBody(buf, v.Object)

	case KindNull:
		buf.WriteByte(markerNull)
		return nil

	case KindUndefined:
		buf.WriteByte(markerUndefined)
		return nil

	case KindStrictArray:
		buf.WriteByte(markerStrictArray)
		if err := binary.Write(buf, binary.BigEndian, uint32(len(v.Array))); err != nil {
			return err
		}
		for _, elem := range v.Array {
			if err := encodeOne(buf, elem); err != nil {
				return err
			}
		}
		return nil

	default:
		return ErrUnknownMarker
	}
}

// encodeObjectBody writes properties in sorted key order (matching
// the teacher's amf0EncodeObject, which sorts keys before writing so
// output is deterministic) followed by the empty-key/0x09 terminator.
func encodeObjectBody(buf *bytes.Buffer, obj map[string]Value) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := encodeKey(buf, key); err != nil {
			return err
		}
		if err := encodeOne(buf, obj[key]); err != nil {
			return err
		}
	}

	// Terminator: empty key then object-end marker.
	if err := binary.Write(buf, binary.BigEndian, uint16(0)); err != nil {
		return err
	}
	buf.WriteByte(markerObjectEnd)
	return nil
}

func encodeKey(buf *bytes.Buffer, key string) error {
	if len(key) > math.MaxUint16 {
		return ErrKeyTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(key))); err != nil {
		return err
	}
	buf.WriteString(key)
	return nil
}

func encodeUtf8(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return ErrStringTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}
