package amf0

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// decodingStream walks a byte slice producing AMF0 values, tracking
// position the way the teacher's AMFDecodingStream does.
type decodingStream struct {
	buffer []byte
	pos    int
}

func (d *decodingStream) remaining() int {
	return len(d.buffer) - d.pos
}

func (d *decodingStream) isEnded() bool {
	return d.pos >= len(d.buffer)
}

func (d *decodingStream) look(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, ErrUnexpectedEof
	}
	return d.buffer[d.pos : d.pos+n], nil
}

func (d *decodingStream) read(n int) ([]byte, error) {
	b, err := d.look(n)
	if err != nil {
		return nil, err
	}
	d.pos += n
	return b, nil
}

// Decode reads values from data until the input is exhausted,
// returning them in order (spec section 4.2, "Deserialize").
func Decode(data []byte) ([]Value, error) {
	stream := &decodingStream{buffer: data}
	var values []Value

	for !stream.isEnded() {
		v, err := stream.readOne()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, nil
}

func (d *decodingStream) readOne() (Value, error) {
	markerBytes, err := d.read(1)
	if err != nil {
		return Value{}, err
	}

	switch markerBytes[0] {
	case markerNumber:
		raw, err := d.read(8)
		if err != nil {
			return Value{}, err
		}
		bits := binary.BigEndian.Uint64(raw)
		return Number(math.Float64frombits(bits)), nil

	case markerBoolean:
		raw, err := d.read(1)
		if err != nil {
			return Value{}, err
		}
		return Bool(raw[0] != 0), nil

	case markerString:
		s, err := d.readUtf8()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil

	case markerObject:
		obj, err := d.readObjectBody()
		if err != nil {
			return Value{}, err
		}
		return Object(obj), nil

	case markerEcmaArray:
		// The 4-byte associative count is advisory only; the decoder
		// relies on the explicit end marker instead (spec section 4.2
		// rationale: "matches observed encoder behaviour"). A decoded
		// ECMA array is indistinguishable from an Object (spec section 3).
		if _, err := d.read(4); err != nil {
			return Value{}, err
		}
		obj, err := d.readObjectBody()
		if err != nil {
			return Value{}, err
		}
		return Object(obj), nil

	case markerNull:
		return Null(), nil

	case markerUndefined:
		return Undefined(), nil

	case markerStrictArray:
		raw, err := d.read(4)
		if err != nil {
			return Value{}, err
		}
		count := binary.BigEndian.Uint32(raw)
		elems := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := d.readOne()
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, v)
		}
		return StrictArray(elems), nil

	default:
		return Value{}, ErrUnknownMarker
	}
}

// readObjectBody reads {key, value} pairs until the empty-key/0x09
// terminator is seen (spec section 4.2).
func (d *decodingStream) readObjectBody() (map[string]Value, error) {
	obj := map[string]Value{}

	for {
		keyLenRaw, err := d.read(2)
		if err != nil {
			return nil, err
		}
		keyLen := int(binary.BigEndian.Uint16(keyLenRaw))

		if keyLen == 0 {
			endMarker, err := d.read(1)
			if err != nil {
				return nil, err
			}
			if endMarker[0] != markerObjectEnd {
				return nil, ErrUnknownMarker
			}
			return obj, nil
		}

		keyBytes, err := d.read(keyLen)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(keyBytes) {
			return nil, ErrInvalidString
		}

		value, err := d.readOne()
		if err != nil {
			return nil, err
		}

		obj[string(keyBytes)] = value
	}
}

func (d *decodingStream) readUtf8() (string, error) {
	lenRaw, err := d.read(2)
	if err != nil {
		return "", err
	}
	length := int(binary.BigEndian.Uint16(lenRaw))

	raw, err := d.read(length)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(raw) {
		return "", ErrInvalidString
	}

	return string(raw), nil
}
