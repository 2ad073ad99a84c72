package chunk

import (
	"bytes"
	"encoding/binary"

	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// Packet is one outbound write: the wire bytes for a single chunked
// message, plus whether the caller is allowed to drop it under
// bandwidth pressure (spec section 4.4, "Packet").
type Packet struct {
	Bytes        []byte
	CanBeDropped bool
}

// Serializer turns MessagePayloads into chunk bytes, compressing
// headers against the previous chunk sent on the same chunk stream.
// The same Serializer must be used for every message sent to a given
// peer, since header compression depends on that history.
type Serializer struct {
	previousHeaders map[uint32]Header
	maxChunkSize    uint32
}

// NewSerializer creates a Serializer starting at the RTMP default max
// chunk size of 128 bytes.
func NewSerializer() *Serializer {
	return &Serializer{
		previousHeaders: make(map[uint32]Header),
		maxChunkSize:    initialMaxChunkSize,
	}
}

// SetMaxChunkSize builds the SetChunkSize control message packet and
// switches the serializer over to the new chunk size for subsequent
// calls to Serialize.
func (s *Serializer) SetMaxChunkSize(newSize uint32, ts timestamp.Timestamp) (Packet, error) {
	payload, err := message.ToPayload(message.SetChunkSize(newSize), ts, 0)
	if err != nil {
		return Packet{}, err
	}

	packet, err := s.Serialize(payload, true, false)
	if err != nil {
		return Packet{}, err
	}

	s.maxChunkSize = newSize
	return packet, nil
}

// Serialize chunks a single MessagePayload, splitting its data across
// multiple chunks if it exceeds the current max chunk size.
func (s *Serializer) Serialize(payload message.Payload, forceUncompressed bool, canBeDropped bool) (Packet, error) {
	if len(payload.Data) > 16777215 {
		return Packet{}, ErrMessageTooLong
	}

	var out bytes.Buffer

	chunkSize := int(s.maxChunkSize)
	if chunkSize <= 0 {
		chunkSize = initialMaxChunkSize
	}

	if len(payload.Data) == 0 {
		if err := s.addChunk(&out, forceUncompressed, payload, nil, canBeDropped); err != nil {
			return Packet{}, err
		}
		return Packet{Bytes: out.Bytes(), CanBeDropped: canBeDropped}, nil
	}

	for start := 0; start < len(payload.Data); start += chunkSize {
		end := start + chunkSize
		if end > len(payload.Data) {
			end = len(payload.Data)
		}

		if err := s.addChunk(&out, forceUncompressed, payload, payload.Data[start:end], canBeDropped); err != nil {
			return Packet{}, err
		}
	}

	return Packet{Bytes: out.Bytes(), CanBeDropped: canBeDropped}, nil
}

func (s *Serializer) addChunk(out *bytes.Buffer, forceUncompressed bool, payload message.Payload, data []byte, canBeDropped bool) error {
	header := Header{
		ChunkStreamID:   csidForMessageType(payload.TypeID),
		Timestamp:       payload.Timestamp,
		MessageTypeID:   payload.TypeID,
		MessageStreamID: payload.MessageStreamID,
		MessageLength:   uint32(len(payload.Data)),
		CanBeDropped:    canBeDropped,
	}

	var format HeaderFormat
	if forceUncompressed {
		format = HeaderFormatFull
	} else if previous, ok := s.previousHeaders[header.ChunkStreamID]; !ok {
		format = HeaderFormatFull
	} else if previous.CanBeDropped {
		// A droppable previous packet may or may not have reached the
		// peer, so the next one must stand on its own as a type 0 chunk.
		format = HeaderFormatFull
	} else {
		header.TimestampDelta = header.Timestamp.Sub(previous.Timestamp).Value()
		format = headerFormatFor(header, previous)
	}

	if err := writeBasicHeader(out, format, header.ChunkStreamID); err != nil {
		return err
	}
	writeInitialTimestamp(out, format, header)
	writeMessageLengthAndTypeID(out, format, header.MessageLength, header.MessageTypeID)
	writeMessageStreamID(out, format, header.MessageStreamID)
	writeExtendedTimestamp(out, format, header)
	out.Write(data)

	s.previousHeaders[header.ChunkStreamID] = header
	return nil
}

func writeBasicHeader(out *bytes.Buffer, format HeaderFormat, csid uint32) error {
	var formatMask byte
	switch format {
	case HeaderFormatFull:
		formatMask = 0b00000000
	case HeaderFormatTimeDeltaWithoutMessageStreamID:
		formatMask = 0b01000000
	case HeaderFormatTimeDeltaOnly:
		formatMask = 0b10000000
	default:
		formatMask = 0b11000000
	}

	// Only single-byte basic headers are needed since csidForMessageType
	// only ever produces small chunk stream ids.
	firstByte := byte(csid) | formatMask
	out.WriteByte(firstByte)
	return nil
}

func writeInitialTimestamp(out *bytes.Buffer, format HeaderFormat, header Header) {
	if format == HeaderFormatEmpty {
		return
	}

	value := header.Timestamp.Value()
	if format != HeaderFormatFull {
		value = header.TimestampDelta
	}

	capped := value
	if capped > maxInitialTimestamp {
		capped = maxInitialTimestamp
	}
	writeU24(out, capped)
}

func writeMessageLengthAndTypeID(out *bytes.Buffer, format HeaderFormat, length uint32, typeID byte) {
	if format == HeaderFormatEmpty || format == HeaderFormatTimeDeltaOnly {
		return
	}
	writeU24(out, length)
	out.WriteByte(typeID)
}

func writeMessageStreamID(out *bytes.Buffer, format HeaderFormat, streamID uint32) {
	if format != HeaderFormatFull {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], streamID)
	out.Write(b[:])
}

func writeExtendedTimestamp(out *bytes.Buffer, format HeaderFormat, header Header) {
	if format == HeaderFormatEmpty {
		return
	}

	value := header.Timestamp.Value()
	if format != HeaderFormatFull {
		value = header.TimestampDelta
	}

	if value < maxInitialTimestamp {
		return
	}

	var b [4]byte
	binary.BigEndian.PutUint32(b[:], value)
	out.Write(b[:])
}

func writeU24(out *bytes.Buffer, v uint32) {
	out.WriteByte(byte(v >> 16))
	out.WriteByte(byte(v >> 8))
	out.WriteByte(byte(v))
}

// csidForMessageType buckets messages onto a handful of chunk
// streams so that repeated messages of the same kind benefit from
// header compression (spec section 4.4).
func csidForMessageType(typeID byte) uint32 {
	switch typeID {
	case 1, 2, 3, 4, 5, 6:
		return 2
	case 18, 19:
		return 3
	case 9:
		return 4
	case 8:
		return 5
	default:
		return 6
	}
}

func headerFormatFor(current, previous Header) HeaderFormat {
	if current.MessageStreamID != previous.MessageStreamID {
		return HeaderFormatFull
	}
	if current.MessageTypeID != previous.MessageTypeID || current.MessageLength != previous.MessageLength {
		return HeaderFormatTimeDeltaWithoutMessageStreamID
	}
	if current.TimestampDelta != previous.TimestampDelta {
		return HeaderFormatTimeDeltaOnly
	}
	return HeaderFormatEmpty
}
