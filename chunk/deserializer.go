package chunk

import (
	"encoding/binary"

	"github.com/AgustinSRG/go-rtmp-session/message"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

const (
	initialMaxChunkSize = 128
	maxInitialTimestamp = 16777215
)

type parseStage int

const (
	stageCsid parseStage = iota
	stageInitialTimestamp
	stageMessageLength
	stageMessageTypeID
	stageMessageStreamID
	stageMessagePayload
	stageExtendedTimestamp
)

// Deserializer turns a stream of chunk bytes into MessagePayloads.
// Every byte a peer sends must go through the same Deserializer
// instance in order, since later chunks rely on earlier ones for
// their header fields (spec section 4.4, "ChunkDeserializer").
type Deserializer struct {
	maxChunkSize        int
	currentHeaderFormat HeaderFormat
	currentHeader       Header
	currentStage        parseStage
	currentPayload      message.Payload
	currentPayloadData  []byte
	buffer              []byte
	previousHeaders     map[uint32]Header
}

// NewDeserializer creates a Deserializer expecting the RTMP default
// max chunk size of 128 bytes.
func NewDeserializer() *Deserializer {
	return &Deserializer{
		maxChunkSize:    initialMaxChunkSize,
		previousHeaders: make(map[uint32]Header),
	}
}

// SetMaxChunkSize tells the deserializer the peer has switched to a
// new max chunk size, in reaction to receiving a SetChunkSize message.
func (d *Deserializer) SetMaxChunkSize(newSize int) error {
	if newSize <= 0 || newSize > 2147483647 {
		return ErrInvalidMaxChunkSize
	}
	d.maxChunkSize = newSize
	return nil
}

// MaxChunkSize returns the max chunk size currently in effect.
func (d *Deserializer) MaxChunkSize() int {
	return d.maxChunkSize
}

// GetNextMessage feeds bytes in and attempts to complete one RTMP
// message. If the bytes did not complete a message, nil is returned
// and the bytes are retained internally. A returned message may leave
// further complete messages buffered, so callers should keep calling
// with an empty slice until nil is returned.
func (d *Deserializer) GetNextMessage(data []byte) (*message.Payload, error) {
	d.buffer = append(d.buffer, data...)

	for {
		var completed *message.Payload
		var notEnough bool
		var err error

		switch d.currentStage {
		case stageCsid:
			notEnough, err = d.formHeader()
		case stageInitialTimestamp:
			notEnough, err = d.getInitialTimestamp()
		case stageMessageLength:
			notEnough, err = d.getMessageLength()
		case stageMessageTypeID:
			notEnough, err = d.getMessageTypeID()
		case stageMessageStreamID:
			notEnough, err = d.getMessageStreamID()
		case stageExtendedTimestamp:
			notEnough, err = d.getExtendedTimestamp()
		case stageMessagePayload:
			completed, notEnough, err = d.getMessageData()
		}

		if err != nil {
			return nil, err
		}
		if notEnough || completed != nil {
			return completed, nil
		}
	}
}

func (d *Deserializer) formHeader() (bool, error) {
	if len(d.buffer) < 1 {
		return true, nil
	}

	format := getFormat(d.buffer[0])
	csid, nextIndex, ok := getCsid(d.buffer)
	if !ok {
		return true, nil
	}

	var header Header
	if format == HeaderFormatFull {
		header = Header{ChunkStreamID: csid}
	} else {
		previous, found := d.previousHeaders[csid]
		if !found {
			return false, &NoPreviousChunkOnStreamError{ChunkStreamID: csid}
		}
		delete(d.previousHeaders, csid)
		header = previous
	}

	d.currentHeaderFormat = format
	d.currentHeader = header
	d.buffer = d.buffer[nextIndex:]
	d.currentStage = stageInitialTimestamp
	return false, nil
}

func (d *Deserializer) getInitialTimestamp() (bool, error) {
	if d.currentHeaderFormat == HeaderFormatEmpty {
		// A type 3 chunk following a type 1/2 header due to a message
		// split across chunks must not reapply the delta. Only the
		// first chunk of a new message gets the delta applied.
		if len(d.currentPayloadData) == 0 {
			d.currentHeader.Timestamp = d.currentHeader.Timestamp.AddU32(d.currentHeader.TimestampField)
		}
		d.currentStage = stageMessageLength
		return false, nil
	}

	if len(d.buffer) < 3 {
		return true, nil
	}

	ts := readU24(d.buffer[:3])
	d.buffer = d.buffer[3:]

	if d.currentHeaderFormat == HeaderFormatFull {
		d.currentHeader.Timestamp = timestamp.New(ts)
	} else {
		d.currentHeader.Timestamp = d.currentHeader.Timestamp.AddU32(ts)
	}
	d.currentHeader.TimestampField = ts

	d.currentStage = stageMessageLength
	return false, nil
}

func (d *Deserializer) getMessageLength() (bool, error) {
	if d.currentHeaderFormat == HeaderFormatTimeDeltaOnly || d.currentHeaderFormat == HeaderFormatEmpty {
		d.currentStage = stageMessageTypeID
		return false, nil
	}

	if len(d.buffer) < 3 {
		return true, nil
	}

	d.currentHeader.MessageLength = readU24(d.buffer[:3])
	d.buffer = d.buffer[3:]
	d.currentStage = stageMessageTypeID
	return false, nil
}

func (d *Deserializer) getMessageTypeID() (bool, error) {
	if d.currentHeaderFormat == HeaderFormatTimeDeltaOnly || d.currentHeaderFormat == HeaderFormatEmpty {
		d.currentStage = stageMessageStreamID
		return false, nil
	}

	if len(d.buffer) < 1 {
		return true, nil
	}

	d.currentHeader.MessageTypeID = d.buffer[0]
	d.buffer = d.buffer[1:]
	d.currentStage = stageMessageStreamID
	return false, nil
}

func (d *Deserializer) getMessageStreamID() (bool, error) {
	if d.currentHeaderFormat != HeaderFormatFull {
		d.currentStage = stageExtendedTimestamp
		return false, nil
	}

	if len(d.buffer) < 4 {
		return true, nil
	}

	d.currentHeader.MessageStreamID = binary.LittleEndian.Uint32(d.buffer[:4])
	d.buffer = d.buffer[4:]
	d.currentStage = stageExtendedTimestamp
	return false, nil
}

func (d *Deserializer) getExtendedTimestamp() (bool, error) {
	if d.currentHeader.TimestampField < maxInitialTimestamp {
		d.currentStage = stageMessagePayload
		return false, nil
	}

	if len(d.buffer) < 4 {
		return true, nil
	}

	ts := binary.BigEndian.Uint32(d.buffer[:4])
	d.buffer = d.buffer[4:]

	// A type 3 chunk that is not the first chunk of a message keeps
	// the timestamp deserialized for the message's first chunk.
	if d.currentHeaderFormat == HeaderFormatFull {
		d.currentHeader.Timestamp = timestamp.New(ts)
	} else if len(d.currentPayloadData) == 0 {
		d.currentHeader.Timestamp = d.currentHeader.Timestamp.AddU32(ts - maxInitialTimestamp)
	}

	d.currentStage = stageMessagePayload
	return false, nil
}

func (d *Deserializer) getMessageData() (*message.Payload, bool, error) {
	length := int(d.currentHeader.MessageLength)
	currentLength := len(d.currentPayloadData)
	remaining := length - currentLength

	readLen := remaining
	if length > d.maxChunkSize && d.maxChunkSize < readLen {
		readLen = d.maxChunkSize
	}

	if len(d.buffer) < readLen {
		return nil, true, nil
	}

	d.currentPayload.Timestamp = d.currentHeader.Timestamp
	d.currentPayload.TypeID = d.currentHeader.MessageTypeID
	d.currentPayload.MessageStreamID = d.currentHeader.MessageStreamID

	d.currentPayloadData = append(d.currentPayloadData, d.buffer[:readLen]...)
	d.buffer = d.buffer[readLen:]

	var completed *message.Payload
	if len(d.currentPayloadData) == length {
		d.currentPayload.Data = d.currentPayloadData
		payload := d.currentPayload
		completed = &payload
		d.currentPayloadData = nil
		d.currentPayload = message.Payload{}
	}

	d.previousHeaders[d.currentHeader.ChunkStreamID] = d.currentHeader
	d.currentHeader = Header{}
	d.currentStage = stageCsid
	return completed, false, nil
}

func getFormat(b byte) HeaderFormat {
	switch b & 0b11000000 {
	case 0b00000000:
		return HeaderFormatFull
	case 0b01000000:
		return HeaderFormatTimeDeltaWithoutMessageStreamID
	case 0b10000000:
		return HeaderFormatTimeDeltaOnly
	default:
		return HeaderFormatEmpty
	}
}

// getCsid parses the basic header's chunk stream id, which is encoded
// in 1, 2, or 3 bytes depending on the low 6 bits of the first byte.
func getCsid(buffer []byte) (csid uint32, nextIndex int, ok bool) {
	if len(buffer) < 1 {
		return 0, 0, false
	}

	switch buffer[0] & 0b00111111 {
	case 0:
		if len(buffer) < 2 {
			return 0, 0, false
		}
		return uint32(buffer[1]) + 64, 2, true

	case 1:
		if len(buffer) < 3 {
			return 0, 0, false
		}
		return uint32(buffer[2])*256 + uint32(buffer[1]) + 64, 3, true

	default:
		return uint32(buffer[0] & 0b00111111), 1, true
	}
}

func readU24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
