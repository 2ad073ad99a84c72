package message

import (
	"bytes"
	"encoding/binary"

	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// ToPayload encodes a Message into a Payload ready for chunking (spec
// section 4.5, "to_payload").
func ToPayload(m Message, ts timestamp.Timestamp, messageStreamID uint32) (Payload, error) {
	data, err := encodeBody(m)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Timestamp:       ts,
		TypeID:          m.TypeID(),
		MessageStreamID: messageStreamID,
		Data:            data,
	}, nil
}

func encodeBody(m Message) ([]byte, error) {
	var buf bytes.Buffer

	switch m.Kind {
	case KindSetChunkSize:
		if err := binary.Write(&buf, binary.BigEndian, m.Size); err != nil {
			return nil, err
		}

	case KindAbort:
		if err := binary.Write(&buf, binary.BigEndian, m.StreamID); err != nil {
			return nil, err
		}

	case KindAcknowledgement:
		if err := binary.Write(&buf, binary.BigEndian, m.SequenceNumber); err != nil {
			return nil, err
		}

	case KindWindowAcknowledgement:
		if err := binary.Write(&buf, binary.BigEndian, m.Size); err != nil {
			return nil, err
		}

	case KindSetPeerBandwidth:
		if err := binary.Write(&buf, binary.BigEndian, m.Size); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(m.LimitType))

	case KindUserControl:
		if err := encodeUserControl(&buf, m); err != nil {
			return nil, err
		}

	case KindAudioData, KindVideoData, KindUnknown:
		buf.Write(m.Data)

	case KindAmf0Data:
		encoded, err := amf0.Encode(m.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)

	case KindAmf0Command:
		values := make([]amf0.Value, 0, 3+len(m.AdditionalArguments))
		values = append(values, amf0.String(m.CommandName), amf0.Number(m.TransactionID), m.CommandObject)
		values = append(values, m.AdditionalArguments...)

		encoded, err := amf0.Encode(values)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}

	return buf.Bytes(), nil
}

func encodeUserControl(buf *bytes.Buffer, m Message) error {
	writeEvent := func(eventID uint16) {
		_ = binary.Write(buf, binary.BigEndian, eventID)
	}
	writeU32 := func(v uint32) {
		_ = binary.Write(buf, binary.BigEndian, v)
	}
	streamIDOrZero := func() uint32 {
		if m.EventStreamID != nil {
			return *m.EventStreamID
		}
		return 0
	}

	switch m.EventType {
	case EventStreamBegin:
		writeEvent(0)
		writeU32(streamIDOrZero())
	case EventStreamEof:
		writeEvent(1)
		writeU32(streamIDOrZero())
	case EventStreamDry:
		writeEvent(2)
		writeU32(streamIDOrZero())
	case EventSetBufferLength:
		writeEvent(3)
		writeU32(streamIDOrZero())
		if m.EventBufferLength != nil {
			writeU32(*m.EventBufferLength)
		} else {
			writeU32(0)
		}
	case EventStreamIsRecorded:
		writeEvent(4)
		writeU32(streamIDOrZero())
	case EventPingRequest:
		writeEvent(6)
		if m.EventTimestamp != nil {
			writeU32(m.EventTimestamp.Value())
		} else {
			writeU32(0)
		}
	case EventPingResponse:
		writeEvent(7)
		if m.EventTimestamp != nil {
			writeU32(m.EventTimestamp.Value())
		} else {
			writeU32(0)
		}
	}

	return nil
}

// ToMessage decodes a Payload into a Message by dispatching on type id
// (spec section 4.5, "to_message"). Messages flagged as AMF3 (type ids
// 15 and 17) are decoded as AMF0, matching flash encoders that lie
// about the encoding they used.
func ToMessage(p Payload) (Message, error) {
	switch p.TypeID {
	case TypeIDSetChunkSize:
		return decodeSetChunkSize(p.Data)
	case TypeIDAbort:
		return decodeAbort(p.Data)
	case TypeIDAcknowledgement:
		return decodeAcknowledgement(p.Data)
	case TypeIDUserControl:
		return decodeUserControl(p.Data)
	case TypeIDWindowAcknowledgement:
		return decodeWindowAcknowledgement(p.Data)
	case TypeIDSetPeerBandwidth:
		return decodeSetPeerBandwidth(p.Data)
	case TypeIDAudioData:
		return AudioData(p.Data), nil
	case TypeIDVideoData:
		return VideoData(p.Data), nil
	case TypeIDAmf0Data, TypeIDAmf0DataFlaggedAsAmf3:
		return decodeAmf0Data(p.Data)
	case TypeIDAmf0Command:
		return decodeAmf0Command(p.Data)
	case TypeIDAmf0CommandFlaggedAsAmf3:
		// Fake AMF3 commands usually have a leading 0x00 byte before
		// the AMF0-encoded body.
		if len(p.Data) > 0 && p.Data[0] == 0x00 {
			return decodeAmf0Command(p.Data[1:])
		}
		return decodeAmf0Command(p.Data)
	default:
		return Unknown(p.TypeID, p.Data), nil
	}
}

func decodeSetChunkSize(data []byte) (Message, error) {
	if len(data) < 4 {
		return Message{}, ErrInvalidMessageFormat
	}
	return SetChunkSize(binary.BigEndian.Uint32(data[0:4])), nil
}

func decodeAbort(data []byte) (Message, error) {
	if len(data) < 4 {
		return Message{}, ErrInvalidMessageFormat
	}
	return Abort(binary.BigEndian.Uint32(data[0:4])), nil
}

func decodeAcknowledgement(data []byte) (Message, error) {
	if len(data) < 4 {
		return Message{}, ErrInvalidMessageFormat
	}
	return Acknowledgement(binary.BigEndian.Uint32(data[0:4])), nil
}

func decodeWindowAcknowledgement(data []byte) (Message, error) {
	if len(data) < 4 {
		return Message{}, ErrInvalidMessageFormat
	}
	return WindowAcknowledgement(binary.BigEndian.Uint32(data[0:4])), nil
}

func decodeSetPeerBandwidth(data []byte) (Message, error) {
	if len(data) < 5 {
		return Message{}, ErrInvalidMessageFormat
	}
	size := binary.BigEndian.Uint32(data[0:4])
	return SetPeerBandwidth(size, PeerBandwidthLimitType(data[4])), nil
}

func decodeUserControl(data []byte) (Message, error) {
	if len(data) < 2 {
		return Message{}, ErrInvalidMessageFormat
	}
	eventID := binary.BigEndian.Uint16(data[0:2])
	rest := data[2:]

	readU32 := func() (uint32, error) {
		if len(rest) < 4 {
			return 0, ErrInvalidMessageFormat
		}
		v := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		return v, nil
	}

	switch eventID {
	case 0, 1, 2, 4:
		streamID, err := readU32()
		if err != nil {
			return Message{}, err
		}
		eventType := map[uint16]UserControlEventType{
			0: EventStreamBegin,
			1: EventStreamEof,
			2: EventStreamDry,
			4: EventStreamIsRecorded,
		}[eventID]
		return UserControl(eventType, &streamID, nil, nil), nil

	case 3:
		streamID, err := readU32()
		if err != nil {
			return Message{}, err
		}
		bufferLength, err := readU32()
		if err != nil {
			return Message{}, err
		}
		return UserControl(EventSetBufferLength, &streamID, &bufferLength, nil), nil

	case 6, 7:
		ts, err := readU32()
		if err != nil {
			return Message{}, err
		}
		value := timestamp.New(ts)
		eventType := EventPingRequest
		if eventID == 7 {
			eventType = EventPingResponse
		}
		return UserControl(eventType, nil, nil, &value), nil

	default:
		return Message{}, ErrInvalidMessageFormat
	}
}

func decodeAmf0Data(data []byte) (Message, error) {
	values, err := amf0.Decode(data)
	if err != nil {
		return Message{}, err
	}
	return Amf0Data(values), nil
}

func decodeAmf0Command(data []byte) (Message, error) {
	values, err := amf0.Decode(data)
	if err != nil {
		return Message{}, err
	}
	if len(values) < 3 {
		return Message{}, ErrInvalidMessageFormat
	}

	name, ok := values[0].AsString()
	if !ok {
		return Message{}, ErrInvalidMessageFormat
	}
	txnID, ok := values[1].AsFloat64()
	if !ok {
		return Message{}, ErrInvalidMessageFormat
	}

	return Amf0Command(name, txnID, values[2], values[3:]), nil
}
