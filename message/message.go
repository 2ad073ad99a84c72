// Package message implements the RtmpMessage sum type and the codec
// mapping between it and raw MessagePayload bytes (spec section 4.5).
package message

import (
	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// Kind tags which RtmpMessage variant a Message holds.
type Kind int

const (
	KindSetChunkSize Kind = iota
	KindAbort
	KindAcknowledgement
	KindUserControl
	KindWindowAcknowledgement
	KindSetPeerBandwidth
	KindAudioData
	KindVideoData
	KindAmf0Data
	KindAmf0Command
	KindUnknown
)

// Message type ids, per RTMP 1.0 (spec section 6's list of core
// message types).
const (
	TypeIDSetChunkSize           byte = 1
	TypeIDAbort                  byte = 2
	TypeIDAcknowledgement        byte = 3
	TypeIDUserControl            byte = 4
	TypeIDWindowAcknowledgement  byte = 5
	TypeIDSetPeerBandwidth       byte = 6
	TypeIDAudioData              byte = 8
	TypeIDVideoData              byte = 9
	TypeIDAmf0DataFlaggedAsAmf3  byte = 15
	TypeIDAmf0Data               byte = 18
	TypeIDAmf0CommandFlaggedAsAmf3 byte = 17
	TypeIDAmf0Command           byte = 20
)

// PeerBandwidthLimitType enumerates the SetPeerBandwidth limit kinds.
type PeerBandwidthLimitType byte

const (
	LimitHard PeerBandwidthLimitType = iota
	LimitSoft
	LimitDynamic
)

// UserControlEventType enumerates UserControl sub-events.
type UserControlEventType int

const (
	EventStreamBegin UserControlEventType = iota
	EventStreamEof
	EventStreamDry
	EventSetBufferLength
	EventStreamIsRecorded
	EventPingRequest
	EventPingResponse
)

// Message is a tagged union over the protocol-defined message kinds
// (spec section 3, "RtmpMessage"). Only the fields relevant to Kind
// are meaningful.
type Message struct {
	Kind Kind

	// SetChunkSize, WindowAcknowledgement
	Size uint32

	// Abort
	StreamID uint32

	// Acknowledgement
	SequenceNumber uint32

	// SetPeerBandwidth
	LimitType PeerBandwidthLimitType

	// UserControl
	EventType          UserControlEventType
	EventStreamID      *uint32
	EventBufferLength  *uint32
	EventTimestamp     *timestamp.Timestamp

	// AudioData, VideoData
	Data []byte

	// Amf0Data
	Values []amf0.Value

	// Amf0Command
	CommandName         string
	TransactionID       float64
	CommandObject       amf0.Value
	AdditionalArguments []amf0.Value

	// Unknown
	UnknownTypeID byte
}

func SetChunkSize(size uint32) Message {
	return Message{Kind: KindSetChunkSize, Size: size}
}

func Abort(streamID uint32) Message {
	return Message{Kind: KindAbort, StreamID: streamID}
}

func Acknowledgement(seq uint32) Message {
	return Message{Kind: KindAcknowledgement, SequenceNumber: seq}
}

func WindowAcknowledgement(size uint32) Message {
	return Message{Kind: KindWindowAcknowledgement, Size: size}
}

func SetPeerBandwidth(size uint32, limit PeerBandwidthLimitType) Message {
	return Message{Kind: KindSetPeerBandwidth, Size: size, LimitType: limit}
}

func AudioData(data []byte) Message {
	return Message{Kind: KindAudioData, Data: data}
}

func VideoData(data []byte) Message {
	return Message{Kind: KindVideoData, Data: data}
}

func Amf0Data(values []amf0.Value) Message {
	return Message{Kind: KindAmf0Data, Values: values}
}

func Amf0Command(name string, txnID float64, commandObject amf0.Value, additional []amf0.Value) Message {
	return Message{
		Kind:                KindAmf0Command,
		CommandName:         name,
		TransactionID:       txnID,
		CommandObject:       commandObject,
		AdditionalArguments: additional,
	}
}

func Unknown(typeID byte, data []byte) Message {
	return Message{Kind: KindUnknown, UnknownTypeID: typeID, Data: data}
}

// UserControl builds a UserControl message. stream_id/buffer_length/
// timestamp are pointers since each event type only uses a subset
// (spec section 3).
func UserControl(event UserControlEventType, streamID, bufferLength *uint32, ts *timestamp.Timestamp) Message {
	return Message{
		Kind:              KindUserControl,
		EventType:         event,
		EventStreamID:     streamID,
		EventBufferLength: bufferLength,
		EventTimestamp:    ts,
	}
}

func u32ptr(v uint32) *uint32 { return &v }

// StreamBeginEvent is a convenience constructor for the common
// StreamBegin user control event.
func StreamBeginEvent(streamID uint32) Message {
	return UserControl(EventStreamBegin, u32ptr(streamID), nil, nil)
}

// StreamEofEvent is a convenience constructor for StreamEof.
func StreamEofEvent(streamID uint32) Message {
	return UserControl(EventStreamEof, u32ptr(streamID), nil, nil)
}

// StreamIsRecordedEvent is a convenience constructor for StreamIsRecorded.
func StreamIsRecordedEvent(streamID uint32) Message {
	return UserControl(EventStreamIsRecorded, u32ptr(streamID), nil, nil)
}

// PingRequestEvent is a convenience constructor for PingRequest.
func PingRequestEvent(ts timestamp.Timestamp) Message {
	return UserControl(EventPingRequest, nil, nil, &ts)
}

// PingResponseEvent is a convenience constructor for PingResponse.
func PingResponseEvent(ts timestamp.Timestamp) Message {
	return UserControl(EventPingResponse, nil, nil, &ts)
}

// TypeID returns the message type id this message serializes to.
func (m Message) TypeID() byte {
	switch m.Kind {
	case KindSetChunkSize:
		return TypeIDSetChunkSize
	case KindAbort:
		return TypeIDAbort
	case KindAcknowledgement:
		return TypeIDAcknowledgement
	case KindUserControl:
		return TypeIDUserControl
	case KindWindowAcknowledgement:
		return TypeIDWindowAcknowledgement
	case KindSetPeerBandwidth:
		return TypeIDSetPeerBandwidth
	case KindAudioData:
		return TypeIDAudioData
	case KindVideoData:
		return TypeIDVideoData
	case KindAmf0Data:
		return TypeIDAmf0Data
	case KindAmf0Command:
		return TypeIDAmf0Command
	case KindUnknown:
		return m.UnknownTypeID
	default:
		return 0
	}
}
