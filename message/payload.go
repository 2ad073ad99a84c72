package message

import "github.com/AgustinSRG/go-rtmp-session/timestamp"

// Payload is a raw RTMP message as framed by the chunk codec: a
// timestamp, type id, message stream id, and opaque data (spec
// section 3, "Message payload").
type Payload struct {
	Timestamp       timestamp.Timestamp
	TypeID          byte
	MessageStreamID uint32
	Data            []byte
}
