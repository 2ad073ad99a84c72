// Package chunk implements the RTMP chunk stream codec: splitting and
// reassembling MessagePayloads across the four chunk header formats
// (spec section 4.4).
package chunk

import "github.com/AgustinSRG/go-rtmp-session/timestamp"

// HeaderFormat identifies which of the four basic-header formats a
// chunk used (spec section 4.4, "ChunkHeaderFormat").
type HeaderFormat int

const (
	HeaderFormatFull HeaderFormat = iota
	HeaderFormatTimeDeltaWithoutMessageStreamID
	HeaderFormatTimeDeltaOnly
	HeaderFormatEmpty
)

// Header carries the per-chunk-stream state the codec must remember
// between chunks: the previous chunk's fields, used both to apply
// deltas and to decide which format the next chunk needs.
type Header struct {
	ChunkStreamID   uint32
	Timestamp       timestamp.Timestamp
	TimestampField  uint32
	TimestampDelta  uint32
	MessageLength   uint32
	MessageTypeID   byte
	MessageStreamID uint32
	CanBeDropped    bool
}
