package chunk

import (
	"fmt"

	"github.com/AgustinSRG/go-rtmp-session/rtmperr"
)

// ErrInvalidMaxChunkSize is returned when a chunk size outside the
// 1..2147483647 range is requested (spec section 4.4).
var ErrInvalidMaxChunkSize = rtmperr.New(rtmperr.KindPolicy, "chunk: invalid max chunk size")

// ErrMessageTooLong is returned when a message's payload cannot be
// represented in the 24-bit message length field.
var ErrMessageTooLong = rtmperr.New(rtmperr.KindPolicy, "chunk: message payload exceeds 16777215 bytes")

// NoPreviousChunkOnStreamError is returned when a non-Full chunk
// header arrives on a chunk stream id that has no prior chunk to
// inherit fields from.
type NoPreviousChunkOnStreamError struct {
	ChunkStreamID uint32
}

func (e *NoPreviousChunkOnStreamError) Error() string {
	return fmt.Sprintf("chunk: no previous chunk header on chunk stream %d", e.ChunkStreamID)
}

func (e *NoPreviousChunkOnStreamError) Unwrap() error {
	return rtmperr.New(rtmperr.KindTransport, e.Error())
}
