package amf0

import "github.com/AgustinSRG/go-rtmp-session/rtmperr"

var (
	// ErrUnexpectedEof is returned when a read requires more bytes
	// than remain in the input.
	ErrUnexpectedEof = rtmperr.New(rtmperr.KindTransport, "amf0: unexpected end of input")

	// ErrUnknownMarker is returned when a leading type-marker byte
	// does not match any known AMF0 kind.
	ErrUnknownMarker = rtmperr.New(rtmperr.KindTransport, "amf0: unknown type marker")

	// ErrInvalidString is returned when a length-prefixed string
	// field contains bytes that are not valid UTF-8.
	ErrInvalidString = rtmperr.New(rtmperr.KindTransport, "amf0: invalid UTF-8 string")

	// ErrStringTooLong is returned on serialize when a string value
	// exceeds the 16-bit length field's capacity.
	ErrStringTooLong = rtmperr.New(rtmperr.KindTransport, "amf0: string exceeds 65535 bytes")

	// ErrKeyTooLong is returned on serialize when an object/ECMA-array
	// key exceeds the 16-bit length field's capacity. Resolves the
	// open question in spec section 9: keys are checked, never
	// silently truncated.
	ErrKeyTooLong = rtmperr.New(rtmperr.KindTransport, "amf0: object key exceeds 65535 bytes")
)
