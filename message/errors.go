package message

import "github.com/AgustinSRG/go-rtmp-session/rtmperr"

// ErrInvalidMessageFormat is returned when a command/control payload
// is missing a field its type requires (spec section 4.5).
var ErrInvalidMessageFormat = rtmperr.New(rtmperr.KindTransport, "message: invalid message format")
