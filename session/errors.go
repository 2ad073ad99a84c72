package session

import (
	"fmt"

	"github.com/AgustinSRG/go-rtmp-session/rtmperr"
)

// ErrInvalidOutstandingRequest is returned by ServerSession's
// AcceptRequest/RejectRequest when the given request id has no
// matching outstanding request (spec section 4.7).
var ErrInvalidOutstandingRequest = rtmperr.New(rtmperr.KindPolicy, "session: no outstanding request with that id")

// ErrCantConnectWhileAlreadyConnected is returned by
// ClientSession.RequestConnection when a connection is already
// established or in progress (spec section 4.8).
var ErrCantConnectWhileAlreadyConnected = rtmperr.New(rtmperr.KindPolicy, "session: already connected or connecting")

// ErrCreateStreamFailed is returned when the server rejects a
// createStream request the client made.
var ErrCreateStreamFailed = rtmperr.New(rtmperr.KindPolicy, "session: server rejected createStream")

// ErrCreateStreamResponseHadNoStreamNumber is returned when a
// createStream `_result` response lacks the numeric stream id
// argument the client needs to address playback/publishing messages.
var ErrCreateStreamResponseHadNoStreamNumber = rtmperr.New(rtmperr.KindPolicy, "session: createStream result had no stream number")

// ErrInvalidOnStatusArguments is returned when a server `onStatus`
// command doesn't carry the single info-object argument it requires.
var ErrInvalidOnStatusArguments = rtmperr.New(rtmperr.KindPolicy, "session: onStatus had invalid arguments")

// SessionInInvalidStateError is returned when an operation is
// requested while the client session isn't in a state that allows it.
type SessionInInvalidStateError struct {
	State ClientState
}

func (e *SessionInInvalidStateError) Error() string {
	return fmt.Sprintf("session: operation not valid in state %v", e.State)
}

func (e *SessionInInvalidStateError) Unwrap() error {
	return rtmperr.New(rtmperr.KindPolicy, e.Error())
}
