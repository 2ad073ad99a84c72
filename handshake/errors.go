package handshake

import "github.com/AgustinSRG/go-rtmp-session/rtmperr"

var (
	// ErrBadVersion is returned when a peer's C0/S0 version byte is
	// not 3.
	ErrBadVersion = rtmperr.New(rtmperr.KindTransport, "handshake: unsupported version byte")

	// ErrIncorrectPeerTime is returned when a peer's P2 epoch does
	// not match the epoch this side advertised in its own P1.
	ErrIncorrectPeerTime = rtmperr.New(rtmperr.KindTransport, "handshake: peer echoed an incorrect epoch")

	// ErrIncorrectRandomData is returned when a peer's P2 random
	// block does not match the random block this side sent in P1.
	ErrIncorrectRandomData = rtmperr.New(rtmperr.KindTransport, "handshake: peer echoed incorrect random data")

	// ErrAlreadyCompleted is returned when bytes are fed to a
	// handshake instance that has already reached Complete.
	ErrAlreadyCompleted = rtmperr.New(rtmperr.KindPolicy, "handshake: already completed")
)
