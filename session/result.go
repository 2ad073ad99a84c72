package session

import (
	"github.com/AgustinSRG/go-rtmp-session/chunk"
	"github.com/AgustinSRG/go-rtmp-session/message"
)

// ResultKind tags which variant a Result holds.
type ResultKind int

const (
	ResultOutboundPacket ResultKind = iota
	ResultRaisedEvent
	ResultUnhandleableMessage
)

// ServerResult is one item of the ordered sequence a ServerSession
// returns from HandleInput (spec section 6, "Session result stream").
// Every OutboundPacket must be sent to the peer in the order it
// appears, unless Packet.CanBeDropped is true.
type ServerResult struct {
	Kind      ResultKind
	Packet    chunk.Packet
	Event     ServerEvent
	Unhandled message.Payload
}

// ClientResult is the client-session equivalent of ServerResult.
type ClientResult struct {
	Kind      ResultKind
	Packet    chunk.Packet
	Event     ClientEvent
	Unhandled message.Payload
}
