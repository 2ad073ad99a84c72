package session

import (
	"github.com/AgustinSRG/go-rtmp-session/amf0"
	"github.com/AgustinSRG/go-rtmp-session/timestamp"
)

// PublishMode is the publishing type a client requests, carried in the
// second argument of the `publish` command (spec section 4.7).
type PublishMode int

const (
	PublishModeLive PublishMode = iota
	PublishModeRecord
	PublishModeAppend
)

func publishModeFromString(s string) (PublishMode, bool) {
	switch s {
	case "live":
		return PublishModeLive, true
	case "record":
		return PublishModeRecord, true
	case "append":
		return PublishModeAppend, true
	default:
		return 0, false
	}
}

func (m PublishMode) String() string {
	switch m {
	case PublishModeLive:
		return "live"
	case PublishModeRecord:
		return "record"
	case PublishModeAppend:
		return "append"
	default:
		return "live"
	}
}

// PlayStart describes where playback should start from, the `start`
// argument of the `play` command.
type PlayStart int

const (
	// PlayStartLiveOrRecorded plays a live stream if one exists for
	// the stream key, or else the recorded stream of the same name.
	PlayStartLiveOrRecorded PlayStart = iota
	// PlayStartLiveOnly only plays a live stream with that key.
	PlayStartLiveOnly
	// PlayStartAtTime plays the recorded stream starting at
	// StartTimeSeconds.
	PlayStartAtTime
)

// ServerEventKind tags which variant a ServerEvent holds.
type ServerEventKind int

const (
	ServerEventClientChunkSizeChanged ServerEventKind = iota
	ServerEventConnectionRequested
	ServerEventReleaseStreamRequested
	ServerEventPublishStreamRequested
	ServerEventPublishStreamFinished
	ServerEventStreamMetadataChanged
	ServerEventAudioDataReceived
	ServerEventVideoDataReceived
	ServerEventUnhandleableAmf0Command
	ServerEventPlayStreamRequested
	ServerEventPlayStreamFinished
	ServerEventAcknowledgementReceived
	ServerEventPingResponseReceived
	ServerEventPingRequestSent
)

// ServerEvent is a tagged union over everything a ServerSession can
// raise in reaction to client input (spec section 4.7). Only the
// fields relevant to Kind are meaningful.
type ServerEvent struct {
	Kind ServerEventKind

	RequestID uint32
	AppName   string
	StreamKey string

	NewChunkSize uint32

	Mode PublishMode

	Metadata StreamMetadata

	Data      []byte
	Timestamp timestamp.Timestamp

	CommandName         string
	TransactionID       float64
	CommandObject       amf0.Value
	AdditionalArguments []amf0.Value

	StartAt        PlayStart
	StartTimeSecs  uint32
	Duration       *uint32
	Reset          bool
	StreamID       uint32

	BytesReceived uint32
}

// ClientEventKind tags which variant a ClientEvent holds.
type ClientEventKind int

const (
	ClientEventConnectionRequestAccepted ClientEventKind = iota
	ClientEventConnectionRequestRejected
	ClientEventPlaybackRequestAccepted
	ClientEventPublishRequestAccepted
	ClientEventUnhandleableAmf0Command
	ClientEventUnknownTransactionResultReceived
)

// ClientEvent is a tagged union over everything a ClientSession can
// raise in reaction to server input (spec section 4.8).
type ClientEvent struct {
	Kind ClientEventKind

	Description string

	StreamKey string
	StreamID  uint32

	CommandName         string
	TransactionID       float64
	CommandObject       amf0.Value
	AdditionalArguments []amf0.Value
}
