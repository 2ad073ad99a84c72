// Package handshake implements RTMP's original (non-digest) 3-packet
// handshake: C0/C1/C2 from the client, S0/S1/S2 from the server. Per
// spec section 1's non-goals, the flash-specific digest handshake used
// for H.264 compatibility is not implemented here.
package handshake

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
)

// RandomDataSize is the length of the random block inside every
// packet after the single-byte version packet.
const RandomDataSize = 1528

// PacketSize is the full size of a C1/C2/S1/S2 packet:
// time(4) + zero(4) + random(1528).
const PacketSize = 8 + RandomDataSize

// Role distinguishes which side of the connection a Handshake speaks
// for, purely to name the outbound generator the caller should use;
// the underlying state machine is symmetric (spec section 4.3: "both
// sides share one table").
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

type stage int

const (
	stageNeedToSendP0P1 stage = iota
	stageWaitingForP0
	stageWaitingForP1
	stageWaitingForP2
	stageComplete
)

// Handshake drives one side of the original handshake state machine:
// NeedToSendP0P1 -> WaitingForP0 -> WaitingForP1 -> WaitingForP2 -> Complete.
type Handshake struct {
	role     Role
	myEpoch  uint32
	stage    stage
	myRandom [RandomDataSize]byte
	buffer   []byte
}

// New creates a handshake instance for the given role with a fresh
// random block and epoch 0.
func New(role Role) *Handshake {
	h := &Handshake{role: role, myEpoch: 0, stage: stageNeedToSendP0P1}
	_, _ = rand.Read(h.myRandom[:])
	return h
}

// Result is the outcome of advancing the handshake state machine.
type Result struct {
	// Done is true once the handshake has reached Complete.
	Done bool
	// ResponseBytes are bytes to write back to the peer, if any.
	ResponseBytes []byte
	// RemainingBytes holds bytes received past the end of P2, once
	// Done is true, so the chunk codec can consume them.
	RemainingBytes []byte
}

// GenerateC0C1 emits this side's P0/P1 packet as the client. Behaves
// identically to GenerateS0S1; the name exists for caller clarity per
// spec section 6's role-specific method names.
func (h *Handshake) GenerateC0C1() (Result, error) {
	return h.generateOutboundP0P1()
}

// GenerateS0S1 emits this side's P0/P1 packet as the server.
func (h *Handshake) GenerateS0S1() (Result, error) {
	return h.generateOutboundP0P1()
}

func (h *Handshake) generateOutboundP0P1() (Result, error) {
	var buf bytes.Buffer
	buf.WriteByte(3)
	_ = binary.Write(&buf, binary.BigEndian, h.myEpoch)
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write(h.myRandom[:])

	h.stage = stageWaitingForP0
	return Result{ResponseBytes: buf.Bytes()}, nil
}

// ProcessBytes feeds incoming bytes into the state machine, advancing
// as many stages as the buffered data allows. It is idempotent across
// short reads: partial packets are buffered until enough bytes exist
// to advance (spec section 4.3).
func (h *Handshake) ProcessBytes(data []byte) (Result, error) {
	h.buffer = append(h.buffer, data...)

	var responseBytes []byte
	var remainingBytes []byte

	for {
		startingStage := h.stage

		var result Result
		var err error

		switch h.stage {
		case stageNeedToSendP0P1:
			result, err = h.generateOutboundP0P1()
		case stageWaitingForP0:
			result, err = h.parseP0()
		case stageWaitingForP1:
			result, err = h.parseP1()
		case stageWaitingForP2:
			result, err = h.parseP2()
		case stageComplete:
			err = ErrAlreadyCompleted
		}

		if err != nil {
			return Result{}, err
		}

		responseBytes = append(responseBytes, result.ResponseBytes...)
		remainingBytes = append(remainingBytes, result.RemainingBytes...)

		if h.stage == stageComplete || startingStage == h.stage {
			// Either finished, or stuck waiting for more bytes.
			break
		}
	}

	if h.stage == stageComplete {
		return Result{Done: true, ResponseBytes: responseBytes, RemainingBytes: remainingBytes}, nil
	}
	return Result{ResponseBytes: responseBytes}, nil
}

func (h *Handshake) parseP0() (Result, error) {
	if len(h.buffer) == 0 {
		return Result{}, nil
	}

	version := h.buffer[0]
	h.buffer = h.buffer[1:]

	if version != 3 {
		return Result{}, ErrBadVersion
	}

	h.stage = stageWaitingForP1
	return Result{}, nil
}

func (h *Handshake) parseP1() (Result, error) {
	if len(h.buffer) < PacketSize {
		return Result{}, nil
	}

	data := h.buffer[:PacketSize]
	h.buffer = h.buffer[PacketSize:]

	// Echo the exact bytes back as P2.
	response := make([]byte, PacketSize)
	copy(response, data)

	h.stage = stageWaitingForP2
	return Result{ResponseBytes: response}, nil
}

func (h *Handshake) parseP2() (Result, error) {
	if len(h.buffer) < PacketSize {
		return Result{}, nil
	}

	data := h.buffer[:PacketSize]
	h.buffer = h.buffer[PacketSize:]

	peerTime := binary.BigEndian.Uint32(data[0:4])
	if peerTime != h.myEpoch {
		return Result{}, ErrIncorrectPeerTime
	}

	peerRandom := data[8 : 8+RandomDataSize]
	if !bytes.Equal(peerRandom, h.myRandom[:]) {
		return Result{}, ErrIncorrectRandomData
	}

	remaining := make([]byte, len(h.buffer))
	copy(remaining, h.buffer)
	h.buffer = nil

	h.stage = stageComplete
	return Result{RemainingBytes: remaining}, nil
}

// Done reports whether the handshake has reached Complete.
func (h *Handshake) Done() bool {
	return h.stage == stageComplete
}
