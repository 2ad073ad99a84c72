package handshake

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestNewHandshakeStartsInExpectedState(t *testing.T) {
	h := New(RoleClient)
	if h.Done() {
		t.Fatal("expected fresh handshake to not be done")
	}
	if h.stage != stageNeedToSendP0P1 {
		t.Fatalf("expected initial stage NeedToSendP0P1, got %v", h.stage)
	}
}

func TestRandomDataDiffersBetweenHandshakes(t *testing.T) {
	h1 := New(RoleClient)
	h2 := New(RoleClient)

	if bytes.Equal(h1.myRandom[:], h2.myRandom[:]) {
		t.Fatal("expected distinct random blocks across instances")
	}
}

func TestGenerateC0C1Shape(t *testing.T) {
	h := New(RoleClient)
	result, err := h.GenerateC0C1()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.ResponseBytes) != 1+PacketSize {
		t.Fatalf("expected %d bytes, got %d", 1+PacketSize, len(result.ResponseBytes))
	}
	if result.ResponseBytes[0] != 3 {
		t.Fatalf("expected version byte 3, got %d", result.ResponseBytes[0])
	}

	epoch := binary.BigEndian.Uint32(result.ResponseBytes[1:5])
	if epoch != h.myEpoch {
		t.Fatalf("expected epoch %d, got %d", h.myEpoch, epoch)
	}
}

func TestBadVersionByteFails(t *testing.T) {
	h := New(RoleServer)
	if _, err := h.GenerateS0S1(); err != nil {
		t.Fatalf("unexpected error generating S0S1: %v", err)
	}

	_, err := h.ProcessBytes([]byte{4})
	if err != ErrBadVersion {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
}

func TestFullHandshakeBetweenTwoInstances(t *testing.T) {
	client := New(RoleClient)
	server := New(RoleServer)

	clientP0P1, err := client.GenerateC0C1()
	if err != nil {
		t.Fatalf("client generate error: %v", err)
	}

	serverP0P1, err := server.GenerateS0S1()
	if err != nil {
		t.Fatalf("server generate error: %v", err)
	}

	// Client processes server's P0/P1, responding with P2.
	clientP2, err := client.ProcessBytes(serverP0P1.ResponseBytes)
	if err != nil {
		t.Fatalf("client process error: %v", err)
	}

	// Server processes client's P0/P1, responding with P2.
	serverP2, err := server.ProcessBytes(clientP0P1.ResponseBytes)
	if err != nil {
		t.Fatalf("server process error: %v", err)
	}

	clientResult, err := client.ProcessBytes(serverP2.ResponseBytes)
	if err != nil {
		t.Fatalf("client final process error: %v", err)
	}
	if !clientResult.Done {
		t.Fatal("expected client handshake to complete")
	}

	serverResult, err := server.ProcessBytes(clientP2.ResponseBytes)
	if err != nil {
		t.Fatalf("server final process error: %v", err)
	}
	if !serverResult.Done {
		t.Fatal("expected server handshake to complete")
	}
}

func TestTrailingBytesAfterP2AreReturnedAsRemaining(t *testing.T) {
	client := New(RoleClient)
	server := New(RoleServer)

	clientP0P1, _ := client.GenerateC0C1()
	serverP0P1, _ := server.GenerateS0S1()

	clientP2, _ := client.ProcessBytes(serverP0P1.ResponseBytes)
	_, _ = server.ProcessBytes(clientP0P1.ResponseBytes)

	extra := []byte{0x01, 0x02, 0x03}
	payload := append(append([]byte{}, clientP2.ResponseBytes...), extra...)

	serverResult, err := server.ProcessBytes(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !serverResult.Done {
		t.Fatal("expected handshake to complete")
	}
	if !bytes.Equal(serverResult.RemainingBytes, extra) {
		t.Fatalf("expected remaining bytes %v, got %v", extra, serverResult.RemainingBytes)
	}
}

func TestIncorrectRandomDataFails(t *testing.T) {
	server := New(RoleServer)
	_, _ = server.GenerateS0S1()

	_, err := server.ProcessBytes([]byte{3})
	if err != nil {
		t.Fatalf("unexpected error processing P0: %v", err)
	}

	badP1 := make([]byte, PacketSize)
	// time = 0 matches server's epoch; random block is all zero, which
	// will not match the server's random block.
	_, err = server.ProcessBytes(badP1)
	if err != nil {
		t.Fatalf("unexpected error processing P1: %v", err)
	}

	badP2 := make([]byte, PacketSize) // wrong random block
	_, err = server.ProcessBytes(badP2)
	if err != ErrIncorrectRandomData {
		t.Fatalf("expected ErrIncorrectRandomData, got %v", err)
	}
}

func TestProcessBytesAfterCompleteFails(t *testing.T) {
	client := New(RoleClient)
	server := New(RoleServer)

	clientP0P1, _ := client.GenerateC0C1()
	serverP0P1, _ := server.GenerateS0S1()
	clientP2, _ := client.ProcessBytes(serverP0P1.ResponseBytes)
	_, _ = server.ProcessBytes(clientP0P1.ResponseBytes)
	result, err := server.ProcessBytes(clientP2.ResponseBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Done {
		t.Fatal("expected handshake complete")
	}

	_, err = server.ProcessBytes([]byte{0x01})
	if err != ErrAlreadyCompleted {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}
