package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

func TestEncodeDecodeEvent(t *testing.T) {
	latency := 3 * time.Millisecond
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: "session-42",
		Direction: DirectionIn,
		Layer:     LayerFrame,
		Category:  CategoryCommand,
		BusName:   "/dev/ttyACM0",
		MotorAddr: 5,
		Command: &CommandEvent{
			Function: frame.FuncReadRealtimePosition,
			Attempt:  2,
			Latency:  &latency,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID = %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.MotorAddr != event.MotorAddr {
		t.Errorf("MotorAddr = %d, want %d", decoded.MotorAddr, event.MotorAddr)
	}
	if decoded.Command == nil {
		t.Fatal("Command payload missing after round trip")
	}
	if decoded.Command.Function != frame.FuncReadRealtimePosition {
		t.Errorf("Function = %v, want %v", decoded.Command.Function, frame.FuncReadRealtimePosition)
	}
	if decoded.Command.Latency == nil || *decoded.Command.Latency != latency {
		t.Errorf("Latency = %v, want %v", decoded.Command.Latency, latency)
	}
	if !decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, event.Timestamp)
	}
}

func TestEncodeDecodePacketEvent(t *testing.T) {
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: "session-1",
		Direction: DirectionOut,
		Layer:     LayerTransport,
		Category:  CategoryPacket,
		MotorAddr: 1,
		Packet: &PacketEvent{
			CANID: 0x100,
			Size:  5,
			Data:  []byte{0xF3, 0xAB, 0x01, 0x00, 0x6B},
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Packet == nil {
		t.Fatal("Packet payload missing after round trip")
	}
	if decoded.Packet.CANID != 0x100 {
		t.Errorf("CANID = %#x, want 0x100", decoded.Packet.CANID)
	}
	if !bytes.Equal(decoded.Packet.Data, event.Packet.Data) {
		t.Errorf("Data = % X, want % X", decoded.Packet.Data, event.Packet.Data)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("expected error decoding garbage bytes")
	}
}
