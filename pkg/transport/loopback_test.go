package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestLoopbackRoundTrip(t *testing.T) {
	a, b := NewLoopback()
	defer a.Close()
	defer b.Close()

	sent := Packet{ID: 0x101, Data: []byte{0xF3, 0xAB, 0x01, 0x00, 0x6B}}
	if err := a.Send(sent); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got, err := b.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if got.ID != sent.ID {
		t.Errorf("ID = %#x, want %#x", got.ID, sent.ID)
	}
	if !bytes.Equal(got.Data, sent.Data) {
		t.Errorf("Data = % X, want % X", got.Data, sent.Data)
	}
}

func TestLoopbackCopiesData(t *testing.T) {
	a, b := NewLoopback()
	defer a.Close()
	defer b.Close()

	buf := []byte{1, 2, 3}
	if err := a.Send(Packet{ID: 1, Data: buf}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	buf[0] = 99

	got, err := b.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if got.Data[0] != 1 {
		t.Errorf("Data[0] = %d, want 1 (sender buffer must be copied)", got.Data[0])
	}
}

func TestLoopbackReceiveTimeout(t *testing.T) {
	a, b := NewLoopback()
	defer a.Close()
	defer b.Close()

	_, err := b.Receive(10 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Receive error = %v, want ErrTimeout", err)
	}
}

func TestLoopbackClose(t *testing.T) {
	a, b := NewLoopback()

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if err := b.Send(Packet{ID: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send to closed peer error = %v, want ErrClosed", err)
	}
	if _, err := a.Receive(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive on closed end error = %v, want ErrClosed", err)
	}
}
