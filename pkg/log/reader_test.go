package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, event)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "session-1", Direction: DirectionIn, Layer: LayerTransport, Category: CategoryPacket},
		{Timestamp: time.Now(), SessionID: "session-2", Direction: DirectionOut, Layer: LayerFrame, Category: CategoryCommand},
		{Timestamp: time.Now(), SessionID: "session-3", Direction: DirectionIn, Layer: LayerController, Category: CategoryState},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].SessionID != "session-1" || read[2].SessionID != "session-3" {
		t.Errorf("events out of order: %q, %q", read[0].SessionID, read[2].SessionID)
	}
}

func TestReaderFiltersByMotorAddr(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "s", MotorAddr: 1, Category: CategoryPacket},
		{Timestamp: time.Now(), SessionID: "s", MotorAddr: 2, Category: CategoryPacket},
		{Timestamp: time.Now(), SessionID: "s", MotorAddr: 1, Category: CategoryCommand},
	}

	path := createTestLogFile(t, events)

	addr := uint8(1)
	reader, err := NewFilteredReader(path, Filter{MotorAddr: &addr})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}
	for _, e := range read {
		if e.MotorAddr != 1 {
			t.Errorf("MotorAddr = %d, want 1", e.MotorAddr)
		}
	}
}

func TestReaderFiltersByCategoryAndDirection(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), Direction: DirectionIn, Category: CategoryPacket},
		{Timestamp: time.Now(), Direction: DirectionOut, Category: CategoryPacket},
		{Timestamp: time.Now(), Direction: DirectionOut, Category: CategoryError},
	}

	path := createTestLogFile(t, events)

	dir := DirectionOut
	cat := CategoryPacket
	reader, err := NewFilteredReader(path, Filter{Direction: &dir, Category: &cat})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 1 {
		t.Fatalf("got %d events, want 1", len(read))
	}
}

func TestReaderFiltersByTimeRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SessionID: "early"},
		{Timestamp: base.Add(time.Minute), SessionID: "mid"},
		{Timestamp: base.Add(2 * time.Minute), SessionID: "late"},
	}

	path := createTestLogFile(t, events)

	start := base.Add(30 * time.Second)
	end := base.Add(90 * time.Second)
	reader, err := NewFilteredReader(path, Filter{TimeStart: &start, TimeEnd: &end})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 1 {
		t.Fatalf("got %d events, want 1", len(read))
	}
	if read[0].SessionID != "mid" {
		t.Errorf("SessionID = %q, want %q", read[0].SessionID, "mid")
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.dlog")); err == nil {
		t.Error("expected error opening missing file")
	}
}
