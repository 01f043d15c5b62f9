package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

func TestRunStats(t *testing.T) {
	events := testEvents()
	events = append(events, log.Event{
		Timestamp: time.Date(2026, 4, 3, 9, 30, 3, 0, time.UTC),
		Direction: log.DirectionIn,
		Layer:     log.LayerFrame,
		Category:  log.CategoryCommand,
		MotorAddr: 1,
		Command:   &log.CommandEvent{Function: frame.FuncEnable, Attempt: 3, Rejected: true},
	})
	path := writeTestLog(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Total Events: 4") {
		t.Errorf("expected total count, got: %s", output)
	}
	if !strings.Contains(output, "Motors: 2") {
		t.Errorf("expected 2 motors, got: %s", output)
	}
	if !strings.Contains(output, "Rejected Commands: 1") {
		t.Errorf("expected rejected count, got: %s", output)
	}
	if !strings.Contains(output, "Retried Commands:  1") {
		t.Errorf("expected retry count, got: %s", output)
	}
	if !strings.Contains(output, "Duration:   3s") {
		t.Errorf("expected duration, got: %s", output)
	}
	if !strings.Contains(output, "TRANSPORT:") || !strings.Contains(output, "CONTROLLER:") {
		t.Errorf("expected per-layer breakdown, got: %s", output)
	}
}

func TestRunStatsEmptyFile(t *testing.T) {
	path := writeTestLog(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}

	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero count, got: %s", buf.String())
	}
}
