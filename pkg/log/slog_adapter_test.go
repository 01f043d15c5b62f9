package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

func TestSlogAdapterWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "slog-session",
		Direction: DirectionOut,
		Layer:     LayerFrame,
		Category:  CategoryCommand,
		MotorAddr: 7,
		Command: &CommandEvent{
			Function: frame.FuncEnable,
			Rejected: true,
		},
	})

	out := buf.String()
	for _, want := range []string{"slog-session", "OUT", "FRAME", "motor=7", "rejected=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterStateChange(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "s",
		Layer:     LayerController,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityHoming,
			OldState: "in_progress",
			NewState: "completed",
		},
	})

	out := buf.String()
	for _, want := range []string{"HOMING", "in_progress", "completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
