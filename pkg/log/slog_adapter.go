package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see bus traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.BusName != "" {
		attrs = append(attrs, slog.String("bus", event.BusName))
	}
	if event.MotorAddr != 0 {
		attrs = append(attrs, slog.Uint64("motor", uint64(event.MotorAddr)))
	}

	switch {
	case event.Packet != nil:
		attrs = append(attrs,
			slog.Uint64("can_id", uint64(event.Packet.CANID)),
			slog.Int("size", event.Packet.Size),
		)
	case event.Command != nil:
		attrs = append(attrs, slog.String("function", event.Command.Function.String()))
		if event.Command.Attempt > 1 {
			attrs = append(attrs, slog.Int("attempt", event.Command.Attempt))
		}
		if event.Command.Rejected {
			attrs = append(attrs, slog.Bool("rejected", true))
		}
		if event.Command.ConditionNotMet {
			attrs = append(attrs, slog.Bool("condition_not_met", true))
		}
		if event.Command.Latency != nil {
			attrs = append(attrs, slog.Duration("latency", *event.Command.Latency))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
