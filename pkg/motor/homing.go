package motor

import (
	"context"
	"errors"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// HomingCommands runs and configures the drive's homing procedure.
//
// The controller tracks the procedure through a small state machine:
// Idle -> Requested -> InProgress -> Completed, Failed or TimedOut.
// The drive only reports homing progress when polled, so the state
// advances on GetHomingStatus calls, never on its own.
type HomingCommands interface {
	// TriggerHoming starts the homing procedure.
	TriggerHoming(ctx context.Context, mode HomingMode) error

	// AbortHoming cancels a running procedure and resets the tracked
	// state to idle.
	AbortHoming(ctx context.Context) error

	// GetHomingStatus reads the homing flag byte and advances the
	// tracked state.
	GetHomingStatus(ctx context.Context) (HomingStatus, error)

	// WaitForHomingComplete polls until the procedure finishes. It
	// fails with ErrHomingFailed when the drive reports failure and
	// with ErrHomingTimeout when timeout elapses first. Interval 0
	// selects a default; timeout 0 waits until ctx is done.
	WaitForHomingComplete(ctx context.Context, interval, timeout time.Duration) error

	// State returns the tracked homing state.
	State() HomingState

	// SetZeroPosition stores the current shaft angle as the zero
	// reference.
	SetZeroPosition(ctx context.Context, save bool) error

	// ReadHomingParameters reads the homing configuration record.
	ReadHomingParameters(ctx context.Context) (HomingParameters, error)

	// ModifyHomingParameters writes the homing configuration record.
	ModifyHomingParameters(ctx context.Context, params HomingParameters, save bool) error
}

type homingCommands struct {
	c *Controller
}

var _ HomingCommands = (*homingCommands)(nil)

func (h *homingCommands) TriggerHoming(ctx context.Context, mode HomingMode) error {
	const op = "trigger homing"
	if mode > HomingModeLastPowerDown {
		return h.c.opErr(op, &frame.ValidationError{Field: "mode", Reason: "unknown homing mode"})
	}
	cmd := frame.NewCommand(frame.FuncTriggerHoming, byte(mode), 0x00)
	if err := h.c.command(ctx, op, cmd); err != nil {
		return err
	}
	h.c.setHomingState(HomingRequested, "homing triggered")
	return nil
}

func (h *homingCommands) AbortHoming(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncAbortHoming, frame.AuxAbortHoming)
	if err := h.c.command(ctx, "abort homing", cmd); err != nil {
		return err
	}
	h.c.setHomingState(HomingIdle, "homing aborted")
	return nil
}

func (h *homingCommands) GetHomingStatus(ctx context.Context) (HomingStatus, error) {
	data, err := h.c.read(ctx, "read homing status", frame.NewCommand(frame.FuncReadHomingStatus))
	if err != nil {
		return HomingStatus{}, err
	}
	if len(data) < 1 {
		return HomingStatus{}, h.c.opErr("read homing status", &frame.ProtocolError{Reason: "homing status reply carries no flag byte"})
	}
	status := DecodeHomingStatus(data[0])
	h.advance(status)
	return status, nil
}

// advance moves the tracked state according to a polled flag byte.
func (h *homingCommands) advance(status HomingStatus) {
	switch {
	case status.Failed:
		h.c.setHomingState(HomingFailed, "drive reported homing failure")
	case status.InProgress:
		h.c.setHomingState(HomingInProgress, "drive reported homing in progress")
	default:
		// Only a procedure we observed running (or just requested) can
		// complete; an idle drive reporting no progress stays idle.
		state := h.c.homingState()
		if state == HomingRequested || state == HomingInProgress {
			h.c.setHomingState(HomingCompleted, "drive reported homing complete")
		}
	}
}

func (h *homingCommands) WaitForHomingComplete(ctx context.Context, interval, timeout time.Duration) error {
	const op = "wait for homing"
	if interval <= 0 {
		interval = defaultPollInterval
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := h.GetHomingStatus(ctx); err != nil {
			return err
		}
		switch h.c.homingState() {
		case HomingCompleted, HomingIdle:
			return nil
		case HomingFailed:
			return h.c.opErr(op, ErrHomingFailed)
		}

		select {
		case <-ctx.Done():
			h.c.setHomingState(HomingTimedOut, "wait cancelled")
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return h.c.opErr(op, ErrHomingTimeout)
			}
			return h.c.opErr(op, ctx.Err())
		case <-deadline:
			h.c.setHomingState(HomingTimedOut, "wait timed out")
			return h.c.opErr(op, ErrHomingTimeout)
		case <-ticker.C:
		}
	}
}

func (h *homingCommands) State() HomingState {
	return h.c.homingState()
}

func (h *homingCommands) SetZeroPosition(ctx context.Context, save bool) error {
	cmd := frame.NewCommand(frame.FuncSetZeroPosition, frame.AuxSetZeroPosition, boolByte(save))
	return h.c.command(ctx, "set zero position", cmd)
}

func (h *homingCommands) ReadHomingParameters(ctx context.Context) (HomingParameters, error) {
	const op = "read homing parameters"
	data, err := h.c.read(ctx, op, frame.NewCommand(frame.FuncReadHomingParams))
	if err != nil {
		return HomingParameters{}, err
	}
	params, err := decodeHomingParameters(data)
	if err != nil {
		return HomingParameters{}, h.c.opErr(op, err)
	}
	return params, nil
}

func (h *homingCommands) ModifyHomingParameters(ctx context.Context, params HomingParameters, save bool) error {
	const op = "modify homing parameters"
	if err := params.Validate(); err != nil {
		return h.c.opErr(op, err)
	}

	payload := []byte{frame.AuxModifyHoming, boolByte(save)}
	payload = params.encode(payload)

	return h.c.command(ctx, op, frame.NewCommand(frame.FuncModifyHomingParams, payload...))
}
