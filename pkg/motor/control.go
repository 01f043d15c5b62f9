package motor

import (
	"context"
	"fmt"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// defaultPollInterval is used by the wait helpers when no interval is
// given.
const defaultPollInterval = 50 * time.Millisecond

// ControlActions issues motion commands to a drive.
//
// Commands with a deferred flag are buffered on the drive instead of
// executing immediately; the drive is then registered in the bus sync
// group and all buffered commands start together on SyncMotion.
type ControlActions interface {
	// Enable powers the motor windings.
	Enable(ctx context.Context) error

	// Disable releases the motor windings.
	Disable(ctx context.Context) error

	// Stop halts motion immediately and removes the drive from the
	// sync group.
	Stop(ctx context.Context) error

	// SetSpeed runs the motor at a constant speed. A negative speed
	// reverses direction. Acceleration 0 applies the new speed
	// instantly.
	SetSpeed(ctx context.Context, speedRPM float64, accel uint16, deferred bool) error

	// SetTorque drives a constant winding current. A negative current
	// reverses direction; slope limits the current ramp in mA/s, 0 for
	// an instant step.
	SetTorque(ctx context.Context, currentMA int32, slopeMA uint16, deferred bool) error

	// MoveToPosition moves at a constant speed to the target angle in
	// degrees. When absolute is false the target is relative to the
	// current position and its sign selects the direction.
	MoveToPosition(ctx context.Context, degrees, speedRPM float64, absolute, deferred bool) error

	// MoveToPositionTrapezoid moves to the target angle with a
	// trapezoidal velocity profile.
	MoveToPositionTrapezoid(ctx context.Context, degrees, maxSpeedRPM float64, accel, decel uint16, absolute, deferred bool) error

	// SyncMotion broadcasts the start signal for all deferred commands
	// and clears the sync group. It is a no-op when the group is
	// empty.
	SyncMotion() error

	// WaitForInPosition polls the motor status until the in-position
	// flag is set. Interval 0 selects a default.
	WaitForInPosition(ctx context.Context, interval time.Duration) error
}

type controlActions struct {
	c *Controller
}

var _ ControlActions = (*controlActions)(nil)

func (a *controlActions) Enable(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncEnable, frame.AuxEnable, 0x01, 0x00)
	return a.c.command(ctx, "enable", cmd)
}

func (a *controlActions) Disable(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncEnable, frame.AuxEnable, 0x00, 0x00)
	return a.c.command(ctx, "disable", cmd)
}

func (a *controlActions) Stop(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncStop, frame.AuxStop, 0x00)
	if err := a.c.command(ctx, "stop", cmd); err != nil {
		return err
	}
	a.c.bus.SyncGroup().Remove(a.c.Address())
	return nil
}

func (a *controlActions) SetSpeed(ctx context.Context, speedRPM float64, accel uint16, deferred bool) error {
	const op = "set speed"
	dir, mag, err := frame.SpeedToWire(speedRPM)
	if err != nil {
		return a.c.opErr(op, err)
	}

	payload := []byte{dir}
	payload = frame.AppendUint16(payload, accel)
	payload = frame.AppendUint16(payload, mag)
	payload = append(payload, syncByte(deferred))

	return a.deferrable(ctx, op, frame.NewCommand(frame.FuncSpeedMode, payload...), deferred)
}

func (a *controlActions) SetTorque(ctx context.Context, currentMA int32, slopeMA uint16, deferred bool) error {
	const op = "set torque"
	dir := byte(0x00)
	if currentMA < 0 {
		dir = 0x01
		currentMA = -currentMA
	}
	if currentMA > 0xFFFF {
		return a.c.opErr(op, &frame.ValidationError{Field: "current", Reason: fmt.Sprintf("%d mA exceeds the 16-bit field", currentMA)})
	}
	if params, ok := a.c.cachedDriveParams(); ok && params.ClosedLoopMaxMA > 0 && currentMA > int32(params.ClosedLoopMaxMA) {
		return a.c.opErr(op, &frame.ValidationError{
			Field:  "current",
			Reason: fmt.Sprintf("%d mA exceeds the drive's closed-loop limit of %d mA", currentMA, params.ClosedLoopMaxMA),
		})
	}

	payload := []byte{dir}
	payload = frame.AppendUint16(payload, slopeMA)
	payload = frame.AppendUint16(payload, uint16(currentMA))
	payload = append(payload, syncByte(deferred))

	return a.deferrable(ctx, op, frame.NewCommand(frame.FuncTorqueMode, payload...), deferred)
}

func (a *controlActions) MoveToPosition(ctx context.Context, degrees, speedRPM float64, absolute, deferred bool) error {
	const op = "move to position"
	if absolute {
		if err := a.c.checkTravel(degrees); err != nil {
			return a.c.opErr(op, err)
		}
	}
	dir, pos, err := frame.PositionToWire(degrees)
	if err != nil {
		return a.c.opErr(op, err)
	}
	speed, err := moveSpeed(speedRPM)
	if err != nil {
		return a.c.opErr(op, err)
	}

	payload := []byte{dir}
	payload = frame.AppendUint16(payload, speed)
	payload = frame.AppendUint32(payload, pos)
	payload = append(payload, boolByte(absolute), syncByte(deferred))

	return a.deferrable(ctx, op, frame.NewCommand(frame.FuncPositionDirect, payload...), deferred)
}

func (a *controlActions) MoveToPositionTrapezoid(ctx context.Context, degrees, maxSpeedRPM float64, accel, decel uint16, absolute, deferred bool) error {
	const op = "move to position trapezoid"
	if absolute {
		if err := a.c.checkTravel(degrees); err != nil {
			return a.c.opErr(op, err)
		}
	}
	dir, pos, err := frame.PositionToWire(degrees)
	if err != nil {
		return a.c.opErr(op, err)
	}
	speed, err := moveSpeed(maxSpeedRPM)
	if err != nil {
		return a.c.opErr(op, err)
	}

	payload := []byte{dir}
	payload = frame.AppendUint16(payload, accel)
	payload = frame.AppendUint16(payload, decel)
	payload = frame.AppendUint16(payload, speed)
	payload = frame.AppendUint32(payload, pos)
	payload = append(payload, boolByte(absolute), syncByte(deferred))

	return a.deferrable(ctx, op, frame.NewCommand(frame.FuncPositionTrapezoid, payload...), deferred)
}

func (a *controlActions) SyncMotion() error {
	group := a.c.bus.SyncGroup()
	if group.Len() == 0 {
		return nil
	}
	cmd := frame.NewCommand(frame.FuncSyncMotion, frame.AuxSyncMotion)
	if err := a.c.bus.Broadcast(cmd); err != nil {
		return a.c.opErr("sync motion", err)
	}
	group.Clear()
	return nil
}

func (a *controlActions) WaitForInPosition(ctx context.Context, interval time.Duration) error {
	const op = "wait for in position"
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := a.c.Read().MotorStatus(ctx)
		if err != nil {
			return err
		}
		if status.InPosition {
			return nil
		}
		select {
		case <-ctx.Done():
			return a.c.opErr(op, ctx.Err())
		case <-ticker.C:
		}
	}
}

// deferrable sends a motion command and records the drive in the sync
// group when it was deferred.
func (a *controlActions) deferrable(ctx context.Context, op string, cmd *frame.Command, deferred bool) error {
	if err := a.c.command(ctx, op, cmd); err != nil {
		return err
	}
	if deferred {
		a.c.bus.SyncGroup().Add(a.c.Address())
	}
	return nil
}

// moveSpeed converts an unsigned move speed to its wire magnitude.
func moveSpeed(rpm float64) (uint16, error) {
	if rpm < 0 {
		return 0, &frame.ValidationError{Field: "speed", Reason: "move speed must not be negative"}
	}
	_, mag, err := frame.SpeedToWire(rpm)
	return mag, err
}

func syncByte(deferred bool) byte {
	if deferred {
		return 0x01
	}
	return 0x00
}
