package motor

import (
	"context"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// TriggerActions fires one-shot maintenance actions on a drive. All of
// them refuse to run while the motor is moving, which surfaces as
// ErrConditionNotMet.
type TriggerActions interface {
	// CalibrateEncoder runs the encoder calibration routine. The motor
	// turns during calibration and must be unloaded.
	CalibrateEncoder(ctx context.Context) error

	// ClearPosition zeroes the position counter.
	ClearPosition(ctx context.Context) error

	// ReleaseStallProtection clears a tripped stall detector.
	ReleaseStallProtection(ctx context.Context) error

	// FactoryReset restores the drive's factory configuration and
	// drops the cached configuration record.
	FactoryReset(ctx context.Context) error
}

type triggerActions struct {
	c *Controller
}

var _ TriggerActions = (*triggerActions)(nil)

func (t *triggerActions) CalibrateEncoder(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncCalibrateEncoder, frame.AuxCalibrateEncoder)
	return t.c.command(ctx, "calibrate encoder", cmd)
}

func (t *triggerActions) ClearPosition(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncClearPosition, frame.AuxClearPosition)
	return t.c.command(ctx, "clear position", cmd)
}

func (t *triggerActions) ReleaseStallProtection(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncReleaseStallProtection, frame.AuxReleaseStall)
	return t.c.command(ctx, "release stall protection", cmd)
}

func (t *triggerActions) FactoryReset(ctx context.Context) error {
	cmd := frame.NewCommand(frame.FuncFactoryReset, frame.AuxFactoryReset)
	if err := t.c.command(ctx, "factory reset", cmd); err != nil {
		return err
	}
	t.c.dropDriveParams()
	return nil
}
