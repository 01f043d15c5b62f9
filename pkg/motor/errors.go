package motor

import (
	"errors"
	"fmt"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// Drive-level errors.
var (
	// ErrCommandRejected is returned when the drive answers with its
	// generic command error ("00 EE"): unknown function code or
	// malformed arguments.
	ErrCommandRejected = errors.New("command rejected by drive")

	// ErrConditionNotMet is returned when the drive refuses a valid
	// command because of its current state (disabled, stalled, homing
	// in progress).
	ErrConditionNotMet = errors.New("condition not met")

	// ErrHomingFailed is returned when the drive reports a failed
	// homing procedure.
	ErrHomingFailed = errors.New("homing failed")

	// ErrHomingTimeout is returned when a homing procedure does not
	// complete within the configured timeout.
	ErrHomingTimeout = errors.New("homing timed out")
)

// UnexpectedStatusError is returned when a command ack carries a status
// byte this stack does not understand.
type UnexpectedStatusError struct {
	Status byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status byte 0x%02X", e.Status)
}

// OpError wraps an error with the motor address and operation that
// produced it, modeled on net.OpError. Use errors.Is/As to inspect the
// underlying cause.
type OpError struct {
	// Addr is the motor the operation targeted.
	Addr frame.MotorAddress

	// Op names the operation, e.g. "enable" or "read bus voltage".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("motor %d: %s: %v", e.Addr, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error { return e.Err }
