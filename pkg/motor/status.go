package motor

import "strings"

// Motor status flag bits.
const (
	flagEnabled         = 0x01
	flagInPosition      = 0x02
	flagStalled         = 0x04
	flagStallProtection = 0x08
)

// MotorStatus is the decoded motor status byte.
type MotorStatus struct {
	Enabled         bool
	InPosition      bool
	Stalled         bool
	StallProtection bool
}

// DecodeMotorStatus decodes the drive's motor status flag byte.
func DecodeMotorStatus(b byte) MotorStatus {
	return MotorStatus{
		Enabled:         b&flagEnabled != 0,
		InPosition:      b&flagInPosition != 0,
		Stalled:         b&flagStalled != 0,
		StallProtection: b&flagStallProtection != 0,
	}
}

// Byte re-encodes the status as the drive's flag byte.
func (s MotorStatus) Byte() byte {
	var b byte
	if s.Enabled {
		b |= flagEnabled
	}
	if s.InPosition {
		b |= flagInPosition
	}
	if s.Stalled {
		b |= flagStalled
	}
	if s.StallProtection {
		b |= flagStallProtection
	}
	return b
}

// String returns a compact flag summary like "enabled,in-position".
func (s MotorStatus) String() string {
	var flags []string
	if s.Enabled {
		flags = append(flags, "enabled")
	}
	if s.InPosition {
		flags = append(flags, "in-position")
	}
	if s.Stalled {
		flags = append(flags, "stalled")
	}
	if s.StallProtection {
		flags = append(flags, "stall-protection")
	}
	if len(flags) == 0 {
		return "disabled"
	}
	return strings.Join(flags, ",")
}

// Homing status flag bits.
const (
	flagEncoderReady      = 0x01
	flagCalibrationReady  = 0x02
	flagHomingInProgress  = 0x04
	flagHomingFailed      = 0x08
	flagPositionPrecision = 0x80
)

// HomingStatus is the decoded homing status byte.
type HomingStatus struct {
	EncoderReady          bool
	CalibrationTableReady bool
	InProgress            bool
	Failed                bool
	PositionPrecisionHigh bool
}

// DecodeHomingStatus decodes the drive's homing status flag byte.
func DecodeHomingStatus(b byte) HomingStatus {
	return HomingStatus{
		EncoderReady:          b&flagEncoderReady != 0,
		CalibrationTableReady: b&flagCalibrationReady != 0,
		InProgress:            b&flagHomingInProgress != 0,
		Failed:                b&flagHomingFailed != 0,
		PositionPrecisionHigh: b&flagPositionPrecision != 0,
	}
}

// Byte re-encodes the status as the drive's flag byte.
func (s HomingStatus) Byte() byte {
	var b byte
	if s.EncoderReady {
		b |= flagEncoderReady
	}
	if s.CalibrationTableReady {
		b |= flagCalibrationReady
	}
	if s.InProgress {
		b |= flagHomingInProgress
	}
	if s.Failed {
		b |= flagHomingFailed
	}
	if s.PositionPrecisionHigh {
		b |= flagPositionPrecision
	}
	return b
}

// HomingState is the host-side view of the homing procedure. It is
// advanced only by status polls, never by elapsed time alone.
type HomingState uint8

const (
	// HomingIdle means no homing procedure has been requested.
	HomingIdle HomingState = iota

	// HomingRequested means the trigger command was acknowledged but a
	// status poll has not yet observed the procedure running.
	HomingRequested

	// HomingInProgress means a status poll observed the procedure
	// running.
	HomingInProgress

	// HomingCompleted means a poll observed the procedure finished
	// without the failure flag.
	HomingCompleted

	// HomingFailed means a poll observed the drive's failure flag.
	HomingFailed

	// HomingTimedOut means the host gave up waiting.
	HomingTimedOut
)

// String returns the state name.
func (s HomingState) String() string {
	switch s {
	case HomingIdle:
		return "idle"
	case HomingRequested:
		return "requested"
	case HomingInProgress:
		return "in_progress"
	case HomingCompleted:
		return "completed"
	case HomingFailed:
		return "failed"
	case HomingTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}
