package motor

import (
	"fmt"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// Version identifies the drive's firmware and hardware revisions.
type Version struct {
	Firmware uint16
	Hardware uint16
}

func (v Version) String() string {
	return fmt.Sprintf("fw %d.%d / hw %d.%d", v.Firmware>>8, v.Firmware&0xFF, v.Hardware>>8, v.Hardware&0xFF)
}

// ResistanceInductance holds the measured phase resistance and
// inductance.
type ResistanceInductance struct {
	ResistanceMilliOhm uint16
	InductanceMicroH   uint16
}

// PIDParameters holds the drive's loop gains.
type PIDParameters struct {
	TrapezoidPositionKp uint32
	DirectPositionKp    uint32
	SpeedKp             uint32
	SpeedKi             uint32
}

// pidParametersSize is the wire size of the PID record.
const pidParametersSize = 16

// decodePIDParameters parses the PID read response data.
func decodePIDParameters(data []byte) (PIDParameters, error) {
	if len(data) < pidParametersSize {
		return PIDParameters{}, &frame.ProtocolError{Reason: fmt.Sprintf("PID record too short: %d bytes", len(data))}
	}
	return PIDParameters{
		TrapezoidPositionKp: frame.Uint32(data, 0),
		DirectPositionKp:    frame.Uint32(data, 4),
		SpeedKp:             frame.Uint32(data, 8),
		SpeedKi:             frame.Uint32(data, 12),
	}, nil
}

// encode appends the 16-byte wire form.
func (p PIDParameters) encode(buf []byte) []byte {
	buf = frame.AppendUint32(buf, p.TrapezoidPositionKp)
	buf = frame.AppendUint32(buf, p.DirectPositionKp)
	buf = frame.AppendUint32(buf, p.SpeedKp)
	buf = frame.AppendUint32(buf, p.SpeedKi)
	return buf
}

// HomingMode selects the drive's homing strategy.
type HomingMode uint8

const (
	// HomingModeNearest turns to the stored zero by the shortest path
	// within one revolution.
	HomingModeNearest HomingMode = 0

	// HomingModeDirectional turns to the stored zero in the configured
	// direction.
	HomingModeDirectional HomingMode = 1

	// HomingModeCollision runs until the collision detector trips.
	HomingModeCollision HomingMode = 2

	// HomingModeLimitSwitch runs until the limit switch input closes.
	HomingModeLimitSwitch HomingMode = 3

	// HomingModeAbsoluteZero turns to the encoder's absolute zero,
	// crossing revolutions if needed.
	HomingModeAbsoluteZero HomingMode = 4

	// HomingModeLastPowerDown returns to the position held at the last
	// power-down.
	HomingModeLastPowerDown HomingMode = 5
)

// String returns the mode name.
func (m HomingMode) String() string {
	switch m {
	case HomingModeNearest:
		return "nearest"
	case HomingModeDirectional:
		return "directional"
	case HomingModeCollision:
		return "collision"
	case HomingModeLimitSwitch:
		return "limit_switch"
	case HomingModeAbsoluteZero:
		return "absolute_zero"
	case HomingModeLastPowerDown:
		return "last_power_down"
	default:
		return "unknown"
	}
}

// homingParametersSize is the wire size of the homing parameter record.
const homingParametersSize = 15

// HomingParameters configures the drive's homing procedure.
type HomingParameters struct {
	Mode      HomingMode
	Direction uint8 // 0 = CW, 1 = CCW

	// SpeedRPM is the homing speed.
	SpeedRPM uint16

	// TimeoutMs aborts the procedure on the drive after this many
	// milliseconds.
	TimeoutMs uint32

	// Collision detection thresholds (collision homing mode only).
	CollisionSpeedRPM  uint16
	CollisionCurrentMA uint16
	CollisionTimeMs    uint16

	// AutoHoming runs the procedure automatically at power-up.
	AutoHoming bool
}

// Validate checks field ranges before the record is sent to a drive.
func (p *HomingParameters) Validate() error {
	if p.Mode > HomingModeLimitSwitch {
		return &frame.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown homing mode %d", p.Mode)}
	}
	if p.Direction > 1 {
		return &frame.ValidationError{Field: "direction", Reason: "must be 0 (CW) or 1 (CCW)"}
	}
	return nil
}

// encode appends the 15-byte wire form.
func (p *HomingParameters) encode(buf []byte) []byte {
	buf = append(buf, byte(p.Mode), p.Direction)
	buf = frame.AppendUint16(buf, p.SpeedRPM)
	buf = frame.AppendUint32(buf, p.TimeoutMs)
	buf = frame.AppendUint16(buf, p.CollisionSpeedRPM)
	buf = frame.AppendUint16(buf, p.CollisionCurrentMA)
	buf = frame.AppendUint16(buf, p.CollisionTimeMs)
	if p.AutoHoming {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	return buf
}

// decodeHomingParameters parses the 15-byte homing parameter record.
func decodeHomingParameters(data []byte) (HomingParameters, error) {
	if len(data) != homingParametersSize {
		return HomingParameters{}, &frame.ProtocolError{Reason: fmt.Sprintf("homing parameter record is %d bytes, want %d", len(data), homingParametersSize)}
	}
	return HomingParameters{
		Mode:               HomingMode(data[0]),
		Direction:          data[1],
		SpeedRPM:           frame.Uint16(data, 2),
		TimeoutMs:          frame.Uint32(data, 4),
		CollisionSpeedRPM:  frame.Uint16(data, 8),
		CollisionCurrentMA: frame.Uint16(data, 10),
		CollisionTimeMs:    frame.Uint16(data, 12),
		AutoHoming:         data[14] != 0,
	}, nil
}

// driveParametersSize is the wire size of the drive configuration
// record (24 parameters in 32 bytes).
const driveParametersSize = 32

// validSubdivisions are the microstepping settings the drive accepts.
var validSubdivisions = map[uint16]struct{}{
	1: {}, 2: {}, 4: {}, 5: {}, 8: {}, 10: {}, 16: {}, 20: {}, 25: {},
	32: {}, 40: {}, 50: {}, 64: {}, 80: {}, 100: {}, 125: {}, 128: {},
	160: {}, 200: {}, 250: {}, 256: {},
}

// DriveParameters is the drive's full configuration record.
type DriveParameters struct {
	LockEnabled   bool
	ControlMode   uint8  // 0 = open loop, 1 = closed-loop FOC
	PulsePort     uint8
	SerialPort    uint8
	EnablePin     uint8
	Direction     uint8  // 0 = CW, 1 = CCW
	Subdivision   uint16 // 1-256; encoded as 0 on the wire for 256
	Interpolation bool
	AutoScreenOff bool
	LPFIntensity  uint8

	OpenLoopCurrentMA    uint16
	ClosedLoopMaxMA      uint16
	MaxSpeedRPM          uint16
	CurrentLoopBandwidth uint16

	UARTBaudCode      uint8 // vendor menu index 0-7
	CANBaudCode       uint8 // vendor menu index 0-7
	ChecksumMode      uint8
	ResponseMode      uint8
	PositionPrecision bool
	StallProtection   bool

	StallSpeedRPM  uint16
	StallCurrentMA uint16
	StallTimeMs    uint16

	// PositionWindow is the in-position threshold in tenths of a
	// degree.
	PositionWindow uint16
}

// Validate checks field ranges before the record is sent to a drive.
func (p *DriveParameters) Validate() error {
	if p.ControlMode > 1 {
		return &frame.ValidationError{Field: "control_mode", Reason: "must be 0 (open loop) or 1 (closed-loop FOC)"}
	}
	if p.PulsePort > 3 {
		return &frame.ValidationError{Field: "pulse_port", Reason: "must be 0-3"}
	}
	if p.SerialPort > 3 {
		return &frame.ValidationError{Field: "serial_port", Reason: "must be 0-3"}
	}
	if p.EnablePin > 2 {
		return &frame.ValidationError{Field: "enable_pin", Reason: "must be 0-2"}
	}
	if p.Direction > 1 {
		return &frame.ValidationError{Field: "direction", Reason: "must be 0 (CW) or 1 (CCW)"}
	}
	if _, ok := validSubdivisions[p.Subdivision]; !ok {
		return &frame.ValidationError{Field: "subdivision", Reason: fmt.Sprintf("%d is not a supported microstep setting", p.Subdivision)}
	}
	if p.UARTBaudCode > 7 {
		return &frame.ValidationError{Field: "uart_baud", Reason: "menu index must be 0-7"}
	}
	if p.CANBaudCode > 7 {
		return &frame.ValidationError{Field: "can_baud", Reason: "menu index must be 0-7"}
	}
	if p.ChecksumMode > 3 {
		return &frame.ValidationError{Field: "checksum_mode", Reason: "must be 0-3"}
	}
	return nil
}

// encode appends the 32-byte wire form.
func (p *DriveParameters) encode(buf []byte) []byte {
	buf = append(buf, boolByte(p.LockEnabled), p.ControlMode, p.PulsePort,
		p.SerialPort, p.EnablePin, p.Direction)

	// 256 microsteps are encoded as 0.
	sub := byte(p.Subdivision)
	if p.Subdivision == 256 {
		sub = 0
	}
	buf = append(buf, sub, boolByte(p.Interpolation), boolByte(p.AutoScreenOff), p.LPFIntensity)

	buf = frame.AppendUint16(buf, p.OpenLoopCurrentMA)
	buf = frame.AppendUint16(buf, p.ClosedLoopMaxMA)
	buf = frame.AppendUint16(buf, p.MaxSpeedRPM)
	buf = frame.AppendUint16(buf, p.CurrentLoopBandwidth)

	buf = append(buf, p.UARTBaudCode, p.CANBaudCode, p.ChecksumMode,
		p.ResponseMode, boolByte(p.PositionPrecision), boolByte(p.StallProtection))

	buf = frame.AppendUint16(buf, p.StallSpeedRPM)
	buf = frame.AppendUint16(buf, p.StallCurrentMA)
	buf = frame.AppendUint16(buf, p.StallTimeMs)
	buf = frame.AppendUint16(buf, p.PositionWindow)
	return buf
}

// decodeDriveParameters parses the drive configuration record. The read
// response prefixes the 32 parameter bytes with a two-byte header
// (total length, parameter count); the bare 32-byte form is accepted
// too.
func decodeDriveParameters(data []byte) (DriveParameters, error) {
	if len(data) >= driveParametersSize+2 && data[0] == 0x25 && data[1] == 0x18 {
		data = data[2 : 2+driveParametersSize]
	}
	if len(data) < driveParametersSize {
		return DriveParameters{}, &frame.ProtocolError{Reason: fmt.Sprintf("drive parameter record is %d bytes, want %d", len(data), driveParametersSize)}
	}

	sub := uint16(data[6])
	if sub == 0 {
		sub = 256
	}

	return DriveParameters{
		LockEnabled:   data[0] != 0,
		ControlMode:   data[1],
		PulsePort:     data[2],
		SerialPort:    data[3],
		EnablePin:     data[4],
		Direction:     data[5],
		Subdivision:   sub,
		Interpolation: data[7] != 0,
		AutoScreenOff: data[8] != 0,
		LPFIntensity:  data[9],

		OpenLoopCurrentMA:    frame.Uint16(data, 10),
		ClosedLoopMaxMA:      frame.Uint16(data, 12),
		MaxSpeedRPM:          frame.Uint16(data, 14),
		CurrentLoopBandwidth: frame.Uint16(data, 16),

		UARTBaudCode:      data[18],
		CANBaudCode:       data[19],
		ChecksumMode:      data[20],
		ResponseMode:      data[21],
		PositionPrecision: data[22] != 0,
		StallProtection:   data[23] != 0,

		StallSpeedRPM:  frame.Uint16(data, 24),
		StallCurrentMA: frame.Uint16(data, 26),
		StallTimeMs:    frame.Uint16(data, 28),
		PositionWindow: frame.Uint16(data, 30),
	}, nil
}

// systemStatusSize is the wire size of the composite status record.
const systemStatusSize = 32

// SystemStatus is the drive's composite status snapshot: one read that
// covers the common telemetry values plus both flag bytes.
type SystemStatus struct {
	BusVoltage   float64 // volts
	BusCurrent   float64 // amps
	PhaseCurrent float64 // amps

	EncoderRaw        uint16
	EncoderCalibrated uint16

	TargetPosition   float64 // degrees
	Speed            float64 // RPM
	RealtimePosition float64 // degrees
	PositionError    float64 // degrees

	Temperature float64 // degrees Celsius

	Homing HomingStatus
	Motor  MotorStatus
}

// decodeSystemStatus parses the 32-byte composite status record.
func decodeSystemStatus(data []byte) (SystemStatus, error) {
	if len(data) < systemStatusSize {
		return SystemStatus{}, &frame.ProtocolError{Reason: fmt.Sprintf("system status record is %d bytes, want %d", len(data), systemStatusSize)}
	}

	temp := float64(data[29])
	if data[28] == 0x01 {
		temp = -temp
	}

	return SystemStatus{
		BusVoltage:        float64(frame.Uint16(data, 0)) / 1000,
		BusCurrent:        float64(frame.Uint16(data, 2)) / 1000,
		PhaseCurrent:      float64(frame.Uint16(data, 4)) / 1000,
		EncoderRaw:        frame.Uint16(data, 6),
		EncoderCalibrated: frame.Uint16(data, 8),
		TargetPosition:    frame.WireToPosition(data[10], frame.Uint32(data, 11)),
		Speed:             frame.WireToSpeed(data[15], frame.Uint16(data, 16)),
		RealtimePosition:  frame.WireToPosition(data[18], frame.Uint32(data, 19)),
		PositionError:     frame.WireToPositionError(data[23], frame.Uint32(data, 24)),
		Temperature:       temp,
		Homing:            DecodeHomingStatus(data[30]),
		Motor:             DecodeMotorStatus(data[31]),
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
