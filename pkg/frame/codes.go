package frame

// MotorAddress identifies a drive on the bus. Address 0 is reserved for
// the broadcast/group address used by the synchronized-motion trigger.
type MotorAddress uint8

// BroadcastAddress is the reserved group address. Commands sent to it are
// fire-and-forget; no device responds.
const BroadcastAddress MotorAddress = 0

// IsBroadcast reports whether the address is the broadcast/group address.
func (a MotorAddress) IsBroadcast() bool { return a == BroadcastAddress }

// CANID returns the base CAN identifier for this address. Continuation
// packets of a multi-packet command use CANID()+1, CANID()+2, ...
func (a MotorAddress) CANID() uint32 { return uint32(a) << 8 }

// FunctionCode identifies a drive command.
//
// The byte values below match the vendor's default protocol table.
type FunctionCode uint8

// Control commands.
const (
	FuncEnable            FunctionCode = 0xF3
	FuncTorqueMode        FunctionCode = 0xF5
	FuncSpeedMode         FunctionCode = 0xF6
	FuncPositionDirect    FunctionCode = 0xFB
	FuncPositionTrapezoid FunctionCode = 0xFD
	FuncStop              FunctionCode = 0xFE
	FuncSyncMotion        FunctionCode = 0xFF
)

// Homing commands.
const (
	FuncSetZeroPosition    FunctionCode = 0x93
	FuncTriggerHoming      FunctionCode = 0x9A
	FuncAbortHoming        FunctionCode = 0x9C
	FuncReadHomingParams   FunctionCode = 0x22
	FuncModifyHomingParams FunctionCode = 0x4C
	FuncReadHomingStatus   FunctionCode = 0x3B
)

// One-shot trigger commands.
const (
	FuncCalibrateEncoder       FunctionCode = 0x06
	FuncClearPosition          FunctionCode = 0x0A
	FuncReleaseStallProtection FunctionCode = 0x0E
	FuncFactoryReset           FunctionCode = 0x0F
)

// Parameter read commands.
const (
	FuncReadVersion               FunctionCode = 0x1F
	FuncReadResistanceInductance  FunctionCode = 0x20
	FuncReadPID                   FunctionCode = 0x21
	FuncReadBusVoltage            FunctionCode = 0x24
	FuncReadBusCurrent            FunctionCode = 0x26
	FuncReadPhaseCurrent          FunctionCode = 0x27
	FuncReadEncoderRaw            FunctionCode = 0x29
	FuncReadPulseCount            FunctionCode = 0x30
	FuncReadEncoderCalibrated     FunctionCode = 0x31
	FuncReadInputPulses           FunctionCode = 0x32
	FuncReadTargetPosition        FunctionCode = 0x33
	FuncReadRealtimeTarget        FunctionCode = 0x34
	FuncReadRealtimeSpeed         FunctionCode = 0x35
	FuncReadRealtimePosition      FunctionCode = 0x36
	FuncReadPositionError         FunctionCode = 0x37
	FuncReadTemperature           FunctionCode = 0x39
	FuncReadMotorStatus           FunctionCode = 0x3A
	FuncReadDriveParams           FunctionCode = 0x42
	FuncReadSystemStatus          FunctionCode = 0x43
)

// Parameter modify commands.
const (
	FuncModifyDriveParams  FunctionCode = 0x48
	FuncModifyPID          FunctionCode = 0x4A
	FuncModifySubdivision  FunctionCode = 0x84
	FuncModifyMotorAddress FunctionCode = 0xAE
)

// Aux codes are fixed second bytes that guard destructive or stateful
// commands against corrupted frames being interpreted as commands.
const (
	AuxEnable            byte = 0xAB
	AuxStop              byte = 0x98
	AuxSyncMotion        byte = 0x66
	AuxSetZeroPosition   byte = 0x88
	AuxAbortHoming       byte = 0x48
	AuxModifyHoming      byte = 0xAE
	AuxCalibrateEncoder  byte = 0x45
	AuxClearPosition     byte = 0x6D
	AuxReleaseStall      byte = 0x52
	AuxFactoryReset      byte = 0x5F
	AuxReadDriveParams   byte = 0x6C
	AuxReadSystemStatus  byte = 0x7A
	AuxModifyDriveParams byte = 0xD1
	AuxModifyPID         byte = 0xC3
	AuxModifySubdivision byte = 0x8A
	AuxModifyAddress     byte = 0x4B
)

// Device response status bytes.
const (
	// StatusSuccess acknowledges a successfully executed command.
	StatusSuccess byte = 0x02


	// StatusCommandError is returned as "00 EE <checksum>" when the device
	// does not recognize a command.
	StatusCommandError byte = 0xEE

	// StatusConditionNotMet is returned when the device rejects a valid
	// command because of its current state (disabled, stalled, homing).
	StatusConditionNotMet byte = 0xE2
)

// validCodes is the set of function codes this stack understands.
var validCodes = map[FunctionCode]struct{}{
	FuncEnable: {}, FuncTorqueMode: {}, FuncSpeedMode: {},
	FuncPositionDirect: {}, FuncPositionTrapezoid: {}, FuncStop: {},
	FuncSyncMotion: {},
	FuncSetZeroPosition: {}, FuncTriggerHoming: {}, FuncAbortHoming: {},
	FuncReadHomingParams: {}, FuncModifyHomingParams: {}, FuncReadHomingStatus: {},
	FuncCalibrateEncoder: {}, FuncClearPosition: {},
	FuncReleaseStallProtection: {}, FuncFactoryReset: {},
	FuncReadVersion: {}, FuncReadResistanceInductance: {}, FuncReadPID: {},
	FuncReadBusVoltage: {}, FuncReadBusCurrent: {}, FuncReadPhaseCurrent: {},
	FuncReadEncoderRaw: {}, FuncReadPulseCount: {}, FuncReadEncoderCalibrated: {},
	FuncReadInputPulses: {}, FuncReadTargetPosition: {}, FuncReadRealtimeTarget: {},
	FuncReadRealtimeSpeed: {}, FuncReadRealtimePosition: {}, FuncReadPositionError: {},
	FuncReadTemperature: {}, FuncReadMotorStatus: {}, FuncReadDriveParams: {},
	FuncReadSystemStatus: {},
	FuncModifyDriveParams: {}, FuncModifyPID: {}, FuncModifySubdivision: {},
	FuncModifyMotorAddress: {},
}

// IsValid reports whether the function code is part of the protocol table.
func (f FunctionCode) IsValid() bool {
	_, ok := validCodes[f]
	return ok
}

// IsRead reports whether the command is a parameter/status read.
// Reads are idempotent and safe to retry after a transport timeout.
func (f FunctionCode) IsRead() bool {
	switch f {
	case FuncReadVersion, FuncReadResistanceInductance, FuncReadPID,
		FuncReadBusVoltage, FuncReadBusCurrent, FuncReadPhaseCurrent,
		FuncReadEncoderRaw, FuncReadPulseCount, FuncReadEncoderCalibrated,
		FuncReadInputPulses, FuncReadTargetPosition, FuncReadRealtimeTarget,
		FuncReadRealtimeSpeed, FuncReadRealtimePosition, FuncReadPositionError,
		FuncReadTemperature, FuncReadMotorStatus, FuncReadDriveParams,
		FuncReadSystemStatus, FuncReadHomingParams, FuncReadHomingStatus:
		return true
	default:
		return false
	}
}

// String returns the function code name.
func (f FunctionCode) String() string {
	switch f {
	case FuncEnable:
		return "ENABLE"
	case FuncTorqueMode:
		return "TORQUE_MODE"
	case FuncSpeedMode:
		return "SPEED_MODE"
	case FuncPositionDirect:
		return "POSITION_DIRECT"
	case FuncPositionTrapezoid:
		return "POSITION_TRAPEZOID"
	case FuncStop:
		return "STOP"
	case FuncSyncMotion:
		return "SYNC_MOTION"
	case FuncSetZeroPosition:
		return "SET_ZERO_POSITION"
	case FuncTriggerHoming:
		return "TRIGGER_HOMING"
	case FuncAbortHoming:
		return "ABORT_HOMING"
	case FuncReadHomingParams:
		return "READ_HOMING_PARAMS"
	case FuncModifyHomingParams:
		return "MODIFY_HOMING_PARAMS"
	case FuncReadHomingStatus:
		return "READ_HOMING_STATUS"
	case FuncCalibrateEncoder:
		return "CALIBRATE_ENCODER"
	case FuncClearPosition:
		return "CLEAR_POSITION"
	case FuncReleaseStallProtection:
		return "RELEASE_STALL_PROTECTION"
	case FuncFactoryReset:
		return "FACTORY_RESET"
	case FuncReadVersion:
		return "READ_VERSION"
	case FuncReadResistanceInductance:
		return "READ_RESISTANCE_INDUCTANCE"
	case FuncReadPID:
		return "READ_PID"
	case FuncReadBusVoltage:
		return "READ_BUS_VOLTAGE"
	case FuncReadBusCurrent:
		return "READ_BUS_CURRENT"
	case FuncReadPhaseCurrent:
		return "READ_PHASE_CURRENT"
	case FuncReadEncoderRaw:
		return "READ_ENCODER_RAW"
	case FuncReadPulseCount:
		return "READ_PULSE_COUNT"
	case FuncReadEncoderCalibrated:
		return "READ_ENCODER_CALIBRATED"
	case FuncReadInputPulses:
		return "READ_INPUT_PULSES"
	case FuncReadTargetPosition:
		return "READ_TARGET_POSITION"
	case FuncReadRealtimeTarget:
		return "READ_REALTIME_TARGET"
	case FuncReadRealtimeSpeed:
		return "READ_REALTIME_SPEED"
	case FuncReadRealtimePosition:
		return "READ_REALTIME_POSITION"
	case FuncReadPositionError:
		return "READ_POSITION_ERROR"
	case FuncReadTemperature:
		return "READ_TEMPERATURE"
	case FuncReadMotorStatus:
		return "READ_MOTOR_STATUS"
	case FuncReadDriveParams:
		return "READ_DRIVE_PARAMS"
	case FuncReadSystemStatus:
		return "READ_SYSTEM_STATUS"
	case FuncModifyDriveParams:
		return "MODIFY_DRIVE_PARAMS"
	case FuncModifyPID:
		return "MODIFY_PID"
	case FuncModifySubdivision:
		return "MODIFY_SUBDIVISION"
	case FuncModifyMotorAddress:
		return "MODIFY_MOTOR_ADDRESS"
	default:
		return "UNKNOWN"
	}
}
