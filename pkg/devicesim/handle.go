package devicesim

import (
	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// Acknowledgement status bytes.
var (
	ackSuccess         = []byte{frame.StatusSuccess}
	ackConditionNotMet = []byte{frame.StatusConditionNotMet}
)

// commandLengths gives the expected parameter length for every
// function code, so the simulator knows when a multi-packet command is
// complete. The length excludes function code and checksum.
var commandLengths = map[frame.FunctionCode]int{
	frame.FuncEnable:            3,
	frame.FuncTorqueMode:        6,
	frame.FuncSpeedMode:         6,
	frame.FuncPositionDirect:    9,
	frame.FuncPositionTrapezoid: 13,
	frame.FuncStop:              2,
	frame.FuncSyncMotion:        1,

	frame.FuncSetZeroPosition:    2,
	frame.FuncTriggerHoming:      2,
	frame.FuncAbortHoming:        1,
	frame.FuncReadHomingParams:   0,
	frame.FuncModifyHomingParams: 17,
	frame.FuncReadHomingStatus:   0,

	frame.FuncCalibrateEncoder:       1,
	frame.FuncClearPosition:          1,
	frame.FuncReleaseStallProtection: 1,
	frame.FuncFactoryReset:           1,

	frame.FuncReadVersion:              0,
	frame.FuncReadResistanceInductance: 0,
	frame.FuncReadPID:                  0,
	frame.FuncReadBusVoltage:           0,
	frame.FuncReadBusCurrent:           0,
	frame.FuncReadPhaseCurrent:         0,
	frame.FuncReadEncoderRaw:           0,
	frame.FuncReadPulseCount:           0,
	frame.FuncReadEncoderCalibrated:    0,
	frame.FuncReadInputPulses:          0,
	frame.FuncReadTargetPosition:       0,
	frame.FuncReadRealtimeTarget:       0,
	frame.FuncReadRealtimeSpeed:        0,
	frame.FuncReadRealtimePosition:     0,
	frame.FuncReadPositionError:        0,
	frame.FuncReadTemperature:          0,
	frame.FuncReadMotorStatus:          0,
	frame.FuncReadDriveParams:          1,
	frame.FuncReadSystemStatus:         1,

	frame.FuncModifyDriveParams:  34,
	frame.FuncModifyPID:          18,
	frame.FuncModifySubdivision:  3,
	frame.FuncModifyMotorAddress: 3,
}

// handle executes one command against the drive. The returned data is
// the response payload between function code echo and checksum; ok is
// false when the drive would answer with its generic rejection.
func (m *Motor) handle(fn frame.FunctionCode, args []byte, homingPolls int) (data []byte, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want, known := commandLengths[fn]
	if !known || len(args) != want {
		return nil, false
	}

	switch fn {
	case frame.FuncEnable:
		if args[0] != frame.AuxEnable {
			return nil, false
		}
		return m.deferrable(args[2], func() {
			m.enabled = args[1] != 0
			if !m.enabled {
				m.speedRPM = 0
			}
		}), true

	case frame.FuncTorqueMode:
		if !m.enabled || m.stalled {
			return ackConditionNotMet, true
		}
		return m.deferrable(args[5], func() {
			m.phaseCurrentMA = frame.Uint16(args, 3)
		}), true

	case frame.FuncSpeedMode:
		if !m.enabled || m.stalled {
			return ackConditionNotMet, true
		}
		rpm := frame.WireToSpeed(args[0], frame.Uint16(args, 3))
		return m.deferrable(args[5], func() {
			m.speedRPM = rpm
			m.inPosition = false
		}), true

	case frame.FuncPositionDirect:
		if !m.enabled || m.stalled {
			return ackConditionNotMet, true
		}
		target := frame.WireToPosition(args[0], frame.Uint32(args, 3))
		absolute := args[7] != 0
		return m.deferrable(args[8], func() { m.moveTo(target, absolute) }), true

	case frame.FuncPositionTrapezoid:
		if !m.enabled || m.stalled {
			return ackConditionNotMet, true
		}
		target := frame.WireToPosition(args[0], frame.Uint32(args, 7))
		absolute := args[11] != 0
		return m.deferrable(args[12], func() { m.moveTo(target, absolute) }), true

	case frame.FuncStop:
		if args[0] != frame.AuxStop {
			return nil, false
		}
		return m.deferrable(args[1], func() {
			m.speedRPM = 0
			m.inPosition = true
		}), true

	case frame.FuncSetZeroPosition:
		if args[0] != frame.AuxSetZeroPosition {
			return nil, false
		}
		m.positionDeg = 0
		m.targetDeg = 0
		return ackSuccess, true

	case frame.FuncTriggerHoming:
		mode := args[0]
		if mode > 5 {
			return nil, false
		}
		if !m.encoderReady {
			return ackConditionNotMet, true
		}
		return m.deferrable(args[1], func() {
			m.homingActive = true
			m.homingPollsLeft = homingPolls
		}), true

	case frame.FuncAbortHoming:
		if args[0] != frame.AuxAbortHoming {
			return nil, false
		}
		m.homingActive = false
		m.homingPollsLeft = 0
		return ackSuccess, true

	case frame.FuncReadHomingParams:
		return m.homingParams[:], true

	case frame.FuncModifyHomingParams:
		if args[0] != frame.AuxModifyHoming {
			return nil, false
		}
		copy(m.homingParams[:], args[2:])
		if args[1] != 0 {
			m.savedHoming = m.homingParams
		}
		return ackSuccess, true

	case frame.FuncReadHomingStatus:
		return []byte{m.homingFlags()}, true

	case frame.FuncCalibrateEncoder:
		if args[0] != frame.AuxCalibrateEncoder {
			return nil, false
		}
		if m.speedRPM != 0 || m.homingActive {
			return ackConditionNotMet, true
		}
		m.calibrationReady = true
		return ackSuccess, true

	case frame.FuncClearPosition:
		if args[0] != frame.AuxClearPosition {
			return nil, false
		}
		m.positionDeg = 0
		m.targetDeg = 0
		m.pulseCount = 0
		return ackSuccess, true

	case frame.FuncReleaseStallProtection:
		if args[0] != frame.AuxReleaseStall {
			return nil, false
		}
		if !m.stalled {
			return ackConditionNotMet, true
		}
		m.stalled = false
		return ackSuccess, true

	case frame.FuncFactoryReset:
		if args[0] != frame.AuxFactoryReset {
			return nil, false
		}
		if m.speedRPM != 0 {
			return ackConditionNotMet, true
		}
		m.driveParams = factoryDriveParams
		m.savedDrive = factoryDriveParams
		m.homingParams = factoryHomingParams
		m.savedHoming = factoryHomingParams
		m.pid = factoryPID
		m.savedPID = factoryPID
		m.enabled = false
		return ackSuccess, true

	case frame.FuncReadVersion:
		var out []byte
		out = frame.AppendUint16(out, m.firmware)
		return frame.AppendUint16(out, m.hardware), true

	case frame.FuncReadResistanceInductance:
		var out []byte
		out = frame.AppendUint16(out, m.resistance)
		return frame.AppendUint16(out, m.inductance), true

	case frame.FuncReadPID:
		return m.pid[:], true

	case frame.FuncReadBusVoltage:
		return frame.AppendUint16(nil, m.voltageMV), true

	case frame.FuncReadBusCurrent:
		return frame.AppendUint16(nil, m.busCurrentMA), true

	case frame.FuncReadPhaseCurrent:
		return frame.AppendUint16(nil, m.phaseCurrentMA), true

	case frame.FuncReadEncoderRaw:
		return frame.AppendUint16(nil, m.encoderRaw()), true

	case frame.FuncReadEncoderCalibrated:
		return frame.AppendUint16(nil, m.encoderCalibrated()), true

	case frame.FuncReadPulseCount:
		return signedPulseWire(m.pulseCount), true

	case frame.FuncReadInputPulses:
		return signedPulseWire(m.inputPulses), true

	case frame.FuncReadTargetPosition:
		return signedWire(m.targetDeg, frame.PositionScale), true

	case frame.FuncReadRealtimeTarget:
		return signedWire(m.targetDeg, frame.PositionScale), true

	case frame.FuncReadRealtimeSpeed:
		return signedSpeedWire(m.speedRPM), true

	case frame.FuncReadRealtimePosition:
		return signedWire(m.positionDeg, frame.PositionScale), true

	case frame.FuncReadPositionError:
		return signedWire(m.targetDeg-m.positionDeg, frame.PositionErrorScale), true

	case frame.FuncReadTemperature:
		return signedTemperatureWire(m.temperatureC), true

	case frame.FuncReadMotorStatus:
		return []byte{m.motorFlags()}, true

	case frame.FuncReadDriveParams:
		if args[0] != frame.AuxReadDriveParams {
			return nil, false
		}
		out := []byte{0x25, 0x18}
		return append(out, m.driveParams[:]...), true

	case frame.FuncReadSystemStatus:
		if args[0] != frame.AuxReadSystemStatus {
			return nil, false
		}
		return m.systemStatus(), true

	case frame.FuncModifyDriveParams:
		if args[0] != frame.AuxModifyDriveParams {
			return nil, false
		}
		copy(m.driveParams[:], args[2:])
		if args[1] != 0 {
			m.savedDrive = m.driveParams
		}
		return ackSuccess, true

	case frame.FuncModifyPID:
		if args[0] != frame.AuxModifyPID {
			return nil, false
		}
		copy(m.pid[:], args[2:])
		if args[1] != 0 {
			m.savedPID = m.pid
		}
		return ackSuccess, true

	case frame.FuncModifySubdivision:
		if args[0] != frame.AuxModifySubdivision {
			return nil, false
		}
		m.driveParams[6] = args[2]
		if args[1] != 0 {
			m.savedDrive = m.driveParams
		}
		return ackSuccess, true

	case frame.FuncModifyMotorAddress:
		if args[0] != frame.AuxModifyAddress || args[2] == 0 {
			return nil, false
		}
		// The simulator rekeys the motor map after this ack.
		return ackSuccess, true
	}

	return nil, false
}

// deferrable applies now or buffers until the sync broadcast.
func (m *Motor) deferrable(syncFlag byte, apply func()) []byte {
	if syncFlag != 0 {
		m.deferred = append(m.deferred, apply)
	} else {
		apply()
	}
	return ackSuccess
}

// runDeferred executes and clears the buffered deferred commands.
func (m *Motor) runDeferred() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apply := range m.deferred {
		apply()
	}
	m.deferred = nil
}

func (m *Motor) moveTo(target float64, absolute bool) {
	if !absolute {
		target = m.positionDeg + target
	}
	m.targetDeg = target
	m.positionDeg = target
	m.inPosition = true
	m.pulseCount += int64(target * 10)
}

func (m *Motor) encoderRaw() uint16 {
	deg := normalizeAngle(m.positionDeg)
	return uint16(deg / 360.0 * frame.EncoderRawRange)
}

func (m *Motor) encoderCalibrated() uint16 {
	deg := normalizeAngle(m.positionDeg)
	return uint16(deg / 360.0 * frame.EncoderCalibratedRange)
}

// systemStatus builds the 32-byte composite status record.
func (m *Motor) systemStatus() []byte {
	out := make([]byte, 0, 32)
	out = frame.AppendUint16(out, m.voltageMV)
	out = frame.AppendUint16(out, m.busCurrentMA)
	out = frame.AppendUint16(out, m.phaseCurrentMA)
	out = frame.AppendUint16(out, m.encoderRaw())
	out = frame.AppendUint16(out, m.encoderCalibrated())
	out = append(out, signedWire(m.targetDeg, frame.PositionScale)...)
	out = append(out, signedSpeedWire(m.speedRPM)...)
	out = append(out, signedWire(m.positionDeg, frame.PositionScale)...)
	out = append(out, signedWire(m.targetDeg-m.positionDeg, frame.PositionErrorScale)...)
	out = append(out, signedTemperatureWire(m.temperatureC)...)
	out = append(out, m.homingFlags(), m.motorFlags())
	return out
}

func signedSpeedWire(rpm float64) []byte {
	sign := byte(0x00)
	if rpm < 0 {
		sign = 0x01
		rpm = -rpm
	}
	return frame.AppendUint16([]byte{sign}, uint16(rpm*frame.SpeedScale+0.5))
}

func signedTemperatureWire(c float64) []byte {
	sign := byte(0x00)
	if c < 0 {
		sign = 0x01
		c = -c
	}
	return []byte{sign, byte(c)}
}

func normalizeAngle(deg float64) float64 {
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}
