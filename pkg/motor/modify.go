package motor

import (
	"context"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// ModifyParameters writes configuration to a drive. The save flag
// persists the change to the drive's flash; without it the change is
// lost at power-off.
//
// The named-subset operations (ControlMode, CurrentLimits, SpeedLimit,
// StallProtection, CommunicationSettings) patch the full configuration
// record: they start from the cached record when a prior read
// populated it, otherwise they read the record first.
type ModifyParameters interface {
	// ControlMode switches between open loop (0) and closed-loop FOC
	// (1).
	ControlMode(ctx context.Context, mode uint8, save bool) error

	// CurrentLimits sets the open-loop current and the closed-loop
	// current ceiling in mA.
	CurrentLimits(ctx context.Context, openLoopMA, closedLoopMaxMA uint16, save bool) error

	// SpeedLimit caps the commanded speed in RPM. 0 disables the cap.
	SpeedLimit(ctx context.Context, maxRPM uint16, save bool) error

	// StallProtection configures the stall detector.
	StallProtection(ctx context.Context, enabled bool, speedRPM, currentMA, timeMs uint16, save bool) error

	// CommunicationSettings sets the serial and CAN baud menu indexes,
	// the checksum mode and the response mode.
	CommunicationSettings(ctx context.Context, uartBaud, canBaud, checksumMode, responseMode uint8, save bool) error

	// DriveParameters writes the full configuration record.
	DriveParameters(ctx context.Context, params DriveParameters, save bool) error

	// PIDParameters writes the loop gains.
	PIDParameters(ctx context.Context, pid PIDParameters, save bool) error

	// Subdivision sets the microstep resolution.
	Subdivision(ctx context.Context, subdivision uint16, save bool) error

	// MotorAddress assigns a new bus address. On success the
	// controller follows the drive to the new address.
	MotorAddress(ctx context.Context, addr frame.MotorAddress, save bool) error
}

type modifyParameters struct {
	c *Controller
}

var _ ModifyParameters = (*modifyParameters)(nil)

func (m *modifyParameters) ControlMode(ctx context.Context, mode uint8, save bool) error {
	return m.patch(ctx, "modify control mode", save, func(p *DriveParameters) {
		p.ControlMode = mode
	})
}

func (m *modifyParameters) CurrentLimits(ctx context.Context, openLoopMA, closedLoopMaxMA uint16, save bool) error {
	return m.patch(ctx, "modify current limits", save, func(p *DriveParameters) {
		p.OpenLoopCurrentMA = openLoopMA
		p.ClosedLoopMaxMA = closedLoopMaxMA
	})
}

func (m *modifyParameters) SpeedLimit(ctx context.Context, maxRPM uint16, save bool) error {
	return m.patch(ctx, "modify speed limit", save, func(p *DriveParameters) {
		p.MaxSpeedRPM = maxRPM
	})
}

func (m *modifyParameters) StallProtection(ctx context.Context, enabled bool, speedRPM, currentMA, timeMs uint16, save bool) error {
	return m.patch(ctx, "modify stall protection", save, func(p *DriveParameters) {
		p.StallProtection = enabled
		p.StallSpeedRPM = speedRPM
		p.StallCurrentMA = currentMA
		p.StallTimeMs = timeMs
	})
}

func (m *modifyParameters) CommunicationSettings(ctx context.Context, uartBaud, canBaud, checksumMode, responseMode uint8, save bool) error {
	return m.patch(ctx, "modify communication settings", save, func(p *DriveParameters) {
		p.UARTBaudCode = uartBaud
		p.CANBaudCode = canBaud
		p.ChecksumMode = checksumMode
		p.ResponseMode = responseMode
	})
}

func (m *modifyParameters) DriveParameters(ctx context.Context, params DriveParameters, save bool) error {
	const op = "modify drive parameters"
	if err := params.Validate(); err != nil {
		return m.c.opErr(op, err)
	}

	payload := []byte{frame.AuxModifyDriveParams, boolByte(save)}
	payload = params.encode(payload)

	if err := m.c.command(ctx, op, frame.NewCommand(frame.FuncModifyDriveParams, payload...)); err != nil {
		return err
	}
	m.c.storeDriveParams(params)
	return nil
}

func (m *modifyParameters) PIDParameters(ctx context.Context, pid PIDParameters, save bool) error {
	payload := []byte{frame.AuxModifyPID, boolByte(save)}
	payload = pid.encode(payload)
	return m.c.command(ctx, "modify PID", frame.NewCommand(frame.FuncModifyPID, payload...))
}

func (m *modifyParameters) Subdivision(ctx context.Context, subdivision uint16, save bool) error {
	const op = "modify subdivision"
	if _, ok := validSubdivisions[subdivision]; !ok {
		return m.c.opErr(op, &frame.ValidationError{Field: "subdivision", Reason: "unsupported microstep setting"})
	}
	// 256 microsteps are encoded as 0.
	value := byte(subdivision)
	if subdivision == 256 {
		value = 0
	}

	cmd := frame.NewCommand(frame.FuncModifySubdivision, frame.AuxModifySubdivision, boolByte(save), value)
	if err := m.c.command(ctx, op, cmd); err != nil {
		return err
	}
	if cached, ok := m.c.cachedDriveParams(); ok {
		cached.Subdivision = subdivision
		m.c.storeDriveParams(cached)
	}
	return nil
}

func (m *modifyParameters) MotorAddress(ctx context.Context, addr frame.MotorAddress, save bool) error {
	const op = "modify motor address"
	if addr == frame.BroadcastAddress {
		return m.c.opErr(op, &frame.ValidationError{Field: "address", Reason: "cannot assign the broadcast address"})
	}

	cmd := frame.NewCommand(frame.FuncModifyMotorAddress, frame.AuxModifyAddress, boolByte(save), byte(addr))
	if err := m.c.command(ctx, op, cmd); err != nil {
		return err
	}
	m.c.setAddress(addr)
	return nil
}

// patch applies a read-modify-write of the full configuration record.
func (m *modifyParameters) patch(ctx context.Context, op string, save bool, mutate func(*DriveParameters)) error {
	params, ok := m.c.cachedDriveParams()
	if !ok {
		var err error
		params, err = m.c.Read().DriveParameters(ctx)
		if err != nil {
			return err
		}
	}
	mutate(&params)

	if err := params.Validate(); err != nil {
		return m.c.opErr(op, err)
	}

	payload := []byte{frame.AuxModifyDriveParams, boolByte(save)}
	payload = params.encode(payload)

	if err := m.c.command(ctx, op, frame.NewCommand(frame.FuncModifyDriveParams, payload...)); err != nil {
		return err
	}
	m.c.storeDriveParams(params)
	return nil
}
