package motor

import (
	"context"
	"fmt"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// ReadParameters reads live values and configuration from a drive.
// Reads are retried by the transport on timeout or checksum failure.
type ReadParameters interface {
	// Version reads the firmware and hardware revision.
	Version(ctx context.Context) (Version, error)

	// ResistanceInductance reads the measured phase resistance and
	// inductance.
	ResistanceInductance(ctx context.Context) (ResistanceInductance, error)

	// PID reads the loop gains.
	PID(ctx context.Context) (PIDParameters, error)

	// BusVoltage reads the supply voltage in volts.
	BusVoltage(ctx context.Context) (float64, error)

	// BusCurrent reads the supply current in amps.
	BusCurrent(ctx context.Context) (float64, error)

	// PhaseCurrent reads the winding current in amps.
	PhaseCurrent(ctx context.Context) (float64, error)

	// EncoderRaw reads the uncalibrated shaft angle in degrees.
	EncoderRaw(ctx context.Context) (float64, error)

	// EncoderCalibrated reads the calibrated shaft angle in degrees.
	EncoderCalibrated(ctx context.Context) (float64, error)

	// PulseCount reads the accumulated step count.
	PulseCount(ctx context.Context) (int64, error)

	// InputPulses reads the number of pulses received on the pulse
	// input.
	InputPulses(ctx context.Context) (int64, error)

	// TargetPosition reads the commanded angle in degrees.
	TargetPosition(ctx context.Context) (float64, error)

	// RealtimeTarget reads the interpolated setpoint angle in degrees.
	RealtimeTarget(ctx context.Context) (float64, error)

	// Speed reads the shaft speed in RPM.
	Speed(ctx context.Context) (float64, error)

	// Position reads the shaft angle in degrees.
	Position(ctx context.Context) (float64, error)

	// PositionError reads the deviation between target and shaft angle
	// in degrees.
	PositionError(ctx context.Context) (float64, error)

	// Temperature reads the drive temperature in degrees Celsius.
	Temperature(ctx context.Context) (float64, error)

	// MotorStatus reads the motor flag byte.
	MotorStatus(ctx context.Context) (MotorStatus, error)

	// DriveParameters reads the full configuration record and caches
	// it for the named-subset modify operations.
	DriveParameters(ctx context.Context) (DriveParameters, error)

	// SystemStatus reads the composite status snapshot.
	SystemStatus(ctx context.Context) (SystemStatus, error)
}

type readParameters struct {
	c *Controller
}

var _ ReadParameters = (*readParameters)(nil)

// readExact performs a read and checks the response data length.
func (r *readParameters) readExact(ctx context.Context, op string, cmd *frame.Command, want int) ([]byte, error) {
	data, err := r.c.read(ctx, op, cmd)
	if err != nil {
		return nil, err
	}
	if len(data) < want {
		return nil, r.c.opErr(op, &frame.ProtocolError{Reason: fmt.Sprintf("%s reply is %d bytes, want %d", op, len(data), want)})
	}
	return data, nil
}

func (r *readParameters) Version(ctx context.Context) (Version, error) {
	data, err := r.readExact(ctx, "read version", frame.NewCommand(frame.FuncReadVersion), 4)
	if err != nil {
		return Version{}, err
	}
	return Version{
		Firmware: frame.Uint16(data, 0),
		Hardware: frame.Uint16(data, 2),
	}, nil
}

func (r *readParameters) ResistanceInductance(ctx context.Context) (ResistanceInductance, error) {
	data, err := r.readExact(ctx, "read resistance/inductance", frame.NewCommand(frame.FuncReadResistanceInductance), 4)
	if err != nil {
		return ResistanceInductance{}, err
	}
	return ResistanceInductance{
		ResistanceMilliOhm: frame.Uint16(data, 0),
		InductanceMicroH:   frame.Uint16(data, 2),
	}, nil
}

func (r *readParameters) PID(ctx context.Context) (PIDParameters, error) {
	const op = "read PID"
	data, err := r.readExact(ctx, op, frame.NewCommand(frame.FuncReadPID), pidParametersSize)
	if err != nil {
		return PIDParameters{}, err
	}
	pid, err := decodePIDParameters(data)
	if err != nil {
		return PIDParameters{}, r.c.opErr(op, err)
	}
	return pid, nil
}

func (r *readParameters) BusVoltage(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read bus voltage", frame.NewCommand(frame.FuncReadBusVoltage), 2)
	if err != nil {
		return 0, err
	}
	return float64(frame.Uint16(data, 0)) / 1000, nil
}

func (r *readParameters) BusCurrent(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read bus current", frame.NewCommand(frame.FuncReadBusCurrent), 2)
	if err != nil {
		return 0, err
	}
	return float64(frame.Uint16(data, 0)) / 1000, nil
}

func (r *readParameters) PhaseCurrent(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read phase current", frame.NewCommand(frame.FuncReadPhaseCurrent), 2)
	if err != nil {
		return 0, err
	}
	return float64(frame.Uint16(data, 0)) / 1000, nil
}

func (r *readParameters) EncoderRaw(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read raw encoder", frame.NewCommand(frame.FuncReadEncoderRaw), 2)
	if err != nil {
		return 0, err
	}
	return frame.EncoderRawToDegrees(frame.Uint16(data, 0)), nil
}

func (r *readParameters) EncoderCalibrated(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read calibrated encoder", frame.NewCommand(frame.FuncReadEncoderCalibrated), 2)
	if err != nil {
		return 0, err
	}
	return frame.EncoderCalibratedToDegrees(frame.Uint16(data, 0)), nil
}

func (r *readParameters) PulseCount(ctx context.Context) (int64, error) {
	data, err := r.readExact(ctx, "read pulse count", frame.NewCommand(frame.FuncReadPulseCount), 5)
	if err != nil {
		return 0, err
	}
	return signedPulses(data), nil
}

func (r *readParameters) InputPulses(ctx context.Context) (int64, error) {
	data, err := r.readExact(ctx, "read input pulses", frame.NewCommand(frame.FuncReadInputPulses), 5)
	if err != nil {
		return 0, err
	}
	return signedPulses(data), nil
}

func (r *readParameters) TargetPosition(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read target position", frame.NewCommand(frame.FuncReadTargetPosition), 5)
	if err != nil {
		return 0, err
	}
	return frame.WireToPosition(data[0], frame.Uint32(data, 1)), nil
}

func (r *readParameters) RealtimeTarget(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read realtime target", frame.NewCommand(frame.FuncReadRealtimeTarget), 5)
	if err != nil {
		return 0, err
	}
	return frame.WireToPosition(data[0], frame.Uint32(data, 1)), nil
}

func (r *readParameters) Speed(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read speed", frame.NewCommand(frame.FuncReadRealtimeSpeed), 3)
	if err != nil {
		return 0, err
	}
	return frame.WireToSpeed(data[0], frame.Uint16(data, 1)), nil
}

func (r *readParameters) Position(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read position", frame.NewCommand(frame.FuncReadRealtimePosition), 5)
	if err != nil {
		return 0, err
	}
	return frame.WireToPosition(data[0], frame.Uint32(data, 1)), nil
}

func (r *readParameters) PositionError(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read position error", frame.NewCommand(frame.FuncReadPositionError), 5)
	if err != nil {
		return 0, err
	}
	return frame.WireToPositionError(data[0], frame.Uint32(data, 1)), nil
}

func (r *readParameters) Temperature(ctx context.Context) (float64, error) {
	data, err := r.readExact(ctx, "read temperature", frame.NewCommand(frame.FuncReadTemperature), 2)
	if err != nil {
		return 0, err
	}
	temp := float64(data[1])
	if data[0] == 0x01 {
		temp = -temp
	}
	return temp, nil
}

func (r *readParameters) MotorStatus(ctx context.Context) (MotorStatus, error) {
	data, err := r.readExact(ctx, "read motor status", frame.NewCommand(frame.FuncReadMotorStatus), 1)
	if err != nil {
		return MotorStatus{}, err
	}
	return DecodeMotorStatus(data[0]), nil
}

func (r *readParameters) DriveParameters(ctx context.Context) (DriveParameters, error) {
	const op = "read drive parameters"
	cmd := frame.NewCommand(frame.FuncReadDriveParams, frame.AuxReadDriveParams)
	data, err := r.c.read(ctx, op, cmd)
	if err != nil {
		return DriveParameters{}, err
	}
	params, err := decodeDriveParameters(data)
	if err != nil {
		return DriveParameters{}, r.c.opErr(op, err)
	}
	r.c.storeDriveParams(params)
	return params, nil
}

func (r *readParameters) SystemStatus(ctx context.Context) (SystemStatus, error) {
	const op = "read system status"
	cmd := frame.NewCommand(frame.FuncReadSystemStatus, frame.AuxReadSystemStatus)
	data, err := r.c.read(ctx, op, cmd)
	if err != nil {
		return SystemStatus{}, err
	}
	status, err := decodeSystemStatus(data)
	if err != nil {
		return SystemStatus{}, r.c.opErr(op, err)
	}
	return status, nil
}

// signedPulses decodes the sign byte and little-endian magnitude used
// by the pulse counters. The pulse counters are the only little-endian
// fields in the protocol.
func signedPulses(data []byte) int64 {
	mag := int64(data[4])<<24 | int64(data[3])<<16 | int64(data[2])<<8 | int64(data[1])
	if data[0] == 0x01 {
		return -mag
	}
	return mag
}
