package motor

import (
	"errors"
	"testing"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

func TestHomingParametersWireRoundTrip(t *testing.T) {
	in := HomingParameters{
		Mode:               HomingModeCollision,
		Direction:          1,
		SpeedRPM:           60,
		TimeoutMs:          15000,
		CollisionSpeedRPM:  250,
		CollisionCurrentMA: 900,
		CollisionTimeMs:    80,
		AutoHoming:         true,
	}
	wire := in.encode(nil)
	if len(wire) != homingParametersSize {
		t.Fatalf("encoded length = %d, want %d", len(wire), homingParametersSize)
	}

	got, err := decodeHomingParameters(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestHomingParametersValidate(t *testing.T) {
	p := HomingParameters{Mode: 7}
	var verr *frame.ValidationError
	if err := p.Validate(); !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *frame.ValidationError", err)
	}
}

func TestDriveParametersDecodePrefixed(t *testing.T) {
	// The read response carries a two-byte header before the record.
	raw := make([]byte, 0, driveParametersSize+2)
	raw = append(raw, 0x25, 0x18)
	record := DriveParameters{
		ControlMode:          1,
		Subdivision:          256,
		Interpolation:        true,
		LPFIntensity:         4,
		OpenLoopCurrentMA:    1000,
		ClosedLoopMaxMA:      3000,
		MaxSpeedRPM:          3000,
		CurrentLoopBandwidth: 1000,
		UARTBaudCode:         5,
		CANBaudCode:          7,
		ResponseMode:         1,
		StallProtection:      true,
		StallSpeedRPM:        40,
		StallCurrentMA:       2400,
		StallTimeMs:          4000,
		PositionWindow:       1,
	}
	raw = record.encode(raw)

	got, err := decodeDriveParameters(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != record {
		t.Errorf("decode = %+v, want %+v", got, record)
	}
}

func TestDriveParametersSubdivision256EncodesAsZero(t *testing.T) {
	p := DriveParameters{Subdivision: 256}
	wire := p.encode(nil)
	if wire[6] != 0 {
		t.Errorf("wire[6] = %d, want 0 for 256 microsteps", wire[6])
	}

	got, err := decodeDriveParameters(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Subdivision != 256 {
		t.Errorf("Subdivision = %d, want 256", got.Subdivision)
	}
}

func TestDriveParametersValidate(t *testing.T) {
	valid := DriveParameters{ControlMode: 1, Subdivision: 16, CANBaudCode: 7}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*DriveParameters)
	}{
		{"control mode", func(p *DriveParameters) { p.ControlMode = 2 }},
		{"subdivision", func(p *DriveParameters) { p.Subdivision = 3 }},
		{"uart baud", func(p *DriveParameters) { p.UARTBaudCode = 8 }},
		{"can baud", func(p *DriveParameters) { p.CANBaudCode = 8 }},
		{"direction", func(p *DriveParameters) { p.Direction = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDecodeSystemStatus(t *testing.T) {
	raw := make([]byte, 0, systemStatusSize)
	raw = frame.AppendUint16(raw, 24150) // 24.15 V
	raw = frame.AppendUint16(raw, 430)   // 0.43 A bus
	raw = frame.AppendUint16(raw, 1210)  // 1.21 A phase
	raw = frame.AppendUint16(raw, 8192)  // raw encoder, half turn
	raw = frame.AppendUint16(raw, 32768) // calibrated encoder, half turn
	raw = append(raw, 0x00)
	raw = frame.AppendUint32(raw, 1800) // target 180.0 degrees
	raw = append(raw, 0x01)
	raw = frame.AppendUint16(raw, 155) // speed -15.5 RPM
	raw = append(raw, 0x00)
	raw = frame.AppendUint32(raw, 1795) // position 179.5 degrees
	raw = append(raw, 0x00)
	raw = frame.AppendUint32(raw, 50) // error 0.5 degrees
	raw = append(raw, 0x01, 12)       // -12 C
	raw = append(raw, 0x03, 0x03)     // homing ready, enabled + in position

	got, err := decodeSystemStatus(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.BusVoltage != 24.15 {
		t.Errorf("BusVoltage = %v, want 24.15", got.BusVoltage)
	}
	if got.TargetPosition != 180.0 {
		t.Errorf("TargetPosition = %v, want 180", got.TargetPosition)
	}
	if got.Speed != -15.5 {
		t.Errorf("Speed = %v, want -15.5", got.Speed)
	}
	if got.RealtimePosition != 179.5 {
		t.Errorf("RealtimePosition = %v, want 179.5", got.RealtimePosition)
	}
	if got.PositionError != 0.5 {
		t.Errorf("PositionError = %v, want 0.5", got.PositionError)
	}
	if got.Temperature != -12 {
		t.Errorf("Temperature = %v, want -12", got.Temperature)
	}
	if !got.Motor.Enabled || !got.Motor.InPosition {
		t.Errorf("Motor = %+v, want enabled and in position", got.Motor)
	}
	if !got.Homing.EncoderReady || got.Homing.InProgress {
		t.Errorf("Homing = %+v, want encoder ready and not in progress", got.Homing)
	}

	if _, err := decodeSystemStatus(raw[:20]); err == nil {
		t.Error("short record should fail to decode")
	}
}

func TestDecodePIDParameters(t *testing.T) {
	in := PIDParameters{
		TrapezoidPositionKp: 62000,
		DirectPositionKp:    25000,
		SpeedKp:             62000,
		SpeedKi:             100,
	}
	got, err := decodePIDParameters(in.encode(nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}
