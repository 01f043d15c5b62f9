package frame

import "fmt"

// Fixed-point wire scales.
const (
	// SpeedScale converts RPM to the drive's tenth-of-RPM wire unit.
	SpeedScale = 10

	// PositionScale converts degrees to tenths of a degree.
	PositionScale = 10

	// PositionErrorScale converts degrees to hundredths of a degree.
	PositionErrorScale = 100

	// EncoderRawRange is the count of raw encoder steps per revolution.
	EncoderRawRange = 16384

	// EncoderCalibratedRange is the count of calibrated encoder steps
	// per revolution (4x interpolation).
	EncoderCalibratedRange = 65536
)

// Wire limits imposed by the field widths.
const (
	// MaxSpeedRPM is the largest representable speed (uint16 / 10).
	MaxSpeedRPM = 6553.5

	// MaxPositionDegrees is the largest representable angle (uint32 / 10).
	MaxPositionDegrees = 429496729.5
)

// Sign bytes for signed wire quantities.
const (
	signPositive byte = 0x00
	signNegative byte = 0x01
)

// AppendUint16 appends v in big-endian byte order.
func AppendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// AppendUint32 appends v in big-endian byte order.
func AppendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// Uint16 reads a big-endian uint16 at offset i.
func Uint16(b []byte, i int) uint16 {
	return uint16(b[i])<<8 | uint16(b[i+1])
}

// Uint32 reads a big-endian uint32 at offset i.
func Uint32(b []byte, i int) uint32 {
	return uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
}

// SpeedToWire converts a signed RPM value to its sign byte and tenth-of-RPM
// magnitude. It fails if the magnitude does not fit the 16-bit field.
func SpeedToWire(rpm float64) (sign byte, mag uint16, err error) {
	if rpm > MaxSpeedRPM || rpm < -MaxSpeedRPM {
		return 0, 0, &ValidationError{Field: "speed", Reason: fmt.Sprintf("%.1f RPM exceeds ±%.1f", rpm, MaxSpeedRPM)}
	}
	sign = signPositive
	if rpm < 0 {
		sign = signNegative
		rpm = -rpm
	}
	return sign, uint16(rpm * SpeedScale), nil
}

// WireToSpeed converts a sign byte and tenth-of-RPM magnitude to RPM.
func WireToSpeed(sign byte, mag uint16) float64 {
	rpm := float64(mag) / SpeedScale
	if sign == signNegative {
		return -rpm
	}
	return rpm
}

// PositionToWire converts signed degrees to a sign byte and tenth-of-degree
// magnitude. It fails if the magnitude does not fit the 32-bit field.
func PositionToWire(degrees float64) (sign byte, mag uint32, err error) {
	if degrees > MaxPositionDegrees || degrees < -MaxPositionDegrees {
		return 0, 0, &ValidationError{Field: "position", Reason: fmt.Sprintf("%.1f degrees exceeds ±%.1f", degrees, MaxPositionDegrees)}
	}
	sign = signPositive
	if degrees < 0 {
		sign = signNegative
		degrees = -degrees
	}
	return sign, uint32(degrees*PositionScale + 0.5), nil
}

// WireToPosition converts a sign byte and tenth-of-degree magnitude to
// degrees.
func WireToPosition(sign byte, mag uint32) float64 {
	deg := float64(mag) / PositionScale
	if sign == signNegative {
		return -deg
	}
	return deg
}

// WireToPositionError converts a sign byte and hundredth-of-degree
// magnitude to degrees.
func WireToPositionError(sign byte, mag uint32) float64 {
	deg := float64(mag) / PositionErrorScale
	if sign == signNegative {
		return -deg
	}
	return deg
}

// EncoderRawToDegrees converts a raw encoder reading (0..16383) to degrees.
func EncoderRawToDegrees(raw uint16) float64 {
	return float64(raw) / EncoderRawRange * 360.0
}

// EncoderCalibratedToDegrees converts a calibrated encoder reading
// (0..65535) to degrees.
func EncoderCalibratedToDegrees(cal uint16) float64 {
	return float64(cal) / EncoderCalibratedRange * 360.0
}
