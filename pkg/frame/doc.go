// Package frame implements the binary command/response codec for ZDT-style
// closed-loop stepper drives on a CAN bus.
//
// A command is function code + parameter bytes + trailing checksum; the
// target address travels in the CAN identifier (address << 8), not in the
// payload. Responses echo the function code, carry data bytes and end with
// the same checksum. The checksum algorithm (fixed sentinel byte, XOR,
// CRC-8 or none) is a property of the bus session, configured per device.
//
// Numeric fields use the drive's fixed-point wire units: speed in tenths
// of an RPM, position in tenths of a degree, position error in hundredths
// of a degree. Signed quantities are encoded as a sign byte followed by the
// big-endian magnitude. Conversion helpers live in scale.go.
package frame
