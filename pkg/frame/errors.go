package frame

import "fmt"

// ValidationError reports an argument outside its protocol-legal range.
// It is always raised before any bus I/O takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ChecksumError reports a response that failed its integrity check.
type ChecksumError struct {
	Mode ChecksumMode
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch (%s): want 0x%02X, got 0x%02X", e.Mode, e.Want, e.Got)
}

// ProtocolError reports a malformed or unrecognized frame.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}
