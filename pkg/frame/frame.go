package frame

import "fmt"

// Frame size constants.
const (
	// MaxCANData is the data capacity of one classic CAN frame.
	MaxCANData = 8

	// MaxCommandSize is the maximum encoded command length this stack will
	// build. The longest protocol command (modify drive parameters) is 37
	// bytes; the headroom covers vendor table variations.
	MaxCommandSize = 64

	// MinResponseSize is function code plus at least the checksum byte.
	MinResponseSize = 2
)

// Command is an outgoing request: function code plus parameter bytes.
// The target address is carried in the CAN identifier, not the payload.
// A Command is immutable once built; Encode does not modify it.
type Command struct {
	Function FunctionCode
	Payload  []byte
}

// NewCommand builds a command from a function code and parameter bytes.
func NewCommand(fn FunctionCode, payload ...byte) *Command {
	return &Command{Function: fn, Payload: payload}
}

// Encode serializes the command: function code, payload, checksum.
func (c *Command) Encode(mode ChecksumMode) ([]byte, error) {
	if !c.Function.IsValid() {
		return nil, &ValidationError{Field: "function", Reason: fmt.Sprintf("unknown function code 0x%02X", byte(c.Function))}
	}
	if len(c.Payload)+1+mode.Size() > MaxCommandSize {
		return nil, &ValidationError{Field: "payload", Reason: fmt.Sprintf("command length %d exceeds maximum %d", len(c.Payload)+1+mode.Size(), MaxCommandSize)}
	}
	buf := make([]byte, 0, len(c.Payload)+2)
	buf = append(buf, byte(c.Function))
	buf = append(buf, c.Payload...)
	if sum, ok := mode.Compute(buf); ok {
		buf = append(buf, sum)
	}
	return buf, nil
}

// Split chops an encoded command into CAN-frame-sized packets. Commands of
// up to 8 bytes fit a single packet. Longer commands are split so that every
// continuation packet repeats the function code in its first byte, followed
// by up to 7 payload bytes, matching the drive's multi-packet convention.
// The n-th packet is sent with CAN identifier base+n.
func Split(encoded []byte) [][]byte {
	if len(encoded) <= MaxCANData {
		return [][]byte{encoded}
	}
	fn := encoded[0]
	packets := [][]byte{encoded[:MaxCANData]}
	rest := encoded[MaxCANData:]
	for len(rest) > 0 {
		n := MaxCANData - 1
		if len(rest) < n {
			n = len(rest)
		}
		pkt := make([]byte, 0, n+1)
		pkt = append(pkt, fn)
		pkt = append(pkt, rest[:n]...)
		packets = append(packets, pkt)
		rest = rest[n:]
	}
	return packets
}

// Assemble is the inverse of Split: it joins received CAN packets back into
// one raw response, stripping the repeated function code from continuation
// packets. Packets must be passed in CAN-identifier order.
func Assemble(packets [][]byte) ([]byte, error) {
	if len(packets) == 0 {
		return nil, &ProtocolError{Reason: "no packets received"}
	}
	raw := append([]byte(nil), packets[0]...)
	for i, pkt := range packets[1:] {
		if len(pkt) < 2 {
			return nil, &ProtocolError{Reason: fmt.Sprintf("continuation packet %d too short", i+1)}
		}
		if pkt[0] != raw[0] {
			return nil, &ProtocolError{Reason: fmt.Sprintf("continuation packet %d function code 0x%02X does not match 0x%02X", i+1, pkt[0], raw[0])}
		}
		raw = append(raw, pkt[1:]...)
	}
	return raw, nil
}

// Response is a decoded reply from a drive.
type Response struct {
	// Address is the responding drive, recovered from the CAN identifier.
	Address MotorAddress

	// Function echoes the command's function code. It is zero for the
	// device's generic error reply; see Rejected.
	Function FunctionCode

	// Data holds the payload bytes between function code and checksum.
	Data []byte
}

// Rejected reports whether this is the drive's generic command rejection
// ("00 EE"), sent when the function code or arguments were not understood.
func (r *Response) Rejected() bool {
	return r.Function == 0 && len(r.Data) >= 1 && r.Data[0] == StatusCommandError
}

// ConditionNotMet reports whether the drive refused the command because of
// its current state (not enabled, stalled, homing in progress).
func (r *Response) ConditionNotMet() bool {
	return len(r.Data) >= 1 && r.Data[0] == StatusConditionNotMet
}

// DecodeResponse validates and parses a reassembled raw response.
// It fails with *ChecksumError if the trailing checksum does not match the
// configured mode, and with *ProtocolError if the frame is shorter than the
// minimum length or carries an unrecognized function code.
func DecodeResponse(addr MotorAddress, raw []byte, mode ChecksumMode) (*Response, error) {
	if len(raw) < 1+mode.Size() {
		return nil, &ProtocolError{Reason: fmt.Sprintf("response too short: %d bytes", len(raw))}
	}
	payload, err := mode.Verify(raw)
	if err != nil {
		return nil, err
	}
	fn := FunctionCode(payload[0])
	// The generic rejection reply uses 0x00 in the function-code slot.
	if fn == 0 && len(payload) >= 2 && payload[1] == StatusCommandError {
		return &Response{Address: addr, Function: 0, Data: payload[1:]}, nil
	}
	if !fn.IsValid() {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unrecognized function code 0x%02X", payload[0])}
	}
	return &Response{Address: addr, Function: fn, Data: payload[1:]}, nil
}
