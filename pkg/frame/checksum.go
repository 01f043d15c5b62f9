package frame

import "fmt"

// ChecksumMode selects the integrity check appended to every command and
// expected at the end of every response. The mode is configured per bus
// session to match the drive's communication settings; it is never inferred
// from frame contents.
type ChecksumMode uint8

const (
	// ChecksumFixed appends the fixed sentinel byte 0x6B (drive default).
	ChecksumFixed ChecksumMode = iota

	// ChecksumXOR appends the XOR of all preceding bytes.
	ChecksumXOR

	// ChecksumCRC8 appends a CRC-8 (polynomial 0x07, init 0x00) of all
	// preceding bytes.
	ChecksumCRC8

	// ChecksumNone appends nothing; frames are accepted unverified.
	ChecksumNone
)

// FixedChecksumByte is the sentinel used by ChecksumFixed.
const FixedChecksumByte byte = 0x6B

// crc8Poly is the CRC-8 generator polynomial (x^8 + x^2 + x + 1).
const crc8Poly byte = 0x07

// String returns the mode name as used in configuration files.
func (m ChecksumMode) String() string {
	switch m {
	case ChecksumFixed:
		return "fixed"
	case ChecksumXOR:
		return "xor"
	case ChecksumCRC8:
		return "crc8"
	case ChecksumNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseChecksumMode parses a configuration-file mode name.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch s {
	case "fixed", "":
		return ChecksumFixed, nil
	case "xor":
		return ChecksumXOR, nil
	case "crc8":
		return ChecksumCRC8, nil
	case "none":
		return ChecksumNone, nil
	default:
		return 0, fmt.Errorf("unknown checksum mode %q", s)
	}
}

// Size returns the checksum width in bytes (0 or 1).
func (m ChecksumMode) Size() int {
	if m == ChecksumNone {
		return 0
	}
	return 1
}

// Compute returns the checksum byte for data. The second return value is
// false for ChecksumNone, where no byte is appended.
func (m ChecksumMode) Compute(data []byte) (byte, bool) {
	switch m {
	case ChecksumFixed:
		return FixedChecksumByte, true
	case ChecksumXOR:
		var x byte
		for _, b := range data {
			x ^= b
		}
		return x, true
	case ChecksumCRC8:
		return crc8(data), true
	default:
		return 0, false
	}
}

// Verify checks the trailing checksum of raw (payload + checksum byte).
// It returns the payload with the checksum stripped.
func (m ChecksumMode) Verify(raw []byte) ([]byte, error) {
	if m == ChecksumNone {
		return raw, nil
	}
	if len(raw) < 2 {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame too short for checksum: %d bytes", len(raw))}
	}
	payload, got := raw[:len(raw)-1], raw[len(raw)-1]
	want, _ := m.Compute(payload)
	if got != want {
		return nil, &ChecksumError{Mode: m, Want: want, Got: got}
	}
	return payload, nil
}

func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crc8Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
