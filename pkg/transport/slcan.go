package transport

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialConfig configures an SLCAN serial adapter.
type SerialConfig struct {
	// Port is the serial device path (e.g. /dev/ttyACM0, COM3).
	Port string

	// BaudRate is the serial line rate to the adapter (default: 115200).
	// This is independent of the CAN bitrate.
	BaudRate int

	// CANBitrate is the CAN bus bitrate in bit/s (default: 500000).
	// Must be one of the standard SLCAN rates.
	CANBitrate int
}

// slcanBitrateCodes maps CAN bitrates to SLCAN setup codes.
var slcanBitrateCodes = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// SerialConn is a CANConn over an SLCAN-compatible USB-CAN adapter.
type SerialConn struct {
	port serial.Port

	recv chan Packet

	closeOnce sync.Once
	closed    chan struct{}

	writeMu sync.Mutex
}

// OpenSerial opens an SLCAN adapter and puts its CAN channel in the
// open state at the configured bitrate.
func OpenSerial(config SerialConfig) (*SerialConn, error) {
	if config.BaudRate == 0 {
		config.BaudRate = 115200
	}
	if config.CANBitrate == 0 {
		config.CANBitrate = 500000
	}
	code, ok := slcanBitrateCodes[config.CANBitrate]
	if !ok {
		return nil, fmt.Errorf("unsupported CAN bitrate %d", config.CANBitrate)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", config.Port, err)
	}

	c := &SerialConn{
		port:   port,
		recv:   make(chan Packet, 64),
		closed: make(chan struct{}),
	}

	// Close any stale channel state, set bitrate, open.
	for _, cmd := range []string{"C\r", "S" + string(code) + "\r", "O\r"} {
		if _, err := port.Write([]byte(cmd)); err != nil {
			port.Close()
			return nil, fmt.Errorf("adapter setup failed: %w", err)
		}
	}

	go c.readLoop()
	return c, nil
}

// Send transmits a packet as an SLCAN extended frame.
func (c *SerialConn) Send(p Packet) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	line := EncodeSLCAN(p)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// Receive returns the next CAN frame from the adapter.
func (c *SerialConn) Receive(timeout time.Duration) (Packet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.closed:
		return Packet{}, ErrClosed
	case p := <-c.recv:
		return p, nil
	case <-timer.C:
		return Packet{}, ErrTimeout
	}
}

// Close closes the CAN channel and the serial port.
func (c *SerialConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_, _ = c.port.Write([]byte("C\r"))
		c.writeMu.Unlock()
		err = c.port.Close()
	})
	return err
}

// readLoop reads SLCAN lines from the port and queues parsed frames.
// Non-frame responses (command acks, error bells) are discarded.
func (c *SerialConn) readLoop() {
	buf := make([]byte, 256)
	var line strings.Builder

	for {
		n, err := c.port.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			switch b {
			case '\r':
				if p, ok := ParseSLCAN(line.String()); ok {
					select {
					case c.recv <- p:
					case <-c.closed:
						return
					}
				}
				line.Reset()
			case '\a': // error bell terminates a command too
				line.Reset()
			default:
				line.WriteByte(b)
			}
		}
	}
}

// EncodeSLCAN renders a packet as an SLCAN extended data frame:
// 'T' + 8 hex ID digits + length digit + hex payload + CR.
func EncodeSLCAN(p Packet) string {
	var b strings.Builder
	b.WriteByte('T')
	fmt.Fprintf(&b, "%08X", p.ID&0x1FFFFFFF)
	b.WriteByte('0' + byte(len(p.Data)&0x0F))
	for _, d := range p.Data {
		fmt.Fprintf(&b, "%02X", d)
	}
	b.WriteByte('\r')
	return b.String()
}

// ParseSLCAN parses an SLCAN data frame line (without the trailing CR).
// It accepts extended ('T') and standard ('t') data frames and reports
// ok=false for anything else.
func ParseSLCAN(line string) (Packet, bool) {
	if line == "" {
		return Packet{}, false
	}

	var idLen int
	switch line[0] {
	case 'T':
		idLen = 8
	case 't':
		idLen = 3
	default:
		return Packet{}, false
	}

	if len(line) < 1+idLen+1 {
		return Packet{}, false
	}
	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Packet{}, false
	}
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > 8 {
		return Packet{}, false
	}

	hexData := line[1+idLen+1:]
	if len(hexData) != dlc*2 {
		return Packet{}, false
	}
	data := make([]byte, dlc)
	for i := 0; i < dlc; i++ {
		v, err := strconv.ParseUint(hexData[i*2:i*2+2], 16, 8)
		if err != nil {
			return Packet{}, false
		}
		data[i] = byte(v)
	}

	return Packet{ID: uint32(id), Data: data}, true
}

// Compile-time interface satisfaction check.
var _ CANConn = (*SerialConn)(nil)
