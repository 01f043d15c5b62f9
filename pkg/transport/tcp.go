package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// TCPConfig configures a CAN-over-Ethernet gateway connection.
type TCPConfig struct {
	// Address is the gateway host:port.
	Address string

	// ConnectTimeout bounds the TCP dial (default: 10s).
	ConnectTimeout time.Duration
}

// TCPConn is a CANConn over a CAN-Ethernet gateway that bridges the
// bus as SLCAN lines on a TCP socket.
type TCPConn struct {
	conn net.Conn

	recv chan Packet

	closeOnce sync.Once
	closed    chan struct{}

	writeMu sync.Mutex
}

// DialTCP connects to a CAN-over-Ethernet gateway.
func DialTCP(ctx context.Context, config TCPConfig) (*TCPConn, error) {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("gateway dial failed: %w", err)
	}

	c := &TCPConn{
		conn:   conn,
		recv:   make(chan Packet, 64),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send transmits a packet as an SLCAN line to the gateway.
func (c *TCPConn) Send(p Packet) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	line := EncodeSLCAN(p)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("gateway write failed: %w", err)
	}
	return nil
}

// Receive returns the next CAN frame from the gateway.
func (c *TCPConn) Receive(timeout time.Duration) (Packet, error) {
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

// Close closes the gateway connection.
func (c *TCPConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// readLoop reads CR-terminated SLCAN lines from the socket and queues
// parsed data frames.
func (c *TCPConn) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r")
		if p, ok := ParseSLCAN(line); ok {
			select {
			case c.recv <- p:
			case <-c.closed:
				return
			}
		}
	}
}

// Compile-time interface satisfaction check.
var _ CANConn = (*TCPConn)(nil)
