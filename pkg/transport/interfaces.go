package transport

import (
	"errors"
	"time"
)

// Transport errors.
var (
	// ErrTimeout indicates no response arrived within the deadline.
	ErrTimeout = errors.New("response timeout")

	// ErrClosed indicates the adapter has been closed.
	ErrClosed = errors.New("adapter closed")
)

// Packet is a single CAN packet with an extended identifier.
type Packet struct {
	// ID is the 29-bit extended CAN identifier.
	ID uint32

	// Data is the payload (0-8 bytes).
	Data []byte
}

// CANConn is a connection to a CAN bus adapter.
//
// Implementations must allow Send and Receive to be called from
// different goroutines, but need not support concurrent calls to the
// same method. Bus provides that serialization.
type CANConn interface {
	// Send transmits a packet on the bus.
	Send(p Packet) error

	// Receive returns the next packet from the bus, waiting up to
	// timeout. Returns ErrTimeout if no packet arrives in time and
	// ErrClosed after Close.
	Receive(timeout time.Duration) (Packet, error)

	// Close shuts the adapter down. Blocked Receive calls return
	// ErrClosed.
	Close() error
}
