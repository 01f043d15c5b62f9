package transport

import (
	"sync"
	"time"
)

// loopbackBufferSize is the per-direction packet buffer. Large enough
// that a full multi-packet command never blocks the sender in tests.
const loopbackBufferSize = 64

// Loopback is an in-memory CANConn whose peer sees everything it sends
// and vice versa. It backs the device simulator and transport tests.
type Loopback struct {
	send chan Packet
	recv chan Packet

	closeOnce sync.Once
	closed    chan struct{}
	peer      *Loopback
}

// NewLoopback creates a connected pair of in-memory adapters.
// Packets sent on one end are received on the other.
func NewLoopback() (*Loopback, *Loopback) {
	ab := make(chan Packet, loopbackBufferSize)
	ba := make(chan Packet, loopbackBufferSize)

	a := &Loopback{send: ab, recv: ba, closed: make(chan struct{})}
	b := &Loopback{send: ba, recv: ab, closed: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Send queues a packet for the peer.
func (l *Loopback) Send(p Packet) error {
	// Copy so the caller may reuse its buffer.
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	p.Data = data

	select {
	case <-l.closed:
		return ErrClosed
	case <-l.peer.closed:
		return ErrClosed
	case l.send <- p:
		return nil
	}
}

// Receive returns the next packet from the peer, waiting up to timeout.
func (l *Loopback) Receive(timeout time.Duration) (Packet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.closed:
		return Packet{}, ErrClosed
	case p := <-l.recv:
		return p, nil
	case <-timer.C:
		return Packet{}, ErrTimeout
	}
}

// Close shuts down this end of the pair.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

// Compile-time interface satisfaction check.
var _ CANConn = (*Loopback)(nil)
