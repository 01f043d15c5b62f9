package devicesim

import (
	"sync"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

// Config holds simulator settings.
type Config struct {
	// Checksum is the frame checksum mode the simulated drives expect
	// and produce. Defaults to the fixed checksum.
	Checksum frame.ChecksumMode

	// HomingPolls is the number of status polls a homing procedure
	// takes to complete. Defaults to 3.
	HomingPolls int

	// QueueSize is the response queue depth. Defaults to 64.
	QueueSize int
}

// Simulator emulates one or more drives on a shared bus. It implements
// transport.CANConn, so a Bus can be pointed straight at it.
type Simulator struct {
	config Config

	mu      sync.Mutex
	motors  map[frame.MotorAddress]*Motor
	partial map[frame.MotorAddress][][]byte
	drop    int
	corrupt int

	out       chan transport.Packet
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.CANConn = (*Simulator)(nil)

// New creates a simulator with no motors attached.
func New(config Config) *Simulator {
	if config.HomingPolls <= 0 {
		config.HomingPolls = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	return &Simulator{
		config:  config,
		motors:  make(map[frame.MotorAddress]*Motor),
		partial: make(map[frame.MotorAddress][][]byte),
		out:     make(chan transport.Packet, config.QueueSize),
		closed:  make(chan struct{}),
	}
}

// AddMotor attaches a drive at addr with factory defaults and returns
// it. Adding to an occupied address replaces the previous drive.
func (s *Simulator) AddMotor(addr frame.MotorAddress) *Motor {
	m := newMotor()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motors[addr] = m
	return m
}

// Motor returns the drive at addr.
func (s *Simulator) Motor(addr frame.MotorAddress) (*Motor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.motors[addr]
	return m, ok
}

// DropResponses makes the simulator swallow the next n responses, as a
// flaky bus would.
func (s *Simulator) DropResponses(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop = n
}

// CorruptResponses makes the next n responses carry a bad checksum.
func (s *Simulator) CorruptResponses(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupt = n
}

// Send accepts one command packet. Multi-packet commands are buffered
// until the expected length for their function code has arrived.
func (s *Simulator) Send(p transport.Packet) error {
	select {
	case <-s.closed:
		return transport.ErrClosed
	default:
	}
	if len(p.Data) == 0 {
		return nil
	}

	addr := frame.MotorAddress(p.ID >> 8)
	seq := p.ID & 0xFF

	s.mu.Lock()
	if seq == 0 {
		s.partial[addr] = nil
	}
	s.partial[addr] = append(s.partial[addr], p.Data)
	raw, err := frame.Assemble(s.partial[addr])
	if err != nil {
		s.partial[addr] = nil
		s.mu.Unlock()
		return nil
	}

	fn := frame.FunctionCode(raw[0])
	want, known := commandLengths[fn]
	if known && len(raw) < 1+want+s.config.Checksum.Size() {
		// More packets to come.
		s.mu.Unlock()
		return nil
	}
	s.partial[addr] = nil
	s.mu.Unlock()

	payload, err := s.config.Checksum.Verify(raw)
	if err != nil {
		// A garbled command gets no answer.
		return nil
	}
	s.dispatch(addr, frame.FunctionCode(payload[0]), payload[1:])
	return nil
}

// Receive returns the next queued response packet.
func (s *Simulator) Receive(timeout time.Duration) (transport.Packet, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-s.out:
		return p, nil
	case <-s.closed:
		return transport.Packet{}, transport.ErrClosed
	case <-timer.C:
		return transport.Packet{}, transport.ErrTimeout
	}
}

// Close shuts the simulated bus down.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *Simulator) dispatch(addr frame.MotorAddress, fn frame.FunctionCode, args []byte) {
	if addr == frame.BroadcastAddress {
		s.broadcast(fn, args)
		return
	}

	s.mu.Lock()
	m, ok := s.motors[addr]
	s.mu.Unlock()
	if !ok {
		// Nobody home; the command times out.
		return
	}

	data, accepted := m.handle(fn, args, s.config.HomingPolls)
	if !accepted {
		s.reply(addr, []byte{0x00, frame.StatusCommandError})
		return
	}

	if fn == frame.FuncModifyMotorAddress {
		s.rekey(addr, frame.MotorAddress(args[2]))
	}
	s.reply(addr, append([]byte{byte(fn)}, data...))
}

// broadcast applies a command to every motor. Broadcast commands are
// never answered.
func (s *Simulator) broadcast(fn frame.FunctionCode, args []byte) {
	s.mu.Lock()
	motors := make([]*Motor, 0, len(s.motors))
	for _, m := range s.motors {
		motors = append(motors, m)
	}
	s.mu.Unlock()

	for _, m := range motors {
		if fn == frame.FuncSyncMotion && len(args) == 1 && args[0] == frame.AuxSyncMotion {
			m.runDeferred()
			continue
		}
		m.handle(fn, args, s.config.HomingPolls)
	}
}

func (s *Simulator) rekey(old, next frame.MotorAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.motors[old]; ok {
		delete(s.motors, old)
		s.motors[next] = m
	}
}

// reply checksums, optionally corrupts, splits and queues a response.
func (s *Simulator) reply(addr frame.MotorAddress, payload []byte) {
	s.mu.Lock()
	if s.drop > 0 {
		s.drop--
		s.mu.Unlock()
		return
	}
	corrupt := s.corrupt > 0
	if corrupt {
		s.corrupt--
	}
	s.mu.Unlock()

	raw := payload
	if sum, ok := s.config.Checksum.Compute(payload); ok {
		if corrupt {
			sum ^= 0xFF
		}
		raw = append(raw, sum)
	}

	for i, pkt := range frame.Split(raw) {
		select {
		case s.out <- transport.Packet{ID: addr.CANID() + uint32(i), Data: pkt}:
		case <-s.closed:
			return
		}
	}
}
