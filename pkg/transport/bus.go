package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

// Default bus timing parameters.
const (
	// DefaultResponseTimeout is the time to wait for a drive response.
	DefaultResponseTimeout = 1 * time.Second

	// DefaultRetryAttempts is the total number of attempts for read
	// commands (1 initial + 2 retries).
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the pause between read retries.
	DefaultRetryDelay = 50 * time.Millisecond
)

// BusConfig configures a Bus.
type BusConfig struct {
	// Name identifies the bus in log events (port path or gateway address).
	Name string

	// Checksum selects the trailing checksum scheme. All drives on a
	// bus must be configured for the same scheme. The zero value is
	// the fixed-byte scheme.
	Checksum frame.ChecksumMode

	// ResponseTimeout is the time to wait for a response (default: 1s).
	ResponseTimeout time.Duration

	// RetryAttempts is the total number of attempts for read commands
	// (default: 3). Write commands are never retried.
	RetryAttempts int

	// RetryDelay is the pause between read retries (default: 50ms).
	RetryDelay time.Duration

	// ProtocolLogger receives packet and command trace events.
	// Nil disables protocol capture.
	ProtocolLogger log.Logger
}

// Bus serializes command/response exchanges over a CAN adapter.
// It is safe for concurrent use; exchanges are queued one at a time.
type Bus struct {
	conn    CANConn
	config  BusConfig
	session string
	plog    log.Logger
	group   *SyncGroup

	mu sync.Mutex
}

// NewBus creates a Bus over the given adapter.
func NewBus(conn CANConn, config BusConfig) *Bus {
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = DefaultResponseTimeout
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = DefaultRetryAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	plog := config.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	return &Bus{
		conn:    conn,
		config:  config,
		session: uuid.NewString(),
		plog:    plog,
		group:   NewSyncGroup(),
	}
}

// SessionID returns the unique identifier for this bus session.
func (b *Bus) SessionID() string {
	return b.session
}

// Checksum returns the checksum scheme the bus encodes commands with.
func (b *Bus) Checksum() frame.ChecksumMode {
	return b.config.Checksum
}

// SyncGroup returns the set of motors with deferred motion pending on
// this bus.
func (b *Bus) SyncGroup() *SyncGroup {
	return b.group
}

// Close shuts down the underlying adapter.
func (b *Bus) Close() error {
	return b.conn.Close()
}

// Exchange sends a command to the addressed motor and waits for its
// response. Read commands that time out or fail checksum verification
// are retried; write commands are attempted exactly once because a
// timed-out write may still have been executed by the drive.
func (b *Bus) Exchange(ctx context.Context, addr frame.MotorAddress, cmd *frame.Command) (*frame.Response, error) {
	if addr.IsBroadcast() {
		return nil, fmt.Errorf("broadcast commands have no response, use Broadcast")
	}

	encoded, err := cmd.Encode(b.config.Checksum)
	if err != nil {
		return nil, err
	}

	attempts := 1
	if cmd.Function.IsRead() {
		attempts = b.config.RetryAttempts
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.config.RetryDelay):
			}
		}

		start := time.Now()
		if err := b.sendPackets(addr, encoded); err != nil {
			b.logError(addr, cmd.Function, err, "send")
			return nil, err
		}

		resp, err := b.collectResponse(ctx, addr)
		if err == nil {
			b.logCommand(addr, cmd.Function, resp, attempt, time.Since(start))
			return resp, nil
		}
		if !retryable(err) {
			b.logError(addr, cmd.Function, err, "exchange")
			return nil, err
		}
		lastErr = err
	}

	b.logError(addr, cmd.Function, lastErr, "retries exhausted")
	return nil, lastErr
}

// Broadcast sends a command to all motors on the bus. Broadcast
// commands are fire-and-forget: the drives execute them but do not
// respond, to avoid colliding on the bus.
func (b *Bus) Broadcast(cmd *frame.Command) error {
	encoded, err := cmd.Encode(b.config.Checksum)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.sendPackets(frame.BroadcastAddress, encoded); err != nil {
		return err
	}
	b.logCommand(frame.BroadcastAddress, cmd.Function, nil, 1, 0)
	return nil
}

// retryable reports whether an exchange failure is safe to retry for
// an idempotent command.
func retryable(err error) bool {
	var checksumErr *frame.ChecksumError
	return errors.Is(err, ErrTimeout) || errors.As(err, &checksumErr)
}

// sendPackets splits an encoded command into CAN packets and transmits
// them. Continuation packets use consecutive CAN IDs above the base.
func (b *Bus) sendPackets(addr frame.MotorAddress, encoded []byte) error {
	for i, data := range frame.Split(encoded) {
		p := Packet{ID: addr.CANID() + uint32(i), Data: data}
		if err := b.conn.Send(p); err != nil {
			return err
		}
		b.logPacket(addr, p, log.DirectionOut)
	}
	return nil
}

// collectResponse gathers response packets addressed from the motor and
// reassembles them. Multi-packet responses arrive on consecutive CAN
// IDs; the response is complete once the assembled bytes decode with a
// valid checksum.
func (b *Bus) collectResponse(ctx context.Context, addr frame.MotorAddress) (*frame.Response, error) {
	deadline := time.Now().Add(b.config.ResponseTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var parts [][]byte
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ErrTimeout
		}

		p, err := b.conn.Receive(remaining)
		if err != nil {
			if errors.Is(err, ErrTimeout) && lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}
		b.logPacket(addr, p, log.DirectionIn)

		// Ignore traffic from other motors and stale responses.
		if p.ID>>8 != uint32(addr) {
			continue
		}
		seq := int(p.ID & 0xFF)
		for len(parts) <= seq {
			parts = append(parts, nil)
		}
		parts[seq] = p.Data

		if !contiguous(parts) {
			continue
		}
		raw, err := frame.Assemble(parts)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := frame.DecodeResponse(addr, raw, b.config.Checksum)
		if err != nil {
			// Likely an incomplete multi-packet response. Keep
			// collecting until the deadline.
			lastErr = err
			continue
		}
		return resp, nil
	}
}

// contiguous reports whether all packet slots up to the highest
// received sequence number are filled.
func contiguous(parts [][]byte) bool {
	for _, p := range parts {
		if p == nil {
			return false
		}
	}
	return true
}

func (b *Bus) logPacket(addr frame.MotorAddress, p Packet, dir log.Direction) {
	b.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: b.session,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPacket,
		BusName:   b.config.Name,
		MotorAddr: uint8(addr),
		Packet: &log.PacketEvent{
			CANID: p.ID,
			Size:  len(p.Data),
			Data:  p.Data,
		},
	})
}

func (b *Bus) logError(addr frame.MotorAddress, fn frame.FunctionCode, err error, context string) {
	b.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: b.session,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		BusName:   b.config.Name,
		MotorAddr: uint8(addr),
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: fn.String() + " " + context,
		},
	})
}

func (b *Bus) logCommand(addr frame.MotorAddress, fn frame.FunctionCode, resp *frame.Response, attempt int, latency time.Duration) {
	ev := &log.CommandEvent{
		Function: fn,
		Attempt:  attempt,
	}
	dir := log.DirectionOut
	if resp != nil {
		dir = log.DirectionIn
		ev.Rejected = resp.Rejected()
		ev.ConditionNotMet = resp.ConditionNotMet()
		ev.Latency = &latency
	}
	b.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: b.session,
		Direction: dir,
		Layer:     log.LayerFrame,
		Category:  log.CategoryCommand,
		BusName:   b.config.Name,
		MotorAddr: uint8(addr),
		Command:   ev,
	})
}
