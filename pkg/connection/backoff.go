package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnection delay defaults. The first retry comes quickly because
// adapter drops are usually transient (USB re-enumeration, gateway
// restart); later retries spread out to avoid hammering a dead port.
const (
	// InitialBackoff is the delay before the first retry.
	InitialBackoff = 500 * time.Millisecond

	// MaxBackoff caps the delay between retries.
	MaxBackoff = 30 * time.Second

	// BackoffMultiplier grows the delay after each failed attempt.
	BackoffMultiplier = 2.0

	// JitterFactor is the random fraction added on top of the base
	// delay so parallel clients do not retry in lockstep.
	JitterFactor = 0.25
)

// BackoffConfig overrides the default delay parameters. Zero values
// fall back to the package defaults.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Backoff produces the delay sequence for reconnection attempts. It is
// safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	cfg      BackoffConfig
	attempts int
}

// NewBackoff returns a Backoff with the package default parameters.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// NewBackoffWithConfig returns a Backoff with the given parameters,
// filling in defaults for zero fields.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Backoff{cfg: cfg}
}

// Next returns the delay to wait before the upcoming attempt, with
// jitter applied, and advances the sequence.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	delay := b.jittered(b.base())
	b.attempts++
	return delay
}

// Peek returns the delay Next would produce without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jittered(b.base())
}

// Current returns the base delay for the upcoming attempt, without
// jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.base()
}

// Attempts reports how many delays have been handed out since the last
// Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Reset starts the sequence over. Call it after a successful connect.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}

// base computes the delay for the current attempt count, capped at the
// configured maximum.
func (b *Backoff) base() time.Duration {
	d := b.cfg.Initial
	for i := 0; i < b.attempts; i++ {
		d = time.Duration(float64(d) * b.cfg.Multiplier)
		if d >= b.cfg.Max {
			return b.cfg.Max
		}
	}
	return d
}

func (b *Backoff) jittered(d time.Duration) time.Duration {
	if b.cfg.Jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.cfg.Jitter*rand.Float64())
}

// BackoffSequence lists the base delays (no jitter) produced by the
// default parameters, ending at the cap.
func BackoffSequence() []time.Duration {
	return []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // cap
	}
}
