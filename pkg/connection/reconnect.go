package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// State is the adapter lifecycle state tracked by Manager.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc opens the adapter: a serial port, a gateway socket, or a
// simulator. The manager calls it for the initial connect and for every
// reconnection attempt.
type ConnectFunc func(ctx context.Context) error

// connectAttemptTimeout bounds one reconnection attempt so a hung
// gateway dial cannot stall the retry loop.
const connectAttemptTimeout = 10 * time.Second

// Manager tracks the adapter connection and re-establishes it after a
// loss. Reconnection is driven by NotifyConnectionLost and runs on the
// goroutine started by StartReconnectLoop.
type Manager struct {
	mu            sync.RWMutex
	state         State
	autoReconnect bool

	connectFn ConnectFunc
	backoff   *Backoff

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager builds a manager around the given connect function.
// Automatic reconnection is enabled; call StartReconnectLoop to arm it.
func NewManager(connectFn ConnectFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		state:         StateDisconnected,
		autoReconnect: true,
		connectFn:     connectFn,
		backoff:       NewBackoff(),
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the adapter is currently up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// SetAutoReconnect switches automatic reconnection on or off.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Connect opens the adapter. It fails with ErrAlreadyConnected when the
// adapter is already up and ErrManagerClosed after Close.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrManagerClosed
	}
	old := m.state
	m.state = StateConnecting
	m.mu.Unlock()
	m.fireStateChange(old, StateConnecting)

	if err := m.connectFn(ctx); err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.fireStateChange(StateConnecting, StateDisconnected)
		return err
	}

	m.mu.Lock()
	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()
	m.fireStateChange(StateConnecting, StateConnected)
	if m.onConnected != nil {
		m.onConnected()
	}
	return nil
}

// Disconnect drops the connected state. With auto-reconnect enabled the
// manager starts retrying, exactly as for a detected loss.
func (m *Manager) Disconnect() {
	m.connectionDown()
}

// NotifyConnectionLost reports a detected adapter loss (read error,
// unplugged port). The reconnect loop takes over when armed.
func (m *Manager) NotifyConnectionLost() {
	m.connectionDown()
}

func (m *Manager) connectionDown() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	retry := m.autoReconnect
	next := StateDisconnected
	if retry {
		next = StateReconnecting
	}
	m.state = next
	m.mu.Unlock()

	m.fireStateChange(StateConnected, next)
	if m.onDisconnected != nil {
		m.onDisconnected()
	}
	if retry {
		select {
		case m.reconnectCh <- struct{}{}:
		default:
			// retry already pending
		}
	}
}

// StartReconnectLoop starts the background retry goroutine. Call it
// once; without it, lost connections stay lost.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-m.reconnectCh:
				m.retryUntilConnected()
			}
		}
	}()
}

// Close shuts the manager down and waits for the retry goroutine.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.fireStateChange(old, StateClosed)
	m.cancel()
	m.wg.Wait()
}

// retryUntilConnected attempts to reconnect with backoff until it
// succeeds or the manager is closed.
func (m *Manager) retryUntilConnected() {
	for {
		switch m.State() {
		case StateClosed, StateConnected:
			return
		}

		delay := m.backoff.Next()
		if m.onReconnecting != nil {
			m.onReconnecting(m.backoff.Attempts(), delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		switch m.State() {
		case StateClosed, StateConnected:
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, connectAttemptTimeout)
		err := m.connectFn(ctx)
		cancel()
		if err != nil {
			continue
		}

		m.mu.Lock()
		old := m.state
		m.state = StateConnected
		m.backoff.Reset()
		m.mu.Unlock()

		m.fireStateChange(old, StateConnected)
		if m.onConnected != nil {
			m.onConnected()
		}
		return
	}
}

func (m *Manager) fireStateChange(old, next State) {
	if m.onStateChange != nil {
		m.onStateChange(old, next)
	}
}

// OnStateChange registers a callback for every state transition.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected registers a callback fired after each successful connect.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected registers a callback fired when the connection drops.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting registers a callback fired before each retry, with the
// attempt number and the delay about to be waited.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// BackoffAttempts reports retries since the last successful connect.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}
