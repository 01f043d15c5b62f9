package motor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/log"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

// ControllerConfig holds optional controller settings.
type ControllerConfig struct {
	// Logger receives state-change events for this drive. Defaults to
	// the no-op logger.
	Logger log.Logger

	// MinDegrees and MaxDegrees bound absolute position targets (soft
	// joint limits). Both zero means unlimited.
	MinDegrees float64
	MaxDegrees float64
}

// limited reports whether soft travel limits are configured.
func (c ControllerConfig) limited() bool {
	return c.MinDegrees != 0 || c.MaxDegrees != 0
}

// Controller drives a single motor on a bus. Operations are grouped
// behind the Control, Read, Modify, Homing and Trigger accessors.
//
// A Controller is safe for concurrent use; the underlying bus
// serializes exchanges.
type Controller struct {
	bus    *transport.Bus
	plog   log.Logger
	minDeg float64
	maxDeg float64

	mu           sync.Mutex
	addr         frame.MotorAddress
	homing       HomingState
	cachedParams *DriveParameters
}

// NewController returns a controller for the drive at addr. The
// broadcast address cannot be controlled individually.
func NewController(bus *transport.Bus, addr frame.MotorAddress, config ControllerConfig) (*Controller, error) {
	if addr == frame.BroadcastAddress {
		return nil, &frame.ValidationError{Field: "address", Reason: "cannot control the broadcast address"}
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	if config.limited() && config.MinDegrees >= config.MaxDegrees {
		return nil, &frame.ValidationError{Field: "travel limits", Reason: "min_degrees must be below max_degrees"}
	}
	c := &Controller{
		bus:    bus,
		plog:   config.Logger,
		addr:   addr,
		homing: HomingIdle,
	}
	if config.limited() {
		c.minDeg = config.MinDegrees
		c.maxDeg = config.MaxDegrees
	}
	return c, nil
}

// checkTravel rejects absolute targets outside the configured soft
// limits. Unlimited controllers accept everything.
func (c *Controller) checkTravel(degrees float64) error {
	if c.minDeg == 0 && c.maxDeg == 0 {
		return nil
	}
	if degrees < c.minDeg || degrees > c.maxDeg {
		return &frame.ValidationError{
			Field:  "position",
			Reason: fmt.Sprintf("%.1f degrees outside travel limits [%.1f, %.1f]", degrees, c.minDeg, c.maxDeg),
		}
	}
	return nil
}

// Address returns the drive's current bus address.
func (c *Controller) Address() frame.MotorAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Bus returns the underlying bus.
func (c *Controller) Bus() *transport.Bus {
	return c.bus
}

// Control returns the motion command interface.
func (c *Controller) Control() ControlActions {
	return &controlActions{c}
}

// Read returns the parameter read interface.
func (c *Controller) Read() ReadParameters {
	return &readParameters{c}
}

// Modify returns the configuration write interface.
func (c *Controller) Modify() ModifyParameters {
	return &modifyParameters{c}
}

// Homing returns the homing procedure interface.
func (c *Controller) Homing() HomingCommands {
	return &homingCommands{c}
}

// Trigger returns the one-shot action interface.
func (c *Controller) Trigger() TriggerActions {
	return &triggerActions{c}
}

// exchange sends a command and returns the raw response.
func (c *Controller) exchange(ctx context.Context, cmd *frame.Command) (*frame.Response, error) {
	return c.bus.Exchange(ctx, c.Address(), cmd)
}

// command sends a command whose reply carries only a status byte.
// Failures are wrapped in an OpError naming op.
func (c *Controller) command(ctx context.Context, op string, cmd *frame.Command) error {
	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		return c.opErr(op, err)
	}
	if err := checkAck(resp); err != nil {
		return c.opErr(op, err)
	}
	return nil
}

// read sends a read command and returns the response data.
func (c *Controller) read(ctx context.Context, op string, cmd *frame.Command) ([]byte, error) {
	resp, err := c.exchange(ctx, cmd)
	if err != nil {
		return nil, c.opErr(op, err)
	}
	if resp.Rejected() {
		return nil, c.opErr(op, ErrCommandRejected)
	}
	if resp.ConditionNotMet() {
		return nil, c.opErr(op, ErrConditionNotMet)
	}
	return resp.Data, nil
}

// checkAck maps the drive's status byte to an error.
func checkAck(resp *frame.Response) error {
	if resp.Rejected() {
		return ErrCommandRejected
	}
	if resp.ConditionNotMet() {
		return ErrConditionNotMet
	}
	if len(resp.Data) < 1 {
		return &frame.ProtocolError{Reason: "acknowledgement carries no status byte"}
	}
	if resp.Data[0] != frame.StatusSuccess {
		return &UnexpectedStatusError{Status: resp.Data[0]}
	}
	return nil
}

func (c *Controller) opErr(op string, err error) error {
	return &OpError{Addr: c.Address(), Op: op, Err: err}
}

// setAddress records a new bus address after a successful address
// change on the drive.
func (c *Controller) setAddress(addr frame.MotorAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
}

// homingStateLocked returns the tracked homing state.
func (c *Controller) homingState() HomingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.homing
}

// setHomingState advances the tracked homing state and emits a
// state-change event. It is a no-op when the state is unchanged.
func (c *Controller) setHomingState(next HomingState, reason string) {
	c.mu.Lock()
	prev := c.homing
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.homing = next
	addr := c.addr
	c.mu.Unlock()

	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.bus.SessionID(),
		Direction: log.DirectionIn,
		Layer:     log.LayerController,
		Category:  log.CategoryState,
		MotorAddr: uint8(addr),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityHoming,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

// cachedDriveParams returns a copy of the cached configuration record,
// or false when no read has populated it yet.
func (c *Controller) cachedDriveParams() (DriveParameters, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedParams == nil {
		return DriveParameters{}, false
	}
	return *c.cachedParams, true
}

func (c *Controller) storeDriveParams(p DriveParameters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedParams = &p
}

func (c *Controller) dropDriveParams() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedParams = nil
}
