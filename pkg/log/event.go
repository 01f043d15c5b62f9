package log

import (
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the bus session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates packet flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// BusName identifies the bus adapter (serial port or gateway address).
	BusName string `cbor:"6,keyasint,omitempty"`

	// MotorAddr is the target motor address (0 for broadcast).
	MotorAddr uint8 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Packet      *PacketEvent      `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Frame layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Homing/motion state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates a packet received from the bus.
	DirectionIn Direction = 0
	// DirectionOut indicates a packet sent to the bus.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the CAN packet layer (raw bytes).
	LayerTransport Layer = 0
	// LayerFrame is the command encoding layer (decoded frames).
	LayerFrame Layer = 1
	// LayerController is the motor controller layer.
	LayerController Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerFrame:
		return "FRAME"
	case LayerController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPacket indicates a raw CAN packet.
	CategoryPacket Category = 0
	// CategoryCommand indicates a decoded command or response.
	CategoryCommand Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// PacketEvent captures a raw CAN packet at the transport layer.
type PacketEvent struct {
	// CANID is the 29-bit extended CAN identifier.
	CANID uint32 `cbor:"1,keyasint"`

	// Size is the packet payload size in bytes (0-8).
	Size int `cbor:"2,keyasint"`

	// Data is the raw payload bytes.
	Data []byte `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures a decoded command or response at the frame layer.
type CommandEvent struct {
	// Function is the protocol function code.
	Function frame.FunctionCode `cbor:"1,keyasint"`

	// Attempt is the delivery attempt number (1 for first try).
	Attempt int `cbor:"2,keyasint,omitempty"`

	// Rejected indicates the drive replied with a command error.
	Rejected bool `cbor:"3,keyasint,omitempty"`

	// ConditionNotMet indicates the drive refused due to its current state.
	ConditionNotMet bool `cbor:"4,keyasint,omitempty"`

	// Latency is the duration from send to response receipt (responses only).
	// Stored as nanoseconds.
	Latency *time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures controller-level lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityBus indicates a bus connection state change.
	StateEntityBus StateEntity = 0
	// StateEntityHoming indicates a homing procedure state change.
	StateEntityHoming StateEntity = 1
	// StateEntityMotion indicates a motion state change.
	StateEntityMotion StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityBus:
		return "BUS"
	case StateEntityHoming:
		return "HOMING"
	case StateEntityMotion:
		return "MOTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
