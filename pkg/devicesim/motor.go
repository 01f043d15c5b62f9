package devicesim

import (
	"sync"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// Factory defaults, in wire form. Values follow the vendor's shipped
// configuration: closed-loop FOC, 16 microsteps, 500 kbit/s CAN.
var factoryDriveParams = [32]byte{
	0x00,       // lock disabled
	0x01,       // closed-loop FOC
	0x00, 0x00, // pulse port, serial port
	0x00, 0x00, // enable pin, direction CW
	0x10,       // 16 microsteps
	0x01,       // interpolation on
	0x00, 0x04, // screen stays on, LPF intensity 4
	0x03, 0xE8, // open-loop current 1000 mA
	0x0B, 0xB8, // closed-loop max 3000 mA
	0x0B, 0xB8, // speed limit 3000 RPM
	0x03, 0xE8, // current loop bandwidth 1000 Hz
	0x05, 0x07, // UART 115200, CAN 500k
	0x00, 0x01, // fixed checksum, respond to all commands
	0x00, 0x01, // standard precision, stall protection on
	0x00, 0x28, // stall speed 40 RPM
	0x09, 0x60, // stall current 2400 mA
	0x0F, 0xA0, // stall time 4000 ms
	0x00, 0x01, // position window 0.1 degrees
}

var factoryHomingParams = [15]byte{
	0x00, 0x00, // nearest mode, CW
	0x00, 0x1E, // 30 RPM
	0x00, 0x00, 0x27, 0x10, // 10 s timeout
	0x01, 0x2C, // collision speed 300 RPM
	0x03, 0x20, // collision current 800 mA
	0x00, 0x3C, // collision time 60 ms
	0x00, // no auto homing
}

var factoryPID = [16]byte{
	0x00, 0x00, 0xF2, 0x30, // trapezoid position Kp 62000
	0x00, 0x00, 0x61, 0xA8, // direct position Kp 25000
	0x00, 0x00, 0xF2, 0x30, // speed Kp 62000
	0x00, 0x00, 0x00, 0x64, // speed Ki 100
}

// Motor is one simulated drive. Configuration is kept in two copies,
// working RAM and emulated flash, so unsaved changes are lost on
// PowerCycle. Motion completes instantly; homing progresses one step
// per status poll.
type Motor struct {
	mu sync.Mutex

	driveParams  [32]byte
	savedDrive   [32]byte
	homingParams [15]byte
	savedHoming  [15]byte
	pid          [16]byte
	savedPID     [16]byte

	firmware   uint16
	hardware   uint16
	resistance uint16 // milliohm
	inductance uint16 // microhenry

	voltageMV      uint16
	busCurrentMA   uint16
	phaseCurrentMA uint16
	temperatureC   float64

	enabled    bool
	stalled    bool
	inPosition bool

	positionDeg float64
	targetDeg   float64
	speedRPM    float64
	pulseCount  int64
	inputPulses int64

	encoderReady     bool
	calibrationReady bool
	homingActive     bool
	homingPollsLeft  int
	homingFails      bool

	deferred []func()
}

func newMotor() *Motor {
	m := &Motor{
		firmware:         0x0204,
		hardware:         0x0101,
		resistance:       1100,
		inductance:       4300,
		voltageMV:        24000,
		busCurrentMA:     120,
		phaseCurrentMA:   80,
		temperatureC:     35,
		inPosition:       true,
		encoderReady:     true,
		calibrationReady: true,
	}
	m.driveParams = factoryDriveParams
	m.savedDrive = factoryDriveParams
	m.homingParams = factoryHomingParams
	m.savedHoming = factoryHomingParams
	m.pid = factoryPID
	m.savedPID = factoryPID
	return m
}

// PowerCycle emulates turning the drive off and on: unsaved
// configuration reverts to flash, the windings release and buffered
// deferred commands are lost.
func (m *Motor) PowerCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driveParams = m.savedDrive
	m.homingParams = m.savedHoming
	m.pid = m.savedPID
	m.enabled = false
	m.stalled = false
	m.inPosition = true
	m.speedRPM = 0
	m.homingActive = false
	m.homingPollsLeft = 0
	m.deferred = nil
}

// Enabled reports whether the windings are powered.
func (m *Motor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Position returns the shaft angle in degrees.
func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionDeg
}

// SetPosition moves the simulated shaft without a command, as an
// external force would.
func (m *Motor) SetPosition(degrees float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionDeg = degrees
}

// SetStalled trips or clears the simulated stall detector.
func (m *Motor) SetStalled(stalled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stalled = stalled
}

// SetInPosition overrides the in-position flag, for exercising wait
// loops.
func (m *Motor) SetInPosition(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inPosition = v
}

// SetTelemetry overrides the electrical readings.
func (m *Motor) SetTelemetry(voltageMV, busCurrentMA, phaseCurrentMA uint16, temperatureC float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voltageMV = voltageMV
	m.busCurrentMA = busCurrentMA
	m.phaseCurrentMA = phaseCurrentMA
	m.temperatureC = temperatureC
}

// FailNextHoming makes the running (or next) homing procedure report
// failure instead of completing.
func (m *Motor) FailNextHoming() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homingFails = true
}

// DeferredCount returns the number of buffered deferred commands.
func (m *Motor) DeferredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deferred)
}

func (m *Motor) motorFlags() byte {
	var flags byte
	if m.enabled {
		flags |= 0x01
	}
	if m.inPosition {
		flags |= 0x02
	}
	if m.stalled {
		flags |= 0x04
	}
	if m.stalled && m.driveParams[23] != 0 {
		flags |= 0x08
	}
	return flags
}

// homingFlags builds the homing flag byte and advances the simulated
// procedure by one poll.
func (m *Motor) homingFlags() byte {
	var flags byte
	if m.encoderReady {
		flags |= 0x01
	}
	if m.calibrationReady {
		flags |= 0x02
	}
	if m.homingActive {
		m.homingPollsLeft--
		if m.homingPollsLeft <= 0 {
			m.homingActive = false
			if m.homingFails {
				m.homingFails = false
				flags |= 0x08
				return flags
			}
			m.positionDeg = 0
			return flags
		}
		flags |= 0x04
	}
	if m.driveParams[22] != 0 {
		flags |= 0x80
	}
	return flags
}

// signedWire encodes a signed degree value as sign byte plus scaled
// big-endian magnitude.
func signedWire(value float64, scale float64) []byte {
	sign := byte(0x00)
	if value < 0 {
		sign = 0x01
		value = -value
	}
	return frame.AppendUint32([]byte{sign}, uint32(value*scale+0.5))
}

// signedPulseWire encodes a pulse counter: sign byte plus little-endian
// magnitude.
func signedPulseWire(value int64) []byte {
	sign := byte(0x00)
	if value < 0 {
		sign = 0x01
		value = -value
	}
	return []byte{sign, byte(value), byte(value >> 8), byte(value >> 16), byte(value >> 24)}
}
