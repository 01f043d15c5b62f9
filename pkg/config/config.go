// Package config loads bus and motor setups from YAML files for the
// command line tools.
package config

import (
	"fmt"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

// Adapter names accepted in the bus section.
const (
	AdapterSLCAN = "slcan"
	AdapterTCP   = "tcp"
	AdapterSim   = "sim"
)

// Config is the root of a configuration file.
type Config struct {
	Bus    Bus     `yaml:"bus"`
	Motors []Motor `yaml:"motors"`
	Log    Log     `yaml:"log"`
}

// Bus describes how to reach the CAN bus.
type Bus struct {
	// Name labels the bus in protocol logs.
	Name string `yaml:"name"`

	// Adapter selects the transport: slcan, tcp or sim.
	Adapter string `yaml:"adapter"`

	Serial Serial `yaml:"serial"`
	TCP    TCP    `yaml:"tcp"`

	// Checksum is the frame checksum mode: fixed, xor, crc8 or none.
	// Empty selects fixed.
	Checksum string `yaml:"checksum"`

	ResponseTimeout time.Duration `yaml:"response_timeout"`
	Retry           Retry         `yaml:"retry"`
}

// Serial configures an SLCAN adapter on a serial port.
type Serial struct {
	Port       string `yaml:"port"`
	BaudRate   int    `yaml:"baud_rate"`
	CANBitrate int    `yaml:"can_bitrate"`
}

// TCP configures a CAN-over-TCP gateway.
type TCP struct {
	Address        string        `yaml:"address"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Retry configures read retries.
type Retry struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// Motor describes one drive on the bus.
type Motor struct {
	Address uint8  `yaml:"address"`
	Name    string `yaml:"name"`

	// Optional soft travel limits in degrees. Both zero means
	// unlimited.
	MinDegrees float64 `yaml:"min_degrees"`
	MaxDegrees float64 `yaml:"max_degrees"`
}

// Limited reports whether soft travel limits are configured.
func (m *Motor) Limited() bool {
	return m.MinDegrees != 0 || m.MaxDegrees != 0
}

// Log configures protocol logging.
type Log struct {
	// File receives the binary protocol log. Empty disables logging.
	File string `yaml:"file"`
}

// Validate checks the configuration for contradictions. It is called
// by Load; call it directly for configurations built in code.
func (c *Config) Validate() error {
	switch c.Bus.Adapter {
	case AdapterSLCAN:
		if c.Bus.Serial.Port == "" {
			return &LoadError{Message: "slcan adapter requires serial.port"}
		}
	case AdapterTCP:
		if c.Bus.TCP.Address == "" {
			return &LoadError{Message: "tcp adapter requires tcp.address"}
		}
	case AdapterSim:
	case "":
		return &LoadError{Message: "bus.adapter is required"}
	default:
		return &LoadError{Message: fmt.Sprintf("unknown adapter %q", c.Bus.Adapter)}
	}

	if c.Bus.Checksum != "" {
		if _, err := frame.ParseChecksumMode(c.Bus.Checksum); err != nil {
			return &LoadError{Message: "invalid bus.checksum", Cause: err}
		}
	}
	if c.Bus.ResponseTimeout < 0 {
		return &LoadError{Message: "bus.response_timeout must not be negative"}
	}
	if c.Bus.Retry.Attempts < 0 {
		return &LoadError{Message: "bus.retry.attempts must not be negative"}
	}

	seen := make(map[uint8]string, len(c.Motors))
	for _, m := range c.Motors {
		if m.Address == uint8(frame.BroadcastAddress) {
			return &LoadError{Message: fmt.Sprintf("motor %q uses the reserved broadcast address", m.Name)}
		}
		if other, dup := seen[m.Address]; dup {
			return &LoadError{Message: fmt.Sprintf("motors %q and %q share address %d", other, m.Name, m.Address)}
		}
		seen[m.Address] = m.Name

		if m.Limited() && m.MinDegrees >= m.MaxDegrees {
			return &LoadError{Message: fmt.Sprintf("motor %q: min_degrees must be below max_degrees", m.Name)}
		}
	}
	return nil
}

// ChecksumMode returns the parsed checksum mode. Call Validate first;
// an unparseable mode falls back to the fixed checksum here.
func (b *Bus) ChecksumMode() frame.ChecksumMode {
	if b.Checksum == "" {
		return frame.ChecksumFixed
	}
	mode, err := frame.ParseChecksumMode(b.Checksum)
	if err != nil {
		return frame.ChecksumFixed
	}
	return mode
}

// BusConfig converts the bus section for transport.NewBus.
func (b *Bus) BusConfig() transport.BusConfig {
	return transport.BusConfig{
		Name:            b.Name,
		Checksum:        b.ChecksumMode(),
		ResponseTimeout: b.ResponseTimeout,
		RetryAttempts:   b.Retry.Attempts,
		RetryDelay:      b.Retry.Delay,
	}
}

// SerialConfig converts the serial section for transport.OpenSerial.
func (b *Bus) SerialConfig() transport.SerialConfig {
	return transport.SerialConfig{
		Port:       b.Serial.Port,
		BaudRate:   b.Serial.BaudRate,
		CANBitrate: b.Serial.CANBitrate,
	}
}

// TCPConfig converts the tcp section for transport.DialTCP.
func (b *Bus) TCPConfig() transport.TCPConfig {
	return transport.TCPConfig{
		Address:        b.TCP.Address,
		ConnectTimeout: b.TCP.ConnectTimeout,
	}
}
