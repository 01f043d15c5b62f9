package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

const sampleYAML = `
bus:
  name: arm
  adapter: slcan
  serial:
    port: /dev/ttyACM0
    baud_rate: 115200
    can_bitrate: 500000
  checksum: crc8
  response_timeout: 500ms
  retry:
    attempts: 5
    delay: 20ms
motors:
  - address: 1
    name: base
    min_degrees: -170
    max_degrees: 170
  - address: 2
    name: shoulder
log:
  file: arm.dlog
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "arm", cfg.Bus.Name)
	assert.Equal(t, AdapterSLCAN, cfg.Bus.Adapter)
	assert.Equal(t, "/dev/ttyACM0", cfg.Bus.Serial.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Bus.ResponseTimeout)
	assert.Equal(t, 5, cfg.Bus.Retry.Attempts)
	assert.Equal(t, frame.ChecksumCRC8, cfg.Bus.ChecksumMode())

	require.Len(t, cfg.Motors, 2)
	assert.Equal(t, uint8(1), cfg.Motors[0].Address)
	assert.True(t, cfg.Motors[0].Limited())
	assert.False(t, cfg.Motors[1].Limited())
	assert.Equal(t, "arm.dlog", cfg.Log.File)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("bus: ["))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "parse")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bus: Bus{Adapter: AdapterSim},
			Motors: []Motor{
				{Address: 1, Name: "a"},
				{Address: 2, Name: "b"},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing adapter", func(c *Config) { c.Bus.Adapter = "" }},
		{"unknown adapter", func(c *Config) { c.Bus.Adapter = "socketcan" }},
		{"slcan without port", func(c *Config) { c.Bus.Adapter = AdapterSLCAN }},
		{"tcp without address", func(c *Config) { c.Bus.Adapter = AdapterTCP }},
		{"bad checksum", func(c *Config) { c.Bus.Checksum = "md5" }},
		{"negative retries", func(c *Config) { c.Bus.Retry.Attempts = -1 }},
		{"broadcast address", func(c *Config) { c.Motors[0].Address = 0 }},
		{"duplicate address", func(c *Config) { c.Motors[1].Address = 1 }},
		{"inverted limits", func(c *Config) { c.Motors[0].MinDegrees = 90; c.Motors[0].MaxDegrees = -90 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "arm", cfg.Bus.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.NotEmpty(t, le.File)
}

func TestBusConfigConversion(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	bc := cfg.Bus.BusConfig()
	assert.Equal(t, "arm", bc.Name)
	assert.Equal(t, frame.ChecksumCRC8, bc.Checksum)
	assert.Equal(t, 5, bc.RetryAttempts)

	sc := cfg.Bus.SerialConfig()
	assert.Equal(t, "/dev/ttyACM0", sc.Port)
	assert.Equal(t, 500000, sc.CANBitrate)
}
