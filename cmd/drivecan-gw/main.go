// Command drivecan-gw exposes a local CAN bus to the network as a
// CAN-over-TCP gateway.
//
// It bridges SLCAN frames between TCP clients and an SLCAN serial
// adapter (or the built-in simulator) and announces itself via mDNS as
// a _drivecan._tcp service, so drivecan-ctl -discover can find it.
//
// Usage:
//
//	drivecan-gw [flags]
//
// Flags:
//
//	-config string    Configuration file path (YAML)
//	-sim              Serve the built-in drive simulator instead of hardware
//	-listen string    TCP listen address (default: all interfaces, port 2323)
//	-name string      mDNS instance name (default: the bus name)
//	-no-advertise     Skip the mDNS announcement
//
// Examples:
//
//	# Share the bench adapter on the default port
//	drivecan-gw -config bench.yaml
//
//	# A discoverable simulator for testing clients
//	drivecan-gw -sim -name test-bench
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/drivecan-protocol/drivecan-go/pkg/config"
	"github.com/drivecan-protocol/drivecan-go/pkg/devicesim"
	"github.com/drivecan-protocol/drivecan-go/pkg/discovery"
	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/gateway"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

var opts struct {
	ConfigFile  string
	Sim         bool
	Listen      string
	Name        string
	NoAdvertise bool
}

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.BoolVar(&opts.Sim, "sim", false, "Serve the built-in drive simulator instead of hardware")
	flag.StringVar(&opts.Listen, "listen", "", "TCP listen address (default: all interfaces, port 2323)")
	flag.StringVar(&opts.Name, "name", "", "mDNS instance name (default: the bus name)")
	flag.BoolVar(&opts.NoAdvertise, "no-advertise", false, "Skip the mDNS announcement")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	conn, err := openAdapter(cfg)
	if err != nil {
		log.Fatalf("Failed to open adapter: %v", err)
	}
	defer conn.Close()

	gw, err := gateway.New(conn, gatewayConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to start gateway: %v", err)
	}
	defer gw.Close()

	log.Printf("Serving bus %q on %s", cfg.Bus.Name, gw.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := gw.Serve(ctx); err != nil {
		log.Fatalf("Gateway stopped: %v", err)
	}
}

// loadConfig reads the configuration file, or synthesizes a simulator
// setup when -sim is given without one.
func loadConfig() (*config.Config, error) {
	if opts.ConfigFile == "" {
		if !opts.Sim {
			return nil, fmt.Errorf("either -config or -sim is required")
		}
		cfg := &config.Config{
			Bus: config.Bus{
				Name:    "sim",
				Adapter: config.AdapterSim,
			},
			Motors: []config.Motor{
				{Address: 1, Name: "motor-1"},
				{Address: 2, Name: "motor-2"},
			},
		}
		return cfg, cfg.Validate()
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Sim {
		cfg.Bus.Adapter = config.AdapterSim
	}
	return cfg, nil
}

// openAdapter opens the bus-side transport. A TCP adapter makes no
// sense here: that is what this command provides.
func openAdapter(cfg *config.Config) (transport.CANConn, error) {
	switch cfg.Bus.Adapter {
	case config.AdapterSLCAN:
		return transport.OpenSerial(cfg.Bus.SerialConfig())

	case config.AdapterSim:
		sim := devicesim.New(devicesim.Config{Checksum: cfg.Bus.ChecksumMode()})
		for _, m := range cfg.Motors {
			sim.AddMotor(frame.MotorAddress(m.Address))
		}
		return sim, nil

	case config.AdapterTCP:
		return nil, fmt.Errorf("cannot serve a gateway in front of another gateway")

	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Bus.Adapter)
	}
}

// gatewayConfig builds the gateway settings, including the discovery
// TXT records describing the bus.
func gatewayConfig(cfg *config.Config) gateway.Config {
	gc := gateway.Config{Listen: opts.Listen}
	if opts.NoAdvertise {
		return gc
	}

	gc.InstanceName = opts.Name
	if gc.InstanceName == "" {
		gc.InstanceName = cfg.Bus.Name
	}

	motors := make([]uint8, 0, len(cfg.Motors))
	for _, m := range cfg.Motors {
		motors = append(motors, m.Address)
	}
	gc.Info = &discovery.GatewayInfo{
		BusName:    cfg.Bus.Name,
		CANBitrate: cfg.Bus.Serial.CANBitrate,
		Checksum:   cfg.Bus.ChecksumMode().String(),
		Motors:     motors,
	}
	return gc
}
