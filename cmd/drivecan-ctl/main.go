// Command drivecan-ctl is an interactive controller for DriveCAN
// stepper drives.
//
// It connects to a CAN bus through an SLCAN serial adapter, a
// CAN-over-TCP gateway or the built-in simulator, and offers an
// interactive shell for motion, homing and configuration commands.
//
// Usage:
//
//	drivecan-ctl [flags]
//
// Flags:
//
//	-config string    Configuration file path (YAML)
//	-sim              Use the built-in drive simulator instead of hardware
//	-log string       Protocol log file (overrides the config file)
//	-verbose          Echo protocol events to the console
//	-discover         Browse for DriveCAN gateways via mDNS and exit
//	-bus string       With -discover, resolve a single gateway by bus name
//
// Examples:
//
//	# Interactive session against real hardware
//	drivecan-ctl -config bench.yaml
//
//	# Try the shell without hardware
//	drivecan-ctl -sim
//
//	# Find CAN-over-TCP gateways on the local network
//	drivecan-ctl -discover
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/drivecan-protocol/drivecan-go/cmd/drivecan-ctl/interactive"
	"github.com/drivecan-protocol/drivecan-go/pkg/config"
	"github.com/drivecan-protocol/drivecan-go/pkg/connection"
	"github.com/drivecan-protocol/drivecan-go/pkg/devicesim"
	"github.com/drivecan-protocol/drivecan-go/pkg/discovery"
	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	dlog "github.com/drivecan-protocol/drivecan-go/pkg/log"
	"github.com/drivecan-protocol/drivecan-go/pkg/motor"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

const discoverTimeout = 5 * time.Second

var opts struct {
	ConfigFile string
	Sim        bool
	LogFile    string
	Verbose    bool
	Discover   bool
	BusName    string
}

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.BoolVar(&opts.Sim, "sim", false, "Use the built-in drive simulator instead of hardware")
	flag.StringVar(&opts.LogFile, "log", "", "Protocol log file (overrides the config file)")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Echo protocol events to the console")
	flag.BoolVar(&opts.Discover, "discover", false, "Browse for DriveCAN gateways via mDNS and exit")
	flag.StringVar(&opts.BusName, "bus", "", "With -discover, resolve a single gateway by bus name")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	if opts.Discover {
		if err := runDiscover(); err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	plog, closeLog, err := openProtocolLog(cfg)
	if err != nil {
		log.Fatalf("Failed to open protocol log: %v", err)
	}
	defer closeLog()

	var bus *transport.Bus
	mgr := connection.NewManager(func(ctx context.Context) error {
		conn, err := openAdapter(ctx, cfg)
		if err != nil {
			return err
		}
		busCfg := cfg.Bus.BusConfig()
		busCfg.ProtocolLogger = plog
		bus = transport.NewBus(conn, busCfg)
		return nil
	})
	mgr.OnStateChange(func(oldState, newState connection.State) {
		log.Printf("Connection: %s -> %s", oldState, newState)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer mgr.Close()
	defer bus.Close()

	log.Printf("Connected to bus %q (session %s)", cfg.Bus.Name, bus.SessionID())

	shell, err := interactive.New(bus)
	if err != nil {
		log.Fatalf("Failed to start shell: %v", err)
	}

	for _, m := range cfg.Motors {
		ctrl, err := motor.NewController(bus, frame.MotorAddress(m.Address), motor.ControllerConfig{
			Logger:     plog,
			MinDegrees: m.MinDegrees,
			MaxDegrees: m.MaxDegrees,
		})
		if err != nil {
			log.Fatalf("Motor %d: %v", m.Address, err)
		}
		shell.AddMotor(&interactive.Entry{
			Controller: ctrl,
			Name:       m.Name,
			MinDegrees: m.MinDegrees,
			MaxDegrees: m.MaxDegrees,
		})
	}

	// Exit cleanly on SIGINT/SIGTERM even while the shell waits for
	// input.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	shell.Run(ctx, cancel)
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

// openAdapter opens the transport selected by the bus section.
func openAdapter(ctx context.Context, cfg *config.Config) (transport.CANConn, error) {
	switch cfg.Bus.Adapter {
	case config.AdapterSLCAN:
		return transport.OpenSerial(cfg.Bus.SerialConfig())

	case config.AdapterTCP:
		return transport.DialTCP(ctx, cfg.Bus.TCPConfig())

	case config.AdapterSim:
		sim := devicesim.New(devicesim.Config{Checksum: cfg.Bus.ChecksumMode()})
		for _, m := range cfg.Motors {
			sim.AddMotor(frame.MotorAddress(m.Address))
		}
		return sim, nil

	default:
		return nil, fmt.Errorf("unknown adapter %q", cfg.Bus.Adapter)
	}
}

// openProtocolLog builds the protocol logger: a log file when one is
// configured, plus a console echo with -verbose.
func openProtocolLog(cfg *config.Config) (dlog.Logger, func(), error) {
	path := opts.LogFile
	if path == "" {
		path = cfg.Log.File
	}

	var fl *dlog.FileLogger
	if path != "" {
		var err error
		fl, err = dlog.NewFileLogger(path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Protocol log: %s", path)
	}

	var console dlog.Logger
	if opts.Verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		console = dlog.NewSlogAdapter(slog.New(handler))
	}

	closeLog := func() {
		if fl == nil {
			return
		}
		if err := fl.Close(); err != nil {
			log.Printf("Failed to close protocol log: %v", err)
		}
	}

	switch {
	case fl != nil && console != nil:
		return dlog.NewMultiLogger(fl, console), closeLog, nil
	case fl != nil:
		return fl, closeLog, nil
	case console != nil:
		return console, closeLog, nil
	default:
		return dlog.NoopLogger{}, closeLog, nil
	}
}

// runDiscover browses for DriveCAN gateways and prints them.
func runDiscover() error {
	browser := discovery.NewBrowser(discovery.BrowserConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	if opts.BusName != "" {
		gw, err := browser.FindByBusName(ctx, opts.BusName)
		if err != nil {
			return err
		}
		printGateway(gw)
		return nil
	}

	services, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	found := 0
	for gw := range services {
		printGateway(gw)
		found++
	}
	if found == 0 {
		fmt.Println("No gateways found")
	}
	return nil
}

func printGateway(gw *discovery.GatewayService) {
	fmt.Printf("%s\n", gw.InstanceName)
	fmt.Printf("  Endpoint: %s\n", gw.Endpoint())
	fmt.Printf("  Bus:      %s\n", gw.Info.BusName)
	if gw.Info.CANBitrate != 0 {
		fmt.Printf("  Bitrate:  %d\n", gw.Info.CANBitrate)
	}
	if gw.Info.Checksum != "" {
		fmt.Printf("  Checksum: %s\n", gw.Info.Checksum)
	}
	if len(gw.Info.Motors) > 0 {
		addrs := make([]string, len(gw.Info.Motors))
		for i, a := range gw.Info.Motors {
			addrs[i] = fmt.Sprintf("%d", a)
		}
		fmt.Printf("  Motors:   %s\n", strings.Join(addrs, ", "))
	}
	if gw.Info.Version != "" {
		fmt.Printf("  Version:  %s\n", gw.Info.Version)
	}
	fmt.Println()
}
