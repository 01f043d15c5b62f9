// Package interactive provides the interactive command-line interface
// for drivecan-ctl.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/motor"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

// commandTimeout bounds a single command/response exchange.
const commandTimeout = 5 * time.Second

// homingWaitTimeout bounds the blocking home-wait command.
const homingWaitTimeout = 60 * time.Second

// Entry associates a controller with its configured name and optional
// soft travel limits.
type Entry struct {
	Controller *motor.Controller
	Name       string

	// MinDegrees and MaxDegrees bound absolute moves. Both zero
	// means unlimited.
	MinDegrees float64
	MaxDegrees float64
}

func (e *Entry) limited() bool {
	return e.MinDegrees != 0 || e.MaxDegrees != 0
}

// Shell handles interactive mode for drivecan-ctl.
type Shell struct {
	bus    *transport.Bus
	motors map[uint8]*Entry
	active uint8
	rl     *readline.Instance
}

// New creates a new interactive shell over the bus.
func New(bus *transport.Bus) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "drivecan> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		bus:    bus,
		motors: make(map[uint8]*Entry),
		rl:     rl,
	}, nil
}

// AddMotor registers a controller with the shell. The first motor
// added becomes the active one.
func (s *Shell) AddMotor(entry *Entry) {
	addr := uint8(entry.Controller.Address())
	s.motors[addr] = entry
	if s.active == 0 {
		s.active = addr
		s.rl.SetPrompt(s.prompt())
	}
}

// Stdout returns a writer that coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "motors", "m":
			s.cmdMotors()

		case "use", "u":
			s.cmdUse(args)

		case "enable", "on":
			s.simple(args, "enabled", func(ctx context.Context, c *motor.Controller) error {
				return c.Control().Enable(ctx)
			})

		case "disable", "off":
			s.simple(args, "disabled", func(ctx context.Context, c *motor.Controller) error {
				return c.Control().Disable(ctx)
			})

		case "stop":
			s.simple(args, "stopped", func(ctx context.Context, c *motor.Controller) error {
				return c.Control().Stop(ctx)
			})

		case "move", "mv":
			s.cmdMove(args)

		case "speed":
			s.cmdSpeed(args)

		case "torque":
			s.cmdTorque(args)

		case "sync":
			s.cmdSync()

		case "wait":
			s.cmdWait(args)

		case "home":
			s.cmdHome(args)

		case "home-abort":
			s.simple(args, "homing aborted", func(ctx context.Context, c *motor.Controller) error {
				return c.Homing().AbortHoming(ctx)
			})

		case "home-status":
			s.cmdHomeStatus(args)

		case "home-wait":
			s.cmdHomeWait(args)

		case "zero":
			s.cmdZero(args)

		case "status", "st":
			s.cmdStatus(args)

		case "read", "r":
			s.cmdRead(args)

		case "params":
			s.cmdParams(args)

		case "subdivision":
			s.cmdSubdivision(args)

		case "address":
			s.cmdAddress(args)

		case "calibrate":
			s.simple(args, "encoder calibration started", func(ctx context.Context, c *motor.Controller) error {
				return c.Trigger().CalibrateEncoder(ctx)
			})

		case "clear-position":
			s.simple(args, "position cleared", func(ctx context.Context, c *motor.Controller) error {
				return c.Trigger().ClearPosition(ctx)
			})

		case "release-stall":
			s.simple(args, "stall protection released", func(ctx context.Context, c *motor.Controller) error {
				return c.Trigger().ReleaseStallProtection(ctx)
			})

		case "factory-reset":
			s.simple(args, "factory reset issued", func(ctx context.Context, c *motor.Controller) error {
				return c.Trigger().FactoryReset(ctx)
			})

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
DriveCAN Commands:
  Motor Selection:
    motors             - List configured motors
    use <addr>         - Select the active motor

  Motion:
    enable / disable   - Switch the driver stage on or off
    move <deg> [rpm] [rel] [defer]  - Move to a position
    speed <rpm> [accel] [defer]     - Run at constant speed
    torque <ma> [slope] [defer]     - Run in torque mode
    stop               - Stop immediately
    sync               - Fire all deferred motion commands
    wait               - Block until the drive reports in-position

  Homing:
    home [mode]        - Trigger homing (nearest, directional, collision, switch, absolute, power-down)
    home-abort         - Abort an active homing run
    home-status        - Show homing flags and state
    home-wait          - Block until homing completes
    zero [save]        - Set the current position as zero

  Inspection:
    status             - Show the full system status record
    read <what>        - Read one value (position, speed, temp, voltage,
                         current, version, pulses, encoder, error)
    params             - Show drive parameters

  Configuration:
    subdivision <n> [save]  - Change microstep subdivision
    address <addr> [save]   - Change the motor CAN address
    calibrate               - Trigger encoder calibration
    clear-position          - Clear the position counter
    release-stall           - Release stall protection
    factory-reset           - Restore factory settings

  General:
    help               - Show this help
    quit               - Exit`)
}

func (s *Shell) prompt() string {
	if entry, ok := s.motors[s.active]; ok && entry.Name != "" {
		return fmt.Sprintf("drivecan[%s]> ", entry.Name)
	}
	return fmt.Sprintf("drivecan[%d]> ", s.active)
}

// current returns the active motor entry, or nil after printing an
// error.
func (s *Shell) current() *Entry {
	entry, ok := s.motors[s.active]
	if !ok {
		fmt.Fprintln(s.rl.Stdout(), "No motor selected (use 'motors' to list, 'use <addr>' to select)")
		return nil
	}
	return entry
}

// simple runs a no-argument controller command against the active
// motor and prints a confirmation.
func (s *Shell) simple(args []string, done string, fn func(context.Context, *motor.Controller) error) {
	if len(args) != 0 {
		fmt.Fprintln(s.rl.Stdout(), "Command takes no arguments")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := fn(ctx, entry.Controller); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Motor %d %s\n", entry.Controller.Address(), done)
}

func (s *Shell) cmdMotors() {
	if len(s.motors) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No motors configured")
		return
	}

	addrs := make([]int, 0, len(s.motors))
	for addr := range s.motors {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)

	for _, addr := range addrs {
		entry := s.motors[uint8(addr)]
		marker := " "
		if uint8(addr) == s.active {
			marker = "*"
		}
		limits := "unlimited"
		if entry.limited() {
			limits = fmt.Sprintf("%.1f..%.1f deg", entry.MinDegrees, entry.MaxDegrees)
		}
		fmt.Fprintf(s.rl.Stdout(), "%s [%3d] %-16s travel: %s\n", marker, addr, entry.Name, limits)
	}
}

func (s *Shell) cmdUse(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: use <addr>")
		return
	}
	addr, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid address: %v\n", err)
		return
	}
	if _, ok := s.motors[uint8(addr)]; !ok {
		fmt.Fprintf(s.rl.Stdout(), "No motor at address %d\n", addr)
		return
	}
	s.active = uint8(addr)
	s.rl.SetPrompt(s.prompt())
}

func (s *Shell) cmdMove(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: move <degrees> [rpm] [rel] [defer]")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	degrees, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid position: %v\n", err)
		return
	}

	speed := 120.0
	absolute := true
	deferred := false
	for _, arg := range args[1:] {
		switch strings.ToLower(arg) {
		case "rel", "relative":
			absolute = false
		case "defer", "deferred":
			deferred = true
		default:
			speed, err = strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Fprintf(s.rl.Stdout(), "Invalid speed: %v\n", err)
				return
			}
		}
	}

	if absolute && entry.limited() && (degrees < entry.MinDegrees || degrees > entry.MaxDegrees) {
		fmt.Fprintf(s.rl.Stdout(), "Target %.1f outside travel limits (%.1f..%.1f)\n",
			degrees, entry.MinDegrees, entry.MaxDegrees)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Control().MoveToPosition(ctx, degrees, speed, absolute, deferred); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if deferred {
		fmt.Fprintln(s.rl.Stdout(), "Move queued (fire with 'sync')")
	} else {
		fmt.Fprintf(s.rl.Stdout(), "Moving to %.1f deg at %.0f rpm\n", degrees, speed)
	}
}

func (s *Shell) cmdSpeed(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: speed <rpm> [accel] [defer]")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	rpm, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid speed: %v\n", err)
		return
	}

	accel := uint16(0)
	deferred := false
	for _, arg := range args[1:] {
		if strings.EqualFold(arg, "defer") || strings.EqualFold(arg, "deferred") {
			deferred = true
			continue
		}
		v, err := strconv.ParseUint(arg, 10, 16)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid acceleration: %v\n", err)
			return
		}
		accel = uint16(v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Control().SetSpeed(ctx, rpm, accel, deferred); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if deferred {
		fmt.Fprintln(s.rl.Stdout(), "Speed command queued (fire with 'sync')")
	} else {
		fmt.Fprintf(s.rl.Stdout(), "Running at %.1f rpm\n", rpm)
	}
}

func (s *Shell) cmdTorque(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: torque <ma> [slope] [defer]")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	currentMA, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid current: %v\n", err)
		return
	}

	slope := uint16(0)
	deferred := false
	for _, arg := range args[1:] {
		if strings.EqualFold(arg, "defer") || strings.EqualFold(arg, "deferred") {
			deferred = true
			continue
		}
		v, err := strconv.ParseUint(arg, 10, 16)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid slope: %v\n", err)
			return
		}
		slope = uint16(v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Control().SetTorque(ctx, int32(currentMA), slope, deferred); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Torque set to %d mA\n", currentMA)
}

func (s *Shell) cmdSync() {
	entry := s.current()
	if entry == nil {
		return
	}

	pending := s.bus.SyncGroup().Len()
	if err := entry.Controller.Control().SyncMotion(); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if pending == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No deferred commands pending")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Fired deferred motion on %d motor(s)\n", pending)
}

func (s *Shell) cmdWait(args []string) {
	entry := s.current()
	if entry == nil {
		return
	}

	timeout := 30 * time.Second
	if len(args) >= 1 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid timeout: %v\n", err)
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := entry.Controller.Control().WaitForInPosition(ctx, 0); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "In position")
}

func (s *Shell) cmdHome(args []string) {
	entry := s.current()
	if entry == nil {
		return
	}

	mode := motor.HomingModeNearest
	if len(args) >= 1 {
		switch strings.ToLower(args[0]) {
		case "nearest":
			mode = motor.HomingModeNearest
		case "directional", "dir":
			mode = motor.HomingModeDirectional
		case "collision":
			mode = motor.HomingModeCollision
		case "switch", "limit", "limit-switch":
			mode = motor.HomingModeLimitSwitch
		case "absolute", "absolute-zero":
			mode = motor.HomingModeAbsoluteZero
		case "power-down", "last":
			mode = motor.HomingModeLastPowerDown
		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown homing mode: %s\n", args[0])
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Homing().TriggerHoming(ctx, mode); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Homing started (%s), follow with 'home-wait' or 'home-status'\n", mode)
}

func (s *Shell) cmdHomeStatus(args []string) {
	if len(args) != 0 {
		fmt.Fprintln(s.rl.Stdout(), "Command takes no arguments")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	status, err := entry.Controller.Homing().GetHomingStatus(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "  State:             %s\n", entry.Controller.Homing().State())
	fmt.Fprintf(s.rl.Stdout(), "  Encoder ready:     %v\n", status.EncoderReady)
	fmt.Fprintf(s.rl.Stdout(), "  Calibration ready: %v\n", status.CalibrationTableReady)
	fmt.Fprintf(s.rl.Stdout(), "  In progress:       %v\n", status.InProgress)
	fmt.Fprintf(s.rl.Stdout(), "  Failed:            %v\n", status.Failed)
}

func (s *Shell) cmdHomeWait(args []string) {
	entry := s.current()
	if entry == nil {
		return
	}

	timeout := homingWaitTimeout
	if len(args) >= 1 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "Invalid timeout: %v\n", err)
			return
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	if err := entry.Controller.Homing().WaitForHomingComplete(ctx, 0, timeout); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Homing complete")
}

func (s *Shell) cmdZero(args []string) {
	entry := s.current()
	if entry == nil {
		return
	}
	save := len(args) >= 1 && strings.EqualFold(args[0], "save")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Homing().SetZeroPosition(ctx, save); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Zero position set")
}

func (s *Shell) cmdStatus(args []string) {
	if len(args) != 0 {
		fmt.Fprintln(s.rl.Stdout(), "Command takes no arguments")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	st, err := entry.Controller.Read().SystemStatus(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.rl.Stdout(), "\nMotor %d (%s)\n", entry.Controller.Address(), entry.Name)
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Status:         %s\n", st.Motor)
	fmt.Fprintf(s.rl.Stdout(), "  Position:       %.2f deg\n", st.RealtimePosition)
	fmt.Fprintf(s.rl.Stdout(), "  Target:         %.2f deg\n", st.TargetPosition)
	fmt.Fprintf(s.rl.Stdout(), "  Position error: %.2f deg\n", st.PositionError)
	fmt.Fprintf(s.rl.Stdout(), "  Speed:          %.1f rpm\n", st.Speed)
	fmt.Fprintf(s.rl.Stdout(), "  Bus voltage:    %.2f V\n", st.BusVoltage)
	fmt.Fprintf(s.rl.Stdout(), "  Bus current:    %.3f A\n", st.BusCurrent)
	fmt.Fprintf(s.rl.Stdout(), "  Phase current:  %.3f A\n", st.PhaseCurrent)
	fmt.Fprintf(s.rl.Stdout(), "  Temperature:    %.0f C\n", st.Temperature)
	fmt.Fprintf(s.rl.Stdout(), "  Homing state:   %s\n", entry.Controller.Homing().State())
	fmt.Fprintln(s.rl.Stdout())
}

func (s *Shell) cmdRead(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: read <what>")
		fmt.Fprintln(s.rl.Stdout(), "  position speed temp voltage current phase-current")
		fmt.Fprintln(s.rl.Stdout(), "  version pulses input-pulses encoder encoder-raw error target")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}
	reads := entry.Controller.Read()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var line string
	var err error
	switch strings.ToLower(args[0]) {
	case "position", "pos":
		var v float64
		if v, err = reads.Position(ctx); err == nil {
			line = fmt.Sprintf("Position: %.2f deg", v)
		}
	case "target":
		var v float64
		if v, err = reads.TargetPosition(ctx); err == nil {
			line = fmt.Sprintf("Target: %.2f deg", v)
		}
	case "error", "err":
		var v float64
		if v, err = reads.PositionError(ctx); err == nil {
			line = fmt.Sprintf("Position error: %.2f deg", v)
		}
	case "speed":
		var v float64
		if v, err = reads.Speed(ctx); err == nil {
			line = fmt.Sprintf("Speed: %.1f rpm", v)
		}
	case "temp", "temperature":
		var v float64
		if v, err = reads.Temperature(ctx); err == nil {
			line = fmt.Sprintf("Temperature: %.0f C", v)
		}
	case "voltage":
		var v float64
		if v, err = reads.BusVoltage(ctx); err == nil {
			line = fmt.Sprintf("Bus voltage: %.2f V", v)
		}
	case "current":
		var v float64
		if v, err = reads.BusCurrent(ctx); err == nil {
			line = fmt.Sprintf("Bus current: %.3f A", v)
		}
	case "phase-current":
		var v float64
		if v, err = reads.PhaseCurrent(ctx); err == nil {
			line = fmt.Sprintf("Phase current: %.3f A", v)
		}
	case "version":
		var v motor.Version
		if v, err = reads.Version(ctx); err == nil {
			line = fmt.Sprintf("Version: %s", v)
		}
	case "pulses":
		var v int64
		if v, err = reads.PulseCount(ctx); err == nil {
			line = fmt.Sprintf("Pulse count: %d", v)
		}
	case "input-pulses":
		var v int64
		if v, err = reads.InputPulses(ctx); err == nil {
			line = fmt.Sprintf("Input pulses: %d", v)
		}
	case "encoder":
		var v float64
		if v, err = reads.EncoderCalibrated(ctx); err == nil {
			line = fmt.Sprintf("Encoder (calibrated): %.2f deg", v)
		}
	case "encoder-raw":
		var v float64
		if v, err = reads.EncoderRaw(ctx); err == nil {
			line = fmt.Sprintf("Encoder (raw): %.2f deg", v)
		}
	default:
		fmt.Fprintf(s.rl.Stdout(), "Unknown value: %s\n", args[0])
		return
	}

	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), line)
}

func (s *Shell) cmdParams(args []string) {
	if len(args) != 0 {
		fmt.Fprintln(s.rl.Stdout(), "Command takes no arguments")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	p, err := entry.Controller.Read().DriveParameters(ctx)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	subdivision := p.Subdivision
	if subdivision == 0 {
		subdivision = 256
	}

	fmt.Fprintln(s.rl.Stdout(), "\nDrive Parameters")
	fmt.Fprintln(s.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(s.rl.Stdout(), "  Control mode:        %d\n", p.ControlMode)
	fmt.Fprintf(s.rl.Stdout(), "  Subdivision:         %d\n", subdivision)
	fmt.Fprintf(s.rl.Stdout(), "  Direction:           %d\n", p.Direction)
	fmt.Fprintf(s.rl.Stdout(), "  Open loop current:   %d mA\n", p.OpenLoopCurrentMA)
	fmt.Fprintf(s.rl.Stdout(), "  Closed loop max:     %d mA\n", p.ClosedLoopMaxMA)
	fmt.Fprintf(s.rl.Stdout(), "  Max speed:           %d rpm\n", p.MaxSpeedRPM)
	fmt.Fprintf(s.rl.Stdout(), "  Stall protection:    %v\n", p.StallProtection)
	fmt.Fprintf(s.rl.Stdout(), "  Stall speed:         %d rpm\n", p.StallSpeedRPM)
	fmt.Fprintf(s.rl.Stdout(), "  Stall current:       %d mA\n", p.StallCurrentMA)
	fmt.Fprintf(s.rl.Stdout(), "  Stall time:          %d ms\n", p.StallTimeMs)
	fmt.Fprintf(s.rl.Stdout(), "  Position window:     %d (0.1 deg)\n", p.PositionWindow)
	fmt.Fprintln(s.rl.Stdout())
}

func (s *Shell) cmdSubdivision(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: subdivision <n> [save]")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	value, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid subdivision: %v\n", err)
		return
	}
	save := len(args) >= 2 && strings.EqualFold(args[1], "save")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Modify().Subdivision(ctx, uint16(value), save); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Subdivision set to %d\n", value)
}

func (s *Shell) cmdAddress(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: address <addr> [save]")
		return
	}
	entry := s.current()
	if entry == nil {
		return
	}

	addr, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid address: %v\n", err)
		return
	}
	save := len(args) >= 2 && strings.EqualFold(args[1], "save")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := entry.Controller.Modify().MotorAddress(ctx, frame.MotorAddress(addr), save); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}

	// The controller follows the drive to its new address; rekey the
	// shell's table so selection stays consistent.
	delete(s.motors, s.active)
	s.motors[uint8(addr)] = entry
	s.active = uint8(addr)
	s.rl.SetPrompt(s.prompt())

	fmt.Fprintf(s.rl.Stdout(), "Motor address changed to %d\n", addr)
}
