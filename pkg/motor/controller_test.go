package motor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/devicesim"
	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/motor"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

func newTestController(t *testing.T, addr frame.MotorAddress) (*devicesim.Simulator, *motor.Controller) {
	t.Helper()
	sim := devicesim.New(devicesim.Config{})
	sim.AddMotor(addr)
	bus := transport.NewBus(sim, transport.BusConfig{
		ResponseTimeout: 200 * time.Millisecond,
		RetryDelay:      5 * time.Millisecond,
	})
	t.Cleanup(func() { bus.Close() })

	c, err := motor.NewController(bus, addr, motor.ControllerConfig{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return sim, c
}

func TestNewControllerRejectsBroadcast(t *testing.T) {
	sim := devicesim.New(devicesim.Config{})
	bus := transport.NewBus(sim, transport.BusConfig{})
	defer bus.Close()

	if _, err := motor.NewController(bus, frame.BroadcastAddress, motor.ControllerConfig{}); err == nil {
		t.Fatal("NewController(broadcast) should fail")
	}
}

func TestEnableAndMove(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Control().Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := c.Control().MoveToPosition(ctx, 90.0, 120, true, false); err != nil {
		t.Fatalf("MoveToPosition: %v", err)
	}

	m, _ := sim.Motor(1)
	if got := m.Position(); got != 90.0 {
		t.Errorf("position = %v, want 90", got)
	}

	pos, err := c.Read().Position(ctx)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != 90.0 {
		t.Errorf("read position = %v, want 90", pos)
	}
}

func TestMoveWhileDisabledIsConditionNotMet(t *testing.T) {
	_, c := newTestController(t, 1)

	err := c.Control().MoveToPosition(context.Background(), 45.0, 60, true, false)
	if !errors.Is(err, motor.ErrConditionNotMet) {
		t.Fatalf("err = %v, want ErrConditionNotMet", err)
	}

	var opErr *motor.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v, want *OpError", err)
	}
	if opErr.Addr != 1 || opErr.Op != "move to position" {
		t.Errorf("OpError = %+v, want addr 1 op %q", opErr, "move to position")
	}
}

func TestMalformedCommandIsRejected(t *testing.T) {
	_, c := newTestController(t, 1)

	// A stop with the wrong guard byte draws the generic rejection.
	resp, err := c.Bus().Exchange(context.Background(), 1, frame.NewCommand(frame.FuncStop, 0x13, 0x00))
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if !resp.Rejected() {
		t.Fatal("malformed stop should be rejected")
	}
}

func TestSyncGroupMotion(t *testing.T) {
	sim, c1 := newTestController(t, 1)
	sim.AddMotor(2)
	c2, err := motor.NewController(c1.Bus(), 2, motor.ControllerConfig{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctx := context.Background()

	for _, c := range []*motor.Controller{c1, c2} {
		if err := c.Control().Enable(ctx); err != nil {
			t.Fatalf("Enable: %v", err)
		}
	}

	if err := c1.Control().MoveToPosition(ctx, 90.0, 120, true, true); err != nil {
		t.Fatalf("deferred move 1: %v", err)
	}
	if err := c2.Control().MoveToPositionTrapezoid(ctx, -45.0, 120, 100, 100, true, true); err != nil {
		t.Fatalf("deferred move 2: %v", err)
	}

	if got := c1.Bus().SyncGroup().Len(); got != 2 {
		t.Fatalf("sync group size = %d, want 2", got)
	}

	m1, _ := sim.Motor(1)
	m2, _ := sim.Motor(2)
	if m1.Position() != 0 || m2.Position() != 0 {
		t.Fatal("deferred moves should not execute before sync")
	}

	if err := c1.Control().SyncMotion(); err != nil {
		t.Fatalf("SyncMotion: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m1.Position() == 90.0 && m2.Position() == -45.0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if m1.Position() != 90.0 {
		t.Errorf("motor 1 position = %v, want 90", m1.Position())
	}
	if m2.Position() != -45.0 {
		t.Errorf("motor 2 position = %v, want -45", m2.Position())
	}

	if got := c1.Bus().SyncGroup().Len(); got != 0 {
		t.Errorf("sync group size after sync = %d, want 0", got)
	}
}

func TestSyncMotionEmptyGroupIsNoop(t *testing.T) {
	_, c := newTestController(t, 1)
	if err := c.Control().SyncMotion(); err != nil {
		t.Fatalf("SyncMotion on empty group: %v", err)
	}
}

func TestStopRemovesFromSyncGroup(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Control().Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := c.Control().SetSpeed(ctx, 300, 0, true); err != nil {
		t.Fatalf("deferred SetSpeed: %v", err)
	}
	if !c.Bus().SyncGroup().Contains(1) {
		t.Fatal("deferred command should register in the sync group")
	}
	if err := c.Control().Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Bus().SyncGroup().Contains(1) {
		t.Error("Stop should remove the drive from the sync group")
	}
}

func TestHomingStateMachine(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()
	h := c.Homing()

	if got := h.State(); got != motor.HomingIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}

	if err := h.TriggerHoming(ctx, motor.HomingModeCollision); err != nil {
		t.Fatalf("TriggerHoming: %v", err)
	}
	if got := h.State(); got != motor.HomingRequested {
		t.Fatalf("state after trigger = %v, want requested", got)
	}

	// The simulator reports in-progress for two polls, then done.
	status, err := h.GetHomingStatus(ctx)
	if err != nil {
		t.Fatalf("GetHomingStatus: %v", err)
	}
	if !status.InProgress {
		t.Fatal("first poll should report in progress")
	}
	if got := h.State(); got != motor.HomingInProgress {
		t.Fatalf("state = %v, want in_progress", got)
	}

	if err := h.WaitForHomingComplete(ctx, time.Millisecond, time.Second); err != nil {
		t.Fatalf("WaitForHomingComplete: %v", err)
	}
	if got := h.State(); got != motor.HomingCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
}

func TestHomingFailure(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx := context.Background()

	m, _ := sim.Motor(1)
	m.FailNextHoming()

	if err := c.Homing().TriggerHoming(ctx, motor.HomingModeCollision); err != nil {
		t.Fatalf("TriggerHoming: %v", err)
	}
	err := c.Homing().WaitForHomingComplete(ctx, time.Millisecond, time.Second)
	if !errors.Is(err, motor.ErrHomingFailed) {
		t.Fatalf("err = %v, want ErrHomingFailed", err)
	}
	if got := c.Homing().State(); got != motor.HomingFailed {
		t.Errorf("state = %v, want failed", got)
	}
}

func TestHomingAbortReturnsToIdle(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Homing().TriggerHoming(ctx, motor.HomingModeNearest); err != nil {
		t.Fatalf("TriggerHoming: %v", err)
	}
	if err := c.Homing().AbortHoming(ctx); err != nil {
		t.Fatalf("AbortHoming: %v", err)
	}
	if got := c.Homing().State(); got != motor.HomingIdle {
		t.Errorf("state after abort = %v, want idle", got)
	}
}

func TestHomingParametersRoundTrip(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	want := motor.HomingParameters{
		Mode:               motor.HomingModeDirectional,
		Direction:          1,
		SpeedRPM:           45,
		TimeoutMs:          20000,
		CollisionSpeedRPM:  300,
		CollisionCurrentMA: 800,
		CollisionTimeMs:    60,
	}
	if err := c.Homing().ModifyHomingParameters(ctx, want, false); err != nil {
		t.Fatalf("ModifyHomingParameters: %v", err)
	}
	got, err := c.Homing().ReadHomingParameters(ctx)
	if err != nil {
		t.Fatalf("ReadHomingParameters: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestReads(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx := context.Background()
	r := c.Read()

	m, _ := sim.Motor(1)
	m.SetTelemetry(24150, 430, 1210, -12)

	voltage, err := r.BusVoltage(ctx)
	if err != nil {
		t.Fatalf("BusVoltage: %v", err)
	}
	if voltage != 24.15 {
		t.Errorf("BusVoltage = %v, want 24.15", voltage)
	}

	temp, err := r.Temperature(ctx)
	if err != nil {
		t.Fatalf("Temperature: %v", err)
	}
	if temp != -12 {
		t.Errorf("Temperature = %v, want -12", temp)
	}

	version, err := r.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version.Firmware == 0 {
		t.Error("Firmware should not be zero")
	}

	status, err := r.SystemStatus(ctx)
	if err != nil {
		t.Fatalf("SystemStatus: %v", err)
	}
	if status.BusVoltage != 24.15 {
		t.Errorf("SystemStatus.BusVoltage = %v, want 24.15", status.BusVoltage)
	}
	if status.Temperature != -12 {
		t.Errorf("SystemStatus.Temperature = %v, want -12", status.Temperature)
	}
}

func TestModifySubdivision(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Modify().Subdivision(ctx, 3, false); err == nil {
		t.Fatal("Subdivision(3) should fail validation")
	}
	if err := c.Modify().Subdivision(ctx, 32, false); err != nil {
		t.Fatalf("Subdivision: %v", err)
	}

	params, err := c.Read().DriveParameters(ctx)
	if err != nil {
		t.Fatalf("DriveParameters: %v", err)
	}
	if params.Subdivision != 32 {
		t.Errorf("Subdivision = %d, want 32", params.Subdivision)
	}
}

func TestNamedSubsetModify(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Modify().SpeedLimit(ctx, 1200, false); err != nil {
		t.Fatalf("SpeedLimit: %v", err)
	}

	params, err := c.Read().DriveParameters(ctx)
	if err != nil {
		t.Fatalf("DriveParameters: %v", err)
	}
	if params.MaxSpeedRPM != 1200 {
		t.Errorf("MaxSpeedRPM = %d, want 1200", params.MaxSpeedRPM)
	}
	if params.Subdivision != 16 {
		t.Errorf("Subdivision = %d, want untouched factory 16", params.Subdivision)
	}
}

func TestModifyMotorAddressFollows(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Modify().MotorAddress(ctx, 7, true); err != nil {
		t.Fatalf("MotorAddress: %v", err)
	}
	if got := c.Address(); got != 7 {
		t.Fatalf("controller address = %d, want 7", got)
	}

	// The controller keeps working at the new address.
	if _, err := c.Read().BusVoltage(ctx); err != nil {
		t.Fatalf("BusVoltage after address change: %v", err)
	}
}

func TestFactoryReset(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Modify().Subdivision(ctx, 64, true); err != nil {
		t.Fatalf("Subdivision: %v", err)
	}
	if err := c.Trigger().FactoryReset(ctx); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}

	params, err := c.Read().DriveParameters(ctx)
	if err != nil {
		t.Fatalf("DriveParameters: %v", err)
	}
	if params.Subdivision != 16 {
		t.Errorf("Subdivision after reset = %d, want factory 16", params.Subdivision)
	}
}

func TestWaitForInPosition(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m, _ := sim.Motor(1)
	m.SetInPosition(false)

	go func() {
		time.Sleep(30 * time.Millisecond)
		m.SetInPosition(true)
	}()

	if err := c.Control().WaitForInPosition(ctx, 5*time.Millisecond); err != nil {
		t.Fatalf("WaitForInPosition: %v", err)
	}
}

func TestReleaseStallProtectionFlow(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx := context.Background()

	err := c.Trigger().ReleaseStallProtection(ctx)
	if !errors.Is(err, motor.ErrConditionNotMet) {
		t.Fatalf("err = %v, want ErrConditionNotMet without a stall", err)
	}

	m, _ := sim.Motor(1)
	m.SetStalled(true)

	if err := c.Trigger().ReleaseStallProtection(ctx); err != nil {
		t.Fatalf("ReleaseStallProtection: %v", err)
	}

	status, err := c.Read().MotorStatus(ctx)
	if err != nil {
		t.Fatalf("MotorStatus: %v", err)
	}
	if status.Stalled {
		t.Error("stall flag should be cleared")
	}
}

func TestNewControllerRejectsInvertedTravelLimits(t *testing.T) {
	sim := devicesim.New(devicesim.Config{})
	sim.AddMotor(1)
	bus := transport.NewBus(sim, transport.BusConfig{})
	defer bus.Close()

	_, err := motor.NewController(bus, 1, motor.ControllerConfig{MinDegrees: 90, MaxDegrees: -90})
	var verr *frame.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("NewController err = %v, want ValidationError", err)
	}
}

func TestTravelLimitsBoundAbsoluteMoves(t *testing.T) {
	sim := devicesim.New(devicesim.Config{})
	sim.AddMotor(1)
	bus := transport.NewBus(sim, transport.BusConfig{
		ResponseTimeout: 200 * time.Millisecond,
		RetryDelay:      5 * time.Millisecond,
	})
	t.Cleanup(func() { bus.Close() })

	c, err := motor.NewController(bus, 1, motor.ControllerConfig{MinDegrees: -90, MaxDegrees: 90})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctx := context.Background()
	if err := c.Control().Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	var verr *frame.ValidationError
	if err := c.Control().MoveToPosition(ctx, 720, 120, true, false); !errors.As(err, &verr) {
		t.Fatalf("MoveToPosition(720) err = %v, want ValidationError", err)
	}
	m, _ := sim.Motor(1)
	if got := m.Position(); got != 0 {
		t.Errorf("position after rejected move = %v, want 0", got)
	}

	if err := c.Control().MoveToPositionTrapezoid(ctx, -120, 120, 100, 100, true, false); !errors.As(err, &verr) {
		t.Fatalf("MoveToPositionTrapezoid(-120) err = %v, want ValidationError", err)
	}

	if err := c.Control().MoveToPosition(ctx, 45, 120, true, false); err != nil {
		t.Fatalf("in-range move: %v", err)
	}
	if got := m.Position(); got != 45 {
		t.Errorf("position = %v, want 45", got)
	}

	// Relative moves target an offset, not a position, so the bounds
	// do not apply to them.
	if err := c.Control().MoveToPosition(ctx, 180, 120, false, false); err != nil {
		t.Fatalf("relative move: %v", err)
	}
}

func TestUnlimitedControllerAllowsAnyTarget(t *testing.T) {
	sim, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Control().Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := c.Control().MoveToPosition(ctx, 7200, 120, true, false); err != nil {
		t.Fatalf("MoveToPosition(7200): %v", err)
	}
	m, _ := sim.Motor(1)
	if got := m.Position(); got != 7200 {
		t.Errorf("position = %v, want 7200", got)
	}
}

func TestWaitForHomingCompleteTimeout(t *testing.T) {
	// A poll budget this large never completes within the wait window.
	sim := devicesim.New(devicesim.Config{HomingPolls: 1 << 20})
	sim.AddMotor(1)
	bus := transport.NewBus(sim, transport.BusConfig{
		ResponseTimeout: 200 * time.Millisecond,
		RetryDelay:      5 * time.Millisecond,
	})
	t.Cleanup(func() { bus.Close() })

	c, err := motor.NewController(bus, 1, motor.ControllerConfig{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctx := context.Background()

	if err := c.Homing().TriggerHoming(ctx, motor.HomingModeCollision); err != nil {
		t.Fatalf("TriggerHoming: %v", err)
	}
	err = c.Homing().WaitForHomingComplete(ctx, time.Millisecond, 50*time.Millisecond)
	if !errors.Is(err, motor.ErrHomingTimeout) {
		t.Fatalf("err = %v, want ErrHomingTimeout", err)
	}
	if got := c.Homing().State(); got != motor.HomingTimedOut {
		t.Errorf("state = %v, want timed_out", got)
	}
}

func TestTriggerHomingModeRange(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	for _, mode := range []motor.HomingMode{motor.HomingModeAbsoluteZero, motor.HomingModeLastPowerDown} {
		if err := c.Homing().TriggerHoming(ctx, mode); err != nil {
			t.Fatalf("TriggerHoming(%v): %v", mode, err)
		}
		if err := c.Homing().AbortHoming(ctx); err != nil {
			t.Fatalf("AbortHoming: %v", err)
		}
	}

	var verr *frame.ValidationError
	if err := c.Homing().TriggerHoming(ctx, motor.HomingMode(6)); !errors.As(err, &verr) {
		t.Fatalf("TriggerHoming(6) err = %v, want ValidationError", err)
	}
}

func TestSetTorqueEnforcesClosedLoopLimit(t *testing.T) {
	_, c := newTestController(t, 1)
	ctx := context.Background()

	if err := c.Control().Enable(ctx); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	// Until the configuration record has been read, only the wire
	// field width bounds the current.
	if err := c.Control().SetTorque(ctx, 3500, 100, false); err != nil {
		t.Fatalf("SetTorque before parameter read: %v", err)
	}

	if _, err := c.Read().DriveParameters(ctx); err != nil {
		t.Fatalf("DriveParameters: %v", err)
	}

	var verr *frame.ValidationError
	if err := c.Control().SetTorque(ctx, 3500, 100, false); !errors.As(err, &verr) {
		t.Fatalf("SetTorque(3500) err = %v, want ValidationError", err)
	}
	if err := c.Control().SetTorque(ctx, -3500, 100, false); !errors.As(err, &verr) {
		t.Fatalf("SetTorque(-3500) err = %v, want ValidationError", err)
	}
	if err := c.Control().SetTorque(ctx, 2500, 100, false); err != nil {
		t.Fatalf("SetTorque(2500): %v", err)
	}
}
