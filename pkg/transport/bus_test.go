package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

// scriptedDrive answers bus exchanges over a loopback pair. Each handler
// receives the assembled command bytes and returns the raw response to
// send back (nil to stay silent).
type scriptedDrive struct {
	conn *Loopback
	addr frame.MotorAddress

	mu       sync.Mutex
	handler  func(cmd []byte) []byte
	received [][]byte
}

func newScriptedDrive(t *testing.T, conn *Loopback, addr frame.MotorAddress) *scriptedDrive {
	t.Helper()
	d := &scriptedDrive{conn: conn, addr: addr}
	go d.run()
	return d
}

func (d *scriptedDrive) setHandler(fn func(cmd []byte) []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = fn
}

func (d *scriptedDrive) commands() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.received
}

func (d *scriptedDrive) run() {
	var parts [][]byte
	for {
		p, err := d.conn.Receive(10 * time.Second)
		if err != nil {
			return
		}
		if p.ID>>8 != uint32(d.addr) && p.ID != 0 {
			continue
		}
		parts = append(parts, p.Data)

		raw, err := frame.Assemble(parts)
		if err != nil {
			continue
		}
		if _, err := frame.ChecksumFixed.Verify(raw); err != nil {
			continue // waiting for continuation packets
		}
		parts = nil

		d.mu.Lock()
		d.received = append(d.received, raw)
		handler := d.handler
		d.mu.Unlock()

		if p.ID == 0 || handler == nil {
			continue // broadcast: no response
		}
		resp := handler(raw)
		if resp == nil {
			continue
		}
		for i, data := range frame.Split(resp) {
			if err := d.conn.Send(Packet{ID: d.addr.CANID() + uint32(i), Data: data}); err != nil {
				return
			}
		}
	}
}

// fixedSum appends the fixed checksum byte to a response body.
func fixedSum(body ...byte) []byte {
	return append(body, frame.FixedChecksumByte)
}

func newTestBus(t *testing.T, addr frame.MotorAddress) (*Bus, *scriptedDrive) {
	t.Helper()
	host, device := NewLoopback()
	t.Cleanup(func() {
		host.Close()
		device.Close()
	})

	bus := NewBus(host, BusConfig{
		Name:            "loopback",
		ResponseTimeout: 200 * time.Millisecond,
		RetryDelay:      5 * time.Millisecond,
	})
	return bus, newScriptedDrive(t, device, addr)
}

func TestBusExchange(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte {
		return fixedSum(byte(frame.FuncEnable), 0x02)
	})

	resp, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncEnable, frame.AuxEnable, 0x01, 0x00))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if resp.Function != frame.FuncEnable {
		t.Errorf("Function = %v, want %v", resp.Function, frame.FuncEnable)
	}
	if !bytes.Equal(resp.Data, []byte{0x02}) {
		t.Errorf("Data = % X, want 02", resp.Data)
	}

	cmds := drive.commands()
	if len(cmds) != 1 {
		t.Fatalf("drive received %d commands, want 1", len(cmds))
	}
	want := []byte{0xF3, 0xAB, 0x01, 0x00, 0x6B}
	if !bytes.Equal(cmds[0], want) {
		t.Errorf("command = % X, want % X", cmds[0], want)
	}
}

func TestBusExchangeMultiPacketCommand(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte {
		return fixedSum(byte(frame.FuncModifyHomingParams), 0x02)
	})

	// 15-byte homing parameter block forces a 3-packet command.
	payload := []byte{
		frame.AuxModifyHoming, 0x01,
		0x00, 0x00, 0x00, 0x1E, 0x00, 0x27, 0x10,
		0x0F, 0xA0, 0x03, 0x20, 0x00, 0x3C, 0x00,
	}
	_, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncModifyHomingParams, payload...))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	cmds := drive.commands()
	if len(cmds) != 1 {
		t.Fatalf("drive received %d commands, want 1", len(cmds))
	}
	if cmds[0][0] != byte(frame.FuncModifyHomingParams) {
		t.Errorf("function byte = %#x, want 0x4C", cmds[0][0])
	}
	if len(cmds[0]) != 1+len(payload)+1 {
		t.Errorf("assembled command length = %d, want %d", len(cmds[0]), 1+len(payload)+1)
	}
}

func TestBusExchangeMultiPacketResponse(t *testing.T) {
	bus, drive := newTestBus(t, 2)

	// Drive parameter read returns more than one CAN frame of data.
	data := make([]byte, 34)
	data[0] = 0x25
	data[1] = 0x18
	for i := 2; i < len(data); i++ {
		data[i] = byte(i)
	}
	drive.setHandler(func(cmd []byte) []byte {
		return fixedSum(append([]byte{byte(frame.FuncReadDriveParams)}, data...)...)
	})

	resp, err := bus.Exchange(context.Background(), 2, frame.NewCommand(frame.FuncReadDriveParams, frame.AuxReadDriveParams))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if !bytes.Equal(resp.Data, data) {
		t.Errorf("Data = % X, want % X", resp.Data, data)
	}
}

func TestBusExchangeTimeout(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte { return nil })

	// Writes are not retried, so a silent drive means one timeout.
	_, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncStop, frame.AuxStop))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Exchange error = %v, want ErrTimeout", err)
	}
	if got := len(drive.commands()); got != 1 {
		t.Errorf("drive received %d commands, want 1 (writes must not be retried)", got)
	}
}

func TestBusExchangeRetriesReads(t *testing.T) {
	bus, drive := newTestBus(t, 1)

	var calls int
	drive.setHandler(func(cmd []byte) []byte {
		calls++
		if calls < 3 {
			return nil // drop the first two responses
		}
		return fixedSum(byte(frame.FuncReadBusVoltage), 0x5D, 0xC0)
	})

	resp, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncReadBusVoltage))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if !bytes.Equal(resp.Data, []byte{0x5D, 0xC0}) {
		t.Errorf("Data = % X, want 5D C0", resp.Data)
	}
	if got := len(drive.commands()); got != 3 {
		t.Errorf("drive received %d commands, want 3", got)
	}
}

func TestBusExchangeReadExhaustsRetries(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte { return nil })

	_, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncReadBusVoltage))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Exchange error = %v, want ErrTimeout", err)
	}
	if got := len(drive.commands()); got != DefaultRetryAttempts {
		t.Errorf("drive received %d commands, want %d", got, DefaultRetryAttempts)
	}
}

func TestBusExchangeRejection(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte {
		return fixedSum(0x00, frame.StatusCommandError)
	})

	resp, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncStop, frame.AuxStop))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if !resp.Rejected() {
		t.Error("Rejected() = false, want true")
	}
}

func TestBusExchangeContextCancel(t *testing.T) {
	bus, drive := newTestBus(t, 1)
	drive.setHandler(func(cmd []byte) []byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bus.Exchange(ctx, 1, frame.NewCommand(frame.FuncReadBusVoltage))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestBusExchangeRejectsBroadcast(t *testing.T) {
	bus, _ := newTestBus(t, 1)
	if _, err := bus.Exchange(context.Background(), frame.BroadcastAddress, frame.NewCommand(frame.FuncStop, frame.AuxStop)); err == nil {
		t.Error("expected error for broadcast Exchange")
	}
}

func TestBusBroadcast(t *testing.T) {
	bus, drive := newTestBus(t, 1)

	if err := bus.Broadcast(frame.NewCommand(frame.FuncSyncMotion, frame.AuxSyncMotion)); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	// Give the drive goroutine time to consume the packet.
	deadline := time.Now().Add(time.Second)
	for len(drive.commands()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("drive never received the broadcast")
		}
		time.Sleep(time.Millisecond)
	}

	want := []byte{0xFF, 0x66, 0x6B}
	if got := drive.commands()[0]; !bytes.Equal(got, want) {
		t.Errorf("broadcast = % X, want % X", got, want)
	}
}

func TestBusIgnoresOtherMotorTraffic(t *testing.T) {
	host, device := NewLoopback()
	t.Cleanup(func() {
		host.Close()
		device.Close()
	})
	bus := NewBus(host, BusConfig{ResponseTimeout: 500 * time.Millisecond})

	go func() {
		if _, err := device.Receive(5 * time.Second); err != nil {
			return
		}
		// Noise from another motor first, then the real response.
		device.Send(Packet{ID: frame.MotorAddress(9).CANID(), Data: fixedSum(byte(frame.FuncReadBusVoltage), 0x00, 0x01)})
		device.Send(Packet{ID: frame.MotorAddress(1).CANID(), Data: fixedSum(byte(frame.FuncReadBusVoltage), 0x5D, 0xC0)})
	}()

	resp, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncReadBusVoltage))
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if !bytes.Equal(resp.Data, []byte{0x5D, 0xC0}) {
		t.Errorf("Data = % X, want 5D C0", resp.Data)
	}
}

// memoryLogger collects protocol events for inspection.
type memoryLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *memoryLogger) Log(event log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *memoryLogger) byCategory(c log.Category) []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []log.Event
	for _, e := range l.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

func TestBusExchangeLogsErrorEvents(t *testing.T) {
	host, device := NewLoopback()
	t.Cleanup(func() {
		host.Close()
		device.Close()
	})

	plog := &memoryLogger{}
	bus := NewBus(host, BusConfig{
		Name:            "loopback",
		ResponseTimeout: 50 * time.Millisecond,
		RetryDelay:      time.Millisecond,
		ProtocolLogger:  plog,
	})
	drive := newScriptedDrive(t, device, 1)
	drive.setHandler(func(cmd []byte) []byte { return nil })

	_, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncReadBusVoltage))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Exchange error = %v, want ErrTimeout", err)
	}

	failures := plog.byCategory(log.CategoryError)
	if len(failures) != 1 {
		t.Fatalf("logged %d error events, want 1", len(failures))
	}
	e := failures[0]
	if e.Error == nil {
		t.Fatal("error event carries no error payload")
	}
	if e.Error.Message == "" {
		t.Error("error event message is empty")
	}
	if e.Error.Layer != log.LayerTransport {
		t.Errorf("error layer = %v, want %v", e.Error.Layer, log.LayerTransport)
	}
	if e.MotorAddr != 1 {
		t.Errorf("MotorAddr = %d, want 1", e.MotorAddr)
	}
	if e.BusName != "loopback" {
		t.Errorf("BusName = %q, want %q", e.BusName, "loopback")
	}
}

func TestBusExchangeSuccessLogsNoErrorEvent(t *testing.T) {
	host, device := NewLoopback()
	t.Cleanup(func() {
		host.Close()
		device.Close()
	})

	plog := &memoryLogger{}
	bus := NewBus(host, BusConfig{
		Name:            "loopback",
		ResponseTimeout: 200 * time.Millisecond,
		RetryDelay:      time.Millisecond,
		ProtocolLogger:  plog,
	})
	drive := newScriptedDrive(t, device, 1)
	drive.setHandler(func(cmd []byte) []byte {
		return fixedSum(byte(frame.FuncReadBusVoltage), 0x5D, 0xC0)
	})

	if _, err := bus.Exchange(context.Background(), 1, frame.NewCommand(frame.FuncReadBusVoltage)); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if got := plog.byCategory(log.CategoryError); len(got) != 0 {
		t.Errorf("logged %d error events, want 0", len(got))
	}
}

func TestSyncGroup(t *testing.T) {
	g := NewSyncGroup()

	g.Add(3)
	g.Add(1)
	g.Add(3) // duplicate

	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	if !g.Contains(1) || !g.Contains(3) {
		t.Error("Contains() missing registered members")
	}

	members := g.Members()
	if len(members) != 2 || members[0] != 1 || members[1] != 3 {
		t.Errorf("Members() = %v, want [1 3]", members)
	}

	g.Remove(1)
	if g.Contains(1) {
		t.Error("Contains(1) = true after Remove")
	}

	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", g.Len())
	}
}
