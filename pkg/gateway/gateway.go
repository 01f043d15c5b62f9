// Package gateway bridges SLCAN-over-TCP clients to a local CAN
// adapter and announces the service via mDNS so drivecan-ctl can find
// it with -discover.
//
// The wire format matches transport.TCPConn: each CAN packet travels
// as one SLCAN data frame line terminated by CR. The gateway serves
// one client at a time because the drive protocol allows only one
// host per bus.
package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/discovery"
	"github.com/drivecan-protocol/drivecan-go/pkg/transport"
)

// receivePoll bounds how long the adapter pump blocks between checks
// for a departed client.
const receivePoll = 20 * time.Millisecond

// Config configures a Gateway.
type Config struct {
	// Listen is the TCP address to accept clients on. Empty means
	// every interface on the default discovery port.
	Listen string

	// InstanceName names the gateway in mDNS announcements. Empty
	// disables advertising.
	InstanceName string

	// Info describes the bus behind the gateway for discovery TXT
	// records. Only used when advertising.
	Info *discovery.GatewayInfo

	// Advertiser overrides mDNS registration settings.
	Advertiser discovery.AdvertiserConfig
}

// Gateway exposes a CAN adapter to remote hosts over TCP.
type Gateway struct {
	conn     transport.CANConn
	listener net.Listener
	adv      *discovery.Advertiser

	closeOnce sync.Once
	closed    chan struct{}
}

// New binds the listen address and, when an instance name is
// configured, registers the gateway on the local network. The adapter
// is not closed by the gateway; the caller owns it.
func New(conn transport.CANConn, config Config) (*Gateway, error) {
	if config.Listen == "" {
		config.Listen = fmt.Sprintf(":%d", discovery.DefaultPort)
	}
	listener, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", config.Listen, err)
	}

	g := &Gateway{
		conn:     conn,
		listener: listener,
		closed:   make(chan struct{}),
	}

	if config.InstanceName != "" {
		adv := discovery.NewAdvertiser(config.Advertiser)
		port := listener.Addr().(*net.TCPAddr).Port
		if err := adv.Advertise(config.InstanceName, port, config.Info); err != nil {
			listener.Close()
			return nil, err
		}
		g.adv = adv
	}
	return g, nil
}

// Addr returns the bound listen address.
func (g *Gateway) Addr() net.Addr {
	return g.listener.Addr()
}

// Serve accepts clients until the context is cancelled or the gateway
// is closed. Clients are served sequentially; a new connection waits
// for the current one to disconnect.
func (g *Gateway) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-g.closed:
		}
		g.listener.Close()
	}()

	for {
		conn, err := g.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-g.closed:
				return nil
			default:
				return err
			}
		}
		g.serveClient(conn)
	}
}

// Close stops accepting clients and withdraws the mDNS registration.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		close(g.closed)
		if g.adv != nil {
			g.adv.Stop()
		}
		g.listener.Close()
	})
	return nil
}

// serveClient bridges one client until it disconnects or the gateway
// closes.
func (g *Gateway) serveClient(conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	// Adapter to client: pump CAN packets out as SLCAN lines.
	go func() {
		defer wg.Done()
		for {
			p, err := g.conn.Receive(receivePoll)
			if errors.Is(err, transport.ErrTimeout) {
				select {
				case <-done:
					return
				case <-g.closed:
					return
				default:
					continue
				}
			}
			if err != nil {
				return
			}
			if _, err := conn.Write([]byte(transport.EncodeSLCAN(p))); err != nil {
				return
			}
		}
	}()

	// Client to adapter: parse SLCAN lines into CAN packets. Lines
	// that do not parse are dropped, matching how serial adapters
	// treat noise on the wire.
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			break
		}
		if p, ok := transport.ParseSLCAN(strings.TrimRight(line, "\r")); ok {
			if err := g.conn.Send(p); err != nil {
				break
			}
		}
	}

	close(done)
	wg.Wait()
}
