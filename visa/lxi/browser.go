// Package lxi discovers LAN instruments announced over mDNS.
//
// Discovered instruments are reported as raw socket resources, e.g.
// TCPIP0::192.168.1.20::5025::SOCKET, which the tcpip backend opens.
package lxi

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

// Service types browsed by default.
const (
	ServiceSCPIRaw = "_scpi-raw._tcp"
	ServiceLXI     = "_lxi._tcp"
	Domain         = "local."
)

// Browser lists LXI instruments. It serves no scheme, sessions to the listed
// resources are opened by the tcpip backend.
type Browser struct {
	services []string
	window   time.Duration
	ifaces   []string
	logger   logger.Logger
}

var _ visa.Backend = (*Browser)(nil)

// Option configures a Browser.
type Option interface {
	apply(*Browser) error
}

type optFunc func(*Browser) error

func (f optFunc) apply(b *Browser) error { return f(b) }

// WithServices replaces the browsed service types.
func WithServices(services ...string) Option {
	return optFunc(func(b *Browser) error {
		if len(services) == 0 {
			return fmt.Errorf("%w: no service type", transfer.ErrInvalidArgument)
		}
		b.services = slices.Clone(services)

		return nil
	})
}

// WithWindow sets how long one List call listens for announcements, the default is 2 seconds.
func WithWindow(window time.Duration) Option {
	return optFunc(func(b *Browser) error {
		if window <= 0 {
			return fmt.Errorf("%w: browse window %s", transfer.ErrInvalidArgument, window)
		}
		b.window = window

		return nil
	})
}

// WithInterfaces restricts browsing to the named network interfaces.
func WithInterfaces(names ...string) Option {
	return optFunc(func(b *Browser) error {
		b.ifaces = slices.Clone(names)
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(b *Browser) error {
		b.logger = l
		return nil
	})
}

// NewBrowser creates a Browser for the _scpi-raw and _lxi service types.
func NewBrowser(opts ...Option) (*Browser, error) {
	b := &Browser{
		services: []string{ServiceSCPIRaw, ServiceLXI},
		window:   2 * time.Second,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *Browser) Schemes() []string { return nil }

func (b *Browser) Open(_ context.Context, addr visa.Address) (visa.Session, error) {
	return nil, fmt.Errorf("%w: lxi browser does not open %s", visa.ErrUnrecognizedInterface, addr.Raw)
}

// List browses every service type for the configured window and returns the
// announced instruments.
func (b *Browser) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.window)
	defer cancel()

	opts, err := b.clientOptions()
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		resources []string
		wg        sync.WaitGroup
	)
	for _, service := range b.services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, r := range b.browse(ctx, service, opts) {
				mu.Lock()
				if !slices.Contains(resources, r) {
					resources = append(resources, r)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	slices.Sort(resources)

	return resources, nil
}

func (b *Browser) browse(ctx context.Context, service string, opts []zeroconf.ClientOption) []string {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		if err := zeroconf.Browse(ctx, service, Domain, entries, removed, opts...); err != nil {
			b.logger.Debug("mdns browse failed", "service", service, "error", err)
		}
	}()

	var found []string
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found
			}
			found = append(found, entryResources(entry)...)
		case <-removed:
		case <-ctx.Done():
			return found
		}
	}
}

func (b *Browser) clientOptions() ([]zeroconf.ClientOption, error) {
	if len(b.ifaces) == 0 {
		return nil, nil
	}

	ifaces := make([]net.Interface, 0, len(b.ifaces))
	for _, name := range b.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("%w: network interface %q: %w", transfer.ErrInvalidArgument, name, err)
		}
		ifaces = append(ifaces, *iface)
	}

	return []zeroconf.ClientOption{zeroconf.SelectIfaces(ifaces)}, nil
}

// entryResources converts an announcement into socket resources, one per IPv4
// address, falling back to IPv6 addresses and then the host name.
func entryResources(entry *zeroconf.ServiceEntry) []string {
	if entry == nil || entry.Port <= 0 {
		return nil
	}
	port := strconv.Itoa(entry.Port)

	hosts := make([]string, 0, len(entry.AddrIPv4))
	for _, ip := range entry.AddrIPv4 {
		hosts = append(hosts, ip.String())
	}
	if len(hosts) == 0 {
		for _, ip := range entry.AddrIPv6 {
			hosts = append(hosts, "["+ip.String()+"]")
		}
	}
	if len(hosts) == 0 && entry.HostName != "" {
		hosts = append(hosts, entry.HostName)
	}

	resources := make([]string, 0, len(hosts))
	for _, h := range hosts {
		resources = append(resources, "TCPIP0::"+h+"::"+port+"::SOCKET")
	}

	return resources
}

func (b *Browser) Close() error { return nil }
