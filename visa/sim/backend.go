package sim

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

// Scheme is the address scheme served by the simulated backend.
const Scheme = "SIM"

// Backend is a visa.Backend serving simulated devices.
type Backend struct {
	devices *xsync.MapOf[string, *device]
	timeout time.Duration
	logger  logger.Logger
	closed  atomic.Bool
}

var _ visa.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option interface {
	apply(*Backend) error
}

type optFunc func(*Backend) error

func (f optFunc) apply(b *Backend) error { return f(b) }

// WithDevice adds a simulated device.
func WithDevice(d Device) Option {
	return optFunc(func(b *Backend) error {
		return b.Add(d)
	})
}

// WithTimeout sets the initial timeout of opened sessions, the default is visa.DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return optFunc(func(b *Backend) error {
		if timeout < 0 {
			return fmt.Errorf("%w: negative timeout %s", transfer.ErrInvalidArgument, timeout)
		}
		b.timeout = timeout

		return nil
	})
}

// WithLogger sets the logger passed to opened sessions.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(b *Backend) error {
		b.logger = l
		return nil
	})
}

// NewBackend creates a simulated backend.
func NewBackend(opts ...Option) (*Backend, error) {
	b := &Backend{
		devices: xsync.NewMapOf[string, *device](),
		timeout: visa.DefaultTimeout,
		logger:  logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Add adds or replaces a simulated device.
func (b *Backend) Add(d Device) error {
	if err := d.validate(); err != nil {
		return err
	}
	b.devices.Store(strings.ToUpper(d.Name), newDevice(d))

	return nil
}

// Remove removes a simulated device, open sessions keep working.
func (b *Backend) Remove(name string) {
	b.devices.Delete(strings.ToUpper(name))
}

// Commands returns the commands received by a device, in order.
func (b *Backend) Commands(name string) []string {
	dev, ok := b.devices.Load(strings.ToUpper(name))
	if !ok {
		return nil
	}

	return dev.commands()
}

// Property returns the current value of a device property.
func (b *Backend) Property(name string, query string) (string, bool) {
	dev, ok := b.devices.Load(strings.ToUpper(name))
	if !ok {
		return "", false
	}

	return dev.property(query)
}

func (b *Backend) Schemes() []string {
	return []string{Scheme}
}

func (b *Backend) Open(_ context.Context, addr visa.Address) (visa.Session, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("%w: simulated backend closed", visa.ErrUnreachable)
	}

	name := addr.Field(0)
	if name == "" {
		return nil, fmt.Errorf("%w: %q has no device name", visa.ErrInvalidAddress, addr.Raw)
	}

	dev, ok := b.devices.Load(strings.ToUpper(name))
	if !ok || dev.Offline {
		return nil, fmt.Errorf("%w: no simulated device %q", visa.ErrUnreachable, name)
	}

	sess, err := visa.NewStreamSession(addr, newStream(dev),
		visa.WithSessionTimeout(b.timeout),
		visa.WithSessionLogger(b.logger),
		visa.WithInterfaceType(dev.Interface),
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

func (b *Backend) List(_ context.Context) ([]string, error) {
	var resources []string
	b.devices.Range(func(_ string, dev *device) bool {
		if !dev.Offline {
			resources = append(resources, Scheme+"::"+dev.Name+"::INSTR")
		}
		return true
	})
	slices.Sort(resources)

	return resources, nil
}

func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}
