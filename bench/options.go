package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
)

// DefaultIdentifyTimeout bounds the identification query.
const DefaultIdentifyTimeout = 2 * time.Second

// ErrOptionsNil indicates that options were applied to nil settings.
var ErrOptionsNil = errors.New("bench options are nil")

type options struct {
	registry        *instrument.Registry
	logger          logger.Logger
	identifyTimeout time.Duration
	fallback        bool
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		registry:        instrument.DefaultRegistry,
		logger:          logger.GetLogger(),
		identifyTimeout: DefaultIdentifyTimeout,
	}
	for _, opt := range opts {
		if err := opt.apply(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Option configures a Factory or a Manager.
type Option interface {
	apply(*options) error
}

type optFunc struct {
	name      string
	applyFunc func(*options) error
}

func (o *optFunc) apply(opts *options) error {
	if opts == nil {
		return ErrOptionsNil
	}
	if err := o.applyFunc(opts); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newOptFunc(name string, f func(*options) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithRegistry sets the builder registry, the default is instrument.DefaultRegistry.
func WithRegistry(r *instrument.Registry) Option {
	return newOptFunc("WithRegistry", func(o *options) error {
		if r == nil {
			return fmt.Errorf("%w: nil registry", transfer.ErrInvalidArgument)
		}
		o.registry = r

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(o *options) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", transfer.ErrInvalidArgument)
		}
		o.logger = l

		return nil
	})
}

// WithIdentifyTimeout sets the timeout of the identification query, in the range [1ms, 1m].
func WithIdentifyTimeout(timeout time.Duration) Option {
	return newOptFunc("WithIdentifyTimeout", func(o *options) error {
		if timeout < time.Millisecond || timeout > time.Minute {
			return fmt.Errorf("%w: identify timeout out of range [1ms, 1m]", transfer.ErrInvalidArgument)
		}
		o.identifyTimeout = timeout

		return nil
	})
}

// WithGenericFallback makes the factory build a generic instrument, with a
// warning, for an unknown manufacturer or model instead of failing.
func WithGenericFallback(enable bool) Option {
	return newOptFunc("WithGenericFallback", func(o *options) error {
		o.fallback = enable
		return nil
	})
}
