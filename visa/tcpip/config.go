package tcpip

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/visa"
)

// DefaultPort is the raw SCPI socket port used for INSTR resources.
const DefaultPort = 5025

// ErrConfigNil indicates that a nil Config was provided.
var ErrConfigNil = errors.New("tcpip config is nil")

// Config represents the configuration of the TCP/IP socket backend.
type Config struct {
	dialTimeout    time.Duration
	sessionTimeout time.Duration
	keepAlive      time.Duration
	defaultPort    int
	resources      []string
	logger         logger.Logger
}

// NewConfig creates a new Config with the given options.
//
// Defaults: 5 second dial timeout, visa.DefaultTimeout session timeout,
// 30 second TCP keep-alive and DefaultPort.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		dialTimeout:    5 * time.Second,
		sessionTimeout: visa.DefaultTimeout,
		keepAlive:      30 * time.Second,
		defaultPort:    DefaultPort,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// DialTimeout returns the connect timeout.
func (cfg *Config) DialTimeout() time.Duration { return cfg.dialTimeout }

// SessionTimeout returns the initial I/O timeout of opened sessions.
func (cfg *Config) SessionTimeout() time.Duration { return cfg.sessionTimeout }

// DefaultPort returns the port used for INSTR resources.
func (cfg *Config) DefaultPort() int { return cfg.defaultPort }

// ConfigOption represents a functional option for configuring a Config.
type ConfigOption interface {
	apply(*Config) error
}

type configOptFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *configOptFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newConfigOptFunc(name string, f func(*Config) error) *configOptFunc {
	return &configOptFunc{name: name, applyFunc: f}
}

// WithDialTimeout sets the connect timeout, range [1ms, 5min].
func WithDialTimeout(val time.Duration) ConfigOption {
	return newConfigOptFunc("WithDialTimeout", func(cfg *Config) error {
		if val < time.Millisecond || val > 5*time.Minute {
			return errors.New("dial timeout out of range [1ms, 5m]")
		}
		cfg.dialTimeout = val

		return nil
	})
}

// WithSessionTimeout sets the initial I/O timeout of opened sessions.
func WithSessionTimeout(val time.Duration) ConfigOption {
	return newConfigOptFunc("WithSessionTimeout", func(cfg *Config) error {
		if val < 0 {
			return errors.New("session timeout is negative")
		}
		cfg.sessionTimeout = val

		return nil
	})
}

// WithKeepAlive sets the TCP keep-alive period, 0 uses the system default and
// a negative value disables keep-alive.
func WithKeepAlive(val time.Duration) ConfigOption {
	return newConfigOptFunc("WithKeepAlive", func(cfg *Config) error {
		cfg.keepAlive = val
		return nil
	})
}

// WithDefaultPort sets the port used for INSTR resources.
func WithDefaultPort(port int) ConfigOption {
	return newConfigOptFunc("WithDefaultPort", func(cfg *Config) error {
		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.defaultPort = port

		return nil
	})
}

// WithResources sets the addresses returned by List, TCP/IP resources cannot be enumerated.
func WithResources(addresses ...string) ConfigOption {
	return newConfigOptFunc("WithResources", func(cfg *Config) error {
		for _, a := range addresses {
			addr, err := visa.ParseAddress(a)
			if err != nil {
				return err
			}
			if addr.Interface != visa.InterfaceTCPIP {
				return fmt.Errorf("%w: %q is not a TCPIP resource", visa.ErrInvalidAddress, a)
			}
		}
		cfg.resources = append(cfg.resources, addresses...)

		return nil
	})
}

// WithLogger sets the logger of the backend and its sessions.
func WithLogger(l logger.Logger) ConfigOption {
	return newConfigOptFunc("WithLogger", func(cfg *Config) error {
		cfg.logger = l
		return nil
	})
}
