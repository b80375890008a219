package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arloliu/go-testbench/bench"
	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
	"github.com/arloliu/go-testbench/visa/lxi"
	"github.com/arloliu/go-testbench/visa/sim"
	"github.com/arloliu/go-testbench/visa/tcpip"
	"github.com/arloliu/go-testbench/visa/usbtmc"
)

// NewLogger creates the logger described by the log section.
func (c *Config) NewLogger(output io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}

	format := logger.Format(strings.ToLower(c.Log.Format))
	if format == "" {
		format = logger.JSONFormat
	}

	return logger.NewSlogWithOutput(output, format, level, false), nil
}

// BenchOptions returns the factory section as bench options.
func (c *Config) BenchOptions(l logger.Logger) ([]bench.Option, error) {
	opts := []bench.Option{bench.WithGenericFallback(c.Factory.GenericFallback)}
	if l != nil {
		opts = append(opts, bench.WithLogger(l))
	}

	timeout, err := duration("factory.identify_timeout", c.Factory.IdentifyTimeout, 0)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, bench.WithIdentifyTimeout(timeout))
	}

	return opts, nil
}

// NewBackends creates the enabled backends in the order tcpip, usbtmc, sim, lxi.
func (c *Config) NewBackends(l logger.Logger) ([]visa.Backend, error) {
	if l == nil {
		l = logger.GetLogger()
	}

	b := c.Backends
	if b.TCPIP == nil && b.USBTMC == nil && b.LXI == nil && b.Sim == nil {
		b.TCPIP = &TCPIPConfig{}
	}

	var backends []visa.Backend
	if b.TCPIP != nil {
		backend, err := b.TCPIP.newBackend(l)
		if err != nil {
			return nil, fmt.Errorf("backends.tcpip: %w", err)
		}
		backends = append(backends, backend)
	}
	if b.USBTMC != nil {
		backend, err := b.USBTMC.newBackend(l)
		if err != nil {
			return nil, fmt.Errorf("backends.usbtmc: %w", err)
		}
		backends = append(backends, backend)
	}
	if b.Sim != nil {
		backend, err := b.Sim.newBackend(l)
		if err != nil {
			return nil, fmt.Errorf("backends.sim: %w", err)
		}
		backends = append(backends, backend)
	}
	if b.LXI != nil {
		backend, err := b.LXI.newBrowser(l)
		if err != nil {
			return nil, fmt.Errorf("backends.lxi: %w", err)
		}
		backends = append(backends, backend)
	}

	return backends, nil
}

func (t *TCPIPConfig) newBackend(l logger.Logger) (*tcpip.Backend, error) {
	opts := []tcpip.ConfigOption{tcpip.WithLogger(l)}

	durations := []struct {
		name  string
		value string
		opt   func(time.Duration) tcpip.ConfigOption
	}{
		{"dial_timeout", t.DialTimeout, tcpip.WithDialTimeout},
		{"session_timeout", t.SessionTimeout, tcpip.WithSessionTimeout},
		{"keep_alive", t.KeepAlive, tcpip.WithKeepAlive},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := duration(d.name, d.value, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, d.opt(v))
	}

	if t.DefaultPort != 0 {
		opts = append(opts, tcpip.WithDefaultPort(t.DefaultPort))
	}
	if len(t.Resources) > 0 {
		opts = append(opts, tcpip.WithResources(t.Resources...))
	}

	cfg, err := tcpip.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return tcpip.NewBackend(cfg), nil
}

func (u *USBTMCConfig) newBackend(l logger.Logger) (*usbtmc.Backend, error) {
	opts := []usbtmc.Option{usbtmc.WithLogger(l)}
	if u.Timeout != "" {
		v, err := duration("timeout", u.Timeout, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usbtmc.WithTimeout(v))
	}
	if u.MaxTransferSize != 0 {
		opts = append(opts, usbtmc.WithMaxTransferSize(u.MaxTransferSize))
	}

	return usbtmc.NewBackend(opts...)
}

func (x *LXIConfig) newBrowser(l logger.Logger) (*lxi.Browser, error) {
	opts := []lxi.Option{lxi.WithLogger(l)}
	if len(x.Services) > 0 {
		opts = append(opts, lxi.WithServices(x.Services...))
	}
	if x.Window != "" {
		v, err := duration("window", x.Window, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, lxi.WithWindow(v))
	}
	if len(x.Interfaces) > 0 {
		opts = append(opts, lxi.WithInterfaces(x.Interfaces...))
	}

	return lxi.NewBrowser(opts...)
}

func (s *SimConfig) newBackend(l logger.Logger) (*sim.Backend, error) {
	opts := []sim.Option{sim.WithLogger(l)}
	if s.Timeout != "" {
		v, err := duration("timeout", s.Timeout, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sim.WithTimeout(v))
	}
	for _, d := range s.Devices {
		dev, err := d.device()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sim.WithDevice(dev))
	}

	return sim.NewBackend(opts...)
}

func (d SimDevice) device() (sim.Device, error) {
	latency, err := duration("latency", d.Latency, 0)
	if err != nil {
		return sim.Device{}, err
	}
	if latency == transfer.Infinite {
		return sim.Device{}, fmt.Errorf("%w: latency of %s is infinite", ErrInvalidConfig, d.Name)
	}

	dev := sim.Device{
		Name:       d.Name,
		Identity:   d.Identity,
		Replies:    d.Replies,
		Properties: d.Properties,
		ErrorReply: d.ErrorReply,
		Latency:    latency,
		Offline:    d.Offline,
	}
	if d.ReplyTermination != "" {
		term, err := transfer.ParseTerminator(d.ReplyTermination)
		if err != nil {
			return sim.Device{}, fmt.Errorf("%w: reply_termination of %s: %w", ErrInvalidConfig, d.Name, err)
		}
		dev.ReplyTermination = term
	}

	return dev, nil
}

// Apply applies the transfer overrides to an attached instrument. The timeout
// key also updates the session timeout.
func (ic InstrumentConfig) Apply(inst instrument.Instrument) error {
	settings := make(map[string]string, len(ic.Transfer))
	var timeout string
	for k, v := range ic.Transfer {
		if strings.EqualFold(k, transfer.KeyTimeout) {
			timeout = v
			continue
		}
		settings[k] = v
	}

	if err := inst.Config().Apply(settings); err != nil {
		return fmt.Errorf("apply transfer settings to %s: %w", ic.Address, err)
	}
	if timeout == "" {
		return nil
	}

	d, err := transfer.ParseTimeout(timeout)
	if err != nil {
		return fmt.Errorf("apply transfer settings to %s: %w", ic.Address, err)
	}

	return inst.SetTimeout(d)
}
