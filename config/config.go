// Package config loads bench configuration files.
//
// A file is YAML (.yaml, .yml) or TOML (.toml) and has four sections:
//
//	log:          level and output format of the logger
//	factory:      identification timeout and the generic fallback
//	backends:     the transport backends to enable and their settings
//	instruments:  named addresses with transfer overrides
//
// Durations are strings: Go durations such as "2s", a bare number of
// milliseconds, "immediate" or "infinite". Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
)

// Config is the content of a bench configuration file.
type Config struct {
	Log         LogConfig          `yaml:"log" toml:"log"`
	Factory     FactoryConfig      `yaml:"factory" toml:"factory"`
	Backends    BackendsConfig     `yaml:"backends" toml:"backends"`
	Instruments []InstrumentConfig `yaml:"instruments" toml:"instruments"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type FactoryConfig struct {
	IdentifyTimeout string `yaml:"identify_timeout" toml:"identify_timeout"`
	GenericFallback bool   `yaml:"generic_fallback" toml:"generic_fallback"`
}

// BackendsConfig enables a backend per non-nil section. The TCP/IP backend is
// enabled with its defaults when no section is present.
type BackendsConfig struct {
	TCPIP  *TCPIPConfig  `yaml:"tcpip" toml:"tcpip"`
	USBTMC *USBTMCConfig `yaml:"usbtmc" toml:"usbtmc"`
	LXI    *LXIConfig    `yaml:"lxi" toml:"lxi"`
	Sim    *SimConfig    `yaml:"sim" toml:"sim"`
}

type TCPIPConfig struct {
	DialTimeout    string   `yaml:"dial_timeout" toml:"dial_timeout"`
	SessionTimeout string   `yaml:"session_timeout" toml:"session_timeout"`
	KeepAlive      string   `yaml:"keep_alive" toml:"keep_alive"`
	DefaultPort    int      `yaml:"default_port" toml:"default_port"`
	Resources      []string `yaml:"resources" toml:"resources"`
}

type USBTMCConfig struct {
	Timeout         string `yaml:"timeout" toml:"timeout"`
	MaxTransferSize int    `yaml:"max_transfer_size" toml:"max_transfer_size"`
}

type LXIConfig struct {
	Services   []string `yaml:"services" toml:"services"`
	Window     string   `yaml:"window" toml:"window"`
	Interfaces []string `yaml:"interfaces" toml:"interfaces"`
}

type SimConfig struct {
	Timeout string      `yaml:"timeout" toml:"timeout"`
	Devices []SimDevice `yaml:"devices" toml:"devices"`
}

// SimDevice declares a simulated instrument reachable at "SIM::<name>::INSTR".
type SimDevice struct {
	Name             string            `yaml:"name" toml:"name"`
	Identity         string            `yaml:"identity" toml:"identity"`
	Replies          map[string]string `yaml:"replies" toml:"replies"`
	Properties       map[string]string `yaml:"properties" toml:"properties"`
	ErrorReply       string            `yaml:"error_reply" toml:"error_reply"`
	Latency          string            `yaml:"latency" toml:"latency"`
	ReplyTermination string            `yaml:"reply_termination" toml:"reply_termination"`
	Offline          bool              `yaml:"offline" toml:"offline"`
}

// InstrumentConfig names an instrument address. Transfer holds transfer.Config
// keys applied after the instrument is attached.
type InstrumentConfig struct {
	Name     string            `yaml:"name" toml:"name"`
	Address  string            `yaml:"address" toml:"address"`
	Transfer map[string]string `yaml:"transfer" toml:"transfer"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: string(logger.JSONFormat)},
		Factory: FactoryConfig{IdentifyTimeout: "2s"},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes and validates configuration data, ext selects the syntax.
// Fields missing from data keep their Default values.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	case "toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: extension %q, use .yaml, .yml or .toml", ErrUnsupportedFile, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value that Load leaves as a string.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch logger.Format(strings.ToLower(c.Log.Format)) {
	case "", logger.JSONFormat, logger.ConsoleFormat:
	default:
		return fmt.Errorf("%w: log.format %q, use json or console", ErrInvalidConfig, c.Log.Format)
	}

	if _, err := duration("factory.identify_timeout", c.Factory.IdentifyTimeout, 0); err != nil {
		return err
	}

	if err := c.Backends.validate(); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Instruments))
	for i, inst := range c.Instruments {
		if strings.TrimSpace(inst.Address) == "" {
			return fmt.Errorf("%w: instruments[%d] has no address", ErrInvalidConfig, i)
		}
		if inst.Name != "" {
			if _, dup := names[inst.Name]; dup {
				return fmt.Errorf("%w: duplicate instrument name %q", ErrInvalidConfig, inst.Name)
			}
			names[inst.Name] = struct{}{}
		}
		scratch := transfer.NewConfig()
		_ = scratch.SetAvailableFormats(string(transfer.FormatText), string(transfer.FormatBinary))
		if err := scratch.Apply(inst.Transfer); err != nil {
			return fmt.Errorf("%w: instruments[%d].transfer: %w", ErrInvalidConfig, i, err)
		}
	}

	return nil
}

// Instrument returns the instrument named name.
func (c *Config) Instrument(name string) (InstrumentConfig, bool) {
	for _, inst := range c.Instruments {
		if inst.Name == name {
			return inst, true
		}
	}

	return InstrumentConfig{}, false
}

func (b *BackendsConfig) validate() error {
	if t := b.TCPIP; t != nil {
		for _, f := range []struct{ name, value string }{
			{"backends.tcpip.dial_timeout", t.DialTimeout},
			{"backends.tcpip.session_timeout", t.SessionTimeout},
			{"backends.tcpip.keep_alive", t.KeepAlive},
		} {
			if _, err := duration(f.name, f.value, 0); err != nil {
				return err
			}
		}
	}
	if u := b.USBTMC; u != nil {
		if _, err := duration("backends.usbtmc.timeout", u.Timeout, 0); err != nil {
			return err
		}
	}
	if l := b.LXI; l != nil {
		if _, err := duration("backends.lxi.window", l.Window, 0); err != nil {
			return err
		}
	}
	if s := b.Sim; s != nil {
		if _, err := duration("backends.sim.timeout", s.Timeout, 0); err != nil {
			return err
		}
		for i, d := range s.Devices {
			if _, err := d.device(); err != nil {
				return fmt.Errorf("backends.sim.devices[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// duration parses a duration string, an empty value yields def.
func duration(field string, value string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}

	d, err := transfer.ParseTimeout(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, field, err)
	}

	return d, nil
}
