package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-testbench/bench"
	"github.com/arloliu/go-testbench/config"
	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/transfer"
	"github.com/arloliu/go-testbench/visa"
)

// benchEnv is the bench built from the configuration for one command run.
type benchEnv struct {
	cfg     *config.Config
	bench   *bench.Manager
	logger  logger.Logger
	timeout string
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// openBench builds the backends, the resource manager and the bench manager.
// Logs go to the command's error stream.
func (g *globalFlags) openBench(cmd *cobra.Command) (*benchEnv, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	l, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	backends, err := cfg.NewBackends(l)
	if err != nil {
		return nil, err
	}
	rm := visa.NewManager(backends...)
	rm.SetLogger(l)

	opts, err := cfg.BenchOptions(l)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}
	m, err := bench.NewManager(rm, opts...)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}

	return &benchEnv{cfg: cfg, bench: m, logger: l, timeout: g.timeout}, nil
}

// attach attaches the instrument named by target, a configured instrument
// name or a resource address.
func (e *benchEnv) attach(ctx context.Context, target string) (instrument.Instrument, error) {
	address := target
	ic, named := e.cfg.Instrument(target)
	if named {
		address = ic.Address
	}

	inst, err := e.bench.Attach(ctx, address)
	if err != nil {
		return nil, err
	}

	if named {
		if err := ic.Apply(inst); err != nil {
			return nil, err
		}
	}

	if e.timeout != "" {
		d, err := transfer.ParseTimeout(e.timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		if err := inst.SetTimeout(d); err != nil {
			return nil, err
		}
	}

	return inst, nil
}

func (e *benchEnv) Close() error {
	return e.bench.Close()
}
