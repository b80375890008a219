package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/visa"
)

// Factory builds attached instruments from resource addresses.
type Factory struct {
	rm   visa.ResourceManager
	opts *options
}

// NewFactory creates a Factory opening sessions through rm.
func NewFactory(rm visa.ResourceManager, opts ...Option) (*Factory, error) {
	if rm == nil {
		return nil, errors.New("bench: nil resource manager")
	}

	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Factory{rm: rm, opts: o}, nil
}

// Build opens, identifies, dispatches and attaches the instrument at address.
//
// A failure is a *BuildError naming the stage, the session is closed.
func (f *Factory) Build(ctx context.Context, address string) (instrument.Instrument, error) {
	log := f.opts.logger.With("address", address)

	sess, err := f.Find(ctx, address)
	if err != nil {
		return nil, &BuildError{Address: address, Stage: StageFind, Err: err}
	}

	inst, stage, err := f.build(sess)
	if err != nil {
		if cerr := sess.Close(); cerr != nil {
			log.Debug("close session after failed build", "error", cerr)
		}
		log.Debug("build failed", "stage", stage, "error", err)

		return nil, &BuildError{Address: address, Stage: stage, Err: err}
	}

	log.Info("instrument attached", "instrument", inst.Descriptor().String())

	return inst, nil
}

func (f *Factory) build(sess visa.Session) (instrument.Instrument, Stage, error) {
	reply, err := f.Identify(sess)
	if err != nil {
		return nil, StageIdentify, err
	}

	desc, err := instrument.ParseIdentity(reply)
	if err != nil {
		return nil, StageParse, err
	}
	desc.Interface = sess.InterfaceType()

	inst, err := f.Dispatch(desc)
	if err != nil {
		return nil, StageDispatch, err
	}

	if err := inst.AttachSession(sess); err != nil {
		return nil, StageAttach, err
	}

	return inst, "", nil
}

// Find opens a session at address.
func (f *Factory) Find(ctx context.Context, address string) (visa.Session, error) {
	return f.rm.Open(ctx, address)
}

// Identify sends the identification query with the identify timeout and
// restores the session timeout afterwards.
func (f *Factory) Identify(sess visa.Session) (string, error) {
	prev := sess.Timeout()
	if err := sess.SetTimeout(f.opts.identifyTimeout); err != nil {
		return "", err
	}
	defer func() { _ = sess.SetTimeout(prev) }()

	reply, err := sess.Query(instrument.IdentityQuery)
	if err != nil {
		if errors.Is(err, visa.ErrTimeout) {
			return "", fmt.Errorf("%w: %w", instrument.ErrNoResponse, err)
		}
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty reply", instrument.ErrNoResponse)
	}

	return reply, nil
}

// Dispatch builds the instrument registered for the identity.
func (f *Factory) Dispatch(desc instrument.Descriptor) (instrument.Instrument, error) {
	builder, err := f.opts.registry.Lookup(desc.Manufacturer, desc.Model)
	if err != nil {
		if !f.opts.fallback {
			return nil, err
		}
		f.opts.logger.Warn("no driver, using the generic instrument",
			"manufacturer", desc.Manufacturer, "model", desc.Model, "error", err)
		builder = instrument.NewGeneric
	}

	inst, err := builder(desc)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", desc.Manufacturer, desc.Model, err)
	}

	return inst, nil
}

// Logger returns the factory logger.
func (f *Factory) Logger() logger.Logger { return f.opts.logger }
