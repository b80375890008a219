package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/arloliu/go-testbench/instrument"
	"github.com/arloliu/go-testbench/logger"
	"github.com/arloliu/go-testbench/visa"
)

// Manager owns a resource manager and the instruments attached through it.
type Manager struct {
	factory *Factory
	logger  logger.Logger
	state   *benchState
}

// benchState is kept apart from Manager so that a cleanup can release it
// after the Manager is unreachable.
type benchState struct {
	mu          sync.Mutex
	rm          visa.ResourceManager
	instruments []instrument.Instrument
}

// NewManager creates a Manager that owns rm, rm is closed by Close.
//
// A Manager that is never closed is closed silently once it is garbage
// collected, callers should still defer Close.
func NewManager(rm visa.ResourceManager, opts ...Option) (*Manager, error) {
	factory, err := NewFactory(rm, opts...)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		factory: factory,
		logger:  factory.opts.logger,
		state:   &benchState{rm: rm},
	}
	runtime.AddCleanup(m, func(s *benchState) { _ = s.close(nil) }, m.state)

	return m, nil
}

// Factory returns the factory used by Attach.
func (m *Manager) Factory() *Factory { return m.factory }

// Attach builds the instrument at address and keeps it for teardown.
//
// A failure is an *AttachError matching ErrAttachFailed and wrapping the cause.
func (m *Manager) Attach(ctx context.Context, address string) (instrument.Instrument, error) {
	if m.closed() {
		return nil, &AttachError{Address: address, Err: ErrClosed}
	}

	inst, err := m.factory.Build(ctx, address)
	if err != nil {
		m.logger.Error("attach failed", "address", address, "error", err)
		return nil, &AttachError{Address: address, Err: err}
	}

	m.state.mu.Lock()
	if m.state.rm == nil {
		m.state.mu.Unlock()
		_ = inst.DetachSession()

		return nil, &AttachError{Address: address, Err: ErrClosed}
	}
	m.state.instruments = append(m.state.instruments, inst)
	m.state.mu.Unlock()

	return inst, nil
}

// Instruments returns the attached instruments in attach order.
func (m *Manager) Instruments() []instrument.Instrument {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	return slices.Clone(m.state.instruments)
}

// ListResources returns the addresses the resource manager can reach.
func (m *Manager) ListResources(ctx context.Context) ([]string, error) {
	m.state.mu.Lock()
	rm := m.state.rm
	m.state.mu.Unlock()

	if rm == nil {
		return nil, ErrClosed
	}

	return rm.ListResources(ctx)
}

// DetachAll detaches every instrument in attach order and forgets them.
//
// A failing detach is logged and does not stop the others, the failures are
// joined in the returned error.
func (m *Manager) DetachAll() error {
	return m.state.detachAll(m.logger)
}

// Close detaches every instrument, then closes the resource manager.
// Closing a closed Manager is a no-op.
func (m *Manager) Close() error {
	return m.state.close(m.logger)
}

func (m *Manager) closed() bool {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	return m.state.rm == nil
}

// detachAll logs with log, a nil log keeps teardown silent.
func (s *benchState) detachAll(log logger.Logger) error {
	s.mu.Lock()
	insts := s.instruments
	s.instruments = nil
	s.mu.Unlock()

	var errs []error
	for _, inst := range insts {
		detach := inst.DetachSession
		if log == nil {
			detach = func() error { return instrument.DetachQuietly(inst) }
		}
		if err := detach(); err != nil {
			if log != nil {
				log.Warn("detach failed", "instrument", inst.Descriptor().String(), "error", err)
			}
			errs = append(errs, fmt.Errorf("detach %s: %w", inst.Descriptor().Model, err))
		}
	}

	return errors.Join(errs...)
}

func (s *benchState) close(log logger.Logger) error {
	s.mu.Lock()
	rm := s.rm
	s.rm = nil
	s.mu.Unlock()

	if rm == nil {
		return nil
	}

	err := s.detachAll(log)
	if cerr := rm.Close(); cerr != nil {
		if log != nil {
			log.Warn("close resource manager failed", "error", cerr)
		}
		err = errors.Join(err, cerr)
	}
	if log != nil {
		log.Debug("bench manager closed")
	}

	return err
}
