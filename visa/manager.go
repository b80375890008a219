package visa

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/arloliu/go-testbench/logger"
)

// Manager is a ResourceManager that routes addresses to backends by scheme.
type Manager struct {
	mu       sync.Mutex
	backends []Backend
	schemes  map[string]Backend
	closed   bool
	logger   logger.Logger
}

var _ ResourceManager = (*Manager)(nil)

// NewManager creates a Manager serving the schemes of the given backends.
//
// When two backends serve the same scheme the first one wins.
func NewManager(backends ...Backend) *Manager {
	m := &Manager{
		schemes: make(map[string]Backend),
		logger:  logger.GetLogger(),
	}
	for _, b := range backends {
		m.Register(b)
	}

	return m
}

// Register adds a backend.
func (m *Manager) Register(b Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.backends = append(m.backends, b)
	for _, scheme := range b.Schemes() {
		scheme = strings.ToUpper(scheme)
		if _, ok := m.schemes[scheme]; !ok {
			m.schemes[scheme] = b
		}
	}
}

// SetLogger sets the logger used to report backend failures.
func (m *Manager) SetLogger(l logger.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Schemes returns the served schemes in sorted order.
func (m *Manager) Schemes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	schemes := make([]string, 0, len(m.schemes))
	for s := range m.schemes {
		schemes = append(schemes, s)
	}
	slices.Sort(schemes)

	return schemes
}

func (m *Manager) Open(ctx context.Context, address string) (Session, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	backend, ok := m.schemes[addr.Scheme]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: no backend serves %q", ErrUnrecognizedInterface, addr.Scheme)
	}

	sess, err := backend.Open(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrUnreachable) || errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrUnrecognizedInterface) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, address, err)
	}

	return sess, nil
}

// ListResources merges the listings of every backend.
//
// A failing backend does not hide the resources found by the others, its error
// is joined into the returned error.
func (m *Manager) ListResources(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	backends := slices.Clone(m.backends)
	m.mu.Unlock()

	var (
		resources []string
		errs      []error
	)
	for _, b := range backends {
		found, err := b.List(ctx)
		if err != nil {
			m.logger.Warn("list resources failed", "schemes", b.Schemes(), "error", err)
			errs = append(errs, err)
		}
		for _, r := range found {
			if !slices.Contains(resources, r) {
				resources = append(resources, r)
			}
		}
	}

	return resources, errors.Join(errs...)
}

// Close closes every backend. Closing a closed Manager is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	backends := m.backends
	m.backends = nil
	m.schemes = map[string]Backend{}
	m.mu.Unlock()

	var errs []error
	for _, b := range backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
