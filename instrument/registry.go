package instrument

import (
	"fmt"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Builder creates the instrument of a parsed identity.
type Builder func(desc Descriptor) (Instrument, error)

// Registry maps a manufacturer to its model builders.
//
// Models are matched exactly first, then by the longest registered model
// prefix. Names are matched case-insensitively.
type Registry struct {
	manufacturers *xsync.MapOf[string, *modelTable]
}

type modelTable struct {
	exact    *xsync.MapOf[string, Builder]
	prefixes *xsync.MapOf[string, Builder]
}

// DefaultRegistry is the registry drivers register themselves with.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{manufacturers: xsync.NewMapOf[string, *modelTable]()}
}

func key(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (r *Registry) table(manufacturer string) *modelTable {
	t, _ := r.manufacturers.LoadOrCompute(key(manufacturer), func() *modelTable {
		return &modelTable{
			exact:    xsync.NewMapOf[string, Builder](),
			prefixes: xsync.NewMapOf[string, Builder](),
		}
	})

	return t
}

// Register registers a builder for an exact model, replacing a previous one.
func (r *Registry) Register(manufacturer string, model string, b Builder) {
	if key(manufacturer) == "" || key(model) == "" || b == nil {
		panic("instrument: Register with empty manufacturer, model or builder")
	}
	r.table(manufacturer).exact.Store(key(model), b)
}

// RegisterPrefix registers a builder for every model starting with prefix.
func (r *Registry) RegisterPrefix(manufacturer string, prefix string, b Builder) {
	if key(manufacturer) == "" || key(prefix) == "" || b == nil {
		panic("instrument: RegisterPrefix with empty manufacturer, prefix or builder")
	}
	r.table(manufacturer).prefixes.Store(key(prefix), b)
}

// Lookup returns the builder of a model. It fails with ErrUnknownManufacturer
// or ErrUnknownModel.
func (r *Registry) Lookup(manufacturer string, model string) (Builder, error) {
	t, ok := r.manufacturers.Load(key(manufacturer))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownManufacturer, manufacturer)
	}

	m := key(model)
	if b, ok := t.exact.Load(m); ok {
		return b, nil
	}

	var (
		found   Builder
		longest int
	)
	t.prefixes.Range(func(prefix string, b Builder) bool {
		if strings.HasPrefix(m, prefix) && len(prefix) > longest {
			found, longest = b, len(prefix)
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %q from %q", ErrUnknownModel, model, manufacturer)
	}

	return found, nil
}

// Manufacturers returns the registered manufacturer keys in sorted order.
func (r *Registry) Manufacturers() []string {
	names := make([]string, 0, r.manufacturers.Size())
	r.manufacturers.Range(func(name string, _ *modelTable) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}

// Register registers a model builder with DefaultRegistry.
func Register(manufacturer string, model string, b Builder) {
	DefaultRegistry.Register(manufacturer, model, b)
}

// RegisterPrefix registers a model prefix builder with DefaultRegistry.
func RegisterPrefix(manufacturer string, prefix string, b Builder) {
	DefaultRegistry.RegisterPrefix(manufacturer, prefix, b)
}
