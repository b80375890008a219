package instrument

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func builderOf(family Family) Builder {
	return func(desc Descriptor) (Instrument, error) {
		return NewBase(family, desc), nil
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register("Keysight Technologies", "B2987A", builderOf(FamilyElectrometer))
	r.RegisterPrefix("Rigol Technologies", "DS1", builderOf(FamilyOscilloscope))
	r.RegisterPrefix("Rigol Technologies", "DS11", builderOf(FamilyGeneric))

	tests := []struct {
		description  string
		manufacturer string
		model        string
		family       Family
		err          error
	}{
		{description: "exact model", manufacturer: "Keysight Technologies", model: "B2987A", family: FamilyElectrometer},
		{description: "case insensitive", manufacturer: "KEYSIGHT technologies ", model: "b2987a", family: FamilyElectrometer},
		{description: "prefix", manufacturer: "Rigol Technologies", model: "DS1052E", family: FamilyOscilloscope},
		{description: "longest prefix wins", manufacturer: "Rigol Technologies", model: "DS1102E", family: FamilyGeneric},
		{description: "unknown model", manufacturer: "Keysight Technologies", model: "34461A", err: ErrUnknownModel},
		{description: "unknown manufacturer", manufacturer: "Acme", model: "Model7", err: ErrUnknownManufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			b, err := r.Lookup(tt.manufacturer, tt.model)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)

			inst, err := b(Descriptor{Manufacturer: tt.manufacturer, Model: tt.model})
			require.NoError(t, err)
			require.Equal(t, tt.family, inst.Family())
		})
	}

	require.Equal(t, []string{"KEYSIGHT TECHNOLOGIES", "RIGOL TECHNOLOGIES"}, r.Manufacturers())
}

func TestRegistry_RegisterPanics(t *testing.T) {
	r := NewRegistry()
	require.Panics(t, func() { r.Register("", "M", builderOf(FamilyGeneric)) })
	require.Panics(t, func() { r.Register("Acme", "M", nil) })
	require.Panics(t, func() { r.RegisterPrefix("Acme", " ", builderOf(FamilyGeneric)) })
}
