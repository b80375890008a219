package instrument

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-testbench/visa"
)

// Family is the category of an instrument.
type Family string

const (
	FamilyGeneric      Family = "generic instrument"
	FamilyElectrometer Family = "electrometer"
	FamilyOscilloscope Family = "oscilloscope"
)

// IdentityQuery is the standard identification query.
const IdentityQuery = "*IDN?"

// Descriptor is the identity of a physical instrument.
//
// The identity fields are filled by ParseIdentity and Interface is set when a
// session is attached. A Descriptor is a value, an instrument hands out copies.
type Descriptor struct {
	Family          Family
	Manufacturer    string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	Interface       visa.InterfaceType
}

// ParseIdentity parses an identification reply of the form
// "<manufacturer>,<model>,<serial>,<firmware>".
//
// The reply must have exactly four fields, a partial identity is rejected.
func ParseIdentity(reply string) (Descriptor, error) {
	text := strings.TrimSpace(reply)
	fields := strings.Split(text, ",")
	if text == "" || len(fields) != 4 {
		return Descriptor{}, fmt.Errorf("%w: %q has %d fields, expect 4", ErrMalformedIdentity, text, len(fields))
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" || fields[1] == "" {
		return Descriptor{}, fmt.Errorf("%w: %q has an empty manufacturer or model", ErrMalformedIdentity, text)
	}

	return Descriptor{
		Manufacturer:    fields[0],
		Model:           fields[1],
		SerialNumber:    fields[2],
		FirmwareVersion: fields[3],
	}, nil
}

func (d Descriptor) String() string {
	family := d.Family
	if family == "" {
		family = FamilyGeneric
	}

	return fmt.Sprintf("%s from %s, %s model (SN = %s), connected by %s",
		family, orUnknown(d.Manufacturer), orUnknown(d.Model), orUnknown(d.SerialNumber), d.Interface)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}
