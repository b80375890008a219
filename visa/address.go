package visa

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Address is a parsed resource address.
type Address struct {
	// Raw is the address as given by the caller.
	Raw string
	// Interface is the interface type of the scheme, InterfaceUnknown for an unknown scheme.
	Interface InterfaceType
	// Scheme is the upper-case interface prefix, e.g. "TCPIP".
	Scheme string
	// Board is the board number, or the device path for ASRL resources.
	Board string
	// Fields are the fields between the interface and the resource class.
	Fields []string
	// Class is the resource class, "INSTR" when omitted.
	Class string
}

// String returns the canonical form of the address.
func (a Address) String() string {
	parts := make([]string, 0, len(a.Fields)+2)
	parts = append(parts, a.Scheme+a.Board)
	parts = append(parts, a.Fields...)
	parts = append(parts, a.Class)

	return strings.Join(parts, "::")
}

// Field returns the i-th field or an empty string.
func (a Address) Field(i int) string {
	if i < 0 || i >= len(a.Fields) {
		return ""
	}

	return a.Fields[i]
}

var resourceClasses = []string{"INSTR", "SOCKET", "RAW", "INTFC", "BACKPLANE", "MEMACC", "SERVANT"}

// schemes ordered so that a longer scheme is tried before its prefix.
var knownSchemes = []string{"GPIB-VXI", "GPIB", "VXI", "ASRL", "PXI", "TCPIP", "USB", "RIO", "FIREWIRE", "RSNRP", "SIM"}

var addressLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Sep", Pattern: `::`},
	// bracketed IPv6 hosts keep their colons
	{Name: "Word", Pattern: `\[[^\]\s]*\]|[^:\s]+`},
})

type resourceAST struct {
	Head   string   `@Word`
	Fields []string `( Sep @Word )*`
}

var addressParser = participle.MustBuild[resourceAST](
	participle.Lexer(addressLexer),
)

// ParseAddress parses a resource address.
//
// A syntactically valid address with an unknown scheme is accepted with
// Interface set to InterfaceUnknown, a syntax error fails with ErrInvalidAddress.
func ParseAddress(raw string) (Address, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	ast, err := addressParser.ParseString("", text)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, raw, err)
	}

	addr := Address{Raw: raw, Class: "INSTR"}
	if err := addr.parseHead(ast.Head); err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, raw, err)
	}

	fields := ast.Fields
	if n := len(fields); n > 0 && slices.Contains(resourceClasses, strings.ToUpper(fields[n-1])) {
		addr.Class = strings.ToUpper(fields[n-1])
		fields = fields[:n-1]
	}
	addr.Fields = fields

	return addr, nil
}

func (a *Address) parseHead(head string) error {
	upper := strings.ToUpper(head)
	for _, scheme := range knownSchemes {
		if !strings.HasPrefix(upper, scheme) {
			continue
		}
		board := head[len(scheme):]
		if scheme != "ASRL" && !isDigits(board) {
			continue
		}
		a.Scheme = scheme
		a.Board = board
		a.Interface = InterfaceFromScheme(scheme)

		return nil
	}

	i := strings.IndexFunc(upper, func(r rune) bool { return (r < 'A' || r > 'Z') && r != '-' })
	if i < 0 {
		i = len(upper)
	}
	if i == 0 || !isDigits(head[i:]) {
		return fmt.Errorf("interface %q", head)
	}
	a.Scheme = upper[:i]
	a.Board = head[i:]
	a.Interface = InterfaceUnknown

	return nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
