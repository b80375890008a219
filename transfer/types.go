package transfer

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Format is a data transfer format.
type Format string

const (
	// FormatNone means no format is activated.
	FormatNone   Format = ""
	FormatText   Format = "text"
	FormatBinary Format = "binary"
)

var formatAliases = map[string]Format{
	"text":   FormatText,
	"ascii":  FormatText,
	"bin":    FormatBinary,
	"binary": FormatBinary,
	"bin32":  FormatBinary,
	"bin64":  FormatBinary,
}

// ParseFormat normalizes a transfer format alias.
func ParseFormat(alias string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(alias))]; ok {
		return f, nil
	}

	return FormatNone, fmt.Errorf("%w: transfer format %q, valid formats are text, ascii, bin, binary, bin32, bin64", ErrInvalidArgument, alias)
}

// ElementType is the canonical one-letter code of a binary element type.
type ElementType byte

const (
	Float32 ElementType = 'f'
	Float64 ElementType = 'd'
	Int16   ElementType = 'h'
	Int32   ElementType = 'i'
	Int64   ElementType = 'q'
	Uint16  ElementType = 'H'
	Uint32  ElementType = 'I'
	Uint64  ElementType = 'Q'
)

// ElementTypes lists every supported element type.
var ElementTypes = []ElementType{Float32, Float64, Int16, Int32, Int64, Uint16, Uint32, Uint64}

// one-letter codes are case sensitive, names are not.
var elementCodes = map[string]ElementType{
	"f": Float32, "d": Float64,
	"h": Int16, "i": Int32, "l": Int32, "q": Int64,
	"H": Uint16, "I": Uint32, "L": Uint32, "Q": Uint64,
}

var elementNames = map[string]ElementType{
	"float": Float32, "float32": Float32, "single": Float32, "bin32": Float32,
	"double": Float64, "float64": Float64, "bin64": Float64,
	"short": Int16, "int16": Int16,
	"int": Int32, "long": Int32, "int32": Int32,
	"long long": Int64, "int64": Int64,
	"unsigned short": Uint16, "uint16": Uint16,
	"unsigned int": Uint32, "unsigned long": Uint32, "uint32": Uint32,
	"unsigned long long": Uint64, "uint64": Uint64,
}

// ParseElementType normalizes a binary element type alias.
func ParseElementType(alias string) (ElementType, error) {
	alias = strings.TrimSpace(alias)
	if e, ok := elementCodes[alias]; ok {
		return e, nil
	}
	if e, ok := elementNames[strings.ToLower(alias)]; ok {
		return e, nil
	}

	return 0, fmt.Errorf("%w: binary element type %q", ErrInvalidArgument, alias)
}

// Size returns the encoded size of one element in bytes.
func (e ElementType) Size() int {
	switch e {
	case Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

// Kind returns the value kind produced when decoding elements of this type.
func (e ElementType) Kind() Kind {
	switch e {
	case Float32, Float64:
		return KindFloat
	case Int16, Int32, Int64:
		return KindInt
	case Uint16, Uint32, Uint64:
		return KindUint
	default:
		return KindText
	}
}

func (e ElementType) String() string {
	switch e {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	default:
		return "unknown"
	}
}

// Endianness is the byte order of binary elements.
type Endianness string

const (
	BigEndian    Endianness = "big"
	LittleEndian Endianness = "little"
)

// ParseEndianness normalizes a byte order alias.
func ParseEndianness(alias string) (Endianness, error) {
	switch strings.ToLower(strings.TrimSpace(alias)) {
	case "big", "be", ">", "big-endian", "msb":
		return BigEndian, nil
	case "little", "le", "<", "little-endian", "lsb":
		return LittleEndian, nil
	default:
		return "", fmt.Errorf("%w: binary endianness %q, valid values are big, little", ErrInvalidArgument, alias)
	}
}

// ByteOrder returns the encoding/binary byte order.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// HeaderKind is the framing of a binary block.
type HeaderKind string

const (
	HeaderIEEE  HeaderKind = "ieee"
	HeaderEmpty HeaderKind = "empty"
	HeaderHP    HeaderKind = "hp"
)

// ParseHeaderKind normalizes a binary header alias.
func ParseHeaderKind(alias string) (HeaderKind, error) {
	switch strings.ToLower(strings.TrimSpace(alias)) {
	case "ieee", "ieee-block", "ieee488.2", "definite":
		return HeaderIEEE, nil
	case "empty", "none":
		return HeaderEmpty, nil
	case "hp", "vendor", "vendor-specific":
		return HeaderHP, nil
	default:
		return "", fmt.Errorf("%w: binary header %q, valid headers are ieee, empty, hp", ErrInvalidArgument, alias)
	}
}

// SelfFramed reports whether the block header carries the payload length.
func (h HeaderKind) SelfFramed() bool {
	return h == HeaderIEEE || h == HeaderHP
}

// Terminator is a message terminator.
type Terminator string

const (
	CR   Terminator = "\r"
	LF   Terminator = "\n"
	CRLF Terminator = "\r\n"
)

var terminatorAliases = map[string]Terminator{
	"cr": CR, "carriage return": CR, "\r": CR, `\r`: CR,
	"lf": LF, "nl": LF, "newline": LF, "line feed": LF, "\n": LF, `\n`: LF,
	"crlf": CRLF, "\r\n": CRLF, `\r\n`: CRLF,
}

// ParseTerminator normalizes a message terminator alias.
func ParseTerminator(alias string) (Terminator, error) {
	if t, ok := terminatorAliases[strings.ToLower(alias)]; ok {
		return t, nil
	}

	return "", fmt.Errorf("%w: message terminator %q, valid terminators are CR, LF, CRLF", ErrInvalidArgument, alias)
}

func (t Terminator) String() string {
	switch t {
	case CR:
		return "CR"
	case LF:
		return "LF"
	case CRLF:
		return "CRLF"
	default:
		return fmt.Sprintf("%q", string(t))
	}
}

// Role selects the direction a terminator applies to.
type Role int

const (
	ReadRole Role = iota
	WriteRole
)

func (r Role) String() string {
	if r == WriteRole {
		return "write"
	}

	return "read"
}

// Converter is the canonical one-letter code of a text converter.
type Converter byte

const (
	ConvBinary      Converter = 'b'
	ConvOctal       Converter = 'o'
	ConvHex         Converter = 'x'
	ConvDecimal     Converter = 'd'
	ConvFixed       Converter = 'f'
	ConvExponential Converter = 'e'
	ConvString      Converter = 's'
)

var converterAliases = map[string]Converter{
	"b": ConvBinary, "bin": ConvBinary, "binary": ConvBinary,
	"o": ConvOctal, "oct": ConvOctal, "octal": ConvOctal,
	"x": ConvHex, "hex": ConvHex, "hexadecimal": ConvHex,
	"d": ConvDecimal, "dec": ConvDecimal, "decimal": ConvDecimal,
	"f": ConvFixed, "fix": ConvFixed, "fixed": ConvFixed, "fixed-point": ConvFixed,
	"e": ConvExponential, "exp": ConvExponential, "exponent": ConvExponential, "exponential": ConvExponential,
	"s": ConvString, "str": ConvString, "string": ConvString,
}

// ParseConverter normalizes a text converter alias.
func ParseConverter(alias string) (Converter, error) {
	if c, ok := converterAliases[strings.ToLower(strings.TrimSpace(alias))]; ok {
		return c, nil
	}

	return 0, fmt.Errorf("%w: text converter %q", ErrInvalidArgument, alias)
}

// Kind returns the value kind produced by the converter.
func (c Converter) Kind() Kind {
	switch c {
	case ConvBinary, ConvOctal, ConvHex, ConvDecimal:
		return KindInt
	case ConvFixed, ConvExponential:
		return KindFloat
	default:
		return KindText
	}
}

func (c Converter) base() int {
	switch c {
	case ConvBinary:
		return 2
	case ConvOctal:
		return 8
	case ConvHex:
		return 16
	default:
		return 10
	}
}

func (c Converter) String() string {
	return string(c)
}

// Separator is a text data delimiter.
type Separator byte

const (
	Comma     Separator = ','
	Semicolon Separator = ';'
	Space     Separator = ' '
)

// ParseSeparator normalizes a text separator alias.
func ParseSeparator(alias string) (Separator, error) {
	switch strings.ToLower(alias) {
	case ",", "comma":
		return Comma, nil
	case ";", "semicolon":
		return Semicolon, nil
	case " ", "space":
		return Space, nil
	default:
		return 0, fmt.Errorf("%w: text separator %q, valid separators are ',', ';', ' '", ErrInvalidArgument, alias)
	}
}

func (s Separator) String() string {
	return string(s)
}

// Container selects the Go representation returned by Data.Values.
type Container string

const (
	// ContainerNative keeps the decoded kind: []float64, []int64, []uint64 or []string.
	ContainerNative Container = "native"
	// ContainerFloat64 converts every numeric value to float64.
	ContainerFloat64 Container = "float64"
	// ContainerText formats every value as a string.
	ContainerText Container = "text"
)

// ParseContainer normalizes a data container alias.
func ParseContainer(alias string) (Container, error) {
	switch strings.ToLower(strings.TrimSpace(alias)) {
	case "native":
		return ContainerNative, nil
	case "float64", "float":
		return ContainerFloat64, nil
	case "text", "string":
		return ContainerText, nil
	default:
		return "", fmt.Errorf("%w: data container %q, valid containers are native, float64, text", ErrInvalidArgument, alias)
	}
}
