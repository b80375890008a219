package transfer

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the negotiated encoding state of one instrument link.
//
// The zero value is not usable, create a Config with NewConfig. Fields are only
// changed through the validating setters, a failed setter leaves the Config unchanged.
//
// Config is not safe for concurrent use.
type Config struct {
	container  Container
	available  []Format
	activated  Format
	header     HeaderKind
	endianness Endianness
	element    ElementType
	readTerm   Terminator
	writeTerm  Terminator
	converter  Converter
	separator  Separator
	timeout    time.Duration
}

// NewConfig creates a Config with the default settings: native container, no
// available or activated format, IEEE block header, little-endian float32
// elements, LF terminators, fixed-point converter, comma separator and a zero timeout.
func NewConfig() *Config {
	return &Config{
		container:  ContainerNative,
		available:  []Format{},
		activated:  FormatNone,
		header:     HeaderIEEE,
		endianness: LittleEndian,
		element:    Float32,
		readTerm:   LF,
		writeTerm:  LF,
		converter:  ConvFixed,
		separator:  Comma,
		timeout:    Immediate,
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.available = slices.Clone(c.available)

	return &clone
}

// DataContainer returns the container used to shape decoded values.
func (c *Config) DataContainer() Container { return c.container }

// SetDataContainer sets the data container from an alias.
func (c *Config) SetDataContainer(alias string) error {
	container, err := ParseContainer(alias)
	if err != nil {
		return err
	}
	c.container = container

	return nil
}

// AvailableFormats returns the formats supported by the instrument family.
func (c *Config) AvailableFormats() []Format {
	return slices.Clone(c.available)
}

// SetAvailableFormats replaces the available formats.
//
// Every alias is validated before anything is stored. Aliases of the same
// format collapse to a single entry, the order of first appearance is kept.
// Narrowing the set does not reset the activated format.
func (c *Config) SetAvailableFormats(aliases ...string) error {
	formats := make([]Format, 0, len(aliases))
	for _, alias := range aliases {
		f, err := ParseFormat(alias)
		if err != nil {
			return err
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	c.available = formats

	return nil
}

// IsAvailable reports whether the format is in the available formats.
func (c *Config) IsAvailable(f Format) bool {
	return slices.Contains(c.available, f)
}

// ActivatedFormat returns the format used for data queries, FormatNone if none is activated.
func (c *Config) ActivatedFormat() Format { return c.activated }

// SetActivatedFormat activates a format. It fails with ErrInvalidArgument
// unless the format is one of the available formats.
func (c *Config) SetActivatedFormat(alias string) error {
	f, err := ParseFormat(alias)
	if err != nil {
		return err
	}
	if !c.IsAvailable(f) {
		return fmt.Errorf("%w: format %q is not available, available formats are %v", ErrInvalidArgument, alias, c.available)
	}
	c.activated = f

	return nil
}

// BinaryHeader returns the binary block header kind.
func (c *Config) BinaryHeader() HeaderKind { return c.header }

// SetBinaryHeader sets the binary block header kind from an alias.
func (c *Config) SetBinaryHeader(alias string) error {
	h, err := ParseHeaderKind(alias)
	if err != nil {
		return err
	}
	c.header = h

	return nil
}

// BinaryEndianness returns the byte order of binary elements.
func (c *Config) BinaryEndianness() Endianness { return c.endianness }

// SetBinaryEndianness sets the byte order of binary elements from an alias.
func (c *Config) SetBinaryEndianness(alias string) error {
	e, err := ParseEndianness(alias)
	if err != nil {
		return err
	}
	c.endianness = e

	return nil
}

// BinaryElementType returns the binary element type.
func (c *Config) BinaryElementType() ElementType { return c.element }

// SetBinaryElementType sets the binary element type from an alias.
func (c *Config) SetBinaryElementType(alias string) error {
	e, err := ParseElementType(alias)
	if err != nil {
		return err
	}
	c.element = e

	return nil
}

// ReadTerminator returns the terminator expected at the end of replies.
func (c *Config) ReadTerminator() Terminator { return c.readTerm }

// WriteTerminator returns the terminator appended to commands.
func (c *Config) WriteTerminator() Terminator { return c.writeTerm }

// SetTerminator sets the read or write terminator from an alias.
func (c *Config) SetTerminator(role Role, alias string) error {
	t, err := ParseTerminator(alias)
	if err != nil {
		return err
	}

	switch role {
	case ReadRole:
		c.readTerm = t
	case WriteRole:
		c.writeTerm = t
	default:
		return fmt.Errorf("%w: terminator role %d", ErrInvalidArgument, role)
	}

	return nil
}

// SetReadTerminator is a shortcut of SetTerminator(ReadRole, alias).
func (c *Config) SetReadTerminator(alias string) error {
	return c.SetTerminator(ReadRole, alias)
}

// SetWriteTerminator is a shortcut of SetTerminator(WriteRole, alias).
func (c *Config) SetWriteTerminator(alias string) error {
	return c.SetTerminator(WriteRole, alias)
}

// TextConverter returns the text converter.
func (c *Config) TextConverter() Converter { return c.converter }

// SetTextConverter sets the text converter from an alias.
func (c *Config) SetTextConverter(alias string) error {
	conv, err := ParseConverter(alias)
	if err != nil {
		return err
	}
	c.converter = conv

	return nil
}

// TextSeparator returns the separator between text values.
func (c *Config) TextSeparator() Separator { return c.separator }

// SetTextSeparator sets the text separator from an alias.
func (c *Config) SetTextSeparator(alias string) error {
	sep, err := ParseSeparator(alias)
	if err != nil {
		return err
	}
	c.separator = sep

	return nil
}

// Timeout returns the I/O timeout.
func (c *Config) Timeout() time.Duration { return c.timeout }

// SetTimeout sets the I/O timeout. Use Immediate or Infinite for the sentinels.
func (c *Config) SetTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidArgument, d)
	}
	c.timeout = d

	return nil
}

// SetTimeoutValue sets the I/O timeout from a textual value, see ParseTimeout.
func (c *Config) SetTimeoutValue(value string) error {
	d, err := ParseTimeout(value)
	if err != nil {
		return err
	}
	c.timeout = d

	return nil
}

// Setting keys accepted by Apply and returned by Settings.
const (
	KeyDataContainer     = "data_container"
	KeyAvailableFormats  = "available_formats"
	KeyActivatedFormat   = "activated_format"
	KeyBinaryHeader      = "binary_header"
	KeyBinaryEndianness  = "binary_endianness"
	KeyBinaryElementType = "binary_element_type"
	KeyReadTerminator    = "read_terminator"
	KeyWriteTerminator   = "write_terminator"
	KeyTextConverter     = "text_converter"
	KeyTextSeparator     = "text_separator"
	KeyTimeout           = "timeout"
)

// applyOrder makes available_formats precede activated_format.
var applyOrder = []string{
	KeyDataContainer,
	KeyAvailableFormats,
	KeyActivatedFormat,
	KeyBinaryHeader,
	KeyBinaryEndianness,
	KeyBinaryElementType,
	KeyReadTerminator,
	KeyWriteTerminator,
	KeyTextConverter,
	KeyTextSeparator,
	KeyTimeout,
}

// Apply updates several settings at once, each value goes through its setter.
//
// available_formats is a comma separated list and an empty activated_format
// deactivates the current format. Keys are applied in a fixed order
// so that available_formats is set before activated_format. Unknown keys fail
// with ErrInvalidArgument. Apply is atomic: on error c is left unchanged.
func (c *Config) Apply(settings map[string]string) error {
	for key := range settings {
		if !slices.Contains(applyOrder, key) {
			return fmt.Errorf("%w: unknown transfer setting %q", ErrInvalidArgument, key)
		}
	}

	next := c.Clone()
	for _, key := range applyOrder {
		value, ok := settings[key]
		if !ok {
			continue
		}
		if err := next.set(key, value); err != nil {
			return fmt.Errorf("transfer setting %s: %w", key, err)
		}
	}
	*c = *next

	return nil
}

func (c *Config) set(key string, value string) error {
	switch key {
	case KeyDataContainer:
		return c.SetDataContainer(value)
	case KeyAvailableFormats:
		var aliases []string
		for _, alias := range strings.Split(value, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				aliases = append(aliases, alias)
			}
		}
		return c.SetAvailableFormats(aliases...)
	case KeyActivatedFormat:
		if strings.TrimSpace(value) == "" {
			c.activated = FormatNone
			return nil
		}
		return c.SetActivatedFormat(value)
	case KeyBinaryHeader:
		return c.SetBinaryHeader(value)
	case KeyBinaryEndianness:
		return c.SetBinaryEndianness(value)
	case KeyBinaryElementType:
		return c.SetBinaryElementType(value)
	case KeyReadTerminator:
		return c.SetReadTerminator(value)
	case KeyWriteTerminator:
		return c.SetWriteTerminator(value)
	case KeyTextConverter:
		return c.SetTextConverter(value)
	case KeyTextSeparator:
		return c.SetTextSeparator(value)
	case KeyTimeout:
		return c.SetTimeoutValue(value)
	default:
		return fmt.Errorf("%w: unknown transfer setting %q", ErrInvalidArgument, key)
	}
}

// Settings returns a snapshot of every setting in the form accepted by Apply.
func (c *Config) Settings() map[string]string {
	formats := make([]string, len(c.available))
	for i, f := range c.available {
		formats[i] = string(f)
	}

	return map[string]string{
		KeyDataContainer:     string(c.container),
		KeyAvailableFormats:  strings.Join(formats, ","),
		KeyActivatedFormat:   string(c.activated),
		KeyBinaryHeader:      string(c.header),
		KeyBinaryEndianness:  string(c.endianness),
		KeyBinaryElementType: c.element.String(),
		KeyReadTerminator:    c.readTerm.String(),
		KeyWriteTerminator:   c.writeTerm.String(),
		KeyTextConverter:     c.converter.String(),
		KeyTextSeparator:     c.separator.String(),
		KeyTimeout:           FormatTimeout(c.timeout),
	}
}

// BinaryFormat returns the binary decoding parameters, count is the number of
// expected elements or 0 when the block header carries the length.
func (c *Config) BinaryFormat(count int) BinaryFormat {
	return BinaryFormat{
		Element:   c.element,
		BigEndian: c.endianness == BigEndian,
		Header:    c.header,
		Container: c.container,
		Count:     count,
	}
}

// TextFormat returns the text decoding parameters.
func (c *Config) TextFormat() TextFormat {
	return TextFormat{
		Converter: c.converter,
		Separator: c.separator,
		Container: c.container,
	}
}
