package transfer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// BinaryFormat holds the parameters used to encode and decode a binary block.
type BinaryFormat struct {
	Element   ElementType
	BigEndian bool
	Header    HeaderKind
	Container Container
	// Count is the number of expected elements, 0 means the block framing decides.
	Count int
}

func (f BinaryFormat) byteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

const maxHPLength = math.MaxUint16

// EncodeBlock encodes the data as a binary block framed with the configured header.
//
// Values are converted to the element type, a value that cannot be represented
// fails with ErrValueRange.
func EncodeBlock(d Data, f BinaryFormat) ([]byte, error) {
	size := f.Element.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: binary element type %q", ErrInvalidArgument, byte(f.Element))
	}

	payload, err := encodeElements(d, f.Element, f.byteOrder())
	if err != nil {
		return nil, err
	}

	switch f.Header {
	case HeaderEmpty:
		return payload, nil
	case HeaderIEEE:
		length := strconv.Itoa(len(payload))
		if len(length) > 9 {
			return nil, fmt.Errorf("%w: %d bytes do not fit in an IEEE block header", ErrValueRange, len(payload))
		}
		buf := make([]byte, 0, 2+len(length)+len(payload))
		buf = append(buf, '#', byte('0'+len(length)))
		buf = append(buf, length...)

		return append(buf, payload...), nil
	case HeaderHP:
		if len(payload) > maxHPLength {
			return nil, fmt.Errorf("%w: %d bytes do not fit in an HP block header", ErrValueRange, len(payload))
		}
		buf := make([]byte, 4, 4+len(payload))
		buf[0], buf[1] = '#', 'A'
		f.byteOrder().PutUint16(buf[2:], uint16(len(payload)))

		return append(buf, payload...), nil
	default:
		return nil, fmt.Errorf("%w: binary header %q", ErrInvalidArgument, f.Header)
	}
}

// DecodeBlock decodes a binary reply framed with the configured header.
//
// With HeaderIEEE and HeaderHP any bytes before the first '#' are skipped and
// bytes after the declared length are ignored. With HeaderEmpty or the
// indefinite IEEE form "#0", Count elements are taken when Count is positive,
// otherwise a trailing terminator is dropped and the remaining payload must be a
// whole number of elements.
func DecodeBlock(raw []byte, f BinaryFormat) (Data, error) {
	size := f.Element.Size()
	if size == 0 {
		return Data{}, fmt.Errorf("%w: binary element type %q", ErrInvalidArgument, byte(f.Element))
	}
	if f.Count < 0 {
		return Data{}, fmt.Errorf("%w: negative element count %d", ErrInvalidArgument, f.Count)
	}

	start, length, err := blockHeader(raw, f)
	if err != nil {
		return Data{}, err
	}
	payload := raw[start:]

	switch {
	case length >= 0:
		if len(payload) < length {
			return Data{}, fmt.Errorf("%w: header declares %d bytes, got %d", ErrMalformedBlock, length, len(payload))
		}
		payload = payload[:length]
		if f.Count > 0 {
			if f.Count*size > length {
				return Data{}, fmt.Errorf("%w: expected %d elements, block holds %d bytes", ErrMalformedBlock, f.Count, length)
			}
			payload = payload[:f.Count*size]
		}
	case f.Count > 0:
		if len(payload) < f.Count*size {
			return Data{}, fmt.Errorf("%w: expected %d elements, got %d bytes", ErrMalformedBlock, f.Count, len(payload))
		}
		payload = payload[:f.Count*size]
	default:
		if len(payload)%size != 0 {
			payload = trimTerminator(payload)
		}
	}

	if len(payload)%size != 0 {
		return Data{}, fmt.Errorf("%w: %d bytes is not a multiple of the %s size", ErrMalformedBlock, len(payload), f.Element)
	}

	return decodeElements(payload, f.Element, f.byteOrder()).WithContainer(f.Container), nil
}

// BlockSize returns the total number of bytes, leading bytes and header
// included, of the block that starts at the beginning of prefix.
//
// ok is false when more bytes are needed to know the size. size is -1 when the
// framing does not carry a length, the reply then ends at the read terminator.
func BlockSize(prefix []byte, f BinaryFormat) (size int, ok bool, err error) {
	if f.Header == HeaderEmpty {
		if f.Count > 0 {
			return f.Count * f.Element.Size(), true, nil
		}
		return -1, true, nil
	}

	start, length, err := blockHeader(prefix, f)
	if err != nil {
		if errors.Is(err, errIncomplete) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if length < 0 {
		if f.Count > 0 {
			return start + f.Count*f.Element.Size(), true, nil
		}
		return -1, true, nil
	}

	return start + length, true, nil
}

var errIncomplete = errors.New("incomplete block header")

// blockHeader returns the offset of the payload and the declared payload
// length, -1 for an unframed payload.
func blockHeader(raw []byte, f BinaryFormat) (int, int, error) {
	if f.Header == HeaderEmpty {
		return 0, -1, nil
	}

	pos := bytes.IndexByte(raw, '#')
	if pos < 0 {
		if len(raw) == 0 {
			return 0, 0, fmt.Errorf("%w: %w", ErrMalformedBlock, errIncomplete)
		}
		return 0, 0, fmt.Errorf("%w: missing '#' block marker", ErrMalformedBlock)
	}
	if pos+1 >= len(raw) {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedBlock, errIncomplete)
	}
	marker := raw[pos+1]

	switch f.Header {
	case HeaderIEEE:
		if marker < '0' || marker > '9' {
			return 0, 0, fmt.Errorf("%w: invalid IEEE length digit count %q", ErrMalformedBlock, marker)
		}
		digits := int(marker - '0')
		if digits == 0 {
			return pos + 2, -1, nil
		}
		end := pos + 2 + digits
		if end > len(raw) {
			return 0, 0, fmt.Errorf("%w: %w", ErrMalformedBlock, errIncomplete)
		}
		length, err := strconv.Atoi(string(raw[pos+2 : end]))
		if err != nil || length < 0 {
			return 0, 0, fmt.Errorf("%w: invalid IEEE block length %q", ErrMalformedBlock, raw[pos+2:end])
		}

		return end, length, nil
	case HeaderHP:
		if marker != 'A' {
			return 0, 0, fmt.Errorf("%w: invalid HP block marker %q", ErrMalformedBlock, marker)
		}
		end := pos + 4
		if end > len(raw) {
			return 0, 0, fmt.Errorf("%w: %w", ErrMalformedBlock, errIncomplete)
		}

		return end, int(f.byteOrder().Uint16(raw[pos+2 : end])), nil
	default:
		return 0, 0, fmt.Errorf("%w: binary header %q", ErrInvalidArgument, f.Header)
	}
}

func trimTerminator(payload []byte) []byte {
	if bytes.HasSuffix(payload, []byte(CRLF)) {
		return payload[:len(payload)-2]
	}
	if bytes.HasSuffix(payload, []byte(LF)) || bytes.HasSuffix(payload, []byte(CR)) {
		return payload[:len(payload)-1]
	}

	return payload
}

func encodeElements(d Data, elem ElementType, order binary.ByteOrder) ([]byte, error) {
	size := elem.Size()
	buf := make([]byte, d.Len()*size)

	switch elem.Kind() {
	case KindFloat:
		values, err := d.ToFloat()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			b := buf[i*size:]
			if elem == Float64 {
				order.PutUint64(b, math.Float64bits(v))
				continue
			}
			if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
				return nil, fmt.Errorf("%w: %v overflows float32", ErrValueRange, v)
			}
			order.PutUint32(b, math.Float32bits(float32(v)))
		}
	case KindInt:
		values, err := d.ToInt()
		if err != nil {
			return nil, err
		}
		bits := uint(size * 8)
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if bits == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		for i, v := range values {
			if v < lo || v > hi {
				return nil, fmt.Errorf("%w: %d overflows %s", ErrValueRange, v, elem)
			}
			putUint(order, buf[i*size:], size, uint64(v))
		}
	case KindUint:
		values, err := d.ToUint()
		if err != nil {
			return nil, err
		}
		hi := uint64(math.MaxUint64)
		if size < 8 {
			hi = uint64(1)<<(uint(size)*8) - 1
		}
		for i, v := range values {
			if v > hi {
				return nil, fmt.Errorf("%w: %d overflows %s", ErrValueRange, v, elem)
			}
			putUint(order, buf[i*size:], size, v)
		}
	default:
		return nil, fmt.Errorf("%w: binary element type %q", ErrInvalidArgument, byte(elem))
	}

	return buf, nil
}

func putUint(order binary.ByteOrder, b []byte, size int, v uint64) {
	switch size {
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	default:
		order.PutUint64(b, v)
	}
}

func decodeElements(payload []byte, elem ElementType, order binary.ByteOrder) Data {
	size := elem.Size()
	n := len(payload) / size

	switch elem {
	case Float32, Float64:
		values := make([]float64, n)
		for i := range values {
			b := payload[i*size:]
			if elem == Float32 {
				values[i] = float64(math.Float32frombits(order.Uint32(b)))
			} else {
				values[i] = math.Float64frombits(order.Uint64(b))
			}
		}
		return Data{kind: KindFloat, floats: values}
	case Int16, Int32, Int64:
		values := make([]int64, n)
		for i := range values {
			b := payload[i*size:]
			switch elem {
			case Int16:
				values[i] = int64(int16(order.Uint16(b)))
			case Int32:
				values[i] = int64(int32(order.Uint32(b)))
			default:
				values[i] = int64(order.Uint64(b))
			}
		}
		return Data{kind: KindInt, ints: values}
	default:
		values := make([]uint64, n)
		for i := range values {
			b := payload[i*size:]
			switch elem {
			case Uint16:
				values[i] = uint64(order.Uint16(b))
			case Uint32:
				values[i] = uint64(order.Uint32(b))
			default:
				values[i] = order.Uint64(b)
			}
		}
		return Data{kind: KindUint, uints: values}
	}
}
