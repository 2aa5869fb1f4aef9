package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when a read would run past the end of the buffer.
var ErrTruncated = errors.New("packet truncated")

// String framing markers. A string starts with a one-byte marker:
// 0x00 means an absent/empty string, 0x0B means a ULEB128 length
// followed by that many UTF-8 bytes.
const (
	stringMarkerNull   = 0x00
	stringMarkerPrefix = 0x0B
)

// Reader читает типизированные значения из тела пакета.
// Все многобайтовые значения — Little-Endian.
type Reader struct {
	data []byte
	pos  int
}

// NewReader создаёт Reader поверх data. Буфер не копируется.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadUint8 читает 1 байт.
func (r *Reader) ReadUint8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadUint8 at %d of %d: %w", r.pos, len(r.data), ErrTruncated)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadInt8 читает int8.
func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.ReadUint8()
	return int8(b), err
}

// ReadBool читает u8 и трактует любое ненулевое значение как true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	return b != 0, err
}

// ReadUint16 читает uint16 (2 байта, LE).
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadUint16 at %d of %d: %w", r.pos, len(r.data), ErrTruncated)
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadInt16 читает int16 (2 байта, LE).
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 читает uint32 (4 байта, LE).
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadUint32 at %d of %d: %w", r.pos, len(r.data), ErrTruncated)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 читает int32 (4 байта, LE).
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 читает uint64 (8 байт, LE).
func (r *Reader) ReadUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadUint64 at %d of %d: %w", r.pos, len(r.data), ErrTruncated)
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInt64 читает int64 (8 байт, LE).
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 читает float32 (4 байта, LE, IEEE 754).
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 читает float64 (8 байт, LE, IEEE 754).
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads an osu-framed string: marker byte, then for 0x0B a
// ULEB128 length and UTF-8 payload. Marker 0x00 decodes to "".
func (r *Reader) ReadString() (string, error) {
	marker, err := r.ReadUint8()
	if err != nil {
		return "", fmt.Errorf("reading string marker: %w", err)
	}

	switch marker {
	case stringMarkerNull:
		return "", nil
	case stringMarkerPrefix:
		length, err := r.readULEB128()
		if err != nil {
			return "", fmt.Errorf("reading string length: %w", err)
		}
		b, err := r.ReadBytes(int(length))
		if err != nil {
			return "", fmt.Errorf("reading string body: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("invalid string marker 0x%02x at %d", marker, r.pos-1)
	}
}

// ReadIntList reads a u16 count followed by that many int32 values.
func (r *Reader) ReadIntList() ([]int32, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("reading list count: %w", err)
	}
	out := make([]int32, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("reading list element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadBytes читает n байт. Возвращает копию.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes at %d, need %d of %d: %w", r.pos, n, len(r.data), ErrTruncated)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

// Remaining возвращает все непрочитанные байты (копию) и сдвигает курсор в конец.
func (r *Reader) Remaining() []byte {
	b := make([]byte, len(r.data)-r.pos)
	copy(b, r.data[r.pos:])
	r.pos = len(r.data)
	return b
}

// EOF returns true when the cursor reached the end of the buffer.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.data)
}

// Position возвращает текущую позицию чтения.
func (r *Reader) Position() int {
	return r.pos
}

func (r *Reader) readULEB128() (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("ULEB128 value too large at %d", r.pos)
		}
	}
}
