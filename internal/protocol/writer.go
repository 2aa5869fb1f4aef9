package protocol

import (
	"encoding/binary"
	"math"
)

// Writer накапливает тело пакета. Все многобайтовые значения — Little-Endian.
// Записи только добавляются в конец.
type Writer struct {
	buf []byte
}

// NewWriter создаёт Writer с начальной ёмкостью capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteUint8 пишет 1 байт.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteInt8 пишет int8.
func (w *Writer) WriteInt8(v int8) {
	w.WriteUint8(uint8(v))
}

// WriteBool пишет bool как u8 (0/1).
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint16 пишет uint16 (LE).
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteInt16 пишет int16 (LE).
func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

// WriteUint32 пишет uint32 (LE).
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteInt32 пишет int32 (LE).
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 пишет uint64 (LE).
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteInt64 пишет int64 (LE).
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteFloat32 пишет float32 (LE, IEEE 754).
func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 пишет float64 (LE, IEEE 754).
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteString writes an osu-framed string: empty strings get the 0x00
// marker, everything else 0x0B + ULEB128 length + UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	if s == "" {
		w.WriteUint8(stringMarkerNull)
		return
	}
	w.WriteUint8(stringMarkerPrefix)
	w.writeULEB128(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteIntList пишет u16 count и элементы int32.
func (w *Writer) WriteIntList(values []int32) {
	w.WriteUint16(uint16(len(values)))
	for _, v := range values {
		w.WriteInt32(v)
	}
}

// WriteBytes пишет сырые байты без префикса длины.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes возвращает накопленное тело пакета.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len возвращает текущую длину тела.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) writeULEB128(v uint64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return
		}
	}
}
