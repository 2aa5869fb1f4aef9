package protocol

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

// FrameHeaderSize — размер заголовка кадра: u16 packet id, u8 compressed, u32 length.
const FrameHeaderSize = 7

// MaxFramePayload caps a single frame payload. Anything larger than a
// replay bundle is a broken or hostile client.
const MaxFramePayload = 1 << 24

// ReadFrame reads one framed packet from r.
// Frame layout: u16 packet_id | u8 compressed | u32 length | payload.
// A compressed payload is raw-deflate and is inflated before returning.
func ReadFrame(r io.Reader) (packetID uint16, payload []byte, err error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}

	packetID = binary.LittleEndian.Uint16(header[0:2])
	compressed := header[2] != 0
	length := binary.LittleEndian.Uint32(header[3:7])

	if length > MaxFramePayload {
		return 0, nil, fmt.Errorf("frame payload %d exceeds limit %d", length, MaxFramePayload)
	}

	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}

	if compressed {
		payload, err = inflate(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("inflating frame payload: %w", err)
		}
	}

	return packetID, payload, nil
}

// WriteFrame writes one framed packet to w. Outbound frames are never
// compressed; clients accept compressed=0 regardless of size.
func WriteFrame(w io.Writer, packetID uint16, payload []byte) error {
	var header [FrameHeaderSize]byte
	binary.LittleEndian.PutUint16(header[0:2], packetID)
	header[2] = 0
	binary.LittleEndian.PutUint32(header[3:7], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("writing frame payload: %w", err)
		}
	}
	return nil
}

// AppendFrame appends a framed packet to buf and returns the extended slice.
// Используется для накопления исходящих пакетов в буфере сессии.
func AppendFrame(buf []byte, packetID uint16, payload []byte) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, packetID)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// SplitFrame отрезает один кадр от начала buf. Используется для разбора
// тел HTTP-поллинга, где кадры лежат подряд в памяти.
func SplitFrame(buf []byte) (packetID uint16, payload, rest []byte, err error) {
	if len(buf) < FrameHeaderSize {
		return 0, nil, nil, fmt.Errorf("buffer of %d bytes is shorter than a frame header", len(buf))
	}

	packetID = binary.LittleEndian.Uint16(buf[0:2])
	compressed := buf[2] != 0
	length := binary.LittleEndian.Uint32(buf[3:7])

	if length > MaxFramePayload {
		return 0, nil, nil, fmt.Errorf("frame payload %d exceeds limit %d", length, MaxFramePayload)
	}
	if uint32(len(buf)-FrameHeaderSize) < length {
		return 0, nil, nil, fmt.Errorf("frame payload truncated: have %d bytes, want %d", len(buf)-FrameHeaderSize, length)
	}

	payload = buf[FrameHeaderSize : FrameHeaderSize+int(length)]
	rest = buf[FrameHeaderSize+int(length):]

	if compressed {
		payload, err = inflate(payload)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("inflating frame payload: %w", err)
		}
	}
	return packetID, payload, rest, nil
}

func inflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	out, err := io.ReadAll(io.LimitReader(fr, MaxFramePayload+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxFramePayload {
		return nil, fmt.Errorf("inflated payload exceeds limit %d", MaxFramePayload)
	}
	return out, nil
}

// Deflate compresses data with raw deflate. Only used by tests and the
// odd legacy client path; the server itself always sends uncompressed.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating deflate writer: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("deflating: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("closing deflate writer: %w", err)
	}
	return buf.Bytes(), nil
}
