// Package frame wraps encoded XDR payloads in a small checked envelope:
//
//	magic "XF" | version u8 | flags u8 | length u32 | payload | crc32 u32
//
// Integers are big-endian like the payload itself. The checksum is CRC-32
// (IEEE) over everything after the magic up to the end of the payload.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	Version byte = 1

	// FlagZstd marks a zstd-compressed payload.
	FlagZstd byte = 1 << 0

	HeaderSize  = 8
	TrailerSize = 4

	// MaxPayload bounds the stored and the decompressed payload size.
	MaxPayload = 64 << 20
)

var magic = [2]byte{'X', 'F'}

var (
	ErrNotFrame = errors.New("frame: bad magic")
	ErrLength   = errors.New("frame: length mismatch")
	ErrChecksum = errors.New("frame: crc mismatch")
	ErrVersion  = errors.New("frame: unsupported version")
	ErrFlags    = errors.New("frame: unknown flags")
)

const knownFlags = FlagZstd

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// codecs returns the shared zstd encoder and decoder. Both are safe for
// concurrent EncodeAll/DecodeAll calls.
func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayload))
	})
	return zstdEnc, zstdDec, zstdErr
}

// Header describes a decoded frame.
type Header struct {
	Version byte
	Flags   byte
	Length  uint32 // stored payload length
}

// Encode builds a frame around payload.
func Encode(payload []byte, flags byte) ([]byte, error) {
	if flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: %#x", ErrFlags, flags)
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrLength, len(payload))
	}
	body := payload
	if flags&FlagZstd != 0 {
		enc, _, err := codecs()
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(payload, nil)
	}

	out := make([]byte, HeaderSize, HeaderSize+len(body)+TrailerSize)
	copy(out, magic[:])
	out[2] = Version
	out[3] = flags
	binary.BigEndian.PutUint32(out[4:], uint32(len(body)))
	out = append(out, body...)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(out[2:]))
	return out, nil
}

// Decode checks a complete frame and returns its payload, decompressed
// when FlagZstd is set.
func Decode(data []byte) ([]byte, Header, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, h, err
	}
	if len(data) != HeaderSize+int(h.Length)+TrailerSize {
		return nil, h, fmt.Errorf("%w: header says %d payload bytes, frame has %d", ErrLength, h.Length, len(data)-HeaderSize-TrailerSize)
	}
	end := HeaderSize + int(h.Length)
	want := binary.BigEndian.Uint32(data[end:])
	if crc32.ChecksumIEEE(data[2:end]) != want {
		return nil, h, ErrChecksum
	}
	payload, err := unpack(data[HeaderSize:end], h.Flags)
	return payload, h, err
}

// ReadFrom reads one frame from r and decodes it.
func ReadFrom(r io.Reader) ([]byte, Header, error) {
	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, Header{}, err
	}
	h, err := parseHeader(head)
	if err != nil {
		return nil, h, err
	}
	if h.Length > MaxPayload {
		return nil, h, fmt.Errorf("%w: payload of %d bytes", ErrLength, h.Length)
	}
	data := make([]byte, HeaderSize+int(h.Length)+TrailerSize)
	copy(data, head)
	if _, err := io.ReadFull(r, data[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, h, err
	}
	return Decode(data)
}

func parseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than a header", ErrLength, len(data))
	}
	if data[0] != magic[0] || data[1] != magic[1] {
		return h, ErrNotFrame
	}
	h.Version = data[2]
	h.Flags = data[3]
	h.Length = binary.BigEndian.Uint32(data[4:])
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.Flags&^knownFlags != 0 {
		return h, fmt.Errorf("%w: %#x", ErrFlags, h.Flags)
	}
	return h, nil
}

func unpack(body []byte, flags byte) ([]byte, error) {
	if flags&FlagZstd == 0 {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
	_, dec, err := codecs()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("frame: zstd: %w", err)
	}
	return out, nil
}
