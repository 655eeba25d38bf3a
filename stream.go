package xdr

import (
	"encoding/binary"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rawbytedev/goxdr/internal/common"
)

const initialCapacity = 128

// WriteStream appends XDR units to a growable buffer.
// The zero value is ready to use.
type WriteStream struct {
	buf []byte
}

// NewWriteStream returns a stream with the default initial capacity.
func NewWriteStream() *WriteStream {
	return &WriteStream{buf: make([]byte, 0, initialCapacity)}
}

// Len is the number of bytes written so far.
func (w *WriteStream) Len() int { return len(w.buf) }

// Bytes returns exactly the bytes written. The stream must not be used
// after the result has been handed out.
func (w *WriteStream) Bytes() []byte {
	return slices.Clip(w.buf)
}

// Reset discards the written bytes and keeps the buffer.
func (w *WriteStream) Reset() { w.buf = w.buf[:0] }

// grow makes room for n more bytes, doubling the capacity as needed.
func (w *WriteStream) grow(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	c := max(cap(w.buf), initialCapacity)
	for c-len(w.buf) < n {
		c *= 2
	}
	nb := make([]byte, len(w.buf), c)
	copy(nb, w.buf)
	w.buf = nb
}

func (w *WriteStream) WriteUint32(v uint32) {
	w.grow(4)
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *WriteStream) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteBinary appends b followed by zero padding to the next unit boundary.
func (w *WriteStream) WriteBinary(b []byte) {
	pad := common.Padding(len(b))
	w.grow(len(b) + pad)
	w.buf = append(w.buf, b...)
	for range pad {
		w.buf = append(w.buf, 0)
	}
}

// WriteStringAndLength writes s as length-prefixed UTF-8. Invalid byte
// sequences in s are replaced by U+FFFD; maxBytes bounds the encoded length.
func (w *WriteStream) WriteStringAndLength(s string, maxBytes uint32) error {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	if uint64(len(s)) > uint64(maxBytes) {
		return errorf(ErrEncoding, "string is %d bytes, max %d", len(s), maxBytes)
	}
	w.WriteUint32(uint32(len(s)))
	pad := common.Padding(len(s))
	w.grow(len(s) + pad)
	w.buf = append(w.buf, s...)
	for range pad {
		w.buf = append(w.buf, 0)
	}
	return nil
}

// WriteTextAndLength transcodes UTF-16 code units to UTF-8 and writes them
// length-prefixed. The length slot is reserved first and patched once the
// encoded size is known.
func (w *WriteStream) WriteTextAndLength(units []uint16, maxBytes uint32) error {
	start := len(w.buf)
	w.WriteUint32(0)
	w.buf = appendUTF16AsUTF8(w.buf, units)
	n := len(w.buf) - start - 4
	if uint64(n) > uint64(maxBytes) {
		w.buf = w.buf[:start]
		return errorf(ErrEncoding, "text is %d bytes, max %d", n, maxBytes)
	}
	binary.BigEndian.PutUint32(w.buf[start:], uint32(n))
	for range common.Padding(n) {
		w.buf = append(w.buf, 0)
	}
	return nil
}

// ReadStream is a cursor over an immutable input buffer.
type ReadStream struct {
	data []byte
	pos  int
}

func NewReadStream(data []byte) *ReadStream {
	return &ReadStream{data: data}
}

// Pos is the current cursor offset.
func (r *ReadStream) Pos() int { return r.pos }

// Remaining is the number of unread bytes.
func (r *ReadStream) Remaining() int { return len(r.data) - r.pos }

// EndReached reports whether every input byte has been consumed.
func (r *ReadStream) EndReached() bool { return r.pos == len(r.data) }

func (r *ReadStream) ensure(n uint64) error {
	if n > uint64(len(r.data)-r.pos) {
		return errorf(ErrTruncatedInput, "input ends at %d, need %d bytes from %d", len(r.data), n, r.pos)
	}
	return nil
}

func (r *ReadStream) ReadUint32() (uint32, error) {
	if err := r.ensure(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *ReadStream) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadBinary returns a copy of the next n bytes and skips their padding.
// Padding bytes are not checked.
func (r *ReadStream) ReadBinary(n uint32) ([]byte, error) {
	padded := common.PaddedLen64(n)
	if err := r.ensure(padded); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:])
	r.pos += int(padded)
	return out, nil
}

// ReadString decodes n bytes of UTF-8 into a Go string.
func (r *ReadStream) ReadString(n uint32) (string, error) {
	units, err := r.ReadText(n)
	if err != nil {
		return "", err
	}
	return utf16ToString(units), nil
}

// ReadText decodes n bytes of UTF-8 into UTF-16 code units. An incomplete
// multi-byte sequence at the end of the field is dropped.
func (r *ReadStream) ReadText(n uint32) ([]uint16, error) {
	padded := common.PaddedLen64(n)
	if err := r.ensure(padded); err != nil {
		return nil, err
	}
	units := decodeUTF8ToUTF16(r.data[r.pos : r.pos+int(n)])
	r.pos += int(padded)
	return units, nil
}

// rewind moves the cursor back n bytes. Only the union probe uses it.
func (r *ReadStream) rewind(n int) {
	r.pos -= n
}

// seek puts the cursor at an absolute offset previously observed with Pos.
func (r *ReadStream) seek(pos int) {
	r.pos = pos
}
