// Package wire decodes the binary update batches pushed by vault clients
// and encodes them for the client side.
//
// Every format is a flat sequence of records with big-endian length
// fields. A decoder either consumes the whole buffer or fails with an
// error wrapping ErrMalformed; it never returns a partial batch.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a buffer is shorter than one of its
// headers or length fields implies.
var ErrMalformed = errors.New("wire: malformed batch")

// reader walks a buffer sequentially. All reads are bounds-checked.
type reader struct {
	kind string
	buf  []byte
	off  int
}

func newReader(kind string, buf []byte) *reader {
	return &reader{kind: kind, buf: buf}
}

func (r *reader) more() bool { return r.off < len(r.buf) }

func (r *reader) fault(want int) error {
	return fmt.Errorf("%w: %s at offset %d: need %d bytes, have %d",
		ErrMalformed, r.kind, r.off, want, len(r.buf)-r.off)
}

func (r *reader) u8() (uint8, error) {
	if len(r.buf)-r.off < 1 {
		return 0, r.fault(1)
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if len(r.buf)-r.off < 2 {
		return 0, r.fault(2)
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if len(r.buf)-r.off < 4 {
		return 0, r.fault(4)
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// bytes returns a copy so decoded batches never alias the request buffer.
func (r *reader) bytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if len(r.buf)-r.off < n {
		return nil, r.fault(n)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// segment returns the next n bytes as a sub-buffer without copying.
func (r *reader) segment(n int) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, r.fault(n)
	}
	seg := r.buf[r.off : r.off+n]
	r.off += n
	return seg, nil
}

func (r *reader) rest() []byte {
	seg := r.buf[r.off:]
	r.off = len(r.buf)
	return seg
}
