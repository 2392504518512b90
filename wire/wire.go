// Package wire encodes and decodes the binary session protocol: the
// 24-byte frame header, the single-command path extras, the
// multi-lookup and multi-mutation bodies, and the optional mutation
// sequence-number extras. All decoding goes through a length-checked
// cursor; malformed input surfaces as a typed error, never a panic.
package wire

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrShort reports a buffer that ends before the field it should hold.
	ErrShort = errors.New("wire: short buffer")

	// ErrMagic reports a frame that does not start with a known magic byte.
	ErrMagic = errors.New("wire: bad magic")

	// ErrTrailing reports well-formed content followed by leftover bytes.
	ErrTrailing = errors.New("wire: trailing bytes")

	// ErrTooBig reports a frame whose declared body exceeds MaxBodyLen.
	ErrTooBig = errors.New("wire: frame body too large")
)

// MaxBodyLen bounds the body of a single frame. The length field is
// client supplied, so it is checked before any allocation.
const MaxBodyLen = 20 << 20

// cursor is a read position over a decode buffer. Every read checks
// the remaining length first.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) u8() (uint8, error) {
	if c.remaining() < 1 {
		return 0, ErrShort
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if c.remaining() < 2 {
		return 0, ErrShort
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, ErrShort
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if c.remaining() < 8 {
		return 0, ErrShort
	}
	v := binary.BigEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, ErrShort
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

func appendU16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func appendU64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}
