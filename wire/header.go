package wire

import (
	"fmt"
	"io"
)

// Frame magics.
const (
	MagicRequest  = 0x80
	MagicResponse = 0x81
)

// HeaderSize is the fixed frame header length.
const HeaderSize = 24

// Session-level opcodes, alongside the subdoc opcodes in package
// subdoc. Get/Set move whole documents; Hello negotiates features.
const (
	OpGetDoc    = 0x00
	OpSetDoc    = 0x01
	OpDeleteDoc = 0x04
	OpNoop      = 0x0a
	OpHello     = 0x1f
)

// Feature codes negotiated by Hello. The request and response bodies
// are a sequence of 2-byte big-endian codes; the response lists the
// codes the server accepted.
const (
	FeatureMutationSeqno uint16 = 0x04
)

// Header is the fixed-size frame header shared by requests and
// responses. Status is meaningful only on responses; requests carry
// zero there.
type Header struct {
	Magic     uint8
	Op        uint8
	KeyLen    uint16
	ExtrasLen uint8
	Datatype  uint8
	Status    uint16
	BodyLen   uint32 // total body: extras + key + value
	Opaque    uint32
	Cas       uint64
}

// Append encodes the header onto b.
func (h *Header) Append(b []byte) []byte {
	b = append(b, h.Magic, h.Op)
	b = appendU16(b, h.KeyLen)
	b = append(b, h.ExtrasLen, h.Datatype)
	b = appendU16(b, h.Status)
	b = appendU32(b, h.BodyLen)
	b = appendU32(b, h.Opaque)
	b = appendU64(b, h.Cas)
	return b
}

// DecodeHeader parses a frame header from buf. The buffer is length
// checked up front: anything shorter than HeaderSize is ErrShort
// before any field is inspected.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, ErrShort
	}
	c := cursor{buf: buf}
	h := &Header{}
	var err error
	if h.Magic, err = c.u8(); err != nil {
		return nil, err
	}
	if h.Magic != MagicRequest && h.Magic != MagicResponse {
		return nil, fmt.Errorf("%w: 0x%02x", ErrMagic, h.Magic)
	}
	if h.Op, err = c.u8(); err != nil {
		return nil, err
	}
	if h.KeyLen, err = c.u16(); err != nil {
		return nil, err
	}
	if h.ExtrasLen, err = c.u8(); err != nil {
		return nil, err
	}
	if h.Datatype, err = c.u8(); err != nil {
		return nil, err
	}
	if h.Status, err = c.u16(); err != nil {
		return nil, err
	}
	if h.BodyLen, err = c.u32(); err != nil {
		return nil, err
	}
	if h.Opaque, err = c.u32(); err != nil {
		return nil, err
	}
	if h.Cas, err = c.u64(); err != nil {
		return nil, err
	}
	if int(h.ExtrasLen)+int(h.KeyLen) > int(h.BodyLen) {
		return nil, fmt.Errorf("wire: extras+key exceed body length")
	}
	return h, nil
}

// Frame is one decoded frame: header plus the body split into its
// extras, key, and value regions.
type Frame struct {
	Header Header
	Extras []byte
	Key    []byte
	Value  []byte
}

// ReadFrame reads one complete frame from r. A frame whose declared
// body exceeds MaxBodyLen is drained from the stream and returned as
// a header-only frame with ErrTooBig, leaving r positioned at the
// next frame so the caller can answer and keep the connection.
func ReadFrame(r io.Reader) (*Frame, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	h, err := DecodeHeader(hdr)
	if err != nil {
		return nil, err
	}
	if h.BodyLen > MaxBodyLen {
		if _, err := io.CopyN(io.Discard, r, int64(h.BodyLen)); err != nil {
			return nil, fmt.Errorf("wire: draining oversized body: %w", err)
		}
		return &Frame{Header: *h}, fmt.Errorf("%w: %d bytes", ErrTooBig, h.BodyLen)
	}
	body := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: reading body: %w", err)
	}
	f := &Frame{Header: *h}
	f.Extras = body[:h.ExtrasLen]
	f.Key = body[h.ExtrasLen : int(h.ExtrasLen)+int(h.KeyLen)]
	f.Value = body[int(h.ExtrasLen)+int(h.KeyLen):]
	return f, nil
}

// Append encodes the whole frame onto b, deriving the header's length
// fields from the body slices.
func (f *Frame) Append(b []byte) []byte {
	h := f.Header
	h.ExtrasLen = uint8(len(f.Extras))
	h.KeyLen = uint16(len(f.Key))
	h.BodyLen = uint32(len(f.Extras) + len(f.Key) + len(f.Value))
	b = h.Append(b)
	b = append(b, f.Extras...)
	b = append(b, f.Key...)
	b = append(b, f.Value...)
	return b
}
