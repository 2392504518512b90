package wire

import (
	"fmt"

	"github.com/fragd/fragd/subdoc"
)

// EncodeContext carries the per-connection features that shape
// response encoding. It is passed explicitly to every encoder that
// depends on negotiation; there is no global feature state.
type EncodeContext struct {
	// MutationSeqno appends the 16-byte mutation extras to successful
	// mutation responses.
	MutationSeqno bool
}

// SubdocRequest is a decoded single-path command body. The frame's
// extras hold {pathLen(2B), flags(1B)[, expiry(4B)]}; the value region
// holds the path bytes followed by the fragment.
type SubdocRequest struct {
	Path   string
	Flags  subdoc.Flag
	Expiry uint32
	Value  []byte
}

// AppendSubdocRequest fills f's extras and value from req.
func AppendSubdocRequest(f *Frame, req *SubdocRequest) {
	extras := appendU16(nil, uint16(len(req.Path)))
	extras = append(extras, byte(req.Flags))
	if req.Expiry != 0 {
		extras = appendU32(extras, req.Expiry)
	}
	f.Extras = extras
	f.Value = append(append([]byte(nil), req.Path...), req.Value...)
}

// DecodeSubdocRequest parses the extras and value regions of a
// single-path command frame.
func DecodeSubdocRequest(f *Frame) (*SubdocRequest, error) {
	c := cursor{buf: f.Extras}
	pathLen, err := c.u16()
	if err != nil {
		return nil, err
	}
	flags, err := c.u8()
	if err != nil {
		return nil, err
	}
	req := &SubdocRequest{Flags: subdoc.Flag(flags)}
	switch c.remaining() {
	case 0:
	case 4:
		if req.Expiry, err = c.u32(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("wire: subdoc extras length %d", len(f.Extras))
	}

	v := cursor{buf: f.Value}
	path, err := v.bytes(int(pathLen))
	if err != nil {
		return nil, err
	}
	req.Path = string(path)
	req.Value = f.Value[v.pos:]
	return req, nil
}

// LookupSpec is one wire entry of a multi-lookup body:
// {opcode(1B), flags(1B), pathLen(2B BE), path}.
type LookupSpec struct {
	Op    subdoc.Op
	Flags subdoc.Flag
	Path  string
}

// AppendLookupSpecs encodes the multi-lookup request body.
func AppendLookupSpecs(b []byte, specs []LookupSpec) []byte {
	for _, s := range specs {
		b = append(b, byte(s.Op), byte(s.Flags))
		b = appendU16(b, uint16(len(s.Path)))
		b = append(b, s.Path...)
	}
	return b
}

// DecodeLookupSpecs parses a multi-lookup request body to exhaustion.
func DecodeLookupSpecs(buf []byte) ([]LookupSpec, error) {
	c := cursor{buf: buf}
	var specs []LookupSpec
	for c.remaining() > 0 {
		op, err := c.u8()
		if err != nil {
			return nil, err
		}
		flags, err := c.u8()
		if err != nil {
			return nil, err
		}
		n, err := c.u16()
		if err != nil {
			return nil, err
		}
		path, err := c.bytes(int(n))
		if err != nil {
			return nil, err
		}
		specs = append(specs, LookupSpec{
			Op:    subdoc.Op(op),
			Flags: subdoc.Flag(flags),
			Path:  string(path),
		})
	}
	return specs, nil
}

// LookupResult is one wire entry of a multi-lookup response body:
// {status(2B BE), resultLen(4B BE), result}.
type LookupResult struct {
	Status subdoc.Status
	Value  []byte
}

// AppendLookupResults encodes the multi-lookup response body, one
// entry per spec in input order.
func AppendLookupResults(b []byte, results []LookupResult) []byte {
	for _, r := range results {
		b = appendU16(b, uint16(r.Status))
		b = appendU32(b, uint32(len(r.Value)))
		b = append(b, r.Value...)
	}
	return b
}

// DecodeLookupResults parses a multi-lookup response body to exhaustion.
func DecodeLookupResults(buf []byte) ([]LookupResult, error) {
	c := cursor{buf: buf}
	var results []LookupResult
	for c.remaining() > 0 {
		st, err := c.u16()
		if err != nil {
			return nil, err
		}
		n, err := c.u32()
		if err != nil {
			return nil, err
		}
		v, err := c.bytes(int(n))
		if err != nil {
			return nil, err
		}
		results = append(results, LookupResult{
			Status: subdoc.Status(st),
			Value:  append([]byte(nil), v...),
		})
	}
	return results, nil
}

// MutationSpec is one wire entry of a multi-mutation body:
// {opcode(1B), flags(1B), pathLen(2B BE), valueLen(4B BE), path, value}.
type MutationSpec struct {
	Op    subdoc.Op
	Flags subdoc.Flag
	Path  string
	Value []byte
}

// AppendMutationSpecs encodes the multi-mutation request body.
func AppendMutationSpecs(b []byte, specs []MutationSpec) []byte {
	for _, s := range specs {
		b = append(b, byte(s.Op), byte(s.Flags))
		b = appendU16(b, uint16(len(s.Path)))
		b = appendU32(b, uint32(len(s.Value)))
		b = append(b, s.Path...)
		b = append(b, s.Value...)
	}
	return b
}

// DecodeMutationSpecs parses a multi-mutation request body to exhaustion.
func DecodeMutationSpecs(buf []byte) ([]MutationSpec, error) {
	c := cursor{buf: buf}
	var specs []MutationSpec
	for c.remaining() > 0 {
		op, err := c.u8()
		if err != nil {
			return nil, err
		}
		flags, err := c.u8()
		if err != nil {
			return nil, err
		}
		pn, err := c.u16()
		if err != nil {
			return nil, err
		}
		vn, err := c.u32()
		if err != nil {
			return nil, err
		}
		path, err := c.bytes(int(pn))
		if err != nil {
			return nil, err
		}
		value, err := c.bytes(int(vn))
		if err != nil {
			return nil, err
		}
		specs = append(specs, MutationSpec{
			Op:    subdoc.Op(op),
			Flags: subdoc.Flag(flags),
			Path:  string(path),
			Value: append([]byte(nil), value...),
		})
	}
	return specs, nil
}

// MutationResult is one wire entry of a successful multi-mutation
// response body: {index(1B), status(2B BE), resultLen(4B BE), result}.
// Entries exist only for specs whose operator produced a fragment.
type MutationResult struct {
	Index  uint8
	Status subdoc.Status
	Value  []byte
}

// AppendMutationResults encodes the multi-mutation success body.
func AppendMutationResults(b []byte, results []MutationResult) []byte {
	for _, r := range results {
		b = append(b, r.Index)
		b = appendU16(b, uint16(r.Status))
		b = appendU32(b, uint32(len(r.Value)))
		b = append(b, r.Value...)
	}
	return b
}

// DecodeMutationResults parses a multi-mutation success body to exhaustion.
func DecodeMutationResults(buf []byte) ([]MutationResult, error) {
	c := cursor{buf: buf}
	var results []MutationResult
	for c.remaining() > 0 {
		idx, err := c.u8()
		if err != nil {
			return nil, err
		}
		st, err := c.u16()
		if err != nil {
			return nil, err
		}
		n, err := c.u32()
		if err != nil {
			return nil, err
		}
		v, err := c.bytes(int(n))
		if err != nil {
			return nil, err
		}
		results = append(results, MutationResult{
			Index:  idx,
			Status: subdoc.Status(st),
			Value:  append([]byte(nil), v...),
		})
	}
	return results, nil
}

// MultiFailure is the 3-byte combined-failure body of an aborted
// multi-mutation: the first failing spec's index and status.
type MultiFailure struct {
	Index  uint8
	Status subdoc.Status
}

func AppendMultiFailure(b []byte, f MultiFailure) []byte {
	b = append(b, f.Index)
	return appendU16(b, uint16(f.Status))
}

func DecodeMultiFailure(buf []byte) (MultiFailure, error) {
	c := cursor{buf: buf}
	idx, err := c.u8()
	if err != nil {
		return MultiFailure{}, err
	}
	st, err := c.u16()
	if err != nil {
		return MultiFailure{}, err
	}
	if c.remaining() != 0 {
		return MultiFailure{}, ErrTrailing
	}
	return MultiFailure{Index: idx, Status: subdoc.Status(st)}, nil
}

// MutationExtras is the 16-byte extras block appended to mutation
// responses when the connection negotiated sequence-number reporting:
// the store instance UUID then the mutation's sequence number.
type MutationExtras struct {
	UUID  uint64
	Seqno uint64
}

// MutationExtrasSize is the encoded size of MutationExtras.
const MutationExtrasSize = 16

func AppendMutationExtras(b []byte, e MutationExtras) []byte {
	b = appendU64(b, e.UUID)
	return appendU64(b, e.Seqno)
}

func DecodeMutationExtras(buf []byte) (MutationExtras, error) {
	c := cursor{buf: buf}
	uuid, err := c.u64()
	if err != nil {
		return MutationExtras{}, err
	}
	seqno, err := c.u64()
	if err != nil {
		return MutationExtras{}, err
	}
	if c.remaining() != 0 {
		return MutationExtras{}, ErrTrailing
	}
	return MutationExtras{UUID: uuid, Seqno: seqno}, nil
}

// AppendFlags encodes the 4-byte document flags extras of a whole-doc
// get response.
func AppendFlags(b []byte, flags uint32) []byte {
	return appendU32(b, flags)
}

// DecodeStoreExtras parses the {flags(4B BE), expiry(4B BE)} extras of
// a whole-doc set request. Empty extras mean zero for both.
func DecodeStoreExtras(buf []byte) (flags, expiry uint32, err error) {
	if len(buf) == 0 {
		return 0, 0, nil
	}
	c := cursor{buf: buf}
	if flags, err = c.u32(); err != nil {
		return 0, 0, err
	}
	if expiry, err = c.u32(); err != nil {
		return 0, 0, err
	}
	if c.remaining() != 0 {
		return 0, 0, ErrTrailing
	}
	return flags, expiry, nil
}

// DecodeExpiryExtras parses the optional {expiry(4B BE)} extras of a
// multi-mutation request.
func DecodeExpiryExtras(buf []byte) (uint32, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	c := cursor{buf: buf}
	expiry, err := c.u32()
	if err != nil {
		return 0, err
	}
	if c.remaining() != 0 {
		return 0, ErrTrailing
	}
	return expiry, nil
}

// AppendFeatures encodes a Hello feature list.
func AppendFeatures(b []byte, features []uint16) []byte {
	for _, f := range features {
		b = appendU16(b, f)
	}
	return b
}

// DecodeFeatures parses a Hello feature list to exhaustion.
func DecodeFeatures(buf []byte) ([]uint16, error) {
	c := cursor{buf: buf}
	var features []uint16
	for c.remaining() > 0 {
		f, err := c.u16()
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
