package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fragd/fragd/subdoc"
)

func TestFrame_RoundTrip(t *testing.T) {
	in := &Frame{
		Header: Header{
			Magic:  MagicRequest,
			Op:     byte(subdoc.OpDictUpsert),
			Opaque: 7,
			Cas:    0xdeadbeef,
		},
		Key: []byte("doc-1"),
	}
	AppendSubdocRequest(in, &SubdocRequest{
		Path:   "a.b[0]",
		Flags:  subdoc.FlagMkdirP,
		Expiry: 300,
		Value:  []byte(`{"x":1}`),
	})

	encoded := in.Append(nil)
	out, err := ReadFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if out.Header.Op != byte(subdoc.OpDictUpsert) || out.Header.Cas != 0xdeadbeef {
		t.Errorf("header = %+v", out.Header)
	}
	if string(out.Key) != "doc-1" {
		t.Errorf("key = %q", out.Key)
	}

	req, err := DecodeSubdocRequest(out)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "a.b[0]" || req.Flags != subdoc.FlagMkdirP || req.Expiry != 300 {
		t.Errorf("request = %+v", req)
	}
	if string(req.Value) != `{"x":1}` {
		t.Errorf("value = %s", req.Value)
	}
}

func TestDecodeHeader_Errors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, ErrShort},
		{"truncated", make([]byte, HeaderSize-1), ErrShort},
		{"bad magic", append([]byte{0x55}, make([]byte, HeaderSize-1)...), ErrMagic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	// Length fields that contradict each other.
	h := Header{Magic: MagicRequest, ExtrasLen: 10, KeyLen: 10, BodyLen: 5}
	if _, err := DecodeHeader(h.Append(nil)); err == nil {
		t.Error("inconsistent lengths accepted")
	}
}

// zeroes is an endless stream of zero bytes.
type zeroes struct{}

func (zeroes) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestReadFrame_OversizedBody(t *testing.T) {
	hdr := Header{Magic: MagicRequest, Op: 0x01, BodyLen: MaxBodyLen + 1, Opaque: 9}
	stream := io.MultiReader(
		bytes.NewReader(hdr.Append(nil)),
		io.LimitReader(zeroes{}, MaxBodyLen+1),
		bytes.NewReader((&Frame{Header: Header{Magic: MagicRequest, Op: OpNoop, Opaque: 10}}).Append(nil)),
	)

	f, err := ReadFrame(stream)
	if !errors.Is(err, ErrTooBig) {
		t.Fatalf("err = %v, want ErrTooBig", err)
	}
	if f == nil || f.Header.Opaque != 9 {
		t.Fatalf("frame = %+v, want header-only frame with opaque 9", f)
	}

	// The oversized body was drained: the next frame decodes cleanly.
	f, err = ReadFrame(stream)
	if err != nil {
		t.Fatal(err)
	}
	if f.Header.Op != OpNoop || f.Header.Opaque != 10 {
		t.Errorf("next frame header = %+v", f.Header)
	}
}

func TestSubdocRequest_NoExpiry(t *testing.T) {
	f := &Frame{}
	AppendSubdocRequest(f, &SubdocRequest{Path: "k", Value: []byte("1")})
	if len(f.Extras) != 3 {
		t.Fatalf("extras length = %d, want 3 without expiry", len(f.Extras))
	}
	req, err := DecodeSubdocRequest(f)
	if err != nil {
		t.Fatal(err)
	}
	if req.Expiry != 0 || req.Path != "k" || string(req.Value) != "1" {
		t.Errorf("request = %+v", req)
	}
}

func TestSubdocRequest_PathLengthBeyondValue(t *testing.T) {
	f := &Frame{
		Extras: appendU16(nil, 100), // claims a 100-byte path
		Value:  []byte("short"),
	}
	f.Extras = append(f.Extras, 0)
	if _, err := DecodeSubdocRequest(f); !errors.Is(err, ErrShort) {
		t.Errorf("err = %v, want ErrShort", err)
	}
}

func TestLookupSpecs_RoundTrip(t *testing.T) {
	in := []LookupSpec{
		{Op: subdoc.OpGet, Path: "a.b"},
		{Op: subdoc.OpExists, Path: "arr[-1]"},
		{Op: subdoc.OpGet, Path: ""},
	}
	out, err := DecodeLookupSpecs(AppendLookupSpecs(nil, in))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(in, out); d != "" {
		t.Errorf("specs (-want +got):\n%s", d)
	}
}

func TestLookupResults_RoundTrip(t *testing.T) {
	in := []LookupResult{
		{Status: subdoc.StatusSuccess, Value: []byte(`"x"`)},
		{Status: subdoc.StatusPathNotFound},
		{Status: subdoc.StatusSuccess, Value: []byte(`[1,2]`)},
	}
	out, err := DecodeLookupResults(AppendLookupResults(nil, in))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(in, out); d != "" {
		t.Errorf("results (-want +got):\n%s", d)
	}
}

func TestMutationSpecs_RoundTrip(t *testing.T) {
	in := []MutationSpec{
		{Op: subdoc.OpDictUpsert, Path: "a", Value: []byte("1")},
		{Op: subdoc.OpArrayPushLast, Flags: subdoc.FlagMkdirP, Path: "log", Value: []byte(`"e1","e2"`)},
		{Op: subdoc.OpDelete, Path: "old"},
	}
	out, err := DecodeMutationSpecs(AppendMutationSpecs(nil, in))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(in, out); d != "" {
		t.Errorf("specs (-want +got):\n%s", d)
	}
}

func TestMutationSpecs_Truncated(t *testing.T) {
	buf := AppendMutationSpecs(nil, []MutationSpec{
		{Op: subdoc.OpCounter, Path: "n", Value: []byte("1")},
	})
	for cut := 1; cut < len(buf); cut++ {
		if _, err := DecodeMutationSpecs(buf[:cut]); !errors.Is(err, ErrShort) {
			t.Errorf("cut at %d: err = %v, want ErrShort", cut, err)
		}
	}
}

func TestMutationResults_RoundTrip(t *testing.T) {
	in := []MutationResult{
		{Index: 1, Status: subdoc.StatusSuccess, Value: []byte("42")},
		{Index: 3, Status: subdoc.StatusSuccess, Value: []byte("-1")},
	}
	out, err := DecodeMutationResults(AppendMutationResults(nil, in))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(in, out); d != "" {
		t.Errorf("results (-want +got):\n%s", d)
	}
}

func TestMultiFailure(t *testing.T) {
	in := MultiFailure{Index: 1, Status: subdoc.StatusPathMismatch}
	buf := AppendMultiFailure(nil, in)
	if len(buf) != 3 {
		t.Fatalf("encoded length = %d, want 3", len(buf))
	}
	out, err := DecodeMultiFailure(buf)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("decoded = %+v", out)
	}
	if _, err := DecodeMultiFailure(append(buf, 0)); !errors.Is(err, ErrTrailing) {
		t.Errorf("trailing byte: err = %v", err)
	}
}

func TestMutationExtras(t *testing.T) {
	in := MutationExtras{UUID: 0x1122334455667788, Seqno: 99}
	buf := AppendMutationExtras(nil, in)
	if len(buf) != MutationExtrasSize {
		t.Fatalf("encoded length = %d", len(buf))
	}
	out, err := DecodeMutationExtras(buf)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("decoded = %+v", out)
	}
}

func TestFeatures(t *testing.T) {
	in := []uint16{FeatureMutationSeqno, 0x0a}
	out, err := DecodeFeatures(AppendFeatures(nil, in))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(in, out); d != "" {
		t.Errorf("features (-want +got):\n%s", d)
	}
}
