package subdoc

import (
	"strings"
	"testing"

	"github.com/fragd/fragd/docpath"
	"github.com/fragd/fragd/ir"
)

// apply parses doc and path, runs the op, and returns the result plus
// the re-encoded document.
func apply(t *testing.T, doc, op, path, value string, flags Flag) (Result, string) {
	t.Helper()
	root, err := ir.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("bad test document %q: %v", doc, err)
	}
	p, perr := docpath.Parse(path)
	if perr != nil {
		t.Fatalf("bad test path %q: %v", path, perr)
	}
	res := Apply(root, opByName(t, op), p, []byte(value), flags)
	return res, string(ir.Encode(root))
}

func opByName(t *testing.T, name string) Op {
	t.Helper()
	for _, op := range []Op{
		OpGet, OpExists, OpDictAdd, OpDictUpsert, OpDelete, OpReplace,
		OpArrayPushLast, OpArrayPushFirst, OpArrayInsert,
		OpArrayAddUnique, OpCounter,
	} {
		if op.String() == name {
			return op
		}
	}
	t.Fatalf("unknown op %q", name)
	return 0
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		op      string
		path    string
		value   string
		flags   Flag
		status  Status
		result  string // expected fragment, "" for none
		wantDoc string // expected document after, "" means unchanged
	}{
		// GET / EXISTS
		{name: "get dict value", doc: `{"int":3,"string":"two"}`, op: "get", path: "int", status: StatusSuccess, result: "3"},
		{name: "get nested", doc: `{"a":{"b":[1,2.5]}}`, op: "get", path: "a.b[1]", status: StatusSuccess, result: "2.5"},
		{name: "get whole doc via empty path", doc: `[1,2]`, op: "get", path: "", status: StatusSuccess, result: "[1,2]"},
		{name: "get missing key", doc: `{"a":1}`, op: "get", path: "b", status: StatusPathNotFound},
		{name: "get key from array", doc: `[0,1]`, op: "get", path: "missing_key", status: StatusPathMismatch},
		{name: "get key from scalar", doc: `[0,1,2]`, op: "get", path: "[2].nothing_here", status: StatusPathMismatch},
		{name: "get index from dict", doc: `{"a":1}`, op: "get", path: "[0]", status: StatusPathMismatch},
		{name: "get last element", doc: `[0,"one",2.5]`, op: "get", path: "[-1]", status: StatusSuccess, result: "2.5"},
		{name: "get out of range", doc: `[0,1,2]`, op: "get", path: "[3]", status: StatusPathNotFound},
		{name: "get far out of range", doc: `[0]`, op: "get", path: "[9999]", status: StatusPathNotFound},
		{name: "get last of empty array", doc: `[]`, op: "get", path: "[-1]", status: StatusPathNotFound},
		{name: "exists present", doc: `{"a":1}`, op: "exists", path: "a", status: StatusSuccess},
		{name: "exists absent", doc: `{"a":1}`, op: "exists", path: "b", status: StatusPathNotFound},
		{name: "lookup rejects flags", doc: `[0]`, op: "get", path: "[0]", flags: FlagMkdirP, status: StatusInvalidArgs},

		// DELETE
		{name: "delete dict key", doc: `{"a":1,"b":2}`, op: "delete", path: "a", status: StatusSuccess, wantDoc: `{"b":2}`},
		{name: "delete shifts array", doc: `[0,1,2,3,4]`, op: "delete", path: "[0]", status: StatusSuccess, wantDoc: `[1,2,3,4]`},
		{name: "delete last marker", doc: `[0,1,2]`, op: "delete", path: "[-1]", status: StatusSuccess, wantDoc: `[0,1]`},
		{name: "delete missing", doc: `{"a":1}`, op: "delete", path: "b", status: StatusPathNotFound},
		{name: "delete root invalid", doc: `{"a":1}`, op: "delete", path: "", status: StatusInvalidArgs},

		// REPLACE
		{name: "replace value", doc: `{"a":1}`, op: "replace", path: "a", value: `{"x":[]}`, status: StatusSuccess, wantDoc: `{"a":{"x":[]}}`},
		{name: "replace array element", doc: `[0]`, op: "replace", path: "[0]", value: `1`, status: StatusSuccess, wantDoc: `[1]`},
		{name: "replace missing", doc: `{"a":1}`, op: "replace", path: "b", value: `2`, status: StatusPathNotFound},
		{name: "replace bad fragment", doc: `{"a":1}`, op: "replace", path: "a", value: `{bad`, status: StatusValueCantInsert},
		{name: "replace root invalid", doc: `{"a":1}`, op: "replace", path: "", value: `2`, status: StatusInvalidArgs},
		{name: "replace rejects mkdir_p", doc: `{"a":1}`, op: "replace", path: "a", value: `2`, flags: FlagMkdirP, status: StatusInvalidArgs},

		// DICT_ADD / DICT_UPSERT
		{name: "dict add new key", doc: `{}`, op: "dict-add", path: "key", value: `5`, status: StatusSuccess, wantDoc: `{"key":5}`},
		{name: "dict add existing key", doc: `{"key1":1}`, op: "dict-add", path: "key1", value: `5`, status: StatusPathExists},
		{name: "dict upsert existing key", doc: `{"key1":1}`, op: "dict-upsert", path: "key1", value: `5`, status: StatusSuccess, wantDoc: `{"key1":5}`},
		{name: "dict upsert new key", doc: `{"a":1}`, op: "dict-upsert", path: "b", value: `[2]`, status: StatusSuccess, wantDoc: `{"a":1,"b":[2]}`},
		{name: "dict add into array", doc: `[0]`, op: "dict-add", path: "key", value: `1`, status: StatusPathMismatch},
		{name: "dict add index path", doc: `{"a":[0]}`, op: "dict-add", path: "a[0]", value: `1`, status: StatusPathMismatch},
		{name: "dict add missing parent", doc: `{}`, op: "dict-add", path: "a.b", value: `1`, status: StatusPathNotFound},
		{name: "dict add mkdir_p", doc: `{}`, op: "dict-add", path: "a.b.c", value: `1`, flags: FlagMkdirP, status: StatusSuccess, wantDoc: `{"a":{"b":{"c":1}}}`},
		{name: "dict add mkdir_p array ancestor", doc: `{}`, op: "dict-add", path: "a[0].b", value: `1`, flags: FlagMkdirP, status: StatusPathNotFound},
		{name: "dict add bad fragment", doc: `{}`, op: "dict-add", path: "a", value: `!`, status: StatusValueCantInsert},

		// ARRAY_PUSH
		{name: "push last", doc: `[0,1]`, op: "array-push-last", path: "", value: `2`, status: StatusSuccess, wantDoc: `[0,1,2]`},
		{name: "push first", doc: `[1,2]`, op: "array-push-first", path: "", value: `0`, status: StatusSuccess, wantDoc: `[0,1,2]`},
		{name: "push multiple preserves order", doc: `[0]`, op: "array-push-last", path: "", value: `1,2,3`, status: StatusSuccess, wantDoc: `[0,1,2,3]`},
		{name: "push first multiple preserves order", doc: `[3]`, op: "array-push-first", path: "", value: `0,1,2`, status: StatusSuccess, wantDoc: `[0,1,2,3]`},
		{name: "push to nested array", doc: `{"a":[1]}`, op: "array-push-last", path: "a", value: `2`, status: StatusSuccess, wantDoc: `{"a":[1,2]}`},
		{name: "push to dict root", doc: `{"a":1}`, op: "array-push-last", path: "", value: `2`, status: StatusPathMismatch},
		{name: "push to non-array value", doc: `{"a":1}`, op: "array-push-last", path: "a", value: `2`, status: StatusPathMismatch},
		{name: "push to missing path", doc: `{}`, op: "array-push-last", path: "a", value: `2`, status: StatusPathNotFound},
		{name: "push mkdir_p creates array", doc: `{}`, op: "array-push-last", path: "foo", value: `0`, flags: FlagMkdirP, status: StatusSuccess, wantDoc: `{"foo":[0]}`},
		{name: "push bad fragment", doc: `[]`, op: "array-push-last", path: "", value: `1,`, status: StatusValueCantInsert},

		// ARRAY_INSERT
		{name: "insert into empty", doc: `[]`, op: "array-insert", path: "[0]", value: `2`, status: StatusSuccess, wantDoc: `[2]`},
		{name: "insert at front shifts", doc: `[2]`, op: "array-insert", path: "[0]", value: `0`, status: StatusSuccess, wantDoc: `[0,2]`},
		{name: "insert in middle", doc: `[0,2]`, op: "array-insert", path: "[1]", value: `1`, status: StatusSuccess, wantDoc: `[0,1,2]`},
		{name: "insert at length appends", doc: `[0,1,2]`, op: "array-insert", path: "[3]", value: `3`, status: StatusSuccess, wantDoc: `[0,1,2,3]`},
		{name: "insert beyond length", doc: `[]`, op: "array-insert", path: "[1]", value: `1`, status: StatusPathNotFound},
		{name: "insert at -1 invalid", doc: `[]`, op: "array-insert", path: "[-1]", value: `3`, status: StatusPathInvalid},
		{name: "insert rejects mkdir_p", doc: `[]`, op: "array-insert", path: "[0]", value: `1`, flags: FlagMkdirP, status: StatusInvalidArgs},
		{name: "insert key-final path", doc: `[[0]]`, op: "array-insert", path: "[0].foo", value: `1`, status: StatusPathInvalid},
		{name: "insert into dict", doc: `{}`, op: "array-insert", path: "[0]", value: `0`, status: StatusPathMismatch},

		// ARRAY_ADD_UNIQUE
		{name: "add unique to empty", doc: `[]`, op: "array-add-unique", path: "", value: `0`, status: StatusSuccess, wantDoc: `[0]`},
		{name: "add unique duplicate", doc: `[0]`, op: "array-add-unique", path: "", value: `0`, status: StatusPathExists},
		{name: "add unique duplicate in larger array", doc: `[0,1,2,3,4,5,6,7,8,9]`, op: "array-add-unique", path: "", value: `6`, status: StatusPathExists},
		{name: "add unique new scalar", doc: `[0,1]`, op: "array-add-unique", path: "", value: `"string"`, status: StatusSuccess, wantDoc: `[0,1,"string"]`},
		{name: "add unique non-scalar candidate", doc: `[0]`, op: "array-add-unique", path: "", value: `{"foo":"bar"}`, status: StatusPathMismatch},
		{name: "add unique array candidate", doc: `[0]`, op: "array-add-unique", path: "", value: `[0,1]`, status: StatusPathMismatch},
		{name: "add unique to array with dict element", doc: `[{"a":"b"}]`, op: "array-add-unique", path: "", value: `1`, status: StatusPathMismatch},
		{name: "add unique to array with array element", doc: `[[1,2]]`, op: "array-add-unique", path: "", value: `3`, status: StatusPathMismatch},

		// COUNTER
		{name: "counter creates missing key", doc: `{}`, op: "counter", path: "key", value: `1`, status: StatusSuccess, result: "1", wantDoc: `{"key":1}`},
		{name: "counter increments", doc: `{"key":1}`, op: "counter", path: "key", value: `1`, status: StatusSuccess, result: "2", wantDoc: `{"key":2}`},
		{name: "counter decrements to zero", doc: `{"key":2}`, op: "counter", path: "key", value: `-2`, status: StatusSuccess, result: "0", wantDoc: `{"key":0}`},
		{name: "counter goes negative", doc: `{"key":0}`, op: "counter", path: "key", value: `-1`, status: StatusSuccess, result: "-1", wantDoc: `{"key":-1}`},
		{name: "counter on float", doc: `{"key":1.1}`, op: "counter", path: "key", value: `1`, status: StatusPathMismatch},
		{name: "counter on string", doc: `{"key":"string"}`, op: "counter", path: "key", value: `1`, status: StatusPathMismatch},
		{name: "counter on array", doc: `{"key":[0]}`, op: "counter", path: "key", value: `1`, status: StatusPathMismatch},
		{name: "counter on out-of-range int", doc: `{"key":9223372036854775808}`, op: "counter", path: "key", value: `1`, status: StatusNumRange},
		{name: "counter on below-range int", doc: `{"key":-9223372036854775810}`, op: "counter", path: "key", value: `1`, status: StatusNumRange},
		{name: "counter to exact max", doc: `{"key":9223372036854775806}`, op: "counter", path: "key", value: `1`, status: StatusSuccess, result: "9223372036854775807", wantDoc: `{"key":9223372036854775807}`},
		{name: "counter overflow", doc: `{"key":9223372036854775807}`, op: "counter", path: "key", value: `1`, status: StatusValueCantInsert},
		{name: "counter to exact min", doc: `{"key":-9223372036854775807}`, op: "counter", path: "key", value: `-1`, status: StatusSuccess, result: "-9223372036854775808", wantDoc: `{"key":-9223372036854775808}`},
		{name: "counter underflow", doc: `{"key":-9223372036854775808}`, op: "counter", path: "key", value: `-1`, status: StatusValueCantInsert},
		{name: "counter float delta", doc: `{"key":10}`, op: "counter", path: "key", value: `1.1`, status: StatusDeltaInvalid},
		{name: "counter string delta", doc: `{"key":10}`, op: "counter", path: "key", value: `"string"`, status: StatusDeltaInvalid},
		{name: "counter plus-signed delta", doc: `{"key":10}`, op: "counter", path: "key", value: `+1`, status: StatusDeltaInvalid},
		{name: "counter zero delta", doc: `{"key":10}`, op: "counter", path: "key", value: `0`, status: StatusDeltaInvalid},
		{name: "counter mkdir_p", doc: `{}`, op: "counter", path: "a.b", value: `5`, flags: FlagMkdirP, status: StatusSuccess, result: "5", wantDoc: `{"a":{"b":5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, doc := apply(t, tt.doc, tt.op, tt.path, tt.value, tt.flags)
			if res.Status != tt.status {
				t.Fatalf("status = %v, want %v", res.Status, tt.status)
			}
			if got := string(res.Value); got != tt.result {
				t.Errorf("fragment = %q, want %q", got, tt.result)
			}
			want := tt.wantDoc
			if want == "" {
				want = tt.doc
			}
			if tt.status.Ok() && doc != want {
				t.Errorf("document = %s, want %s", doc, want)
			}
		})
	}
}

func TestApply_DepthLimits(t *testing.T) {
	// Build a dict nested to the maximum depth and one past it.
	deepDoc := func(levels int) string {
		return strings.Repeat(`{"a":`, levels) + `1` + strings.Repeat(`}`, levels)
	}
	deepPath := func(levels int) string {
		return strings.TrimSuffix(strings.Repeat("a.", levels), ".")
	}

	t.Run("max depth read succeeds", func(t *testing.T) {
		res, _ := apply(t, deepDoc(32), "get", deepPath(32), "", 0)
		if res.Status != StatusSuccess {
			t.Fatalf("status = %v", res.Status)
		}
		if string(res.Value) != "1" {
			t.Errorf("fragment = %s", res.Value)
		}
	})

	t.Run("past max depth path rejected at parse", func(t *testing.T) {
		if _, err := docpath.Parse(deepPath(33)); err == nil {
			t.Fatal("expected parse error for 33-component path")
		}
	})

	t.Run("write past max depth", func(t *testing.T) {
		// Path depth 31 plus a 2-level value exceeds the cap.
		res, _ := apply(t, deepDoc(31), "dict-upsert", deepPath(31), `{"b":{"c":1}}`, 0)
		if res.Status != StatusValueTooDeep {
			t.Fatalf("status = %v, want %v", res.Status, StatusValueTooDeep)
		}
	})

	t.Run("write at max depth", func(t *testing.T) {
		res, _ := apply(t, deepDoc(31), "dict-upsert", deepPath(31), `{"b":1}`, 0)
		if res.Status != StatusSuccess {
			t.Fatalf("status = %v", res.Status)
		}
	})

	t.Run("push past max depth", func(t *testing.T) {
		// The array sits at depth 31; pushed elements land at 32, so a
		// nested element value exceeds the cap.
		doc := strings.Repeat(`{"a":`, 31) + `[]` + strings.Repeat(`}`, 31)
		res, _ := apply(t, doc, "array-push-last", deepPath(31), `[1]`, 0)
		if res.Status != StatusValueTooDeep {
			t.Fatalf("status = %v, want %v", res.Status, StatusValueTooDeep)
		}
		res, _ = apply(t, doc, "array-push-last", deepPath(31), `1`, 0)
		if res.Status != StatusSuccess {
			t.Fatalf("scalar push status = %v", res.Status)
		}
	})
}

func TestApply_GetAfterWrite(t *testing.T) {
	// A successful write followed by a GET on the same path returns
	// the written fragment.
	tests := []struct {
		name  string
		doc   string
		op    string
		path  string
		value string
	}{
		{"replace", `{"a":1}`, "replace", "a", `{"x":2}`},
		{"dict add", `{}`, "dict-add", "k", `[1,2]`},
		{"upsert", `{"k":0}`, "dict-upsert", "k", `"v"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ir.Parse([]byte(tt.doc))
			if err != nil {
				t.Fatal(err)
			}
			p, _ := docpath.Parse(tt.path)
			if res := Apply(root, opByName(t, tt.op), p, []byte(tt.value), 0); !res.Status.Ok() {
				t.Fatalf("write status = %v", res.Status)
			}
			got := Apply(root, OpGet, p, nil, 0)
			if !got.Status.Ok() {
				t.Fatalf("get status = %v", got.Status)
			}
			if string(got.Value) != tt.value {
				t.Errorf("read back %s, want %s", got.Value, tt.value)
			}
		})
	}
}
