package subdoc

import (
	"strconv"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/fragd/fragd/docpath"
	"github.com/fragd/fragd/ir"
)

// Result is the outcome of one operation: a status and, for operators
// that produce one (GET, COUNTER), a serialized result fragment.
type Result struct {
	Status Status
	Value  []byte
}

func fail(s Status) Result {
	return Result{Status: s}
}

// Apply executes a single operation against the document tree rooted
// at root, mutating it in place. The caller owns the tree: on a
// non-success status the tree must be discarded, since MKDIR_P may
// have synthesized ancestors before the failure was detected.
func Apply(root *ir.Node, op Op, path docpath.Path, value []byte, flags Flag) Result {
	if st := op.CheckFlags(flags); !st.Ok() {
		return fail(st)
	}
	mkdirP := flags&FlagMkdirP != 0
	switch op {
	case OpGet:
		return opGet(root, path)
	case OpExists:
		return opExists(root, path)
	case OpDelete:
		return opDelete(root, path)
	case OpReplace:
		return opReplace(root, path, value)
	case OpDictAdd:
		return opDictSet(root, path, value, mkdirP, false)
	case OpDictUpsert:
		return opDictSet(root, path, value, mkdirP, true)
	case OpArrayPushLast:
		return opArrayPush(root, path, value, mkdirP, false)
	case OpArrayPushFirst:
		return opArrayPush(root, path, value, mkdirP, true)
	case OpArrayInsert:
		return opArrayInsert(root, path, value)
	case OpArrayAddUnique:
		return opArrayAddUnique(root, path, value, mkdirP)
	case OpCounter:
		return opCounter(root, path, value, mkdirP)
	}
	return fail(StatusInvalidArgs)
}

func opGet(root *ir.Node, path docpath.Path) Result {
	loc, st := navigate(root, path, navConfig{})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node == nil {
		return fail(StatusPathNotFound)
	}
	return Result{Status: StatusSuccess, Value: ir.Encode(loc.node)}
}

func opExists(root *ir.Node, path docpath.Path) Result {
	loc, st := navigate(root, path, navConfig{})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node == nil {
		return fail(StatusPathNotFound)
	}
	return Result{Status: StatusSuccess}
}

func opDelete(root *ir.Node, path docpath.Path) Result {
	if len(path) == 0 {
		return fail(StatusInvalidArgs)
	}
	loc, st := navigate(root, path, navConfig{})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node == nil {
		return fail(StatusPathNotFound)
	}
	loc.removeAt()
	return Result{Status: StatusSuccess}
}

func opReplace(root *ir.Node, path docpath.Path, value []byte) Result {
	if len(path) == 0 {
		return fail(StatusInvalidArgs)
	}
	v, err := ir.Parse(value)
	if err != nil {
		return fail(StatusValueCantInsert)
	}
	loc, st := navigate(root, path, navConfig{})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node == nil {
		return fail(StatusPathNotFound)
	}
	if len(path)+v.Nesting() > docpath.MaxComponents {
		return fail(StatusValueTooDeep)
	}
	loc.replaceAt(v)
	return Result{Status: StatusSuccess}
}

func opDictSet(root *ir.Node, path docpath.Path, value []byte, mkdirP, upsert bool) Result {
	if len(path) == 0 {
		return fail(StatusInvalidArgs)
	}
	if path[len(path)-1].IsIndex {
		// A dictionary op addressing an array element is a type
		// conflict whatever the document holds there.
		return fail(StatusPathMismatch)
	}
	v, err := ir.Parse(value)
	if err != nil {
		return fail(StatusValueCantInsert)
	}
	if len(path)+v.Nesting() > docpath.MaxComponents {
		return fail(StatusValueTooDeep)
	}
	loc, st := navigate(root, path, navConfig{createParents: mkdirP})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node != nil {
		if !upsert {
			return fail(StatusPathExists)
		}
		loc.replaceAt(v)
		return Result{Status: StatusSuccess}
	}
	loc.parent.SetKey(loc.key, v)
	return Result{Status: StatusSuccess}
}

func opArrayPush(root *ir.Node, path docpath.Path, value []byte, mkdirP, front bool) Result {
	vs, err := ir.ParseList(value)
	if err != nil {
		return fail(StatusValueCantInsert)
	}
	maxNest := 0
	for _, v := range vs {
		if n := v.Nesting(); n > maxNest {
			maxNest = n
		}
	}
	if len(path)+1+maxNest > docpath.MaxComponents {
		return fail(StatusValueTooDeep)
	}
	arr, st := resolveArray(root, path, mkdirP)
	if !st.Ok() {
		return fail(st)
	}
	if front {
		arr.Values = append(vs, arr.Values...)
	} else {
		arr.Values = append(arr.Values, vs...)
	}
	return Result{Status: StatusSuccess}
}

// resolveArray navigates to the array the whole path addresses, for
// push and add-unique. With mkdirP, a missing final key gets a fresh
// empty array (missing array ancestors are still never synthesized).
func resolveArray(root *ir.Node, path docpath.Path, mkdirP bool) (*ir.Node, Status) {
	loc, st := navigate(root, path, navConfig{createParents: mkdirP})
	if !st.Ok() {
		return nil, st
	}
	if loc.node == nil {
		if !mkdirP {
			return nil, StatusPathNotFound
		}
		arr := ir.NewArray()
		loc.parent.SetKey(loc.key, arr)
		return arr, StatusSuccess
	}
	if loc.node.Type != ir.ArrayType {
		return nil, StatusPathMismatch
	}
	return loc.node, StatusSuccess
}

func opArrayInsert(root *ir.Node, path docpath.Path, value []byte) Result {
	if len(path) == 0 {
		return fail(StatusInvalidArgs)
	}
	last := path[len(path)-1]
	if !last.IsIndex || last.Last() {
		// Insert requires a concrete final index; "[-1]" names an
		// existing element, not a slot.
		return fail(StatusPathInvalid)
	}
	v, err := ir.Parse(value)
	if err != nil {
		return fail(StatusValueCantInsert)
	}
	if len(path)+v.Nesting() > docpath.MaxComponents {
		return fail(StatusValueTooDeep)
	}
	loc, st := navigate(root, path, navConfig{insertSlot: true})
	if !st.Ok() {
		return fail(st)
	}
	p := loc.parent
	p.Values = append(p.Values, nil)
	copy(p.Values[loc.elem+1:], p.Values[loc.elem:])
	p.Values[loc.elem] = v
	return Result{Status: StatusSuccess}
}

func opArrayAddUnique(root *ir.Node, path docpath.Path, value []byte, mkdirP bool) Result {
	v, err := ir.Parse(value)
	if err != nil {
		return fail(StatusValueCantInsert)
	}
	if !v.Scalar() {
		// Uniqueness is only defined over primitives.
		return fail(StatusPathMismatch)
	}
	if len(path)+1 > docpath.MaxComponents {
		return fail(StatusValueTooDeep)
	}
	arr, st := resolveArray(root, path, mkdirP)
	if !st.Ok() {
		return fail(st)
	}
	candidate := ir.Encode(v)
	for _, elem := range arr.Values {
		if !elem.Scalar() {
			return fail(StatusPathMismatch)
		}
		if jsonpatch.Equal(ir.Encode(elem), candidate) {
			return fail(StatusPathExists)
		}
	}
	arr.Values = append(arr.Values, v)
	return Result{Status: StatusSuccess}
}

func opCounter(root *ir.Node, path docpath.Path, value []byte, mkdirP bool) Result {
	delta, ok := parseDelta(value)
	if !ok || delta == 0 {
		return fail(StatusDeltaInvalid)
	}
	if len(path) == 0 {
		return fail(StatusInvalidArgs)
	}
	loc, st := navigate(root, path, navConfig{createParents: mkdirP})
	if !st.Ok() {
		return fail(st)
	}
	if loc.node == nil {
		if loc.parent.Type != ir.ObjectType {
			return fail(StatusPathNotFound)
		}
		// A missing counter key starts from an implicit zero.
		loc.parent.SetKey(loc.key, ir.FromInt(delta))
		return Result{Status: StatusSuccess, Value: []byte(strconv.FormatInt(delta, 10))}
	}
	n := loc.node
	if n.Type != ir.NumberType || !n.Integral() {
		return fail(StatusPathMismatch)
	}
	if n.Int64 == nil {
		return fail(StatusNumRange)
	}
	cur := *n.Int64
	if delta > 0 && cur > maxInt64-delta || delta < 0 && cur < minInt64-delta {
		return fail(StatusValueCantInsert)
	}
	sum := cur + delta
	n.Int64 = &sum
	n.Number = strconv.FormatInt(sum, 10)
	n.Float64 = nil
	return Result{Status: StatusSuccess, Value: []byte(n.Number)}
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// parseDelta reads a counter delta: a plain signed decimal integer
// with no leading '+', fraction or exponent.
func parseDelta(value []byte) (int64, bool) {
	s := string(value)
	if len(s) == 0 || s[0] == '+' {
		return 0, false
	}
	d, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return d, true
}
