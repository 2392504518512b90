package ir

import (
	"strconv"
)

type Type int

const (
	InvalidType Type = iota
	NullType
	BoolType
	NumberType
	StringType
	ArrayType
	ObjectType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	}
	return "invalid"
}

// Node is a single value in a JSON document tree.
//
// For ObjectType nodes, Keys[i] is the key for the value at Values[i],
// so there are always the same number of keys as values. ArrayType
// nodes use Values only.
type Node struct {
	Type Type

	Bool   bool
	String string

	// Number holds the raw numeric text. Int64 is set when the text is a
	// signed 64-bit integer, Float64 when it is representable as a
	// 64-bit float. Number is canonical when neither cache applies.
	Number  string
	Int64   *int64
	Float64 *float64

	Keys   []string
	Values []*Node
}

func FromString(v string) *Node {
	return &Node{Type: StringType, String: v}
}

func FromInt(v int64) *Node {
	return &Node{
		Type:   NumberType,
		Number: strconv.FormatInt(v, 10),
		Int64:  &v,
	}
}

func FromFloat(f float64) *Node {
	return &Node{
		Type:    NumberType,
		Number:  strconv.FormatFloat(f, 'g', -1, 64),
		Float64: &f,
	}
}

func FromBool(v bool) *Node {
	return &Node{Type: BoolType, Bool: v}
}

func Null() *Node {
	return &Node{Type: NullType}
}

func NewObject() *Node {
	return &Node{Type: ObjectType}
}

func NewArray() *Node {
	return &Node{Type: ArrayType}
}

func FromSlice(vs []*Node) *Node {
	return &Node{Type: ArrayType, Values: vs}
}

// Scalar reports whether the node is a JSON primitive (null, bool,
// number or string).
func (n *Node) Scalar() bool {
	switch n.Type {
	case NullType, BoolType, NumberType, StringType:
		return true
	}
	return false
}

// IndexOfKey returns the position of key in an object node, or -1.
func (n *Node) IndexOfKey(key string) int {
	for i := range n.Keys {
		if n.Keys[i] == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key in an object node, or nil.
func (n *Node) Get(key string) *Node {
	if i := n.IndexOfKey(key); i >= 0 {
		return n.Values[i]
	}
	return nil
}

// SetKey inserts or overwrites key in an object node, preserving the
// position of an existing key and appending a new one.
func (n *Node) SetKey(key string, v *Node) {
	if i := n.IndexOfKey(key); i >= 0 {
		n.Values[i] = v
		return
	}
	n.Keys = append(n.Keys, key)
	n.Values = append(n.Values, v)
}

// DeleteKey removes key from an object node, preserving the relative
// order of the remaining keys. It reports whether the key was present.
func (n *Node) DeleteKey(key string) bool {
	i := n.IndexOfKey(key)
	if i < 0 {
		return false
	}
	n.Keys = append(n.Keys[:i], n.Keys[i+1:]...)
	n.Values = append(n.Values[:i], n.Values[i+1:]...)
	return true
}

func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	dst := &Node{
		Type:   n.Type,
		Bool:   n.Bool,
		String: n.String,
		Number: n.Number,
	}
	if n.Int64 != nil {
		i := *n.Int64
		dst.Int64 = &i
	}
	if n.Float64 != nil {
		f := *n.Float64
		dst.Float64 = &f
	}
	if n.Keys != nil {
		dst.Keys = make([]string, len(n.Keys))
		copy(dst.Keys, n.Keys)
	}
	if n.Values != nil {
		dst.Values = make([]*Node, len(n.Values))
		for i, v := range n.Values {
			dst.Values[i] = v.Clone()
		}
	}
	return dst
}

// Nesting returns the number of levels addressable below the node: 0
// for scalars and empty containers, 1 for a flat non-empty array or
// object, and so on. Equivalently, the longest path (in components)
// from the node to any element it contains. The walk keeps an explicit
// stack so hostile input cannot exhaust the goroutine stack.
func (n *Node) Nesting() int {
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{n, 0}}
	max := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > max {
			max = f.depth
		}
		for _, v := range f.node.Values {
			stack = append(stack, frame{v, f.depth + 1})
		}
	}
	return max
}
