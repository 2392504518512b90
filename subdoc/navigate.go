package subdoc

import (
	"github.com/fragd/fragd/docpath"
	"github.com/fragd/fragd/ir"
)

// location is the result of resolving a path: the container holding
// (or about to hold) the target, plus the precise slot within it.
type location struct {
	// parent is the container of the target; nil when the path is
	// empty and the target is the document root.
	parent *ir.Node

	// For object parents: the final key, and its position in
	// parent.Keys (-1 when the key is absent but creatable).
	key    string
	keyIdx int

	// For array parents: the resolved element index. With insertSlot
	// it may equal len(parent.Values), the append position.
	elem int

	// node is the resolved target, nil when absent.
	node *ir.Node
}

type navConfig struct {
	// createParents synthesizes missing intermediate object ancestors
	// (MKDIR_P). Array ancestors are never synthesized.
	createParents bool

	// insertSlot permits the final array index to equal the array
	// length (ARRAY_INSERT's append position).
	insertSlot bool
}

// navigate resolves path against root. It returns the location and
// StatusSuccess, or a zero location and the failure reason.
func navigate(root *ir.Node, path docpath.Path, cfg navConfig) (location, Status) {
	if len(path) == 0 {
		return location{node: root, keyIdx: -1}, StatusSuccess
	}
	cur := root
	for i, comp := range path {
		final := i == len(path)-1
		if comp.IsIndex {
			if cur.Type != ir.ArrayType {
				return location{}, StatusPathMismatch
			}
			n := len(cur.Values)
			idx := comp.Index
			if comp.Last() {
				if n == 0 {
					return location{}, StatusPathNotFound
				}
				idx = n - 1
			}
			if final {
				if cfg.insertSlot && idx == n {
					return location{parent: cur, keyIdx: -1, elem: idx}, StatusSuccess
				}
				if idx >= n {
					return location{}, StatusPathNotFound
				}
				return location{parent: cur, keyIdx: -1, elem: idx, node: cur.Values[idx]}, StatusSuccess
			}
			if idx >= n {
				return location{}, StatusPathNotFound
			}
			cur = cur.Values[idx]
			continue
		}

		if cur.Type != ir.ObjectType {
			return location{}, StatusPathMismatch
		}
		ki := cur.IndexOfKey(comp.Key)
		if final {
			loc := location{parent: cur, key: comp.Key, keyIdx: ki}
			if ki >= 0 {
				loc.node = cur.Values[ki]
			}
			return loc, StatusSuccess
		}
		if ki < 0 {
			if !cfg.createParents || path[i+1].IsIndex {
				return location{}, StatusPathNotFound
			}
			child := ir.NewObject()
			cur.SetKey(comp.Key, child)
			cur = child
			continue
		}
		cur = cur.Values[ki]
	}
	// Unreachable: the final component always returns above.
	return location{}, StatusPathInvalid
}

// removeAt deletes the located element from its parent, shifting later
// array elements down by one.
func (loc *location) removeAt() {
	p := loc.parent
	if p.Type == ir.ObjectType {
		p.Keys = append(p.Keys[:loc.keyIdx], p.Keys[loc.keyIdx+1:]...)
		p.Values = append(p.Values[:loc.keyIdx], p.Values[loc.keyIdx+1:]...)
		return
	}
	p.Values = append(p.Values[:loc.elem], p.Values[loc.elem+1:]...)
}

// replaceAt substitutes v at the located slot.
func (loc *location) replaceAt(v *ir.Node) {
	p := loc.parent
	if p.Type == ir.ObjectType {
		p.Values[loc.keyIdx] = v
		return
	}
	p.Values[loc.elem] = v
}
