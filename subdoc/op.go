package subdoc

import (
	"fmt"
)

// Op identifies a subdocument command. The values are wire opcodes.
type Op uint8

const (
	OpGet            Op = 0xc5
	OpExists         Op = 0xc6
	OpDictAdd        Op = 0xc7
	OpDictUpsert     Op = 0xc8
	OpDelete         Op = 0xc9
	OpReplace        Op = 0xca
	OpArrayPushLast  Op = 0xcb
	OpArrayPushFirst Op = 0xcc
	OpArrayInsert    Op = 0xcd
	OpArrayAddUnique Op = 0xce
	OpCounter        Op = 0xcf
	OpMultiLookup    Op = 0xd0
	OpMultiMutation  Op = 0xd1
)

func (op Op) String() string {
	switch op {
	case OpGet:
		return "get"
	case OpExists:
		return "exists"
	case OpDictAdd:
		return "dict-add"
	case OpDictUpsert:
		return "dict-upsert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	case OpArrayPushLast:
		return "array-push-last"
	case OpArrayPushFirst:
		return "array-push-first"
	case OpArrayInsert:
		return "array-insert"
	case OpArrayAddUnique:
		return "array-add-unique"
	case OpCounter:
		return "counter"
	case OpMultiLookup:
		return "multi-lookup"
	case OpMultiMutation:
		return "multi-mutation"
	}
	return fmt.Sprintf("op 0x%02x", uint8(op))
}

// Lookup reports whether the op is read-only.
func (op Op) Lookup() bool {
	return op == OpGet || op == OpExists
}

// Mutation reports whether the op writes the document.
func (op Op) Mutation() bool {
	switch op {
	case OpDictAdd, OpDictUpsert, OpDelete, OpReplace,
		OpArrayPushLast, OpArrayPushFirst, OpArrayInsert,
		OpArrayAddUnique, OpCounter:
		return true
	}
	return false
}

// HasValue reports whether the op carries a value fragment.
func (op Op) HasValue() bool {
	return op.Mutation() && op != OpDelete
}

// Flag is the per-command flags byte.
type Flag uint8

const (
	// FlagMkdirP requests creation of missing intermediate object
	// ancestors. It never applies to array ancestors.
	FlagMkdirP Flag = 0x01
)

// allowsMkdirP reports whether FlagMkdirP is legal for the op.
// Lookups, delete, replace and array-insert take no flags at all.
func (op Op) allowsMkdirP() bool {
	switch op {
	case OpDictAdd, OpDictUpsert, OpArrayPushLast, OpArrayPushFirst,
		OpArrayAddUnique, OpCounter:
		return true
	}
	return false
}

// CheckFlags validates the flags byte for the op: unknown bits are
// always invalid, and FlagMkdirP only applies to creating mutations.
func (op Op) CheckFlags(flags Flag) Status {
	if flags&^FlagMkdirP != 0 {
		return StatusInvalidArgs
	}
	if flags&FlagMkdirP != 0 && !op.allowsMkdirP() {
		return StatusInvalidArgs
	}
	return StatusSuccess
}
