// Package subdoc implements path-addressed lookups and mutations on
// JSON document trees: the navigator that resolves a parsed path to a
// location, and one operator per command kind.
package subdoc

import (
	"fmt"
)

// Status is a protocol-level result code. It implements error so that
// failures thread through error returns, but Success is not an error
// in the errors.Is sense callers should rely on; check s != Success.
type Status uint16

const (
	StatusSuccess     Status = 0x0000
	StatusKeyNotFound Status = 0x0001
	StatusKeyExists   Status = 0x0002
	StatusTooBig      Status = 0x0003
	StatusInvalidArgs Status = 0x0004
	StatusNotOwner    Status = 0x0007
	StatusBusy        Status = 0x0086

	StatusPathNotFound     Status = 0x00c0
	StatusPathMismatch     Status = 0x00c1
	StatusPathInvalid      Status = 0x00c2
	StatusPathTooDeep      Status = 0x00c3
	StatusDocTooDeep       Status = 0x00c4
	StatusValueCantInsert  Status = 0x00c5
	StatusDocNotJSON       Status = 0x00c6
	StatusNumRange         Status = 0x00c7
	StatusDeltaInvalid     Status = 0x00c8
	StatusPathExists       Status = 0x00c9
	StatusValueTooDeep     Status = 0x00ca
	StatusInvalidCombo     Status = 0x00cb
	StatusMultiPathFailure Status = 0x00cc
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusKeyNotFound:
		return "key not found"
	case StatusKeyExists:
		return "key exists (CAS mismatch)"
	case StatusTooBig:
		return "value too big"
	case StatusInvalidArgs:
		return "invalid arguments"
	case StatusNotOwner:
		return "key not owned by this node"
	case StatusBusy:
		return "temporary failure"
	case StatusPathNotFound:
		return "path not found"
	case StatusPathMismatch:
		return "path type mismatch"
	case StatusPathInvalid:
		return "invalid path"
	case StatusPathTooDeep:
		return "path too deep"
	case StatusDocTooDeep:
		return "document too deep"
	case StatusValueCantInsert:
		return "cannot insert value"
	case StatusDocNotJSON:
		return "document is not JSON"
	case StatusNumRange:
		return "number outside int64 range"
	case StatusDeltaInvalid:
		return "invalid counter delta"
	case StatusPathExists:
		return "path already exists"
	case StatusValueTooDeep:
		return "value nesting too deep"
	case StatusInvalidCombo:
		return "invalid command combination"
	case StatusMultiPathFailure:
		return "multi-path operation failed"
	}
	return fmt.Sprintf("status 0x%04x", uint16(s))
}

func (s Status) Error() string {
	return s.String()
}

// Ok reports whether the status is Success.
func (s Status) Ok() bool {
	return s == StatusSuccess
}
