package ir

import (
	"errors"
)

var (
	// ErrParse reports that input bytes are not a well-formed JSON
	// value (or list of values, for ParseList).
	ErrParse = errors.New("invalid JSON")

	// ErrTooDeep reports that input nesting exceeds the parser limit.
	ErrTooDeep = errors.New("JSON nesting too deep")
)
