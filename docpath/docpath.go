// Package docpath parses dot/bracket path expressions addressing a
// location inside a JSON document, e.g. "a.b[0].c" or "[-1]".
//
// Grammar:
//
//	path      := component*
//	component := key | '[' index ']'
//	key       := maximal run of characters excluding '.' and '['
//	index     := digits | "-1"
//
// A '.' separates a key from the preceding component; bracket
// components attach directly ("a[0][1]"). The empty path addresses the
// document root. "-1" is the last-element marker; no other negative
// index is legal.
package docpath

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// MaxComponents is the deepest addressable location in a document.
	MaxComponents = 32

	// MaxLength bounds the encoded path in bytes.
	MaxLength = 1024
)

var (
	// ErrInvalid reports malformed path syntax.
	ErrInvalid = errors.New("invalid path")

	// ErrTooLong reports a path whose encoded form exceeds MaxLength.
	ErrTooLong = errors.New("path too long")

	// ErrTooDeep reports a path with more than MaxComponents components.
	ErrTooDeep = errors.New("path too deep")
)

// Component is one step of a parsed path: either an object key or an
// array index. An Index of -1 is the last-element marker.
type Component struct {
	Key     string
	Index   int
	IsIndex bool
}

// Last reports whether the component is the "[-1]" last-element marker.
func (c Component) Last() bool {
	return c.IsIndex && c.Index == -1
}

func (c Component) String() string {
	if c.IsIndex {
		return "[" + strconv.Itoa(c.Index) + "]"
	}
	return c.Key
}

// Path is an ordered sequence of components. The empty path addresses
// the document root.
type Path []Component

func (p Path) String() string {
	s := ""
	for i, c := range p {
		if !c.IsIndex && i > 0 {
			s += "."
		}
		s += c.String()
	}
	return s
}

// Parse tokenizes and validates a path expression.
func Parse(s string) (Path, error) {
	if len(s) > MaxLength {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLong, len(s), MaxLength)
	}
	var p Path
	i := 0
	for i < len(s) {
		if len(p) > 0 {
			// Between components: a '.' introduces a key, a '[' starts
			// an index directly.
			switch s[i] {
			case '.':
				i++
				if i == len(s) {
					return nil, fmt.Errorf("%w: trailing separator", ErrInvalid)
				}
				if s[i] == '[' || s[i] == '.' {
					return nil, fmt.Errorf("%w: empty key at offset %d", ErrInvalid, i)
				}
			case '[':
			default:
				// Unreachable: a key component consumes up to the next
				// '.' or '['.
				return nil, fmt.Errorf("%w: unexpected character at offset %d", ErrInvalid, i)
			}
		}
		var c Component
		var err error
		if s[i] == '[' {
			c, i, err = parseIndex(s, i)
		} else {
			c, i, err = parseKey(s, i)
		}
		if err != nil {
			return nil, err
		}
		p = append(p, c)
		if len(p) > MaxComponents {
			return nil, fmt.Errorf("%w: more than %d components", ErrTooDeep, MaxComponents)
		}
	}
	return p, nil
}

func parseKey(s string, i int) (Component, int, error) {
	j := i
	for j < len(s) && s[j] != '.' && s[j] != '[' {
		j++
	}
	if j == i {
		return Component{}, 0, fmt.Errorf("%w: empty key at offset %d", ErrInvalid, i)
	}
	return Component{Key: s[i:j]}, j, nil
}

func parseIndex(s string, i int) (Component, int, error) {
	j := i + 1
	for j < len(s) && s[j] != ']' {
		j++
	}
	if j == len(s) {
		return Component{}, 0, fmt.Errorf("%w: unmatched '[' at offset %d", ErrInvalid, i)
	}
	content := s[i+1 : j]
	if content == "-1" {
		return Component{Index: -1, IsIndex: true}, j + 1, nil
	}
	if content == "" || !allDigits(content) {
		return Component{}, 0, fmt.Errorf("%w: bad array index %q", ErrInvalid, content)
	}
	idx, err := strconv.Atoi(content)
	if err != nil {
		return Component{}, 0, fmt.Errorf("%w: array index %q out of range", ErrInvalid, content)
	}
	return Component{Index: idx, IsIndex: true}, j + 1, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
