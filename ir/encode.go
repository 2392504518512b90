package ir

import (
	"strconv"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Encode renders a node as compact JSON. Object key order and raw
// number text are preserved, so untouched parts of a document
// round-trip byte for byte.
func Encode(n *Node) []byte {
	return Append(nil, n)
}

// Append appends the compact JSON rendering of n to dst.
func Append(dst []byte, n *Node) []byte {
	switch n.Type {
	case NullType:
		return append(dst, "null"...)
	case BoolType:
		if n.Bool {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case NumberType:
		if n.Number != "" {
			return append(dst, n.Number...)
		}
		if n.Int64 != nil {
			return strconv.AppendInt(dst, *n.Int64, 10)
		}
		if n.Float64 != nil {
			return strconv.AppendFloat(dst, *n.Float64, 'g', -1, 64)
		}
		return append(dst, '0')
	case StringType:
		return appendString(dst, n.String)
	case ArrayType:
		dst = append(dst, '[')
		for i, v := range n.Values {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = Append(dst, v)
		}
		return append(dst, ']')
	case ObjectType:
		dst = append(dst, '{')
		for i, v := range n.Values {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, n.Keys[i])
			dst = append(dst, ':')
			dst = Append(dst, v)
		}
		return append(dst, '}')
	}
	return dst
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' && c < utf8.RuneSelf {
			i++
			continue
		}
		if c >= utf8.RuneSelf {
			// Multi-byte runes pass through unescaped.
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			continue
		}
		dst = append(dst, s[start:i]...)
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		i++
		start = i
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
