package ir

import (
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// maxParseNesting bounds parser recursion. It is deliberately larger
// than the 32-level document limit, which is enforced by callers on
// the resulting tree; the parser limit only defends the stack.
const maxParseNesting = 128

// Parse decodes exactly one JSON value, rejecting trailing input.
func Parse(data []byte) (*Node, error) {
	p := &parser{data: data}
	p.skipSpace()
	n, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.data) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrParse, p.pos)
	}
	return n, nil
}

// ParseList decodes one or more comma-separated JSON values, as used
// by array push fragments ("1,2,3").
func ParseList(data []byte) ([]*Node, error) {
	p := &parser{data: data}
	var vs []*Node
	for {
		p.skipSpace()
		n, err := p.value(0)
		if err != nil {
			return nil, err
		}
		vs = append(vs, n)
		p.skipSpace()
		if p.pos == len(p.data) {
			return vs, nil
		}
		if p.data[p.pos] != ',' {
			return nil, fmt.Errorf("%w: expected ',' at offset %d", ErrParse, p.pos)
		}
		p.pos++
	}
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (*Node, error) {
	if depth > maxParseNesting {
		return nil, ErrTooDeep
	}
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrParse)
	}
	switch c := p.data[p.pos]; {
	case c == '{':
		return p.object(depth)
	case c == '[':
		return p.array(depth)
	case c == '"':
		s, err := p.string()
		if err != nil {
			return nil, err
		}
		return FromString(s), nil
	case c == 't':
		return p.literal("true", FromBool(true))
	case c == 'f':
		return p.literal("false", FromBool(false))
	case c == 'n':
		return p.literal("null", Null())
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrParse, c, p.pos)
	}
}

func (p *parser) literal(lit string, n *Node) (*Node, error) {
	if len(p.data)-p.pos < len(lit) || string(p.data[p.pos:p.pos+len(lit)]) != lit {
		return nil, fmt.Errorf("%w: bad literal at offset %d", ErrParse, p.pos)
	}
	p.pos += len(lit)
	return n, nil
}

func (p *parser) object(depth int) (*Node, error) {
	p.pos++ // '{'
	obj := NewObject()
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == '}' {
		p.pos++
		return obj, nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != '"' {
			return nil, fmt.Errorf("%w: expected object key at offset %d", ErrParse, p.pos)
		}
		key, err := p.string()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != ':' {
			return nil, fmt.Errorf("%w: expected ':' at offset %d", ErrParse, p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, v)
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated object", ErrParse)
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or '}' at offset %d", ErrParse, p.pos)
		}
	}
}

func (p *parser) array(depth int) (*Node, error) {
	p.pos++ // '['
	arr := NewArray()
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == ']' {
		p.pos++
		return arr, nil
	}
	for {
		p.skipSpace()
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		arr.Values = append(arr.Values, v)
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unterminated array", ErrParse)
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or ']' at offset %d", ErrParse, p.pos)
		}
	}
}

func (p *parser) string() (string, error) {
	p.pos++ // opening '"'
	start := p.pos
	// Fast path: no escapes, no control characters.
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '"' {
			s := string(p.data[start:p.pos])
			p.pos++
			return s, nil
		}
		if c == '\\' || c < 0x20 {
			break
		}
		p.pos++
	}
	return p.stringSlow(start)
}

func (p *parser) stringSlow(start int) (string, error) {
	buf := append([]byte(nil), p.data[start:p.pos]...)
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '"':
			p.pos++
			return string(buf), nil
		case c < 0x20:
			return "", fmt.Errorf("%w: control character in string at offset %d", ErrParse, p.pos)
		case c == '\\':
			p.pos++
			if p.pos >= len(p.data) {
				return "", fmt.Errorf("%w: unterminated escape", ErrParse)
			}
			esc := p.data[p.pos]
			p.pos++
			switch esc {
			case '"', '\\', '/':
				buf = append(buf, esc)
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'u':
				r, err := p.hexRune()
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(r) {
					if p.pos+1 < len(p.data) && p.data[p.pos] == '\\' && p.data[p.pos+1] == 'u' {
						p.pos += 2
						r2, err := p.hexRune()
						if err != nil {
							return "", err
						}
						r = utf16.DecodeRune(r, r2)
					} else {
						r = utf8.RuneError
					}
				}
				buf = utf8.AppendRune(buf, r)
			default:
				return "", fmt.Errorf("%w: bad escape %q", ErrParse, esc)
			}
		default:
			buf = append(buf, c)
			p.pos++
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrParse)
}

func (p *parser) hexRune() (rune, error) {
	if len(p.data)-p.pos < 4 {
		return 0, fmt.Errorf("%w: truncated \\u escape", ErrParse)
	}
	v, err := strconv.ParseUint(string(p.data[p.pos:p.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad \\u escape", ErrParse)
	}
	p.pos += 4
	return rune(v), nil
}

func (p *parser) number() (*Node, error) {
	start := p.pos
	if p.data[p.pos] == '-' {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
		digits++
	}
	if digits == 0 {
		return nil, fmt.Errorf("%w: bad number at offset %d", ErrParse, start)
	}
	// Leading zeros are not valid JSON ("01").
	if digits > 1 && p.data[start] == '0' ||
		digits > 1 && p.data[start] == '-' && p.data[start+1] == '0' {
		return nil, fmt.Errorf("%w: leading zero at offset %d", ErrParse, start)
	}
	integral := true
	if p.pos < len(p.data) && p.data[p.pos] == '.' {
		integral = false
		p.pos++
		frac := 0
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
			frac++
		}
		if frac == 0 {
			return nil, fmt.Errorf("%w: bad fraction at offset %d", ErrParse, start)
		}
	}
	if p.pos < len(p.data) && (p.data[p.pos] == 'e' || p.data[p.pos] == 'E') {
		integral = false
		p.pos++
		if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
			p.pos++
		}
		exp := 0
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
			exp++
		}
		if exp == 0 {
			return nil, fmt.Errorf("%w: bad exponent at offset %d", ErrParse, start)
		}
	}
	text := string(p.data[start:p.pos])
	n := &Node{Type: NumberType, Number: text}
	if integral {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			n.Int64 = &i
			return n, nil
		}
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		n.Float64 = &f
	}
	return n, nil
}

// Integral reports whether the number node's source text has integer
// form (no fraction, no exponent), independent of 64-bit range.
func (n *Node) Integral() bool {
	if n.Type != NumberType {
		return false
	}
	for i := 0; i < len(n.Number); i++ {
		switch n.Number[i] {
		case '.', 'e', 'E':
			return false
		}
	}
	return len(n.Number) > 0
}
