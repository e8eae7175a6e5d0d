package jsonrepair

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseLenient is a relaxed JSON reader used as the fallback when the strict
// parse still fails after repair. It tolerates single-quoted strings,
// unquoted keys and bareword values, trailing and missing commas, and
// case-insensitive literal spellings. It is intentionally forgiving rather
// than standards-conforming.
func parseLenient(s string) (interface{}, error) {
	p := &lenientParser{src: s}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	// Trailing garbage is ignored: model output often follows JSON with prose.
	return v, nil
}

type lenientParser struct {
	src string
	pos int
}

func (p *lenientParser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("lenient parse at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *lenientParser) eof() bool { return p.pos >= len(p.src) }

func (p *lenientParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *lenientParser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *lenientParser) parseValue() (interface{}, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errf("unexpected end of input")
	}

	switch c := p.peek(); {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'':
		return p.parseString(c)
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseBareword()
	}
}

func (p *lenientParser) parseObject() (map[string]interface{}, error) {
	p.pos++ // consume '{'
	obj := make(map[string]interface{})
	for {
		p.skipSpace()
		if p.eof() {
			return obj, nil // unterminated object: keep what we have
		}
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}

		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errf("expected ':' after key %q", key)
		}
		p.pos++

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj[key] = val
	}
}

func (p *lenientParser) parseKey() (string, error) {
	p.skipSpace()
	if c := p.peek(); c == '"' || c == '\'' {
		return p.parseString(c)
	}
	// Unquoted key: read until ':' or whitespace.
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ':' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("expected object key")
	}
	return p.src[start:p.pos], nil
}

func (p *lenientParser) parseArray() ([]interface{}, error) {
	p.pos++ // consume '['
	arr := make([]interface{}, 0)
	for {
		p.skipSpace()
		if p.eof() {
			return arr, nil // unterminated array: keep what we have
		}
		if p.peek() == ']' {
			p.pos++
			return arr, nil
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
}

func (p *lenientParser) parseString(quote byte) (string, error) {
	p.pos++ // consume opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			next := p.src[p.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\'', '\\', '/':
				b.WriteByte(next)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	// Unterminated string: return what we collected.
	return b.String(), nil
}

func (p *lenientParser) parseNumber() (interface{}, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	for !p.eof() {
		c := p.peek()
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+' {
			p.pos++
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	n, err := strconv.ParseFloat(strings.TrimPrefix(text, "+"), 64)
	if err != nil {
		return nil, p.errf("invalid number %q", text)
	}
	return n, nil
}

func (p *lenientParser) parseBareword() (interface{}, error) {
	start := p.pos
	for !p.eof() {
		c := rune(p.peek())
		if c == ',' || c == '}' || c == ']' || c == ':' || unicode.IsSpace(c) {
			break
		}
		p.pos++
	}
	word := p.src[start:p.pos]
	if word == "" {
		return nil, p.errf("unexpected character %q", p.peek())
	}

	switch strings.ToLower(word) {
	case "null", "none", "nan":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	// Bareword values are kept as strings.
	return word, nil
}
