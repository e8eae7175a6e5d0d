// Package jsonrepair coerces near-JSON text into parsed structured values.
// Generative models frequently return structurally unreliable JSON: single
// quotes, Python literal spellings, trailing commas, unescaped quotes inside
// string values, raw newlines. The repair pipeline is an ordered chain of
// total text transforms followed by a strict parse attempt and a lenient
// fallback parse. Each transform is exported so it can be tested on its own.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when the input contains no object or array span.
var ErrNoJSON = errors.New("no JSON object or array found in content")

// RepairError is returned when both the strict and the lenient parse fail
// after all repair transforms. It carries the original text for diagnostics.
type RepairError struct {
	Text       string
	StrictErr  error
	LenientErr error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("failed to repair JSON: %v (lenient fallback: %v)", e.StrictErr, e.LenientErr)
}

var (
	trailingCommaRe   = regexp.MustCompile(`,[ \t\r\n]*([}\]])`)
	trailingCommaWsRe = regexp.MustCompile(`,\s*([}\]])`)
	whitespaceRunRe   = regexp.MustCompile(`\s+`)
	danglingQuoteRe   = regexp.MustCompile(`"\s*([}\]])`)
	rangeValueRe      = regexp.MustCompile(`("normalized_value"\s*:\s*)(-?\d+\.?\d*)\s*/\s*(-?\d+\.?\d*)`)
	keyValuePairRe    = regexp.MustCompile(`(".*?":\s*)"((?:[^"\\]|\\.)*)"`)
)

// ExtractSpan locates the first top-level {...} or [...] span by bracket
// matching. When the brackets never rebalance (truncated output), the span
// extends to the last closing bracket of the matching kind, mirroring a
// greedy match.
func ExtractSpan(text string) (string, error) {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			open = text[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				// Prefer the widest span: a later sibling object would have
				// been part of the same response, so take the last closer.
				last := strings.LastIndexByte(text, close)
				if last > i {
					return text[start : last+1], nil
				}
				return text[start : i+1], nil
			}
		}
	}

	last := strings.LastIndexByte(text, close)
	if last <= start {
		return "", ErrNoJSON
	}
	return text[start : last+1], nil
}

// NormalizeQuotes converts single quotes to double quotes.
func NormalizeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `"`)
}

// NormalizeLiterals converts Python literal spellings to JSON spellings.
func NormalizeLiterals(s string) string {
	s = strings.ReplaceAll(s, "None", "null")
	s = strings.ReplaceAll(s, "True", "true")
	s = strings.ReplaceAll(s, "False", "false")
	return s
}

// StripTrailingCommas removes commas that immediately precede a closing
// bracket. Two passes: bracket-adjacent with limited whitespace, then the
// general whitespace form.
func StripTrailingCommas(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = trailingCommaWsRe.ReplaceAllString(s, "$1")
	return s
}

// CollapseWhitespace converts raw newline runs inside string values to an
// escaped newline token so they cannot break the value, collapses structural
// whitespace runs to single spaces, and tightens quote-to-closer gaps.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' && (i == 0 || s[i-1] != '\\') {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if c == '\n' || c == '\r' {
			// Swallow the rest of the whitespace run.
			j := i
			for j+1 < len(s) && (s[j+1] == '\n' || s[j+1] == '\r' || s[j+1] == ' ' || s[j+1] == '\t') {
				j++
			}
			i = j
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteByte(c)
	}
	out := whitespaceRunRe.ReplaceAllString(b.String(), " ")
	return danglingQuoteRe.ReplaceAllString(out, `"$1`)
}

// QuoteRangeValues rewrites `"normalized_value": N / M` into the quoted form
// `"N / M"` so the slash does not produce an invalid numeric token.
func QuoteRangeValues(s string) string {
	return rangeValueRe.ReplaceAllString(s, `$1"$2 / $3"`)
}

// EscapeInnerQuotes escapes un-escaped double quotes inside detected
// "key": "value" spans.
func EscapeInnerQuotes(s string) string {
	return keyValuePairRe.ReplaceAllStringFunc(s, func(pair string) string {
		m := keyValuePairRe.FindStringSubmatch(pair)
		if m == nil {
			return pair
		}
		value := m[2]
		var b strings.Builder
		for i := 0; i < len(value); i++ {
			if value[i] == '"' && (i == 0 || value[i-1] != '\\') {
				b.WriteString(`\"`)
				continue
			}
			b.WriteByte(value[i])
		}
		return m[1] + `"` + b.String() + `"`
	})
}

// Repair runs the full repair chain over text and parses the result. It
// returns the parsed value (map[string]interface{} or []interface{}) or
// ErrNoJSON / *RepairError. Best-effort: no correctness guarantee on
// adversarial input, but it always terminates.
func Repair(text string) (interface{}, error) {
	span, err := ExtractSpan(text)
	if err != nil {
		return nil, err
	}

	s := NormalizeQuotes(span)
	s = NormalizeLiterals(s)
	s = StripTrailingCommas(s)
	s = CollapseWhitespace(s)
	s = QuoteRangeValues(s)
	s = EscapeInnerQuotes(s)

	var v interface{}
	strictErr := json.Unmarshal([]byte(s), &v)
	if strictErr == nil {
		return v, nil
	}

	v, lenientErr := parseLenient(s)
	if lenientErr == nil {
		return v, nil
	}

	return nil, &RepairError{Text: text, StrictErr: strictErr, LenientErr: lenientErr}
}
