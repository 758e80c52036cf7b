// internal/payload/decode.go
package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const narrowNoBreakSpace = "\u202f"

var errEmptyText = errors.New("decoded text is empty")

// DecodeText runs the text decoding pipeline over a field escaped once:
// unicode and literal escape sequences, HTML flattening, narrow no-break
// space normalisation. The result is NFC normalised and trimmed.
func DecodeText(raw string) (string, error) {
	return decodeText(raw, 1)
}

// DecodeNestedText decodes a field taken from inside a string-encoded array,
// where every escape was escaped a second time.
func DecodeNestedText(raw string) (string, error) {
	return decodeText(raw, 2)
}

func decodeText(raw string, depth int) (string, error) {
	s := raw
	for i := 0; i < depth; i++ {
		s = unescape(s)
	}

	flat, err := flattenHTML(s)
	if err != nil {
		return "", err
	}

	flat = strings.ReplaceAll(flat, narrowNoBreakSpace, " ")
	flat = strings.TrimSpace(norm.NFC.String(flat))
	if flat == "" {
		return "", errEmptyText
	}
	return flat, nil
}

// unescape removes one level of escaping, scanning left to right so each
// backslash belongs to exactly one sequence. \uXXXX, \n, \" and \\ are
// decoded; any other backslash is kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch next := s[i+1]; next {
		case 'n':
			b.WriteByte('\n')
			i++
		case '"', '\\':
			b.WriteByte(next)
			i++
		case 'u':
			r, width := unicodeEscape(s[i:])
			if width == 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteRune(r)
			i += width - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unicodeEscape decodes the \uXXXX sequence at the start of s, joining a
// UTF-16 surrogate pair written as two adjacent escapes. A zero width means
// s does not start with a valid escape.
func unicodeEscape(s string) (rune, int) {
	unit, ok := hexUnit(s)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(unit) {
		if low, ok := hexUnit(s[6:]); ok {
			if r := utf16.DecodeRune(unit, low); r != unicode.ReplacementChar {
				return r, 12
			}
		}
	}
	return unit, 6
}

func hexUnit(s string) (rune, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// flattenHTML parses s as markup and keeps the text content only, resolving
// entities and dropping tags.
func flattenHTML(s string) (string, error) {
	if !strings.ContainsAny(s, "<&") {
		return s, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("failed to parse text markup: %w", err)
	}
	return doc.Text(), nil
}
