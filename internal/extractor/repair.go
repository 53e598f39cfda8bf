package extractor

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RepairKind tags a single heuristic transformation.
type RepairKind string

const (
	TrailingComma        RepairKind = "trailing-comma"
	Comment              RepairKind = "comment"
	UnescapedControlChar RepairKind = "unescaped-control-char"
	NonPrintable         RepairKind = "non-printable"
	Unbalanced           RepairKind = "unbalanced"
)

// Repair is a pure text -> text function applied before re-attempting a parse.
type Repair struct {
	Kind  RepairKind
	Apply func(string) string
}

// Pass groups repairs applied together before one parse attempt.
// Passes are cumulative: each starts from the previous pass's output.
type Pass struct {
	Name    string
	Repairs []Repair
}

// DefaultPasses are ordered from cosmetic to structural.
var DefaultPasses = []Pass{
	{Name: "direct"},
	{Name: "textual", Repairs: []Repair{
		{Kind: Comment, Apply: StripComments},
		{Kind: TrailingComma, Apply: StripTrailingCommas},
		{Kind: UnescapedControlChar, Apply: EscapeControlChars},
	}},
	{Name: "non-printable", Repairs: []Repair{
		{Kind: NonPrintable, Apply: StripNonPrintable},
	}},
	{Name: "truncation", Repairs: []Repair{
		{Kind: Unbalanced, Apply: BalanceTruncated},
	}},
}

// StripComments removes // line comments and /* */ block comments outside strings.
func StripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) {
			switch s[i+1] {
			case '/':
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					return b.String()
				}
				i += nl - 1
				continue
			case '*':
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// StripTrailingCommas drops commas that directly precede a closing bracket.
func StripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeControlChars escapes raw newlines, tabs, carriage returns and other
// control bytes found inside string literals. Structural whitespace is untouched.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}
		switch {
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// StripNonPrintable removes control and format characters except \n, \r and \t,
// along with bytes that are not valid UTF-8.
func StripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if r == '\n' || r == '\r' || r == '\t' || !unicode.In(r, unicode.C) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
