// Package repair closes structurally unterminated model output and validates
// it against the course and outline models.
package repair

import (
	"encoding/json"
	"strings"

	"github.com/yungbote/coursegen-backend/internal/coursegen/normalize"
)

// Artifact is the well-formed-or-best-effort text produced by Repair.
type Artifact struct {
	Text        string
	NeedsRepair bool
}

// Repair applies, in order: fence stripping, trim to the outermost object,
// closing an unterminated string, trailing-comma removal, and closing every
// unmatched brace and bracket. Input that already parses is returned as is.
// Repair never invents values; a repaired artifact can still fail validation.
func Repair(raw string) Artifact {
	if json.Valid([]byte(raw)) {
		return Artifact{Text: raw}
	}
	s := normalize.StripCodeFence(raw)
	s = trimToObject(s)
	s = closeString(s)
	s = dropTrailingCommas(s)
	s = balance(s)
	return Artifact{Text: s, NeedsRepair: true}
}

func trimToObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return strings.TrimSpace(s)
	}
	s = s[start:]
	// everything after the last closer is dropped, prose or a truncated member
	if end := strings.LastIndexByte(s, '}'); end >= 0 {
		s = s[:end+1]
	}
	return s
}

// unescapedQuotes counts quote characters that are not escaped.
func unescapedQuotes(s string) int {
	n := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			n++
		}
	}
	return n
}

func closeString(s string) string {
	if unescapedQuotes(s)%2 == 0 {
		return s
	}
	// a dangling backslash would escape the closing quote
	if strings.HasSuffix(s, `\`) && !strings.HasSuffix(s, `\\`) {
		s = s[:len(s)-1]
	}
	return s + `"`
}

// dropTrailingCommas removes commas (and the whitespace after them) that sit
// right before a closing brace or bracket, or at the very end of the text
// where a closer is about to be appended. String contents are left alone.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
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
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j == len(s) || s[j] == '}' || s[j] == ']' {
				i = j - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// balance appends a closer for every unmatched opener, innermost first.
func balance(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
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
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}
	if len(stack) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(s, " \t\r\n"))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
