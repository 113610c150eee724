// Package normalize turns whatever the model layer hands back into canonical JSON text.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Kind int

const (
	KindStructured Kind = iota + 1
	KindMapping
	KindJSONString
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindMapping:
		return "mapping"
	case KindJSONString:
		return "json_string"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Result is one of the finite shapes a model call can produce. Build it with
// Structured, Mapping or FromString; the zero value is invalid.
type Result struct {
	kind    Kind
	value   any
	mapping map[string]any
	text    string
}

// Structured wraps a typed Go value (a struct, slice, or pointer to one).
func Structured(v any) Result {
	return Result{kind: KindStructured, value: v}
}

// Mapping wraps an already-decoded JSON object.
func Mapping(m map[string]any) Result {
	return Result{kind: KindMapping, mapping: m}
}

// FromString classifies raw model text. JSON text, optionally inside a
// markdown fence or double-encoded as a JSON string literal, becomes a
// JSON string result. Anything else is prose.
func FromString(s string) Result {
	if js, ok := asJSON(s); ok {
		return Result{kind: KindJSONString, text: js}
	}
	return Result{kind: KindText, text: s}
}

func (r Result) Kind() Kind { return r.kind }

// ToJSON renders the canonical JSON text for r. Prose is wrapped as {"content": ...}.
func ToJSON(r Result) (string, error) {
	switch r.kind {
	case KindStructured:
		if r.value == nil {
			return "", fmt.Errorf("normalize: nil structured value")
		}
		b, err := json.Marshal(r.value)
		if err != nil {
			return "", fmt.Errorf("normalize: marshal structured: %w", err)
		}
		return string(b), nil
	case KindMapping:
		if r.mapping == nil {
			return "", fmt.Errorf("normalize: nil mapping")
		}
		b, err := json.Marshal(r.mapping)
		if err != nil {
			return "", fmt.Errorf("normalize: marshal mapping: %w", err)
		}
		return string(b), nil
	case KindJSONString:
		return r.text, nil
	case KindText:
		b, err := json.Marshal(map[string]string{"content": r.text})
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("normalize: empty result")
	}
}

func asJSON(s string) (string, bool) {
	t := StripCodeFence(strings.TrimSpace(s))
	if t == "" || !json.Valid([]byte(t)) {
		return "", false
	}
	// double-encoded: "{\"title\": ...}"
	if strings.HasPrefix(t, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(t), &inner); err != nil {
			return "", false
		}
		return asJSON(inner)
	}
	return t, true
}

// StripCodeFence removes a surrounding ```json ... ``` fence, if present.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		lang := strings.TrimSpace(t[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[\"") {
			t = t[nl+1:]
		}
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
