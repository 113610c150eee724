package promptstyle

import "strings"

const marker = "COURSEGEN_PROMPT_STYLE_V1"

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// ApplySystem prefixes a system prompt with the shared output rules. It is a
// no-op on empty or already-styled prompts.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write material for a programming education platform.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nDo not add commentary before or after the requested output.")
	switch mode {
	case ModeJSON:
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
		b.WriteString("\nUse null for fields that do not apply.")
	default:
		b.WriteString("\nIf you return JSON, return only the JSON object without markdown fences.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
