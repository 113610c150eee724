package guardrail

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxChars = 12000
	excerptChars    = 160
)

// Prepare fits text into maxChars for classification. Course JSON that is too
// large becomes a structural digest; anything else keeps its head and an
// elision marker. It never fails.
func Prepare(side Side, text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	if side == SideOutput {
		if digest, ok := courseDigest(text); ok {
			return headExcerpt(digest, maxChars)
		}
	}
	return headExcerpt(text, maxChars)
}

func headExcerpt(s string, maxChars int) string {
	n := utf8.RuneCountInString(s)
	if n <= maxChars {
		return s
	}
	r := []rune(s)
	return string(r[:maxChars]) + fmt.Sprintf("\n…[%d characters omitted]", n-maxChars)
}

func courseDigest(text string) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", str(doc["title"]))
	modules, _ := doc["modules"].([]any)
	for mi, m := range modules {
		mod, _ := m.(map[string]any)
		lessons, _ := mod["lessons"].([]any)
		fmt.Fprintf(&b, "Module %d: %s (%d lessons)\n", mi+1, str(mod["title"]), len(lessons))
		for _, l := range lessons {
			lesson, _ := l.(map[string]any)
			fmt.Fprintf(&b, "  - [%s] %s: %s\n", str(lesson["type"]), str(lesson["title"]), lessonExcerpt(lesson))
		}
	}
	return b.String(), true
}

func lessonExcerpt(lesson map[string]any) string {
	var src string
	switch str(lesson["type"]) {
	case "quiz":
		qs, _ := lesson["questions"].([]any)
		if len(qs) > 0 {
			q, _ := qs[0].(map[string]any)
			src = fmt.Sprintf("%d questions, first: %s", len(qs), str(q["question"]))
		}
	case "playground":
		src = str(lesson["challenge"])
		if src == "" {
			src = str(lesson["description"])
		}
	default:
		src = str(lesson["content"])
	}
	src = strings.Join(strings.Fields(src), " ")
	r := []rune(src)
	if len(r) > excerptChars {
		return string(r[:excerptChars]) + "…"
	}
	return src
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
