package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem(t *testing.T) {
	if got := ApplySystem("   ", ModeJSON); got != "" {
		t.Fatalf("empty prompt should stay empty, got %q", got)
	}
	once := ApplySystem("Design an outline.", ModeJSON)
	if !strings.HasPrefix(once, marker) || !strings.HasSuffix(once, "Design an outline.") {
		t.Fatalf("unexpected styled prompt: %q", once)
	}
	if !strings.Contains(once, "Use null") {
		t.Fatalf("json mode rules missing")
	}
	if twice := ApplySystem(once, ModeJSON); twice != once {
		t.Fatalf("ApplySystem should be idempotent")
	}
}
