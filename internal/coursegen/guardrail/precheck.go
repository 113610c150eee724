package guardrail

import (
	"encoding/json"

	"github.com/yungbote/coursegen-backend/internal/coursegen/repair"
)

// PrecheckCourse fails the structure axis for defects that need no model:
// no modules, a module without lessons, or a blank module or lesson title.
// Text that cannot be read as JSON even after repair is left to the model.
func PrecheckCourse(text string) (Verdict, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(repair.Repair(text).Text), &doc); err != nil {
		return Verdict{}, false
	}
	fail := func(reason string) (Verdict, bool) {
		return Verdict{Side: SideOutput, Safe: true, QualityContent: true, Reason: reason}, true
	}
	modules, _ := doc["modules"].([]any)
	if len(modules) == 0 {
		return fail("The generated course has no modules.")
	}
	for _, m := range modules {
		mod, _ := m.(map[string]any)
		if str(mod["title"]) == "" {
			return fail("A module in the generated course is missing its title.")
		}
		lessons, _ := mod["lessons"].([]any)
		if len(lessons) == 0 {
			return fail("The generated course has an empty module.")
		}
		for _, l := range lessons {
			lesson, _ := l.(map[string]any)
			if str(lesson["title"]) == "" {
				return fail("A lesson in the generated course is missing its title.")
			}
		}
	}
	return Verdict{}, false
}
