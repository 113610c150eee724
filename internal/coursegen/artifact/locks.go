package artifact

// ApplyDefaultLocks locks every lesson and unlocks the first lesson of the
// first module. Reapplying it is a no-op.
func ApplyDefaultLocks(c *FullCourse) {
	if c == nil {
		return
	}
	for mi := range c.Modules {
		for li := range c.Modules[mi].Lessons {
			c.Modules[mi].Lessons[li].Locked = !(mi == 0 && li == 0)
		}
	}
}

// ApplyDefaultLocksMap is ApplyDefaultLocks over a decoded JSON document, for
// callers that must not drop fields the typed model does not know about.
func ApplyDefaultLocksMap(doc map[string]any) {
	modules, _ := doc["modules"].([]any)
	for mi, m := range modules {
		mod, ok := m.(map[string]any)
		if !ok {
			continue
		}
		lessons, _ := mod["lessons"].([]any)
		for li, l := range lessons {
			lesson, ok := l.(map[string]any)
			if !ok {
				continue
			}
			lesson["locked"] = !(mi == 0 && li == 0)
		}
	}
}

// UnlockedCount returns how many lessons are unlocked across the course.
func UnlockedCount(c *FullCourse) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if !l.Locked {
				n++
			}
		}
	}
	return n
}
