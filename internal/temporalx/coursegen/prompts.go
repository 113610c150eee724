package coursegen

import (
	"fmt"
	"strings"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
)

const outlineSystem = `You design programming courses.
Produce a course outline: a title, a slug, and modules. Each module has a title, a description, a duration such as "2 hours", and lessons; each lesson has a title and a one-sentence description.
Order modules from fundamentals to applied work. Slugs are lowercase words joined by hyphens.`

const courseSystem = `You write complete programming courses from an approved outline.
Keep the outline's module and lesson order. Every lesson has an id, title, type ("content", "quiz" or "playground"), duration, completed=false, locked=false, and the fields of its type:
- content: markdown in "content", optional "codeExample".
- quiz: "questions", each with id, question, at least two options, correctAnswer as an index into options, and explanation.
- playground: description, language, starterCode, challenge and hints.
Set fields that belong to another lesson type to null.`

// describeRequest renders the learner's request. The same text is what the
// input guardrail sees.
func describeRequest(language, focus, notes string, profile artifact.UserProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n", strings.TrimSpace(language))
	fmt.Fprintf(&b, "Focus: %s\n", strings.TrimSpace(focus))
	if n := strings.TrimSpace(notes); n != "" {
		fmt.Fprintf(&b, "Notes: %s\n", n)
	}
	if !profile.IsZero() {
		b.WriteString(describeProfile(profile))
	}
	return b.String()
}

func describeProfile(p artifact.UserProfile) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Age range", p.AgeRange)
	add("Education", p.EducationLevel)
	add("Technical background", p.TechBackground)
	add("Coding experience", p.CodingExperience)
	add("Goals", strings.Join(p.Goals, ", "))
	add("Learning speed", p.LearningSpeed)
	add("Learning mode", p.LearningMode)
	add("Time per week", p.TimePerWeek)
	add("Preferred language", p.PreferredLanguage)
	if len(lines) == 0 {
		return ""
	}
	return "Learner profile:\n" + strings.Join(lines, "\n") + "\n"
}

func outlinePrompt(in OutlineInput) (string, string) {
	user := describeRequest(in.Language, in.Focus, in.Notes, in.Profile) +
		"\nWrite the outline for this learner."
	return outlineSystem, user
}

func coursePrompt(in CourseInput) (string, string) {
	user := describeRequest(in.Language, in.Focus, in.Notes, in.Profile) +
		"\nApproved outline:\n" + in.OutlineText +
		"\n\nWrite the full course for this outline."
	return courseSystem, user
}
