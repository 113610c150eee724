// Package artifact holds the typed shapes of the generated outline and course.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Outline struct {
	Title   string          `json:"title" validate:"required"`
	Slug    string          `json:"slug" validate:"required"`
	Modules []OutlineModule `json:"modules" validate:"required,min=1,dive"`
}

type OutlineModule struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Duration    string          `json:"duration" validate:"required"`
	Lessons     []OutlineLesson `json:"lessons" validate:"required,min=1,dive"`
}

type OutlineLesson struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type FullCourse struct {
	Title   string   `json:"title" validate:"required"`
	Slug    string   `json:"slug" validate:"required"`
	Modules []Module `json:"modules" validate:"required,min=1,dive"`
}

type Module struct {
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Lessons     []Lesson `json:"lessons" validate:"required,min=1,dive"`
}

type LessonType string

const (
	LessonContent    LessonType = "content"
	LessonQuiz       LessonType = "quiz"
	LessonPlayground LessonType = "playground"
)

// Lesson is a tagged union on Type. Exactly one of Content, Quiz or Playground
// is set, matching Type.
type Lesson struct {
	ID        string     `json:"id" validate:"required"`
	Title     string     `json:"title" validate:"required"`
	Type      LessonType `json:"type" validate:"required,oneof=content quiz playground"`
	Duration  string     `json:"duration" validate:"required"`
	Completed bool       `json:"completed"`
	Locked    bool       `json:"locked"`

	Content    *ContentBody    `json:"-" validate:"required_if=Type content"`
	Quiz       *QuizBody       `json:"-" validate:"required_if=Type quiz"`
	Playground *PlaygroundBody `json:"-" validate:"required_if=Type playground"`
}

type ContentBody struct {
	Content     string  `json:"content" validate:"required"`
	CodeExample *string `json:"codeExample,omitempty"`
}

type QuizBody struct {
	Questions []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
}

type QuizQuestion struct {
	ID            string   `json:"id" validate:"required"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer int      `json:"correctAnswer" validate:"gte=0"`
	Explanation   string   `json:"explanation" validate:"required"`
}

type PlaygroundBody struct {
	Description string   `json:"description" validate:"required"`
	Language    string   `json:"language" validate:"required"`
	StarterCode string   `json:"starterCode"`
	Challenge   string   `json:"challenge" validate:"required"`
	Hints       []string `json:"hints"`
}

var commonLessonKeys = map[string]bool{
	"id": true, "title": true, "type": true, "duration": true, "completed": true, "locked": true,
}

var variantKeys = map[LessonType]map[string]bool{
	LessonContent:    {"content": true, "codeExample": true},
	LessonQuiz:       {"questions": true},
	LessonPlayground: {"description": true, "language": true, "starterCode": true, "challenge": true, "hints": true},
}

// UnmarshalJSON dispatches on "type". Keys that belong to another variant are
// tolerated only when null, which is how a flattened strict schema fills them.
// Any other unknown key is an error.
func (l *Lesson) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var typ LessonType
	if t, ok := raw["type"]; ok {
		if err := json.Unmarshal(t, &typ); err != nil {
			return fmt.Errorf("lesson type: %w", err)
		}
	}
	own, ok := variantKeys[typ]
	if !ok {
		return fmt.Errorf("unknown lesson type %q", typ)
	}

	common := map[string]json.RawMessage{}
	variant := map[string]json.RawMessage{}
	for k, v := range raw {
		switch {
		case commonLessonKeys[k]:
			common[k] = v
		case own[k]:
			if !isNull(v) {
				variant[k] = v
			}
		case isForeignVariantKey(k) && isNull(v):
		default:
			return fmt.Errorf("lesson %q: unknown field %q", typ, k)
		}
	}

	type lessonHeader struct {
		ID        string     `json:"id"`
		Title     string     `json:"title"`
		Type      LessonType `json:"type"`
		Duration  string     `json:"duration"`
		Completed bool       `json:"completed"`
		Locked    bool       `json:"locked"`
	}
	var hdr lessonHeader
	if err := decodeStrict(common, &hdr); err != nil {
		return err
	}
	*l = Lesson{
		ID:        hdr.ID,
		Title:     hdr.Title,
		Type:      hdr.Type,
		Duration:  hdr.Duration,
		Completed: hdr.Completed,
		Locked:    hdr.Locked,
	}

	switch typ {
	case LessonContent:
		var body ContentBody
		if err := decodeStrict(variant, &body); err != nil {
			return err
		}
		l.Content = &body
	case LessonQuiz:
		var body QuizBody
		if err := decodeStrict(variant, &body); err != nil {
			return err
		}
		l.Quiz = &body
	case LessonPlayground:
		var body PlaygroundBody
		if err := decodeStrict(variant, &body); err != nil {
			return err
		}
		l.Playground = &body
	}
	return nil
}

func (l Lesson) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":        l.ID,
		"title":     l.Title,
		"type":      l.Type,
		"duration":  l.Duration,
		"completed": l.Completed,
		"locked":    l.Locked,
	}
	var body any
	switch l.Type {
	case LessonContent:
		body = l.Content
	case LessonQuiz:
		body = l.Quiz
	case LessonPlayground:
		body = l.Playground
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func isForeignVariantKey(k string) bool {
	for _, keys := range variantKeys {
		if keys[k] {
			return true
		}
	}
	return false
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeStrict(fields map[string]json.RawMessage, out any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
