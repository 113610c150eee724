package artifact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCourse = `{
  "title": "Go Basics",
  "slug": "go-basics",
  "modules": [
    {"title": "Intro", "lessons": [
      {"id": "1", "title": "Hello", "type": "content", "duration": "5 min", "completed": false, "locked": false, "content": "Hi", "codeExample": null},
      {"id": "2", "title": "Check", "type": "quiz", "duration": "3 min", "completed": false, "locked": false,
       "questions": [{"id": "q1", "question": "2+2?", "options": ["3", "4"], "correctAnswer": 1, "explanation": "math"}]}
    ]},
    {"title": "Practice", "description": "Hands on", "lessons": [
      {"id": "3", "title": "Loop", "type": "playground", "duration": "10 min", "completed": false, "locked": false,
       "description": "Write a loop", "language": "go", "starterCode": "package main", "challenge": "Print 1..3", "hints": ["use for"], "questions": null}
    ]}
  ]
}`

func TestLessonUnionDecode(t *testing.T) {
	var c FullCourse
	require.NoError(t, json.Unmarshal([]byte(sampleCourse), &c))
	require.Len(t, c.Modules, 2)

	l0 := c.Modules[0].Lessons[0]
	require.NotNil(t, l0.Content)
	assert.Nil(t, l0.Content.CodeExample)
	assert.Nil(t, l0.Quiz)

	l1 := c.Modules[0].Lessons[1]
	require.NotNil(t, l1.Quiz)
	assert.Equal(t, 1, l1.Quiz.Questions[0].CorrectAnswer)

	l2 := c.Modules[1].Lessons[0]
	require.NotNil(t, l2.Playground)
	assert.Equal(t, []string{"use for"}, l2.Playground.Hints)
}

func TestLessonRejectsUnknownField(t *testing.T) {
	var l Lesson
	err := json.Unmarshal([]byte(`{"id":"1","title":"t","type":"content","duration":"1","completed":false,"locked":true,"content":"x","bogus":1}`), &l)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":"1","title":"t","type":"video","duration":"1"}`), &l)
	require.Error(t, err)

	// a foreign variant key with a value is not tolerated
	err = json.Unmarshal([]byte(`{"id":"1","title":"t","type":"content","duration":"1","content":"x","hints":["h"]}`), &l)
	require.Error(t, err)
}

func TestLessonMarshalRoundTrip(t *testing.T) {
	var c FullCourse
	require.NoError(t, json.Unmarshal([]byte(sampleCourse), &c))
	b, err := json.Marshal(c)
	require.NoError(t, err)

	var again FullCourse
	require.NoError(t, json.Unmarshal(b, &again))
	assert.Equal(t, c, again)
}

func TestApplyDefaultLocks(t *testing.T) {
	var c FullCourse
	require.NoError(t, json.Unmarshal([]byte(sampleCourse), &c))

	ApplyDefaultLocks(&c)
	assert.Equal(t, 1, UnlockedCount(&c))
	assert.False(t, c.Modules[0].Lessons[0].Locked)
	assert.True(t, c.Modules[0].Lessons[1].Locked)
	assert.True(t, c.Modules[1].Lessons[0].Locked)

	before, _ := json.Marshal(c)
	ApplyDefaultLocks(&c)
	after, _ := json.Marshal(c)
	assert.JSONEq(t, string(before), string(after))
}

func TestApplyDefaultLocksMap(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleCourse), &doc))
	ApplyDefaultLocksMap(doc)

	unlocked := 0
	for _, m := range doc["modules"].([]any) {
		for _, l := range m.(map[string]any)["lessons"].([]any) {
			if l.(map[string]any)["locked"] == false {
				unlocked++
			}
		}
	}
	assert.Equal(t, 1, unlocked)
}
