package repair

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
)

const validCourse = `{"title":"X","slug":"x","modules":[{"title":"M","lessons":[{"id":"1","title":"Intro","type":"content","duration":"5 min","completed":false,"locked":false,"content":"Hello"}]}]}`

func TestRepairIsIdentityOnValidJSON(t *testing.T) {
	a := Repair(validCourse)
	assert.False(t, a.NeedsRepair)
	assert.Equal(t, validCourse, a.Text)

	before, err := ValidateCourse(Artifact{Text: validCourse})
	require.NoError(t, err)
	after, err := ValidateCourse(a)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRepairTruncatedCourse(t *testing.T) {
	raw := `{"title":"X","modules":[{"title":"M","lessons":[{"id":"1"`
	a := Repair(raw)
	assert.True(t, a.NeedsRepair)
	assert.Equal(t, raw+`}]}]}`, a.Text)
	assert.True(t, json.Valid([]byte(a.Text)))
}

func TestRepairTruncatedCourseValidates(t *testing.T) {
	raw := `{"title":"X","slug":"x","modules":[{"title":"M","lessons":[{"id":"1","title":"Intro","type":"content","duration":"5 min","completed":false,"locked":false,"content":"Hello, wor`
	a := Repair(raw)
	require.True(t, a.NeedsRepair)
	require.True(t, json.Valid([]byte(a.Text)), a.Text)

	c, err := ValidateCourse(a)
	require.NoError(t, err)
	assert.Equal(t, "Hello, wor", c.Modules[0].Lessons[0].Content.Content)
}

func TestRepairCourseCutInsideSecondModule(t *testing.T) {
	first := `{"title":"M1","lessons":[{"id":"1","title":"Intro","type":"content","duration":"5 min","completed":false,"locked":false,"content":"Hello"}]}`
	raw := `{"title":"X","slug":"x","modules":[` + first + `,{"title":"M2","lessons":[{"id":"2","title":`
	a := Repair(raw)
	require.True(t, a.NeedsRepair)
	require.True(t, json.Valid([]byte(a.Text)), a.Text)

	c, err := ValidateCourse(a)
	require.NoError(t, err)
	require.Len(t, c.Modules, 1)
	assert.Equal(t, "M1", c.Modules[0].Title)
}

func TestRepairSteps(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"prose wrapper", "Sure! Here it is:\n{\"a\":1}\nHope this helps.", `{"a":1}`},
		{"code fence", "```json\n{\"a\":[1,2,]}\n```", `{"a":[1,2]}`},
		{"odd quote", `{"a":"b`, `{"a":"b"}`},
		{"trailing commas", `{"a":[1,2,],"b":{"c":1,},}`, `{"a":[1,2],"b":{"c":1}}`},
		{"dangling comma at end", `{"a":1,`, `{"a":1}`},
		{"comma inside string kept", `{"a":"x, ]"`, `{"a":"x, ]"}`},
		{"escaped quote", `{"a":"say \"hi\"`, `{"a":"say \"hi\""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Repair(tc.in)
			assert.Equal(t, tc.want, got.Text)
			assert.True(t, json.Valid([]byte(got.Text)), got.Text)
		})
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	once := Repair(`{"a":[{"b":"c`)
	twice := Repair(once.Text)
	assert.False(t, twice.NeedsRepair)
	assert.Equal(t, once.Text, twice.Text)
}

func TestValidateRejectsRepairedButInvalid(t *testing.T) {
	a := Repair(`{"title":"X","modules":[{"title":"M","lessons":[{"id":"1"`)
	_, err := ValidateCourse(a)
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "course", se.Target)
	assert.Equal(t, pipelineerr.KindSchema, pipelineerr.Classify(err))
}

func TestValidateRejectsUnknownTopLevelField(t *testing.T) {
	_, err := ValidateCourse(Artifact{Text: `{"title":"X","slug":"x","extra":true,"modules":[]}`})
	var se *SchemaError
	require.True(t, errors.As(err, &se))
}

func TestValidateCourseReportsFieldPaths(t *testing.T) {
	_, err := ValidateCourse(Artifact{Text: `{"title":"X","slug":"","modules":[{"title":"M","lessons":[{"id":"1","title":"T","type":"quiz","duration":"1","completed":false,"locked":true,"questions":[]}]}]}`})
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Fields, "slug (required)")
}

func TestValidateOutline(t *testing.T) {
	o, err := ValidateOutline(Artifact{Text: `{"title":"Go","slug":"go","modules":[{"title":"M","description":"d","duration":"1 week","lessons":[{"title":"L","description":"d"}]}]}`})
	require.NoError(t, err)
	assert.Equal(t, artifact.OutlineLesson{Title: "L", Description: "d"}, o.Modules[0].Lessons[0])

	_, err = ValidateOutline(Artifact{Text: `{"title":"Go","slug":"go","modules":[]}`})
	require.Error(t, err)
}
