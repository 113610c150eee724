package schema

import (
	"encoding/json"
	"fmt"
	"sync"
)

const (
	NameGuardrailInputV1    = "guardrail_input_v1"
	NameGuardrailOutputV1   = "guardrail_output_v1"
	NameCurriculumOutlineV1 = "curriculum_outline_v1"
	NameFullCourseGenV1     = "full_course_gen_v1"
)

var (
	guardrailInputV1Once    sync.Once
	guardrailInputV1Schema  map[string]any
	guardrailInputV1Err     error
	guardrailOutputV1Once   sync.Once
	guardrailOutputV1Schema map[string]any
	guardrailOutputV1Err    error
	outlineV1Once           sync.Once
	outlineV1Schema         map[string]any
	outlineV1Err            error
	fullCourseGenV1Once     sync.Once
	fullCourseGenV1Schema   map[string]any
	fullCourseGenV1Err      error
)

func GuardrailInputV1() (map[string]any, error) {
	guardrailInputV1Once.Do(func() {
		guardrailInputV1Schema, guardrailInputV1Err = loadJSONSchema(NameGuardrailInputV1 + ".json")
	})
	return guardrailInputV1Schema, guardrailInputV1Err
}

func GuardrailOutputV1() (map[string]any, error) {
	guardrailOutputV1Once.Do(func() {
		guardrailOutputV1Schema, guardrailOutputV1Err = loadJSONSchema(NameGuardrailOutputV1 + ".json")
	})
	return guardrailOutputV1Schema, guardrailOutputV1Err
}

func CurriculumOutlineV1() (map[string]any, error) {
	outlineV1Once.Do(func() {
		outlineV1Schema, outlineV1Err = loadJSONSchema(NameCurriculumOutlineV1 + ".json")
	})
	return outlineV1Schema, outlineV1Err
}

// FullCourseGenV1 flattens the lesson union into one object with nullable
// variant fields, since structured outputs reject oneOf.
func FullCourseGenV1() (map[string]any, error) {
	fullCourseGenV1Once.Do(func() {
		fullCourseGenV1Schema, fullCourseGenV1Err = loadJSONSchema(NameFullCourseGenV1 + ".json")
	})
	return fullCourseGenV1Schema, fullCourseGenV1Err
}

func loadJSONSchema(name string) (map[string]any, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	if err := ValidateOpenAIJSONSchema(name, m); err != nil {
		return nil, fmt.Errorf("lint schema %s: %w", name, err)
	}
	return m, nil
}
