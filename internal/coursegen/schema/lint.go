package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidateOpenAIJSONSchema checks a schema against the strict structured-output
// subset: no oneOf/anyOf/allOf, every object closed with additionalProperties
// false, and required listing exactly the keys in properties. All problems are
// reported together.
func ValidateOpenAIJSONSchema(name string, schema map[string]any) error {
	if schema == nil {
		return fmt.Errorf("schema is nil")
	}
	path := strings.TrimSpace(name)
	if path == "" {
		path = "$"
	}
	var issues []string
	lintNode(schema, path, &issues)
	if len(issues) == 0 {
		return nil
	}
	return errors.New(strings.Join(issues, "; "))
}

func lintNode(node any, path string, issues *[]string) {
	m, ok := node.(map[string]any)
	if !ok || m == nil {
		return
	}
	for _, key := range []string{"oneOf", "anyOf", "allOf"} {
		if _, ok := m[key]; ok {
			*issues = append(*issues, fmt.Sprintf("%s: %s is not permitted", path, key))
		}
	}
	if enum, ok := m["enum"]; ok {
		if arr, ok := enum.([]any); !ok || len(arr) == 0 {
			*issues = append(*issues, fmt.Sprintf("%s: enum must be a non-empty array", path))
		}
	}
	if items, ok := m["items"]; ok {
		lintNode(items, path+".items", issues)
	}

	propsAny, hasProps := m["properties"]
	if !hasProps || propsAny == nil {
		return
	}
	props, ok := propsAny.(map[string]any)
	if !ok {
		*issues = append(*issues, fmt.Sprintf("%s: properties must be an object", path))
		return
	}
	if ap, ok := m["additionalProperties"]; !ok || ap != false {
		*issues = append(*issues, fmt.Sprintf("%s: additionalProperties must be false", path))
	}

	required := map[string]bool{}
	reqArr, ok := m["required"].([]any)
	if !ok {
		*issues = append(*issues, fmt.Sprintf("%s: required must list every key in properties", path))
	}
	for _, v := range reqArr {
		if k := strings.TrimSpace(fmt.Sprint(v)); k != "" {
			required[k] = true
		}
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var missing, unknown []string
	for _, k := range keys {
		if !required[k] {
			missing = append(missing, k)
		}
	}
	for k := range required {
		if _, ok := props[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	if ok && len(missing) > 0 {
		*issues = append(*issues, fmt.Sprintf("%s: required missing keys: %v", path, missing))
	}
	if len(unknown) > 0 {
		*issues = append(*issues, fmt.Sprintf("%s: required includes unknown keys: %v", path, unknown))
	}

	for _, k := range keys {
		lintNode(props[k], path+".properties."+k, issues)
	}
}
