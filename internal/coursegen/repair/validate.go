package repair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
)

// SchemaError reports an artifact that is well-formed JSON (or was repaired
// into it) but does not match the expected model.
type SchemaError struct {
	Target string
	// Fields lists the failing validation paths, when known.
	Fields []string
	Err    error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s does not match schema: %s", e.Target, strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s does not match schema: %v", e.Target, e.Err)
	}
	return e.Target + " does not match schema"
}

// Unwrap exposes the pipeline kind so callers can classify the failure.
func (e *SchemaError) Unwrap() error {
	return pipelineerr.Schema(e.UserMessage(), e.Err)
}

func (e *SchemaError) UserMessage() string {
	return fmt.Sprintf("The generated %s was incomplete or malformed. Please try again.", e.Target)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateCourse strictly decodes a course artifact: unknown fields are
// rejected and every required field must be present.
func ValidateCourse(a Artifact) (*artifact.FullCourse, error) {
	var c artifact.FullCourse
	if err := decodeAndValidate(a.Text, "course", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func ValidateOutline(a Artifact) (*artifact.Outline, error) {
	var o artifact.Outline
	if err := decodeAndValidate(a.Text, "outline", &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func decodeAndValidate(text, target string, out any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &SchemaError{Target: target, Err: err}
	}
	if dec.More() {
		return &SchemaError{Target: target, Err: errors.New("trailing data after document")}
	}
	if err := structValidator().Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", trimNamespace(fe.Namespace()), fe.Tag()))
			}
			return &SchemaError{Target: target, Fields: fields, Err: err}
		}
		return &SchemaError{Target: target, Err: err}
	}
	return nil
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
