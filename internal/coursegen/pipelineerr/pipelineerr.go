// Package pipelineerr is the single failure taxonomy shared by the activities,
// the workflow, the client façade and the HTTP boundary.
package pipelineerr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
)

type Kind string

const (
	KindTransient Kind = "transient"
	KindGuardrail Kind = "guardrail"
	KindSchema    Kind = "schema"
	KindFatal     Kind = "fatal"
)

// Temporal application error types. Everything except transient is listed in
// the activity retry policy as non-retryable.
const (
	TypeTransient = "CourseGenTransient"
	TypeGuardrail = "CourseGenGuardrail"
	TypeSchema    = "CourseGenSchema"
	TypeFatal     = "CourseGenFatal"
)

// GenericMessage is what callers see for fatal failures.
const GenericMessage = "Something went wrong. Please try again."

func NonRetryableTypes() []string {
	return []string{TypeGuardrail, TypeSchema, TypeFatal}
}

type Error struct {
	Kind Kind
	// Message is safe to show an end user for guardrail and schema failures.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

func Guardrail(reason string) *Error {
	return &Error{Kind: KindGuardrail, Message: reason}
}

func Schema(msg string, err error) *Error {
	return &Error{Kind: KindSchema, Message: msg, Err: err}
}

func Fatal(err error) *Error {
	return &Error{Kind: KindFatal, Err: err}
}

func Fatalf(format string, args ...any) *Error {
	return Fatal(fmt.Errorf(format, args...))
}

func typeForKind(k Kind) string {
	switch k {
	case KindGuardrail:
		return TypeGuardrail
	case KindSchema:
		return TypeSchema
	case KindFatal:
		return TypeFatal
	default:
		return TypeTransient
	}
}

func kindForType(t string) (Kind, bool) {
	switch t {
	case TypeTransient:
		return KindTransient, true
	case TypeGuardrail:
		return KindGuardrail, true
	case TypeSchema:
		return KindSchema, true
	case TypeFatal:
		return KindFatal, true
	}
	return "", false
}

// Classify resolves the kind of any error. Temporal application errors are
// recognised by type, *Error by kind, and anything else that looks like a
// retryable network or upstream failure is transient. The rest is fatal.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if k, ok := kindForType(appErr.Type()); ok {
			return k
		}
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return KindFatal
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}
	if httpx.IsRetryableError(err) {
		return KindTransient
	}
	return KindFatal
}

// UserMessage is the one-line explanation a caller may display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case KindGuardrail, KindSchema:
		var pe *Error
		if errors.As(err, &pe) && strings.TrimSpace(pe.Message) != "" {
			return pe.Message
		}
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && strings.TrimSpace(appErr.Message()) != "" {
			return appErr.Message()
		}
	}
	return GenericMessage
}

// ToTemporal converts err into the application error the activity should
// return. Transient errors stay retryable; every other kind is non-retryable.
func ToTemporal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return err
	}
	kind := Classify(err)
	msg := err.Error()
	var pe *Error
	if errors.As(err, &pe) && strings.TrimSpace(pe.Message) != "" {
		msg = pe.Message
	}
	if kind == KindTransient {
		return temporal.NewApplicationErrorWithCause(msg, TypeTransient, err)
	}
	return temporal.NewNonRetryableApplicationError(msg, typeForKind(kind), err)
}

// Terminal builds the error a workflow returns once it has recorded FAILED.
// Retry exhaustion of transient failures is reported as fatal.
func Terminal(kind Kind, message string) error {
	if kind == KindTransient || kind == "" {
		kind = KindFatal
	}
	return temporal.NewNonRetryableApplicationError(message, typeForKind(kind), nil)
}
