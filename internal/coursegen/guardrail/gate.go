// Package guardrail classifies course requests and generated courses with a
// small strict-schema model call.
package guardrail

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/coursegen/schema"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// JSONGenerator is the slice of the model client the gate needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type Options struct {
	// MaxChars bounds the text sent for classification.
	MaxChars int
}

type Gate struct {
	log      *logger.Logger
	model    JSONGenerator
	maxChars int
}

func NewGate(log *logger.Logger, model JSONGenerator, opts Options) *Gate {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Gate{
		log:      log.With("component", "GuardrailGate"),
		model:    model,
		maxChars: opts.MaxChars,
	}
}

// Classify returns the verdict for text. An error means the classifier could
// not be reached or answered garbage; it says nothing about the content.
func (g *Gate) Classify(ctx context.Context, side Side, text string) (Verdict, error) {
	if side == SideOutput {
		if v, failed := PrecheckCourse(text); failed {
			v = v.finish()
			g.record(v, "precheck")
			return v, nil
		}
	}

	var (
		s      map[string]any
		name   string
		system string
		err    error
	)
	switch side {
	case SideInput:
		name, system = schema.NameGuardrailInputV1, inputInstructions
		s, err = schema.GuardrailInputV1()
	case SideOutput:
		name, system = schema.NameGuardrailOutputV1, outputInstructions
		s, err = schema.GuardrailOutputV1()
	default:
		return Verdict{}, fmt.Errorf("guardrail: unknown side %q", side)
	}
	if err != nil {
		return Verdict{}, err
	}

	user := Prepare(side, text, g.maxChars)
	obj, err := g.model.GenerateJSON(ctx, system, user, name, s)
	if err != nil {
		return Verdict{}, fmt.Errorf("guardrail %s: %w", side, err)
	}
	v, err := parseVerdict(side, obj)
	if err != nil {
		// a garbled reply is worth another attempt from the retry budget
		observability.Current().ObserveGuardrail(string(side), "malformed")
		return Verdict{}, pipelineerr.Transient(err)
	}
	v = v.finish()
	g.record(v, "model")
	return v, nil
}

func (g *Gate) record(v Verdict, source string) {
	outcome := "pass"
	if !v.Passed() {
		outcome = "fail_" + v.FailedAxis()
		g.log.Info("guardrail tripped", "side", string(v.Side), "axis", v.FailedAxis(), "source", source, "reason", v.Reason)
	}
	observability.Current().ObserveGuardrail(string(v.Side), outcome)
}

func parseVerdict(side Side, obj map[string]any) (Verdict, error) {
	if obj == nil {
		return Verdict{}, fmt.Errorf("guardrail %s: empty classifier response", side)
	}
	v := Verdict{Side: side}
	var err error
	if v.Safe, err = boolField(obj, "is_safe"); err != nil {
		return Verdict{}, err
	}
	switch side {
	case SideInput:
		if v.Relevant, err = boolField(obj, "is_relevant"); err != nil {
			return Verdict{}, err
		}
	case SideOutput:
		if v.ValidStructure, err = boolField(obj, "is_valid_structure"); err != nil {
			return Verdict{}, err
		}
		if v.QualityContent, err = boolField(obj, "is_quality_content"); err != nil {
			return Verdict{}, err
		}
	}
	v.Reason, _ = obj["reasoning"].(string)
	return v, nil
}

func boolField(obj map[string]any, key string) (bool, error) {
	switch t := obj[key].(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("guardrail: classifier response missing boolean %q", key)
}
