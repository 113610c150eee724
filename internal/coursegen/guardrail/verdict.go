package guardrail

import "strings"

type Side string

const (
	SideInput  Side = "input"
	SideOutput Side = "output"
)

// MaxReasonWords bounds Verdict.Reason; callers show the reason verbatim.
const MaxReasonWords = 15

const (
	reasonInputUnsafe     = "This topic can't be taught here because it involves unsafe content."
	reasonInputIrrelevant = "Please choose a programming or computer science topic."
	reasonOutputUnsafe    = "The generated course contained unsafe content."
	reasonOutputStructure = "The generated course was incomplete."
	reasonOutputQuality   = "The generated course did not meet our quality bar."
)

// Verdict is the outcome of one classification. Axes that do not apply to the
// side are left false and ignored by Passed.
type Verdict struct {
	Side           Side   `json:"side"`
	Safe           bool   `json:"is_safe"`
	Relevant       bool   `json:"is_relevant,omitempty"`
	ValidStructure bool   `json:"is_valid_structure,omitempty"`
	QualityContent bool   `json:"is_quality_content,omitempty"`
	Reason         string `json:"reasoning"`
}

func (v Verdict) Passed() bool {
	switch v.Side {
	case SideInput:
		return v.Safe && v.Relevant
	case SideOutput:
		return v.Safe && v.ValidStructure && v.QualityContent
	default:
		return false
	}
}

// FailedAxis names the first failing axis, or "" when the verdict passed.
func (v Verdict) FailedAxis() string {
	if v.Passed() {
		return ""
	}
	if !v.Safe {
		return "safety"
	}
	if v.Side == SideInput {
		return "relevance"
	}
	if !v.ValidStructure {
		return "structure"
	}
	return "quality"
}

func (v Verdict) defaultReason() string {
	switch v.FailedAxis() {
	case "safety":
		if v.Side == SideInput {
			return reasonInputUnsafe
		}
		return reasonOutputUnsafe
	case "relevance":
		return reasonInputIrrelevant
	case "structure":
		return reasonOutputStructure
	case "quality":
		return reasonOutputQuality
	}
	return ""
}

// finish clamps the reason and fills a default one for failing verdicts.
func (v Verdict) finish() Verdict {
	v.Reason = ClampReason(v.Reason)
	if !v.Passed() && v.Reason == "" {
		v.Reason = v.defaultReason()
	}
	return v
}

// ClampReason collapses whitespace and keeps at most MaxReasonWords words.
func ClampReason(s string) string {
	words := strings.Fields(s)
	if len(words) > MaxReasonWords {
		words = words[:MaxReasonWords]
		last := strings.TrimRight(words[MaxReasonWords-1], ",;:-")
		words[MaxReasonWords-1] = last + "…"
	}
	return strings.Join(words, " ")
}
