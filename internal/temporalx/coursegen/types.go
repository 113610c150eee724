package coursegen

import (
	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

type RunInput struct {
	RunID    string               `json:"run_id"`
	Language string               `json:"language"`
	Focus    string               `json:"focus"`
	Notes    string               `json:"notes,omitempty"`
	Profile  artifact.UserProfile `json:"profile"`
	// Policy is fixed at start so replays see the same timeouts.
	Policy *Policy `json:"policy,omitempty"`
}

func (in RunInput) inputs() runstate.Inputs {
	return runstate.Inputs{Language: in.Language, Focus: in.Focus, Notes: in.Notes, Profile: in.Profile}
}

// StartedRun names the workflow execution a start produced.
type StartedRun struct {
	RunID       string `json:"run_id"`
	ExecutionID string `json:"execution_id"`
}

type OutlineInput struct {
	RunID    string               `json:"run_id"`
	Language string               `json:"language"`
	Focus    string               `json:"focus"`
	Notes    string               `json:"notes,omitempty"`
	Profile  artifact.UserProfile `json:"profile"`
}

type CourseInput struct {
	RunID string `json:"run_id"`
	// OutlineText is the outline exactly as generated, never the reparsed form.
	OutlineText string               `json:"outline_text"`
	Language    string               `json:"language"`
	Focus       string               `json:"focus"`
	Notes       string               `json:"notes,omitempty"`
	Profile     artifact.UserProfile `json:"profile"`
}

type RunResult struct {
	RunID       string          `json:"run_id"`
	ExecutionID string          `json:"execution_id,omitempty"`
	Status      runstate.Status `json:"status"`
	Language    string          `json:"language,omitempty"`
	Focus       string          `json:"focus,omitempty"`
	// Course is the raw course artifact; callers repair and validate it.
	Course  string `json:"course,omitempty"`
	Message string `json:"message,omitempty"`
}

type ApprovalInput struct {
	Approved    bool   `json:"approved"`
	RequesterID string `json:"requester_id,omitempty"`
}

type ApprovalAck struct {
	Status runstate.Status `json:"status"`
}

// RunEventRecord is what the workflow projects after each transition.
type RunEventRecord struct {
	RunID       string            `json:"run_id"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Event       runstate.Event    `json:"event"`
	Snapshot    runstate.Snapshot `json:"snapshot"`
}
