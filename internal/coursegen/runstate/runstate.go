// Package runstate is the event-sourced state of one generation run. The
// workflow appends events; everything else reads state derived from them.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
)

type Status string

const (
	StatusStarting          Status = "STARTING"
	StatusGeneratingOutline Status = "GENERATING_OUTLINE"
	StatusOutlineReady      Status = "OUTLINE_READY"
	StatusGeneratingCourse  Status = "GENERATING_COURSE"
	StatusRejected          Status = "REJECTED"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the only path a run can take. Terminal statuses
// share the highest rank.
func (s Status) rank() int {
	switch s {
	case StatusStarting:
		return 0
	case StatusGeneratingOutline:
		return 1
	case StatusOutlineReady:
		return 2
	case StatusGeneratingCourse:
		return 3
	case StatusRejected, StatusCompleted, StatusFailed:
		return 4
	}
	return -1
}

// Newer reports whether s is strictly further along than other.
func (s Status) Newer(other Status) bool {
	return s.rank() > other.rank()
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if s.rank() < 0 {
		return "", false
	}
	return s, true
}

type EventKind string

const (
	EventStarted          EventKind = "started"
	EventOutlineReady     EventKind = "outline_ready"
	EventApprovalRecorded EventKind = "approval_recorded"
	EventCourseCompleted  EventKind = "course_completed"
	EventFailed           EventKind = "failed"
)

type Inputs struct {
	Language string               `json:"language"`
	Focus    string               `json:"focus"`
	Notes    string               `json:"notes,omitempty"`
	Profile  artifact.UserProfile `json:"profile"`
}

// Event is one transition. Seq is assigned by Apply and starts at 1.
type Event struct {
	Seq  int       `json:"seq"`
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	Inputs      *Inputs `json:"inputs,omitempty"`
	OutlineText string  `json:"outline_text,omitempty"`
	Approved    *bool   `json:"approved,omitempty"`
	FailureKind string  `json:"failure_kind,omitempty"`
	Message     string  `json:"message,omitempty"`
}

type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type State struct {
	RunID string `json:"run_id"`
	// ExecutionID names the workflow execution; a restarted run id gets a new one.
	ExecutionID string `json:"execution_id,omitempty"`
	Status      Status `json:"status"`
	Inputs      Inputs `json:"inputs"`

	// OutlineText is exactly what the outline stage returned.
	OutlineText string `json:"outline_text,omitempty"`
	// Outline is the parsed form of OutlineText, or OutlineText itself when
	// it does not parse.
	Outline  any      `json:"outline,omitempty"`
	Approval *bool    `json:"approval,omitempty"`
	Failure  *Failure `json:"failure,omitempty"`

	Seq       int       `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrIllegalTransition = errors.New("illegal run transition")
	ErrAlreadyApproved   = errors.New("approval already recorded")
	ErrNotAwaiting       = errors.New("run is not awaiting approval")
)

func New(runID string) *State {
	return &State{RunID: runID, Status: StatusStarting}
}

// Apply validates and applies e, assigning its sequence number. The state is
// unchanged when an error is returned.
func (s *State) Apply(e *Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrIllegalTransition)
	}
	next := *s
	switch e.Kind {
	case EventStarted:
		if s.Status != StatusStarting {
			return s.illegal(e)
		}
		if e.Inputs == nil {
			return fmt.Errorf("%w: started without inputs", ErrIllegalTransition)
		}
		next.Inputs = *e.Inputs
		next.Status = StatusGeneratingOutline
	case EventOutlineReady:
		if s.Status != StatusGeneratingOutline {
			return s.illegal(e)
		}
		next.OutlineText = e.OutlineText
		next.Outline = ParseOutline(e.OutlineText)
		next.Status = StatusOutlineReady
	case EventApprovalRecorded:
		if err := s.CanApprove(); err != nil {
			return err
		}
		if e.Approved == nil {
			return fmt.Errorf("%w: approval without decision", ErrIllegalTransition)
		}
		approved := *e.Approved
		next.Approval = &approved
		if approved {
			next.Status = StatusGeneratingCourse
		} else {
			next.Status = StatusRejected
		}
	case EventCourseCompleted:
		if s.Status != StatusGeneratingCourse {
			return s.illegal(e)
		}
		next.Status = StatusCompleted
	case EventFailed:
		// OUTLINE_READY fails when the approval wait is cancelled
		if s.Status != StatusGeneratingOutline && s.Status != StatusOutlineReady && s.Status != StatusGeneratingCourse {
			return s.illegal(e)
		}
		next.Failure = &Failure{Kind: e.FailureKind, Message: e.Message}
		next.Status = StatusFailed
	default:
		return fmt.Errorf("%w: unknown event %q", ErrIllegalTransition, e.Kind)
	}
	next.Seq = s.Seq + 1
	next.UpdatedAt = e.At
	e.Seq = next.Seq
	*s = next
	return nil
}

// CanApprove is the one-shot guard for the approval write.
func (s *State) CanApprove() error {
	if s.Approval != nil {
		return ErrAlreadyApproved
	}
	if s.Status != StatusOutlineReady {
		return fmt.Errorf("%w (status %s)", ErrNotAwaiting, s.Status)
	}
	return nil
}

func (s *State) illegal(e *Event) error {
	return fmt.Errorf("%w: %s while %s", ErrIllegalTransition, e.Kind, s.Status)
}

// Replay rebuilds a state from its events in order.
func Replay(runID string, events []Event) (*State, error) {
	s := New(runID)
	for i := range events {
		e := events[i]
		if err := s.Apply(&e); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", i+1, err)
		}
	}
	return s, nil
}

// ParseOutline returns the decoded outline, or text unchanged when it is not JSON.
func ParseOutline(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil && v != nil {
		return v
	}
	return text
}

// Snapshot is what status readers get.
type Snapshot struct {
	RunID       string   `json:"run_id"`
	ExecutionID string   `json:"execution_id,omitempty"`
	Status      Status   `json:"status"`
	Outline     any      `json:"outline"`
	Failure     *Failure `json:"failure,omitempty"`
	Seq         int      `json:"seq"`
}

// Supersedes reports whether s should replace cur for the same run id. A
// snapshot from another execution always wins; within one execution the
// higher Seq does.
func (s Snapshot) Supersedes(cur Snapshot) bool {
	if s.ExecutionID != "" && s.ExecutionID != cur.ExecutionID {
		return true
	}
	return s.Seq > cur.Seq
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{RunID: s.RunID, ExecutionID: s.ExecutionID, Status: s.Status, Failure: s.Failure, Seq: s.Seq}
	if s.Status.rank() >= StatusOutlineReady.rank() {
		snap.Outline = s.Outline
	}
	return snap
}
