package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/coursegen/repair"
	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime/statuscache"
	"github.com/yungbote/coursegen-backend/internal/temporalx/coursegen"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrRunNotFound      = errors.New("course run not found")
	ErrApprovalConflict = errors.New("approval conflict")
)

// DefaultPollTimeout bounds a live status query before falling back to the
// last projected snapshot.
const DefaultPollTimeout = 2 * time.Second

// WorkflowGateway is how the service reaches a run's workflow.
type WorkflowGateway interface {
	Start(ctx context.Context, in coursegen.RunInput) (coursegen.StartedRun, error)
	Status(ctx context.Context, runID string) (runstate.Snapshot, error)
	Approve(ctx context.Context, runID string, req coursegen.ApprovalInput) (coursegen.ApprovalAck, error)
	Await(ctx context.Context, runID string) (coursegen.RunResult, error)
}

type StartRunRequest struct {
	RunID    string               `json:"run_id,omitempty"`
	Language string               `json:"language"`
	Focus    string               `json:"focus"`
	Notes    string               `json:"notes,omitempty"`
	Profile  artifact.UserProfile `json:"profile"`
}

type SubmitApprovalRequest struct {
	// Approved is required; a missing decision must never read as a rejection.
	Approved    *bool  `json:"approved" binding:"required"`
	RequesterID string `json:"requester_id,omitempty"`
}

const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
)

type ApprovalOutcome struct {
	Status   string `json:"status"`
	CourseID string `json:"course_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

type CourseGenerationService interface {
	StartRun(ctx context.Context, req StartRunRequest) (string, error)
	PollStatus(ctx context.Context, runID string) (runstate.Snapshot, error)
	SubmitApproval(ctx context.Context, runID string, req SubmitApprovalRequest) (*ApprovalOutcome, error)
}

type courseGenerationService struct {
	log *logger.Logger

	gateway   WorkflowGateway
	cache     statuscache.Cache
	courses   repos.CourseRepo
	runEvents repos.RunEventRepo

	pollTimeout time.Duration
}

func NewCourseGenerationService(
	baseLog *logger.Logger,
	gateway WorkflowGateway,
	cache statuscache.Cache,
	courses repos.CourseRepo,
	runEvents repos.RunEventRepo,
	pollTimeout time.Duration,
) CourseGenerationService {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if cache == nil {
		cache = statuscache.NewMemory()
	}
	return &courseGenerationService{
		log:         baseLog.With("service", "CourseGenerationService"),
		gateway:     gateway,
		cache:       cache,
		courses:     courses,
		runEvents:   runEvents,
		pollTimeout: pollTimeout,
	}
}

func (s *courseGenerationService) StartRun(ctx context.Context, req StartRunRequest) (string, error) {
	lang := strings.TrimSpace(req.Language)
	focus := strings.TrimSpace(req.Focus)
	if lang == "" || focus == "" {
		return "", fmt.Errorf("%w: language and focus are required", ErrInvalidArgument)
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.New().String()
	}

	started, err := s.gateway.Start(ctx, coursegen.RunInput{
		RunID:    runID,
		Language: lang,
		Focus:    focus,
		Notes:    strings.TrimSpace(req.Notes),
		Profile:  req.Profile,
	})
	if err != nil {
		return "", err
	}
	// a reused run id must not keep serving the previous execution's status
	if _, perr := s.cache.Put(ctx, runstate.Snapshot{
		RunID:       started.RunID,
		ExecutionID: started.ExecutionID,
		Status:      runstate.StatusStarting,
	}); perr != nil {
		s.log.Debug("status cache write failed", "run_id", started.RunID, "error", perr)
	}
	s.log.Info("course run started", "run_id", started.RunID, "execution_id", started.ExecutionID, "language", lang, "user_id", req.Profile.UserID)
	return started.RunID, nil
}

// PollStatus asks the workflow first. When that does not answer within the
// poll timeout the last projected snapshot is returned instead, and a run
// with no projection yet reads as GENERATING_OUTLINE.
func (s *courseGenerationService) PollStatus(ctx context.Context, runID string) (runstate.Snapshot, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return runstate.Snapshot{}, fmt.Errorf("%w: run id required", ErrInvalidArgument)
	}

	qctx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	snap, err := s.gateway.Status(qctx, runID)
	cancel()
	if err == nil {
		if _, perr := s.cache.Put(ctx, snap); perr != nil {
			s.log.Debug("status cache write failed", "run_id", runID, "error", perr)
		}
		return snap, nil
	}

	notFound := errors.Is(err, coursegen.ErrRunNotFound)
	if !notFound {
		s.log.Warn("status query failed; serving last known status", "run_id", runID, "error", err)
	}

	if cached, ok, cerr := s.cache.Get(ctx, runID); cerr == nil && ok {
		observability.Current().IncPollFallback("cache")
		return cached, nil
	}
	if snap, ok := s.ledgerSnapshot(ctx, runID); ok {
		observability.Current().IncPollFallback("ledger")
		return snap, nil
	}
	if notFound {
		return runstate.Snapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	observability.Current().IncPollFallback("default")
	return runstate.Snapshot{RunID: runID, Status: runstate.StatusGeneratingOutline}, nil
}

func (s *courseGenerationService) ledgerSnapshot(ctx context.Context, runID string) (runstate.Snapshot, bool) {
	if s.runEvents == nil {
		return runstate.Snapshot{}, false
	}
	e, err := s.runEvents.Latest(ctx, nil, runID)
	if err != nil || e == nil {
		if err != nil {
			s.log.Warn("run event ledger read failed", "run_id", runID, "error", err)
		}
		return runstate.Snapshot{}, false
	}
	var snap runstate.Snapshot
	if err := json.Unmarshal(e.Data, &snap); err != nil || snap.RunID == "" {
		return runstate.Snapshot{}, false
	}
	return snap, true
}

// SubmitApproval records the decision and waits for the run to finish. An
// approved run's course is repaired, validated and saved before returning.
func (s *courseGenerationService) SubmitApproval(ctx context.Context, runID string, req SubmitApprovalRequest) (*ApprovalOutcome, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id required", ErrInvalidArgument)
	}

	if req.Approved == nil {
		return nil, fmt.Errorf("%w: approved is required", ErrInvalidArgument)
	}
	approved := *req.Approved

	_, err := s.gateway.Approve(ctx, runID, coursegen.ApprovalInput{Approved: approved, RequesterID: req.RequesterID})
	switch {
	case errors.Is(err, coursegen.ErrApprovalRejected):
		return nil, fmt.Errorf("%w: %v", ErrApprovalConflict, err)
	case errors.Is(err, coursegen.ErrRunNotFound):
		return nil, s.closedOrMissing(ctx, runID, err)
	case err != nil:
		return nil, err
	}
	s.log.Info("approval submitted", "run_id", runID, "approved", approved, "requester_id", req.RequesterID)

	res, err := s.gateway.Await(ctx, runID)
	if err != nil {
		s.log.Warn("course run failed", "run_id", runID, "kind", string(pipelineerr.Classify(err)), "error", err)
		return nil, err
	}

	switch res.Status {
	case runstate.StatusRejected:
		msg := res.Message
		if msg == "" {
			msg = coursegen.CancelledMessage
		}
		return &ApprovalOutcome{Status: OutcomeRejected, Message: msg}, nil
	case runstate.StatusCompleted:
		c, err := s.persist(ctx, runID, req.RequesterID, res)
		if err != nil {
			return nil, err
		}
		return &ApprovalOutcome{Status: OutcomeCompleted, CourseID: c.ID.String()}, nil
	default:
		return nil, pipelineerr.Fatalf("run %s closed with status %s", runID, res.Status)
	}
}

// closedOrMissing tells a run that never existed from one that already closed.
func (s *courseGenerationService) closedOrMissing(ctx context.Context, runID string, cause error) error {
	if cached, ok, _ := s.cache.Get(ctx, runID); ok && cached.Status.Terminal() {
		return fmt.Errorf("%w: run already %s", ErrApprovalConflict, cached.Status)
	}
	if snap, ok := s.ledgerSnapshot(ctx, runID); ok && snap.Status.Terminal() {
		return fmt.Errorf("%w: run already %s", ErrApprovalConflict, snap.Status)
	}
	return fmt.Errorf("%w: %v", ErrRunNotFound, cause)
}

func (s *courseGenerationService) persist(ctx context.Context, runID, requesterID string, res coursegen.RunResult) (*types.Course, error) {
	art := repair.Repair(res.Course)
	outcome := "clean"
	if art.NeedsRepair {
		outcome = "repaired"
		s.log.Info("course artifact repaired", "run_id", runID, "bytes", len(res.Course))
	}
	full, err := repair.ValidateCourse(art)
	if err != nil {
		observability.Current().ObserveRepair("course", "invalid")
		s.log.Warn("course artifact failed validation", "run_id", runID, "error", err)
		return nil, err
	}
	observability.Current().ObserveRepair("course", outcome)

	data, err := json.Marshal(full)
	if err != nil {
		return nil, pipelineerr.Fatal(fmt.Errorf("encode course: %w", err))
	}
	if s.courses == nil {
		return nil, pipelineerr.Fatalf("course repository not configured")
	}
	saved, err := s.courses.Save(ctx, nil, &types.Course{
		RunID:       runID,
		ExecutionID: res.ExecutionID,
		RequesterID: requesterID,
		Title:       full.Title,
		Slug:        full.Slug,
		Language:    res.Language,
		Focus:       res.Focus,
		CourseData:  datatypes.JSON(data),
	})
	if err != nil {
		return nil, pipelineerr.Fatal(fmt.Errorf("save course: %w", err))
	}
	s.log.Info("course saved", "run_id", runID, "execution_id", res.ExecutionID, "course_id", saved.ID.String(), "unlocked", artifact.UnlockedCount(full))
	return saved, nil
}
