package coursegen

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

// Workflow drives one run: outline, wait for approval, full course.
// Run state lives in the event log kept here; every transition is projected
// through a local activity so readers outside Temporal can follow it.
func Workflow(ctx workflow.Context, in RunInput) (RunResult, error) {
	log := workflow.GetLogger(ctx)

	runID := in.RunID
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	pol := DefaultPolicy()
	if in.Policy != nil {
		pol = *in.Policy
	}

	execID := workflow.GetInfo(ctx).WorkflowExecution.RunID
	r := &run{id: runID, execID: execID, state: runstate.New(runID)}
	r.state.ExecutionID = execID

	if err := workflow.SetQueryHandler(ctx, QueryStatus, func() (runstate.Snapshot, error) {
		return r.state.Snapshot(), nil
	}); err != nil {
		return RunResult{}, err
	}

	if err := workflow.SetUpdateHandlerWithOptions(ctx, UpdateApproveOutline,
		func(ctx workflow.Context, req ApprovalInput) (ApprovalAck, error) {
			approved := req.Approved
			if err := r.apply(ctx, runstate.Event{Kind: runstate.EventApprovalRecorded, Approved: &approved}); err != nil {
				return ApprovalAck{}, approvalError(err)
			}
			log.Info("approval recorded", "run_id", runID, "approved", approved)
			return ApprovalAck{Status: r.state.Status}, nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, req ApprovalInput) error {
				return approvalError(r.state.CanApprove())
			},
		},
	); err != nil {
		return RunResult{}, err
	}

	if err := r.apply(ctx, runstate.Event{Kind: runstate.EventStarted, Inputs: ptr(in.inputs())}); err != nil {
		return RunResult{}, err
	}
	r.flush(ctx)

	outlineCtx := workflow.WithActivityOptions(ctx, pol.activityOptions(pol.Outline))
	var outlineText string
	err := workflow.ExecuteActivity(outlineCtx, ActivityGenerateOutline, OutlineInput{
		RunID:    runID,
		Language: in.Language,
		Focus:    in.Focus,
		Notes:    in.Notes,
		Profile:  in.Profile,
	}).Get(ctx, &outlineText)
	if err != nil {
		return r.fail(ctx, "outline", err)
	}

	if err := r.apply(ctx, runstate.Event{Kind: runstate.EventOutlineReady, OutlineText: outlineText}); err != nil {
		return r.fail(ctx, "outline", err)
	}
	r.flush(ctx)

	if err := workflow.Await(ctx, func() bool { return r.state.Approval != nil }); err != nil {
		return r.fail(ctx, "approval", err)
	}
	r.flush(ctx)

	if !*r.state.Approval {
		log.Info("outline rejected", "run_id", runID)
		return RunResult{RunID: runID, ExecutionID: execID, Status: runstate.StatusRejected, Message: CancelledMessage}, nil
	}

	courseCtx := workflow.WithActivityOptions(ctx, pol.activityOptions(pol.Course))
	var courseText string
	err = workflow.ExecuteActivity(courseCtx, ActivityGenerateCourse, CourseInput{
		RunID:       runID,
		OutlineText: r.state.OutlineText,
		Language:    in.Language,
		Focus:       in.Focus,
		Notes:       in.Notes,
		Profile:     in.Profile,
	}).Get(ctx, &courseText)
	if err != nil {
		return r.fail(ctx, "course", err)
	}

	if err := r.apply(ctx, runstate.Event{Kind: runstate.EventCourseCompleted}); err != nil {
		return r.fail(ctx, "course", err)
	}
	r.flush(ctx)

	log.Info("course generation completed", "run_id", runID, "bytes", len(courseText))
	return RunResult{
		RunID:       runID,
		ExecutionID: execID,
		Status:      runstate.StatusCompleted,
		Language:    in.Language,
		Focus:       in.Focus,
		Course:      courseText,
	}, nil
}

type run struct {
	id      string
	execID  string
	state   *runstate.State
	pending []RunEventRecord
}

func (r *run) apply(ctx workflow.Context, e runstate.Event) error {
	e.At = workflow.Now(ctx).UTC()
	if err := r.state.Apply(&e); err != nil {
		return err
	}
	r.pending = append(r.pending, RunEventRecord{RunID: r.id, ExecutionID: r.execID, Event: e, Snapshot: r.state.Snapshot()})
	return nil
}

// flush projects pending events in order. Projection is best effort: a
// failed write is logged and the run carries on.
func (r *run) flush(ctx workflow.Context) {
	if len(r.pending) == 0 {
		return
	}
	lctx := workflow.WithLocalActivityOptions(ctx, workflow.LocalActivityOptions{
		ScheduleToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 200 * time.Millisecond,
			MaximumAttempts: 3,
		},
	})
	records := r.pending
	r.pending = nil
	for _, rec := range records {
		if err := workflow.ExecuteLocalActivity(lctx, ActivityRecordRunEvent, rec).Get(ctx, nil); err != nil {
			workflow.GetLogger(ctx).Warn("run event projection failed",
				"run_id", r.id, "seq", rec.Event.Seq, "kind", string(rec.Event.Kind), "error", err)
		}
	}
}

// fail records FAILED and projects it. It runs on a disconnected context so a
// cancelled run still reaches a terminal status.
func (r *run) fail(ctx workflow.Context, stage string, cause error) (RunResult, error) {
	ctx, _ = workflow.NewDisconnectedContext(ctx)
	kind := pipelineerr.Classify(cause)
	if kind == pipelineerr.KindTransient {
		kind = pipelineerr.KindFatal
	}
	msg := pipelineerr.UserMessage(cause)
	if kind == pipelineerr.KindFatal {
		msg = pipelineerr.GenericMessage
	}
	workflow.GetLogger(ctx).Error("course generation failed", "run_id", r.id, "stage", stage, "kind", string(kind), "error", cause)
	if err := r.apply(ctx, runstate.Event{Kind: runstate.EventFailed, FailureKind: string(kind), Message: msg}); err != nil {
		workflow.GetLogger(ctx).Warn("failure not recorded", "run_id", r.id, "error", err)
	}
	r.flush(ctx)
	return RunResult{}, pipelineerr.Terminal(kind, msg)
}

func approvalError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, runstate.ErrAlreadyApproved):
		return temporal.NewApplicationError(err.Error(), TypeApprovalAlreadyRecorded)
	case errors.Is(err, runstate.ErrNotAwaiting), errors.Is(err, runstate.ErrIllegalTransition):
		return temporal.NewApplicationError(err.Error(), TypeApprovalNotAwaiting)
	default:
		return err
	}
}

func ptr[T any](v T) *T { return &v }
