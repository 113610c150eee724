package coursegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

var (
	ErrRunNotFound      = errors.New("course run not found")
	ErrApprovalRejected = errors.New("approval not accepted")
)

// Gateway talks to course_generation workflows through a Temporal client.
type Gateway struct {
	tc        client.Client
	taskQueue string
	policy    Policy
}

func NewGateway(tc client.Client, taskQueue string, policy Policy) *Gateway {
	tq := strings.TrimSpace(taskQueue)
	if tq == "" {
		tq = "coursegen"
	}
	return &Gateway{tc: tc, taskQueue: tq, policy: policy}
}

// Start launches a run. A run id that is still running is replaced by a new
// execution.
func (g *Gateway) Start(ctx context.Context, in RunInput) (StartedRun, error) {
	if g == nil || g.tc == nil {
		return StartedRun{}, fmt.Errorf("temporal not configured")
	}
	if strings.TrimSpace(in.RunID) == "" {
		return StartedRun{}, fmt.Errorf("missing run id")
	}
	pol := g.policy
	in.Policy = &pol
	opts := client.StartWorkflowOptions{
		ID:                       in.RunID,
		TaskQueue:                g.taskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	run, err := g.tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		return StartedRun{}, fmt.Errorf("start course run: %w", err)
	}
	return StartedRun{RunID: run.GetID(), ExecutionID: run.GetRunID()}, nil
}

func (g *Gateway) Status(ctx context.Context, runID string) (runstate.Snapshot, error) {
	val, err := g.tc.QueryWorkflow(ctx, runID, "", QueryStatus)
	if err != nil {
		return runstate.Snapshot{}, notFound(err)
	}
	var snap runstate.Snapshot
	if err := val.Get(&snap); err != nil {
		return runstate.Snapshot{}, fmt.Errorf("decode status: %w", err)
	}
	return snap, nil
}

// Approve records the decision. Validator rejections come back wrapped in
// ErrApprovalRejected with the reason attached.
func (g *Gateway) Approve(ctx context.Context, runID string, req ApprovalInput) (ApprovalAck, error) {
	handle, err := g.tc.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   runID,
		UpdateName:   UpdateApproveOutline,
		Args:         []interface{}{req},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return ApprovalAck{}, approvalFailure(err)
	}
	var ack ApprovalAck
	if err := handle.Get(ctx, &ack); err != nil {
		return ApprovalAck{}, approvalFailure(err)
	}
	return ack, nil
}

// Await blocks until the run closes. A failed run returns the workflow's
// terminal error, which pipelineerr can classify.
func (g *Gateway) Await(ctx context.Context, runID string) (RunResult, error) {
	var res RunResult
	if err := g.tc.GetWorkflow(ctx, runID, "").Get(ctx, &res); err != nil {
		return RunResult{}, notFound(err)
	}
	return res, nil
}

func approvalFailure(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case TypeApprovalAlreadyRecorded, TypeApprovalNotAwaiting:
			return fmt.Errorf("%w: %s", ErrApprovalRejected, appErr.Message())
		}
	}
	return notFound(err)
}

func notFound(err error) error {
	var nf *serviceerror.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, nf.Error())
	}
	return err
}
