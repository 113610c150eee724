package coursegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/yungbote/coursegen-backend/internal/coursegen/artifact"
	"github.com/yungbote/coursegen-backend/internal/coursegen/guardrail"
	"github.com/yungbote/coursegen-backend/internal/coursegen/normalize"
	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/coursegen/repair"
	"github.com/yungbote/coursegen-backend/internal/coursegen/schema"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
)

// Model is the slice of the LLM client the stages use.
type Model interface {
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, side guardrail.Side, text string) (guardrail.Verdict, error)
}

// EventSink receives every run transition the workflow projects.
type EventSink interface {
	Record(ctx context.Context, rec RunEventRecord) error
}

type Activities struct {
	Log    *logger.Logger
	Model  Model
	Gate   Classifier
	Sink   EventSink
	Policy Policy

	// beat records one heartbeat; nil means activity.RecordHeartbeat.
	beat func(ctx context.Context, details ...interface{})
}

const refusalReason = "This request can't be completed safely."

func (a *Activities) GenerateOutline(ctx context.Context, in OutlineInput) (out string, err error) {
	start := time.Now()
	log := a.activityLogger(ctx, in.RunID)
	defer func() { a.observe(ActivityGenerateOutline, start, err) }()

	if strings.TrimSpace(in.Language) == "" || strings.TrimSpace(in.Focus) == "" {
		return "", pipelineerr.ToTemporal(pipelineerr.Fatalf("outline: language and focus are required"))
	}

	stopHB := a.startHeartbeat(ctx, "outline")
	defer stopHB()

	request := describeRequest(in.Language, in.Focus, in.Notes, in.Profile)
	verdict, err := a.Gate.Classify(ctx, guardrail.SideInput, request)
	if err != nil {
		log.Warn("input guardrail unavailable", "error", err)
		return "", pipelineerr.ToTemporal(err)
	}
	if !verdict.Passed() {
		log.Info("input rejected", "axis", verdict.FailedAxis())
		return "", pipelineerr.ToTemporal(pipelineerr.Guardrail(verdict.Reason))
	}

	system, user := outlinePrompt(in)
	res, err := a.generate(ctx, a.Policy.Outline, schema.NameCurriculumOutlineV1, schema.CurriculumOutlineV1, system, user)
	if err != nil {
		log.Warn("outline generation failed", "error", err)
		return "", pipelineerr.ToTemporal(err)
	}
	text, err := normalize.ToJSON(res)
	if err != nil {
		return "", pipelineerr.ToTemporal(pipelineerr.Fatal(err))
	}
	log.Info("outline generated", "kind", res.Kind().String(), "bytes", len(text))
	return text, nil
}

func (a *Activities) GenerateCourse(ctx context.Context, in CourseInput) (out string, err error) {
	start := time.Now()
	log := a.activityLogger(ctx, in.RunID)
	defer func() { a.observe(ActivityGenerateCourse, start, err) }()

	if strings.TrimSpace(in.OutlineText) == "" {
		return "", pipelineerr.ToTemporal(pipelineerr.Fatalf("course: outline is empty"))
	}

	stopHB := a.startHeartbeat(ctx, "course")
	defer stopHB()

	system, user := coursePrompt(in)
	res, err := a.generate(ctx, a.Policy.Course, schema.NameFullCourseGenV1, schema.FullCourseGenV1, system, user)
	if err != nil {
		log.Warn("course generation failed", "error", err)
		return "", pipelineerr.ToTemporal(err)
	}
	text, err := normalize.ToJSON(res)
	if err != nil {
		return "", pipelineerr.ToTemporal(pipelineerr.Fatal(err))
	}

	verdict, err := a.Gate.Classify(ctx, guardrail.SideOutput, text)
	if err != nil {
		log.Warn("output guardrail unavailable", "error", err)
		return "", pipelineerr.ToTemporal(err)
	}
	if !verdict.Passed() {
		log.Info("course rejected", "axis", verdict.FailedAxis())
		return "", pipelineerr.ToTemporal(pipelineerr.Guardrail(verdict.Reason))
	}

	text = lockCourse(text)
	log.Info("course generated", "kind", res.Kind().String(), "bytes", len(text))
	return text, nil
}

// RecordRunEvent hands one transition to the sink. It runs as a local activity.
func (a *Activities) RecordRunEvent(ctx context.Context, rec RunEventRecord) error {
	observability.Current().IncTransition(string(rec.Snapshot.Status))
	if a.Sink == nil {
		return nil
	}
	if err := a.Sink.Record(ctx, rec); err != nil {
		return fmt.Errorf("record run event %s#%d: %w", rec.RunID, rec.Event.Seq, err)
	}
	return nil
}

// generate asks the model for one stage and tags the answer for the
// normalizer. JSON that fails to parse is repaired before it is tagged.
func (a *Activities) generate(
	ctx context.Context,
	stage StagePolicy,
	schemaName string,
	loadSchema func() (map[string]any, error),
	system, user string,
) (normalize.Result, error) {
	if stage.Format == FormatText {
		out, err := a.Model.GenerateText(ctx, system, user)
		if err != nil {
			return normalize.Result{}, modelError(err)
		}
		return normalize.FromString(out), nil
	}

	s, err := loadSchema()
	if err != nil {
		return normalize.Result{}, pipelineerr.Fatal(err)
	}
	obj, err := a.Model.GenerateJSON(ctx, system, user, schemaName, s)
	if err != nil {
		var malformed *openai.MalformedJSONError
		if errors.As(err, &malformed) {
			fixed := repair.Repair(malformed.Text)
			observability.Current().ObserveRepair(schemaName, repairOutcome(fixed))
			return normalize.FromString(fixed.Text), nil
		}
		return normalize.Result{}, modelError(err)
	}
	return normalize.Mapping(obj), nil
}

func modelError(err error) error {
	var refusal *openai.RefusalError
	if errors.As(err, &refusal) {
		return pipelineerr.Guardrail(refusalReason)
	}
	return err
}

func repairOutcome(a repair.Artifact) string {
	if a.NeedsRepair {
		return "repaired"
	}
	return "clean"
}

// lockCourse applies the default lock state. Text that is not a JSON object
// is returned unchanged and left to validation downstream.
func lockCourse(text string) string {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return text
	}
	artifact.ApplyDefaultLocksMap(doc)
	b, err := json.Marshal(doc)
	if err != nil {
		return text
	}
	return string(b)
}

func (a *Activities) activityLogger(ctx context.Context, runID string) *logger.Logger {
	log := a.Log
	if log == nil {
		log = logger.Nop()
	}
	info := activity.GetInfo(ctx)
	return log.With("run_id", runID, "activity", info.ActivityType.Name, "attempt", info.Attempt)
}

func (a *Activities) observe(name string, start time.Time, err error) {
	status := "succeeded"
	if err != nil {
		status = string(pipelineerr.Classify(err))
	}
	observability.Current().ObserveActivity(name, status, time.Since(start))
}

// startHeartbeat keeps the activity alive while the model call blocks. The
// returned stop func waits until no further heartbeat can be recorded.
func (a *Activities) startHeartbeat(ctx context.Context, stage string) func() {
	interval := a.Policy.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultPolicy().HeartbeatInterval
	}
	beat := a.beat
	if beat == nil {
		beat = activity.RecordHeartbeat
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				beat(ctx, stage)
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}
