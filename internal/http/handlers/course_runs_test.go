package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type fakeRuns struct {
	start   func(req services.StartRunRequest) (string, error)
	poll    func(runID string) (runstate.Snapshot, error)
	approve func(runID string, req services.SubmitApprovalRequest) (*services.ApprovalOutcome, error)
}

func (f *fakeRuns) StartRun(ctx context.Context, req services.StartRunRequest) (string, error) {
	return f.start(req)
}

func (f *fakeRuns) PollStatus(ctx context.Context, runID string) (runstate.Snapshot, error) {
	return f.poll(runID)
}

func (f *fakeRuns) SubmitApproval(ctx context.Context, runID string, req services.SubmitApprovalRequest) (*services.ApprovalOutcome, error) {
	return f.approve(runID, req)
}

func newTestRouter(runs services.CourseGenerationService, b bus.Bus, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCourseRunHandler(logger.Nop(), runs, b)
	r := gin.New()
	r.Use(mw...)
	r.POST("/api/course-runs", h.StartRun)
	r.GET("/api/course-runs/:id", h.GetRun)
	r.POST("/api/course-runs/:id/approval", h.SubmitApproval)
	r.GET("/api/course-runs/:id/events", h.StreamRun)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStartRun(t *testing.T) {
	var got services.StartRunRequest
	runs := &fakeRuns{start: func(req services.StartRunRequest) (string, error) {
		got = req
		if req.Language == "" || req.Focus == "" {
			return "", fmt.Errorf("%w: language and focus are required", services.ErrInvalidArgument)
		}
		return "run-1", nil
	}}
	r := newTestRouter(runs, nil)

	rec := do(r, http.MethodPost, "/api/course-runs", `{"language":"Go","focus":"channels","profile":{"userId":"u1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", decode(t, rec)["run_id"])
	assert.Equal(t, "channels", got.Focus)
	assert.Equal(t, "u1", got.Profile.UserID)

	rec = do(r, http.MethodPost, "/api/course-runs", `{"language":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/course-runs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	runs := &fakeRuns{poll: func(runID string) (runstate.Snapshot, error) {
		switch runID {
		case "generating":
			return runstate.Snapshot{RunID: runID, Status: runstate.StatusGeneratingOutline}, nil
		case "ready":
			return runstate.Snapshot{RunID: runID, Status: runstate.StatusOutlineReady, Outline: map[string]any{"title": "Go"}}, nil
		case "failed":
			return runstate.Snapshot{RunID: runID, Status: runstate.StatusFailed, Failure: &runstate.Failure{Kind: "guardrail", Message: "Not a programming topic."}}, nil
		}
		return runstate.Snapshot{}, fmt.Errorf("%w: %s", services.ErrRunNotFound, runID)
	}}
	r := newTestRouter(runs, nil)

	body := decode(t, do(r, http.MethodGet, "/api/course-runs/generating", ""))
	assert.Equal(t, "GENERATING_OUTLINE", body["status"])
	v, ok := body["outline"]
	assert.True(t, ok)
	assert.Nil(t, v)

	body = decode(t, do(r, http.MethodGet, "/api/course-runs/ready", ""))
	assert.Equal(t, "OUTLINE_READY", body["status"])
	assert.Equal(t, map[string]any{"title": "Go"}, body["outline"])

	body = decode(t, do(r, http.MethodGet, "/api/course-runs/failed", ""))
	assert.Equal(t, "guardrail", body["error_kind"])
	assert.Equal(t, "Not a programming topic.", body["error_message"])

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/course-runs/nope", "").Code)
}

func TestSubmitApprovalOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		out        *services.ApprovalOutcome
		err        error
		wantStatus int
		want       map[string]any
	}{
		{
			name:       "completed",
			out:        &services.ApprovalOutcome{Status: services.OutcomeCompleted, CourseID: "c-1"},
			wantStatus: http.StatusOK,
			want:       map[string]any{"status": "completed", "course_id": "c-1"},
		},
		{
			name:       "rejected",
			out:        &services.ApprovalOutcome{Status: services.OutcomeRejected, Message: "Course generation cancelled by user"},
			wantStatus: http.StatusOK,
			want:       map[string]any{"status": "rejected", "message": "Course generation cancelled by user"},
		},
		{
			name:       "guardrail",
			err:        pipelineerr.Guardrail("The generated course contained unsafe content."),
			wantStatus: http.StatusOK,
			want:       map[string]any{"status": "failure", "error_kind": "guardrail", "error_message": "The generated course contained unsafe content."},
		},
		{
			name:       "schema",
			err:        pipelineerr.Schema("course is missing modules", nil),
			wantStatus: http.StatusUnprocessableEntity,
			want:       map[string]any{"status": "failure", "error_kind": "schema", "error_message": "course is missing modules"},
		},
		{
			name:       "fatal",
			err:        fmt.Errorf("upstream exploded"),
			wantStatus: http.StatusBadGateway,
			want:       map[string]any{"status": "failure", "error_kind": "fatal", "error_message": pipelineerr.GenericMessage},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			runs := &fakeRuns{approve: func(string, services.SubmitApprovalRequest) (*services.ApprovalOutcome, error) {
				return tc.out, tc.err
			}}
			rec := do(newTestRouter(runs, nil), http.MethodPost, "/api/course-runs/r1/approval", `{"approved":true}`)
			require.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.want, decode(t, rec))
		})
	}
}

func TestSubmitApprovalErrors(t *testing.T) {
	var err error
	runs := &fakeRuns{approve: func(string, services.SubmitApprovalRequest) (*services.ApprovalOutcome, error) {
		return nil, err
	}}
	r := newTestRouter(runs, nil)

	err = fmt.Errorf("%w: already recorded", services.ErrApprovalConflict)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/course-runs/r1/approval", `{"approved":true}`).Code)

	err = fmt.Errorf("%w: r1", services.ErrRunNotFound)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/course-runs/r1/approval", `{"approved":true}`).Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/course-runs/r1/approval", `{"approved":"yes"}`).Code)
}

func TestSubmitApprovalRequiresDecision(t *testing.T) {
	calls := 0
	runs := &fakeRuns{approve: func(string, services.SubmitApprovalRequest) (*services.ApprovalOutcome, error) {
		calls++
		return &services.ApprovalOutcome{Status: services.OutcomeRejected}, nil
	}}
	r := newTestRouter(runs, nil)

	for _, body := range []string{`{}`, `{"approve":true}`, `{"requester_id":"u1"}`} {
		rec := do(r, http.MethodPost, "/api/course-runs/r1/approval", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, calls)
}

func TestSubmitApprovalPrefersAuthenticatedRequester(t *testing.T) {
	var got services.SubmitApprovalRequest
	runs := &fakeRuns{approve: func(_ string, req services.SubmitApprovalRequest) (*services.ApprovalOutcome, error) {
		got = req
		return &services.ApprovalOutcome{Status: services.OutcomeRejected, Message: "x"}, nil
	}}
	asReviewer := func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{RequesterID: "reviewer"}))
		c.Next()
	}

	do(newTestRouter(runs, nil), http.MethodPost, "/api/course-runs/r1/approval", `{"approved":false,"requester_id":"body"}`)
	assert.Equal(t, "body", got.RequesterID)

	do(newTestRouter(runs, nil, asReviewer), http.MethodPost, "/api/course-runs/r1/approval", `{"approved":false,"requester_id":"body"}`)
	assert.Equal(t, "reviewer", got.RequesterID)
	require.NotNil(t, got.Approved)
	assert.False(t, *got.Approved)
}

func TestStreamRunEndsOnTerminalStatus(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	runs := &fakeRuns{poll: func(runID string) (runstate.Snapshot, error) {
		return runstate.Snapshot{RunID: runID, Status: runstate.StatusGeneratingOutline, Seq: 1}, nil
	}}
	r := newTestRouter(runs, b)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(r, http.MethodGet, "/api/course-runs/r1/events", "") }()

	completed := realtime.RunUpdate{RunID: "r1", Snapshot: runstate.Snapshot{RunID: "r1", Status: runstate.StatusCompleted, Seq: 4}}
	other := realtime.RunUpdate{RunID: "r2", Snapshot: runstate.Snapshot{RunID: "r2", Status: runstate.StatusFailed, Seq: 9}}
	deadline := time.After(5 * time.Second)
	var rec *httptest.ResponseRecorder
	for rec == nil {
		_ = b.Publish(context.Background(), other)
		_ = b.Publish(context.Background(), completed)
		select {
		case rec = <-done:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("stream did not end")
		}
	}

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: status"))
	assert.Contains(t, body, `"status":"GENERATING_OUTLINE"`)
	assert.Contains(t, body, `"status":"COMPLETED"`)
	assert.NotContains(t, body, `"run_id":"r2"`)
}

func TestStreamRunWithoutBus(t *testing.T) {
	rec := do(newTestRouter(&fakeRuns{}, nil), http.MethodGet, "/api/course-runs/r1/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
