package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
	"github.com/yungbote/coursegen-backend/internal/services"
)

const sseHeartbeat = 15 * time.Second

type CourseRunHandler struct {
	log  *logger.Logger
	runs services.CourseGenerationService
	bus  bus.Bus
}

// NewCourseRunHandler wires the run endpoints. b may be nil, in which case
// the event stream endpoint answers 404.
func NewCourseRunHandler(log *logger.Logger, runs services.CourseGenerationService, b bus.Bus) *CourseRunHandler {
	return &CourseRunHandler{log: log.With("handler", "CourseRunHandler"), runs: runs, bus: b}
}

type startRunResponse struct {
	RunID string `json:"run_id"`
}

type runStatusResponse struct {
	RunID        string          `json:"run_id"`
	Status       runstate.Status `json:"status"`
	Outline      any             `json:"outline"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func statusResponse(snap runstate.Snapshot) runStatusResponse {
	out := runStatusResponse{RunID: snap.RunID, Status: snap.Status, Outline: snap.Outline}
	if snap.Failure != nil {
		out.ErrorKind = snap.Failure.Kind
		out.ErrorMessage = snap.Failure.Message
	}
	return out
}

// POST /api/course-runs
func (h *CourseRunHandler) StartRun(c *gin.Context) {
	var req services.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	runID, err := h.runs.StartRun(c.Request.Context(), req)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, startRunResponse{RunID: runID})
}

// GET /api/course-runs/:id
func (h *CourseRunHandler) GetRun(c *gin.Context) {
	snap, err := h.runs.PollStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, statusResponse(snap))
}

// POST /api/course-runs/:id/approval
func (h *CourseRunHandler) SubmitApproval(c *gin.Context) {
	var req services.SubmitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.RequesterID != "" {
		req.RequesterID = rd.RequesterID
	}
	out, err := h.runs.SubmitApproval(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/course-runs/:id/events streams status updates as server-sent
// events until the run reaches a terminal status or the client leaves.
func (h *CourseRunHandler) StreamRun(c *gin.Context) {
	if h.bus == nil {
		response.RespondError(c, http.StatusNotFound, "events_unavailable", errors.New("run events are not enabled"))
		return
	}
	runID := strings.TrimSpace(c.Param("id"))
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan realtime.RunUpdate, 16)
	err := h.bus.StartForwarder(ctx, func(m realtime.RunUpdate) {
		if m.RunID != runID {
			return
		}
		select {
		case updates <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		h.log.Warn("run event subscribe failed", "run_id", runID, "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "events_unavailable", err)
		return
	}

	snap, err := h.runs.PollStatus(ctx, runID)
	if err != nil {
		h.respond(c, err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	last := snap
	if !writeEvent(w, snap) || snap.Status.Terminal() {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			w.Flush()
		case m := <-updates:
			if !m.Snapshot.Supersedes(last) {
				continue
			}
			last = m.Snapshot
			if !writeEvent(w, m.Snapshot) || m.Snapshot.Status.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w gin.ResponseWriter, snap runstate.Snapshot) bool {
	raw, err := json.Marshal(statusResponse(snap))
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", raw); err != nil {
		return false
	}
	w.Flush()
	return true
}

func (h *CourseRunHandler) respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		response.RespondAPIError(c, apierr.BadRequest("invalid_request", err))
	case errors.Is(err, services.ErrRunNotFound):
		response.RespondAPIError(c, apierr.NotFound("run_not_found", err))
	case errors.Is(err, services.ErrApprovalConflict):
		response.RespondAPIError(c, apierr.Conflict("approval_conflict", err))
	default:
		fields := append([]interface{}{"path", c.FullPath(), "error", err}, ctxutil.LogFields(c.Request.Context())...)
		h.log.Warn("course run request failed", fields...)
		response.RespondFailure(c, err)
	}
}
