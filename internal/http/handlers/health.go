package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck reports whether one backing service answers.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []DependencyCheck
	timeout time.Duration
}

func NewHealthHandler(checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// HealthCheck is liveness only.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready runs every dependency check and answers 503 when any fails. A
// process can be live while Temporal or Postgres is still unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	out := readinessResponse{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for _, dc := range h.checks {
		if err := dc.Check(ctx); err != nil {
			out.Checks[dc.Name] = err.Error()
			out.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		out.Checks[dc.Name] = "ok"
	}
	c.JSON(code, out)
}
