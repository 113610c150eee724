package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
)

func TestAttachTraceContextKeepsInboundIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/t", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.TraceID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("X-Trace-Id", "trace-abc")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc", rec.Body.String())
	assert.Equal(t, "trace-abc", rec.Header().Get("X-Trace-Id"))
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Trace-Id"))
}

func TestAttachTraceContextTagsRunID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var got []interface{}
	r.GET("/api/course-runs/:id", func(c *gin.Context) {
		got = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/healthcheck", func(c *gin.Context) {
		got = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/course-runs/run-9", nil)
	req.Header.Set("X-Trace-Id", "trace-abc")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "run-9", rec.Header().Get("X-Run-Id"))
	assert.Equal(t, []interface{}{"trace_id", "trace-abc", "request_id", "req-1", "run_id", "run-9"}, got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Empty(t, rec.Header().Get("X-Run-Id"))
	assert.Len(t, got, 4)
}
