package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := clampBackoff(250*time.Millisecond, 2*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("unavailable should be retryable")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("permission denied should not be retryable")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
	if isRetryableRPC(errors.New("plain")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), logger.Nop(), Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	cfg := LoadConfig()
	if cfg.TaskQueue != "coursegen" || cfg.Namespace != "default" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Fatalf("dial timeout=%v", cfg.DialTimeout)
	}
}
