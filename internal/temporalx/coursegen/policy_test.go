package coursegen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/coursegen/pipelineerr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestEmbeddedPolicyMatchesDefaults(t *testing.T) {
	p, err := ParsePolicy(policyYAML)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestDefaultPolicyValues(t *testing.T) {
	p := DefaultPolicy()
	assert.EqualValues(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, 2.0, p.BackoffCoefficient)
	assert.Equal(t, 10*time.Second, p.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, p.HeartbeatTimeout)
	assert.Equal(t, 10*time.Minute, p.Outline.StartToClose)
	assert.Equal(t, 15*time.Minute, p.Course.StartToClose)

	opts := p.activityOptions(p.Course)
	assert.Equal(t, 15*time.Minute, opts.StartToCloseTimeout)
	assert.ElementsMatch(t, pipelineerr.NonRetryableTypes(), opts.RetryPolicy.NonRetryableErrorTypes)
}

func TestParsePolicyOverlaysDefaults(t *testing.T) {
	p, err := ParsePolicy([]byte("course:\n  start_to_close: 20m\n"))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, p.Course.StartToClose)
	assert.Equal(t, FormatJSONSchema, p.Course.Format)
	assert.Equal(t, 10*time.Minute, p.Outline.StartToClose)
}

func TestParsePolicyRejectsInvalid(t *testing.T) {
	_, err := ParsePolicy([]byte("max_attempts: 0\nheartbeat_timeout: 5s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
	assert.Contains(t, err.Error(), "heartbeat_timeout")

	_, err = ParsePolicy([]byte("outline: [1, 2"))
	require.Error(t, err)
}

func TestLoadPolicyFallsBackOnBadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outline:\n  format: xml\n"), 0o600))
	t.Setenv("COURSEGEN_POLICY_YAML", path)
	assert.Equal(t, DefaultPolicy(), LoadPolicy(logger.Nop()))

	require.NoError(t, os.WriteFile(path, []byte("max_attempts: 5\n"), 0o600))
	assert.EqualValues(t, 5, LoadPolicy(logger.Nop()).MaxAttempts)
}
