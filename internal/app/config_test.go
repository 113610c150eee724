package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("COURSEGEN_POLL_TIMEOUT_MS", "")

	cfg := LoadConfig()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Second, cfg.PollTimeout)
	assert.Equal(t, "coursegen", cfg.Temporal.TaskQueue)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("COURSEGEN_POLL_TIMEOUT_MS", "500")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 500*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleAPI.serves())
	assert.False(t, RoleAPI.executes())
	assert.True(t, RoleWorker.executes())
	assert.False(t, RoleWorker.serves())
	assert.True(t, RoleAll.serves() && RoleAll.executes())
}
