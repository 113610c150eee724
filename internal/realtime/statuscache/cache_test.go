package statuscache

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

func exercise(t *testing.T, c Cache, runID string) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, runID)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := c.Put(ctx, runstate.Snapshot{RunID: runID, Status: runstate.StatusOutlineReady, Seq: 2, Outline: map[string]any{"title": "Go"}})
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = c.Put(ctx, runstate.Snapshot{RunID: runID, Status: runstate.StatusGeneratingOutline, Seq: 1})
	require.NoError(t, err)
	assert.False(t, stored, "older snapshot must not overwrite")

	snap, ok, err := c.Get(ctx, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, runstate.StatusOutlineReady, snap.Status)
	assert.Equal(t, 2, snap.Seq)
	assert.Equal(t, "Go", snap.Outline.(map[string]any)["title"])

	// a restarted run id starts over at seq 1 under a new execution
	_, err = c.Put(ctx, runstate.Snapshot{RunID: runID, ExecutionID: "exec-a", Status: runstate.StatusFailed, Seq: 3})
	require.NoError(t, err)
	stored, err = c.Put(ctx, runstate.Snapshot{RunID: runID, ExecutionID: "exec-b", Status: runstate.StatusGeneratingOutline, Seq: 1})
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = c.Put(ctx, runstate.Snapshot{RunID: runID, ExecutionID: "exec-b", Status: runstate.StatusGeneratingOutline, Seq: 1})
	require.NoError(t, err)
	assert.False(t, stored)

	snap, ok, err = c.Get(ctx, runID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "exec-b", snap.ExecutionID)
	assert.Equal(t, runstate.StatusGeneratingOutline, snap.Status)
}

func TestMemoryCacheKeepsNewest(t *testing.T) {
	exercise(t, NewMemory(), "run-1")
}

func TestRedisCacheKeepsNewest(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	runID := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = rdb.Del(context.Background(), "coursegen:test:"+runID).Err() })
	exercise(t, NewRedis(rdb, "coursegen:test:", time.Minute), runID)
}
