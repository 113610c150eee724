// Package statuscache keeps the last projected snapshot of each run so a
// status read can be answered without the workflow.
package statuscache

import (
	"context"
	"sync"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

type Cache interface {
	// Put stores snap when it supersedes the held snapshot: it comes from
	// another execution of the run, or has a higher Seq. It reports whether
	// snap was stored.
	Put(ctx context.Context, snap runstate.Snapshot) (bool, error)
	Get(ctx context.Context, runID string) (runstate.Snapshot, bool, error)
}

type memoryCache struct {
	mu   sync.RWMutex
	runs map[string]runstate.Snapshot
}

func NewMemory() Cache {
	return &memoryCache{runs: map[string]runstate.Snapshot{}}
}

func (c *memoryCache) Put(_ context.Context, snap runstate.Snapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.runs[snap.RunID]; ok && !snap.Supersedes(cur) {
		return false, nil
	}
	c.runs[snap.RunID] = snap
	return true, nil
}

func (c *memoryCache) Get(_ context.Context, runID string) (runstate.Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.runs[runID]
	return snap, ok, nil
}
