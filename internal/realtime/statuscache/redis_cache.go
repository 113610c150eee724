package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
)

// putIfNewer writes when ARGV[1] names another execution than the stored
// one, or ARGV[2] is above the stored seq. Mirrors runstate.Snapshot.Supersedes.
var putIfNewer = goredis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'exec', 'seq')
local exec = cur[1] or ''
if cur[2] and (ARGV[1] == '' or exec == ARGV[1]) and tonumber(cur[2]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], 'exec', ARGV[1], 'seq', ARGV[2], 'snapshot', ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

type redisCache struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb goredis.UniversalClient, prefix string, ttl time.Duration) Cache {
	if prefix == "" {
		prefix = "coursegen:run:"
	}
	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisCache) key(runID string) string { return c.prefix + runID }

func (c *redisCache) Put(ctx context.Context, snap runstate.Snapshot) (bool, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return false, err
	}
	n, err := putIfNewer.Run(ctx, c.rdb, []string{c.key(snap.RunID)}, snap.ExecutionID, snap.Seq, raw, int64(c.ttl/time.Second)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *redisCache) Get(ctx context.Context, runID string) (runstate.Snapshot, bool, error) {
	raw, err := c.rdb.HGet(ctx, c.key(runID), "snapshot").Bytes()
	if errors.Is(err, goredis.Nil) {
		return runstate.Snapshot{}, false, nil
	}
	if err != nil {
		return runstate.Snapshot{}, false, err
	}
	var snap runstate.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return runstate.Snapshot{}, false, err
	}
	return snap, true, nil
}
