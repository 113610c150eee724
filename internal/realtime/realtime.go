// Package realtime carries run status updates between the worker that
// produces them and API processes that serve them.
package realtime

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// RunUpdate is one projected transition of a run.
type RunUpdate struct {
	RunID    string            `json:"run_id"`
	Kind     string            `json:"kind"`
	Seq      int               `json:"seq"`
	Snapshot runstate.Snapshot `json:"snapshot"`
	At       time.Time         `json:"at"`
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Channel   string
	KeyPrefix string
	StatusTTL time.Duration
}

func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      envutil.String("REDIS_ADDR", ""),
		Password:  envutil.String("REDIS_PASSWORD", ""),
		DB:        envutil.Int("REDIS_DB", 0),
		Channel:   envutil.String("REDIS_CHANNEL", "coursegen:runs"),
		KeyPrefix: envutil.String("REDIS_KEY_PREFIX", "coursegen:run:"),
		StatusTTL: envutil.Seconds("REDIS_STATUS_TTL_SECONDS", 7*24*time.Hour),
	}
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// NewRedisClient connects and pings. Callers own the returned client.
func NewRedisClient(ctx context.Context, log *logger.Logger, cfg RedisConfig) (*goredis.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}
