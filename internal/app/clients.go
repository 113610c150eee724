package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/db"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/realtime"
	"github.com/yungbote/coursegen-backend/internal/temporalx"
)

type Clients struct {
	DB       *gorm.DB
	Redis    *goredis.Client
	Temporal temporalsdkclient.Client
	// Model is only set for roles that execute activities.
	Model openai.Client

	closeDB func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, role Role) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Database
	switch cfg.DBDriver {
	case "sqlite":
		gdb, err := db.NewSQLite(cfg.SQLiteDSN)
		if err != nil {
			return Clients{}, err
		}
		c.DB = gdb
	default:
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init postgres: %w", err)
		}
		c.DB = pg.DB()
		c.closeDB = pg.Close
	}
	if err := db.AutoMigrateAll(c.DB); err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("automigrate: %w", err)
	}

	// Redis
	if cfg.Redis.Enabled() {
		rdb, err := realtime.NewRedisClient(ctx, log, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR not set; status cache and run events stay in process")
	}

	// Temporal
	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	c.Temporal = tc

	// Model
	if role.executes() {
		model, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.Model = model
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.closeDB != nil {
		_ = c.closeDB()
	}
}
