package app

import (
	"time"

	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/openai"
	"github.com/yungbote/coursegen-backend/internal/realtime"
	"github.com/yungbote/coursegen-backend/internal/temporalx"
)

// Role selects which halves of the process run.
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
	RoleAll    Role = "all"
)

func (r Role) serves() bool { return r == RoleAPI || r == RoleAll }
func (r Role) executes() bool { return r == RoleWorker || r == RoleAll }

type Config struct {
	LogMode     string
	ServiceName string
	Environment string
	Version     string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	PollTimeout     time.Duration

	// DBDriver is "postgres" or "sqlite"; SQLiteDSN is only read for sqlite.
	DBDriver  string
	SQLiteDSN string

	Auth     httpMW.AuthConfig
	Temporal temporalx.Config
	Redis    realtime.RedisConfig
	OpenAI   openai.Config
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursegen"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		HTTPAddr:        ":" + envutil.String("PORT", "8080"),
		ShutdownTimeout: envutil.Seconds("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		PollTimeout:     envutil.Millis("COURSEGEN_POLL_TIMEOUT_MS", 2*time.Second),

		DBDriver:  envutil.String("DB_DRIVER", "postgres"),
		SQLiteDSN: envutil.String("SQLITE_DSN", "file:coursegen.db?cache=shared"),

		Auth:     httpMW.LoadAuthConfig(),
		Temporal: temporalx.LoadConfig(),
		Redis:    realtime.LoadRedisConfig(),
		OpenAI:   openai.LoadConfig(),
	}
}
