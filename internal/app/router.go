package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, clients Clients, svc Services, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring router...")
	auth := httpMW.NewAuthMiddleware(log, cfg.Auth)
	if !auth.Enabled() {
		log.Warn("JWT_SECRET not set; API accepts anonymous requests")
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		ServiceName:      cfg.ServiceName,
		Metrics:          metrics,
		AuthMiddleware:   auth,
		CourseRunHandler: httpH.NewCourseRunHandler(log, svc.Runs, svc.Bus),
		HealthHandler:    httpH.NewHealthHandler(readinessChecks(clients)...),
	})
}

// readinessChecks covers the dependencies the API cannot answer without.
func readinessChecks(c Clients) []httpH.DependencyCheck {
	var checks []httpH.DependencyCheck
	if c.DB != nil {
		checks = append(checks, httpH.DependencyCheck{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if c.Redis != nil {
		checks = append(checks, httpH.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}})
	}
	if c.Temporal != nil {
		checks = append(checks, httpH.DependencyCheck{Name: "temporal", Check: func(ctx context.Context) error {
			if _, err := c.Temporal.CheckHealth(ctx, &temporalsdkclient.CheckHealthRequest{}); err != nil {
				return fmt.Errorf("temporal health: %w", err)
			}
			return nil
		}})
	}
	return checks
}
