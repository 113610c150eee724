package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Role     Role
	Clients  Clients
	Repos    repos.Repos
	Services Services
	Metrics  *observability.Metrics

	Server *apphttp.Server
	Worker *temporalworker.Runner

	shutdownOTel func(context.Context) error
}

func New(ctx context.Context, role Role) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("role", string(role))

	a := &App{Log: log, Cfg: cfg, Role: role}
	a.shutdownOTel = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	a.Metrics = observability.Init(log)

	clients, err := wireClients(ctx, log, cfg, role)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients
	a.Repos = repos.New(clients.DB, log)

	svc, err := wireServices(log, cfg, role, clients, a.Repos)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = svc

	if role.serves() {
		a.Server = wireServer(log, cfg, clients, svc, a.Metrics)
	}
	if role.executes() {
		w, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, svc.Activities)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Worker = w
	}
	return a, nil
}

// Run blocks until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
	}
	if a.Worker != nil {
		g.Go(func() error {
			if err := a.Worker.Start(gctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	}
	if a.Server != nil {
		g.Go(func() error {
			a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
			return a.Server.Run(gctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	a.Clients.Close()
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		_ = a.shutdownOTel(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
