package app

import (
	"github.com/yungbote/coursegen-backend/internal/coursegen/guardrail"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
	"github.com/yungbote/coursegen-backend/internal/realtime/statuscache"
	"github.com/yungbote/coursegen-backend/internal/services"
	"github.com/yungbote/coursegen-backend/internal/temporalx/coursegen"
)

type Services struct {
	Cache     statuscache.Cache
	Bus       bus.Bus
	Projector *services.RunEventProjector
	Gateway   *coursegen.Gateway
	Runs      services.CourseGenerationService
	// Activities is nil unless the process runs a worker.
	Activities *coursegen.Activities
}

func wireServices(log *logger.Logger, cfg Config, role Role, clients Clients, reposet repos.Repos) (Services, error) {
	log.Info("Wiring services...")
	policy := coursegen.LoadPolicy(log)

	var s Services
	if clients.Redis != nil {
		s.Cache = statuscache.NewRedis(clients.Redis, cfg.Redis.KeyPrefix, cfg.Redis.StatusTTL)
		b, err := bus.NewRedisBus(log, clients.Redis, cfg.Redis.Channel)
		if err != nil {
			return Services{}, err
		}
		s.Bus = b
	} else {
		s.Cache = statuscache.NewMemory()
		s.Bus = bus.NewMemoryBus()
	}

	s.Projector = services.NewRunEventProjector(log, reposet.RunEvents, s.Cache, s.Bus)
	s.Gateway = coursegen.NewGateway(clients.Temporal, cfg.Temporal.TaskQueue, policy)
	s.Runs = services.NewCourseGenerationService(log, s.Gateway, s.Cache, reposet.Course, reposet.RunEvents, cfg.PollTimeout)

	if role.executes() {
		s.Activities = &coursegen.Activities{
			Log:    log,
			Model:  clients.Model,
			Gate:   guardrail.NewGate(log, clients.Model, guardrail.Options{MaxChars: policy.GuardrailMaxChars}),
			Sink:   s.Projector,
			Policy: policy,
		}
	}
	return s, nil
}
