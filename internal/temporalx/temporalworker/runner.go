package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/temporalx"
	"github.com/yungbote/coursegen-backend/internal/temporalx/coursegen"
)

// Registrar is the part of worker.Worker that registration needs.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

type Runner struct {
	log  *logger.Logger
	cfg  temporalx.Config
	tc   temporalsdkclient.Client
	acts *coursegen.Activities
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, acts *coursegen.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if acts == nil || acts.Model == nil || acts.Gate == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{log: log, cfg: cfg, tc: tc, acts: acts}, nil
}

// Start polls the task queue until ctx is done. A worker that fails to start
// is retried with backoff for up to TEMPORAL_WORKER_START_MAX_WAIT_SECONDS.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60*time.Second)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		missingNamespace := errors.As(startErr, &nfe)
		if missingNamespace && cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, r.log, cfg)
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			if missingNamespace {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		if err := httpx.Sleep(ctx, cfg.BackoffFor(attempt)); err != nil {
			return err
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:      concurrency,
		MaxConcurrentLocalActivityExecutionSize: concurrency,
		MaxConcurrentWorkflowTaskExecutionSize:  concurrency,
	})
	Register(w, r.acts)
	return w
}

// Register binds the course generation workflow and its activities by name.
func Register(reg Registrar, acts *coursegen.Activities) {
	reg.RegisterWorkflowWithOptions(coursegen.Workflow, workflow.RegisterOptions{Name: coursegen.WorkflowName})
	reg.RegisterActivityWithOptions(acts.GenerateOutline, activity.RegisterOptions{Name: coursegen.ActivityGenerateOutline})
	reg.RegisterActivityWithOptions(acts.GenerateCourse, activity.RegisterOptions{Name: coursegen.ActivityGenerateCourse})
	reg.RegisterActivityWithOptions(acts.RecordRunEvent, activity.RegisterOptions{Name: coursegen.ActivityRecordRunEvent})
}
