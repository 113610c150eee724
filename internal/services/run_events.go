package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
	"github.com/yungbote/coursegen-backend/internal/realtime/statuscache"
	"github.com/yungbote/coursegen-backend/internal/temporalx/coursegen"
)

// RunEventProjector writes workflow transitions to the ledger, the status
// cache and the bus. Only a ledger failure is returned; the workflow retries
// it, and the unique (run_id, execution_id, seq) key makes the retry harmless.
type RunEventProjector struct {
	log    *logger.Logger
	events repos.RunEventRepo
	cache  statuscache.Cache
	bus    bus.Bus
}

func NewRunEventProjector(log *logger.Logger, events repos.RunEventRepo, cache statuscache.Cache, b bus.Bus) *RunEventProjector {
	return &RunEventProjector{log: log.With("service", "RunEventProjector"), events: events, cache: cache, bus: b}
}

var _ coursegen.EventSink = (*RunEventProjector)(nil)

func (p *RunEventProjector) Record(ctx context.Context, rec coursegen.RunEventRecord) error {
	if p.events != nil {
		data, err := json.Marshal(rec.Snapshot)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if _, err := p.events.Append(ctx, nil, &types.CourseRunEvent{
			RunID:       rec.RunID,
			ExecutionID: rec.ExecutionID,
			Seq:         rec.Event.Seq,
			Kind:        string(rec.Event.Kind),
			Status:      string(rec.Snapshot.Status),
			Message:     rec.Event.Message,
			Data:        datatypes.JSON(data),
			At:          rec.Event.At,
		}); err != nil {
			return err
		}
	}
	if p.cache != nil {
		if _, err := p.cache.Put(ctx, rec.Snapshot); err != nil {
			p.log.Warn("status cache write failed", "run_id", rec.RunID, "seq", rec.Event.Seq, "error", err)
		}
	}
	if p.bus != nil {
		if err := p.bus.Publish(ctx, realtime.RunUpdate{
			RunID:    rec.RunID,
			Kind:     string(rec.Event.Kind),
			Seq:      rec.Event.Seq,
			Snapshot: rec.Snapshot,
			At:       rec.Event.At,
		}); err != nil {
			p.log.Warn("run update publish failed", "run_id", rec.RunID, "seq", rec.Event.Seq, "error", err)
		}
	}
	return nil
}
