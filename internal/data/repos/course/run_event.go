package course

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type RunEventRepo interface {
	// Append stores e unless an event with the same (run_id, execution_id,
	// seq) exists. It reports whether a row was written.
	Append(ctx context.Context, tx *gorm.DB, e *types.CourseRunEvent) (bool, error)
	// ListByRunID returns the events of the run's most recent execution in order.
	ListByRunID(ctx context.Context, tx *gorm.DB, runID string) ([]*types.CourseRunEvent, error)
	// Latest returns the newest event across every execution of the run.
	Latest(ctx context.Context, tx *gorm.DB, runID string) (*types.CourseRunEvent, error)
}

type runEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunEventRepo(db *gorm.DB, baseLog *logger.Logger) RunEventRepo {
	return &runEventRepo{db: db, log: baseLog.With("repo", "RunEventRepo")}
}

func (r *runEventRepo) Append(ctx context.Context, tx *gorm.DB, e *types.CourseRunEvent) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if e == nil || e.RunID == "" || e.Seq < 1 {
		return false, fmt.Errorf("run event needs run id and seq")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "execution_id"}, {Name: "seq"}},
			DoNothing: true,
		}).
		Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *runEventRepo) ListByRunID(ctx context.Context, tx *gorm.DB, runID string) ([]*types.CourseRunEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CourseRunEvent
	if runID == "" {
		return out, nil
	}
	latest, err := r.Latest(ctx, transaction, runID)
	if err != nil || latest == nil {
		return out, err
	}
	if err := transaction.WithContext(ctx).
		Where("run_id = ? AND execution_id = ?", runID, latest.ExecutionID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *runEventRepo) Latest(ctx context.Context, tx *gorm.DB, runID string) (*types.CourseRunEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if runID == "" {
		return nil, nil
	}
	var e types.CourseRunEvent
	err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("at DESC").
		Order("seq DESC").
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}
