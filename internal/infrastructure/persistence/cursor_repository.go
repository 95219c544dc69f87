package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/persistence/models"
)

// GormCursorRepository implements erpsync.CursorRepository.
type GormCursorRepository struct {
	db *gorm.DB
}

// NewGormCursorRepository creates a new cursor repository
func NewGormCursorRepository(db *gorm.DB) *GormCursorRepository {
	return &GormCursorRepository{db: db}
}

// Get returns the watermark stored for job.
func (r *GormCursorRepository) Get(ctx context.Context, job string) (time.Time, bool, error) {
	var m models.SyncCursor
	err := r.db.WithContext(ctx).Where("job_name = ?", job).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, erpsync.NewPersistenceError("load cursor", err)
	}
	return m.Watermark.UTC(), true, nil
}

// Save upserts the watermark for job.
func (r *GormCursorRepository) Save(ctx context.Context, job string, watermark time.Time) error {
	m := models.SyncCursor{JobName: job, Watermark: watermark.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"watermark", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return erpsync.NewPersistenceError("save cursor", err)
	}
	return nil
}

var _ erpsync.CursorRepository = (*GormCursorRepository)(nil)
