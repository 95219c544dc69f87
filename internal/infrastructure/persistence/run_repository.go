package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/persistence/models"
)

const maxRunListLimit = 200

// GormRunRepository implements erpsync.RunRepository.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new sync run repository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Create inserts a new run.
func (r *GormRunRepository) Create(ctx context.Context, run *erpsync.SyncRun) error {
	var m models.SyncRun
	m.FromDomain(run)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return erpsync.NewPersistenceError("create sync run", err)
	}
	return nil
}

// Save updates an existing run.
func (r *GormRunRepository) Save(ctx context.Context, run *erpsync.SyncRun) error {
	var m models.SyncRun
	m.FromDomain(run)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return erpsync.NewPersistenceError("save sync run", err)
	}
	return nil
}

// FindByID returns a run or a not_found error.
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*erpsync.SyncRun, error) {
	var m models.SyncRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, erpsync.NewNotFoundError("sync run")
	}
	if err != nil {
		return nil, erpsync.NewPersistenceError("find sync run", err)
	}
	return m.ToDomain(), nil
}

// ListRecent returns the newest runs, optionally for one job.
func (r *GormRunRepository) ListRecent(ctx context.Context, job string, limit int) ([]erpsync.SyncRun, error) {
	if limit <= 0 || limit > maxRunListLimit {
		limit = maxRunListLimit
	}
	q := r.db.WithContext(ctx).Model(&models.SyncRun{})
	if job != "" {
		q = q.Where("job = ?", job)
	}
	var rows []models.SyncRun
	if err := q.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, erpsync.NewPersistenceError("list sync runs", err)
	}
	out := make([]erpsync.SyncRun, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ erpsync.RunRepository = (*GormRunRepository)(nil)
