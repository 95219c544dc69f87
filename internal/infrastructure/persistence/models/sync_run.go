package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// SyncCursor stores the watermark of an incremental job.
type SyncCursor struct {
	JobName   string    `gorm:"type:varchar(64);primaryKey"`
	Watermark time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncCursor) TableName() string {
	return "sync_cursors"
}

// SyncRun is the persistence model for erpsync.SyncRun.
type SyncRun struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Job        string            `gorm:"type:varchar(32);not null;index:idx_sync_runs_job_started,priority:1"`
	Status     string            `gorm:"type:varchar(16);not null"`
	DryRun     bool              `gorm:"not null"`
	Params     datatypes.JSONMap
	Report     datatypes.JSONMap
	ErrorKind  string            `gorm:"type:varchar(32)"`
	Error      string            `gorm:"type:text"`
	Requested  int               `gorm:"not null"`
	RowsRead   int               `gorm:"not null"`
	Inserted   int               `gorm:"not null"`
	Updated    int               `gorm:"not null"`
	Deleted    int               `gorm:"not null"`
	Failed     int               `gorm:"not null"`
	StartedAt  time.Time         `gorm:"not null;index:idx_sync_runs_job_started,priority:2,sort:desc"`
	FinishedAt *time.Time
}

// TableName returns the table name for GORM
func (SyncRun) TableName() string {
	return "sync_runs"
}

// FromDomain populates the model from a domain run.
func (m *SyncRun) FromDomain(r *erpsync.SyncRun) {
	m.ID = r.ID
	m.Job = r.Job
	m.Status = string(r.Status)
	m.DryRun = r.DryRun
	m.Params = datatypes.JSONMap(r.Params)
	m.Report = datatypes.JSONMap(r.Report)
	m.ErrorKind = string(r.ErrorKind)
	m.Error = r.Error
	m.Requested = r.Requested
	m.RowsRead = r.RowsRead
	m.Inserted = r.Inserted
	m.Updated = r.Updated
	m.Deleted = r.Deleted
	m.Failed = r.Failed
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
}

// ToDomain converts the model to a domain run.
func (m *SyncRun) ToDomain() *erpsync.SyncRun {
	return &erpsync.SyncRun{
		ID:         m.ID,
		Job:        m.Job,
		Status:     erpsync.RunStatus(m.Status),
		DryRun:     m.DryRun,
		Params:     map[string]any(m.Params),
		Report:     map[string]any(m.Report),
		ErrorKind:  erpsync.ErrorKind(m.ErrorKind),
		Error:      m.Error,
		Requested:  m.Requested,
		RowsRead:   m.RowsRead,
		Inserted:   m.Inserted,
		Updated:    m.Updated,
		Deleted:    m.Deleted,
		Failed:     m.Failed,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}
