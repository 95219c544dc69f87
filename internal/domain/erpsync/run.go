package erpsync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job names, also used as cursor keys and metric attributes.
const (
	JobCustomers   = "customers"
	JobETAs        = "etas"
	JobInstruments = "instruments"
	JobIdentifiers = "identifiers"
)

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusFailed  RunStatus = "FAILED"
)

// SyncRun is the audit record of one triggered job.
type SyncRun struct {
	ID         uuid.UUID
	Job        string
	Status     RunStatus
	DryRun     bool
	Params     map[string]any
	Report     map[string]any
	ErrorKind  ErrorKind
	Error      string
	Requested  int
	RowsRead   int
	Inserted   int
	Updated    int
	Deleted    int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewSyncRun creates a running run for job.
func NewSyncRun(job string, dryRun bool, params map[string]any) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		Job:       job,
		Status:    RunStatusRunning,
		DryRun:    dryRun,
		Params:    params,
		StartedAt: time.Now().UTC(),
	}
}

// Complete records the report counts. A run with failed entities but some
// progress is PARTIAL; a run where every requested entity failed is FAILED.
func (r *SyncRun) Complete(report *JobReport) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.apply(report)

	switch {
	case report.Failed == 0:
		r.Status = RunStatusSuccess
	case report.Processed > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}
}

// Fail marks the run failed, keeping any partial counts.
func (r *SyncRun) Fail(report *JobReport, err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = RunStatusFailed
	r.ErrorKind = KindOf(err)
	if err != nil {
		r.Error = err.Error()
	}
	if report != nil {
		r.apply(report)
	}
}

// Duration is the wall time of a finished run.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *SyncRun) apply(report *JobReport) {
	r.Requested = report.Requested
	r.RowsRead = report.RowsRead
	r.Inserted = report.Inserted
	r.Updated = report.Updated
	r.Deleted = report.SoftDeleted
	r.Failed = report.Failed
	r.Report = report.Context
}

// RunRepository persists sync runs.
type RunRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	Save(ctx context.Context, run *SyncRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRun, error)
	ListRecent(ctx context.Context, job string, limit int) ([]SyncRun, error)
}
