package erpsync

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/logger"
	"github.com/erp/portalsync/internal/infrastructure/telemetry"
)

// JobObserver is notified when a run finishes, successfully or not.
type JobObserver interface {
	JobFinished(ctx context.Context, run *erpsync.SyncRun, report *erpsync.JobReport)
}

// SyncService triggers jobs and keeps the sync_runs audit trail.
type SyncService struct {
	jobs     map[string]Job
	runs     erpsync.RunRepository
	archive  erpsync.Archive
	observer JobObserver
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

// ServiceOption configures a SyncService.
type ServiceOption func(*SyncService)

func WithArchive(a erpsync.Archive) ServiceOption {
	return func(s *SyncService) { s.archive = a }
}

func WithObserver(o JobObserver) ServiceOption {
	return func(s *SyncService) { s.observer = o }
}

// WithJobTimeout bounds every run in addition to the caller's deadline.
func WithJobTimeout(d time.Duration) ServiceOption {
	return func(s *SyncService) { s.timeout = d }
}

func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *SyncService) { s.logger = l }
}

// NewSyncService creates a SyncService for jobs.
func NewSyncService(jobs []Job, runs erpsync.RunRepository, opts ...ServiceOption) *SyncService {
	s := &SyncService{
		jobs:     make(map[string]Job, len(jobs)),
		runs:     runs,
		validate: NewValidator(),
		logger:   zap.NewNop(),
	}
	for _, j := range jobs {
		s.jobs[j.Name()] = j
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Jobs lists the registered job names.
func (s *SyncService) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Trigger runs job synchronously. The report is always returned, carrying
// partial counts when err is non-nil.
func (s *SyncService) Trigger(ctx context.Context, name string, params JobParams) (*erpsync.JobReport, error) {
	report := erpsync.NewJobReport(name, params.DryRun)

	job, ok := s.jobs[name]
	if !ok {
		return report, erpsync.NewInvalidInputError("unknown sync job %q", name)
	}
	if err := validateParams(s.validate, params); err != nil {
		return report, err
	}

	run := erpsync.NewSyncRun(name, params.DryRun, params.ToMap())
	report.RunID = run.ID.String()
	if err := s.runs.Create(ctx, run); err != nil {
		return report, err
	}

	ctx = logger.WithRun(ctx, name, report.RunID)
	log := logger.For(ctx, s.logger)
	ctx, span := telemetry.StartServiceSpan(ctx, "erpsync", name,
		telemetry.WithAttribute(telemetry.SpanAttrJob, name),
		telemetry.WithAttribute(telemetry.SpanAttrRunID, report.RunID),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, params.DryRun),
	)
	defer span.End()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info("Sync run started", zap.Any("params", run.Params))
	err := job.Run(runCtx, params, report)

	if err != nil {
		run.Fail(report, err)
		telemetry.RecordError(span, err)
		telemetry.SetAttributes(span, telemetry.SpanAttrErrorKind, string(erpsync.KindOf(err)))
		log.Error("Sync run failed",
			zap.String("kind", string(erpsync.KindOf(err))),
			zap.Int("inserted", report.Inserted),
			zap.Int("updated", report.Updated),
			zap.Error(err),
		)
	} else {
		run.Complete(report)
		log.Info("Sync run finished",
			zap.String("status", string(run.Status)),
			zap.Int("rows_read", report.RowsRead),
			zap.Int("rows_skipped", report.RowsSkipped),
			zap.Int("inserted", report.Inserted),
			zap.Int("updated", report.Updated),
			zap.Int("soft_deleted", report.SoftDeleted),
			zap.Int("failed", report.Failed),
			zap.Duration("duration", run.Duration()),
		)
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(run.Status),
		telemetry.SpanAttrRowsRead, report.RowsRead,
	)

	// the audit trail is written even if the caller went away
	finishCtx := context.WithoutCancel(ctx)
	if saveErr := s.runs.Save(finishCtx, run); saveErr != nil {
		log.Error("Failed to record sync run", zap.Error(saveErr))
	}
	if s.archive != nil {
		if body, mErr := json.Marshal(report); mErr == nil {
			archive(finishCtx, Deps{Archive: s.archive, Logger: log},
				ArchiveKey(name, report.RunID, "report.json"), body, "application/json")
		}
	}
	if s.observer != nil {
		s.observer.JobFinished(finishCtx, run, report)
	}
	return report, err
}

// GetRun returns one recorded run.
func (s *SyncService) GetRun(ctx context.Context, id uuid.UUID) (*erpsync.SyncRun, error) {
	return s.runs.FindByID(ctx, id)
}

// ListRuns returns recent runs, newest first.
func (s *SyncService) ListRuns(ctx context.Context, job string, limit int) ([]erpsync.SyncRun, error) {
	if job != "" {
		if _, ok := s.jobs[job]; !ok {
			return nil, erpsync.NewInvalidInputError("unknown sync job %q", job)
		}
	}
	return s.runs.ListRecent(ctx, job, limit)
}
