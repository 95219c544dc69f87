package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// SyncMetrics records job outcomes and remote backoff. It is both the
// service's job observer and the ERP client's retry observer.
type SyncMetrics struct {
	runs        *Counter
	duration    *Histogram
	rows        *Counter
	entityFails *Counter
	lastSuccess *Gauge
	retries     *Counter
	retryDelay  *Histogram
	now         func() time.Time
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	runs, err := NewCounter(meter, "sync_runs_total", "Finished sync runs by job and status", "{run}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "sync_run_duration_seconds",
		Description: "Wall time of sync runs",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	rows, err := NewCounter(meter, "sync_rows_total", "Rows read, skipped and written by job", "{row}")
	if err != nil {
		return nil, err
	}
	entityFails, err := NewCounter(meter, "sync_entity_failures_total", "Fan-out entities that failed", "{entity}")
	if err != nil {
		return nil, err
	}
	lastSuccess, err := NewGauge(meter, "sync_last_success_timestamp_seconds", "Unix time of the last successful run", "s")
	if err != nil {
		return nil, err
	}
	retries, err := NewCounter(meter, "netsuite_retries_total", "Backoff waits on the ERP endpoints", "{retry}")
	if err != nil {
		return nil, err
	}
	retryDelay, err := NewHistogram(meter, HistogramOpts{
		Name:        "netsuite_retry_delay_seconds",
		Description: "Backoff delay before a retry",
		Unit:        "s",
		Boundaries:  RetryDelayBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runs:        runs,
		duration:    duration,
		rows:        rows,
		entityFails: entityFails,
		lastSuccess: lastSuccess,
		retries:     retries,
		retryDelay:  retryDelay,
		now:         time.Now,
	}, nil
}

// JobFinished records a finished run.
func (m *SyncMetrics) JobFinished(ctx context.Context, run *erpsync.SyncRun, report *erpsync.JobReport) {
	job := AttrJob.String(run.Job)
	attrs := []attribute.KeyValue{job, AttrStatus.String(string(run.Status))}
	if run.ErrorKind != "" {
		attrs = append(attrs, AttrErrorKind.String(string(run.ErrorKind)))
	}
	m.runs.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, run.Duration(), job, AttrStatus.String(string(run.Status)))

	if report != nil {
		m.rows.Add(ctx, int64(report.RowsRead), job, AttrStage.String("read"))
		m.rows.Add(ctx, int64(report.RowsSkipped), job, AttrStage.String("skipped"))
		m.rows.Add(ctx, int64(report.Inserted), job, AttrStage.String("inserted"))
		m.rows.Add(ctx, int64(report.Updated), job, AttrStage.String("updated"))
		m.rows.Add(ctx, int64(report.SoftDeleted), job, AttrStage.String("soft_deleted"))
		m.entityFails.Add(ctx, int64(report.Failed), job)
	}

	if run.Status == erpsync.RunStatusSuccess && !run.DryRun {
		m.lastSuccess.Record(ctx, m.now().Unix(), job)
	}
}

// ObserveRetry records one backoff wait.
func (m *SyncMetrics) ObserveRetry(ctx context.Context, tag string, _ int, delay time.Duration, status int, code string) {
	attrs := []attribute.KeyValue{
		AttrRequest.String(RequestKind(tag)),
		AttrHTTPCode.Int(status),
		attribute.String("netsuite.error_code", code),
	}
	m.retries.Inc(ctx, attrs...)
	m.retryDelay.RecordDuration(ctx, delay, attrs[0])
}

// RequestKind strips the page or entity suffix from a request tag so that
// "customers#3" and "instruments:8812" map to bounded attribute values.
func RequestKind(tag string) string {
	if i := strings.IndexAny(tag, "#:"); i >= 0 {
		return tag[:i]
	}
	return tag
}
