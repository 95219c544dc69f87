package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

func TestSyncMetrics_JobFinished(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := NewSyncMetrics(mp.Meter("test"))
	require.NoError(t, err)
	m.now = func() time.Time { return time.Unix(1_772_000_000, 0) }
	ctx := context.Background()

	ok := erpsync.NewSyncRun(erpsync.JobETAs, false, nil)
	okReport := &erpsync.JobReport{Job: erpsync.JobETAs, RowsRead: 10, RowsSkipped: 2, Inserted: 5, Updated: 3, SoftDeleted: 1}
	ok.Complete(okReport)
	m.JobFinished(ctx, ok, okReport)

	failed := erpsync.NewSyncRun(erpsync.JobETAs, false, nil)
	failReport := &erpsync.JobReport{Job: erpsync.JobETAs, RowsRead: 4}
	failed.Fail(failReport, erpsync.NewPersistenceError("upsert", errors.New("deadlock")))
	m.JobFinished(ctx, failed, failReport)

	partial := erpsync.NewSyncRun(erpsync.JobInstruments, false, nil)
	partialReport := &erpsync.JobReport{Job: erpsync.JobInstruments, Requested: 3, Processed: 2, Failed: 1}
	partial.Complete(partialReport)
	m.JobFinished(ctx, partial, partialReport)

	got := collect(t, reader)

	runs := got["sync_runs_total"]
	assert.EqualValues(t, 1, sumInt64(t, runs, AttrJob.String("etas"), AttrStatus.String("SUCCESS")))
	assert.EqualValues(t, 1, sumInt64(t, runs, AttrJob.String("etas"), AttrStatus.String("FAILED"), AttrErrorKind.String("persistence")))
	assert.EqualValues(t, 1, sumInt64(t, runs, AttrJob.String("instruments"), AttrStatus.String("PARTIAL")))

	rows := got["sync_rows_total"]
	assert.EqualValues(t, 14, sumInt64(t, rows, AttrJob.String("etas"), AttrStage.String("read")))
	assert.EqualValues(t, 5, sumInt64(t, rows, AttrJob.String("etas"), AttrStage.String("inserted")))
	assert.EqualValues(t, 1, sumInt64(t, rows, AttrJob.String("etas"), AttrStage.String("soft_deleted")))

	assert.EqualValues(t, 1, sumInt64(t, got["sync_entity_failures_total"], AttrJob.String("instruments")))
	assert.EqualValues(t, 3, histogramCount(t, got["sync_run_duration_seconds"]))

	ts, found := gaugeInt64(t, got["sync_last_success_timestamp_seconds"], AttrJob.String("etas"))
	require.True(t, found)
	assert.EqualValues(t, 1_772_000_000, ts)
	_, found = gaugeInt64(t, got["sync_last_success_timestamp_seconds"], AttrJob.String("instruments"))
	assert.False(t, found, "a partial run is not a success")
}

func TestSyncMetrics_DryRunDoesNotAdvanceLastSuccess(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := NewSyncMetrics(mp.Meter("test"))
	require.NoError(t, err)

	run := erpsync.NewSyncRun(erpsync.JobCustomers, true, nil)
	report := &erpsync.JobReport{Job: erpsync.JobCustomers, DryRun: true}
	run.Complete(report)
	m.JobFinished(context.Background(), run, report)

	got := collect(t, reader)
	_, ok := got["sync_last_success_timestamp_seconds"]
	assert.False(t, ok)
}

func TestSyncMetrics_ObserveRetry(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := NewSyncMetrics(mp.Meter("test"))
	require.NoError(t, err)
	ctx := context.Background()

	m.ObserveRetry(ctx, "customers#2", 0, time.Second, 429, "CONCURRENCY_LIMIT_EXCEEDED")
	m.ObserveRetry(ctx, "instruments:8812", 1, 2*time.Second, 503, "")
	m.ObserveRetry(ctx, "instruments:9001", 0, time.Second, 503, "")

	got := collect(t, reader)
	retries := got["netsuite_retries_total"]
	assert.EqualValues(t, 1, sumInt64(t, retries, AttrRequest.String("customers"), AttrHTTPCode.Int(429)))
	assert.EqualValues(t, 2, sumInt64(t, retries, AttrRequest.String("instruments")))
	assert.EqualValues(t, 3, histogramCount(t, got["netsuite_retry_delay_seconds"]))
}

func TestRequestKind(t *testing.T) {
	assert.Equal(t, "customers", RequestKind("customers#12"))
	assert.Equal(t, "instruments", RequestKind("instruments:77"))
	assert.Equal(t, "manifest", RequestKind("manifest"))
}
