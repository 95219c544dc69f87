package erpsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRunLifecycle(t *testing.T) {
	t.Run("new run is running", func(t *testing.T) {
		run := NewSyncRun(JobETAs, true, map[string]any{"page_lines": 1000})
		assert.Equal(t, RunStatusRunning, run.Status)
		assert.True(t, run.DryRun)
		assert.Nil(t, run.FinishedAt)
		assert.Zero(t, run.Duration())
	})

	t.Run("complete without failures is success", func(t *testing.T) {
		run := NewSyncRun(JobETAs, false, nil)
		report := NewJobReport(JobETAs, false)
		report.RowsRead = 10
		report.AddResult(ReconcileResult{Inserted: 4, Updated: 6, SoftDeleted: 1})
		report.Set("file_id", "991")

		run.Complete(report)

		assert.Equal(t, RunStatusSuccess, run.Status)
		assert.Equal(t, 10, run.RowsRead)
		assert.Equal(t, 4, run.Inserted)
		assert.Equal(t, 6, run.Updated)
		assert.Equal(t, 1, run.Deleted)
		assert.Equal(t, "991", run.Report["file_id"])
		require.NotNil(t, run.FinishedAt)
	})

	t.Run("complete with some failures is partial", func(t *testing.T) {
		run := NewSyncRun(JobInstruments, false, nil)
		report := NewJobReport(JobInstruments, false)
		report.Requested, report.Processed, report.Failed = 10, 9, 1

		run.Complete(report)
		assert.Equal(t, RunStatusPartial, run.Status)
		assert.Equal(t, 1, run.Failed)
	})

	t.Run("complete with every entity failed is failed", func(t *testing.T) {
		run := NewSyncRun(JobInstruments, false, nil)
		report := NewJobReport(JobInstruments, false)
		report.Requested, report.Failed = 3, 3

		run.Complete(report)
		assert.Equal(t, RunStatusFailed, run.Status)
	})

	t.Run("fail keeps partial counts", func(t *testing.T) {
		run := NewSyncRun(JobCustomers, false, nil)
		report := NewJobReport(JobCustomers, false)
		report.Inserted = 500

		run.Fail(report, NewPersistenceError("upsert erp_customers", errors.New("conn lost")))

		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Equal(t, KindPersistence, run.ErrorKind)
		assert.Equal(t, 500, run.Inserted)
		assert.Contains(t, run.Error, "conn lost")
	})
}
