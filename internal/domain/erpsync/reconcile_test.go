package erpsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeOf(t *testing.T) {
	t.Run("deduplicates and drops empty values", func(t *testing.T) {
		s := ScopeOf("location_id", "1", "2", "", "1", "3")
		assert.Equal(t, "location_id", s.Field)
		assert.Equal(t, []string{"1", "2", "3"}, s.Values)
		assert.True(t, s.IsSnapshot())
	})

	t.Run("no values means incremental merge", func(t *testing.T) {
		assert.False(t, ScopeOf("customer_id").IsSnapshot())
		assert.False(t, Scope{}.IsSnapshot())
	})
}

func TestReconcileOptionsNormalize(t *testing.T) {
	opts := ReconcileOptions{}.Normalize()
	assert.Equal(t, DefaultBatchSize, opts.BatchSize)
	assert.False(t, opts.Now.IsZero())

	opts = ReconcileOptions{BatchSize: 10}.Normalize()
	assert.Equal(t, 10, opts.BatchSize)
}

func TestReconcileResult(t *testing.T) {
	var total ReconcileResult
	total.Add(ReconcileResult{Inserted: 2, Updated: 1, Batches: 1})
	total.Add(ReconcileResult{Updated: 3, SoftDeleted: 4, Batches: 1})

	assert.Equal(t, ReconcileResult{Inserted: 2, Updated: 4, SoftDeleted: 4, Batches: 2}, total)
	assert.Equal(t, 10, total.Written())
}
