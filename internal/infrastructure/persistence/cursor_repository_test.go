package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

func TestGormCursorRepository(t *testing.T) {
	repo := NewGormCursorRepository(setupSyncDB(t))
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, erpsync.JobCustomers)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, erpsync.JobCustomers, t0))
	require.NoError(t, repo.Save(ctx, erpsync.JobCustomers, t0.Add(time.Hour)))

	got, ok, err := repo.Get(ctx, erpsync.JobCustomers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, t0.Add(time.Hour), got, time.Second)

	_, ok, err = repo.Get(ctx, erpsync.JobETAs)
	require.NoError(t, err)
	assert.False(t, ok)
}
