package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

func TestQueryJobStore_InsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQueryJobStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")

	base := time.Now().UTC()
	jobs := []*domain.QueryJob{
		{ID: "j1", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusQueued, CreatedAt: base},
		{ID: "j2", OrderID: "order-1", QueryName: "token_transfers", QueryID: 6022882, Status: domain.QueryJobStatusQueued, CreatedAt: base.Add(time.Second)},
	}
	for _, j := range jobs {
		require.NoError(t, store.Insert(ctx, j))
	}

	result, err := store.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "j1", result[0].ID)
	assert.Equal(t, "j2", result[1].ID)
	assert.Equal(t, int64(6022401), result[0].QueryID)
}

func TestQueryJobStore_DuplicateOrderQueryName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQueryJobStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")

	j := &domain.QueryJob{ID: "j1", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusQueued}
	require.NoError(t, store.Insert(ctx, j))

	dup := &domain.QueryJob{ID: "j2", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusQueued}
	err := store.Insert(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestQueryJobStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQueryJobStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")

	j := &domain.QueryJob{ID: "j1", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusQueued}
	require.NoError(t, store.Insert(ctx, j))

	started := time.Now().UTC().Truncate(time.Microsecond)
	j.Status = domain.QueryJobStatusRunning
	j.ExecutionID = ptr("exec-01")
	j.StartedAt = &started
	require.NoError(t, store.Update(ctx, j))

	errType := domain.ErrorTypeRateLimit
	j.Status = domain.QueryJobStatusFailed
	j.ErrorType = &errType
	j.ErrorMessage = ptr("429 too many requests")
	j.RetryCount = 1
	require.NoError(t, store.Update(ctx, j))

	result, err := store.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	got := result[0]
	assert.Equal(t, domain.QueryJobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorType)
	assert.Equal(t, domain.ErrorTypeRateLimit, *got.ErrorType)
	require.NotNil(t, got.ExecutionID)
	assert.Equal(t, "exec-01", *got.ExecutionID)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestQueryJobStore_UpdateNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQueryJobStore(pool)
	ctx := context.Background()

	err := store.Update(ctx, &domain.QueryJob{ID: "missing", Status: domain.QueryJobStatusFailed})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQueryJobStore_DeleteByOrderAllowsRecreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQueryJobStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")

	j := &domain.QueryJob{ID: "j1", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusFailed}
	require.NoError(t, store.Insert(ctx, j))

	require.NoError(t, store.DeleteByOrder(ctx, "order-1"))

	fresh := &domain.QueryJob{ID: "j2", OrderID: "order-1", QueryName: "defi_activity", QueryID: 6022401, Status: domain.QueryJobStatusQueued}
	require.NoError(t, store.Insert(ctx, fresh))

	result, err := store.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "j2", result[0].ID)
}
