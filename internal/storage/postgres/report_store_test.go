package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotax/internal/domain"
	"cryptotax/internal/storage"
)

func TestReportStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")

	a := &domain.ReportArtifact{
		ID:       "art-1",
		OrderID:  "order-1",
		FileName: "defi_activity.csv",
		FilePath: "order-1/defi_activity.csv",
		FileType: "csv",
		FileSize: 2048,
	}
	require.NoError(t, store.Insert(ctx, a))

	got, err := store.GetByID(ctx, "art-1")
	require.NoError(t, err)
	assert.Equal(t, a.FileName, got.FileName)
	assert.Equal(t, a.FilePath, got.FilePath)
	assert.Equal(t, a.FileSize, got.FileSize)
	assert.NotZero(t, got.CreatedAt)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportStore_ListByOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	insertTestOrder(t, ctx, pool, "order-1")
	insertTestOrder(t, ctx, pool, "order-2")

	artifacts := []*domain.ReportArtifact{
		{ID: "a1", OrderID: "order-1", FileName: "defi_activity.csv", FilePath: "order-1/defi_activity.csv", FileType: "csv"},
		{ID: "a2", OrderID: "order-1", FileName: "token_transfers.csv", FilePath: "order-1/token_transfers.csv", FileType: "csv"},
		{ID: "a3", OrderID: "order-2", FileName: "defi_activity.csv", FilePath: "order-2/defi_activity.csv", FileType: "csv"},
	}
	for _, a := range artifacts {
		require.NoError(t, store.Insert(ctx, a))
	}

	result, err := store.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, result, 2)
}
