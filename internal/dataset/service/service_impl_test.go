package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Dataset{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{DB: conn, Log: zap.NewNop(), GenID: node})
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, domain.CreateRequest{
		AccountID:        snowflake.ID(7),
		OriginalFilename: "usage.csv",
		StoragePath:      "01ABC.csv",
	})
	require.NoError(t, err)
	assert.NotZero(t, ds.ID)
	assert.Equal(t, domain.StatusQueued, ds.Status)
	assert.Nil(t, ds.DatasetType)

	loaded, err := svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "usage.csv", loaded.OriginalFilename)
	assert.Equal(t, snowflake.ID(7), loaded.AccountID)
}

func TestService_GetMissing(t *testing.T) {
	svc := newTestService(t)

	loaded, err := svc.Get(context.Background(), snowflake.ID(999))
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestService_SetDetectedType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "a.csv", StoragePath: "a"})
	require.NoError(t, err)

	headers := []string{"usageDate", "productName", "userName", "tokensConsumed"}
	require.NoError(t, svc.SetDetectedType(ctx, ds.ID, domain.TypeCloudConsumption, headers))

	loaded, err := svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.DatasetType)
	assert.Equal(t, domain.TypeCloudConsumption, *loaded.DatasetType)
	assert.JSONEq(t, `["usageDate","productName","userName","tokensConsumed"]`, string(loaded.DetectedHeaders))
}

func TestService_SetSpan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "a.csv", StoragePath: "a"})
	require.NoError(t, err)

	require.NoError(t, svc.SetSpan(ctx, ds.ID, "2024-01-01", "2024-01-31", 42))

	loaded, err := svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.MinDate)
	assert.Equal(t, "2024-01-01", *loaded.MinDate)
	require.NotNil(t, loaded.MaxDate)
	assert.Equal(t, "2024-01-31", *loaded.MaxDate)
	require.NotNil(t, loaded.RowCount)
	assert.Equal(t, int64(42), *loaded.RowCount)
}

func TestService_StatusTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "a.csv", StoragePath: "a"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkFailed(ctx, ds.ID, "parse blew up"))
	loaded, err := svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, loaded.Status)
	require.NotNil(t, loaded.ErrorMessage)
	assert.Equal(t, "parse blew up", *loaded.ErrorMessage)

	// Marking processed clears the stale failure message.
	require.NoError(t, svc.MarkProcessed(ctx, ds.ID))
	loaded, err = svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, loaded.Status)
	assert.Nil(t, loaded.ErrorMessage)
}

func TestService_ListFiltersByAccountAndStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "a.csv", StoragePath: "a"})
		require.NoError(t, err)
	}
	other, err := svc.Create(ctx, domain.CreateRequest{AccountID: 2, OriginalFilename: "b.csv", StoragePath: "b"})
	require.NoError(t, err)
	require.NoError(t, svc.MarkProcessed(ctx, other.ID))

	resp, err := svc.List(ctx, domain.ListRequest{AccountID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Datasets, 3)

	resp, err = svc.List(ctx, domain.ListRequest{AccountID: 2, Status: domain.StatusProcessed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
}

func TestService_ListSortBy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "a.csv", StoragePath: "a"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, domain.CreateRequest{AccountID: 1, OriginalFilename: "b.csv", StoragePath: "b"})
	require.NoError(t, err)
	require.NoError(t, svc.MarkFailed(ctx, second.ID, "boom"))

	resp, err := svc.List(ctx, domain.ListRequest{AccountID: 1, SortBy: "status", OrderBy: "asc"})
	require.NoError(t, err)
	require.Len(t, resp.Datasets, 2)
	assert.Equal(t, second.ID, resp.Datasets[0].ID)
	assert.Equal(t, first.ID, resp.Datasets[1].ID)

	// Unknown columns fall back to the default ordering instead of erroring.
	resp, err = svc.List(ctx, domain.ListRequest{AccountID: 1, SortBy: "storage_path; DROP TABLE datasets"})
	require.NoError(t, err)
	assert.Len(t, resp.Datasets, 2)
}
