package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/usagehub/internal/alias"
	aliasdomain "github.com/smallbiznis/usagehub/internal/alias/domain"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	datasetservice "github.com/smallbiznis/usagehub/internal/dataset/service"
	factdomain "github.com/smallbiznis/usagehub/internal/fact/domain"
	"github.com/smallbiznis/usagehub/internal/ingest/domain"
	normalizeservice "github.com/smallbiznis/usagehub/internal/normalize/service"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	rawrepository "github.com/smallbiznis/usagehub/internal/rawrow/repository"
	"github.com/smallbiznis/usagehub/internal/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	conn     *gorm.DB
	node     *snowflake.Node
	blob     *local.Store
	datasets datasetdomain.Service
	rawRows  rawdomain.Store
	ingest   domain.Service
}

func newFixture(t *testing.T, wrapStore func(rawdomain.Store) rawdomain.Store) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&datasetdomain.Dataset{},
		&aliasdomain.ProductAlias{},
		&rawdomain.EventRow{},
		&rawdomain.CloudConsumptionRow{},
		&rawdomain.DesktopConsumptionRow{},
		&rawdomain.ManualAdjustmentRow{},
		&factdomain.UsageFact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	blob, err := local.New(t.TempDir())
	require.NoError(t, err)

	log := zap.NewNop()
	datasets := datasetservice.NewService(datasetservice.ServiceParam{DB: conn, Log: log, GenID: node})

	rawRows := rawdomain.Store(rawrepository.Provide(conn))
	if wrapStore != nil {
		rawRows = wrapStore(rawRows)
	}

	normalizer := normalizeservice.NewService(normalizeservice.ServiceParam{
		DB:       conn,
		Log:      log,
		GenID:    node,
		Aliases:  alias.NewLoader(conn),
		RawRows:  rawRows,
		Datasets: datasets,
	})

	ingest := NewService(ServiceParam{
		Log:        log,
		GenID:      node,
		Blob:       blob,
		Datasets:   datasets,
		RawRows:    rawRows,
		Normalizer: normalizer,
	})

	return &fixture{conn: conn, node: node, blob: blob, datasets: datasets, rawRows: rawRows, ingest: ingest}
}

func (f *fixture) uploadDataset(t *testing.T, accountID snowflake.ID, filename, contents string) *datasetdomain.Dataset {
	t.Helper()
	ctx := context.Background()

	key, err := f.blob.Upload(ctx, filename, []byte(contents))
	require.NoError(t, err)

	ds, err := f.datasets.Create(ctx, datasetdomain.CreateRequest{
		AccountID:        accountID,
		OriginalFilename: filename,
		StoragePath:      key,
	})
	require.NoError(t, err)
	return ds
}

const desktopHeader = "usageDate,productName,userName,tokensConsumed,usageHours\n"

func TestRun_DesktopFileEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	contents := desktopHeader +
		"2024-01-05,AutoCAD,alice,3,1.5\n" +
		"2024-01-02,Revit 2024,bob,2,0.5\n" +
		"2024-01-09,AutoCAD,,4,2\n" + // missing userName, dropped
		"2024-01-07,AutoCAD,carol,1,1\n"

	require.NoError(t, f.conn.Create(&aliasdomain.ProductAlias{
		ID: f.node.Generate(), Alias: "revit 2024", ProductKey: "revit",
	}).Error)

	ds := f.uploadDataset(t, 1, "desktop.csv", contents)
	result := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})

	assert.Equal(t, datasetdomain.StatusProcessed, result.Status)
	assert.Equal(t, datasetdomain.TypeDesktopConsumption, result.DatasetType)
	assert.Equal(t, 3, result.RowsTransformed)
	assert.Equal(t, 1, result.RowsFailed)
	assert.Equal(t, 3, result.RowsInserted)
	assert.Equal(t, 3, result.FactsInserted)
	assert.Empty(t, result.Error)

	loaded, err := f.datasets.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, datasetdomain.StatusProcessed, loaded.Status)
	require.NotNil(t, loaded.DatasetType)
	assert.Equal(t, datasetdomain.TypeDesktopConsumption, *loaded.DatasetType)
	require.NotNil(t, loaded.MinDate)
	assert.Equal(t, "2024-01-02", *loaded.MinDate)
	require.NotNil(t, loaded.MaxDate)
	assert.Equal(t, "2024-01-07", *loaded.MaxDate)
	require.NotNil(t, loaded.RowCount)
	assert.Equal(t, int64(3), *loaded.RowCount)
	assert.Nil(t, loaded.ErrorMessage)

	var facts []factdomain.UsageFact
	require.NoError(t, f.conn.Where("dataset_id = ?", ds.ID).Find(&facts).Error)
	require.Len(t, facts, 3)

	keys := make(map[string]bool)
	for _, fact := range facts {
		keys[fact.ProductKey] = true
		assert.Equal(t, datasetdomain.TypeDesktopConsumption, fact.SourceType)
	}
	assert.True(t, keys["autocad"])
	assert.True(t, keys["revit"])
}

func TestRun_DatasetNotFound(t *testing.T) {
	f := newFixture(t, nil)

	result := f.ingest.Run(context.Background(), domain.RunRequest{DatasetID: 12345, AccountID: 1})
	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeValidation, result.ErrorCode)
	assert.Contains(t, result.Error, "dataset_not_found")
}

func TestRun_AccountMismatch(t *testing.T) {
	f := newFixture(t, nil)

	ds := f.uploadDataset(t, 1, "desktop.csv", desktopHeader+"2024-01-05,AutoCAD,alice,3,1\n")
	result := f.ingest.Run(context.Background(), domain.RunRequest{DatasetID: ds.ID, AccountID: 2})

	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeValidation, result.ErrorCode)
}

func TestRun_RejectsNonQueuedDataset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ds := f.uploadDataset(t, 1, "desktop.csv", desktopHeader+"2024-01-05,AutoCAD,alice,3,1\n")

	first := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})
	require.Equal(t, datasetdomain.StatusProcessed, first.Status)

	second := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})
	assert.Equal(t, datasetdomain.StatusFailed, second.Status)
	assert.Equal(t, datasetdomain.CodeValidation, second.ErrorCode)
	assert.Contains(t, second.Error, "processed")
}

func TestRun_UndetectableHeaders(t *testing.T) {
	f := newFixture(t, nil)

	ds := f.uploadDataset(t, 1, "mystery.csv", "foo,bar\n1,2\n")
	result := f.ingest.Run(context.Background(), domain.RunRequest{DatasetID: ds.ID, AccountID: 1})

	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeTypeDetection, result.ErrorCode)

	loaded, err := f.datasets.Get(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, datasetdomain.StatusFailed, loaded.Status)
	require.NotNil(t, loaded.ErrorMessage)
}

func TestRun_UnparseableFile(t *testing.T) {
	f := newFixture(t, nil)

	ds := f.uploadDataset(t, 1, "report.pdf", "not tabular at all")
	result := f.ingest.Run(context.Background(), domain.RunRequest{DatasetID: ds.ID, AccountID: 1})

	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeTypeDetection, result.ErrorCode)
}

func TestRun_AllRowsInvalid(t *testing.T) {
	f := newFixture(t, nil)

	contents := desktopHeader +
		"not a date,AutoCAD,alice,3,1\n" +
		"2024-01-05,AutoCAD,,3,1\n"

	ds := f.uploadDataset(t, 1, "desktop.csv", contents)
	result := f.ingest.Run(context.Background(), domain.RunRequest{DatasetID: ds.ID, AccountID: 1})

	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeValidation, result.ErrorCode)
	assert.Equal(t, 2, result.RowsFailed)
	assert.Contains(t, result.Error, "no valid rows")
}

func TestRun_PresetManualTypeIsRedetected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ds := f.uploadDataset(t, 1, "desktop.csv", desktopHeader+"2024-01-05,AutoCAD,alice,3,1\n")
	require.NoError(t, f.datasets.SetDetectedType(ctx, ds.ID, datasetdomain.TypeManualAdjustment, nil))

	result := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})
	assert.Equal(t, datasetdomain.StatusProcessed, result.Status)
	assert.Equal(t, datasetdomain.TypeDesktopConsumption, result.DatasetType)
}

// failingStore passes through to the real store until the configured
// InsertBatch call, which it fails.
type failingStore struct {
	rawdomain.Store
	calls     int
	failOnNth int
}

func (s *failingStore) InsertBatch(ctx context.Context, t datasetdomain.DatasetType, rows []rawdomain.Row) error {
	s.calls++
	if s.calls == s.failOnNth {
		return fmt.Errorf("connection reset by peer")
	}
	return s.Store.InsertBatch(ctx, t, rows)
}

func TestRun_SecondBatchFailureKeepsFirstBatch(t *testing.T) {
	f := newFixture(t, func(real rawdomain.Store) rawdomain.Store {
		return &failingStore{Store: real, failOnNth: 2}
	})
	ctx := context.Background()

	var sb strings.Builder
	sb.WriteString(desktopHeader)
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&sb, "2024-01-05,AutoCAD,user%03d,1,1\n", i)
	}

	ds := f.uploadDataset(t, 1, "desktop.csv", sb.String())
	result := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})

	assert.Equal(t, datasetdomain.StatusFailed, result.Status)
	assert.Equal(t, datasetdomain.CodeDatabase, result.ErrorCode)
	assert.Contains(t, result.Error, "batch 2")
	assert.Equal(t, 600, result.RowsTransformed)
	assert.Equal(t, 500, result.RowsInserted)
	assert.Equal(t, 0, result.FactsInserted)

	// The first batch stays persisted; there is no compensating rollback.
	var count int64
	require.NoError(t, f.conn.Model(&rawdomain.DesktopConsumptionRow{}).
		Where("dataset_id = ?", ds.ID).Count(&count).Error)
	assert.Equal(t, int64(500), count)

	require.NoError(t, f.conn.Model(&factdomain.UsageFact{}).
		Where("dataset_id = ?", ds.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	loaded, err := f.datasets.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, datasetdomain.StatusFailed, loaded.Status)
	require.NotNil(t, loaded.ErrorMessage)
	assert.Contains(t, *loaded.ErrorMessage, "batch 2")
}

// Writes are at-least-once: manually re-queueing a processed dataset and
// running it again duplicates its rows and facts.
func TestRun_RerunAfterRequeueDuplicatesRows(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ds := f.uploadDataset(t, 1, "desktop.csv",
		desktopHeader+"2024-01-05,AutoCAD,alice,3,1\n2024-01-06,AutoCAD,bob,2,1\n")

	first := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})
	require.Equal(t, datasetdomain.StatusProcessed, first.Status)

	require.NoError(t, f.conn.Model(&datasetdomain.Dataset{}).
		Where("id = ?", ds.ID).Update("status", datasetdomain.StatusQueued).Error)

	second := f.ingest.Run(ctx, domain.RunRequest{DatasetID: ds.ID, AccountID: 1})
	require.Equal(t, datasetdomain.StatusProcessed, second.Status)

	var count int64
	require.NoError(t, f.conn.Model(&rawdomain.DesktopConsumptionRow{}).
		Where("dataset_id = ?", ds.ID).Count(&count).Error)
	assert.Equal(t, int64(4), count)

	// The normalizer reads every raw row of the dataset, so the second run
	// emits facts for both generations: 2 from the first run plus 4 now.
	require.NoError(t, f.conn.Model(&factdomain.UsageFact{}).
		Where("dataset_id = ?", ds.ID).Count(&count).Error)
	assert.Equal(t, int64(6), count)
}
