package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/adapter"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/smallbiznis/usagehub/internal/detect"
	"github.com/smallbiznis/usagehub/internal/ingest/domain"
	"github.com/smallbiznis/usagehub/internal/metrics"
	normalizedomain "github.com/smallbiznis/usagehub/internal/normalize/domain"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	storagedomain "github.com/smallbiznis/usagehub/internal/storage/domain"
	"github.com/smallbiznis/usagehub/internal/tabular"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	rawBatchSize = 500

	// Per-row failure reasons kept for diagnostics. The rest are counted only.
	failureSampleLimit = 100
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Blob       storagedomain.BlobStore
	Datasets   datasetdomain.Service
	RawRows    rawdomain.Store
	Normalizer normalizedomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	blob       storagedomain.BlobStore
	datasets   datasetdomain.Service
	rawRows    rawdomain.Store
	normalizer normalizedomain.Service
	metrics    *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:        p.Log.Named("ingest.service"),
		genID:      p.GenID,
		blob:       p.Blob,
		datasets:   p.Datasets,
		rawRows:    p.RawRows,
		normalizer: p.Normalizer,
		metrics:    p.Metrics,
	}
}

// Run executes one ingestion run. Any structural failure is converted into a
// terminal failed status on the dataset plus a structured result; errors are
// never propagated to the caller.
func (s *Service) Run(ctx context.Context, req domain.RunRequest) domain.RunResult {
	if s.metrics != nil {
		s.metrics.RunsStarted.Inc()
	}

	result := domain.RunResult{DatasetID: req.DatasetID}
	err := s.execute(ctx, req, &result)
	if err == nil {
		result.Status = datasetdomain.StatusProcessed
		if s.metrics != nil {
			s.metrics.RunsProcessed.Inc()
		}
		return result
	}

	s.log.Error("ingestion run failed",
		zap.String("dataset_id", req.DatasetID.String()),
		zap.String("error_code", string(datasetdomain.CodeOf(err))),
		zap.Error(err),
	)

	// Best effort: a dataset stuck without a terminal status is worse than a
	// missing error message.
	if markErr := s.datasets.MarkFailed(ctx, req.DatasetID, err.Error()); markErr != nil {
		s.log.Error("unable to record dataset failure",
			zap.String("dataset_id", req.DatasetID.String()),
			zap.Error(markErr),
		)
	}

	result.Status = datasetdomain.StatusFailed
	result.Error = err.Error()
	result.ErrorCode = datasetdomain.CodeOf(err)
	if s.metrics != nil {
		s.metrics.RunsFailed.Inc()
	}
	return result
}

func (s *Service) execute(ctx context.Context, req domain.RunRequest, result *domain.RunResult) error {
	ds, err := s.datasets.Get(ctx, req.DatasetID)
	if err != nil {
		return datasetdomain.NewDatabaseError(req.DatasetID, "load dataset", err)
	}
	if ds == nil {
		return datasetdomain.NewValidationError(req.DatasetID, datasetdomain.ErrDatasetNotFound.Error())
	}
	if ds.AccountID != req.AccountID {
		return datasetdomain.NewValidationError(req.DatasetID, datasetdomain.ErrAccountMismatch.Error())
	}
	if ds.Status != datasetdomain.StatusQueued {
		return datasetdomain.NewValidationError(req.DatasetID,
			fmt.Sprintf("%s: status is %s", datasetdomain.ErrDatasetNotQueued.Error(), ds.Status))
	}

	buf, err := s.blob.Download(ctx, ds.StoragePath)
	if err != nil {
		return datasetdomain.NewFileParseError(ds.ID, "download dataset file", err)
	}

	datasetType, err := s.resolveType(ctx, ds, buf)
	if err != nil {
		return err
	}
	result.DatasetType = datasetType

	table, err := tabular.Parse(buf, ds.OriginalFilename)
	if err != nil {
		return datasetdomain.NewFileParseError(ds.ID, "parse dataset file", err)
	}

	rowAdapter, err := adapter.ForType(datasetType, s.genID)
	if err != nil {
		return datasetdomain.NewValidationError(ds.ID, err.Error())
	}
	if !rowAdapter.ValidateHeaders(table.Headers) {
		return datasetdomain.NewValidationError(ds.ID,
			fmt.Sprintf("file headers do not match dataset type %s", datasetType))
	}

	rows := s.transformRows(rowAdapter, table, ds, result)
	if len(rows) == 0 {
		return datasetdomain.NewValidationError(ds.ID,
			fmt.Sprintf("no valid rows: all %d rows failed validation", result.RowsFailed))
	}

	if err := s.insertRawRows(ctx, datasetType, ds.ID, rows, result); err != nil {
		return err
	}

	normResult, err := s.normalizer.Normalize(ctx, ds.ID, ds.AccountID, datasetType)
	if err != nil {
		return err
	}
	result.FactsInserted = normResult.RowsInserted
	if s.metrics != nil {
		s.metrics.FactsInserted.WithLabelValues(string(datasetType)).Add(float64(normResult.RowsInserted))
	}

	if err := s.datasets.MarkProcessed(ctx, ds.ID); err != nil {
		return datasetdomain.NewDatabaseError(ds.ID, "finalize dataset status", err)
	}

	s.log.Info("dataset processed",
		zap.String("dataset_id", ds.ID.String()),
		zap.String("dataset_type", string(datasetType)),
		zap.Int("rows_inserted", result.RowsInserted),
		zap.Int("rows_failed", result.RowsFailed),
		zap.Int("facts_inserted", result.FactsInserted),
		zap.String("min_date", normResult.MinDate),
		zap.String("max_date", normResult.MaxDate),
	)
	return nil
}

// resolveType re-runs detection when the dataset has no type yet, or still
// carries the manual-adjustment type: manual adjustment doubles as the
// fallback type, so it is treated as "not yet confidently typed".
func (s *Service) resolveType(ctx context.Context, ds *datasetdomain.Dataset, buf []byte) (datasetdomain.DatasetType, error) {
	if ds.DatasetType != nil && *ds.DatasetType != datasetdomain.TypeManualAdjustment {
		return *ds.DatasetType, nil
	}

	detection, err := detect.Detect(buf, ds.OriginalFilename)
	if err != nil {
		return "", datasetdomain.NewTypeDetectionError(ds.ID, "parse file during type detection", err)
	}
	if detection == nil {
		return "", datasetdomain.NewTypeDetectionError(ds.ID, "no dataset type matched file headers", nil)
	}

	if err := s.datasets.SetDetectedType(ctx, ds.ID, detection.Type, detection.Headers); err != nil {
		return "", datasetdomain.NewDatabaseError(ds.ID, "persist detected type", err)
	}
	return detection.Type, nil
}

// transformRows runs every parsed row through the adapter. Per-row failures
// are counted and sampled, never fatal.
func (s *Service) transformRows(rowAdapter adapter.RowAdapter, table *tabular.Table, ds *datasetdomain.Dataset, result *domain.RunResult) []rawdomain.Row {
	rows := make([]rawdomain.Row, 0, len(table.Rows))
	samples := make([]string, 0, failureSampleLimit)

	for i, parsed := range table.Rows {
		raw, err := rowAdapter.TransformToRaw(parsed, ds.AccountID, ds.ID)
		if err != nil || raw == nil {
			result.RowsFailed++
			if len(samples) < failureSampleLimit {
				reason := "adapter returned no row"
				if err != nil {
					reason = err.Error()
				}
				samples = append(samples, fmt.Sprintf("row %d: %s", i+2, reason))
			}
			continue
		}
		rows = append(rows, raw)
	}
	result.RowsTransformed = len(rows)

	if result.RowsFailed > 0 {
		s.log.Warn("rows dropped during transform",
			zap.String("dataset_id", ds.ID.String()),
			zap.Int("failed", result.RowsFailed),
			zap.Int("transformed", len(rows)),
			zap.Strings("samples", samples),
		)
	}
	if s.metrics != nil && result.DatasetType != "" {
		s.metrics.RowsTransformed.WithLabelValues(string(result.DatasetType)).Add(float64(len(rows)))
		s.metrics.RowsDropped.WithLabelValues(string(result.DatasetType)).Add(float64(result.RowsFailed))
	}
	return rows
}

// insertRawRows writes the transformed rows in fixed-size batches, issued
// one at a time. A batch failure aborts the run; earlier batches stay
// persisted, there is no compensating rollback.
func (s *Service) insertRawRows(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, rows []rawdomain.Row, result *domain.RunResult) error {
	for i := 0; i < len(rows); i += rawBatchSize {
		end := i + rawBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.rawRows.InsertBatch(ctx, t, rows[i:end]); err != nil {
			return datasetdomain.NewDatabaseError(datasetID,
				fmt.Sprintf("insert raw rows batch %d", i/rawBatchSize+1), err)
		}
		result.RowsInserted = end
	}
	return nil
}
