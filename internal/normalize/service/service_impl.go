package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/alias"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	factdomain "github.com/smallbiznis/usagehub/internal/fact/domain"
	"github.com/smallbiznis/usagehub/internal/normalize/domain"
	rawdomain "github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// The store caps single-query result size; pages this large amortize the
	// round-trips without holding more than one page shape in flight.
	readPageSize = 5000

	factBatchSize = 1000
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Aliases  *alias.Loader
	RawRows  rawdomain.Store
	Datasets datasetdomain.Service
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	aliases  *alias.Loader
	rawRows  rawdomain.Store
	datasets datasetdomain.Service
	facts    repository.Repository[factdomain.UsageFact]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:      p.Log.Named("normalize.service"),
		genID:    p.GenID,
		aliases:  p.Aliases,
		rawRows:  p.RawRows,
		datasets: p.Datasets,
		facts:    repository.ProvideStore[factdomain.UsageFact](p.DB),
	}
}

func (s *Service) Normalize(ctx context.Context, datasetID, accountID snowflake.ID, t datasetdomain.DatasetType) (*domain.Result, error) {
	if !t.Valid() {
		return nil, datasetdomain.NewNormalizationError(datasetID,
			fmt.Sprintf("cannot normalize dataset type %q", t), nil)
	}

	aliasMap, err := s.aliases.LoadAliases(ctx)
	if err != nil {
		return nil, datasetdomain.NewDatabaseError(datasetID, "load product aliases", err)
	}

	rows, err := s.readAllRows(ctx, t, datasetID)
	if err != nil {
		return nil, datasetdomain.NewDatabaseError(datasetID, "read raw rows", err)
	}

	minDate, maxDate, err := s.dateSpan(ctx, t, datasetID, rows)
	if err != nil {
		return nil, datasetdomain.NewDatabaseError(datasetID, "compute date span", err)
	}

	rowCount := s.rowCount(ctx, t, datasetID, rows)

	result := &domain.Result{MinDate: minDate, MaxDate: maxDate, RowCount: rowCount}

	facts := make([]*factdomain.UsageFact, 0, len(rows))
	for _, row := range rows {
		fact := s.mapRow(row, t, aliasMap, accountID, datasetID)
		if fact == nil {
			result.RowsSkipped++
			s.log.Warn("skipping raw row with missing required fields",
				zap.String("dataset_id", datasetID.String()),
				zap.String("dataset_type", string(t)),
			)
			continue
		}
		facts = append(facts, fact)
	}
	result.RowsNormalized = len(facts)

	for i := 0; i < len(facts); i += factBatchSize {
		end := i + factBatchSize
		if end > len(facts) {
			end = len(facts)
		}
		if err := s.facts.BatchCreate(ctx, facts[i:end]); err != nil {
			return nil, datasetdomain.NewDatabaseError(datasetID,
				fmt.Sprintf("insert usage facts batch %d", i/factBatchSize+1), err)
		}
		result.RowsInserted = end
	}

	if err := s.datasets.SetSpan(ctx, datasetID, minDate, maxDate, rowCount); err != nil {
		return nil, datasetdomain.NewDatabaseError(datasetID, "write dataset span", err)
	}

	return result, nil
}

// readAllRows pages through the dataset's raw rows via offset pagination.
func (s *Service) readAllRows(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) ([]rawdomain.Row, error) {
	var all []rawdomain.Row
	for offset := 0; ; offset += readPageSize {
		page, err := s.rawRows.ListPage(ctx, t, datasetID, offset, readPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < readPageSize {
			return all, nil
		}
	}
}

// dateSpan prefers two ordered limit-1 queries over scanning the full row
// set, falling back to the in-memory rows if either query comes back empty.
func (s *Service) dateSpan(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, rows []rawdomain.Row) (string, string, error) {
	minDate, err := s.rawRows.MinDate(ctx, t, datasetID)
	if err != nil {
		return "", "", err
	}
	maxDate, err := s.rawRows.MaxDate(ctx, t, datasetID)
	if err != nil {
		return "", "", err
	}
	if minDate != nil && maxDate != nil {
		return *minDate, *maxDate, nil
	}

	var lo, hi string
	for _, row := range rows {
		date := row.RowDate()
		if date == "" {
			continue
		}
		if lo == "" || date < lo {
			lo = date
		}
		if date > hi {
			hi = date
		}
	}
	return lo, hi, nil
}

// rowCount prefers a dedicated count query, falling back to the loaded rows.
// A mismatch between the two is logged, not fatal.
func (s *Service) rowCount(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, rows []rawdomain.Row) int64 {
	count, err := s.rawRows.Count(ctx, t, datasetID)
	if err != nil {
		s.log.Warn("count query failed, using in-memory row count",
			zap.String("dataset_id", datasetID.String()),
			zap.Error(err),
		)
		return int64(len(rows))
	}
	if count != int64(len(rows)) {
		s.log.Warn("row count mismatch between count query and loaded rows",
			zap.String("dataset_id", datasetID.String()),
			zap.Int64("counted", count),
			zap.Int("loaded", len(rows)),
		)
	}
	return count
}
