package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/smallbiznis/usagehub/internal/rawrow/domain"
	"github.com/smallbiznis/usagehub/pkg/db/option"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"gorm.io/gorm"
)

type store struct {
	events  repository.Repository[domain.EventRow]
	cloud   repository.Repository[domain.CloudConsumptionRow]
	desktop repository.Repository[domain.DesktopConsumptionRow]
	manual  repository.Repository[domain.ManualAdjustmentRow]
}

func Provide(db *gorm.DB) domain.Store {
	return &store{
		events:  repository.ProvideStore[domain.EventRow](db),
		cloud:   repository.ProvideStore[domain.CloudConsumptionRow](db),
		desktop: repository.ProvideStore[domain.DesktopConsumptionRow](db),
		manual:  repository.ProvideStore[domain.ManualAdjustmentRow](db),
	}
}

func (s *store) InsertBatch(ctx context.Context, t datasetdomain.DatasetType, rows []domain.Row) error {
	switch t {
	case datasetdomain.TypeUsageEvent:
		batch, err := assertRows[domain.EventRow](rows)
		if err != nil {
			return err
		}
		return s.events.BatchCreate(ctx, batch)
	case datasetdomain.TypeCloudConsumption:
		batch, err := assertRows[domain.CloudConsumptionRow](rows)
		if err != nil {
			return err
		}
		return s.cloud.BatchCreate(ctx, batch)
	case datasetdomain.TypeDesktopConsumption:
		batch, err := assertRows[domain.DesktopConsumptionRow](rows)
		if err != nil {
			return err
		}
		return s.desktop.BatchCreate(ctx, batch)
	case datasetdomain.TypeManualAdjustment:
		batch, err := assertRows[domain.ManualAdjustmentRow](rows)
		if err != nil {
			return err
		}
		return s.manual.BatchCreate(ctx, batch)
	default:
		return fmt.Errorf("unknown dataset type %q", t)
	}
}

func (s *store) ListPage(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, offset, limit int) ([]domain.Row, error) {
	opts := []option.QueryOption{
		option.WithSortBy("id ASC"),
		option.WithRange(offset, offset+limit),
	}

	switch t {
	case datasetdomain.TypeUsageEvent:
		rows, err := s.events.Find(ctx, &domain.EventRow{DatasetID: datasetID}, opts...)
		return toRows(rows), err
	case datasetdomain.TypeCloudConsumption:
		rows, err := s.cloud.Find(ctx, &domain.CloudConsumptionRow{DatasetID: datasetID}, opts...)
		return toRows(rows), err
	case datasetdomain.TypeDesktopConsumption:
		rows, err := s.desktop.Find(ctx, &domain.DesktopConsumptionRow{DatasetID: datasetID}, opts...)
		return toRows(rows), err
	case datasetdomain.TypeManualAdjustment:
		rows, err := s.manual.Find(ctx, &domain.ManualAdjustmentRow{DatasetID: datasetID}, opts...)
		return toRows(rows), err
	default:
		return nil, fmt.Errorf("unknown dataset type %q", t)
	}
}

func (s *store) MinDate(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (*string, error) {
	return s.boundaryDate(ctx, t, datasetID, "ASC")
}

func (s *store) MaxDate(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (*string, error) {
	return s.boundaryDate(ctx, t, datasetID, "DESC")
}

func (s *store) boundaryDate(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, direction string) (*string, error) {
	var row domain.Row
	var err error

	switch t {
	case datasetdomain.TypeUsageEvent:
		row, err = orNil(s.events.FirstOrdered(ctx, &domain.EventRow{DatasetID: datasetID}, "event_date "+direction))
	case datasetdomain.TypeCloudConsumption:
		row, err = orNil(s.cloud.FirstOrdered(ctx, &domain.CloudConsumptionRow{DatasetID: datasetID}, "usage_date "+direction))
	case datasetdomain.TypeDesktopConsumption:
		row, err = orNil(s.desktop.FirstOrdered(ctx, &domain.DesktopConsumptionRow{DatasetID: datasetID}, "usage_date "+direction))
	case datasetdomain.TypeManualAdjustment:
		row, err = orNil(s.manual.FirstOrdered(ctx, &domain.ManualAdjustmentRow{DatasetID: datasetID}, "usage_date "+direction))
	default:
		return nil, fmt.Errorf("unknown dataset type %q", t)
	}

	if err != nil || row == nil {
		return nil, err
	}
	date := row.RowDate()
	return &date, nil
}

func (s *store) Count(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (int64, error) {
	switch t {
	case datasetdomain.TypeUsageEvent:
		return s.events.Count(ctx, &domain.EventRow{DatasetID: datasetID})
	case datasetdomain.TypeCloudConsumption:
		return s.cloud.Count(ctx, &domain.CloudConsumptionRow{DatasetID: datasetID})
	case datasetdomain.TypeDesktopConsumption:
		return s.desktop.Count(ctx, &domain.DesktopConsumptionRow{DatasetID: datasetID})
	case datasetdomain.TypeManualAdjustment:
		return s.manual.Count(ctx, &domain.ManualAdjustmentRow{DatasetID: datasetID})
	default:
		return 0, fmt.Errorf("unknown dataset type %q", t)
	}
}

func assertRows[T any](rows []domain.Row) ([]*T, error) {
	batch := make([]*T, 0, len(rows))
	for _, row := range rows {
		typed, ok := any(row).(*T)
		if !ok {
			return nil, fmt.Errorf("row shape %T does not match dataset type", row)
		}
		batch = append(batch, typed)
	}
	return batch, nil
}

func toRows[T any](rows []*T) []domain.Row {
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, any(row).(domain.Row))
	}
	return out
}

func orNil[T any](row *T, err error) (domain.Row, error) {
	if err != nil || row == nil {
		return nil, err
	}
	return any(row).(domain.Row), nil
}
