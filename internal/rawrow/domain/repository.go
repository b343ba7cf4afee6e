package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
)

// Store persists and reads back the per-shape raw row tables. Callers pass
// the dataset type to select the backing table.
type Store interface {
	// InsertBatch writes one batch of transformed rows. Each element must be
	// the row shape matching t.
	InsertBatch(ctx context.Context, t datasetdomain.DatasetType, rows []Row) error

	// ListPage reads one offset-paginated page of a dataset's rows ordered
	// by insertion id.
	ListPage(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID, offset, limit int) ([]Row, error)

	// MinDate and MaxDate run ordered limit-1 queries over the row date
	// column. They return nil when the dataset has no rows.
	MinDate(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (*string, error)
	MaxDate(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (*string, error)

	// Count returns the number of raw rows stored for the dataset.
	Count(ctx context.Context, t datasetdomain.DatasetType, datasetID snowflake.ID) (int64, error)
}
