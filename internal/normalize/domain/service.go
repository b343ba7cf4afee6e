package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
)

// Result summarizes one normalization pass over a dataset's raw rows.
type Result struct {
	RowsNormalized int    `json:"rows_normalized"`
	RowsInserted   int    `json:"rows_inserted"`
	RowsSkipped    int    `json:"rows_skipped"`
	MinDate        string `json:"min_date"`
	MaxDate        string `json:"max_date"`
	RowCount       int64  `json:"row_count"`
}

// Service converts a dataset's stored raw rows into canonical usage facts.
type Service interface {
	Normalize(ctx context.Context, datasetID, accountID snowflake.ID, t datasetdomain.DatasetType) (*Result, error)
}
