package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
)

type RunRequest struct {
	DatasetID snowflake.ID
	AccountID snowflake.ID
}

// RunResult is the structured outcome of one ingestion run. Run never
// propagates exceptions: failures surface here and on the dataset record.
type RunResult struct {
	DatasetID       snowflake.ID                `json:"dataset_id"`
	DatasetType     datasetdomain.DatasetType   `json:"dataset_type,omitempty"`
	Status          datasetdomain.DatasetStatus `json:"status"`
	RowsTransformed int                         `json:"rows_transformed"`
	RowsFailed      int                         `json:"rows_failed"`
	RowsInserted    int                         `json:"rows_inserted"`
	FactsInserted   int                         `json:"facts_inserted"`
	Error           string                      `json:"error,omitempty"`
	ErrorCode       datasetdomain.ErrorCode     `json:"error_code,omitempty"`
}

// Service drives one ingestion run end to end.
type Service interface {
	Run(ctx context.Context, req RunRequest) RunResult
}
