package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	AccountID        snowflake.ID
	OriginalFilename string
	StoragePath      string
}

type ListRequest struct {
	AccountID snowflake.ID
	Status    DatasetStatus
	PageSize  int
	Page      int
	SortBy    string
	OrderBy   string
}

type ListResponse struct {
	Datasets []Dataset `json:"datasets"`
	Total    int64     `json:"total"`
}

// Service manages dataset records through their processing lifecycle.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Dataset, error)
	Get(ctx context.Context, id snowflake.ID) (*Dataset, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	SetDetectedType(ctx context.Context, id snowflake.ID, t DatasetType, headers []string) error
	SetSpan(ctx context.Context, id snowflake.ID, minDate, maxDate string, rowCount int64) error
	MarkProcessed(ctx context.Context, id snowflake.ID) error
	MarkFailed(ctx context.Context, id snowflake.ID, message string) error
}
