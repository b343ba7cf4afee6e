package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ListRequest struct {
	AccountID snowflake.ID
	DatasetID snowflake.ID
	PageSize  int
	Page      int
}

type ListResponse struct {
	Facts []UsageFact `json:"facts"`
	Total int64       `json:"total"`
}

// Service exposes read access to normalized usage facts.
type Service interface {
	ListByDataset(ctx context.Context, req ListRequest) (ListResponse, error)
}
