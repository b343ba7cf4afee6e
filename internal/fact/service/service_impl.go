package service

import (
	"context"

	"github.com/smallbiznis/usagehub/internal/fact/domain"
	"github.com/smallbiznis/usagehub/pkg/db/option"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB *gorm.DB
}

type Service struct {
	repo repository.Repository[domain.UsageFact]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{repo: repository.ProvideStore[domain.UsageFact](p.DB)}
}

func (s *Service) ListByDataset(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := &domain.UsageFact{AccountID: req.AccountID, DatasetID: req.DatasetID}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 100
	}
	page := req.Page
	if page < 0 {
		page = 0
	}

	rows, err := s.repo.Find(ctx, filter,
		option.WithSortBy("date ASC, id ASC"),
		option.WithOffset(page*pageSize),
		option.WithLimit(pageSize),
	)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Total: total, Facts: make([]domain.UsageFact, 0, len(rows))}
	for _, row := range rows {
		resp.Facts = append(resp.Facts, *row)
	}
	return resp, nil
}
