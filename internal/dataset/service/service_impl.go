package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/dataset/domain"
	"github.com/smallbiznis/usagehub/pkg/db/option"
	"github.com/smallbiznis/usagehub/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var listSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
	"row_count":  true,
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.Dataset]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dataset.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Dataset](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Dataset, error) {
	now := time.Now().UTC()
	ds := &domain.Dataset{
		ID:               s.genID.Generate(),
		AccountID:        req.AccountID,
		OriginalFilename: req.OriginalFilename,
		StoragePath:      req.StoragePath,
		Status:           domain.StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Dataset, error) {
	return s.repo.FindOne(ctx, &domain.Dataset{ID: id})
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := &domain.Dataset{AccountID: req.AccountID, Status: req.Status}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 50
	}
	page := req.Page
	if page < 0 {
		page = 0
	}

	sortExpr := option.WithQuerySortBy(req.SortBy, req.OrderBy, listSortColumns)
	if sortExpr == "" {
		sortExpr = "created_at DESC"
	}

	rows, err := s.repo.Find(ctx, filter,
		option.WithSortBy(sortExpr),
		option.WithOffset(page*pageSize),
		option.WithLimit(pageSize),
	)
	if err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Total: total, Datasets: make([]domain.Dataset, 0, len(rows))}
	for _, row := range rows {
		resp.Datasets = append(resp.Datasets, *row)
	}
	return resp, nil
}

func (s *Service) SetDetectedType(ctx context.Context, id snowflake.ID, t domain.DatasetType, headers []string) error {
	encoded, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id.String(), map[string]any{
		"dataset_type":     string(t),
		"detected_headers": datatypes.JSON(encoded),
		"updated_at":       time.Now().UTC(),
	})
}

func (s *Service) SetSpan(ctx context.Context, id snowflake.ID, minDate, maxDate string, rowCount int64) error {
	return s.repo.Update(ctx, id.String(), map[string]any{
		"min_date":   minDate,
		"max_date":   maxDate,
		"row_count":  rowCount,
		"updated_at": time.Now().UTC(),
	})
}

func (s *Service) MarkProcessed(ctx context.Context, id snowflake.ID) error {
	return s.repo.Update(ctx, id.String(), map[string]any{
		"status":        domain.StatusProcessed,
		"error_message": nil,
		"updated_at":    time.Now().UTC(),
	})
}

func (s *Service) MarkFailed(ctx context.Context, id snowflake.ID, message string) error {
	return s.repo.Update(ctx, id.String(), map[string]any{
		"status":        domain.StatusFailed,
		"error_message": message,
		"updated_at":    time.Now().UTC(),
	})
}
