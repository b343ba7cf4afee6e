package repository

import (
	"context"

	"github.com/smallbiznis/usagehub/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store shared by feature repositories.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FirstOrdered(ctx context.Context, query *T, order string) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
