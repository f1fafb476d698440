package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for a single model type. A store
// returned by ForOwner adds `owner_id = ?` to every read, update and delete.
// FindOne returns (nil, nil) when no row matches.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	ForOwner(ownerID snowflake.ID) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	// Update reports whether a row matched the id within the store's scope.
	Update(ctx context.Context, resourceID any, fields map[string]any) (bool, error)
	Delete(ctx context.Context, resourceID any) (bool, error)
	Count(ctx context.Context, query *T) (int64, error)
}
