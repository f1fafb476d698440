package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db      *gorm.DB
	ownerID snowflake.ID
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, ownerID: r.ownerID}
}

func (r *store[T]) ForOwner(ownerID snowflake.ID) Repository[T] {
	return &store[T]{db: r.db, ownerID: ownerID}
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := r.buildQuery(ctx, query, opts...).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	err := r.buildQuery(ctx, query, opts...).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) Update(ctx context.Context, resourceID any, fields map[string]any) (bool, error) {
	res := r.scoped(ctx).Model(new(T)).Where("id = ?", resourceID).Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *store[T]) Delete(ctx context.Context, resourceID any) (bool, error) {
	res := r.scoped(ctx).Where("id = ?", resourceID).Delete(new(T))
	return res.RowsAffected > 0, res.Error
}

func (r *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := r.scoped(ctx).Model(new(T)).Where(query).Count(&count).Error
	return count, err
}

func (r *store[T]) scoped(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.ownerID != 0 {
		db = db.Where("owner_id = ?", r.ownerID)
	}
	return db
}

func (r *store[T]) buildQuery(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	db := r.scoped(ctx).Where(filter)
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
