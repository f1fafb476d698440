package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE products SET quantity = quantity - ?, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND quantity >= ?`,
		qty,
		at.UTC(),
		id,
		ownerID,
		qty,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) RestoreStock(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Reserve(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE products SET reserved_quantity = reserved_quantity + ?, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND quantity - reserved_quantity >= ?`,
		qty,
		at.UTC(),
		id,
		ownerID,
		qty,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ReleaseReservation(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET reserved_quantity = CASE WHEN reserved_quantity > ? THEN reserved_quantity - ? ELSE 0 END,
		     updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		qty,
		qty,
		at.UTC(),
		id,
		ownerID,
	).Error
}

func (r *repo) DeductFulfilled(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END,
		     reserved_quantity = CASE WHEN reserved_quantity > ? THEN reserved_quantity - ? ELSE 0 END,
		     updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		qty,
		qty,
		qty,
		qty,
		at.UTC(),
		id,
		ownerID,
	).Error
}
