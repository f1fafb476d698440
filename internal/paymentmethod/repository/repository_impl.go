package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, method *domain.PaymentMethod) error {
	return db.WithContext(ctx).Create(method).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.PaymentMethod, error) {
	return r.findOne(ctx, db, "owner_id = ? AND id = ?", ownerID, id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, code string) (*domain.PaymentMethod, error) {
	return r.findOne(ctx, db, "owner_id = ? AND code = ?", ownerID, code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := db.WithContext(ctx).Where(query, args...).Limit(1).Find(&method).Error
	if err != nil {
		return nil, err
	}
	if method.ID == 0 {
		return nil, nil
	}
	return &method, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.PaymentMethod, error) {
	var items []domain.PaymentMethod
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, active bool) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.PaymentMethod{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
