package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) ListTeamMembers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&users).Error
	return users, err
}

func (r *repo) FindSubscription(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) SaveSubscription(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Save(sub).Error
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, userID snowflake.ID, feature domain.Feature, at time.Time) (*domain.FeatureUsage, error) {
	var usage domain.FeatureUsage
	err := db.WithContext(ctx).
		Where("user_id = ? AND feature_type = ? AND period_start <= ? AND period_end > ?", userID, feature, at, at).
		Order("period_start DESC").
		Limit(1).
		Find(&usage).Error
	if err != nil {
		return nil, err
	}
	if usage.ID == 0 {
		return nil, nil
	}
	return &usage, nil
}

func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, usage *domain.FeatureUsage) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature_type"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(usage).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE feature_usages
		 SET current_count = current_count + 1, updated_at = ?
		 WHERE id = ? AND (limit_count < 0 OR current_count < limit_count)`,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE feature_usages
		 SET current_count = current_count - 1, updated_at = ?
		 WHERE id = ? AND current_count > 0`,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) DeleteForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.FeatureUsage{})
	return result.RowsAffected, result.Error
}

func (r *repo) ListExpiredIDs(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	stmt := db.WithContext(ctx).
		Model(&domain.FeatureUsage{}).
		Where("period_end <= ?", before).
		Order("period_end ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Pluck("id", &ids).Error
	return ids, err
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.FeatureUsage{})
	return result.RowsAffected, result.Error
}
