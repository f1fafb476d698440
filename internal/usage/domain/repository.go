package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindUser(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	ListTeamMembers(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]User, error)
	FindSubscription(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)
	SaveSubscription(ctx context.Context, db *gorm.DB, sub *Subscription) error

	FindCurrent(ctx context.Context, db *gorm.DB, userID snowflake.ID, feature Feature, at time.Time) (*FeatureUsage, error)
	InsertIgnore(ctx context.Context, db *gorm.DB, usage *FeatureUsage) error
	// Increment adds one unless the limit is reached and reports whether a row changed.
	Increment(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	DeleteForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	ListExpiredIDs(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]snowflake.ID, error)
	DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
}
