package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FeatureUsage is the live counter of one feature for one billing period.
// Unlimited plans store LimitCount = -1.
type FeatureUsage struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID       snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_feature_usages_period,priority:1"`
	FeatureType  Feature      `json:"feature_type" gorm:"type:text;not null;uniqueIndex:ux_feature_usages_period,priority:2"`
	CurrentCount int64        `json:"current_count" gorm:"not null;default:0"`
	LimitCount   int64        `json:"limit_count" gorm:"not null"`
	PeriodStart  time.Time    `json:"period_start" gorm:"not null;uniqueIndex:ux_feature_usages_period,priority:3"`
	PeriodEnd    time.Time    `json:"period_end" gorm:"not null;index"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (FeatureUsage) TableName() string { return "feature_usages" }

// User is an account. A nil OwnerID marks a billing owner; team members
// point at the owner that created them.
type User struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	OwnerID   *snowflake.ID `json:"owner_id,omitempty" gorm:"index"`
	Name      string        `json:"name" gorm:"type:text"`
	Email     string        `json:"email" gorm:"type:text"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

type Subscription struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex"`
	PlanCode  string       `json:"plan_code" gorm:"type:text;not null"`
	StartDate time.Time    `json:"start_date" gorm:"not null"`
	EndDate   time.Time    `json:"end_date" gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }
