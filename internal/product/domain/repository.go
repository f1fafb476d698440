package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository holds the stock mutation primitives. Each is one conditional
// statement so concurrent callers never read-modify-write quantity. Mutations
// stamp updated_at with the caller's clock.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]Product, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Product, error)

	// DecrementStock subtracts qty only when quantity >= qty.
	DecrementStock(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error)
	// RestoreStock adds qty back and reports false when the product is gone.
	RestoreStock(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error)
	// Reserve holds qty only when unreserved stock covers it.
	Reserve(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) (bool, error)
	ReleaseReservation(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) error
	// DeductFulfilled removes qty from quantity and reserved_quantity, each capped at zero.
	DeductFulfilled(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, qty int64, at time.Time) error
}
