package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, method *PaymentMethod) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*PaymentMethod, error)
	FindByCode(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, code string) (*PaymentMethod, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]PaymentMethod, error)
	SetActive(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, active bool) (bool, error)
}

type CreateRequest struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	RequiredFields []string `json:"required_fields"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (PaymentMethod, error)
	List(ctx context.Context) ([]PaymentMethod, error)
	SetActive(ctx context.Context, id string, active bool) (PaymentMethod, error)
	// Lookup resolves an active method by id or code.
	Lookup(ctx context.Context, ownerID snowflake.ID, ref string) (PaymentMethod, error)
	// Validate checks details against the method's required fields.
	Validate(ctx context.Context, ownerID snowflake.ID, ref string, details map[string]string) (PaymentMethod, error)
}

var (
	ErrInvalidOwner   = errors.New("invalid_owner")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidType    = errors.New("invalid_type")
	ErrInvalidID      = errors.New("invalid_id")
	ErrMissingFields  = errors.New("missing_fields")
	ErrInactiveMethod = errors.New("payment_method_inactive")
)
