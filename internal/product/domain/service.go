package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	Quantity          int64           `json:"quantity"`
	LowStockThreshold int64           `json:"low_stock_threshold"`
}

type RestockRequest struct {
	ID       string `json:"-"`
	Quantity int64  `json:"quantity"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Restock(ctx context.Context, req RestockRequest) (Product, error)
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidID       = errors.New("invalid_id")
)
