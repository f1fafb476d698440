package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is an inventory item. Quantity never drops below zero and
// ReservedQuantity counts units held by open invoices.
type Product struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	OwnerID           snowflake.ID    `json:"owner_id" gorm:"not null;index"`
	Name              string          `json:"name" gorm:"type:text;not null"`
	SKU               string          `json:"sku,omitempty" gorm:"type:text"`
	UnitPrice         decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	CostPrice         decimal.Decimal `json:"cost_price" gorm:"type:numeric(18,2);not null"`
	Quantity          int64           `json:"quantity" gorm:"not null;default:0"`
	ReservedQuantity  int64           `json:"reserved_quantity" gorm:"not null;default:0"`
	LowStockThreshold int64           `json:"low_stock_threshold" gorm:"not null;default:0"`
	CreatedAt         time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// IsLowStock reports whether quantity is at or below the alert threshold.
func (p Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.Quantity <= p.LowStockThreshold
}
