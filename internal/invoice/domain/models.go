// Package domain contains persistence models for invoicing.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Invoice is a bill issued to a customer. Lines reserve stock until the
// invoice is paid or cancelled.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	OwnerID       snowflake.ID    `json:"owner_id" gorm:"not null;index;uniqueIndex:ux_invoices_owner_number,priority:1"`
	InvoiceNumber int64           `json:"invoice_number" gorm:"not null;uniqueIndex:ux_invoices_owner_number,priority:2"`
	CustomerID    *snowflake.ID   `json:"customer_id,omitempty" gorm:"index"`
	Status        Status          `json:"status" gorm:"type:text;not null;default:'draft';index:idx_invoices_status_due,priority:1"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(18,2);not null"`
	Currency      string          `json:"currency" gorm:"type:text;not null"`
	DueDate       time.Time       `json:"due_date" gorm:"not null;index:idx_invoices_status_due,priority:2"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	Notes         string          `json:"notes,omitempty" gorm:"type:text"`
	Items         []InvoiceItem   `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Number renders the owner-scoped invoice number.
func (i Invoice) Number() string {
	return fmt.Sprintf("INV-%06d", i.InvoiceNumber)
}

// InvoiceItem represents a line on an invoice.
type InvoiceItem struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OwnerID     snowflake.ID    `json:"owner_id" gorm:"not null;index"`
	InvoiceID   snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	ProductID   *snowflake.ID   `json:"product_id,omitempty" gorm:"index"`
	Description string          `json:"description" gorm:"type:text"`
	Quantity    int64           `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(18,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
