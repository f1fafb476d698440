package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateItem struct {
	ProductID   string           `json:"product_id"`
	Description string           `json:"description"`
	Quantity    int64            `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateRequest struct {
	CustomerID string       `json:"customer_id"`
	Currency   string       `json:"currency"`
	DueDate    *time.Time   `json:"due_date,omitempty"`
	Notes      string       `json:"notes"`
	Items      []CreateItem `json:"items"`
}

type OverdueInvoice struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    string          `json:"customer_id,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
}

type OverdueSummary struct {
	OwnerID          string           `json:"owner_id"`
	Count            int              `json:"count"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	Invoices         []OverdueInvoice `json:"invoices"`
}

type Service interface {
	CreateInvoice(ctx context.Context, req CreateRequest) (Invoice, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	UpdateStatus(ctx context.Context, invoiceID, newStatus string) (Invoice, error)
	// MarkOverdue forces draft and sent invoices due before now to overdue.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
	GetOverdueSummary(ctx context.Context, ownerID string) (OverdueSummary, error)
	RenderPDF(ctx context.Context, id string) ([]byte, error)
}

// StatusChange moves an invoice from one state to another and stamps the
// matching timestamp.
type StatusChange struct {
	From Status
	To   Status
	At   time.Time
}

type Repository interface {
	NextNumber(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Invoice, error)
	LockByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Invoice, error)
	// UpdateStatus applies change only while the row still holds change.From.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, change StatusChange) (bool, error)
	// ClaimOverdue locks up to limit open invoices due before now, skipping
	// rows another worker holds.
	ClaimOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Invoice, error)
	ForceOverdue(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) (int64, error)
	ListByStatus(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, status Status) ([]Invoice, error)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInvalidItems      = errors.New("invalid_items")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidDueDate    = errors.New("invalid_due_date")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrStatusConflict    = errors.New("status_conflict")
)
