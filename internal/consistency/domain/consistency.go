// Package domain describes referential and balance checks over an owner's records.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type IssueCode string

const (
	IssueMissingCustomer     IssueCode = "missing_customer"
	// IssueCreditWithoutDebtor is a Credit sale whose customer row is gone.
	// It is reported only.
	IssueCreditWithoutDebtor IssueCode = "credit_without_customer"
	IssueMissingProduct      IssueCode = "missing_product"
	IssueOrphanPayment       IssueCode = "orphan_payment"
	IssueOrphanLedgerEntry   IssueCode = "orphan_ledger_entry"
	IssueCreditWithZeroDue   IssueCode = "credit_with_zero_due"
	IssueBalanceMismatch     IssueCode = "balance_mismatch"
	IssuePaidWithDue         IssueCode = "paid_with_outstanding_due"
	IssueNegativeStock       IssueCode = "negative_stock"
)

// Repairable reports whether Repair fixes issues with this code.
func (c IssueCode) Repairable() bool {
	switch c {
	case IssueMissingCustomer, IssueOrphanPayment, IssueOrphanLedgerEntry:
		return true
	}
	return false
}

type Issue struct {
	Code     IssueCode `json:"code"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Detail   string    `json:"detail,omitempty"`
}

type Report struct {
	OwnerID   string            `json:"owner_id"`
	CheckedAt time.Time         `json:"checked_at"`
	Issues    []Issue           `json:"issues"`
	Counts    map[IssueCode]int `json:"counts"`
}

func (r Report) Clean() bool { return len(r.Issues) == 0 }

type RepairResult struct {
	OwnerID              string `json:"owner_id"`
	CustomerRefsCleared  int64  `json:"customer_refs_cleared"`
	PaymentsDeleted      int64  `json:"payments_deleted"`
	LedgerEntriesDeleted int64  `json:"ledger_entries_deleted"`
	// Unrepaired counts balance and stock issues left for manual review.
	Unrepaired int `json:"unrepaired"`
}

// Ref identifies a row found by a check and the record it points at.
type Ref struct {
	ID        snowflake.ID
	RelatedID snowflake.ID
	Detail    string
}

type Repository interface {
	SalesWithMissingCustomer(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Ref, error)
	SalesWithMissingProduct(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Ref, error)
	OrphanPayments(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Ref, error)
	OrphanLedgerEntries(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Ref, error)
	NegativeStock(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Ref, error)

	// ClearCustomer nulls customer_id on the given sales unless they are Credit.
	ClearCustomer(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, saleIDs []snowflake.ID) (int64, error)
	DeletePayments(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (int64, error)
	DeleteLedgerEntries(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (int64, error)
}

type Service interface {
	Audit(ctx context.Context, ownerID string) (Report, error)
	// Repair fixes dangling references in one transaction. Balance and stock
	// issues are reported only.
	Repair(ctx context.Context, ownerID string) (RepairResult, error)
}

var ErrInvalidOwner = errors.New("invalid_owner")
