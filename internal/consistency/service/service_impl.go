package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/consistency/domain"
	revenuedomain "github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Revenue  revenuedomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	revenue  revenuedomain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("consistency.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		revenue:  p.Revenue,
		auditSvc: p.AuditSvc,
	}
}

var integrityIssues = map[revenuedomain.IntegrityCode]domain.IssueCode{
	revenuedomain.IntegrityCreditWithZeroDue:      domain.IssueCreditWithZeroDue,
	revenuedomain.IntegrityBalanceMismatch:        domain.IssueBalanceMismatch,
	revenuedomain.IntegrityPaidWithOutstandingDue: domain.IssuePaidWithDue,
}

func (s *Service) Audit(ctx context.Context, ownerID string) (domain.Report, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := s.audit(ctx, s.db, owner)
	if err != nil {
		return domain.Report{}, apperror.FromDB(err)
	}
	s.log.Info("consistency.audit.completed",
		zap.String("owner_id", owner.String()),
		zap.Int("issues", len(report.Issues)),
	)
	return report, nil
}

func (s *Service) audit(ctx context.Context, db *gorm.DB, owner snowflake.ID) (domain.Report, error) {
	report := domain.Report{
		OwnerID:   owner.String(),
		CheckedAt: s.clock.Now(),
		Issues:    []domain.Issue{},
		Counts:    map[domain.IssueCode]int{},
	}
	add := func(code domain.IssueCode, entity string, id snowflake.ID, detail string) {
		report.Issues = append(report.Issues, domain.Issue{Code: code, Entity: entity, EntityID: id.String(), Detail: detail})
		report.Counts[code]++
	}

	checks := []struct {
		code   domain.IssueCode
		entity string
		find   func(context.Context, *gorm.DB, snowflake.ID) ([]domain.Ref, error)
		detail func(domain.Ref) string
	}{
		{domain.IssueMissingProduct, "sale", s.repo.SalesWithMissingProduct, func(r domain.Ref) string { return "product " + r.RelatedID.String() }},
		{domain.IssueOrphanPayment, "sale_payment", s.repo.OrphanPayments, func(r domain.Ref) string { return "sale " + r.RelatedID.String() }},
		{domain.IssueOrphanLedgerEntry, "ledger_transaction", s.repo.OrphanLedgerEntries, func(r domain.Ref) string { return r.Detail + " " + r.RelatedID.String() }},
		{domain.IssueNegativeStock, "product", s.repo.NegativeStock, func(r domain.Ref) string { return r.Detail }},
	}
	missing, err := s.repo.SalesWithMissingCustomer(ctx, db, owner)
	if err != nil {
		return domain.Report{}, err
	}
	for _, ref := range missing {
		code := domain.IssueMissingCustomer
		if saledomain.PaymentStatus(ref.Detail) == saledomain.PaymentStatusCredit {
			code = domain.IssueCreditWithoutDebtor
		}
		add(code, "sale", ref.ID, "customer "+ref.RelatedID.String())
	}

	for _, check := range checks {
		refs, err := check.find(ctx, db, owner)
		if err != nil {
			return domain.Report{}, err
		}
		for _, ref := range refs {
			add(check.code, check.entity, ref.ID, check.detail(ref))
		}
	}

	sales, err := s.revenue.Suspicious(ctx, db, owner)
	if err != nil {
		return domain.Report{}, err
	}
	for _, sale := range sales {
		for _, code := range revenuedomain.Classify(sale) {
			add(integrityIssues[code], "sale", sale.ID, fmt.Sprintf("%s total=%s paid=%s due=%s",
				sale.PaymentStatus, sale.TotalAmount.StringFixed(2), sale.AmountPaid.StringFixed(2), sale.AmountDue.StringFixed(2)))
		}
	}
	return report, nil
}

func (s *Service) Repair(ctx context.Context, ownerID string) (domain.RepairResult, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.RepairResult{}, err
	}

	result := domain.RepairResult{OwnerID: owner.String()}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := s.audit(ctx, tx, owner)
		if err != nil {
			return err
		}
		byCode := map[domain.IssueCode][]snowflake.ID{}
		for _, issue := range report.Issues {
			if !issue.Code.Repairable() {
				result.Unrepaired++
				continue
			}
			id, err := snowflake.ParseString(issue.EntityID)
			if err != nil {
				return err
			}
			byCode[issue.Code] = append(byCode[issue.Code], id)
		}

		if result.CustomerRefsCleared, err = s.repo.ClearCustomer(ctx, tx, owner, byCode[domain.IssueMissingCustomer]); err != nil {
			return err
		}
		if result.PaymentsDeleted, err = s.repo.DeletePayments(ctx, tx, owner, byCode[domain.IssueOrphanPayment]); err != nil {
			return err
		}
		if result.LedgerEntriesDeleted, err = s.repo.DeleteLedgerEntries(ctx, tx, owner, byCode[domain.IssueOrphanLedgerEntry]); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return domain.RepairResult{}, apperror.FromDB(err)
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, &owner, "consistency.repaired", "owner", nil, map[string]any{
			"customer_refs_cleared":  result.CustomerRefsCleared,
			"payments_deleted":       result.PaymentsDeleted,
			"ledger_entries_deleted": result.LedgerEntriesDeleted,
			"unrepaired":             result.Unrepaired,
		}); err != nil {
			s.log.Warn("consistency.audit.failed", zap.Error(err))
		}
	}
	s.log.Info("consistency.repaired",
		zap.String("owner_id", owner.String()),
		zap.Int64("customer_refs_cleared", result.CustomerRefsCleared),
		zap.Int64("payments_deleted", result.PaymentsDeleted),
		zap.Int64("ledger_entries_deleted", result.LedgerEntriesDeleted),
		zap.Int("unrepaired", result.Unrepaired),
	)
	return result, nil
}

func parseOwner(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner_id is not a valid identifier")
	}
	return id, nil
}
