package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	"github.com/smallbiznis/salesengine/internal/receivable/domain"
	revenuedomain "github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Billing        *config.BillingConfigHolder
	Repo           domain.Repository
	Sales          saledomain.Repository
	Ledger         ledgerdomain.Service
	PaymentMethods paymentmethoddomain.Service
	Publisher      revenuedomain.EventPublisher `optional:"true"`
	AuditSvc       auditdomain.Service          `optional:"true"`
	Metrics        *obsmetrics.EngineMetrics    `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	billing        *config.BillingConfigHolder
	repo           domain.Repository
	sales          saledomain.Repository
	ledger         ledgerdomain.Service
	paymentMethods paymentmethoddomain.Service
	publisher      revenuedomain.EventPublisher
	auditSvc       auditdomain.Service
	metrics        *obsmetrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("receivable.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		billing:        p.Billing,
		repo:           p.Repo,
		sales:          p.Sales,
		ledger:         p.Ledger,
		paymentMethods: p.PaymentMethods,
		publisher:      p.Publisher,
		auditSvc:       p.AuditSvc,
		metrics:        p.Metrics,
	}
}

func (s *Service) ListPayments(ctx context.Context, saleID string) ([]saledomain.SalePayment, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	id, err := parseID(saleID)
	if err != nil {
		return nil, err
	}

	sale, err := apperror.RetryRead(ctx, func(ctx context.Context) (*saledomain.Sale, error) {
		sale, err := s.sales.FindByID(ctx, s.db, ownerID, id)
		return sale, apperror.FromDB(err)
	})
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, apperror.NotFound("sale")
	}

	return apperror.RetryRead(ctx, func(ctx context.Context) ([]saledomain.SalePayment, error) {
		items, err := s.sales.ListPayments(ctx, s.db, ownerID, id)
		return items, apperror.FromDB(err)
	})
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("id", domain.ErrInvalidID, "sale id is not valid")
	}
	return id, nil
}

func parseOwner(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner_id is not a valid identifier")
	}
	return id, nil
}
