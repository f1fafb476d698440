package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/salesengine/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Cfg            config.Config
	Clock          clock.Clock
	Repo           domain.Repository
	Products       productdomain.Repository
	Ledger         ledgerdomain.Service
	Usage          usagedomain.Service
	Customers      customerdomain.Service
	PaymentMethods paymentmethoddomain.Service
	AuditSvc       auditdomain.Service           `optional:"true"`
	Notifier       notificationdomain.Dispatcher `optional:"true"`
	Limiter        domain.Limiter                `optional:"true"`
	Metrics        *obsmetrics.EngineMetrics     `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	currency       string
	storeMode      string
	repo           domain.Repository
	products       productdomain.Repository
	ledger         ledgerdomain.Service
	usage          usagedomain.Service
	customers      customerdomain.Service
	paymentMethods paymentmethoddomain.Service
	auditSvc       auditdomain.Service
	notifier       notificationdomain.Dispatcher
	limiter        domain.Limiter
	metrics        *obsmetrics.EngineMetrics
}

func New(p Params) domain.Service {
	currency := strings.TrimSpace(p.Cfg.DefaultCurrency)
	if currency == "" {
		currency = "NGN"
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("sale.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		currency:       currency,
		storeMode:      p.Cfg.StoreMode,
		repo:           p.Repo,
		products:       p.Products,
		ledger:         p.Ledger,
		usage:          p.Usage,
		customers:      p.Customers,
		paymentMethods: p.PaymentMethods,
		auditSvc:       p.AuditSvc,
		notifier:       p.Notifier,
		limiter:        p.Limiter,
		metrics:        p.Metrics,
	}
}

func (s *Service) GetSale(ctx context.Context, saleID, ownerID string) (domain.SaleRecord, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	id, err := parseSaleID(saleID)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	sale, err := apperror.RetryRead(ctx, func(ctx context.Context) (*domain.Sale, error) {
		sale, err := s.repo.FindByID(ctx, s.db, owner, id)
		return sale, apperror.FromDB(err)
	})
	if err != nil {
		return domain.SaleRecord{}, err
	}
	if sale == nil {
		return domain.SaleRecord{}, apperror.NotFound("sale")
	}
	return domain.SaleRecord{Sale: *sale}, nil
}

func (s *Service) ListSales(ctx context.Context, ownerID string, filter domain.ListFilter) ([]domain.Sale, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}

	query := domain.ListQuery{From: filter.From, To: filter.To, Limit: filter.Limit}
	if raw := strings.TrimSpace(filter.Status); raw != "" {
		status, ok := domain.ParsePaymentStatus(raw)
		if !ok {
			return nil, apperror.Invalid("payment_status", domain.ErrInvalidStatus, fmt.Sprintf("payment_status %q is not valid", raw))
		}
		query.Status = status
	}
	if raw := strings.TrimSpace(filter.CustomerID); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, apperror.Invalid("customer_id", domain.ErrInvalidCustomer, "customer_id is not valid")
		}
		query.CustomerID = &customerID
	}
	if query.Limit <= 0 {
		query.Limit = defaultListLimit
	}
	if query.Limit > maxListLimit {
		query.Limit = maxListLimit
	}

	return apperror.RetryRead(ctx, func(ctx context.Context) ([]domain.Sale, error) {
		items, err := s.repo.List(ctx, s.db, owner, query)
		return items, apperror.FromDB(err)
	})
}

// usageSubject is the acting user when known, so team members resolve to
// their owner's quota.
func usageSubject(ctx context.Context, owner snowflake.ID) string {
	if userID, ok := ownercontext.UserIDFromContext(ctx); ok {
		return userID.String()
	}
	return owner.String()
}

func (s *Service) audit(ctx context.Context, owner snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, &owner, action, "sale", &target, metadata); err != nil {
		s.log.Warn("sale.audit.failed", zap.String("action", action), zap.Error(err))
	}
}

func parseOwner(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner_id is not a valid identifier")
	}
	return id, nil
}

func parseSaleID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("id", domain.ErrInvalidID, "sale id is not valid")
	}
	return id, nil
}
