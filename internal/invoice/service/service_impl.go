package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	"github.com/smallbiznis/salesengine/internal/invoice/document"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/salesengine/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultOverdueBatchSize = 100

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Clock     clock.Clock
	Repo      invoicedomain.Repository
	Products  productdomain.Repository
	Customers customerdomain.Service
	Ledger    ledgerdomain.Service
	Usage     usagedomain.Service
	AuditSvc  auditdomain.Service           `optional:"true"`
	Notifier  notificationdomain.Dispatcher `optional:"true"`
	Metrics   *obsmetrics.EngineMetrics     `optional:"true"`
	Renderer  document.Renderer             `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.Config
	clock     clock.Clock
	repo      invoicedomain.Repository
	products  productdomain.Repository
	customers customerdomain.Service
	ledger    ledgerdomain.Service
	usage     usagedomain.Service
	auditSvc  auditdomain.Service
	notifier  notificationdomain.Dispatcher
	metrics   *obsmetrics.EngineMetrics
	renderer  document.Renderer

	batchSize int
}

func NewService(p ServiceParam) invoicedomain.Service {
	batchSize := p.Cfg.Scheduler.BatchSize
	if batchSize <= 0 {
		batchSize = defaultOverdueBatchSize
	}
	renderer := p.Renderer
	if renderer == nil {
		renderer = document.NewPDFRenderer()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		cfg:       p.Cfg,
		clock:     p.Clock,
		repo:      p.Repo,
		products:  p.Products,
		customers: p.Customers,
		ledger:    p.Ledger,
		usage:     p.Usage,
		auditSvc:  p.AuditSvc,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
		renderer:  renderer,
		batchSize: batchSize,
	}
}

func (s *Service) GetInvoice(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := apperror.RetryRead(ctx, func(ctx context.Context) (*invoicedomain.Invoice, error) {
		invoice, err := s.repo.FindByID(ctx, s.db, ownerID, invoiceID)
		return invoice, apperror.FromDB(err)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, apperror.NotFound("invoice")
	}
	return *invoice, nil
}

// CreateInvoice stores a draft and reserves stock for every product line.
func (s *Service) CreateInvoice(ctx context.Context, req invoicedomain.CreateRequest) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if len(req.Items) == 0 {
		return invoicedomain.Invoice{}, apperror.Invalid("items", invoicedomain.ErrInvalidItems, "at least one item is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if len(currency) != 3 {
		return invoicedomain.Invoice{}, apperror.Invalid("currency", invoicedomain.ErrInvalidCurrency, "currency must be a 3-letter code")
	}

	now := s.clock.Now()
	dueDate := now.AddDate(0, 0, s.dueDays())
	if req.DueDate != nil {
		if req.DueDate.IsZero() {
			return invoicedomain.Invoice{}, apperror.Invalid("due_date", invoicedomain.ErrInvalidDueDate, "due_date is not valid")
		}
		dueDate = req.DueDate.UTC()
	}

	var customerID *snowflake.ID
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return invoicedomain.Invoice{}, apperror.Invalid("customer_id", invoicedomain.ErrInvalidCustomer, "customer_id is not valid")
		}
		exists, err := s.customers.Exists(ctx, ownerID, id)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		if !exists {
			return invoicedomain.Invoice{}, apperror.NotFound("customer")
		}
		customerID = &id
	}

	if err := s.checkUsage(ctx, ownerID); err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice := invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		CustomerID:  customerID,
		Status:      invoicedomain.StatusDraft,
		Currency:    currency,
		DueDate:     dueDate,
		Notes:       strings.TrimSpace(req.Notes),
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	items, err := s.buildItems(ctx, ownerID, invoice.ID, req.Items, now)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	for _, item := range items {
		invoice.TotalAmount = invoice.TotalAmount.Add(item.Amount)
	}
	invoice.Items = items

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.repo.NextNumber(ctx, tx, ownerID)
		if err != nil {
			return apperror.FromDB(err)
		}
		invoice.InvoiceNumber = number
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			return apperror.FromDB(err)
		}
		for _, item := range invoice.Items {
			if item.ProductID == nil {
				continue
			}
			ok, err := s.products.Reserve(ctx, tx, ownerID, *item.ProductID, item.Quantity, now)
			if err != nil {
				return apperror.FromDB(err)
			}
			if !ok {
				return apperror.InsufficientStock(item.ProductID.String(), item.Quantity)
			}
		}
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if _, err := s.usage.IncrementUsage(ctx, usageSubject(ctx, ownerID), usagedomain.FeatureInvoices); err != nil {
		s.log.Warn("invoice.usage.increment_failed",
			zap.String("owner_id", ownerID.String()),
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
	s.emitAudit(ctx, "invoice.created", &invoice, nil)
	return invoice, nil
}

func (s *Service) buildItems(ctx context.Context, ownerID, invoiceID snowflake.ID, inputs []invoicedomain.CreateItem, now time.Time) ([]invoicedomain.InvoiceItem, error) {
	productIDs := make([]snowflake.ID, 0, len(inputs))
	parsed := make([]*snowflake.ID, len(inputs))
	for i, input := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if input.Quantity <= 0 {
			return nil, apperror.Invalid(field+".quantity", invoicedomain.ErrInvalidQuantity, "quantity must be greater than zero")
		}
		if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
			return nil, apperror.Invalid(field+".unit_price", invoicedomain.ErrInvalidPrice, "unit_price cannot be negative")
		}
		raw := strings.TrimSpace(input.ProductID)
		if raw == "" {
			if input.UnitPrice == nil || strings.TrimSpace(input.Description) == "" {
				return nil, apperror.Invalid(field, invoicedomain.ErrInvalidItems, "a line without product_id needs a description and unit_price")
			}
			continue
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return nil, apperror.Invalid(field+".product_id", invoicedomain.ErrInvalidItems, "product_id is not valid")
		}
		parsed[i] = &id
		productIDs = append(productIDs, id)
	}

	byID := map[snowflake.ID]productdomain.Product{}
	if len(productIDs) > 0 {
		products, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]productdomain.Product, error) {
			items, err := s.products.FindByIDs(ctx, s.db, ownerID, productIDs)
			return items, apperror.FromDB(err)
		})
		if err != nil {
			return nil, err
		}
		for _, product := range products {
			byID[product.ID] = product
		}
	}

	items := make([]invoicedomain.InvoiceItem, 0, len(inputs))
	for i, input := range inputs {
		item := invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			OwnerID:     ownerID,
			InvoiceID:   invoiceID,
			ProductID:   parsed[i],
			Description: strings.TrimSpace(input.Description),
			Quantity:    input.Quantity,
			CreatedAt:   now,
		}
		if input.UnitPrice != nil {
			item.UnitPrice = input.UnitPrice.Round(2)
		}
		if parsed[i] != nil {
			product, ok := byID[*parsed[i]]
			if !ok {
				return nil, apperror.ProductNotFound(parsed[i].String())
			}
			if input.UnitPrice == nil {
				item.UnitPrice = product.UnitPrice
			}
			if item.Description == "" {
				item.Description = product.Name
			}
		}
		item.Amount = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)).Round(2)
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) checkUsage(ctx context.Context, ownerID snowflake.ID) error {
	status, err := s.usage.CheckUsageLimit(ctx, usageSubject(ctx, ownerID), usagedomain.FeatureInvoices)
	if err != nil {
		return err
	}
	if status.LimitReached && !status.Unlimited {
		s.metrics.IncUsageRejection(string(usagedomain.FeatureInvoices))
		return apperror.BusinessLogic(usagedomain.ErrLimitReached.Error(),
			fmt.Sprintf("invoices limit of %d reached for this billing period", status.LimitCount))
	}
	return nil
}

func (s *Service) dueDays() int {
	if s.cfg.InvoiceDueDays > 0 {
		return s.cfg.InvoiceDueDays
	}
	return 30
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"invoice_number": invoice.Number(),
		"status":         string(invoice.Status),
		"currency":       invoice.Currency,
		"total_amount":   invoice.TotalAmount.StringFixed(2),
	}
	if invoice.CustomerID != nil {
		metadata["customer_id"] = invoice.CustomerID.String()
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := invoice.ID.String()
	ownerID := invoice.OwnerID
	if err := s.auditSvc.AuditLog(ctx, &ownerID, action, "invoice", &targetID, metadata); err != nil {
		s.log.Warn("invoice.audit.failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) ownerIDFromContext(ctx context.Context) (snowflake.ID, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, apperror.Invalid("owner_id", invoicedomain.ErrInvalidOwner, "owner is required")
	}
	return ownerID, nil
}

func usageSubject(ctx context.Context, owner snowflake.ID) string {
	if userID, ok := ownercontext.UserIDFromContext(ctx); ok {
		return userID.String()
	}
	return owner.String()
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("id", invoicedomain.ErrInvalidID, "invoice id is not valid")
	}
	return id, nil
}

func parseOwner(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("owner_id", invoicedomain.ErrInvalidOwner, "owner_id is not a valid identifier")
	}
	return id, nil
}
