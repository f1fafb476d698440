package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/clock"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/internal/product/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Usage    usagedomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	usage    usagedomain.Service
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		usage:    p.Usage,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Product{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, apperror.Invalid("name", domain.ErrInvalidName, "name is required")
	}
	if req.UnitPrice.IsNegative() {
		return domain.Product{}, apperror.Invalid("unit_price", domain.ErrInvalidPrice, "unit price cannot be negative")
	}
	if req.CostPrice.IsNegative() {
		return domain.Product{}, apperror.Invalid("cost_price", domain.ErrInvalidPrice, "cost price cannot be negative")
	}
	if req.Quantity < 0 {
		return domain.Product{}, apperror.Invalid("quantity", domain.ErrInvalidQuantity, "quantity cannot be negative")
	}
	if req.LowStockThreshold < 0 {
		return domain.Product{}, apperror.Invalid("low_stock_threshold", domain.ErrInvalidQuantity, "threshold cannot be negative")
	}

	status, err := s.usage.CheckUsageLimit(ctx, ownerID.String(), usagedomain.FeatureProducts)
	if err != nil {
		return domain.Product{}, err
	}
	if status.LimitReached && !status.Unlimited {
		return domain.Product{}, apperror.BusinessLogic(usagedomain.ErrLimitReached.Error(),
			fmt.Sprintf("products limit of %d reached for this billing period", status.LimitCount))
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:                s.genID.Generate(),
		OwnerID:           ownerID,
		Name:              name,
		SKU:               strings.TrimSpace(req.SKU),
		UnitPrice:         req.UnitPrice.Round(2),
		CostPrice:         req.CostPrice.Round(2),
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		s.log.Error("product.create.failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return domain.Product{}, apperror.FromDB(err)
	}

	if _, err := s.usage.IncrementUsage(ctx, ownerID.String(), usagedomain.FeatureProducts); err != nil {
		s.log.Warn("product.usage.increment_failed", zap.String("product_id", product.ID.String()), zap.Error(err))
	}
	s.audit(ctx, ownerID, "product.created", product.ID, map[string]any{
		"name":     product.Name,
		"quantity": product.Quantity,
	})
	return product, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	return apperror.RetryRead(ctx, func(ctx context.Context) ([]domain.Product, error) {
		items, err := s.repo.List(ctx, s.db, ownerID)
		return items, apperror.FromDB(err)
	})
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Product{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	productID, err := parseID(id)
	if err != nil {
		return domain.Product{}, err
	}
	item, err := apperror.RetryRead(ctx, func(ctx context.Context) (*domain.Product, error) {
		item, err := s.repo.FindByID(ctx, s.db, ownerID, productID)
		return item, apperror.FromDB(err)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, apperror.ProductNotFound(productID.String())
	}
	return *item, nil
}

func (s *Service) Restock(ctx context.Context, req domain.RestockRequest) (domain.Product, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Product{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	productID, err := parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Quantity <= 0 {
		return domain.Product{}, apperror.Invalid("quantity", domain.ErrInvalidQuantity, "quantity must be positive")
	}

	var product *domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.RestoreStock(ctx, tx, ownerID, productID, req.Quantity, s.clock.Now())
		if err != nil {
			return apperror.FromDB(err)
		}
		if !found {
			return apperror.ProductNotFound(productID.String())
		}
		product, err = s.repo.FindByID(ctx, tx, ownerID, productID)
		return apperror.FromDB(err)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.audit(ctx, ownerID, "product.restocked", productID, map[string]any{
		"added":    req.Quantity,
		"quantity": product.Quantity,
	})
	return *product, nil
}

func (s *Service) audit(ctx context.Context, ownerID snowflake.ID, action string, productID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := productID.String()
	if err := s.auditSvc.AuditLog(ctx, &ownerID, action, "product", &targetID, metadata); err != nil {
		s.log.Warn("product.audit.failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, apperror.Invalid("id", domain.ErrInvalidID, "product id is not valid")
	}
	return id, nil
}

