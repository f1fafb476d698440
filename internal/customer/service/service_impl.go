package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/customer/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/pkg/db/option"
	"github.com/smallbiznis/salesengine/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.Customer]
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, apperror.Invalid("name", domain.ErrInvalidName, "name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Customer{}, apperror.Invalid("email", domain.ErrInvalidEmail, "email is not valid")
		}
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Name:      name,
		Email:     strings.ToLower(email),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &customer); err != nil {
		s.log.Error("customer.create.failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return domain.Customer{}, apperror.FromDB(err)
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}

	items, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]*domain.Customer, error) {
		rows, err := s.repo.ForOwner(ownerID).Find(ctx, &domain.Customer{},
			option.WithSortBy(option.QuerySortBy{Field: "name"}),
		)
		return rows, apperror.FromDB(err)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, apperror.Invalid("id", domain.ErrInvalidID, "customer id is not valid")
	}

	item, err := s.repo.ForOwner(ownerID).FindOne(ctx, &domain.Customer{ID: customerID})
	if err != nil {
		return domain.Customer{}, apperror.FromDB(err)
	}
	if item == nil {
		return domain.Customer{}, apperror.NotFound("customer")
	}
	return *item, nil
}

func (s *Service) Exists(ctx context.Context, ownerID, customerID snowflake.ID) (bool, error) {
	count, err := s.repo.ForOwner(ownerID).Count(ctx, &domain.Customer{ID: customerID})
	if err != nil {
		return false, apperror.FromDB(err)
	}
	return count > 0, nil
}
