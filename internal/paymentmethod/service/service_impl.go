package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("paymentmethod.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.PaymentMethod, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.PaymentMethod{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PaymentMethod{}, apperror.Invalid("name", domain.ErrInvalidName, "name is required")
	}
	methodType := domain.Type(strings.ToLower(strings.TrimSpace(req.Type)))
	defaults, ok := domain.DefaultRequiredFields[methodType]
	if !ok {
		return domain.PaymentMethod{}, apperror.Invalid("type", domain.ErrInvalidType, fmt.Sprintf("payment method type %q is not supported", req.Type))
	}

	required := normalizeFields(append(append([]string{}, defaults...), req.RequiredFields...))
	now := time.Now().UTC()
	method := domain.PaymentMethod{
		ID:             s.genID.Generate(),
		OwnerID:        ownerID,
		Code:           slug.Make(name),
		Name:           name,
		Type:           methodType,
		RequiredFields: datatypes.JSONSlice[string](required),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, &method); err != nil {
		s.log.Error("paymentmethod.create.failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return domain.PaymentMethod{}, apperror.FromDB(err)
	}

	if s.auditSvc != nil {
		targetID := method.ID.String()
		if err := s.auditSvc.AuditLog(ctx, &ownerID, "payment_method.created", "payment_method", &targetID, map[string]any{
			"code": method.Code,
			"type": string(method.Type),
		}); err != nil {
			s.log.Warn("paymentmethod.audit.failed", zap.String("method_id", targetID), zap.Error(err))
		}
	}
	return method, nil
}

func (s *Service) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	return apperror.RetryRead(ctx, func(ctx context.Context) ([]domain.PaymentMethod, error) {
		items, err := s.repo.List(ctx, s.db, ownerID)
		return items, apperror.FromDB(err)
	})
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (domain.PaymentMethod, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.PaymentMethod{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	methodID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.PaymentMethod{}, apperror.Invalid("id", domain.ErrInvalidID, "payment method id is not valid")
	}

	found, err := s.repo.SetActive(ctx, s.db, ownerID, methodID, active)
	if err != nil {
		return domain.PaymentMethod{}, apperror.FromDB(err)
	}
	if !found {
		return domain.PaymentMethod{}, apperror.NotFound("payment_method")
	}
	method, err := s.repo.FindByID(ctx, s.db, ownerID, methodID)
	if err != nil {
		return domain.PaymentMethod{}, apperror.FromDB(err)
	}
	return *method, nil
}

func (s *Service) Lookup(ctx context.Context, ownerID snowflake.ID, ref string) (domain.PaymentMethod, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.PaymentMethod{}, apperror.Invalid("payment_method_id", domain.ErrInvalidID, "payment method is required")
	}

	method, err := apperror.RetryRead(ctx, func(ctx context.Context) (*domain.PaymentMethod, error) {
		if id, err := snowflake.ParseString(ref); err == nil {
			method, err := s.repo.FindByID(ctx, s.db, ownerID, id)
			if err != nil || method != nil {
				return method, apperror.FromDB(err)
			}
		}
		method, err := s.repo.FindByCode(ctx, s.db, ownerID, slug.Make(ref))
		return method, apperror.FromDB(err)
	})
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if method == nil {
		return domain.PaymentMethod{}, apperror.NotFound("payment_method")
	}
	if !method.Active {
		return domain.PaymentMethod{}, apperror.BusinessLogic(domain.ErrInactiveMethod.Error(), fmt.Sprintf("payment method %s is inactive", method.Name))
	}
	return *method, nil
}

func (s *Service) Validate(ctx context.Context, ownerID snowflake.ID, ref string, details map[string]string) (domain.PaymentMethod, error) {
	method, err := s.Lookup(ctx, ownerID, ref)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if missing := MissingFields(method, details); len(missing) > 0 {
		return method, &apperror.Error{
			Kind:    apperror.KindValidation,
			Field:   "payment_details",
			Code:    domain.ErrMissingFields.Error(),
			Message: fmt.Sprintf("%s requires: %s", method.Name, strings.Join(missing, ", ")),
			Err:     domain.ErrMissingFields,
		}
	}
	return method, nil
}

// MissingFields returns the required fields absent or blank in details.
func MissingFields(method domain.PaymentMethod, details map[string]string) []string {
	var missing []string
	for _, field := range method.RequiredFields {
		if strings.TrimSpace(details[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func normalizeFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}
