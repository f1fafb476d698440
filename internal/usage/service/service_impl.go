package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/cache"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	obsmetrics "github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Billing *config.BillingConfigHolder
	Clock   clock.Clock
	Owners  cache.OwnerCache          `optional:"true"`
	Metrics *obsmetrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	billing *config.BillingConfigHolder
	clock   clock.Clock
	owners  cache.OwnerCache
	metrics *obsmetrics.EngineMetrics
}

func New(p Params) domain.Service {
	owners := p.Owners
	if owners == nil {
		owners = cache.NewOwnerCache()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		billing: p.Billing,
		clock:   p.Clock,
		owners:  owners,
		metrics: p.Metrics,
	}
}

func (s *Service) ResolveBillingOwner(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	if userID == 0 {
		return 0, apperror.Invalid("user_id", domain.ErrInvalidUser, "user id is required")
	}
	if ownerID, ok := s.owners.Get(userID); ok {
		return ownerID, nil
	}

	user, err := apperror.RetryRead(ctx, func(ctx context.Context) (*domain.User, error) {
		user, err := s.repo.FindUser(ctx, s.db, userID)
		return user, apperror.FromDB(err)
	})
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperror.NotFound("user")
	}

	ownerID := user.ID
	if user.OwnerID != nil && *user.OwnerID != 0 {
		ownerID = *user.OwnerID
	}
	s.owners.Set(userID, ownerID)
	return ownerID, nil
}

func (s *Service) CheckUsageLimit(ctx context.Context, userID string, feature domain.Feature) (domain.UsageStatus, error) {
	ownerID, err := s.resolve(ctx, userID, feature)
	if err != nil {
		return domain.UsageStatus{}, err
	}
	usage, err := s.currentCounter(ctx, ownerID, feature, s.clock.Now())
	if err != nil {
		return domain.UsageStatus{}, err
	}
	return s.toStatus(ownerID, usage), nil
}

func (s *Service) IncrementUsage(ctx context.Context, userID string, feature domain.Feature) (domain.UsageStatus, error) {
	ownerID, err := s.resolve(ctx, userID, feature)
	if err != nil {
		return domain.UsageStatus{}, err
	}
	now := s.clock.Now()
	usage, err := s.currentCounter(ctx, ownerID, feature, now)
	if err != nil {
		return domain.UsageStatus{}, err
	}

	updated, err := s.repo.Increment(ctx, s.db, usage.ID, now)
	if err != nil {
		return domain.UsageStatus{}, apperror.FromDB(err)
	}
	if !updated {
		s.metrics.IncUsageRejection(string(feature))
		s.log.Info("usage.limit_reached",
			zap.String("owner_id", ownerID.String()),
			zap.String("feature", string(feature)),
			zap.Int64("limit", usage.LimitCount),
		)
		return s.toStatus(ownerID, usage), &apperror.Error{
			Kind:    apperror.KindBusinessLogic,
			Field:   string(feature),
			Code:    domain.ErrLimitReached.Error(),
			Message: fmt.Sprintf("%s limit of %d reached for this billing period", feature, usage.LimitCount),
			Err:     domain.ErrLimitReached,
		}
	}

	usage.CurrentCount++
	return s.toStatus(ownerID, usage), nil
}

func (s *Service) DecrementUsage(ctx context.Context, userID string, feature domain.Feature) (domain.UsageStatus, error) {
	ownerID, err := s.resolve(ctx, userID, feature)
	if err != nil {
		return domain.UsageStatus{}, err
	}
	now := s.clock.Now()
	usage, err := s.currentCounter(ctx, ownerID, feature, now)
	if err != nil {
		return domain.UsageStatus{}, err
	}

	updated, err := s.repo.Decrement(ctx, s.db, usage.ID, now)
	if err != nil {
		return domain.UsageStatus{}, apperror.FromDB(err)
	}
	if updated {
		usage.CurrentCount--
	}
	return s.toStatus(ownerID, usage), nil
}

func (s *Service) ResetUsageForPlan(ctx context.Context, userID string, planCode string) error {
	ownerID, err := s.resolveUser(ctx, userID)
	if err != nil {
		return err
	}
	plan, ok := s.billing.Get().FindPlan(planCode)
	if !ok {
		return apperror.Invalid("plan", domain.ErrUnknownPlan, fmt.Sprintf("plan %q is not available", strings.TrimSpace(planCode)))
	}

	now := s.clock.Now()
	start, end := domain.PeriodFor(plan.Cadence, now)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.DeleteForUser(ctx, tx, ownerID); err != nil {
			return err
		}
		for _, feature := range domain.Features {
			if err := s.repo.InsertIgnore(ctx, tx, &domain.FeatureUsage{
				ID:          s.genID.Generate(),
				UserID:      ownerID,
				FeatureType: feature,
				LimitCount:  limitFor(plan, feature),
				PeriodStart: start,
				PeriodEnd:   end,
				CreatedAt:   now,
				UpdatedAt:   now,
			}); err != nil {
				return err
			}
		}

		sub, err := s.repo.FindSubscription(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if sub == nil {
			sub = &domain.Subscription{ID: s.genID.Generate(), UserID: ownerID, CreatedAt: now}
		}
		sub.PlanCode = plan.Code
		sub.StartDate = now
		sub.EndDate = now.AddDate(0, 0, plan.DurationDays)
		sub.UpdatedAt = now
		return s.repo.SaveSubscription(ctx, tx, sub)
	})
	if err != nil {
		s.log.Error("usage.reset.failed", zap.String("owner_id", ownerID.String()), zap.String("plan", plan.Code), zap.Error(err))
		return apperror.FromDB(err)
	}

	s.log.Info("usage.reset", zap.String("owner_id", ownerID.String()), zap.String("plan", plan.Code))
	return nil
}

func (s *Service) CalculateProrataUpgrade(ctx context.Context, userID string, newPlan string) (domain.ProrationQuote, error) {
	ownerID, err := s.resolveUser(ctx, userID)
	if err != nil {
		return domain.ProrationQuote{}, err
	}
	billing := s.billing.Get()
	target, ok := billing.FindPlan(newPlan)
	if !ok {
		return domain.ProrationQuote{}, apperror.Invalid("new_plan", domain.ErrUnknownPlan, fmt.Sprintf("plan %q is not available", strings.TrimSpace(newPlan)))
	}

	sub, err := apperror.RetryRead(ctx, func(ctx context.Context) (*domain.Subscription, error) {
		sub, err := s.repo.FindSubscription(ctx, s.db, ownerID)
		return sub, apperror.FromDB(err)
	})
	if err != nil {
		return domain.ProrationQuote{}, err
	}

	now := s.clock.Now()
	current, _ := billing.FindPlan(billing.DefaultPlan)
	currentEnd := now
	if sub != nil {
		plan, ok := billing.FindPlan(sub.PlanCode)
		if !ok {
			return domain.ProrationQuote{}, apperror.BusinessLogic(domain.ErrUnknownPlan.Error(), fmt.Sprintf("current plan %q is no longer configured", sub.PlanCode))
		}
		current = plan
		currentEnd = sub.EndDate
	}

	quote := CalculateProrata(domain.ProrationInput{
		CurrentPlanPrice:    decimal.NewFromFloat(current.Price),
		CurrentDurationDays: current.DurationDays,
		CurrentEnd:          currentEnd,
		NewPlanPrice:        decimal.NewFromFloat(target.Price),
		Now:                 now,
	})
	quote.CurrentPlan = current.Code
	quote.NewPlan = target.Code
	return quote, nil
}

func (s *Service) SyncTeamUsage(ctx context.Context, ownerID string) (int, error) {
	owner, err := parseID(ownerID)
	if err != nil {
		return 0, err
	}
	members, err := s.repo.ListTeamMembers(ctx, s.db, owner)
	if err != nil {
		return 0, apperror.FromDB(err)
	}

	for _, member := range members {
		s.owners.Invalidate(member.ID)
		resolved, err := s.ResolveBillingOwner(ctx, member.ID)
		if err != nil {
			return 0, err
		}
		deleted, err := s.repo.DeleteForUser(ctx, s.db, member.ID)
		if err != nil {
			return 0, apperror.FromDB(err)
		}
		if deleted > 0 {
			s.log.Info("usage.team_member.synced",
				zap.String("member_id", member.ID.String()),
				zap.String("owner_id", resolved.String()),
				zap.Int64("stale_counters", deleted),
			)
		}
	}
	return len(members), nil
}

func (s *Service) RolloverExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	ids, err := s.repo.ListExpiredIDs(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteByIDs(ctx, s.db, ids)
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

func (s *Service) resolve(ctx context.Context, userID string, feature domain.Feature) (snowflake.ID, error) {
	if _, err := domain.ParseFeature(string(feature)); err != nil {
		return 0, apperror.Invalid("feature", domain.ErrInvalidFeature, fmt.Sprintf("feature %q is not tracked", feature))
	}
	return s.resolveUser(ctx, userID)
}

func (s *Service) resolveUser(ctx context.Context, userID string) (snowflake.ID, error) {
	id, err := parseID(userID)
	if err != nil {
		return 0, err
	}
	return s.ResolveBillingOwner(ctx, id)
}

// currentCounter loads the live counter, creating it from the owner's plan
// when the period has none yet.
func (s *Service) currentCounter(ctx context.Context, ownerID snowflake.ID, feature domain.Feature, now time.Time) (*domain.FeatureUsage, error) {
	usage, err := s.repo.FindCurrent(ctx, s.db, ownerID, feature, now)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if usage != nil {
		return usage, nil
	}

	plan, err := s.planFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	start, end := domain.PeriodFor(plan.Cadence, now)
	if err := s.repo.InsertIgnore(ctx, s.db, &domain.FeatureUsage{
		ID:          s.genID.Generate(),
		UserID:      ownerID,
		FeatureType: feature,
		LimitCount:  limitFor(plan, feature),
		PeriodStart: start,
		PeriodEnd:   end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return nil, apperror.FromDB(err)
	}

	usage, err = s.repo.FindCurrent(ctx, s.db, ownerID, feature, now)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if usage == nil {
		return nil, apperror.Database(fmt.Errorf("feature usage for %s not initialized", feature))
	}
	return usage, nil
}

func (s *Service) planFor(ctx context.Context, ownerID snowflake.ID) (config.PlanConfig, error) {
	billing := s.billing.Get()
	sub, err := s.repo.FindSubscription(ctx, s.db, ownerID)
	if err != nil {
		return config.PlanConfig{}, apperror.FromDB(err)
	}
	code := billing.DefaultPlan
	if sub != nil && sub.EndDate.After(s.clock.Now()) {
		code = sub.PlanCode
	}
	plan, ok := billing.FindPlan(code)
	if !ok {
		s.log.Warn("usage.plan.unknown", zap.String("owner_id", ownerID.String()), zap.String("plan", code))
		plan, _ = billing.FindPlan(billing.DefaultPlan)
	}
	return plan, nil
}

func (s *Service) toStatus(ownerID snowflake.ID, usage *domain.FeatureUsage) domain.UsageStatus {
	status := domain.UsageStatus{
		Feature:      usage.FeatureType,
		OwnerID:      ownerID.String(),
		CurrentCount: usage.CurrentCount,
		LimitCount:   usage.LimitCount,
		PeriodStart:  usage.PeriodStart,
		PeriodEnd:    usage.PeriodEnd,
	}
	if usage.LimitCount < 0 {
		status.Unlimited = true
		return status
	}

	if usage.LimitCount == 0 {
		status.UsagePercentage = 100
	} else {
		pct := decimal.NewFromInt(usage.CurrentCount).
			Div(decimal.NewFromInt(usage.LimitCount)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		status.UsagePercentage = pct.InexactFloat64()
	}
	status.LimitReached = usage.CurrentCount >= usage.LimitCount
	status.WarningThreshold = status.UsagePercentage >= s.billing.Get().UsageWarningThreshold
	return status
}

func limitFor(plan config.PlanConfig, feature domain.Feature) int64 {
	limit, ok := plan.Limits[string(feature)]
	if !ok {
		return config.UnlimitedUsage
	}
	return limit
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, apperror.Invalid("user_id", domain.ErrInvalidUser, "user id is not valid")
	}
	return id, nil
}
