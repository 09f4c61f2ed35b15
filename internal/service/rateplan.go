package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"settlement/internal/config"
	"settlement/internal/domain"
	internalRedis "settlement/internal/redis"
	"settlement/internal/repository"
)

// RatePlanService owns the rate table and status set used by settlement runs.
// Reads go through the plan cache; writes invalidate it so the next run
// picks up the change.
type RatePlanService struct {
	repo                repository.RatePlanRepository
	cache               internalRedis.PlanCacheInterface
	notificationService *NotificationService
	defaults            domain.RatePlan
	logger              *zap.Logger
}

// NewRatePlanService creates a new RatePlanService. repo, cache and
// notificationService may be nil; without a repo the defaults are served.
func NewRatePlanService(
	repo repository.RatePlanRepository,
	cache internalRedis.PlanCacheInterface,
	notificationService *NotificationService,
	defaults domain.RatePlan,
	logger *zap.Logger,
) *RatePlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatePlanService{
		repo:                repo,
		cache:               cache,
		notificationService: notificationService,
		defaults:            defaults,
		logger:              logger,
	}
}

// DefaultPlan builds the fallback rate plan from configuration.
func DefaultPlan(cfg config.SettlementConfig) domain.RatePlan {
	plan := domain.RatePlan{SelfInsuredKeywords: cfg.SelfInsuredKeywords}

	for category, rate := range cfg.Rates {
		plan.Rates = append(plan.Rates, domain.CoverageRate{Category: category, Rate: rate})
	}
	sort.Slice(plan.Rates, func(i, j int) bool { return plan.Rates[i].Category < plan.Rates[j].Category })

	payable := make(map[string]bool, len(cfg.PayableStatuses))
	codes := make(map[string]struct{})
	for _, code := range cfg.PayableStatuses {
		payable[code] = true
		codes[code] = struct{}{}
	}
	for code := range cfg.StatusLabels {
		codes[code] = struct{}{}
	}
	for code := range codes {
		plan.Statuses = append(plan.Statuses, domain.SettlementStatus{
			Code:    code,
			Label:   cfg.StatusLabels[code],
			Payable: payable[code],
		})
	}
	sort.Slice(plan.Statuses, func(i, j int) bool { return plan.Statuses[i].Code < plan.Statuses[j].Code })

	return plan
}

// EnsureDefaults seeds an empty store with the default plan.
func (s *RatePlanService) EnsureDefaults(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	rates, err := s.repo.ListRates(ctx)
	if err != nil {
		return fmt.Errorf("list rates: %w", err)
	}
	statuses, err := s.repo.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("list statuses: %w", err)
	}

	if len(rates) == 0 {
		for _, r := range s.defaults.Rates {
			if err := s.repo.UpsertRate(ctx, r); err != nil {
				return fmt.Errorf("seed rate %q: %w", r.Category, err)
			}
		}
	}
	if len(statuses) == 0 {
		for _, st := range s.defaults.Statuses {
			if err := s.repo.UpsertStatus(ctx, st); err != nil {
				return fmt.Errorf("seed status %q: %w", st.Code, err)
			}
		}
	}
	return nil
}

// Current returns the plan a run should use.
func (s *RatePlanService) Current(ctx context.Context) (*domain.RatePlan, error) {
	if s.cache != nil {
		plan, err := s.cache.GetRatePlan(ctx)
		if err != nil {
			s.logger.Warn("rate plan cache read failed", zap.Error(err))
		} else if plan != nil {
			return plan, nil
		}
	}

	if s.repo == nil {
		plan := s.defaults
		return &plan, nil
	}

	rates, err := s.repo.ListRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	statuses, err := s.repo.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}

	plan := &domain.RatePlan{
		Rates:               rates,
		Statuses:            statuses,
		SelfInsuredKeywords: s.defaults.SelfInsuredKeywords,
	}
	if len(statuses) == 0 {
		plan.Statuses = s.defaults.Statuses
	}

	if s.cache != nil {
		if err := s.cache.SetRatePlan(ctx, plan); err != nil {
			s.logger.Warn("rate plan cache write failed", zap.Error(err))
		}
	}
	return plan, nil
}

// SetRate creates or replaces the rate of category.
func (s *RatePlanService) SetRate(ctx context.Context, category string, rate float64) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrInvalidCategory
	}
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	if s.repo == nil {
		return fmt.Errorf("rate plan store not configured")
	}

	if err := s.repo.UpsertRate(ctx, domain.CoverageRate{Category: category, Rate: rate}); err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	s.changed(ctx, "rate updated", map[string]any{"category": category, "rate": rate})
	return nil
}

// DeleteRate removes category. Returns repository.ErrNotFound if unknown.
func (s *RatePlanService) DeleteRate(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrInvalidCategory
	}
	if s.repo == nil {
		return fmt.Errorf("rate plan store not configured")
	}

	if err := s.repo.DeleteRate(ctx, category); err != nil {
		return err
	}
	s.changed(ctx, "rate deleted", map[string]any{"category": category})
	return nil
}

// SetStatus creates or replaces a settlement status.
func (s *RatePlanService) SetStatus(ctx context.Context, code, label string, payable bool) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrInvalidStatusCode
	}
	if s.repo == nil {
		return fmt.Errorf("rate plan store not configured")
	}

	status := domain.SettlementStatus{Code: code, Label: strings.TrimSpace(label), Payable: payable}
	if err := s.repo.UpsertStatus(ctx, status); err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	s.changed(ctx, "status updated", map[string]any{"code": code, "label": status.Label, "payable": payable})
	return nil
}

func (s *RatePlanService) changed(ctx context.Context, change string, data map[string]any) {
	if s.cache != nil {
		if err := s.cache.InvalidateRatePlan(ctx); err != nil {
			s.logger.Warn("rate plan cache invalidation failed", zap.Error(err))
		}
	}
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRatePlanChanged(ctx, change, data)
	}
}
