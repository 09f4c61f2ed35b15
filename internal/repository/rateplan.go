package repository

import (
	"context"

	"settlement/internal/domain"
)

// RatePlanRepository defines the persistence operations for the rate plan.
type RatePlanRepository interface {
	// ListRates returns every coverage rate ordered by category.
	ListRates(ctx context.Context) ([]domain.CoverageRate, error)

	// UpsertRate creates or replaces the rate of a category.
	UpsertRate(ctx context.Context, rate domain.CoverageRate) error

	// DeleteRate removes a category. Returns ErrNotFound if it does not exist.
	DeleteRate(ctx context.Context, category string) error

	// ListStatuses returns every known settlement status ordered by code.
	ListStatuses(ctx context.Context) ([]domain.SettlementStatus, error)

	// UpsertStatus creates or replaces a settlement status.
	UpsertStatus(ctx context.Context, status domain.SettlementStatus) error
}
