package redis

import (
	"context"
	"time"

	"settlement/internal/domain"
)

// PlanCacheInterface defines the interface for rate plan caching.
type PlanCacheInterface interface {
	GetRatePlan(ctx context.Context) (*domain.RatePlan, error)
	SetRatePlan(ctx context.Context, plan *domain.RatePlan) error
	InvalidateRatePlan(ctx context.Context) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRunLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, name, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PlanCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface = (*LockStore)(nil)
)
