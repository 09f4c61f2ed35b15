package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"settlement/internal/domain"
)

// CacheStore handles rate plan caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultPlanCacheTTL bounds how long a cached plan survives without invalidation.
const DefaultPlanCacheTTL = 10 * time.Minute

const ratePlanKey = "cache:rate_plan"

// NewCacheStore creates a new CacheStore. A non-positive ttl selects DefaultPlanCacheTTL.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultPlanCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedRatePlan is the cached form of a rate plan.
type CachedRatePlan struct {
	Rates    []CachedRate   `json:"rates"`
	Statuses []CachedStatus `json:"statuses"`
	Keywords []string       `json:"self_insured_keywords"`
	CachedAt time.Time      `json:"cached_at"`
}

// CachedRate is one cached coverage rate.
type CachedRate struct {
	Category string  `json:"category"`
	Rate     float64 `json:"rate"`
}

// CachedStatus is one cached settlement status.
type CachedStatus struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Payable bool   `json:"payable"`
}

// GetRatePlan retrieves the rate plan from cache. Returns nil on a miss.
func (s *CacheStore) GetRatePlan(ctx context.Context) (*domain.RatePlan, error) {
	data, err := s.client.Get(ctx, ratePlanKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedRatePlan
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	plan := &domain.RatePlan{SelfInsuredKeywords: cached.Keywords}
	for _, r := range cached.Rates {
		plan.Rates = append(plan.Rates, domain.CoverageRate{Category: r.Category, Rate: r.Rate})
	}
	for _, st := range cached.Statuses {
		plan.Statuses = append(plan.Statuses, domain.SettlementStatus{Code: st.Code, Label: st.Label, Payable: st.Payable})
	}
	return plan, nil
}

// SetRatePlan stores the rate plan in cache.
func (s *CacheStore) SetRatePlan(ctx context.Context, plan *domain.RatePlan) error {
	cached := CachedRatePlan{
		Keywords: plan.SelfInsuredKeywords,
		CachedAt: time.Now().UTC(),
	}
	for _, r := range plan.Rates {
		cached.Rates = append(cached.Rates, CachedRate{Category: r.Category, Rate: r.Rate})
	}
	for _, st := range plan.Statuses {
		cached.Statuses = append(cached.Statuses, CachedStatus{Code: st.Code, Label: st.Label, Payable: st.Payable})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, ratePlanKey, data, s.ttl).Err()
}

// InvalidateRatePlan removes the rate plan from cache.
func (s *CacheStore) InvalidateRatePlan(ctx context.Context) error {
	return s.client.Del(ctx, ratePlanKey).Err()
}
