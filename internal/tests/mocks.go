package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"settlement/internal/domain"
	internalRedis "settlement/internal/redis"
	"settlement/internal/repository"
	"settlement/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RATE PLAN REPOSITORY
// ──────────────────────────────────────────────

// MockRatePlanRepository is a mock implementation of RatePlanRepository.
type MockRatePlanRepository struct {
	mu       sync.RWMutex
	rates    map[string]float64
	statuses map[string]domain.SettlementStatus

	// Counters for verification
	ListRatesCallCount  int32
	UpsertRateCallCount int32

	// Error injection
	ListRatesError  error
	UpsertRateError error
}

// NewMockRatePlanRepository creates a new mock rate plan repository.
func NewMockRatePlanRepository() *MockRatePlanRepository {
	return &MockRatePlanRepository{
		rates:    make(map[string]float64),
		statuses: make(map[string]domain.SettlementStatus),
	}
}

func (m *MockRatePlanRepository) ListRates(ctx context.Context) ([]domain.CoverageRate, error) {
	atomic.AddInt32(&m.ListRatesCallCount, 1)
	if m.ListRatesError != nil {
		return nil, m.ListRatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rates := make([]domain.CoverageRate, 0, len(m.rates))
	for category, rate := range m.rates {
		rates = append(rates, domain.CoverageRate{Category: category, Rate: rate})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Category < rates[j].Category })
	return rates, nil
}

func (m *MockRatePlanRepository) UpsertRate(ctx context.Context, rate domain.CoverageRate) error {
	atomic.AddInt32(&m.UpsertRateCallCount, 1)
	if m.UpsertRateError != nil {
		return m.UpsertRateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[rate.Category] = rate.Rate
	return nil
}

func (m *MockRatePlanRepository) DeleteRate(ctx context.Context, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rates[category]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rates, category)
	return nil
}

func (m *MockRatePlanRepository) ListStatuses(ctx context.Context) ([]domain.SettlementStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	statuses := make([]domain.SettlementStatus, 0, len(m.statuses))
	for _, st := range m.statuses {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Code < statuses[j].Code })
	return statuses, nil
}

func (m *MockRatePlanRepository) UpsertStatus(ctx context.Context, status domain.SettlementStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.Code] = status
	return nil
}

// Rate returns the stored rate of category (for test assertions).
func (m *MockRatePlanRepository) Rate(category string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rate, ok := m.rates[category]
	return rate, ok
}

// ──────────────────────────────────────────────
// MOCK PLAN CACHE
// ──────────────────────────────────────────────

// MockPlanCache is a mock implementation of PlanCacheInterface.
type MockPlanCache struct {
	mu   sync.Mutex
	plan *domain.RatePlan

	// Counters
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32

	// Error injection
	GetError error
}

// NewMockPlanCache creates a new mock plan cache.
func NewMockPlanCache() *MockPlanCache {
	return &MockPlanCache{}
}

func (m *MockPlanCache) GetRatePlan(ctx context.Context) (*domain.RatePlan, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plan == nil {
		return nil, nil
	}
	copy := *m.plan
	return &copy, nil
}

func (m *MockPlanCache) SetRatePlan(ctx context.Context, plan *domain.RatePlan) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *plan
	m.plan = &copy
	return nil
}

func (m *MockPlanCache) InvalidateRatePlan(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan = nil
	return nil
}

// Cached reports whether a plan is cached (for test assertions).
func (m *MockPlanCache) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan != nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

type heldLock struct {
	token  string
	expiry time.Time
}

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]heldLock

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]heldLock),
	}
}

func (m *MockLockStore) AcquireRunLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, exists := m.locks[name]; exists && time.Now().Before(held.expiry) {
		return false, nil // Lock still held.
	}

	m.locks[name] = heldLock{token: token, expiry: time.Now().Add(ttl)}
	return true, nil
}

func (m *MockLockStore) ReleaseRunLock(ctx context.Context, name, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, exists := m.locks[name]; exists && held.token == token {
		delete(m.locks, name)
	}
	return nil
}

// Hold takes the named lock for another run (for test setup).
func (m *MockLockStore) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = heldLock{token: "other-run", expiry: time.Now().Add(ttl)}
}

// IsLocked checks if the named lock is held (for test assertions).
func (m *MockLockStore) IsLocked(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, exists := m.locks[name]
	return exists && time.Now().Before(held.expiry)
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent is one message captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	Body       []byte
}

// MockPublisher is a mock implementation of EventPublisher.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, Body: body})
	return nil
}

// Events returns the published events in order.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Ensure interfaces are satisfied.
var (
	_ repository.RatePlanRepository    = (*MockRatePlanRepository)(nil)
	_ internalRedis.PlanCacheInterface = (*MockPlanCache)(nil)
	_ internalRedis.LockStoreInterface = (*MockLockStore)(nil)
	_ service.EventPublisher           = (*MockPublisher)(nil)
)
