package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement/internal/domain"
	"settlement/internal/repository"
)

func newTestRepository(t *testing.T) *RatePlanRepository {
	t.Helper()
	db, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRatePlanRepository(db)
}

func TestRatePlanRepository_Rates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	rates, err := repo.ListRates(ctx)
	require.NoError(t, err)
	assert.Empty(t, rates)

	require.NoError(t, repo.UpsertRate(ctx, domain.CoverageRate{Category: "대인2", Rate: 4.34}))
	require.NoError(t, repo.UpsertRate(ctx, domain.CoverageRate{Category: "대물", Rate: 3.5}))
	require.NoError(t, repo.UpsertRate(ctx, domain.CoverageRate{Category: "대물", Rate: 3.68}))

	rates, err = repo.ListRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CoverageRate{
		{Category: "대물", Rate: 3.68},
		{Category: "대인2", Rate: 4.34},
	}, rates)

	require.NoError(t, repo.DeleteRate(ctx, "대물"))
	err = repo.DeleteRate(ctx, "대물")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.EqualError(t, err, `rate plan entry not found: category "대물"`)

	rates, err = repo.ListRates(ctx)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
}

func TestRatePlanRepository_NegativeRateRejected(t *testing.T) {
	repo := newTestRepository(t)
	err := repo.UpsertRate(context.Background(), domain.CoverageRate{Category: "대물", Rate: -1})
	assert.Error(t, err)
}

func TestRatePlanRepository_Statuses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.UpsertStatus(ctx, domain.SettlementStatus{Code: "01", Label: "취소"}))
	require.NoError(t, repo.UpsertStatus(ctx, domain.SettlementStatus{Code: "00", Label: "정상", Payable: true}))
	require.NoError(t, repo.UpsertStatus(ctx, domain.SettlementStatus{Code: "01", Label: "취소됨"}))

	statuses, err := repo.ListStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SettlementStatus{
		{Code: "00", Label: "정상", Payable: true},
		{Code: "01", Label: "취소됨"},
	}, statuses)
}
