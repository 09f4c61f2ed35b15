package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"settlement/internal/domain"
	"settlement/internal/repository"
)

// RatePlanRepository is a PostgreSQL implementation of repository.RatePlanRepository.
type RatePlanRepository struct {
	q Querier
}

// NewRatePlanRepository creates a new PostgreSQL rate plan repository.
func NewRatePlanRepository(db *sql.DB) *RatePlanRepository {
	return &RatePlanRepository{q: db}
}

// ListRates returns every coverage rate ordered by category.
func (r *RatePlanRepository) ListRates(ctx context.Context) ([]domain.CoverageRate, error) {
	query := `SELECT category, rate FROM coverage_rates ORDER BY category`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []domain.CoverageRate
	for rows.Next() {
		var rate domain.CoverageRate
		if err := rows.Scan(&rate.Category, &rate.Rate); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}

// UpsertRate creates or replaces the rate of a category.
func (r *RatePlanRepository) UpsertRate(ctx context.Context, rate domain.CoverageRate) error {
	query := `
		INSERT INTO coverage_rates (category, rate)
		VALUES ($1, $2)
		ON CONFLICT (category) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()
	`

	_, err := r.q.ExecContext(ctx, query, rate.Category, rate.Rate)
	return err
}

// DeleteRate removes a category.
func (r *RatePlanRepository) DeleteRate(ctx context.Context, category string) error {
	query := `DELETE FROM coverage_rates WHERE category = $1`

	result, err := r.q.ExecContext(ctx, query, category)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: category %q", repository.ErrNotFound, category)
	}

	return nil
}

// ListStatuses returns every known settlement status ordered by code.
func (r *RatePlanRepository) ListStatuses(ctx context.Context) ([]domain.SettlementStatus, error) {
	query := `SELECT code, label, payable FROM settlement_statuses ORDER BY code`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.SettlementStatus
	for rows.Next() {
		var status domain.SettlementStatus
		if err := rows.Scan(&status.Code, &status.Label, &status.Payable); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

// UpsertStatus creates or replaces a settlement status.
func (r *RatePlanRepository) UpsertStatus(ctx context.Context, status domain.SettlementStatus) error {
	query := `
		INSERT INTO settlement_statuses (code, label, payable)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE
		SET label = EXCLUDED.label, payable = EXCLUDED.payable, updated_at = NOW()
	`

	_, err := r.q.ExecContext(ctx, query, status.Code, status.Label, status.Payable)
	return err
}

var _ repository.RatePlanRepository = (*RatePlanRepository)(nil)
