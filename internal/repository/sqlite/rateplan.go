package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"settlement/internal/domain"
	"settlement/internal/repository"
)

// RatePlanRepository is an SQLite implementation of repository.RatePlanRepository.
type RatePlanRepository struct {
	db *sql.DB
}

// NewRatePlanRepository creates a new SQLite rate plan repository.
func NewRatePlanRepository(db *sql.DB) *RatePlanRepository {
	return &RatePlanRepository{db: db}
}

// ListRates returns every coverage rate ordered by category.
func (r *RatePlanRepository) ListRates(ctx context.Context) ([]domain.CoverageRate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, rate FROM coverage_rates ORDER BY category`)
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
		VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET rate = excluded.rate, updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, rate.Category, rate.Rate)
	return err
}

// DeleteRate removes a category.
func (r *RatePlanRepository) DeleteRate(ctx context.Context, category string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coverage_rates WHERE category = ?`, category)
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
	rows, err := r.db.QueryContext(ctx, `SELECT code, label, payable FROM settlement_statuses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.SettlementStatus
	for rows.Next() {
		var status domain.SettlementStatus
		var payable int64
		if err := rows.Scan(&status.Code, &status.Label, &payable); err != nil {
			return nil, err
		}
		status.Payable = payable != 0
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

// UpsertStatus creates or replaces a settlement status.
func (r *RatePlanRepository) UpsertStatus(ctx context.Context, status domain.SettlementStatus) error {
	query := `
		INSERT INTO settlement_statuses (code, label, payable)
		VALUES (?, ?, ?)
		ON CONFLICT (code) DO UPDATE
		SET label = excluded.label, payable = excluded.payable, updated_at = CURRENT_TIMESTAMP
	`

	payable := 0
	if status.Payable {
		payable = 1
	}
	_, err := r.db.ExecContext(ctx, query, status.Code, status.Label, payable)
	return err
}

var _ repository.RatePlanRepository = (*RatePlanRepository)(nil)
