package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresLimitsProvider serves the versioned AMI and rent-limit tables from
// PostgreSQL. Tables are loaded by an external publishing job; this engine
// only reads them.
type PostgresLimitsProvider struct {
	db *sql.DB
}

// NewPostgresLimitsProvider creates a new PostgreSQL limits provider.
func NewPostgresLimitsProvider(db *sql.DB) ports.LimitsProvider {
	return &PostgresLimitsProvider{db: db}
}

// IncomeLimits returns the county median income schedule for a year.
func (p *PostgresLimitsProvider) IncomeLimits(ctx context.Context, year int, county string) (affordability.CountyLimits, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT household_size, median_income
		FROM income_limits
		WHERE year = $1 AND county = $2
		ORDER BY household_size
	`, year, county)
	if err != nil {
		return affordability.CountyLimits{}, fmt.Errorf("failed to query income limits: %w", err)
	}
	defer rows.Close()

	limits := affordability.CountyLimits{
		Year:         year,
		County:       county,
		MedianBySize: make(map[int]decimal.Decimal),
	}
	for rows.Next() {
		var size int
		var median decimal.Decimal
		if err := rows.Scan(&size, &median); err != nil {
			return affordability.CountyLimits{}, fmt.Errorf("failed to scan income limit: %w", err)
		}
		limits.MedianBySize[size] = median
	}
	if err := rows.Err(); err != nil {
		return affordability.CountyLimits{}, fmt.Errorf("error iterating income limits: %w", err)
	}
	if len(limits.MedianBySize) == 0 {
		return affordability.CountyLimits{}, domain.ErrLimitsNotFound
	}
	return limits, nil
}

// RentCeiling returns the monthly rent limit for a year, county, tier, and
// bedroom count.
func (p *PostgresLimitsProvider) RentCeiling(ctx context.Context, year int, county string, tier domain.AMITier, bedrooms int) (decimal.Decimal, error) {
	var ceiling decimal.Decimal
	err := p.db.QueryRowContext(ctx, `
		SELECT monthly_rent
		FROM rent_limits
		WHERE year = $1 AND county = $2 AND tier = $3 AND bedrooms = $4
	`, year, county, string(tier), bedrooms).Scan(&ceiling)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, domain.ErrLimitsNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to query rent ceiling: %w", err)
	}
	return ceiling, nil
}
