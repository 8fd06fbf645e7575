package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL.
// The table is insert-only; corrections arrive as offsetting entries.
type PostgresLedgerRepository struct {
	db *sql.DB
}

// NewPostgresLedgerRepository creates a new PostgreSQL ledger repository.
func NewPostgresLedgerRepository(db *sql.DB) ports.LedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// Append saves a ledger entry.
func (r *PostgresLedgerRepository) Append(ctx context.Context, e domain.LedgerEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reserve_entries (id, project_id, kind, direction, amount, category, entry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ProjectID, string(e.Kind), string(e.Direction), e.Amount, e.Category, e.Date, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Entries retrieves all entries for one project reserve in date order.
func (r *PostgresLedgerRepository) Entries(ctx context.Context, projectID string, kind domain.ReserveKind) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, kind, direction, amount, category, entry_date, created_at
		FROM reserve_entries
		WHERE project_id = $1 AND kind = $2
		ORDER BY entry_date ASC, created_at ASC
	`, projectID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Kind, &e.Direction, &e.Amount, &e.Category, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Balance computes the running sum as of a date.
func (r *PostgresLedgerRepository) Balance(ctx context.Context, projectID string, kind domain.ReserveKind, asOf time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'WITHDRAWAL' THEN -amount ELSE amount END), 0)
		FROM reserve_entries
		WHERE project_id = $1 AND kind = $2 AND entry_date <= $3
	`, projectID, string(kind), asOf).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}
