package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresHouseholdRepository implements HouseholdRepository using
// PostgreSQL. Members, income sources, and asset holdings are stored as
// JSONB documents on the household row; sources are superseded in place of
// being edited, so the document history mirrors the certification history.
type PostgresHouseholdRepository struct {
	db *sql.DB
}

// NewPostgresHouseholdRepository creates a new PostgreSQL household
// repository.
func NewPostgresHouseholdRepository(db *sql.DB) ports.HouseholdRepository {
	return &PostgresHouseholdRepository{db: db}
}

// Create saves a new household with members, sources, and assets.
func (r *PostgresHouseholdRepository) Create(ctx context.Context, h *domain.Household) error {
	members, sources, assets, err := marshalHousehold(h)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO households (id, unit_id, members, sources, assets, moved_in_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, nullable(h.UnitID), members, sources, assets, h.MovedInAt, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create household: %w", err)
	}
	return nil
}

// FindByID retrieves a household with members, sources, and assets.
func (r *PostgresHouseholdRepository) FindByID(ctx context.Context, id string) (*domain.Household, error) {
	var h domain.Household
	var unitID sql.NullString
	var members, sources, assets []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, unit_id, members, sources, assets, moved_in_at, created_at, updated_at
		FROM households
		WHERE id = $1
	`, id).Scan(&h.ID, &unitID, &members, &sources, &assets, &h.MovedInAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("failed to find household: %w", err)
	}
	if unitID.Valid {
		h.UnitID = unitID.String
	}
	if err := json.Unmarshal(members, &h.Members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal members: %w", err)
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &h.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal income sources: %w", err)
		}
	}
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &h.Assets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal asset holdings: %w", err)
		}
	}
	return &h, nil
}

// Update persists superseded and newly captured sources.
func (r *PostgresHouseholdRepository) Update(ctx context.Context, h *domain.Household) error {
	members, sources, assets, err := marshalHousehold(h)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE households
		SET unit_id = $2, members = $3, sources = $4, assets = $5, updated_at = $6
		WHERE id = $1
	`, h.ID, nullable(h.UnitID), members, sources, assets, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update household: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrHouseholdNotFound
	}
	return nil
}

// Delete removes a household on move-out.
func (r *PostgresHouseholdRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM households WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete household: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrHouseholdNotFound
	}
	return nil
}

func marshalHousehold(h *domain.Household) (members, sources, assets []byte, err error) {
	if members, err = json.Marshal(h.Members); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal members: %w", err)
	}
	if sources, err = json.Marshal(h.Sources); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal income sources: %w", err)
	}
	if assets, err = json.Marshal(h.Assets); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal asset holdings: %w", err)
	}
	return members, sources, assets, nil
}
