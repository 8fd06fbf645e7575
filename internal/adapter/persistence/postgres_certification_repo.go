package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/homeward/homeward/internal/ports"
)

// PostgresCertificationRepository implements CertificationRepository using
// PostgreSQL.
type PostgresCertificationRepository struct {
	db *sql.DB
}

// NewPostgresCertificationRepository creates a new PostgreSQL certification
// repository.
func NewPostgresCertificationRepository(db *sql.DB) ports.CertificationRepository {
	return &PostgresCertificationRepository{db: db}
}

// Create saves a certification record.
func (r *PostgresCertificationRepository) Create(ctx context.Context, rec *ports.CertificationRecord) error {
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal eligibility result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO certifications (id, household_id, unit_id, result, effective_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.HouseholdID, rec.UnitID, result, rec.EffectiveAt, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create certification: %w", err)
	}
	return nil
}

// ListByHousehold retrieves certification history, newest first.
func (r *PostgresCertificationRepository) ListByHousehold(ctx context.Context, householdID string) ([]*ports.CertificationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id, unit_id, result, effective_at, created_at
		FROM certifications
		WHERE household_id = $1
		ORDER BY effective_at DESC
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certifications: %w", err)
	}
	defer rows.Close()

	var records []*ports.CertificationRecord
	for rows.Next() {
		var rec ports.CertificationRecord
		var result []byte
		if err := rows.Scan(&rec.ID, &rec.HouseholdID, &rec.UnitID, &result, &rec.EffectiveAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal eligibility result: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating certifications: %w", err)
	}
	return records, nil
}
