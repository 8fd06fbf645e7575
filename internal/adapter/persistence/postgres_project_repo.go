package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresProjectRepository implements ProjectRepository using PostgreSQL.
type PostgresProjectRepository struct {
	db *sql.DB
}

// NewPostgresProjectRepository creates a new PostgreSQL project repository.
func NewPostgresProjectRepository(db *sql.DB) ports.ProjectRepository {
	return &PostgresProjectRepository{db: db}
}

// Create saves a new project and its units.
func (r *PostgresProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, county, track, contract_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.County, string(p.Track), nullable(p.ContractID), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	for _, u := range p.Units {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO units (id, project_id, bedrooms, tier, tenure, household_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, u.ID, p.ID, u.Bedrooms, string(u.Tier), string(u.Tenure), nullable(u.HouseholdID))
		if err != nil {
			return fmt.Errorf("failed to create unit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

// FindByID retrieves a project with its units.
func (r *PostgresProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	var contractID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, county, track, contract_id, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.County, &p.Track, &contractID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if contractID.Valid {
		p.ContractID = contractID.String
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, bedrooms, tier, tenure, household_id
		FROM units
		WHERE project_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.Unit
		var householdID sql.NullString
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.Bedrooms, &u.Tier, &u.Tenure, &householdID); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		if householdID.Valid {
			u.HouseholdID = householdID.String
		}
		p.Units = append(p.Units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating units: %w", err)
	}
	return &p, nil
}

// Update updates project fields and unit occupancy.
func (r *PostgresProjectRepository) Update(ctx context.Context, p *domain.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, county = $3, track = $4, contract_id = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Name, p.County, string(p.Track), nullable(p.ContractID), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrProjectNotFound
	}

	for _, u := range p.Units {
		_, err = tx.ExecContext(ctx, `
			UPDATE units SET bedrooms = $2, tier = $3, tenure = $4, household_id = $5 WHERE id = $1
		`, u.ID, u.Bedrooms, string(u.Tier), string(u.Tenure), nullable(u.HouseholdID))
		if err != nil {
			return fmt.Errorf("failed to update unit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project update: %w", err)
	}
	return nil
}
