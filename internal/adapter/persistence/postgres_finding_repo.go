package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresFindingRepository implements FindingRepository using PostgreSQL.
type PostgresFindingRepository struct {
	db *sql.DB
}

// NewPostgresFindingRepository creates a new PostgreSQL finding repository.
func NewPostgresFindingRepository(db *sql.DB) ports.FindingRepository {
	return &PostgresFindingRepository{db: db}
}

const findingColumns = `id, project_id, report_id, unit_id, kind, reasons, detail, issued_at,
	respond_by, resolved, resolved_at, resolved_by, resolution`

// CreateBatch saves the findings from one report evaluation in a single
// transaction, so a report is never half-evaluated.
func (r *PostgresFindingRepository) CreateBatch(ctx context.Context, findings []domain.ComplianceFinding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO compliance_findings (` + findingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, f := range findings {
		reasons, err := json.Marshal(f.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal reasons: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			f.ID, f.ProjectID, f.ReportID, nullable(f.UnitID), string(f.Kind), reasons, f.Detail,
			f.IssuedAt, f.RespondBy, f.Resolved, f.ResolvedAt, nullable(f.ResolvedBy), f.Resolution,
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}
	return nil
}

// FindByID retrieves a finding.
func (r *PostgresFindingRepository) FindByID(ctx context.Context, id string) (*domain.ComplianceFinding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+findingColumns+` FROM compliance_findings WHERE id = $1
	`, id)
	f, err := scanFinding(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrFindingNotFound
		}
		return nil, fmt.Errorf("failed to find finding: %w", err)
	}
	return f, nil
}

// ListByProject retrieves findings for a project, newest first.
func (r *PostgresFindingRepository) ListByProject(ctx context.Context, projectID string) ([]domain.ComplianceFinding, error) {
	return r.list(ctx, `
		SELECT `+findingColumns+` FROM compliance_findings
		WHERE project_id = $1 ORDER BY issued_at DESC
	`, projectID)
}

// ListByReport retrieves the findings persisted for one report.
func (r *PostgresFindingRepository) ListByReport(ctx context.Context, reportID string) ([]domain.ComplianceFinding, error) {
	return r.list(ctx, `
		SELECT `+findingColumns+` FROM compliance_findings
		WHERE report_id = $1 ORDER BY issued_at ASC
	`, reportID)
}

// ListOverdue retrieves unresolved findings whose deadline has passed.
func (r *PostgresFindingRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.ComplianceFinding, error) {
	return r.list(ctx, `
		SELECT `+findingColumns+` FROM compliance_findings
		WHERE resolved = FALSE AND respond_by IS NOT NULL AND respond_by < $1
		ORDER BY respond_by ASC
	`, asOf)
}

// Update persists resolution state.
func (r *PostgresFindingRepository) Update(ctx context.Context, f *domain.ComplianceFinding) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE compliance_findings
		SET resolved = $2, resolved_at = $3, resolved_by = $4, resolution = $5
		WHERE id = $1
	`, f.ID, f.Resolved, f.ResolvedAt, nullable(f.ResolvedBy), f.Resolution)
	if err != nil {
		return fmt.Errorf("failed to update finding: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrFindingNotFound
	}
	return nil
}

func (r *PostgresFindingRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.ComplianceFinding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []domain.ComplianceFinding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}
	return findings, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFinding(row rowScanner) (*domain.ComplianceFinding, error) {
	var f domain.ComplianceFinding
	var unitID, resolvedBy sql.NullString
	var reasons []byte
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.ReportID, &unitID, &f.Kind, &reasons, &f.Detail,
		&f.IssuedAt, &f.RespondBy, &f.Resolved, &f.ResolvedAt, &resolvedBy, &f.Resolution,
	)
	if err != nil {
		return nil, err
	}
	if unitID.Valid {
		f.UnitID = unitID.String
	}
	if resolvedBy.Valid {
		f.ResolvedBy = resolvedBy.String
	}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &f.Reasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reasons: %w", err)
		}
	}
	return &f, nil
}
