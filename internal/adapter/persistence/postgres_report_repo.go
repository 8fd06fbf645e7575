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

// PostgresReportRepository implements ReportRepository using PostgreSQL.
// Snapshot, occupancy roster, and reserve targets are JSONB documents; the
// period year is a column so ingestion order can be enforced in SQL.
type PostgresReportRepository struct {
	db *sql.DB
}

// NewPostgresReportRepository creates a new PostgreSQL report repository.
func NewPostgresReportRepository(db *sql.DB) ports.ReportRepository {
	return &PostgresReportRepository{db: db}
}

// Create saves a submitted report.
func (r *PostgresReportRepository) Create(ctx context.Context, report *domain.AnnualReport) error {
	snapshot, err := json.Marshal(report.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	occupancy, err := json.Marshal(report.Occupancy)
	if err != nil {
		return fmt.Errorf("failed to marshal occupancy: %w", err)
	}
	targets, err := json.Marshal(report.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal targets: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO annual_reports (id, project_id, period_year, snapshot, occupancy, targets,
			audit_current, insurance_current, submitted_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, report.ID, report.ProjectID, report.PeriodYear, snapshot, occupancy, targets,
		report.AuditCurrent, report.InsuranceCurrent, report.SubmittedAt, report.IngestedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// FindByID retrieves a report.
func (r *PostgresReportRepository) FindByID(ctx context.Context, id string) (*domain.AnnualReport, error) {
	var report domain.AnnualReport
	var snapshot, occupancy, targets []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, period_year, snapshot, occupancy, targets,
			audit_current, insurance_current, submitted_at, ingested_at
		FROM annual_reports
		WHERE id = $1
	`, id).Scan(&report.ID, &report.ProjectID, &report.PeriodYear, &snapshot, &occupancy, &targets,
		&report.AuditCurrent, &report.InsuranceCurrent, &report.SubmittedAt, &report.IngestedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	if err := json.Unmarshal(snapshot, &report.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if len(occupancy) > 0 {
		if err := json.Unmarshal(occupancy, &report.Occupancy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal occupancy: %w", err)
		}
	}
	if err := json.Unmarshal(targets, &report.Targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal targets: %w", err)
	}
	return &report, nil
}

// LatestIngestedYear returns the most recent ingested period year for a
// project, or zero when nothing has been ingested.
func (r *PostgresReportRepository) LatestIngestedYear(ctx context.Context, projectID string) (int, error) {
	var year sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(period_year) FROM annual_reports
		WHERE project_id = $1 AND ingested_at IS NOT NULL
	`, projectID).Scan(&year)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest ingested year: %w", err)
	}
	if !year.Valid {
		return 0, nil
	}
	return int(year.Int64), nil
}

// MarkIngested records that evaluation of a report completed.
func (r *PostgresReportRepository) MarkIngested(ctx context.Context, reportID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE annual_reports SET ingested_at = $2 WHERE id = $1 AND ingested_at IS NULL
	`, reportID, at)
	if err != nil {
		return fmt.Errorf("failed to mark report ingested: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrStaleReport
	}
	return nil
}
