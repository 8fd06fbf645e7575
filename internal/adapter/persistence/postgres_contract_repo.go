package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// PostgresContractRepository implements ContractRepository using PostgreSQL.
type PostgresContractRepository struct {
	db *sql.DB
}

// NewPostgresContractRepository creates a new PostgreSQL contract repository.
func NewPostgresContractRepository(db *sql.DB) ports.ContractRepository {
	return &PostgresContractRepository{db: db}
}

// Create saves a new contract.
func (r *PostgresContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (id, project_id, contractor_id, state, award_date, execution_date,
			execution_deadline, placed_in_service, commitment_end, commitment_years, loan_balance,
			amendments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	amendments, err := json.Marshal(c.Amendments)
	if err != nil {
		return fmt.Errorf("failed to marshal amendments: %w", err)
	}
	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.ProjectID,
		c.ContractorID,
		string(c.State),
		c.AwardDate,
		c.ExecutionDate,
		c.ExecutionDeadline,
		c.PlacedInService,
		c.CommitmentEnd,
		c.CommitmentYears,
		c.LoanBalance,
		amendments,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// FindByID retrieves a contract with its transition log and amendments.
func (r *PostgresContractRepository) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	query := `
		SELECT id, project_id, contractor_id, state, award_date, execution_date,
			execution_deadline, placed_in_service, commitment_end, commitment_years, loan_balance,
			amendments, created_at, updated_at
		FROM contracts
		WHERE id = $1
	`
	var c domain.Contract
	var amendmentsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.ProjectID,
		&c.ContractorID,
		&c.State,
		&c.AwardDate,
		&c.ExecutionDate,
		&c.ExecutionDeadline,
		&c.PlacedInService,
		&c.CommitmentEnd,
		&c.CommitmentYears,
		&c.LoanBalance,
		&amendmentsJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	if len(amendmentsJSON) > 0 {
		if err := json.Unmarshal(amendmentsJSON, &c.Amendments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal amendments: %w", err)
		}
	}
	if c.Transitions, err = r.transitions(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByProject retrieves the active contract for a project.
func (r *PostgresContractRepository) FindByProject(ctx context.Context, projectID string) (*domain.Contract, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM contracts WHERE project_id = $1 ORDER BY created_at DESC LIMIT 1`, projectID,
	).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to find contract for project: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update persists a contract mutation with a compare-and-set on the expected
// prior state, appending any new transition records in the same transaction.
func (r *PostgresContractRepository) Update(ctx context.Context, c *domain.Contract, expected domain.ContractState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	amendments, err := json.Marshal(c.Amendments)
	if err != nil {
		return fmt.Errorf("failed to marshal amendments: %w", err)
	}

	query := `
		UPDATE contracts
		SET state = $2, award_date = $3, execution_date = $4, execution_deadline = $5,
			placed_in_service = $6, commitment_end = $7, commitment_years = $8,
			loan_balance = $9, amendments = $10, updated_at = $11
		WHERE id = $1 AND state = $12
	`
	result, err := tx.ExecContext(ctx, query,
		c.ID,
		string(c.State),
		c.AwardDate,
		c.ExecutionDate,
		c.ExecutionDeadline,
		c.PlacedInService,
		c.CommitmentEnd,
		c.CommitmentYears,
		c.LoanBalance,
		amendments,
		c.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the contract vanished or another writer got there first.
		return domain.ErrInvalidTransition
	}

	insert := `
		INSERT INTO contract_transitions (id, contract_id, from_state, to_state, event, actor, finding_id, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	for _, t := range c.Transitions {
		if _, err := tx.ExecContext(ctx, insert,
			t.ID, t.ContractID, string(t.From), string(t.To), t.Event, t.Actor, nullable(t.FindingID), t.At,
		); err != nil {
			return fmt.Errorf("failed to append transition record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contract update: %w", err)
	}
	return nil
}

func (r *PostgresContractRepository) transitions(ctx context.Context, contractID string) ([]domain.TransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contract_id, from_state, to_state, event, actor, finding_id, at
		FROM contract_transitions
		WHERE contract_id = $1
		ORDER BY at ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var records []domain.TransitionRecord
	for rows.Next() {
		var t domain.TransitionRecord
		var findingID sql.NullString
		if err := rows.Scan(&t.ID, &t.ContractID, &t.From, &t.To, &t.Event, &t.Actor, &findingID, &t.At); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		if findingID.Valid {
			t.FindingID = findingID.String
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}
	return records, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
