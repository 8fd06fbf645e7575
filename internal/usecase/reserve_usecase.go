package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// ReserveUseCase handles reserve ledger movements. All mutation runs under
// the per-project lock so balances never race; corrections are offsetting
// entries, never edits.
type ReserveUseCase struct {
	ledgerRepo ports.LedgerRepository
	locker     ports.ProjectLocker
	logger     *logrus.Logger
}

// NewReserveUseCase creates a new reserve use case.
func NewReserveUseCase(ledgerRepo ports.LedgerRepository, locker ports.ProjectLocker, logger *logrus.Logger) *ReserveUseCase {
	return &ReserveUseCase{
		ledgerRepo: ledgerRepo,
		locker:     locker,
		logger:     logger,
	}
}

// Deposit appends a deposit entry to a project reserve.
func (uc *ReserveUseCase) Deposit(ctx context.Context, projectID string, kind domain.ReserveKind, amount decimal.Decimal, category string, date time.Time) (domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return domain.LedgerEntry{}, fmt.Errorf("deposit amount must be positive")
	}
	release, err := uc.locker.Acquire(ctx, projectID)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("failed to acquire project lock: %w", err)
	}
	defer release()

	account, err := uc.loadAccount(ctx, projectID, kind)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry := account.Deposit(amount, category, date)
	if err := uc.ledgerRepo.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("failed to append deposit: %w", err)
	}

	uc.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"kind":       kind,
		"amount":     amount.String(),
		"category":   category,
	}).Info("reserve deposit recorded")
	return entry, nil
}

// Withdraw appends a withdrawal entry. An operating withdrawal that would
// overdraw the account is rejected with ErrInsufficientFunds and nothing is
// persisted.
func (uc *ReserveUseCase) Withdraw(ctx context.Context, projectID string, kind domain.ReserveKind, amount decimal.Decimal, category string, date time.Time) (domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return domain.LedgerEntry{}, fmt.Errorf("withdrawal amount must be positive")
	}
	release, err := uc.locker.Acquire(ctx, projectID)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("failed to acquire project lock: %w", err)
	}
	defer release()

	account, err := uc.loadAccount(ctx, projectID, kind)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry, err := account.Withdraw(amount, category, date)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := uc.ledgerRepo.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("failed to append withdrawal: %w", err)
	}

	uc.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"kind":       kind,
		"amount":     amount.String(),
		"category":   category,
	}).Info("reserve withdrawal recorded")
	return entry, nil
}

// Balance returns the reserve balance as of a date.
func (uc *ReserveUseCase) Balance(ctx context.Context, projectID string, kind domain.ReserveKind, asOf time.Time) (decimal.Decimal, error) {
	balance, err := uc.ledgerRepo.Balance(ctx, projectID, kind, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}

// Entries returns the full entry history for one reserve, oldest first.
func (uc *ReserveUseCase) Entries(ctx context.Context, projectID string, kind domain.ReserveKind) ([]domain.LedgerEntry, error) {
	entries, err := uc.ledgerRepo.Entries(ctx, projectID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return entries, nil
}

func (uc *ReserveUseCase) loadAccount(ctx context.Context, projectID string, kind domain.ReserveKind) (*domain.ReserveAccount, error) {
	if kind != domain.ReserveOperating && kind != domain.ReserveReplacement {
		return nil, domain.ErrUnknownReserveKind
	}
	entries, err := uc.ledgerRepo.Entries(ctx, projectID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return &domain.ReserveAccount{ProjectID: projectID, Kind: kind, Entries: entries}, nil
}
