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

// LifecycleUseCase drives contract state transitions from external events.
// Each transition persists atomically with its log record through a
// compare-and-set on the prior state.
type LifecycleUseCase struct {
	contractRepo ports.ContractRepository
	projectRepo  ports.ProjectRepository
	clock        ports.Clock
	logger       *logrus.Logger
}

// NewLifecycleUseCase creates a new lifecycle use case.
func NewLifecycleUseCase(contractRepo ports.ContractRepository, projectRepo ports.ProjectRepository, clock ports.Clock, logger *logrus.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{
		contractRepo: contractRepo,
		projectRepo:  projectRepo,
		clock:        clock,
		logger:       logger,
	}
}

// apply loads the contract, runs the mutation, and persists it against the
// state the mutation started from.
func (uc *LifecycleUseCase) apply(ctx context.Context, contractID string, mutate func(c *domain.Contract) error) (*domain.Contract, error) {
	contract, err := uc.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	prior := contract.State
	if err := mutate(contract); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.Update(ctx, contract, prior); err != nil {
		return nil, fmt.Errorf("failed to persist transition: %w", err)
	}
	uc.logger.WithFields(logrus.Fields{
		"contract_id": contract.ID,
		"from":        prior,
		"to":          contract.State,
	}).Info("contract transition")
	return contract, nil
}

// Award moves an applied contract to Awarded.
func (uc *LifecycleUseCase) Award(ctx context.Context, contractID string, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.Award(authority, at)
	})
}

// ConfirmCommitments moves an awarded contract to PreContracting once every
// co-funder has confirmed, fixing the execution deadline.
func (uc *LifecycleUseCase) ConfirmCommitments(ctx context.Context, contractID string, allConfirmed bool, actor string, deadline time.Time) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.ConfirmCommitments(allConfirmed, actor, deadline, at)
	})
}

// Execute moves the contract through Executed into InDevelopment. The
// development entry is immediate but never skipped; construction-draw
// tracking hangs off it.
func (uc *LifecycleUseCase) Execute(ctx context.Context, contractID string, signed, securityRecorded bool, actor string) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		if err := c.Execute(signed, securityRecorded, actor, at); err != nil {
			return err
		}
		return c.StartDevelopment(actor, at)
	})
}

// PlaceInService records the certificate-of-occupancy event, fixes the
// commitment end date for the project's program track, and moves straight on
// into Monitoring.
func (uc *LifecycleUseCase) PlaceInService(ctx context.Context, contractID, actor string) (*domain.Contract, error) {
	at := uc.clock.Now()
	contract, err := uc.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	project, err := uc.projectRepo.FindByID(ctx, contract.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		if err := c.PlaceInService(project.Track, actor, at); err != nil {
			return err
		}
		return c.BeginMonitoring(actor, at)
	})
}

// OpenAmendment moves a monitored contract into Amending.
func (uc *LifecycleUseCase) OpenAmendment(ctx context.Context, contractID string, amendment domain.Amendment, actor string) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.BeginAmendment(amendment, actor, at)
	})
}

// ResolveAmendment returns an amending contract to Monitoring with the
// approval outcome recorded.
func (uc *LifecycleUseCase) ResolveAmendment(ctx context.Context, contractID string, approved bool, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.ResolveAmendment(approved, authority, at)
	})
}

// EnterWorkout moves a monitored contract into Workout, keeping the
// triggering finding on the transition record.
func (uc *LifecycleUseCase) EnterWorkout(ctx context.Context, contractID, findingID, actor string) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.EnterWorkout(findingID, actor, at)
	})
}

// ExitWorkout returns a remediated contract to Monitoring.
func (uc *LifecycleUseCase) ExitWorkout(ctx context.Context, contractID string, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.ExitWorkout(authority, at)
	})
}

// RecordLoanPayment reduces the outstanding balance.
func (uc *LifecycleUseCase) RecordLoanPayment(ctx context.Context, contractID string, amount decimal.Decimal) (*domain.Contract, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		c.ApplyLoanPayment(amount, at)
		return nil
	})
}

// Close moves a monitored contract to Closed once the commitment period has
// run and the loan balance is zero.
func (uc *LifecycleUseCase) Close(ctx context.Context, contractID string, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.Close(authority, at)
	})
}

// Rescind moves any pre-closed contract to Rescinded.
func (uc *LifecycleUseCase) Rescind(ctx context.Context, contractID, reason string, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.Rescind(authority, reason, at)
	})
}

// Foreclose moves any pre-closed contract to Foreclosed on exhausted
// remediation.
func (uc *LifecycleUseCase) Foreclose(ctx context.Context, contractID, findingID string, authority domain.Authority) (*domain.Contract, error) {
	at := uc.clock.Now()
	return uc.apply(ctx, contractID, func(c *domain.Contract) error {
		return c.Foreclose(authority, findingID, at)
	})
}

// Get retrieves a contract with its transition history.
func (uc *LifecycleUseCase) Get(ctx context.Context, contractID string) (*domain.Contract, error) {
	contract, err := uc.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	return contract, nil
}
