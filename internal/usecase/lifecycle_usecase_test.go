package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/homeward/homeward/internal/domain"
)

var testNow = time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)

func monitoringContract() *domain.Contract {
	contract := domain.NewContract("proj-1", "contractor-1", decimal.NewFromInt(250000))
	authority := domain.Authority{ID: "auth-1", Name: "County Housing Authority"}
	at := testNow.AddDate(-2, 0, 0)
	_ = contract.Award(authority, at)
	_ = contract.ConfirmCommitments(true, "staff-1", at.AddDate(0, 6, 0), at)
	_ = contract.Execute(true, true, "staff-1", at)
	_ = contract.StartDevelopment("staff-1", at)
	_ = contract.PlaceInService(domain.TrackRental, "staff-1", at)
	_ = contract.BeginMonitoring("staff-1", at)
	return contract
}

func TestLifecycleUseCase_AwardUsesPriorStateForUpdate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := domain.NewContract("proj-1", "contractor-1", decimal.NewFromInt(250000))
	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	mockContracts.On("Update", ctx, contract, domain.StateApplied).Return(nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	// Act
	updated, err := useCase.Award(ctx, contract.ID, domain.Authority{ID: "auth-1", Name: "County Housing Authority"})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, domain.StateAwarded, updated.State)
	assert.Len(t, updated.Transitions, 1)
	assert.Equal(t, "award", updated.Transitions[0].Event)
	assert.Equal(t, testNow, updated.Transitions[0].At)
	mockContracts.AssertExpectations(t)
}

func TestLifecycleUseCase_InvalidTransitionNotPersisted(t *testing.T) {
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := monitoringContract()
	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	_, err := useCase.Award(ctx, contract.ID, domain.Authority{ID: "auth-1"})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	mockContracts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycleUseCase_ExecuteChainsIntoDevelopment(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := domain.NewContract("proj-1", "contractor-1", decimal.NewFromInt(250000))
	authority := domain.Authority{ID: "auth-1", Name: "County Housing Authority"}
	earlier := testNow.AddDate(0, -1, 0)
	_ = contract.Award(authority, earlier)
	_ = contract.ConfirmCommitments(true, "staff-1", testNow.AddDate(0, 6, 0), earlier)

	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	mockContracts.On("Update", ctx, contract, domain.StatePreContracting).Return(nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	// Act
	updated, err := useCase.Execute(ctx, contract.ID, true, true, "staff-1")

	// Assert: one call persists both the execution and the development entry.
	assert.NoError(t, err)
	assert.Equal(t, domain.StateInDevelopment, updated.State)
	events := []string{}
	for _, rec := range updated.Transitions {
		events = append(events, rec.Event)
	}
	assert.Contains(t, events, "executed")
	assert.Contains(t, events, "development_started")
	mockContracts.AssertExpectations(t)
}

func TestLifecycleUseCase_PlaceInServiceFixesCommitmentFromTrack(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := domain.NewContract("proj-1", "contractor-1", decimal.NewFromInt(250000))
	authority := domain.Authority{ID: "auth-1", Name: "County Housing Authority"}
	earlier := testNow.AddDate(0, -6, 0)
	_ = contract.Award(authority, earlier)
	_ = contract.ConfirmCommitments(true, "staff-1", earlier.AddDate(0, 6, 0), earlier)
	_ = contract.Execute(true, true, "staff-1", earlier)
	_ = contract.StartDevelopment("staff-1", earlier)

	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackPreservation}

	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	mockContracts.On("Update", ctx, contract, domain.StateInDevelopment).Return(nil)
	mockProjects.On("FindByID", ctx, "proj-1").Return(project, nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	// Act
	updated, err := useCase.PlaceInService(ctx, contract.ID, "staff-1")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, domain.StateMonitoring, updated.State)
	assert.Equal(t, 50, updated.CommitmentYears)
	if assert.NotNil(t, updated.CommitmentEnd) {
		assert.Equal(t, testNow.AddDate(50, 0, 0), *updated.CommitmentEnd)
	}
	mockContracts.AssertExpectations(t)
	mockProjects.AssertExpectations(t)
}

func TestLifecycleUseCase_RecordLoanPayment(t *testing.T) {
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := monitoringContract()
	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	mockContracts.On("Update", ctx, contract, domain.StateMonitoring).Return(nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	updated, err := useCase.RecordLoanPayment(ctx, contract.ID, decimal.NewFromInt(50000))

	assert.NoError(t, err)
	assert.True(t, updated.LoanBalance.Equal(decimal.NewFromInt(200000)))
	mockContracts.AssertExpectations(t)
}

func TestLifecycleUseCase_RecordLoanPaymentRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	_, err := useCase.RecordLoanPayment(ctx, "contract-1", decimal.NewFromInt(-100))

	assert.Error(t, err)
	mockContracts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestLifecycleUseCase_EnterWorkoutKeepsFindingOnRecord(t *testing.T) {
	ctx := context.Background()
	mockContracts := new(MockContractRepository)
	mockProjects := new(MockProjectRepository)

	contract := monitoringContract()
	mockContracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	mockContracts.On("Update", ctx, contract, domain.StateMonitoring).Return(nil)

	useCase := NewLifecycleUseCase(mockContracts, mockProjects, fixedClock{now: testNow}, testLogger())

	updated, err := useCase.EnterWorkout(ctx, contract.ID, "finding-42", "compliance-monitor")

	assert.NoError(t, err)
	assert.Equal(t, domain.StateWorkout, updated.State)
	last := updated.Transitions[len(updated.Transitions)-1]
	assert.Equal(t, "workout_entered", last.Event)
	assert.Equal(t, "finding-42", last.FindingID)
	mockContracts.AssertExpectations(t)
}
