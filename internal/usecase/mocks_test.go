package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// Mock implementations

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepository) FindByProject(ctx context.Context, projectID string) (*domain.Contract, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractRepository) Update(ctx context.Context, contract *domain.Contract, expected domain.ContractState) error {
	args := m.Called(ctx, contract, expected)
	return args.Error(0)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

type MockHouseholdRepository struct {
	mock.Mock
}

func (m *MockHouseholdRepository) Create(ctx context.Context, household *domain.Household) error {
	args := m.Called(ctx, household)
	return args.Error(0)
}

func (m *MockHouseholdRepository) FindByID(ctx context.Context, id string) (*domain.Household, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Household), args.Error(1)
}

func (m *MockHouseholdRepository) Update(ctx context.Context, household *domain.Household) error {
	args := m.Called(ctx, household)
	return args.Error(0)
}

func (m *MockHouseholdRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCertificationRepository struct {
	mock.Mock
}

func (m *MockCertificationRepository) Create(ctx context.Context, record *ports.CertificationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCertificationRepository) ListByHousehold(ctx context.Context, householdID string) ([]*ports.CertificationRecord, error) {
	args := m.Called(ctx, householdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.CertificationRecord), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) Entries(ctx context.Context, projectID string, kind domain.ReserveKind) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, projectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) Balance(ctx context.Context, projectID string, kind domain.ReserveKind, asOf time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, projectID, kind, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockFindingRepository struct {
	mock.Mock
}

func (m *MockFindingRepository) CreateBatch(ctx context.Context, findings []domain.ComplianceFinding) error {
	args := m.Called(ctx, findings)
	return args.Error(0)
}

func (m *MockFindingRepository) FindByID(ctx context.Context, id string) (*domain.ComplianceFinding, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceFinding), args.Error(1)
}

func (m *MockFindingRepository) ListByProject(ctx context.Context, projectID string) ([]domain.ComplianceFinding, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceFinding), args.Error(1)
}

func (m *MockFindingRepository) ListByReport(ctx context.Context, reportID string) ([]domain.ComplianceFinding, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceFinding), args.Error(1)
}

func (m *MockFindingRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.ComplianceFinding, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceFinding), args.Error(1)
}

func (m *MockFindingRepository) Update(ctx context.Context, finding *domain.ComplianceFinding) error {
	args := m.Called(ctx, finding)
	return args.Error(0)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *domain.AnnualReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id string) (*domain.AnnualReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnnualReport), args.Error(1)
}

func (m *MockReportRepository) LatestIngestedYear(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockReportRepository) MarkIngested(ctx context.Context, reportID string, at time.Time) error {
	args := m.Called(ctx, reportID, at)
	return args.Error(0)
}

type MockLimitsProvider struct {
	mock.Mock
}

func (m *MockLimitsProvider) IncomeLimits(ctx context.Context, year int, county string) (affordability.CountyLimits, error) {
	args := m.Called(ctx, year, county)
	return args.Get(0).(affordability.CountyLimits), args.Error(1)
}

func (m *MockLimitsProvider) RentCeiling(ctx context.Context, year int, county string, tier domain.AMITier, bedrooms int) (decimal.Decimal, error) {
	args := m.Called(ctx, year, county, tier, bedrooms)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// noopLocker hands out the lock unconditionally.
type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	return func() {}, nil
}

// fixedClock pins evaluation time.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
