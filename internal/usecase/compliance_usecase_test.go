package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/income"
)

type complianceFixture struct {
	projects   *MockProjectRepository
	households *MockHouseholdRepository
	reports    *MockReportRepository
	findings   *MockFindingRepository
	ledger     *MockLedgerRepository
	limits     *MockLimitsProvider
	contracts  *MockContractRepository
	useCase    *ComplianceUseCase
}

func newComplianceFixture() *complianceFixture {
	f := &complianceFixture{
		projects:   new(MockProjectRepository),
		households: new(MockHouseholdRepository),
		reports:    new(MockReportRepository),
		findings:   new(MockFindingRepository),
		ledger:     new(MockLedgerRepository),
		limits:     new(MockLimitsProvider),
		contracts:  new(MockContractRepository),
	}
	logger := testLogger()
	clock := fixedClock{now: testNow}
	calculator := affordability.NewCalculator(income.NewLibrary(), decimal.NewFromFloat(0.0006))
	lifecycle := NewLifecycleUseCase(f.contracts, f.projects, clock, logger)
	f.useCase = NewComplianceUseCase(
		f.projects, f.households, f.reports, f.findings, f.ledger,
		f.limits, calculator, lifecycle, noopLocker{}, clock, logger,
	)
	return f
}

func multnomahLimits(year int) affordability.CountyLimits {
	return affordability.CountyLimits{
		Year:   year,
		County: "Multnomah",
		MedianBySize: map[int]decimal.Decimal{
			1: decimal.NewFromInt(70000),
			2: decimal.NewFromInt(80000),
			3: decimal.NewFromInt(90000),
			4: decimal.NewFromInt(100000),
		},
	}
}

func cleanReport(projectID string, year int) *domain.AnnualReport {
	return &domain.AnnualReport{
		ProjectID:  projectID,
		PeriodYear: year,
		Snapshot: domain.FinancialSnapshot{
			NetOperatingIncome: decimal.NewFromInt(100000),
		},
		Targets: domain.ReserveTargets{
			OperatingMinimum:   decimal.NewFromInt(1000),
			ReplacementMinimum: decimal.NewFromInt(1000),
		},
		AuditCurrent:     true,
		InsuranceCurrent: true,
	}
}

func tenantHousehold(monthlyWage int64) *domain.Household {
	household := domain.NewHousehold([]domain.Member{
		{Age: 34, Relationship: domain.RelationshipHead},
	})
	household.Sources = []domain.IncomeSource{
		{
			ID:        "src-1",
			MemberID:  household.Members[0].ID,
			Type:      domain.IncomeEmployment,
			Rate:      decimal.NewFromInt(monthlyWage),
			Frequency: domain.FrequencyMonthly,
		},
	}
	return household
}

func TestComplianceUseCase_CleanReportIssuesInCompliance(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental}
	report := cleanReport("proj-1", 2025)

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert
	assert.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	if assert.Len(t, findings, 1) {
		assert.Equal(t, domain.FindingInCompliance, findings[0].Kind)
		assert.Nil(t, findings[0].RespondBy)
	}
	f.reports.AssertExpectations(t)
	f.findings.AssertExpectations(t)
}

func TestComplianceUseCase_StaleReportPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newComplianceFixture()
	report := cleanReport("proj-1", 2024)

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)

	_, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	assert.ErrorIs(t, err, domain.ErrStaleReport)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.findings.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestComplianceUseCase_AlreadyIngestedReportRejected(t *testing.T) {
	ctx := context.Background()
	f := newComplianceFixture()
	report := cleanReport("proj-1", 2025)
	ingested := testNow.AddDate(0, -1, 0)
	report.IngestedAt = &ingested

	_, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	assert.ErrorIs(t, err, domain.ErrStaleReport)
	f.reports.AssertNotCalled(t, "LatestIngestedYear", mock.Anything, mock.Anything)
}

func TestComplianceUseCase_ReportForWrongProjectRejected(t *testing.T) {
	ctx := context.Background()
	f := newComplianceFixture()
	report := cleanReport("proj-2", 2025)

	_, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	assert.Error(t, err)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestComplianceUseCase_RentOverCeilingRaisesConcern(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{
		ID:     "proj-1",
		Name:   "Cedar Commons",
		County: "Multnomah",
		Track:  domain.TrackRental,
		Units: []domain.Unit{
			{ID: "unit-1", ProjectID: "proj-1", Bedrooms: 2, Tier: domain.AMITier60, Tenure: domain.TenureRental, HouseholdID: "hh-1"},
		},
	}
	household := tenantHousehold(3000)
	report := cleanReport("proj-1", 2025)
	report.Occupancy = []domain.UnitOccupancy{
		{UnitID: "unit-1", HouseholdID: "hh-1", MonthlyRent: decimal.NewFromInt(1200)},
	}

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.households.On("FindByID", ctx, "hh-1").Return(household, nil)
	f.limits.On("RentCeiling", ctx, 2025, "Multnomah", domain.AMITier60, 2).Return(decimal.NewFromInt(1100), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert: a 30-day compliance concern against the unit, no in-compliance row.
	assert.NoError(t, err)
	if assert.Len(t, findings, 1) {
		assert.Equal(t, domain.FindingComplianceConcern, findings[0].Kind)
		assert.Equal(t, "unit-1", findings[0].UnitID)
		assert.Contains(t, findings[0].Reasons, domain.ReasonRentOverLimit)
		if assert.NotNil(t, findings[0].RespondBy) {
			assert.Equal(t, testNow.AddDate(0, 0, domain.ConcernResponseDays), *findings[0].RespondBy)
		}
	}
}

func TestComplianceUseCase_FormerTenantOverchargeGetsRefundWindow(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{
		ID:     "proj-1",
		Name:   "Cedar Commons",
		County: "Multnomah",
		Track:  domain.TrackRental,
		Units: []domain.Unit{
			{ID: "unit-1", ProjectID: "proj-1", Bedrooms: 2, Tier: domain.AMITier60, Tenure: domain.TenureRental},
		},
	}
	household := tenantHousehold(3000)
	report := cleanReport("proj-1", 2025)
	report.Occupancy = []domain.UnitOccupancy{
		{UnitID: "unit-1", HouseholdID: "hh-1", MonthlyRent: decimal.NewFromInt(1200), FormerTenant: true},
	}

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.households.On("FindByID", ctx, "hh-1").Return(household, nil)
	f.limits.On("RentCeiling", ctx, 2025, "Multnomah", domain.AMITier60, 2).Return(decimal.NewFromInt(1100), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert
	assert.NoError(t, err)
	if assert.Len(t, findings, 1) {
		assert.Contains(t, findings[0].Reasons, domain.ReasonFormerTenantRefund)
		if assert.NotNil(t, findings[0].RespondBy) {
			assert.Equal(t, testNow.AddDate(0, 0, domain.RefundResponseDays), *findings[0].RespondBy)
		}
	}
}

func TestComplianceUseCase_OverIncomeHouseholdFlagged(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{
		ID:     "proj-1",
		Name:   "Cedar Commons",
		County: "Multnomah",
		Track:  domain.TrackRental,
		Units: []domain.Unit{
			{ID: "unit-1", ProjectID: "proj-1", Bedrooms: 1, Tier: domain.AMITier60, Tenure: domain.TenureRental},
		},
	}
	// 4000/month annualizes to 48000, over the 42000 ceiling for one person
	// at 60% of a 70000 median.
	household := tenantHousehold(4000)
	report := cleanReport("proj-1", 2025)
	report.Occupancy = []domain.UnitOccupancy{
		{UnitID: "unit-1", HouseholdID: "hh-1", MonthlyRent: decimal.NewFromInt(900)},
	}

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.households.On("FindByID", ctx, "hh-1").Return(household, nil)
	f.limits.On("RentCeiling", ctx, 2025, "Multnomah", domain.AMITier60, 1).Return(decimal.NewFromInt(1100), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert
	assert.NoError(t, err)
	if assert.Len(t, findings, 1) {
		assert.Contains(t, findings[0].Reasons, domain.ReasonIncomeOverLimit)
	}
}

func TestComplianceUseCase_EvaluationFailureLeavesPeriodOpen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{
		ID:     "proj-1",
		Name:   "Cedar Commons",
		County: "Multnomah",
		Track:  domain.TrackRental,
		Units: []domain.Unit{
			{ID: "unit-1", ProjectID: "proj-1", Bedrooms: 2, Tier: domain.AMITier60, Tenure: domain.TenureRental},
		},
	}
	report := cleanReport("proj-1", 2025)
	report.Occupancy = []domain.UnitOccupancy{
		{UnitID: "unit-1", HouseholdID: "hh-1", MonthlyRent: decimal.NewFromInt(900)},
	}

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.households.On("FindByID", ctx, "hh-1").Return(nil, errors.New("connection reset"))

	// Act
	_, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert: nothing persisted, so a corrected resubmission of the same
	// period can still be ingested.
	assert.Error(t, err)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.findings.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "MarkIngested", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplianceUseCase_UnitFailingBothChecksKeepsBothDetails(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{
		ID:     "proj-1",
		Name:   "Cedar Commons",
		County: "Multnomah",
		Track:  domain.TrackRental,
		Units: []domain.Unit{
			{ID: "unit-1", ProjectID: "proj-1", Bedrooms: 1, Tier: domain.AMITier60, Tenure: domain.TenureRental},
		},
	}
	household := tenantHousehold(4000)
	report := cleanReport("proj-1", 2025)
	report.Occupancy = []domain.UnitOccupancy{
		{UnitID: "unit-1", HouseholdID: "hh-1", MonthlyRent: decimal.NewFromInt(1200)},
	}

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.households.On("FindByID", ctx, "hh-1").Return(household, nil)
	f.limits.On("RentCeiling", ctx, 2025, "Multnomah", domain.AMITier60, 1).Return(decimal.NewFromInt(1100), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert: one finding carrying both reasons and both details.
	assert.NoError(t, err)
	if assert.Len(t, findings, 1) {
		assert.Contains(t, findings[0].Reasons, domain.ReasonIncomeOverLimit)
		assert.Contains(t, findings[0].Reasons, domain.ReasonRentOverLimit)
		assert.Contains(t, findings[0].Detail, "of AMI")
		assert.Contains(t, findings[0].Detail, "exceeds ceiling")
	}
}

func TestComplianceUseCase_MissedPaymentWithoutContactRequestsWorkout(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	contract := monitoringContract()
	project := &domain.Project{
		ID:         "proj-1",
		Name:       "Cedar Commons",
		County:     "Multnomah",
		Track:      domain.TrackRental,
		ContractID: contract.ID,
	}
	report := cleanReport("proj-1", 2025)
	report.Snapshot.MissedLoanPayment = true
	report.Snapshot.ContactMade = false

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)
	f.contracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	f.contracts.On("Update", ctx, contract, domain.StateMonitoring).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert: the workout transition carries the missed-payment finding.
	assert.NoError(t, err)
	assert.Equal(t, domain.StateWorkout, contract.State)
	last := contract.Transitions[len(contract.Transitions)-1]
	assert.Equal(t, "workout_entered", last.Event)
	assert.Equal(t, "compliance-monitor", last.Actor)
	var missedID string
	for _, finding := range findings {
		for _, r := range finding.Reasons {
			if r == domain.ReasonMissedLoanPayment {
				missedID = finding.ID
			}
		}
	}
	assert.NotEmpty(t, missedID)
	assert.Equal(t, missedID, last.FindingID)
	f.contracts.AssertExpectations(t)
}

func TestComplianceUseCase_MissedPaymentWithContactStaysInMonitoring(t *testing.T) {
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental, ContractID: "contract-1"}
	report := cleanReport("proj-1", 2025)
	report.Snapshot.MissedLoanPayment = true
	report.Snapshot.ContactMade = true

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	assert.NoError(t, err)
	assert.NotEmpty(t, findings)
	f.contracts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestComplianceUseCase_ReserveShortfallsReported(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental}
	report := cleanReport("proj-1", 2025)
	report.Targets.OperatingMinimum = decimal.NewFromInt(10000)
	report.Targets.ReplacementMinimum = decimal.NewFromInt(10000)

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(4000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(-500), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert: operating shortfall is a performance concern, an overdrawn
	// replacement reserve a compliance concern.
	assert.NoError(t, err)
	assert.Len(t, findings, 2)
	var reasons []domain.FindingReason
	for _, finding := range findings {
		reasons = append(reasons, finding.Reasons...)
	}
	assert.Contains(t, reasons, domain.ReasonOperatingShortfall)
	assert.Contains(t, reasons, domain.ReasonReplacementOverdrawn)
}

func TestComplianceUseCase_SnapshotThatDoesNotReconcileFlagged(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental}
	report := cleanReport("proj-1", 2025)
	// EGI 240000 - 12000 + 4500 = 232500; less 100000 expenses leaves 132500,
	// 7500 away from the reported NOI.
	report.Snapshot.PotentialGrossIncome = decimal.NewFromInt(240000)
	report.Snapshot.VacancyAllowance = decimal.NewFromInt(12000)
	report.Snapshot.MiscIncome = decimal.NewFromInt(4500)
	report.Snapshot.OperatingExpenses = decimal.NewFromInt(100000)
	report.Snapshot.NetOperatingIncome = decimal.NewFromInt(140000)

	f.reports.On("LatestIngestedYear", ctx, "proj-1").Return(2024, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.reports.On("Create", ctx, report).Return(nil)
	f.limits.On("IncomeLimits", ctx, 2025, "Multnomah").Return(multnomahLimits(2025), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveOperating, testNow).Return(decimal.NewFromInt(5000), nil)
	f.ledger.On("Balance", ctx, "proj-1", domain.ReserveReplacement, testNow).Return(decimal.NewFromInt(5000), nil)
	f.findings.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.ComplianceFinding")).Return(nil)
	f.reports.On("MarkIngested", ctx, mock.AnythingOfType("string"), testNow).Return(nil)

	// Act
	findings, err := f.useCase.IngestAnnualReport(ctx, "proj-1", report)

	// Assert
	assert.NoError(t, err)
	if assert.Len(t, findings, 1) {
		assert.Equal(t, domain.FindingComplianceConcern, findings[0].Kind)
		assert.Contains(t, findings[0].Reasons, domain.ReasonSnapshotInconsistent)
	}
}

func TestComplianceUseCase_SweepDeadlinesEntersWorkout(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	contract := monitoringContract()
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental, ContractID: contract.ID}

	issued := testNow.AddDate(0, 0, -45)
	overdue := domain.NewFinding("proj-1", "report-1", "unit-1", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonRentOverLimit}, "rent over ceiling", issued)
	performance := domain.NewFinding("proj-2", "report-2", "", domain.FindingPerformanceConcern, []domain.FindingReason{domain.ReasonDCRBelowTarget}, "DCR below target", issued)

	f.findings.On("ListOverdue", ctx, testNow).Return([]domain.ComplianceFinding{overdue, performance}, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.contracts.On("FindByID", ctx, contract.ID).Return(contract, nil)
	f.contracts.On("Update", ctx, contract, domain.StateMonitoring).Return(nil)

	// Act
	err := f.useCase.SweepDeadlines(ctx)

	// Assert: only the compliance concern drives a transition.
	assert.NoError(t, err)
	assert.Equal(t, domain.StateWorkout, contract.State)
	last := contract.Transitions[len(contract.Transitions)-1]
	assert.Equal(t, overdue.ID, last.FindingID)
	f.projects.AssertNumberOfCalls(t, "FindByID", 1)
	f.contracts.AssertExpectations(t)
}

func TestComplianceUseCase_SweepToleratesContractAlreadyInWorkout(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	contract := monitoringContract()
	_ = contract.EnterWorkout("finding-earlier", "compliance-monitor", testNow.AddDate(0, 0, -10))
	project := &domain.Project{ID: "proj-1", Name: "Cedar Commons", County: "Multnomah", Track: domain.TrackRental, ContractID: contract.ID}

	issued := testNow.AddDate(0, 0, -45)
	overdue := domain.NewFinding("proj-1", "report-1", "unit-1", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonRentOverLimit}, "rent over ceiling", issued)

	f.findings.On("ListOverdue", ctx, testNow).Return([]domain.ComplianceFinding{overdue}, nil)
	f.projects.On("FindByID", ctx, "proj-1").Return(project, nil)
	f.contracts.On("FindByID", ctx, contract.ID).Return(contract, nil)

	// Act
	err := f.useCase.SweepDeadlines(ctx)

	// Assert
	assert.NoError(t, err)
	f.contracts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplianceUseCase_ResolveFinding(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newComplianceFixture()
	issued := testNow.AddDate(0, 0, -10)
	finding := domain.NewFinding("proj-1", "report-1", "unit-1", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonRentOverLimit}, "rent over ceiling", issued)

	f.findings.On("FindByID", ctx, finding.ID).Return(&finding, nil)
	f.findings.On("Update", ctx, &finding).Return(nil)

	// Act
	resolved, err := f.useCase.ResolveFinding(ctx, finding.ID, "staff-2", "rent rolled back and refunded")

	// Assert
	assert.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "staff-2", resolved.ResolvedBy)
	if assert.NotNil(t, resolved.ResolvedAt) {
		assert.Equal(t, testNow, *resolved.ResolvedAt)
	}
	f.findings.AssertExpectations(t)
}
