package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/metrics"
	"github.com/homeward/homeward/internal/ports"
)

// snapshotTolerance absorbs rounding in submitted financials.
var snapshotTolerance = decimal.NewFromInt(1)

// ComplianceUseCase ingests annual reports, raises findings, and drives
// contracts into workout when concerns go unanswered.
type ComplianceUseCase struct {
	projectRepo   ports.ProjectRepository
	householdRepo ports.HouseholdRepository
	reportRepo    ports.ReportRepository
	findingRepo   ports.FindingRepository
	ledgerRepo    ports.LedgerRepository
	limits        ports.LimitsProvider
	calculator    *affordability.Calculator
	lifecycle     *LifecycleUseCase
	locker        ports.ProjectLocker
	clock         ports.Clock
	logger        *logrus.Logger
}

// NewComplianceUseCase creates a new compliance use case.
func NewComplianceUseCase(
	projectRepo ports.ProjectRepository,
	householdRepo ports.HouseholdRepository,
	reportRepo ports.ReportRepository,
	findingRepo ports.FindingRepository,
	ledgerRepo ports.LedgerRepository,
	limits ports.LimitsProvider,
	calculator *affordability.Calculator,
	lifecycle *LifecycleUseCase,
	locker ports.ProjectLocker,
	clock ports.Clock,
	logger *logrus.Logger,
) *ComplianceUseCase {
	return &ComplianceUseCase{
		projectRepo:   projectRepo,
		householdRepo: householdRepo,
		reportRepo:    reportRepo,
		findingRepo:   findingRepo,
		ledgerRepo:    ledgerRepo,
		limits:        limits,
		calculator:    calculator,
		lifecycle:     lifecycle,
		locker:        locker,
		clock:         clock,
		logger:        logger,
	}
}

// IngestAnnualReport evaluates one period's report for a project and persists
// the resulting findings. Ingestion per project is strictly sequential: a
// report for an already-ingested or earlier period fails with ErrStaleReport
// and nothing is persisted. Evaluation is deterministic for a given report
// and ledger state.
func (uc *ComplianceUseCase) IngestAnnualReport(ctx context.Context, projectID string, report *domain.AnnualReport) ([]domain.ComplianceFinding, error) {
	if report == nil || report.ProjectID != projectID {
		return nil, fmt.Errorf("report does not belong to project %s", projectID)
	}

	release, err := uc.locker.Acquire(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire project lock: %w", err)
	}
	defer release()

	if report.IngestedAt != nil {
		return nil, domain.ErrStaleReport
	}
	latest, err := uc.reportRepo.LatestIngestedYear(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ingestion order: %w", err)
	}
	if latest >= report.PeriodYear {
		return nil, domain.ErrStaleReport
	}

	project, err := uc.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = uc.clock.Now()
	}

	issuedAt := uc.clock.Now()
	var findings []domain.ComplianceFinding

	unitFindings, err := uc.evaluateOccupancy(ctx, project, report, issuedAt)
	if err != nil {
		return nil, err
	}
	findings = append(findings, unitFindings...)

	findings = append(findings, uc.evaluateSnapshot(project, report, issuedAt)...)

	reserveFindings, err := uc.evaluateReserves(ctx, project, report, issuedAt)
	if err != nil {
		return nil, err
	}
	findings = append(findings, reserveFindings...)

	if len(findings) == 0 {
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingInCompliance, nil, "", issuedAt))
	}

	// The report row is written only once evaluation has succeeded, so a
	// failed evaluation leaves nothing behind and the period stays open for a
	// corrected resubmission.
	if err := uc.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}
	if err := uc.findingRepo.CreateBatch(ctx, findings); err != nil {
		return nil, fmt.Errorf("failed to persist findings: %w", err)
	}
	if err := uc.reportRepo.MarkIngested(ctx, report.ID, issuedAt); err != nil {
		return nil, fmt.Errorf("failed to mark report ingested: %w", err)
	}

	uc.logger.WithFields(logrus.Fields{
		"project_id":  project.ID,
		"report_id":   report.ID,
		"period_year": report.PeriodYear,
		"findings":    len(findings),
	}).Info("annual report ingested")

	// A missed loan payment without contact requests workout directly,
	// without waiting out a response window.
	if report.Snapshot.MissedLoanPayment && !report.Snapshot.ContactMade {
		uc.requestWorkout(ctx, project, findingID(findings, domain.ReasonMissedLoanPayment))
	}

	return findings, nil
}

func (uc *ComplianceUseCase) evaluateOccupancy(ctx context.Context, project *domain.Project, report *domain.AnnualReport, issuedAt time.Time) ([]domain.ComplianceFinding, error) {
	countyLimits, err := uc.limits.IncomeLimits(ctx, report.PeriodYear, project.County)
	if err != nil {
		return nil, fmt.Errorf("failed to load income limits: %w", err)
	}

	unitsByID := make(map[string]domain.Unit, len(project.Units))
	for _, u := range project.Units {
		unitsByID[u.ID] = u
	}

	var findings []domain.ComplianceFinding
	for _, occ := range report.Occupancy {
		unit, ok := unitsByID[occ.UnitID]
		if !ok {
			return nil, fmt.Errorf("report references unknown unit %s", occ.UnitID)
		}

		household, err := uc.householdRepo.FindByID(ctx, occ.HouseholdID)
		if err != nil {
			return nil, fmt.Errorf("failed to load household %s: %w", occ.HouseholdID, err)
		}

		var reasons []domain.FindingReason
		var details []string

		result, err := uc.calculator.DetermineEligibility(household, unit.Tier.Percent(), countyLimits, issuedAt, affordability.TierSelfCertification)
		if err != nil {
			return nil, fmt.Errorf("eligibility evaluation failed for unit %s: %w", unit.ID, err)
		}
		if !result.IsEligible {
			reasons = append(reasons, domain.ReasonIncomeOverLimit)
			details = append(details, fmt.Sprintf("household income %s is %s%% of AMI", result.AnnualIncome.String(), result.PercentOfAMI.String()))
		}

		ceiling, err := uc.limits.RentCeiling(ctx, report.PeriodYear, project.County, unit.Tier, unit.Bedrooms)
		if err != nil {
			return nil, fmt.Errorf("failed to load rent ceiling: %w", err)
		}
		if occ.MonthlyRent.GreaterThan(ceiling) {
			if occ.FormerTenant {
				// Overcharge owed to a tenant who has already left gets the
				// longer refund window.
				reasons = append(reasons, domain.ReasonFormerTenantRefund)
			} else {
				reasons = append(reasons, domain.ReasonRentOverLimit)
			}
			details = append(details, fmt.Sprintf("rent %s exceeds ceiling %s", occ.MonthlyRent.String(), ceiling.String()))
		}

		if len(reasons) > 0 {
			findings = append(findings, domain.NewFinding(project.ID, report.ID, unit.ID, domain.FindingComplianceConcern, reasons, strings.Join(details, "; "), issuedAt))
		}
	}
	return findings, nil
}

func (uc *ComplianceUseCase) evaluateSnapshot(project *domain.Project, report *domain.AnnualReport, issuedAt time.Time) []domain.ComplianceFinding {
	var findings []domain.ComplianceFinding
	snap := report.Snapshot

	asOf := time.Date(report.PeriodYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	dcr := metrics.ComputeDCR(snap.NetOperatingIncome, snap.Debts, asOf)
	if !dcr.Adequate {
		detail := fmt.Sprintf("DCR %s below %s on debt service %s", dcr.Ratio.String(), metrics.DCRAdequate.String(), dcr.DebtService.String())
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingPerformanceConcern, []domain.FindingReason{domain.ReasonDCRBelowTarget}, detail, issuedAt))
	}
	if dcr.ExcessCashFlow {
		// Advisory only; eligibility for discretionary use of excess cash
		// flow is decided outside this engine.
		uc.logger.WithFields(logrus.Fields{
			"project_id": project.ID,
			"ratio":      dcr.Ratio.String(),
		}).Info("excess cash flow advisory")
	}

	// The snapshot must reconcile with itself: reported NOI against EGI less
	// operating expenses, within a dollar of rounding.
	if snap.PotentialGrossIncome.IsPositive() {
		derived := metrics.ComputeEGI(snap.PotentialGrossIncome, snap.VacancyAllowance, snap.MiscIncome).Sub(snap.OperatingExpenses)
		if derived.Sub(snap.NetOperatingIncome).Abs().GreaterThan(snapshotTolerance) {
			detail := fmt.Sprintf("reported NOI %s does not reconcile with derived %s", snap.NetOperatingIncome.String(), derived.String())
			findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonSnapshotInconsistent}, detail, issuedAt))
		}
	}

	if snap.MissedLoanPayment {
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonMissedLoanPayment}, "loan payment missed", issuedAt))
	}

	var proofReasons []domain.FindingReason
	if !report.AuditCurrent {
		proofReasons = append(proofReasons, domain.ReasonAuditExpired)
	}
	if !report.InsuranceCurrent {
		proofReasons = append(proofReasons, domain.ReasonInsuranceExpired)
	}
	if len(proofReasons) > 0 {
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingComplianceConcern, proofReasons, "required proof not current", issuedAt))
	}
	return findings
}

func (uc *ComplianceUseCase) evaluateReserves(ctx context.Context, project *domain.Project, report *domain.AnnualReport, issuedAt time.Time) ([]domain.ComplianceFinding, error) {
	var findings []domain.ComplianceFinding

	operating, err := uc.ledgerRepo.Balance(ctx, project.ID, domain.ReserveOperating, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read operating balance: %w", err)
	}
	replacement, err := uc.ledgerRepo.Balance(ctx, project.ID, domain.ReserveReplacement, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read replacement balance: %w", err)
	}

	if check := metrics.CheckReserve(operating, report.Targets.OperatingMinimum); !check.Adequate {
		detail := fmt.Sprintf("operating reserve %s short of minimum %s", check.Balance.String(), check.Minimum.String())
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingPerformanceConcern, []domain.FindingReason{domain.ReasonOperatingShortfall}, detail, issuedAt))
	}

	if replacement.IsNegative() {
		detail := fmt.Sprintf("replacement reserve overdrawn to %s", replacement.String())
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingComplianceConcern, []domain.FindingReason{domain.ReasonReplacementOverdrawn}, detail, issuedAt))
	} else if check := metrics.CheckReserve(replacement, report.Targets.ReplacementMinimum); !check.Adequate {
		detail := fmt.Sprintf("replacement reserve %s short of capital-needs minimum %s", check.Balance.String(), check.Minimum.String())
		findings = append(findings, domain.NewFinding(project.ID, report.ID, "", domain.FindingPerformanceConcern, []domain.FindingReason{domain.ReasonReplacementShortfall}, detail, issuedAt))
	}
	return findings, nil
}

// SweepDeadlines requests a workout transition for every compliance concern
// still unresolved past its response deadline. Contracts already out of
// Monitoring are skipped.
func (uc *ComplianceUseCase) SweepDeadlines(ctx context.Context) error {
	now := uc.clock.Now()
	overdue, err := uc.findingRepo.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list overdue findings: %w", err)
	}

	for _, f := range overdue {
		if f.Kind != domain.FindingComplianceConcern {
			continue
		}
		project, err := uc.projectRepo.FindByID(ctx, f.ProjectID)
		if err != nil {
			uc.logger.WithError(err).WithField("project_id", f.ProjectID).Warn("sweep: failed to load project")
			continue
		}
		uc.requestWorkout(ctx, project, f.ID)
	}
	return nil
}

func (uc *ComplianceUseCase) requestWorkout(ctx context.Context, project *domain.Project, findingID string) {
	if project.ContractID == "" {
		return
	}
	_, err := uc.lifecycle.EnterWorkout(ctx, project.ContractID, findingID, "compliance-monitor")
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Already in workout, amending, or terminal; nothing to request.
			return
		}
		uc.logger.WithError(err).WithFields(logrus.Fields{
			"contract_id": project.ContractID,
			"finding_id":  findingID,
		}).Warn("workout transition request failed")
	}
}

// ResolveFinding marks a finding resolved with the responder and note.
func (uc *ComplianceUseCase) ResolveFinding(ctx context.Context, findingID, by, note string) (*domain.ComplianceFinding, error) {
	finding, err := uc.findingRepo.FindByID(ctx, findingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load finding: %w", err)
	}
	finding.Resolve(by, note, uc.clock.Now())
	if err := uc.findingRepo.Update(ctx, finding); err != nil {
		return nil, fmt.Errorf("failed to persist resolution: %w", err)
	}
	return finding, nil
}

// ListFindings returns the findings for a project, newest first.
func (uc *ComplianceUseCase) ListFindings(ctx context.Context, projectID string) ([]domain.ComplianceFinding, error) {
	findings, err := uc.findingRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	return findings, nil
}

func findingID(findings []domain.ComplianceFinding, reason domain.FindingReason) string {
	for _, f := range findings {
		for _, r := range f.Reasons {
			if r == reason {
				return f.ID
			}
		}
	}
	return ""
}
