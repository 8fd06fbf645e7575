package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtObligation is one loan in the project's capital stack. Deferred loans
// sit outside the debt-coverage denominator until their deferral period ends.
type DebtObligation struct {
	LenderName        string          `json:"lender_name"`
	AnnualDebtService decimal.Decimal `json:"annual_debt_service"`
	Deferred          bool            `json:"deferred"`
	DeferralEnd       *time.Time      `json:"deferral_end,omitempty"`
}

// Amortizing reports whether the obligation counts in the DCR denominator as
// of the given date.
func (d DebtObligation) Amortizing(asOf time.Time) bool {
	if !d.Deferred {
		return true
	}
	return d.DeferralEnd != nil && !asOf.Before(*d.DeferralEnd)
}

// FinancialSnapshot is the project's periodic operating picture as submitted
// with the annual report.
type FinancialSnapshot struct {
	PotentialGrossIncome decimal.Decimal  `json:"potential_gross_income"`
	VacancyAllowance     decimal.Decimal  `json:"vacancy_allowance"`
	MiscIncome           decimal.Decimal  `json:"misc_income"`
	OperatingExpenses    decimal.Decimal  `json:"operating_expenses"`
	NetOperatingIncome   decimal.Decimal  `json:"net_operating_income"`
	Debts                []DebtObligation `json:"debts"`
	MissedLoanPayment    bool             `json:"missed_loan_payment"`
	ContactMade          bool             `json:"contact_made"`
}

// UnitOccupancy is one roster row in the annual report: the household in the
// unit and the rent actually charged.
type UnitOccupancy struct {
	UnitID        string          `json:"unit_id"`
	HouseholdID   string          `json:"household_id"`
	MonthlyRent   decimal.Decimal `json:"monthly_rent"`
	FormerTenant  bool            `json:"former_tenant"`
	AnnualDebt    decimal.Decimal `json:"annual_debt"`
}

// ReserveTargets carries the externally supplied minimums the reserves are
// held against. The replacement target comes from the capital-needs
// life-cycle estimate, which this engine consumes but does not produce.
type ReserveTargets struct {
	OperatingMinimum   decimal.Decimal `json:"operating_minimum"`
	ReplacementMinimum decimal.Decimal `json:"replacement_minimum"`
}

// AnnualReport is one period's compliance submission for a project.
// PeriodYear orders reports; ingestion is strictly sequential per project.
type AnnualReport struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	PeriodYear int               `json:"period_year"`
	Snapshot   FinancialSnapshot `json:"snapshot"`
	Occupancy  []UnitOccupancy   `json:"occupancy"`
	Targets    ReserveTargets    `json:"targets"`

	// Boolean proof signals from the audit/insurance collaborators; the
	// documents themselves are out of scope.
	AuditCurrent     bool `json:"audit_current"`
	InsuranceCurrent bool `json:"insurance_current"`

	SubmittedAt time.Time `json:"submitted_at"`
	IngestedAt  *time.Time `json:"ingested_at,omitempty"`
}
