package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
)

// ContractRepository defines the interface for contract persistence.
type ContractRepository interface {
	// Create saves a new contract
	Create(ctx context.Context, contract *domain.Contract) error

	// FindByID retrieves a contract with its transition log and amendments
	FindByID(ctx context.Context, id string) (*domain.Contract, error)

	// FindByProject retrieves the active contract for a project
	FindByProject(ctx context.Context, projectID string) (*domain.Contract, error)

	// Update persists a contract mutation together with any transition
	// records appended since it was loaded. The state column is updated with
	// a compare-and-set on the expected prior state so concurrent writers
	// cannot interleave transitions.
	Update(ctx context.Context, contract *domain.Contract, expected domain.ContractState) error
}

// ProjectRepository defines the interface for project persistence.
type ProjectRepository interface {
	// Create saves a new project and its units
	Create(ctx context.Context, project *domain.Project) error

	// FindByID retrieves a project with its units
	FindByID(ctx context.Context, id string) (*domain.Project, error)

	// Update updates project and unit occupancy state
	Update(ctx context.Context, project *domain.Project) error
}

// HouseholdRepository defines the interface for household persistence.
type HouseholdRepository interface {
	// Create saves a new household with members, sources, and assets
	Create(ctx context.Context, household *domain.Household) error

	// FindByID retrieves a household with members, sources, and assets
	FindByID(ctx context.Context, id string) (*domain.Household, error)

	// Update persists superseded and newly captured sources
	Update(ctx context.Context, household *domain.Household) error

	// Delete removes a household on move-out
	Delete(ctx context.Context, id string) error
}

// CertificationRecord is one persisted eligibility determination.
type CertificationRecord struct {
	ID           string                        `json:"id"`
	HouseholdID  string                        `json:"household_id"`
	UnitID       string                        `json:"unit_id"`
	Result       affordability.EligibilityResult `json:"result"`
	EffectiveAt  time.Time                     `json:"effective_at"`
	CreatedAt    time.Time                     `json:"created_at"`
}

// CertificationRepository stores eligibility determinations so historical
// certifications stay reproducible.
type CertificationRepository interface {
	// Create saves a certification record
	Create(ctx context.Context, record *CertificationRecord) error

	// ListByHousehold retrieves certification history, newest first
	ListByHousehold(ctx context.Context, householdID string) ([]*CertificationRecord, error)
}

// LedgerRepository defines the interface for reserve ledger persistence.
// Entries are append-only; there is no update or delete.
type LedgerRepository interface {
	// Append saves a ledger entry
	Append(ctx context.Context, entry domain.LedgerEntry) error

	// Entries retrieves all entries for one project reserve in date order
	Entries(ctx context.Context, projectID string, kind domain.ReserveKind) ([]domain.LedgerEntry, error)

	// Balance computes the running sum as of a date
	Balance(ctx context.Context, projectID string, kind domain.ReserveKind, asOf time.Time) (decimal.Decimal, error)
}

// FindingRepository defines the interface for compliance finding persistence.
type FindingRepository interface {
	// CreateBatch saves the findings from one report evaluation
	CreateBatch(ctx context.Context, findings []domain.ComplianceFinding) error

	// FindByID retrieves a finding
	FindByID(ctx context.Context, id string) (*domain.ComplianceFinding, error)

	// ListByProject retrieves findings for a project, newest first
	ListByProject(ctx context.Context, projectID string) ([]domain.ComplianceFinding, error)

	// ListByReport retrieves the findings persisted for one report
	ListByReport(ctx context.Context, reportID string) ([]domain.ComplianceFinding, error)

	// ListOverdue retrieves unresolved findings whose response deadline has
	// passed as of the given time
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.ComplianceFinding, error)

	// Update persists resolution state
	Update(ctx context.Context, finding *domain.ComplianceFinding) error
}

// ReportRepository defines the interface for annual report persistence.
type ReportRepository interface {
	// Create saves a submitted report
	Create(ctx context.Context, report *domain.AnnualReport) error

	// FindByID retrieves a report
	FindByID(ctx context.Context, id string) (*domain.AnnualReport, error)

	// LatestIngestedYear returns the most recent period year already ingested
	// for a project, or zero when none has been
	LatestIngestedYear(ctx context.Context, projectID string) (int, error)

	// MarkIngested records that evaluation of a report completed
	MarkIngested(ctx context.Context, reportID string, at time.Time) error
}

// LimitsProvider supplies the versioned AMI and rent-limit tables. Tables are
// external inputs, injected and never hard-coded.
type LimitsProvider interface {
	// IncomeLimits returns the county median income schedule for a year
	IncomeLimits(ctx context.Context, year int, county string) (affordability.CountyLimits, error)

	// RentCeiling returns the monthly rent limit for a year, county, AMI
	// tier, and bedroom count
	RentCeiling(ctx context.Context, year int, county string, tier domain.AMITier, bedrooms int) (decimal.Decimal, error)
}
