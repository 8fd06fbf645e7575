package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/affordability"
	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/ports"
)

// CertifyRequest asks for an eligibility determination of a household against
// a unit's AMI tier.
type CertifyRequest struct {
	HouseholdID string                         `json:"household_id"`
	ProjectID   string                         `json:"project_id"`
	UnitID      string                         `json:"unit_id"`
	Year        int                            `json:"year"`
	Tier        affordability.VerificationTier `json:"verification_tier"`
	EffectiveAt time.Time                      `json:"effective_at"`

	// Replacement income sources for a recertification. Empty at initial
	// certification, where the household's captured sources are used as-is.
	NewSources []domain.IncomeSource `json:"new_sources,omitempty"`
}

// CertificationUseCase runs eligibility determinations and persists them so
// each period's certification stays reproducible.
type CertificationUseCase struct {
	householdRepo ports.HouseholdRepository
	projectRepo   ports.ProjectRepository
	certRepo      ports.CertificationRepository
	limits        ports.LimitsProvider
	calculator    *affordability.Calculator
	logger        *logrus.Logger
}

// NewCertificationUseCase creates a new certification use case.
func NewCertificationUseCase(
	householdRepo ports.HouseholdRepository,
	projectRepo ports.ProjectRepository,
	certRepo ports.CertificationRepository,
	limits ports.LimitsProvider,
	calculator *affordability.Calculator,
	logger *logrus.Logger,
) *CertificationUseCase {
	return &CertificationUseCase{
		householdRepo: householdRepo,
		projectRepo:   projectRepo,
		certRepo:      certRepo,
		limits:        limits,
		calculator:    calculator,
		logger:        logger,
	}
}

// Certify determines eligibility for a household occupying (or applying for)
// a unit. At recertification the supplied sources supersede the prior
// capture; the superseded sources are kept, not edited.
func (uc *CertificationUseCase) Certify(ctx context.Context, req CertifyRequest) (*ports.CertificationRecord, error) {
	if req.HouseholdID == "" || req.ProjectID == "" || req.UnitID == "" {
		return nil, fmt.Errorf("household, project, and unit IDs are required")
	}
	if req.Tier == "" {
		return nil, fmt.Errorf("verification tier is required")
	}

	household, err := uc.householdRepo.FindByID(ctx, req.HouseholdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load household: %w", err)
	}
	project, err := uc.projectRepo.FindByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	var unit *domain.Unit
	for i := range project.Units {
		if project.Units[i].ID == req.UnitID {
			unit = &project.Units[i]
			break
		}
	}
	if unit == nil {
		return nil, fmt.Errorf("unit %s not in project %s", req.UnitID, req.ProjectID)
	}

	if len(req.NewSources) > 0 {
		household.SupersedeSources(req.NewSources)
	}

	countyLimits, err := uc.limits.IncomeLimits(ctx, req.Year, project.County)
	if err != nil {
		return nil, fmt.Errorf("failed to load income limits: %w", err)
	}

	effective := req.EffectiveAt
	if effective.IsZero() {
		effective = time.Now()
	}
	result, err := uc.calculator.DetermineEligibility(household, unit.Tier.Percent(), countyLimits, effective, req.Tier)
	if err != nil {
		return nil, err
	}

	// The supersession is persisted only once the determination succeeds, so
	// a bad capture does not retire the sources the prior certification
	// stands on.
	if len(req.NewSources) > 0 {
		if err := uc.householdRepo.Update(ctx, household); err != nil {
			return nil, fmt.Errorf("failed to persist recertified sources: %w", err)
		}
	}

	record := &ports.CertificationRecord{
		ID:          uuid.NewString(),
		HouseholdID: household.ID,
		UnitID:      unit.ID,
		Result:      result,
		EffectiveAt: effective,
		CreatedAt:   time.Now(),
	}
	if err := uc.certRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist certification: %w", err)
	}

	uc.logger.WithFields(logrus.Fields{
		"household_id":   household.ID,
		"unit_id":        unit.ID,
		"eligible":       result.IsEligible,
		"percent_of_ami": result.PercentOfAMI.String(),
		"tier":           result.Tier,
	}).Info("certification recorded")
	return record, nil
}

// History lists a household's certification records, newest first.
func (uc *CertificationUseCase) History(ctx context.Context, householdID string) ([]*ports.CertificationRecord, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household ID is required")
	}
	records, err := uc.certRepo.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	return records, nil
}
