package affordability

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/income"
)

// VerificationTier is how a certification's income facts were verified. The
// caller supplies the tier explicitly; the calculator never infers it.
type VerificationTier string

const (
	TierFullVerification  VerificationTier = "FULL"
	TierSelfCertification VerificationTier = "SELF"
)

// ScheduledTier returns the tier the verification cadence calls for: full
// third-party verification at initial certification, at the first annual
// recertification, and every sixth year after that; self-certification
// otherwise.
func ScheduledTier(yearsSinceInitial int) VerificationTier {
	if yearsSinceInitial <= 1 {
		return TierFullVerification
	}
	if (yearsSinceInitial-1)%6 == 0 {
		return TierFullVerification
	}
	return TierSelfCertification
}

// CountyLimits is one year's published income limits for a county, keyed by
// household size. Values are 100% of area median income.
type CountyLimits struct {
	Year         int
	County       string
	MedianBySize map[int]decimal.Decimal
}

// MedianFor returns the AMI figure for a household size, falling back to the
// largest published size for oversized households.
func (cl CountyLimits) MedianFor(size int) (decimal.Decimal, error) {
	if v, ok := cl.MedianBySize[size]; ok {
		return v, nil
	}
	best := decimal.Zero
	bestSize := 0
	for s, v := range cl.MedianBySize {
		if s > bestSize && s < size {
			bestSize, best = s, v
		}
	}
	if bestSize == 0 {
		return decimal.Zero, domain.ErrLimitsNotFound
	}
	return best, nil
}

// EligibilityResult is the outcome of an income eligibility determination.
type EligibilityResult struct {
	IsEligible   bool             `json:"is_eligible"`
	AnnualIncome decimal.Decimal  `json:"annual_income"`
	PercentOfAMI decimal.Decimal  `json:"percent_of_ami"`
	Tier         VerificationTier `json:"verification_tier"`
}

// AffordabilityResult is the outcome of a housing-cost affordability check.
type AffordabilityResult struct {
	FrontEndRatio decimal.Decimal `json:"front_end_ratio"`
	BackEndRatio  decimal.Decimal `json:"back_end_ratio"`
	IsAffordable  bool            `json:"is_affordable"`
}

// Thresholds. Rental affordability is front-end only; homeownership holds
// both ratios. All comparisons are inclusive.
var (
	rentalFrontEndMax    = decimal.RequireFromString("0.30")
	ownershipFrontEndMax = decimal.RequireFromString("0.38")
	ownershipBackEndMax  = decimal.RequireFromString("0.45")
)

// Calculator certifies households against income limits and housing costs.
// Limit tables are injected per determination; nothing is hard-coded.
type Calculator struct {
	Rules          *income.Library
	AssetThreshold decimal.Decimal
	ImputedRate    decimal.Decimal
}

// NewCalculator builds a calculator over the given rule library with the
// passbook imputed rate for asset income.
func NewCalculator(rules *income.Library, imputedRate decimal.Decimal) *Calculator {
	return &Calculator{
		Rules:          rules,
		AssetThreshold: income.DefaultAssetThreshold,
		ImputedRate:    imputedRate,
	}
}

// DetermineEligibility computes household annual income (sources plus counted
// asset income plus recurring lump sums, minus exempt sources) and compares
// it to the target percentage of the county median for the household size.
// The determination is pure: identical inputs give identical results.
func (c *Calculator) DetermineEligibility(h *domain.Household, targetAMIPercent decimal.Decimal, limits CountyLimits, ref time.Time, tier VerificationTier) (EligibilityResult, error) {
	if err := h.ValidateForCertification(); err != nil {
		return EligibilityResult{}, err
	}

	sourceIncome, err := c.Rules.HouseholdAnnualIncome(h, ref)
	if err != nil {
		return EligibilityResult{}, err
	}
	assets, err := income.AggregateAssetIncome(h.Assets, c.AssetThreshold, c.ImputedRate, ref)
	if err != nil {
		return EligibilityResult{}, err
	}
	annual := sourceIncome.Add(assets.CountedIncome).Add(assets.RecurringIncome)

	median, err := limits.MedianFor(h.Size())
	if err != nil {
		return EligibilityResult{}, err
	}
	ceiling := median.Mul(targetAMIPercent).Div(decimal.NewFromInt(100))
	percentOfAMI := decimal.Zero
	if median.IsPositive() {
		percentOfAMI = annual.Div(median).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return EligibilityResult{
		IsEligible:   !annual.GreaterThan(ceiling),
		AnnualIncome: annual,
		PercentOfAMI: percentOfAMI,
		Tier:         tier,
	}, nil
}

// DetermineAffordability computes the front-end ratio (housing cost over
// income) and back-end ratio (housing cost plus recurring debt over income)
// and applies the tenure's thresholds. A ratio landing exactly on the
// threshold is affordable.
func (c *Calculator) DetermineAffordability(annualHousingCost, annualDebtLoad, annualIncome decimal.Decimal, tenure domain.Tenure) (AffordabilityResult, error) {
	if !annualIncome.IsPositive() {
		return AffordabilityResult{}, domain.ErrInsufficientData
	}
	front := annualHousingCost.Div(annualIncome)
	back := annualHousingCost.Add(annualDebtLoad).Div(annualIncome)

	var affordable bool
	switch tenure {
	case domain.TenureOwnership:
		affordable = !front.GreaterThan(ownershipFrontEndMax) && !back.GreaterThan(ownershipBackEndMax)
	default:
		affordable = !front.GreaterThan(rentalFrontEndMax)
	}
	return AffordabilityResult{
		FrontEndRatio: front,
		BackEndRatio:  back,
		IsAffordable:  affordable,
	}, nil
}
