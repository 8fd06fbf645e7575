package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomeType enumerates the income source variants the rule library knows how
// to annualize. The set is closed: an unknown type is an error, never zero.
type IncomeType string

const (
	IncomeEmployment      IncomeType = "EMPLOYMENT"
	IncomeSelfEmployment  IncomeType = "SELF_EMPLOYMENT"
	IncomeSeasonal        IncomeType = "SEASONAL"
	IncomeMilitary        IncomeType = "MILITARY"
	IncomeUnemployment    IncomeType = "UNEMPLOYMENT"
	IncomePension         IncomeType = "PENSION"
	IncomeSocialSecurity  IncomeType = "SOCIAL_SECURITY"
	IncomeChildSupport    IncomeType = "CHILD_SUPPORT"
	IncomeAnnuity         IncomeType = "ANNUITY"
	IncomePublicAssist    IncomeType = "PUBLIC_ASSISTANCE"
	IncomeGift            IncomeType = "GIFT"
	IncomeRental          IncomeType = "RENTAL"
	IncomeStudent         IncomeType = "STUDENT"
	IncomeOther           IncomeType = "OTHER"
)

// PayFrequency represents how often a periodic amount is received.
type PayFrequency string

const (
	FrequencyHourly      PayFrequency = "HOURLY"
	FrequencyWeekly      PayFrequency = "WEEKLY"
	FrequencyBiWeekly    PayFrequency = "BI_WEEKLY"
	FrequencySemiMonthly PayFrequency = "SEMI_MONTHLY"
	FrequencyMonthly     PayFrequency = "MONTHLY"
	FrequencyAnnual      PayFrequency = "ANNUAL"
)

// RateChange records a pay raise or cost-of-living adjustment that takes
// effect inside the 12-month projection window.
type RateChange struct {
	EffectiveDate time.Time       `json:"effective_date"`
	NewRate       decimal.Decimal `json:"new_rate"`
}

// OvertimeTerms captures verified overtime expected to continue.
type OvertimeTerms struct {
	Rate           decimal.Decimal `json:"rate"`
	HoursPerPeriod decimal.Decimal `json:"hours_per_period"`
	PeriodsPerYear int             `json:"periods_per_year"`
}

// SeasonHistory is one prior year of seasonal earnings used by the
// seasonal estimator. Up to three years may be supplied.
type SeasonHistory struct {
	Year   int             `json:"year"`
	Earned decimal.Decimal `json:"earned"`
}

// StudentAidTerm describes the institution's term structure for pro-rating
// financial aid.
type StudentAidTerm string

const (
	TermSemester StudentAidTerm = "SEMESTER"
	TermQuarter  StudentAidTerm = "QUARTER"
)

// IncomeSource carries the raw verification facts for one member income
// stream. A source is immutable once captured for a certification period;
// recertification supersedes it with a new source rather than editing it.
type IncomeSource struct {
	ID       string     `json:"id"`
	MemberID string     `json:"member_id"`
	Type     IncomeType `json:"type"`
	Exempt   bool       `json:"exempt"`

	// Periodic wage facts (Employment, Unemployment, Pension, SocialSecurity,
	// ChildSupport, Annuity, PublicAssistance, Gift, Other).
	Rate         decimal.Decimal `json:"rate"`
	Frequency    PayFrequency    `json:"frequency"`
	HoursPerWeek decimal.Decimal `json:"hours_per_week"`
	RateChange   *RateChange     `json:"rate_change,omitempty"`
	Overtime     *OvertimeTerms  `json:"overtime,omitempty"`
	DeclaredTips decimal.Decimal `json:"declared_tips"`
	HasTips      bool            `json:"has_tips"`

	// Irregular periodic income: trailing 12-month receipts, averaged.
	TrailingReceipts []decimal.Decimal `json:"trailing_receipts,omitempty"`
	Irregular        bool              `json:"irregular"`

	// Self-employment facts.
	PriorYearNet   decimal.Decimal `json:"prior_year_net"`
	ProjectedDelta decimal.Decimal `json:"projected_delta"`
	Justification  string          `json:"justification"`

	// Seasonal facts.
	SeasonMonths     int               `json:"season_months"`
	SeasonMonthlyPay decimal.Decimal   `json:"season_monthly_pay"`
	OffSeasonWeekly  decimal.Decimal   `json:"off_season_weekly"`
	History          []SeasonHistory   `json:"history,omitempty"`

	// Military facts. Monthly figures except the clothing allowance, which is
	// an annual amount added once.
	BasePay           decimal.Decimal `json:"base_pay"`
	HousingAllowance  decimal.Decimal `json:"housing_allowance"`
	SubsistenceAllow  decimal.Decimal `json:"subsistence_allowance"`
	SpecialPays       decimal.Decimal `json:"special_pays"`
	ClothingAllowance decimal.Decimal `json:"clothing_allowance"`

	// Unemployment co-projection with return-to-work income.
	RemainingWeeks   int  `json:"remaining_weeks"`
	CoProjected      bool `json:"co_projected"`

	// Student facts.
	FullTimeDependent bool            `json:"full_time_dependent"`
	EarnedIncome      decimal.Decimal `json:"earned_income"`
	UnearnedIncome    decimal.Decimal `json:"unearned_income"`
	AidPerTerm        decimal.Decimal `json:"aid_per_term"`
	LoanPerTerm       decimal.Decimal `json:"loan_per_term"`
	WorkStudyPerTerm  decimal.Decimal `json:"work_study_per_term"`
	TuitionPerTerm    decimal.Decimal `json:"tuition_per_term"`
	TermStructure     StudentAidTerm  `json:"term_structure"`
	SummerTerm        bool            `json:"summer_term"`

	// Rental income facts.
	GrossRent        decimal.Decimal `json:"gross_rent"`
	MortgageInterest decimal.Decimal `json:"mortgage_interest"`
	Insurance        decimal.Decimal `json:"insurance"`
	RentalExpenses   decimal.Decimal `json:"rental_expenses"`

	// Window bookkeeping.
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	CapturedAt   time.Time `json:"captured_at"`
	SupersededBy string    `json:"superseded_by,omitempty"`
}

// AssetType enumerates asset holding variants.
type AssetType string

const (
	AssetCashAccount       AssetType = "CASH_ACCOUNT"
	AssetStock             AssetType = "STOCK"
	AssetBond              AssetType = "BOND"
	AssetTrust             AssetType = "TRUST"
	AssetRetirementAccount AssetType = "RETIREMENT_ACCOUNT"
	AssetLifeInsurance     AssetType = "LIFE_INSURANCE"
	AssetRealEstate        AssetType = "REAL_ESTATE"
	AssetMortgageHeld      AssetType = "MORTGAGE_HELD"
	AssetLumpSum           AssetType = "LUMP_SUM"
	AssetDisposedBelowFMV  AssetType = "DISPOSED_BELOW_FMV"
)

// AmortizationTerms describes a mortgage or deed of trust held by a member.
// The principal balance is an asset; the next twelve months of interest from
// the amortization schedule is income.
type AmortizationTerms struct {
	AnnualRate     decimal.Decimal `json:"annual_rate"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
}

// AssetHolding carries the cash value and income facts for one member asset.
type AssetHolding struct {
	ID       string    `json:"id"`
	MemberID string    `json:"member_id"`
	Type     AssetType `json:"type"`

	CashValue    decimal.Decimal `json:"cash_value"`
	ActualIncome decimal.Decimal `json:"actual_income"`

	// Joint ownership. Owners is the total number of co-owners; HouseholdOwners
	// is how many of them are members of this household. Zero values mean sole
	// ownership by the member.
	Owners          int `json:"owners"`
	HouseholdOwners int `json:"household_owners"`

	// Recurring lump-sum streams are income, not assets.
	RecurringAmount    decimal.Decimal `json:"recurring_amount"`
	RecurringFrequency PayFrequency    `json:"recurring_frequency"`
	Recurring          bool            `json:"recurring"`

	// Disposed-below-fair-market-value assets stay countable for two years
	// from the disposition date regardless of spend-down.
	DispositionDate *time.Time `json:"disposition_date,omitempty"`

	Amortization *AmortizationTerms `json:"amortization,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// Relationship of a member to the head of household.
type Relationship string

const (
	RelationshipHead      Relationship = "HEAD"
	RelationshipSpouse    Relationship = "SPOUSE"
	RelationshipDependent Relationship = "DEPENDENT"
	RelationshipOther     Relationship = "OTHER"
)

// Member is one person in a household.
type Member struct {
	ID           string       `json:"id"`
	HouseholdID  string       `json:"household_id"`
	Age          int          `json:"age"`
	Relationship Relationship `json:"relationship"`
}

// Household is the certification unit: an ordered set of members, each with
// zero or more income sources and asset holdings. Created at application or
// move-in, recertified annually, destroyed on move-out.
type Household struct {
	ID        string         `json:"id"`
	UnitID    string         `json:"unit_id,omitempty"`
	Members   []Member       `json:"members"`
	Sources   []IncomeSource `json:"sources"`
	Assets    []AssetHolding `json:"assets"`
	MovedInAt time.Time      `json:"moved_in_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewHousehold creates a household with the given members.
func NewHousehold(members []Member) *Household {
	now := time.Now()
	h := &Household{
		ID:        uuid.NewString(),
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range h.Members {
		if h.Members[i].ID == "" {
			h.Members[i].ID = uuid.NewString()
		}
		h.Members[i].HouseholdID = h.ID
	}
	return h
}

const adultAge = 18

// ValidateForCertification enforces the at-least-one-adult invariant.
func (h *Household) ValidateForCertification() error {
	for _, m := range h.Members {
		if m.Age >= adultAge {
			return nil
		}
	}
	return ErrNoAdultMember
}

// Size returns the number of members, which keys the income-limit lookup.
func (h *Household) Size() int {
	return len(h.Members)
}

// ActiveSources returns the income sources for the current certification
// period, skipping superseded ones.
func (h *Household) ActiveSources() []IncomeSource {
	var active []IncomeSource
	for _, s := range h.Sources {
		if s.SupersededBy == "" {
			active = append(active, s)
		}
	}
	return active
}

// SupersedeSources replaces the household's active income sources with a new
// capture. Existing sources are marked superseded, never edited, so prior
// certifications stay reproducible.
func (h *Household) SupersedeSources(replacements []IncomeSource) {
	now := time.Now()
	for i := range replacements {
		if replacements[i].ID == "" {
			replacements[i].ID = uuid.NewString()
		}
		if replacements[i].CapturedAt.IsZero() {
			replacements[i].CapturedAt = now
		}
	}
	marker := "superseded"
	if len(replacements) > 0 {
		marker = replacements[0].ID
	}
	for i := range h.Sources {
		if h.Sources[i].SupersededBy == "" {
			h.Sources[i].SupersededBy = marker
		}
	}
	h.Sources = append(h.Sources, replacements...)
	h.UpdatedAt = now
}
