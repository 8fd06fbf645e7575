package income

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
)

// Canonical annual factors per pay frequency.
var (
	factorHourly      = decimal.NewFromInt(2080)
	factorWeekly      = decimal.NewFromInt(52)
	factorBiWeekly    = decimal.NewFromInt(26)
	factorSemiMonthly = decimal.NewFromInt(24)
	factorMonthly     = decimal.NewFromInt(12)
	factorAnnual      = decimal.NewFromInt(1)

	weeksPerYear  = decimal.NewFromInt(52)
	monthsPerYear = decimal.NewFromInt(12)
	tipFloorRate  = decimal.RequireFromString("0.20")
)

// DefaultStudentEarnedCap is the exempt earned-income threshold for full-time
// dependent students.
var DefaultStudentEarnedCap = decimal.NewFromInt(480)

// Library annualizes income sources. Every rule is deterministic and free of
// side effects; missing verification surfaces as ErrInsufficientData rather
// than a silent zero.
type Library struct {
	Seasonal         SeasonalEstimator
	StudentEarnedCap decimal.Decimal
}

// NewLibrary returns a Library with the default seasonal estimator and
// student earned-income cap.
func NewLibrary() *Library {
	return &Library{
		Seasonal:         DefaultSeasonalEstimator{},
		StudentEarnedCap: DefaultStudentEarnedCap,
	}
}

// Annualize computes the 12-month projected income for one source as of the
// reference date. The income-type set is closed; an unrecognized type is a
// data error, never zero.
func (l *Library) Annualize(src domain.IncomeSource, ref time.Time) (decimal.Decimal, error) {
	switch src.Type {
	case domain.IncomeEmployment:
		return l.annualizeEmployment(src, ref)
	case domain.IncomeSelfEmployment:
		return l.annualizeSelfEmployment(src)
	case domain.IncomeSeasonal:
		return l.annualizeSeasonal(src)
	case domain.IncomeMilitary:
		return l.annualizeMilitary(src)
	case domain.IncomeUnemployment:
		return l.annualizeUnemployment(src)
	case domain.IncomePension, domain.IncomeSocialSecurity, domain.IncomeAnnuity, domain.IncomePublicAssist:
		return l.annualizeBenefit(src, ref)
	case domain.IncomeChildSupport, domain.IncomeGift, domain.IncomeOther:
		return l.annualizeCasual(src)
	case domain.IncomeStudent:
		return l.annualizeStudent(src)
	case domain.IncomeRental:
		return l.annualizeRental(src)
	}
	return decimal.Zero, domain.ErrInsufficientData
}

func annualFactor(f domain.PayFrequency) (decimal.Decimal, bool) {
	switch f {
	case domain.FrequencyHourly:
		return factorHourly, true
	case domain.FrequencyWeekly:
		return factorWeekly, true
	case domain.FrequencyBiWeekly:
		return factorBiWeekly, true
	case domain.FrequencySemiMonthly:
		return factorSemiMonthly, true
	case domain.FrequencyMonthly:
		return factorMonthly, true
	case domain.FrequencyAnnual:
		return factorAnnual, true
	}
	return decimal.Zero, false
}

// projectionWindow resolves the source's 12-month window, defaulting to the
// year starting at the reference date.
func projectionWindow(src domain.IncomeSource, ref time.Time) (time.Time, time.Time, error) {
	start, end := src.WindowStart, src.WindowEnd
	if start.IsZero() && end.IsZero() {
		return ref, ref.AddDate(1, 0, 0), nil
	}
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return time.Time{}, time.Time{}, domain.ErrAmbiguousPeriod
	}
	return start, end, nil
}

// weeklyEquivalent converts a periodic rate into a weekly wage for
// time-weighted splits. Hourly rates use the verified weekly hours, defaulting
// to full time.
func weeklyEquivalent(rate decimal.Decimal, freq domain.PayFrequency, hoursPerWeek decimal.Decimal) (decimal.Decimal, bool) {
	if freq == domain.FrequencyHourly {
		hours := hoursPerWeek
		if hours.IsZero() {
			hours = decimal.NewFromInt(40)
		}
		return rate.Mul(hours), true
	}
	factor, ok := annualFactor(freq)
	if !ok {
		return decimal.Zero, false
	}
	return rate.Mul(factor).Div(weeksPerYear), true
}

// splitWeeks divides the 52-week window at a change date. Whole weeks in the
// first segment are counted by rounding days down; the second segment takes
// the remainder so the two segments always total 52 and a change dated at
// either window boundary degenerates to the unchanged annualization.
func splitWeeks(start, end, changeAt time.Time) (int64, int64) {
	if !changeAt.After(start) {
		return 0, 52
	}
	if !changeAt.Before(end) {
		return 52, 0
	}
	days := int64(changeAt.Sub(start) / (24 * time.Hour))
	before := days / 7
	if before > 52 {
		before = 52
	}
	return before, 52 - before
}

// annualizeBase handles any periodic rate with an optional mid-window change,
// either a raise or a cost-of-living adjustment.
func annualizeBase(rate decimal.Decimal, freq domain.PayFrequency, hoursPerWeek decimal.Decimal, change *domain.RateChange, src domain.IncomeSource, ref time.Time) (decimal.Decimal, error) {
	if change == nil {
		if freq == domain.FrequencyHourly {
			if !src.HoursPerWeek.IsZero() {
				return rate.Mul(src.HoursPerWeek).Mul(weeksPerYear), nil
			}
			return rate.Mul(factorHourly), nil
		}
		factor, ok := annualFactor(freq)
		if !ok {
			return decimal.Zero, domain.ErrInsufficientData
		}
		return rate.Mul(factor), nil
	}

	start, end, err := projectionWindow(src, ref)
	if err != nil {
		return decimal.Zero, err
	}
	oldWeekly, ok := weeklyEquivalent(rate, freq, hoursPerWeek)
	if !ok {
		return decimal.Zero, domain.ErrInsufficientData
	}
	newWeekly, ok := weeklyEquivalent(change.NewRate, freq, hoursPerWeek)
	if !ok {
		return decimal.Zero, domain.ErrInsufficientData
	}
	before, after := splitWeeks(start, end, change.EffectiveDate)
	return oldWeekly.Mul(decimal.NewFromInt(before)).Add(newWeekly.Mul(decimal.NewFromInt(after))), nil
}

func (l *Library) annualizeEmployment(src domain.IncomeSource, ref time.Time) (decimal.Decimal, error) {
	if src.Irregular {
		return averageTrailing(src)
	}
	if src.Rate.IsZero() || src.Frequency == "" {
		return decimal.Zero, domain.ErrInsufficientData
	}

	base, err := annualizeBase(src.Rate, src.Frequency, src.HoursPerWeek, src.RateChange, src, ref)
	if err != nil {
		return decimal.Zero, err
	}

	total := base
	if src.HasTips {
		// Both the declared and the imputed tip figures are computed; the
		// larger is retained.
		imputed := base.Mul(tipFloorRate)
		if src.DeclaredTips.GreaterThan(imputed) {
			total = total.Add(src.DeclaredTips)
		} else {
			total = total.Add(imputed)
		}
	}
	if src.Overtime != nil {
		ot := src.Overtime
		total = total.Add(ot.Rate.Mul(ot.HoursPerPeriod).Mul(decimal.NewFromInt(int64(ot.PeriodsPerYear))))
	}
	return total, nil
}

// annualizeSelfEmployment projects prior-year net income from tax-equivalent
// records, adjusted by the signed delta for lost clients or new business. A
// nonzero delta needs a written justification on file.
func (l *Library) annualizeSelfEmployment(src domain.IncomeSource) (decimal.Decimal, error) {
	if !src.ProjectedDelta.IsZero() && src.Justification == "" {
		return decimal.Zero, domain.ErrInsufficientData
	}
	return src.PriorYearNet.Add(src.ProjectedDelta), nil
}

func (l *Library) annualizeSeasonal(src domain.IncomeSource) (decimal.Decimal, error) {
	est := l.Seasonal
	if est == nil {
		est = DefaultSeasonalEstimator{}
	}
	return est.Estimate(src)
}

func (l *Library) annualizeMilitary(src domain.IncomeSource) (decimal.Decimal, error) {
	if src.BasePay.IsZero() {
		return decimal.Zero, domain.ErrInsufficientData
	}
	monthly := src.BasePay.Add(src.HousingAllowance).Add(src.SubsistenceAllow).Add(src.SpecialPays)
	// The clothing allowance is an annual figure; it is added once, not
	// twelve times.
	return monthly.Mul(monthsPerYear).Add(src.ClothingAllowance), nil
}

func (l *Library) annualizeUnemployment(src domain.IncomeSource) (decimal.Decimal, error) {
	if src.Rate.IsZero() {
		return decimal.Zero, domain.ErrInsufficientData
	}
	weeks := int64(52)
	if src.CoProjected {
		if src.RemainingWeeks <= 0 || src.RemainingWeeks > 52 {
			return decimal.Zero, domain.ErrAmbiguousPeriod
		}
		weeks = int64(src.RemainingWeeks)
	}
	return src.Rate.Mul(decimal.NewFromInt(weeks)), nil
}

// annualizeBenefit covers pensions, social security, annuities, and public
// assistance: gross monthly times twelve, with a mid-window COLA split the
// same way as a wage raise.
func (l *Library) annualizeBenefit(src domain.IncomeSource, ref time.Time) (decimal.Decimal, error) {
	if src.Rate.IsZero() {
		return decimal.Zero, domain.ErrInsufficientData
	}
	freq := src.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	return annualizeBase(src.Rate, freq, decimal.Zero, src.RateChange, src, ref)
}

func (l *Library) annualizeCasual(src domain.IncomeSource) (decimal.Decimal, error) {
	if src.Irregular {
		return averageTrailing(src)
	}
	if src.Rate.IsZero() || src.Frequency == "" {
		return decimal.Zero, domain.ErrInsufficientData
	}
	factor, ok := annualFactor(src.Frequency)
	if !ok {
		return decimal.Zero, domain.ErrInsufficientData
	}
	return src.Rate.Mul(factor), nil
}

// averageTrailing totals the trailing 12 months of irregular receipts.
func averageTrailing(src domain.IncomeSource) (decimal.Decimal, error) {
	if len(src.TrailingReceipts) == 0 {
		return decimal.Zero, domain.ErrInsufficientData
	}
	total := decimal.Zero
	for _, r := range src.TrailingReceipts {
		total = total.Add(r)
	}
	return total, nil
}

// annualizeStudent counts unearned income in full, caps earned income for
// full-time dependent students, and counts financial aid net of loans,
// work-study, and tuition/required fees, pro-rated by term structure.
// Work-study itself is employment income and arrives as a separate source.
func (l *Library) annualizeStudent(src domain.IncomeSource) (decimal.Decimal, error) {
	total := src.UnearnedIncome

	earned := src.EarnedIncome
	if src.FullTimeDependent && earned.GreaterThan(l.StudentEarnedCap) {
		earned = l.StudentEarnedCap
	}
	total = total.Add(earned)

	if !src.AidPerTerm.IsZero() {
		var terms int64
		switch src.TermStructure {
		case domain.TermSemester:
			terms = 2
		case domain.TermQuarter:
			terms = 3
		default:
			return decimal.Zero, domain.ErrInsufficientData
		}
		if src.SummerTerm {
			terms++
		}
		perTerm := src.AidPerTerm.Sub(src.LoanPerTerm).Sub(src.WorkStudyPerTerm).Sub(src.TuitionPerTerm)
		aid := perTerm.Mul(decimal.NewFromInt(terms))
		if aid.IsNegative() {
			aid = decimal.Zero
		}
		total = total.Add(aid)
	}
	return total, nil
}

// annualizeRental nets verified mortgage interest, insurance, and other
// rental expense out of gross rent, floored at zero.
func (l *Library) annualizeRental(src domain.IncomeSource) (decimal.Decimal, error) {
	if src.GrossRent.IsZero() || src.Frequency == "" {
		return decimal.Zero, domain.ErrInsufficientData
	}
	factor, ok := annualFactor(src.Frequency)
	if !ok {
		return decimal.Zero, domain.ErrInsufficientData
	}
	gross := src.GrossRent.Mul(factor)
	net := gross.Sub(src.MortgageInterest).Sub(src.Insurance).Sub(src.RentalExpenses)
	if net.IsNegative() {
		return decimal.Zero, nil
	}
	return net, nil
}

// HouseholdAnnualIncome sums the annualized active sources of a household,
// skipping exempt-flagged sources. Summation is commutative: input order does
// not affect the result.
func (l *Library) HouseholdAnnualIncome(h *domain.Household, ref time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, src := range h.ActiveSources() {
		if src.Exempt {
			continue
		}
		amount, err := l.Annualize(src, ref)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, nil
}
