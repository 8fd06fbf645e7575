package income

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
)

// DefaultAssetThreshold is the total-asset value above which income from
// assets is the greater of actual and imputed.
var DefaultAssetThreshold = decimal.NewFromInt(5000)

// AssetSummary is the household-level asset picture used by the eligibility
// determination.
type AssetSummary struct {
	// TotalValue is the countable cash value of all holdings.
	TotalValue decimal.Decimal
	// ActualIncome is the verified income the holdings actually produce,
	// including anticipated held-mortgage interest.
	ActualIncome decimal.Decimal
	// CountedIncome is the figure that enters annual income: actual income,
	// or the greater of actual and imputed when TotalValue exceeds the
	// threshold.
	CountedIncome decimal.Decimal
	// RecurringIncome is lump-sum money paid in a recurring stream, which is
	// periodic income rather than an asset.
	RecurringIncome decimal.Decimal
}

const disposedAssetYears = 2

// AggregateAssetIncome applies the asset rules across a household's holdings:
// joint-ownership even split, the two-year countability of assets disposed
// below fair market value, held-mortgage amortization interest, recurring
// lump-sum reclassification, and the threshold greater-of rule.
func AggregateAssetIncome(holdings []domain.AssetHolding, threshold, imputedRate decimal.Decimal, ref time.Time) (AssetSummary, error) {
	var s AssetSummary
	s.TotalValue = decimal.Zero
	s.ActualIncome = decimal.Zero
	s.RecurringIncome = decimal.Zero

	for _, h := range holdings {
		switch h.Type {
		case domain.AssetDisposedBelowFMV:
			if h.DispositionDate == nil {
				return AssetSummary{}, domain.ErrInsufficientData
			}
			// Countable for two years from disposition regardless of
			// spend-down, at self-certified remaining cash value.
			if ref.After(h.DispositionDate.AddDate(disposedAssetYears, 0, 0)) {
				continue
			}
			s.TotalValue = s.TotalValue.Add(ownedShare(h, h.CashValue))

		case domain.AssetLumpSum:
			if h.Recurring {
				factor, ok := annualFactor(h.RecurringFrequency)
				if !ok {
					return AssetSummary{}, domain.ErrInsufficientData
				}
				s.RecurringIncome = s.RecurringIncome.Add(h.RecurringAmount.Mul(factor))
				continue
			}
			s.TotalValue = s.TotalValue.Add(ownedShare(h, h.CashValue))
			s.ActualIncome = s.ActualIncome.Add(ownedShare(h, h.ActualIncome))

		case domain.AssetMortgageHeld:
			if h.Amortization == nil {
				return AssetSummary{}, domain.ErrInsufficientData
			}
			s.TotalValue = s.TotalValue.Add(ownedShare(h, h.CashValue))
			interest := NextYearInterest(h.CashValue, *h.Amortization)
			s.ActualIncome = s.ActualIncome.Add(ownedShare(h, interest))

		default:
			s.TotalValue = s.TotalValue.Add(ownedShare(h, h.CashValue))
			s.ActualIncome = s.ActualIncome.Add(ownedShare(h, h.ActualIncome))
		}
	}

	s.CountedIncome = s.ActualIncome
	if s.TotalValue.GreaterThan(threshold) {
		imputed := s.TotalValue.Mul(imputedRate)
		if imputed.GreaterThan(s.CountedIncome) {
			s.CountedIncome = imputed
		}
	}
	return s, nil
}

// ownedShare divides a jointly held amount evenly among co-owners and counts
// the shares belonging to household members.
func ownedShare(h domain.AssetHolding, amount decimal.Decimal) decimal.Decimal {
	if h.Owners <= 1 {
		return amount
	}
	members := h.HouseholdOwners
	if members <= 0 {
		members = 1
	}
	return amount.Div(decimal.NewFromInt(int64(h.Owners))).Mul(decimal.NewFromInt(int64(members)))
}

// NextYearInterest walks twelve months of the amortization schedule and sums
// the interest portion of each payment.
func NextYearInterest(principal decimal.Decimal, terms domain.AmortizationTerms) decimal.Decimal {
	balance := principal
	monthlyRate := terms.AnnualRate.Div(decimal.NewFromInt(12))
	total := decimal.Zero
	for month := 0; month < 12; month++ {
		if !balance.IsPositive() {
			break
		}
		interest := balance.Mul(monthlyRate)
		total = total.Add(interest)
		principalPaid := terms.MonthlyPayment.Sub(interest)
		if principalPaid.IsPositive() {
			balance = balance.Sub(principalPaid)
		}
	}
	return total.Round(2)
}
