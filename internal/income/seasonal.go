package income

import (
	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
)

// SeasonalEstimator projects annual income for seasonal or sporadic work.
// The governing rules describe this projection only by example, so the
// estimator is pluggable; DefaultSeasonalEstimator is the documented
// baseline.
type SeasonalEstimator interface {
	Estimate(src domain.IncomeSource) (decimal.Decimal, error)
}

// DefaultSeasonalEstimator projects season months at the verified monthly rate
// plus off-season weeks of unemployment benefit. When up to three years of
// earnings history is on file, it instead uses a recency-weighted average of
// the history, which smooths sporadic years.
type DefaultSeasonalEstimator struct{}

var historyWeights = []int64{3, 2, 1}

func (DefaultSeasonalEstimator) Estimate(src domain.IncomeSource) (decimal.Decimal, error) {
	if len(src.History) > 0 {
		n := len(src.History)
		if n > 3 {
			n = 3
		}
		weighted := decimal.Zero
		var weightSum int64
		// History is supplied most recent first.
		for i := 0; i < n; i++ {
			w := historyWeights[i]
			weighted = weighted.Add(src.History[i].Earned.Mul(decimal.NewFromInt(w)))
			weightSum += w
		}
		return weighted.Div(decimal.NewFromInt(weightSum)).Round(2), nil
	}

	if src.SeasonMonths <= 0 || src.SeasonMonths > 12 {
		return decimal.Zero, domain.ErrInsufficientData
	}
	if src.SeasonMonthlyPay.IsZero() {
		return decimal.Zero, domain.ErrInsufficientData
	}

	season := src.SeasonMonthlyPay.Mul(decimal.NewFromInt(int64(src.SeasonMonths)))

	// Off-season weeks round down, matching the week-counting convention used
	// for mid-window raises.
	offMonths := int64(12 - src.SeasonMonths)
	offWeeks := offMonths * 52 / 12
	offSeason := src.OffSeasonWeekly.Mul(decimal.NewFromInt(offWeeks))

	return season.Add(offSeason), nil
}
