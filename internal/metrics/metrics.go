// Package metrics computes the financial health signals evaluated at every
// annual report: debt coverage, effective gross income, and reserve adequacy.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
)

// Debt coverage thresholds.
var (
	// DCRAdequate is the floor for an adequate debt coverage ratio.
	DCRAdequate = decimal.RequireFromString("1.15")
	// DCRExcessCashFlow marks eligibility for discretionary use of excess
	// cash flow. Advisory only; nothing is applied automatically.
	DCRExcessCashFlow = decimal.RequireFromString("1.25")
)

// DCRResult carries the computed ratio and its threshold reading.
type DCRResult struct {
	Ratio           decimal.Decimal `json:"ratio"`
	DebtService     decimal.Decimal `json:"debt_service"`
	Adequate        bool            `json:"adequate"`
	ExcessCashFlow  bool            `json:"excess_cash_flow"`
	NoAmortizing    bool            `json:"no_amortizing"`
}

// ComputeDCR divides net operating income by the annual amortizing debt
// service. Deferred loans stay out of the denominator until the period their
// deferral ends, at which point they count in full.
func ComputeDCR(noi decimal.Decimal, debts []domain.DebtObligation, asOf time.Time) DCRResult {
	service := decimal.Zero
	for _, d := range debts {
		if d.Amortizing(asOf) {
			service = service.Add(d.AnnualDebtService)
		}
	}
	if !service.IsPositive() {
		// Nothing amortizing: coverage is not meaningfully measurable.
		return DCRResult{Ratio: decimal.Zero, DebtService: service, Adequate: true, NoAmortizing: true}
	}
	ratio := noi.Div(service).Round(4)
	return DCRResult{
		Ratio:          ratio,
		DebtService:    service,
		Adequate:       !ratio.LessThan(DCRAdequate),
		ExcessCashFlow: ratio.GreaterThan(DCRExcessCashFlow),
	}
}

// ComputeEGI returns potential gross income less the vacancy allowance plus
// miscellaneous income.
func ComputeEGI(potentialGrossIncome, vacancyAllowance, miscIncome decimal.Decimal) decimal.Decimal {
	return potentialGrossIncome.Sub(vacancyAllowance).Add(miscIncome)
}

// ReserveAdequacy compares a reserve balance to its externally supplied
// minimum. A shortfall is a signal for a finding, never a hard block.
type ReserveAdequacy struct {
	Balance   decimal.Decimal `json:"balance"`
	Minimum   decimal.Decimal `json:"minimum"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Adequate  bool            `json:"adequate"`
}

// CheckReserve evaluates a balance against its minimum.
func CheckReserve(balance, minimum decimal.Decimal) ReserveAdequacy {
	shortfall := minimum.Sub(balance)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	return ReserveAdequacy{
		Balance:   balance,
		Minimum:   minimum,
		Shortfall: shortfall,
		Adequate:  shortfall.IsZero(),
	}
}
