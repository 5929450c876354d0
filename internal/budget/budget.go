// internal/budget/budget.go
package budget

import (
	"math"
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/money"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Allocation is the investment/reserve split of a month's income, in percent.
type Allocation struct {
	Investment float64 `json:"investment_pct"`
	Reserve    float64 `json:"reserve_pct"`
}

// ExpensePct is whatever is left for spending.
func (a Allocation) ExpensePct() float64 {
	return math.Max(100-a.Investment-a.Reserve, 0)
}

// Targets are the money amounts derived from an income target and an allocation.
type Targets struct {
	InvestmentTarget decimal.Decimal `json:"investment_target"`
	ReserveTarget    decimal.Decimal `json:"reserve_target"`
	ExpenseLimit     decimal.Decimal `json:"expense_limit"`
}

func ParsePercent(raw string) float64 {
	return money.ParsePercent(raw)
}

// NormalizePercentPair clamps both shares to [0, 100] and, when together they
// exceed 100, rescales them to sum to exactly 100. Rescaled shares are whole
// numbers distributed by largest remainder; a tie goes to investment.
func NormalizePercentPair(investmentPct, reservePct float64) Allocation {
	inv := money.ClampPercent(investmentPct)
	res := money.ClampPercent(reservePct)

	sum := inv + res
	if sum <= 100 {
		return Allocation{Investment: inv, Reserve: res}
	}

	scaledInv, scaledRes := inv*100/sum, res*100/sum

	floorInv, floorRes := math.Floor(scaledInv), math.Floor(scaledRes)
	leftover := 100 - floorInv - floorRes

	// hand out the leftover points (0 to 2) by largest fractional part
	for leftover > 0 {
		if scaledInv-floorInv >= scaledRes-floorRes {
			floorInv++
			scaledInv = floorInv
		} else {
			floorRes++
			scaledRes = floorRes
		}
		leftover--
	}

	return Allocation{Investment: floorInv, Reserve: floorRes}
}

// ComputeTargets splits incomeTarget by the given percentages. The expense
// limit never goes below zero.
func ComputeTargets(incomeTarget decimal.Decimal, investmentPct, reservePct float64) Targets {
	inv := incomeTarget.Mul(decimal.NewFromFloat(investmentPct)).Div(hundred)
	res := incomeTarget.Mul(decimal.NewFromFloat(reservePct)).Div(hundred)

	limit := incomeTarget.Sub(inv).Sub(res)
	if limit.IsNegative() {
		limit = decimal.Zero
	}

	return Targets{
		InvestmentTarget: inv,
		ReserveTarget:    res,
		ExpenseLimit:     limit,
	}
}

// Plan normalizes the percentages and builds the monthly budget row for
// (userID, month). Amounts are rounded to cents here, on their way to storage.
func Plan(userID domain.ID, month time.Time, incomeTarget decimal.Decimal, investmentPct, reservePct float64) (domain.MonthlyBudget, Allocation) {
	if incomeTarget.IsNegative() {
		incomeTarget = decimal.Zero
	}
	incomeTarget = incomeTarget.Round(2)
	alloc := NormalizePercentPair(investmentPct, reservePct)
	targets := ComputeTargets(incomeTarget, alloc.Investment, alloc.Reserve)

	inv := targets.InvestmentTarget.Round(2)
	res := targets.ReserveTarget.Round(2)
	// two rounded-up shares may exceed the income by a cent
	if inv.Add(res).GreaterThan(incomeTarget) {
		res = incomeTarget.Sub(inv)
	}
	limit := incomeTarget.Sub(inv).Sub(res)
	if limit.IsNegative() {
		limit = decimal.Zero
	}

	return domain.MonthlyBudget{
		UserID:           userID,
		Month:            calendar.MonthStart(month),
		IncomeTarget:     incomeTarget,
		InvestmentTarget: inv,
		ReserveTarget:    res,
		ExpenseLimit:     limit,
	}, alloc
}

// AllocationOf recovers the percentages stored implicitly in a budget row.
func AllocationOf(b domain.MonthlyBudget) Allocation {
	if !b.IncomeTarget.IsPositive() {
		return Allocation{}
	}
	pct := func(v decimal.Decimal) float64 {
		return v.Mul(hundred).Div(b.IncomeTarget).Round(2).InexactFloat64()
	}
	return Allocation{Investment: pct(b.InvestmentTarget), Reserve: pct(b.ReserveTarget)}
}

// Usage describes how much of a limit has been spent.
type Usage struct {
	Limit       decimal.Decimal `json:"limit"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed float64         `json:"percent_used"`
	Exceeded    bool            `json:"exceeded"`
}

func UsageOf(limit, spent decimal.Decimal) Usage {
	u := Usage{
		Limit:     limit,
		Spent:     spent,
		Remaining: limit.Sub(spent),
		Exceeded:  spent.GreaterThan(limit),
	}
	if limit.IsPositive() {
		u.PercentUsed = spent.Mul(hundred).Div(limit).Round(1).InexactFloat64()
	}
	return u
}
