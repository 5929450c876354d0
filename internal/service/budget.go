// internal/service/budget.go
package service

import (
	"context"
	"fmt"
	"time"

	"finance-tracker/internal/budget"
	"finance-tracker/internal/domain"

	"github.com/shopspring/decimal"
)

type BudgetInput struct {
	IncomeTarget  decimal.Decimal
	InvestmentPct float64
	ReservePct    float64
	Items         []domain.BudgetItem
}

type BudgetView struct {
	Budget     domain.MonthlyBudget `json:"budget"`
	Allocation budget.Allocation    `json:"allocation"`
	Items      []domain.BudgetItem  `json:"items"`
}

// SaveBudget normalizes the percentages and upserts the month's budget
// together with its per-category limits.
func (s *Service) SaveBudget(ctx context.Context, userID domain.ID, month time.Time, in BudgetInput) (BudgetView, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return BudgetView{}, err
	}
	owned := make(map[domain.ID]bool, len(categories))
	for _, c := range categories {
		owned[c.ID] = true
	}

	items := make([]domain.BudgetItem, 0, len(in.Items))
	for _, item := range in.Items {
		if !owned[item.CategoryID] {
			return BudgetView{}, fmt.Errorf("category %s: %w", item.CategoryID, domain.ErrNotFound)
		}
		if item.AmountLimit.IsNegative() {
			return BudgetView{}, domain.ErrInvalidAmount
		}
		item.AmountLimit = item.AmountLimit.Round(2)
		items = append(items, item)
	}

	b, alloc := budget.Plan(userID, month, in.IncomeTarget, in.InvestmentPct, in.ReservePct)
	saved, err := s.store.SaveBudget(ctx, b, items)
	if err != nil {
		return BudgetView{}, err
	}
	for i := range items {
		items[i].MonthlyBudgetID = saved.ID
	}
	return BudgetView{Budget: saved, Allocation: alloc, Items: items}, nil
}

type ItemUsage struct {
	CategoryID domain.ID `json:"category_id"`
	budget.Usage
}

type BudgetReport struct {
	Budget     domain.MonthlyBudget `json:"budget"`
	Allocation budget.Allocation    `json:"allocation"`
	Expenses   budget.Usage         `json:"expenses"`
	Items      []ItemUsage          `json:"items"`
	Income     decimal.Decimal      `json:"income"`
	Invested   decimal.Decimal      `json:"invested"`
}

// BudgetReport compares the month's budget with what actually happened.
// Bill payments are skipped because the card purchases are already counted.
func (s *Service) BudgetReport(ctx context.Context, userID domain.ID, month time.Time) (BudgetReport, error) {
	b, items, err := s.store.GetBudget(ctx, userID, month)
	if err != nil {
		return BudgetReport{}, err
	}
	txs, err := s.ListTransactions(ctx, userID, month)
	if err != nil {
		return BudgetReport{}, err
	}

	var (
		spent      = decimal.Zero
		income     = decimal.Zero
		invested   = decimal.Zero
		byCategory = map[domain.ID]decimal.Decimal{}
	)
	for _, tx := range txs {
		if tx.IsBillPayment {
			continue
		}
		switch tx.Kind {
		case domain.KindExpense:
			spent = spent.Add(tx.Amount)
			if tx.CategoryID != nil {
				byCategory[*tx.CategoryID] = byCategory[*tx.CategoryID].Add(tx.Amount)
			}
		case domain.KindIncome:
			income = income.Add(tx.Amount)
		case domain.KindInvestmentContribution:
			invested = invested.Add(tx.Amount)
		case domain.KindInvestmentWithdrawal:
			invested = invested.Sub(tx.Amount)
		}
	}

	report := BudgetReport{
		Budget:     *b,
		Allocation: budget.AllocationOf(*b),
		Expenses:   budget.UsageOf(b.ExpenseLimit, spent),
		Items:      make([]ItemUsage, 0, len(items)),
		Income:     income,
		Invested:   invested,
	}
	for _, item := range items {
		report.Items = append(report.Items, ItemUsage{
			CategoryID: item.CategoryID,
			Usage:      budget.UsageOf(item.AmountLimit, byCategory[item.CategoryID]),
		})
	}
	return report, nil
}
