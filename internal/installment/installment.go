// internal/installment/installment.go
package installment

import (
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/statement"

	"github.com/shopspring/decimal"
)

// Observer receives diagnostic events from the generator. Calls are
// synchronous and their outcome never changes what the generator returns.
type Observer interface {
	Observe(event string, attrs ...any)
}

type NopObserver struct{}

func (NopObserver) Observe(string, ...any) {}

type Generator struct {
	obs Observer
}

func NewGenerator(obs Observer) *Generator {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Generator{obs: obs}
}

var defaultGenerator = NewGenerator(nil)

// Generate builds count installment drafts starting at first. See
// Generator.GenerateFrom.
func Generate(first time.Time, amount decimal.Decimal, count int, desc string) []domain.Transaction {
	return defaultGenerator.GenerateFrom(domain.Transaction{
		OccurredOn:  first,
		Amount:      amount,
		Description: desc,
	}, count)
}

// Continue builds the remaining installments after an edited one. See
// Generator.Continue.
func Continue(edited domain.Transaction, card *domain.Card) []domain.Transaction {
	return defaultGenerator.Continue(edited, card)
}

// GenerateFrom copies tmpl into count drafts one calendar month apart, each
// carrying the full amount and its "k/N" marker. count ≤ 1 yields a single
// plain draft. IDs and parent links are left for the store to assign.
func (g *Generator) GenerateFrom(tmpl domain.Transaction, count int) []domain.Transaction {
	first := calendar.Day(tmpl.OccurredOn)

	if count <= 1 {
		tx := tmpl
		tx.OccurredOn = first
		tx.InstallmentNumber = nil
		tx.TotalInstallments = nil
		tx.ParentTransactionID = nil
		return []domain.Transaction{tx}
	}

	out := make([]domain.Transaction, 0, count)
	for i := 0; i < count; i++ {
		tx := tmpl
		tx.ID = domain.ID{}
		tx.ParentTransactionID = nil
		tx.OccurredOn = calendar.AddMonths(first, i)
		tx.Description = UpsertRatio(tmpl.Description, i+1, count)
		tx.InstallmentNumber = intPtr(i + 1)
		tx.TotalInstallments = intPtr(count)
		tx.IsInstallmentPayment = true
		out = append(out, tx)
	}

	g.obs.Observe("installments.generated",
		"count", count,
		"first", calendar.Format(first),
		"last", calendar.Format(out[len(out)-1].OccurredOn),
	)
	return out
}

// Continue builds installments k+1..N for an edited installment k of N. When
// the card has a billing cycle each date is moved onto the due date of the
// statement its naive monthly date falls into. Every draft points at the
// edited transaction as its parent. Nothing to do yields an empty slice.
func (g *Generator) Continue(edited domain.Transaction, card *domain.Card) []domain.Transaction {
	if edited.InstallmentNumber == nil || edited.TotalInstallments == nil {
		return []domain.Transaction{}
	}
	k, n := *edited.InstallmentNumber, *edited.TotalInstallments
	if k < 1 || n <= k {
		return []domain.Transaction{}
	}

	aligned := card != nil && card.HasBillingCycle()
	base := calendar.Day(edited.OccurredOn)
	parent := edited.ID

	out := make([]domain.Transaction, 0, n-k)
	for i := k + 1; i <= n; i++ {
		date := calendar.AddMonths(base, i-k)
		if aligned {
			date = statement.AlignToDueDate(card.ClosingDay, card.DueDay, date)
		}

		tx := edited
		tx.ID = domain.ID{}
		tx.OccurredOn = date
		tx.Description = UpsertRatio(edited.Description, i, n)
		tx.InstallmentNumber = intPtr(i)
		tx.TotalInstallments = intPtr(n)
		tx.ParentTransactionID = &parent
		tx.IsInstallmentPayment = true
		out = append(out, tx)
	}

	g.obs.Observe("installments.continued",
		"parent", parent.String(),
		"from", k+1,
		"to", n,
		"aligned_to_due_date", aligned,
	)
	return out
}

func intPtr(v int) *int { return &v }
