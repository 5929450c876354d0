// internal/importer/importer.go
package importer

import (
	"context"
	"log/slog"

	"finance-tracker/internal/classifier"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/installment"
)

type Options struct {
	UserID    domain.ID
	AccountID domain.ID
	// CardID marks a credit-card statement: positive values are purchases.
	CardID *domain.ID
}

// Report summarizes an import.
type Report struct {
	Imported        int        `json:"imported"`
	Skipped         []RowError `json:"skipped"`
	FromFile        int        `json:"categorized_from_file"`
	Classified      int        `json:"categorized_by_model"`
	Fallback        int        `json:"categorized_by_default"`
	ClassifierError string     `json:"classifier_error,omitempty"`
}

// Importer turns statement rows into transaction drafts and resolves their
// category: the file's own column first, then the classifier, then the
// default category. A classifier failure never fails the import.
type Importer struct {
	classifier      classifier.Classifier
	defaultCategory string
}

func New(c classifier.Classifier, defaultCategory string) *Importer {
	if c == nil {
		c = classifier.Nop{}
	}
	return &Importer{classifier: c, defaultCategory: defaultCategory}
}

func (im *Importer) Build(ctx context.Context, rows []Row, categories []domain.Category, opts Options) ([]domain.Transaction, Report) {
	report := Report{Skipped: []RowError{}}

	byName := make(map[string]domain.Category, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		byName[Fold(c.Name)] = c
		names = append(names, c.Name)
	}

	var pending []string
	for _, r := range rows {
		if !hasCategory(byName, r.Category) {
			pending = append(pending, r.Description)
		}
	}

	suggested := map[string]string{}
	if len(pending) > 0 && len(names) > 0 {
		got, err := im.classifier.Classify(ctx, pending, names)
		if err != nil {
			slog.Warn("classifier failed, using default category", "error", err, "pending", len(pending))
			report.ClassifierError = err.Error()
		}
		if got != nil {
			suggested = got
		}
	}

	fallback, hasFallback := byName[Fold(im.defaultCategory)]

	txs := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		tx := domain.Transaction{
			UserID:      opts.UserID,
			AccountID:   opts.AccountID,
			CardID:      opts.CardID,
			Amount:      r.Amount.Abs(),
			OccurredOn:  r.Date,
			Description: r.Description,
			Kind:        kindOf(r, opts.CardID != nil),
		}

		if ratio, ok := installment.ExtractRatio(r.Description); ok {
			n, total := ratio.Number, ratio.Total
			tx.InstallmentNumber = &n
			tx.TotalInstallments = &total
			tx.IsInstallmentPayment = true
		}

		switch {
		case hasCategory(byName, r.Category):
			id := byName[Fold(r.Category)].ID
			tx.CategoryID = &id
			report.FromFile++
		case hasCategory(byName, suggested[r.Description]):
			id := byName[Fold(suggested[r.Description])].ID
			tx.CategoryID = &id
			report.Classified++
		case hasFallback:
			id := fallback.ID
			tx.CategoryID = &id
			report.Fallback++
		default:
			report.Fallback++
		}

		txs = append(txs, tx)
	}
	report.Imported = len(txs)
	return txs, report
}

func hasCategory(byName map[string]domain.Category, name string) bool {
	if name == "" {
		return false
	}
	_, ok := byName[Fold(name)]
	return ok
}

func kindOf(r Row, cardStatement bool) domain.Kind {
	negative := r.Amount.IsNegative()
	// on a card statement purchases are positive and refunds negative
	if cardStatement {
		negative = !negative
	}
	if negative {
		return domain.KindExpense
	}
	return domain.KindIncome
}
