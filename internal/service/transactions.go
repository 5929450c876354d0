// internal/service/transactions.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/installment"
	"finance-tracker/internal/recurrence"
	"finance-tracker/internal/statement"

	"github.com/shopspring/decimal"
)

type Recurrence struct {
	Frequency   domain.Frequency
	Interval    int
	EndOn       *time.Time
	Occurrences *int
}

type TransactionInput struct {
	Kind          domain.Kind
	Amount        decimal.Decimal
	OccurredOn    time.Time
	AccountID     domain.ID
	ToAccountID   *domain.ID
	CategoryID    *domain.ID
	CardID        *domain.ID
	Description   string
	IsBillPayment bool
	// Installments > 1 splits the purchase into monthly rows.
	Installments int
	Recurrence   *Recurrence
}

type CreateResult struct {
	Transactions []domain.Transaction  `json:"transactions"`
	Rule         *domain.RecurringRule `json:"recurring_rule,omitempty"`
}

func (in TransactionInput) template(userID domain.ID) domain.Transaction {
	return domain.Transaction{
		UserID:             userID,
		Kind:               in.Kind,
		Amount:             in.Amount,
		OccurredOn:         in.OccurredOn,
		AccountID:          in.AccountID,
		ToAccountID:        in.ToAccountID,
		CategoryID:         in.CategoryID,
		CardID:             in.CardID,
		Description:        in.Description,
		IsBillPayment:      in.IsBillPayment,
		IsRecurringPayment: in.Recurrence != nil,
	}
}

// checkOwnership makes sure every referenced row belongs to the user.
func (s *Service) checkOwnership(ctx context.Context, tx domain.Transaction) (*domain.Card, error) {
	if _, err := s.store.GetAccount(ctx, tx.UserID, tx.AccountID); err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	if tx.ToAccountID != nil {
		if _, err := s.store.GetAccount(ctx, tx.UserID, *tx.ToAccountID); err != nil {
			return nil, fmt.Errorf("destination account: %w", err)
		}
	}
	if tx.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, tx.UserID, *tx.CategoryID); err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
	}
	if tx.CardID == nil {
		return nil, nil
	}
	card, err := s.store.GetCard(ctx, tx.UserID, *tx.CardID)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	return card, nil
}

// CreateTransaction stores a transaction, or all of its installments when
// in.Installments > 1, and spawns the recurring rule when one is requested.
func (s *Service) CreateTransaction(ctx context.Context, userID domain.ID, in TransactionInput) (CreateResult, error) {
	if in.Installments > 1 && in.Recurrence != nil {
		return CreateResult{}, domain.ErrRecurringSplit
	}
	if in.Recurrence != nil && !in.Recurrence.Frequency.Valid() {
		return CreateResult{}, domain.ErrInvalidFrequency
	}

	tmpl := in.template(userID)
	if in.Installments <= 1 {
		if ratio, ok := installment.ExtractRatio(tmpl.Description); ok {
			tmpl.InstallmentNumber = &ratio.Number
			tmpl.TotalInstallments = &ratio.Total
			tmpl.IsInstallmentPayment = true
		}
	}
	if err := tmpl.Validate(); err != nil {
		return CreateResult{}, err
	}
	if _, err := s.checkOwnership(ctx, tmpl); err != nil {
		return CreateResult{}, err
	}

	drafts := []domain.Transaction{tmpl}
	if in.Installments > 1 {
		drafts = s.installments.GenerateFrom(tmpl, in.Installments)
	}

	rows, err := s.store.InsertTransactions(ctx, drafts, len(drafts) > 1)
	if err != nil {
		return CreateResult{}, fmt.Errorf("store transactions: %w", err)
	}
	result := CreateResult{Transactions: rows}

	if in.Recurrence != nil {
		rule, ok, err := recurrence.FromTransaction(rows[0], in.Recurrence.Frequency, in.Recurrence.Interval,
			in.Recurrence.EndOn, in.Recurrence.Occurrences)
		if err != nil {
			return result, err
		}
		if ok {
			saved, err := s.store.CreateRule(ctx, rule)
			if err != nil {
				return result, fmt.Errorf("store recurring rule: %w", err)
			}
			result.Rule = &saved
		}
	}

	slog.Info("transaction created", "user_id", userID, "rows", len(rows), "recurring", result.Rule != nil)
	return result, nil
}

type UpdateInput struct {
	Kind              domain.Kind
	Amount            decimal.Decimal
	OccurredOn        time.Time
	AccountID         domain.ID
	ToAccountID       *domain.ID
	CategoryID        *domain.ID
	CardID            *domain.ID
	Description       string
	IsBillPayment     bool
	InstallmentNumber *int
	TotalInstallments *int
	// CreateFutureInstallments asks for rows k+1..N after editing installment k.
	CreateFutureInstallments bool
}

type UpdateResult struct {
	Transaction domain.Transaction   `json:"transaction"`
	Future      []domain.Transaction `json:"future_installments"`
}

// UpdateTransaction rewrites a transaction and keeps its "k/N" marker in sync
// with the installment fields. Future installments are only created on request.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id domain.ID, in UpdateInput) (UpdateResult, error) {
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return UpdateResult{}, err
	}

	tx := *existing
	tx.Kind = in.Kind
	tx.Amount = in.Amount
	tx.OccurredOn = in.OccurredOn
	tx.AccountID = in.AccountID
	tx.ToAccountID = in.ToAccountID
	tx.CategoryID = in.CategoryID
	tx.CardID = in.CardID
	tx.Description = in.Description
	tx.IsBillPayment = in.IsBillPayment

	switch {
	case in.InstallmentNumber != nil && in.TotalInstallments != nil:
		tx.InstallmentNumber = in.InstallmentNumber
		tx.TotalInstallments = in.TotalInstallments
	case in.InstallmentNumber == nil && in.TotalInstallments == nil:
		if ratio, ok := installment.ExtractRatio(tx.Description); ok {
			tx.InstallmentNumber = &ratio.Number
			tx.TotalInstallments = &ratio.Total
		}
	default:
		return UpdateResult{}, domain.ErrInvalidInstallment
	}
	if tx.InstallmentNumber != nil && tx.TotalInstallments != nil {
		tx.Description = installment.UpsertRatio(tx.Description, *tx.InstallmentNumber, *tx.TotalInstallments)
		tx.IsInstallmentPayment = true
	}

	if err := tx.Validate(); err != nil {
		return UpdateResult{}, err
	}
	card, err := s.checkOwnership(ctx, tx)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return UpdateResult{}, err
	}

	result := UpdateResult{Transaction: tx, Future: []domain.Transaction{}}
	if !in.CreateFutureInstallments || tx.RemainingInstallments() == 0 {
		return result, nil
	}

	future, err := s.missingInstallments(ctx, tx, s.installments.Continue(tx, card))
	if err != nil {
		return result, err
	}
	if len(future) == 0 {
		return result, nil
	}
	rows, err := s.store.InsertTransactions(ctx, future, false)
	if err != nil {
		return result, fmt.Errorf("store future installments: %w", err)
	}
	result.Future = rows
	return result, nil
}

// missingInstallments drops the drafts whose installment number is already
// stored in the series of tx: its own children, or its parent and siblings.
func (s *Service) missingInstallments(ctx context.Context, tx domain.Transaction, drafts []domain.Transaction) ([]domain.Transaction, error) {
	stored, err := s.store.ListChildren(ctx, tx.UserID, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	if tx.ParentTransactionID != nil {
		siblings, err := s.store.ListChildren(ctx, tx.UserID, *tx.ParentTransactionID)
		if err != nil {
			return nil, fmt.Errorf("list installments: %w", err)
		}
		stored = append(stored, siblings...)
	}

	taken := make(map[int]bool, len(stored))
	for _, row := range stored {
		if row.InstallmentNumber != nil && row.ID != tx.ID {
			taken[*row.InstallmentNumber] = true
		}
	}

	out := make([]domain.Transaction, 0, len(drafts))
	for _, d := range drafts {
		if d.InstallmentNumber != nil && taken[*d.InstallmentNumber] {
			continue
		}
		out = append(out, d)
	}
	if skipped := len(drafts) - len(out); skipped > 0 {
		slog.Info("installments already stored, skipped", "transaction_id", tx.ID, "skipped", skipped)
	}
	return out, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, userID, id domain.ID) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}

// ListTransactions returns the transactions of the month containing month.
func (s *Service) ListTransactions(ctx context.Context, userID domain.ID, month time.Time) ([]domain.Transaction, error) {
	from, to := monthRange(month)
	return s.store.ListTransactions(ctx, userID, from, to, nil)
}

type CardStatement struct {
	Card domain.Card `json:"card"`
	statement.Statement
	Transactions []domain.Transaction `json:"transactions"`
	Total        decimal.Decimal      `json:"total"`
	Available    decimal.Decimal      `json:"available"`
}

// CardStatement gathers the billing cycle of cardID that contains ref. Card
// purchases add to the total, refunds subtract and bill payments are ignored.
func (s *Service) CardStatement(ctx context.Context, userID, cardID domain.ID, ref time.Time) (CardStatement, error) {
	card, err := s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return CardStatement{}, err
	}

	cycle := statement.Cycle(card.ClosingDay, card.DueDay, ref)
	txs, err := s.store.ListTransactions(ctx, userID, cycle.Start, cycle.End, &card.ID)
	if err != nil {
		return CardStatement{}, err
	}

	total := decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.IsBillPayment:
		case tx.Kind == domain.KindIncome:
			total = total.Sub(tx.Amount)
		case tx.Kind.Outflow():
			total = total.Add(tx.Amount)
		}
	}

	return CardStatement{
		Card:         *card,
		Statement:    cycle,
		Transactions: txs,
		Total:        total,
		Available:    card.LimitAmount.Sub(total),
	}, nil
}
