// internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"finance-tracker/internal/domain"
)

type AccountStorage interface {
	CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error)
	GetAccount(ctx context.Context, userID, id domain.ID) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID domain.ID) ([]domain.Account, error)
}

type CardStorage interface {
	CreateCard(ctx context.Context, c domain.Card) (domain.Card, error)
	GetCard(ctx context.Context, userID, id domain.ID) (*domain.Card, error)
	FindCardByName(ctx context.Context, userID domain.ID, name string) (*domain.Card, error)
	ListCards(ctx context.Context, userID domain.ID) ([]domain.Card, error)
}

type CategoryStorage interface {
	CreateCategoryIfNotExists(ctx context.Context, userID domain.ID, name string, kind domain.Kind) (domain.Category, error)
	GetCategory(ctx context.Context, userID, id domain.ID) (*domain.Category, error)
	ListCategories(ctx context.Context, userID domain.ID) ([]domain.Category, error)
}

type TransactionStorage interface {
	// InsertTransactions writes all rows atomically. With linkToFirst the
	// first inserted row becomes the parent of the others.
	InsertTransactions(ctx context.Context, txs []domain.Transaction, linkToFirst bool) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id domain.ID) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id domain.ID) error
	// ListChildren returns the rows whose parent_transaction_id is parentID.
	ListChildren(ctx context.Context, userID, parentID domain.ID) ([]domain.Transaction, error)
	// ListTransactions returns rows with occurred_on in [from, to], optionally
	// restricted to one card.
	ListTransactions(ctx context.Context, userID domain.ID, from, to time.Time, cardID *domain.ID) ([]domain.Transaction, error)
}

type BudgetStorage interface {
	// SaveBudget upserts the (user, month) row and replaces its items.
	SaveBudget(ctx context.Context, b domain.MonthlyBudget, items []domain.BudgetItem) (domain.MonthlyBudget, error)
	GetBudget(ctx context.Context, userID domain.ID, month time.Time) (*domain.MonthlyBudget, []domain.BudgetItem, error)
}

type RecurringStorage interface {
	CreateRule(ctx context.Context, r domain.RecurringRule) (domain.RecurringRule, error)
	ListDueRules(ctx context.Context, userID domain.ID, asOf time.Time) ([]domain.RecurringRule, error)
	// ApplyRun inserts the materialized rows and advances (or removes, when
	// finished) the rule in one database transaction.
	ApplyRun(ctx context.Context, r domain.RecurringRule, txs []domain.Transaction, finished bool) error
}

// Store is everything the service needs.
type Store interface {
	AccountStorage
	CardStorage
	CategoryStorage
	TransactionStorage
	BudgetStorage
	RecurringStorage
}
