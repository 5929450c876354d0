// internal/domain/models.go
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ID = uuid.UUID

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidKind        = errors.New("unknown transaction kind")
	ErrMissingAccount     = errors.New("account is required")
	ErrSameAccount        = errors.New("transfer needs a different destination account")
	ErrInvalidInstallment = errors.New("installment number must be between 1 and total installments")
	ErrInvalidFrequency   = errors.New("unknown recurrence frequency")
	ErrInvalidBillingDay  = errors.New("closing and due days must be between 1 and 31")
	ErrRecurringSplit     = errors.New("a recurring transaction cannot be split into installments")
)

type Account struct {
	ID             ID              `json:"id"`
	UserID         ID              `json:"-"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Card is a credit card paid from AccountID.
type Card struct {
	ID          ID              `json:"id"`
	UserID      ID              `json:"-"`
	AccountID   ID              `json:"account_id"`
	Name        string          `json:"name"`
	ClosingDay  int             `json:"closing_day"`
	DueDay      int             `json:"due_day"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasBillingCycle reports whether both closing and due days are configured.
func (c Card) HasBillingCycle() bool {
	return c.ClosingDay > 0 && c.DueDay > 0
}

type Category struct {
	ID     ID     `json:"id"`
	UserID ID     `json:"-"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
}

type Kind string

const (
	KindIncome                 Kind = "income"
	KindExpense                Kind = "expense"
	KindTransfer               Kind = "transfer"
	KindInvestmentContribution Kind = "investment_contribution"
	KindInvestmentWithdrawal   Kind = "investment_withdrawal"
)

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindInvestmentContribution, KindInvestmentWithdrawal:
		return true
	}
	return false
}

// Outflow reports whether the kind takes money out of the source account.
func (k Kind) Outflow() bool {
	return k == KindExpense || k == KindTransfer || k == KindInvestmentContribution
}

// Transaction. Amount is always positive; the direction is carried by Kind.
// Installment siblings point at the first installment via ParentTransactionID.
type Transaction struct {
	ID                   ID              `json:"id"`
	UserID               ID              `json:"-"`
	Kind                 Kind            `json:"kind"`
	Amount               decimal.Decimal `json:"amount"`
	OccurredOn           time.Time       `json:"occurred_on"`
	AccountID            ID              `json:"account_id"`
	ToAccountID          *ID             `json:"to_account_id,omitempty"`
	CategoryID           *ID             `json:"category_id,omitempty"`
	CardID               *ID             `json:"card_id,omitempty"`
	Description          string          `json:"description,omitempty"`
	InstallmentNumber    *int            `json:"installment_number,omitempty"`
	TotalInstallments    *int            `json:"total_installments,omitempty"`
	ParentTransactionID  *ID             `json:"parent_transaction_id,omitempty"`
	IsInstallmentPayment bool            `json:"is_installment_payment"`
	IsRecurringPayment   bool            `json:"is_recurring_payment"`
	IsBillPayment        bool            `json:"is_bill_payment"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.AccountID == uuid.Nil {
		return ErrMissingAccount
	}
	if t.Kind == KindTransfer && (t.ToAccountID == nil || *t.ToAccountID == t.AccountID) {
		return ErrSameAccount
	}
	if t.InstallmentNumber != nil || t.TotalInstallments != nil {
		if t.InstallmentNumber == nil || t.TotalInstallments == nil ||
			*t.InstallmentNumber < 1 || *t.InstallmentNumber > *t.TotalInstallments {
			return ErrInvalidInstallment
		}
	}
	return nil
}

// RemainingInstallments is N-k for an installment, 0 otherwise.
func (t Transaction) RemainingInstallments() int {
	if t.InstallmentNumber == nil || t.TotalInstallments == nil {
		return 0
	}
	if n := *t.TotalInstallments - *t.InstallmentNumber; n > 0 {
		return n
	}
	return 0
}

// MonthlyBudget is unique per (user, month).
type MonthlyBudget struct {
	ID               ID              `json:"id"`
	UserID           ID              `json:"-"`
	Month            time.Time       `json:"month"`
	IncomeTarget     decimal.Decimal `json:"income_target"`
	InvestmentTarget decimal.Decimal `json:"investment_target"`
	ReserveTarget    decimal.Decimal `json:"reserve_target"`
	ExpenseLimit     decimal.Decimal `json:"expense_limit"`
}

// BudgetItem is a per-category limit, unique per (budget, category).
type BudgetItem struct {
	MonthlyBudgetID ID              `json:"-"`
	CategoryID      ID              `json:"category_id"`
	AmountLimit     decimal.Decimal `json:"amount_limit"`
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringRule repeats a transaction template every Interval units of Frequency.
// Occurrences, when set, counts the runs still allowed.
type RecurringRule struct {
	ID          ID              `json:"id"`
	UserID      ID              `json:"-"`
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	AccountID   ID              `json:"account_id"`
	ToAccountID *ID             `json:"to_account_id,omitempty"`
	CategoryID  *ID             `json:"category_id,omitempty"`
	CardID      *ID             `json:"card_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	Interval    int             `json:"interval"`
	StartOn     time.Time       `json:"start_on"`
	EndOn       *time.Time      `json:"end_on,omitempty"`
	Occurrences *int            `json:"occurrences,omitempty"`
	NextRunOn   time.Time       `json:"next_run_on"`
}
