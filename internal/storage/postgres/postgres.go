// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Storage)(nil)

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// sanitizeString drops non-printable runes and collapses whitespace.
func sanitizeString(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			result = append(result, ' ')
		} else if unicode.IsPrint(r) {
			result = append(result, r)
		}
	}
	return strings.Join(strings.Fields(string(result)), " ")
}

// Amounts travel as text so NUMERIC round-trips without a custom codec.
func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// === AccountStorage ===

func (s *Storage) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Name = sanitizeString(a.Name)
	err := s.db.QueryRow(ctx, `
		INSERT INTO accounts (user_id, name, type, opening_balance)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING id, created_at
	`, a.UserID, a.Name, a.Type, a.OpeningBalance.String()).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

const accountColumns = `id, user_id, name, type, opening_balance::text, created_at`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		a       domain.Account
		balance string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &a.CreatedAt); err != nil {
		return domain.Account{}, err
	}
	var err error
	a.OpeningBalance, err = parseNumeric(balance)
	return a, err
}

func (s *Storage) GetAccount(ctx context.Context, userID, id domain.ID) (*domain.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, notFound(err, "get account")
	}
	return &a, nil
}

func (s *Storage) ListAccounts(ctx context.Context, userID domain.ID) ([]domain.Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// === CardStorage ===

func (s *Storage) CreateCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	c.Name = sanitizeString(c.Name)
	err := s.db.QueryRow(ctx, `
		INSERT INTO cards (user_id, account_id, name, closing_day, due_day, limit_amount)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		RETURNING id, created_at
	`, c.UserID, c.AccountID, c.Name, c.ClosingDay, c.DueDay, c.LimitAmount.String()).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return domain.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return c, nil
}

const cardColumns = `id, user_id, account_id, name, closing_day, due_day, limit_amount::text, created_at`

// Exact, case-insensitive match: "_" and "%" in a name are plain characters.
const findCardByNameQuery = `SELECT ` + cardColumns + ` FROM cards
	WHERE user_id = $1 AND lower(name) = lower($2) ORDER BY created_at LIMIT 1`

func scanCard(row pgx.Row) (domain.Card, error) {
	var (
		c     domain.Card
		limit string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.AccountID, &c.Name, &c.ClosingDay, &c.DueDay, &limit, &c.CreatedAt); err != nil {
		return domain.Card{}, err
	}
	var err error
	c.LimitAmount, err = parseNumeric(limit)
	return c, err
}

func (s *Storage) GetCard(ctx context.Context, userID, id domain.ID) (*domain.Card, error) {
	c, err := scanCard(s.db.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, notFound(err, "get card")
	}
	return &c, nil
}

func (s *Storage) FindCardByName(ctx context.Context, userID domain.ID, name string) (*domain.Card, error) {
	c, err := scanCard(s.db.QueryRow(ctx, findCardByNameQuery, userID, sanitizeString(name)))
	if err != nil {
		return nil, notFound(err, "find card")
	}
	return &c, nil
}

func (s *Storage) ListCards(ctx context.Context, userID domain.ID) ([]domain.Card, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// === CategoryStorage ===

func (s *Storage) CreateCategoryIfNotExists(ctx context.Context, userID domain.ID, name string, kind domain.Kind) (domain.Category, error) {
	cat := domain.Category{UserID: userID, Name: sanitizeString(name)}
	err := s.db.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, kind
	`, userID, cat.Name, kind).Scan(&cat.ID, &cat.Kind)
	if err != nil {
		return domain.Category{}, fmt.Errorf("create or get category: %w", err)
	}
	return cat, nil
}

func (s *Storage) GetCategory(ctx context.Context, userID, id domain.ID) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, kind FROM categories WHERE user_id = $1 AND id = $2`, userID, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Kind)
	if err != nil {
		return nil, notFound(err, "get category")
	}
	return &c, nil
}

func (s *Storage) ListCategories(ctx context.Context, userID domain.ID) ([]domain.Category, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, name, kind FROM categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// === TransactionStorage ===

const transactionColumns = `id, user_id, kind, amount::text, occurred_on, account_id, to_account_id,
	category_id, card_id, description, installment_number, total_installments,
	parent_transaction_id, is_installment_payment, is_recurring_payment, is_bill_payment, created_at`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t      domain.Transaction
		amount string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &amount, &t.OccurredOn, &t.AccountID, &t.ToAccountID,
		&t.CategoryID, &t.CardID, &t.Description, &t.InstallmentNumber, &t.TotalInstallments,
		&t.ParentTransactionID, &t.IsInstallmentPayment, &t.IsRecurringPayment, &t.IsBillPayment, &t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.OccurredOn = calendar.Day(t.OccurredOn)
	t.Amount, err = parseNumeric(amount)
	return t, err
}

const insertTransaction = `
	INSERT INTO transactions (
		user_id, kind, amount, occurred_on, account_id, to_account_id, category_id, card_id,
		description, installment_number, total_installments, parent_transaction_id,
		is_installment_payment, is_recurring_payment, is_bill_payment
	) VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING id, created_at`

func insertInTx(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return tx.QueryRow(ctx, insertTransaction,
		t.UserID, t.Kind, t.Amount.String(), t.OccurredOn, t.AccountID, t.ToAccountID, t.CategoryID, t.CardID,
		sanitizeString(t.Description), t.InstallmentNumber, t.TotalInstallments, t.ParentTransactionID,
		t.IsInstallmentPayment, t.IsRecurringPayment, t.IsBillPayment,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *Storage) InsertTransactions(ctx context.Context, txs []domain.Transaction, linkToFirst bool) ([]domain.Transaction, error) {
	if len(txs) == 0 {
		return []domain.Transaction{}, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	for i := range out {
		if linkToFirst && i > 0 {
			parent := out[0].ID
			out[i].ParentTransactionID = &parent
		}
		if err := insertInTx(ctx, tx, &out[i]); err != nil {
			return nil, fmt.Errorf("insert transaction %d/%d: %w", i+1, len(out), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	slog.Debug("InsertTransactions completed", "count", len(out), "linked", linkToFirst)
	return out, nil
}

func (s *Storage) GetTransaction(ctx context.Context, userID, id domain.ID) (*domain.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, notFound(err, "get transaction")
	}
	return &t, nil
}

func (s *Storage) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	result, err := s.db.Exec(ctx, `
		UPDATE transactions SET
			kind = $3, amount = $4::numeric, occurred_on = $5, account_id = $6, to_account_id = $7,
			category_id = $8, card_id = $9, description = $10, installment_number = $11,
			total_installments = $12, is_installment_payment = $13, is_recurring_payment = $14,
			is_bill_payment = $15
		WHERE user_id = $1 AND id = $2
	`, t.UserID, t.ID, t.Kind, t.Amount.String(), t.OccurredOn, t.AccountID, t.ToAccountID,
		t.CategoryID, t.CardID, sanitizeString(t.Description), t.InstallmentNumber,
		t.TotalInstallments, t.IsInstallmentPayment, t.IsRecurringPayment, t.IsBillPayment)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update transaction %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) DeleteTransaction(ctx context.Context, userID, id domain.ID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) ListChildren(ctx context.Context, userID, parentID domain.ID) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND parent_transaction_id = $2
		ORDER BY installment_number, occurred_on
	`, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Storage) ListTransactions(ctx context.Context, userID domain.ID, from, to time.Time, cardID *domain.ID) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND occurred_on BETWEEN $2 AND $3
		AND ($4::uuid IS NULL OR card_id = $4)
		ORDER BY occurred_on, created_at
	`, userID, from, to, cardID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// === BudgetStorage ===

func (s *Storage) SaveBudget(ctx context.Context, b domain.MonthlyBudget, items []domain.BudgetItem) (domain.MonthlyBudget, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.MonthlyBudget{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO monthly_budgets (user_id, month, income_target, investment_target, reserve_target, expense_limit)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric)
		ON CONFLICT (user_id, month) DO UPDATE SET
			income_target = EXCLUDED.income_target,
			investment_target = EXCLUDED.investment_target,
			reserve_target = EXCLUDED.reserve_target,
			expense_limit = EXCLUDED.expense_limit
		RETURNING id
	`, b.UserID, calendar.MonthStart(b.Month), b.IncomeTarget.String(), b.InvestmentTarget.String(),
		b.ReserveTarget.String(), b.ExpenseLimit.String()).Scan(&b.ID)
	if err != nil {
		return domain.MonthlyBudget{}, fmt.Errorf("upsert monthly budget: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM budget_items WHERE monthly_budget_id = $1`, b.ID); err != nil {
		return domain.MonthlyBudget{}, fmt.Errorf("clear budget items: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO budget_items (monthly_budget_id, category_id, amount_limit)
			VALUES ($1, $2, $3::numeric)
			ON CONFLICT (monthly_budget_id, category_id)
			DO UPDATE SET amount_limit = EXCLUDED.amount_limit
		`, b.ID, item.CategoryID, item.AmountLimit.String())
		if err != nil {
			return domain.MonthlyBudget{}, fmt.Errorf("upsert budget item %s: %w", item.CategoryID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.MonthlyBudget{}, fmt.Errorf("commit tx: %w", err)
	}

	slog.Debug("SaveBudget completed", "user_id", b.UserID, "month", calendar.Format(b.Month), "items", len(items))
	return b, nil
}

func (s *Storage) GetBudget(ctx context.Context, userID domain.ID, month time.Time) (*domain.MonthlyBudget, []domain.BudgetItem, error) {
	var (
		b                                  domain.MonthlyBudget
		income, investment, reserve, limit string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, month, income_target::text, investment_target::text,
			reserve_target::text, expense_limit::text
		FROM monthly_budgets
		WHERE user_id = $1 AND month = $2
	`, userID, calendar.MonthStart(month)).Scan(&b.ID, &b.UserID, &b.Month, &income, &investment, &reserve, &limit)
	if err != nil {
		return nil, nil, notFound(err, "get monthly budget")
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{{&b.IncomeTarget, income}, {&b.InvestmentTarget, investment}, {&b.ReserveTarget, reserve}, {&b.ExpenseLimit, limit}} {
		if *f.dst, err = parseNumeric(f.raw); err != nil {
			return nil, nil, err
		}
	}
	b.Month = calendar.Day(b.Month)

	rows, err := s.db.Query(ctx, `
		SELECT bi.category_id, bi.amount_limit::text
		FROM budget_items bi
		JOIN categories c ON c.id = bi.category_id
		WHERE bi.monthly_budget_id = $1
		ORDER BY c.name
	`, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("query budget items: %w", err)
	}
	defer rows.Close()

	items := []domain.BudgetItem{}
	for rows.Next() {
		item := domain.BudgetItem{MonthlyBudgetID: b.ID}
		var raw string
		if err := rows.Scan(&item.CategoryID, &raw); err != nil {
			return nil, nil, fmt.Errorf("scan budget item: %w", err)
		}
		if item.AmountLimit, err = parseNumeric(raw); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}
	return &b, items, nil
}

// === RecurringStorage ===

func (s *Storage) CreateRule(ctx context.Context, r domain.RecurringRule) (domain.RecurringRule, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO recurring_rules (
			user_id, kind, amount, account_id, to_account_id, category_id, card_id, description,
			frequency, every, start_on, end_on, occurrences, next_run_on
		) VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, r.UserID, r.Kind, r.Amount.String(), r.AccountID, r.ToAccountID, r.CategoryID, r.CardID,
		sanitizeString(r.Description), r.Frequency, r.Interval, r.StartOn, r.EndOn, r.Occurrences, r.NextRunOn,
	).Scan(&r.ID)
	if err != nil {
		return domain.RecurringRule{}, fmt.Errorf("insert recurring rule: %w", err)
	}
	return r, nil
}

func (s *Storage) ListDueRules(ctx context.Context, userID domain.ID, asOf time.Time) ([]domain.RecurringRule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, kind, amount::text, account_id, to_account_id, category_id, card_id,
			description, frequency, every, start_on, end_on, occurrences, next_run_on
		FROM recurring_rules
		WHERE user_id = $1 AND next_run_on <= $2
		ORDER BY next_run_on
	`, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("list due rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.RecurringRule{}
	for rows.Next() {
		var (
			r      domain.RecurringRule
			amount string
		)
		err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &amount, &r.AccountID, &r.ToAccountID, &r.CategoryID,
			&r.CardID, &r.Description, &r.Frequency, &r.Interval, &r.StartOn, &r.EndOn, &r.Occurrences, &r.NextRunOn)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		if r.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		r.StartOn = calendar.Day(r.StartOn)
		r.NextRunOn = calendar.Day(r.NextRunOn)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Storage) ApplyRun(ctx context.Context, r domain.RecurringRule, txs []domain.Transaction, finished bool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range txs {
		if err := insertInTx(ctx, tx, &txs[i]); err != nil {
			return fmt.Errorf("insert recurring transaction: %w", err)
		}
	}

	if finished {
		_, err = tx.Exec(ctx, `DELETE FROM recurring_rules WHERE user_id = $1 AND id = $2`, r.UserID, r.ID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE recurring_rules SET next_run_on = $3, occurrences = $4
			WHERE user_id = $1 AND id = $2
		`, r.UserID, r.ID, r.NextRunOn, r.Occurrences)
	}
	if err != nil {
		return fmt.Errorf("advance recurring rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.Debug("ApplyRun completed", "rule_id", r.ID, "inserted", len(txs), "finished", finished)
	return nil
}
