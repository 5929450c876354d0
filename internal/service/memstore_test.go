package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"finance-tracker/internal/domain"

	"github.com/google/uuid"
)

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	accounts     map[domain.ID]domain.Account
	cards        map[domain.ID]domain.Card
	categories   map[domain.ID]domain.Category
	transactions map[domain.ID]domain.Transaction
	order        []domain.ID
	budgets      map[string]domain.MonthlyBudget
	items        map[domain.ID][]domain.BudgetItem
	rules        map[domain.ID]domain.RecurringRule

	failApply map[domain.ID]error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     map[domain.ID]domain.Account{},
		cards:        map[domain.ID]domain.Card{},
		categories:   map[domain.ID]domain.Category{},
		transactions: map[domain.ID]domain.Transaction{},
		budgets:      map[string]domain.MonthlyBudget{},
		items:        map[domain.ID][]domain.BudgetItem{},
		rules:        map[domain.ID]domain.RecurringRule{},
		failApply:    map[domain.ID]error{},
	}
}

func (m *memStore) CreateAccount(_ context.Context, a domain.Account) (domain.Account, error) {
	a.ID = uuid.New()
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memStore) GetAccount(_ context.Context, userID, id domain.ID) (*domain.Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) ListAccounts(_ context.Context, userID domain.ID) ([]domain.Account, error) {
	out := []domain.Account{}
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateCard(_ context.Context, c domain.Card) (domain.Card, error) {
	c.ID = uuid.New()
	m.cards[c.ID] = c
	return c, nil
}

func (m *memStore) GetCard(_ context.Context, userID, id domain.ID) (*domain.Card, error) {
	c, ok := m.cards[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) FindCardByName(_ context.Context, userID domain.ID, name string) (*domain.Card, error) {
	for _, c := range m.cards {
		if c.UserID == userID && strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListCards(_ context.Context, userID domain.ID) ([]domain.Card, error) {
	out := []domain.Card{}
	for _, c := range m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateCategoryIfNotExists(_ context.Context, userID domain.ID, name string, kind domain.Kind) (domain.Category, error) {
	for _, c := range m.categories {
		if c.UserID == userID && c.Name == name {
			return c, nil
		}
	}
	c := domain.Category{ID: uuid.New(), UserID: userID, Name: name, Kind: kind}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) GetCategory(_ context.Context, userID, id domain.ID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) ListCategories(_ context.Context, userID domain.ID) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) insert(t domain.Transaction) domain.Transaction {
	t.ID = uuid.New()
	m.transactions[t.ID] = t
	m.order = append(m.order, t.ID)
	return t
}

func (m *memStore) InsertTransactions(_ context.Context, txs []domain.Transaction, linkToFirst bool) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(txs))
	for i, t := range txs {
		if linkToFirst && i > 0 {
			parent := out[0].ID
			t.ParentTransactionID = &parent
		}
		out = append(out, m.insert(t))
	}
	return out, nil
}

func (m *memStore) GetTransaction(_ context.Context, userID, id domain.ID) (*domain.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, t domain.Transaction) error {
	old, ok := m.transactions[t.ID]
	if !ok || old.UserID != t.UserID {
		return domain.ErrNotFound
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) DeleteTransaction(_ context.Context, userID, id domain.ID) error {
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *memStore) ListChildren(_ context.Context, userID, parentID domain.ID) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, id := range m.order {
		t, ok := m.transactions[id]
		if ok && t.UserID == userID && t.ParentTransactionID != nil && *t.ParentTransactionID == parentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTransactions(_ context.Context, userID domain.ID, from, to time.Time, cardID *domain.ID) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, id := range m.order {
		t, ok := m.transactions[id]
		if !ok || t.UserID != userID || t.OccurredOn.Before(from) || t.OccurredOn.After(to) {
			continue
		}
		if cardID != nil && (t.CardID == nil || *t.CardID != *cardID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func budgetKey(userID domain.ID, month time.Time) string {
	return userID.String() + month.Format("2006-01")
}

func (m *memStore) SaveBudget(_ context.Context, b domain.MonthlyBudget, items []domain.BudgetItem) (domain.MonthlyBudget, error) {
	key := budgetKey(b.UserID, b.Month)
	if old, ok := m.budgets[key]; ok {
		b.ID = old.ID
	} else {
		b.ID = uuid.New()
	}
	m.budgets[key] = b
	m.items[b.ID] = append([]domain.BudgetItem(nil), items...)
	return b, nil
}

func (m *memStore) GetBudget(_ context.Context, userID domain.ID, month time.Time) (*domain.MonthlyBudget, []domain.BudgetItem, error) {
	b, ok := m.budgets[budgetKey(userID, month)]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return &b, m.items[b.ID], nil
}

func (m *memStore) CreateRule(_ context.Context, r domain.RecurringRule) (domain.RecurringRule, error) {
	r.ID = uuid.New()
	m.rules[r.ID] = r
	return r, nil
}

func (m *memStore) ListDueRules(_ context.Context, userID domain.ID, asOf time.Time) ([]domain.RecurringRule, error) {
	out := []domain.RecurringRule{}
	for _, r := range m.rules {
		if r.UserID == userID && !r.NextRunOn.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ApplyRun(_ context.Context, r domain.RecurringRule, txs []domain.Transaction, finished bool) error {
	if err := m.failApply[r.ID]; err != nil {
		return err
	}
	for _, t := range txs {
		m.insert(t)
	}
	if finished {
		delete(m.rules, r.ID)
	} else {
		m.rules[r.ID] = r
	}
	return nil
}
