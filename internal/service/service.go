// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/classifier"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/importer"
	"finance-tracker/internal/installment"
	"finance-tracker/internal/storage"
)

type Options struct {
	Classifier      classifier.Classifier
	DefaultCategory string
	Clock           calendar.Clock
	Observer        installment.Observer
}

type Service struct {
	store        storage.Store
	importer     *importer.Importer
	installments *installment.Generator
	clock        calendar.Clock
}

func New(store storage.Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = calendar.SystemClock{}
	}
	if opts.Observer == nil {
		opts.Observer = NewSlogObserver(slog.Default())
	}
	return &Service{
		store:        store,
		importer:     importer.New(opts.Classifier, opts.DefaultCategory),
		installments: installment.NewGenerator(opts.Observer),
		clock:        opts.Clock,
	}
}

// Today is the current day according to the service clock.
func (s *Service) Today() time.Time {
	return calendar.Today(s.clock)
}

type slogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver reports installment events as info records.
func NewSlogObserver(logger *slog.Logger) installment.Observer {
	return slogObserver{logger: logger}
}

func (o slogObserver) Observe(event string, attrs ...any) {
	o.logger.Info(event, attrs...)
}

// monthRange returns the first and last day of the month containing t.
func monthRange(t time.Time) (time.Time, time.Time) {
	start := calendar.MonthStart(t)
	return start, calendar.AddDays(calendar.AddMonths(start, 1), -1)
}

// === Accounts ===

func (s *Service) CreateAccount(ctx context.Context, userID domain.ID, a domain.Account) (domain.Account, error) {
	a.UserID = userID
	if strings.TrimSpace(a.Type) == "" {
		a.Type = "checking"
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *Service) ListAccounts(ctx context.Context, userID domain.ID) ([]domain.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// === Cards ===

func (s *Service) CreateCard(ctx context.Context, userID domain.ID, c domain.Card) (domain.Card, error) {
	if c.ClosingDay < 1 || c.ClosingDay > 31 || c.DueDay < 1 || c.DueDay > 31 {
		return domain.Card{}, domain.ErrInvalidBillingDay
	}
	if _, err := s.store.GetAccount(ctx, userID, c.AccountID); err != nil {
		return domain.Card{}, fmt.Errorf("card account: %w", err)
	}
	c.UserID = userID
	return s.store.CreateCard(ctx, c)
}

func (s *Service) ListCards(ctx context.Context, userID domain.ID) ([]domain.Card, error) {
	return s.store.ListCards(ctx, userID)
}

func (s *Service) FindCard(ctx context.Context, userID domain.ID, name string) (*domain.Card, error) {
	return s.store.FindCardByName(ctx, userID, name)
}

// === Categories ===

func (s *Service) CreateCategory(ctx context.Context, userID domain.ID, name string, kind domain.Kind) (domain.Category, error) {
	if kind == "" {
		kind = domain.KindExpense
	}
	if !kind.Valid() {
		return domain.Category{}, domain.ErrInvalidKind
	}
	return s.store.CreateCategoryIfNotExists(ctx, userID, name, kind)
}

func (s *Service) ListCategories(ctx context.Context, userID domain.ID) ([]domain.Category, error) {
	return s.store.ListCategories(ctx, userID)
}
