// internal/service/imports.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/importer"
	"finance-tracker/internal/recurrence"
)

// ImportStatement parses a bank CSV and stores every usable line. Lines that
// fail parsing or validation are listed in the report instead.
func (s *Service) ImportStatement(ctx context.Context, userID, accountID domain.ID, cardID *domain.ID, r io.Reader) (importer.Report, error) {
	probe := domain.Transaction{UserID: userID, AccountID: accountID, CardID: cardID}
	if _, err := s.checkOwnership(ctx, probe); err != nil {
		return importer.Report{}, err
	}

	rows, skipped, err := importer.Parse(r)
	if err != nil {
		return importer.Report{}, err
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return importer.Report{}, err
	}

	drafts, report := s.importer.Build(ctx, rows, categories, importer.Options{
		UserID:    userID,
		AccountID: accountID,
		CardID:    cardID,
	})
	report.Skipped = append(report.Skipped, skipped...)

	valid := make([]domain.Transaction, 0, len(drafts))
	for i, tx := range drafts {
		if err := tx.Validate(); err != nil {
			report.Skipped = append(report.Skipped, importer.RowError{Line: rows[i].Line, Reason: err.Error()})
			continue
		}
		valid = append(valid, tx)
	}

	stored, err := s.store.InsertTransactions(ctx, valid, false)
	if err != nil {
		return importer.Report{}, fmt.Errorf("store imported transactions: %w", err)
	}
	report.Imported = len(stored)

	slog.Info("statement imported", "user_id", userID, "imported", report.Imported, "skipped", len(report.Skipped))
	return report, nil
}

type RunReport struct {
	Rules    int `json:"rules"`
	Created  int `json:"created"`
	Finished int `json:"finished"`
}

// RunRecurring materializes every recurring run due up to asOf. A failing
// rule does not stop the others; their errors are joined.
func (s *Service) RunRecurring(ctx context.Context, userID domain.ID, asOf time.Time) (RunReport, error) {
	rules, err := s.store.ListDueRules(ctx, userID, asOf)
	if err != nil {
		return RunReport{}, err
	}

	var (
		report RunReport
		errs   []error
	)
	for _, rule := range rules {
		runs, updated, finished := recurrence.Advance(rule, asOf)
		txs := make([]domain.Transaction, 0, len(runs))
		for _, day := range runs {
			txs = append(txs, recurrence.Materialize(updated, day))
		}

		if err := s.store.ApplyRun(ctx, updated, txs, finished); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		report.Rules++
		report.Created += len(txs)
		if finished {
			report.Finished++
		}
	}

	if report.Created > 0 {
		slog.Info("recurring transactions created", "user_id", userID, "created", report.Created, "finished", report.Finished)
	}
	return report, errors.Join(errs...)
}
