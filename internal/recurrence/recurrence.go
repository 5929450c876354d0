// internal/recurrence/recurrence.go
package recurrence

import (
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"
)

// Occurrence returns the n-th run of a schedule anchored on start (n = 0 is
// start itself). Monthly and yearly runs are computed from the anchor, so a
// rule starting on the 31st comes back to the 31st after a short month.
func Occurrence(freq domain.Frequency, interval int, start time.Time, n int) time.Time {
	if interval < 1 {
		interval = 1
	}
	start = calendar.Day(start)
	step := n * interval

	switch freq {
	case domain.FrequencyDaily:
		return calendar.AddDays(start, step)
	case domain.FrequencyWeekly:
		return calendar.AddDays(start, 7*step)
	case domain.FrequencyYearly:
		return calendar.AddMonths(start, 12*step)
	default:
		return calendar.AddMonths(start, step)
	}
}

// Next returns the first run of the rule strictly after the given day.
func Next(rule domain.RecurringRule, after time.Time) time.Time {
	after = calendar.Day(after)
	for n := 1; ; n++ {
		if d := Occurrence(rule.Frequency, rule.Interval, rule.StartOn, n); d.After(after) {
			return d
		}
	}
}

// Advance collects every run due up to asOf, starting at NextRunOn, and
// returns the rule moved past them. finished is true when EndOn or the
// remaining occurrence count has been exhausted.
func Advance(rule domain.RecurringRule, asOf time.Time) (runs []time.Time, updated domain.RecurringRule, finished bool) {
	asOf = calendar.Day(asOf)
	updated = rule
	next := calendar.Day(rule.NextRunOn)

	for !next.After(asOf) {
		if exhausted(updated, next) {
			return runs, updated, true
		}
		runs = append(runs, next)
		if updated.Occurrences != nil {
			left := *updated.Occurrences - 1
			updated.Occurrences = &left
		}
		next = Next(updated, next)
		updated.NextRunOn = next
	}

	return runs, updated, exhausted(updated, next)
}

func exhausted(rule domain.RecurringRule, next time.Time) bool {
	if rule.Occurrences != nil && *rule.Occurrences <= 0 {
		return true
	}
	if rule.EndOn != nil && next.After(calendar.Day(*rule.EndOn)) {
		return true
	}
	return false
}

// FromTransaction builds the rule spawned by a recurring transaction. The
// transaction itself is the first run, so NextRunOn is the second one and a
// total of occurrences leaves occurrences-1 runs. ok is false when nothing
// would ever be generated.
func FromTransaction(tx domain.Transaction, freq domain.Frequency, interval int, endOn *time.Time, occurrences *int) (rule domain.RecurringRule, ok bool, err error) {
	if !freq.Valid() {
		return domain.RecurringRule{}, false, domain.ErrInvalidFrequency
	}
	if interval < 1 {
		interval = 1
	}

	start := calendar.Day(tx.OccurredOn)
	rule = domain.RecurringRule{
		UserID:      tx.UserID,
		Kind:        tx.Kind,
		Amount:      tx.Amount,
		AccountID:   tx.AccountID,
		ToAccountID: tx.ToAccountID,
		CategoryID:  tx.CategoryID,
		CardID:      tx.CardID,
		Description: tx.Description,
		Frequency:   freq,
		Interval:    interval,
		StartOn:     start,
		NextRunOn:   Occurrence(freq, interval, start, 1),
	}
	if endOn != nil {
		e := calendar.Day(*endOn)
		rule.EndOn = &e
	}
	if occurrences != nil {
		left := *occurrences - 1
		rule.Occurrences = &left
	}

	if exhausted(rule, rule.NextRunOn) {
		return rule, false, nil
	}
	return rule, true, nil
}

// Materialize turns a run date into a transaction draft.
func Materialize(rule domain.RecurringRule, on time.Time) domain.Transaction {
	return domain.Transaction{
		UserID:             rule.UserID,
		Kind:               rule.Kind,
		Amount:             rule.Amount,
		OccurredOn:         calendar.Day(on),
		AccountID:          rule.AccountID,
		ToAccountID:        rule.ToAccountID,
		CategoryID:         rule.CategoryID,
		CardID:             rule.CardID,
		Description:        rule.Description,
		IsRecurringPayment: true,
	}
}
