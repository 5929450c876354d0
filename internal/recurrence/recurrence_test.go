package recurrence

import (
	"testing"
	"time"

	"finance-tracker/internal/calendar"
	"finance-tracker/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := calendar.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func formatAll(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, v := range ds {
		out[i] = calendar.Format(v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOccurrence(t *testing.T) {
	start := d(t, "2024-01-31")
	tests := []struct {
		freq     domain.Frequency
		interval int
		n        int
		want     string
	}{
		{domain.FrequencyDaily, 1, 1, "2024-02-01"},
		{domain.FrequencyWeekly, 2, 1, "2024-02-14"},
		{domain.FrequencyMonthly, 1, 1, "2024-02-29"},
		{domain.FrequencyMonthly, 1, 2, "2024-03-31"},
		{domain.FrequencyMonthly, 3, 1, "2024-04-30"},
		{domain.FrequencyYearly, 1, 1, "2025-01-31"},
		{domain.FrequencyMonthly, 0, 1, "2024-02-29"},
	}

	for _, tt := range tests {
		got := calendar.Format(Occurrence(tt.freq, tt.interval, start, tt.n))
		if got != tt.want {
			t.Errorf("Occurrence(%s, %d, n=%d) = %s, want %s", tt.freq, tt.interval, tt.n, got, tt.want)
		}
	}
}

func TestAdvanceMonthly(t *testing.T) {
	rule := domain.RecurringRule{
		Frequency: domain.FrequencyMonthly,
		Interval:  1,
		StartOn:   d(t, "2024-01-31"),
		NextRunOn: d(t, "2024-02-29"),
	}

	runs, updated, finished := Advance(rule, d(t, "2024-05-15"))
	want := []string{"2024-02-29", "2024-03-31", "2024-04-30"}
	if got := formatAll(runs); !equalStrings(got, want) {
		t.Errorf("runs = %v, want %v", got, want)
	}
	if calendar.Format(updated.NextRunOn) != "2024-05-31" {
		t.Errorf("next = %s", calendar.Format(updated.NextRunOn))
	}
	if finished {
		t.Error("unexpectedly finished")
	}
}

func TestAdvanceNothingDue(t *testing.T) {
	rule := domain.RecurringRule{
		Frequency: domain.FrequencyWeekly,
		Interval:  1,
		StartOn:   d(t, "2024-03-01"),
		NextRunOn: d(t, "2024-03-08"),
	}
	runs, updated, finished := Advance(rule, d(t, "2024-03-07"))
	if len(runs) != 0 || !updated.NextRunOn.Equal(rule.NextRunOn) || finished {
		t.Errorf("runs=%v next=%s finished=%v", formatAll(runs), calendar.Format(updated.NextRunOn), finished)
	}
}

func TestAdvanceStopsAtOccurrences(t *testing.T) {
	left := 2
	rule := domain.RecurringRule{
		Frequency:   domain.FrequencyDaily,
		Interval:    1,
		StartOn:     d(t, "2024-03-01"),
		NextRunOn:   d(t, "2024-03-02"),
		Occurrences: &left,
	}
	runs, updated, finished := Advance(rule, d(t, "2024-03-10"))
	if got := formatAll(runs); !equalStrings(got, []string{"2024-03-02", "2024-03-03"}) {
		t.Errorf("runs = %v", got)
	}
	if !finished || *updated.Occurrences != 0 {
		t.Errorf("finished=%v occurrences=%d", finished, *updated.Occurrences)
	}
	if left != 2 {
		t.Error("input rule was mutated")
	}
}

func TestAdvanceStopsAtEndOn(t *testing.T) {
	end := d(t, "2024-03-20")
	rule := domain.RecurringRule{
		Frequency: domain.FrequencyWeekly,
		Interval:  1,
		StartOn:   d(t, "2024-03-01"),
		NextRunOn: d(t, "2024-03-08"),
		EndOn:     &end,
	}
	runs, _, finished := Advance(rule, d(t, "2024-04-30"))
	if got := formatAll(runs); !equalStrings(got, []string{"2024-03-08", "2024-03-15"}) {
		t.Errorf("runs = %v", got)
	}
	if !finished {
		t.Error("expected finished")
	}
}

func TestFromTransaction(t *testing.T) {
	tx := domain.Transaction{
		UserID:      uuid.New(),
		Kind:        domain.KindExpense,
		Amount:      decimal.NewFromInt(59),
		AccountID:   uuid.New(),
		OccurredOn:  d(t, "2024-01-15"),
		Description: "Streaming",
	}
	total := 12

	rule, ok, err := FromTransaction(tx, domain.FrequencyMonthly, 1, nil, &total)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if calendar.Format(rule.NextRunOn) != "2024-02-15" || *rule.Occurrences != 11 {
		t.Errorf("rule = %+v", rule)
	}

	draft := Materialize(rule, rule.NextRunOn)
	if !draft.IsRecurringPayment || draft.Description != "Streaming" || !draft.Amount.Equal(tx.Amount) {
		t.Errorf("draft = %+v", draft)
	}
}

func TestFromTransactionNothingLeft(t *testing.T) {
	one := 1
	_, ok, err := FromTransaction(domain.Transaction{OccurredOn: d(t, "2024-01-15")}, domain.FrequencyMonthly, 1, nil, &one)
	if err != nil || ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}

	end := d(t, "2024-01-20")
	_, ok, _ = FromTransaction(domain.Transaction{OccurredOn: d(t, "2024-01-15")}, domain.FrequencyMonthly, 1, &end, nil)
	if ok {
		t.Error("rule ending before its second run should not be created")
	}
}

func TestFromTransactionRejectsFrequency(t *testing.T) {
	if _, _, err := FromTransaction(domain.Transaction{}, "hourly", 1, nil, nil); err != domain.ErrInvalidFrequency {
		t.Errorf("err = %v", err)
	}
}
