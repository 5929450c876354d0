package calendar

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestAddMonthsClamps(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-31", 2, "2024-03-31"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-12-15", 1, "2025-01-15"},
		{"2024-01-15", -1, "2023-12-15"},
		{"2024-03-31", -1, "2024-02-29"},
		{"2024-05-10", 0, "2024-05-10"},
		{"2024-01-31", 13, "2025-02-28"},
	}

	for _, tt := range tests {
		got := Format(AddMonths(mustParse(t, tt.from), tt.n))
		if got != tt.want {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestDateClampsDay(t *testing.T) {
	if got := Format(Date(2024, time.February, 31)); got != "2024-02-29" {
		t.Errorf("got %s", got)
	}
	if got := Format(Date(2024, time.March, 0)); got != "2024-03-01" {
		t.Errorf("got %s", got)
	}
	if got := Format(Date(2024, 13, 5)); got != "2025-01-05" {
		t.Errorf("month overflow: got %s", got)
	}
	if got := Format(Date(2024, 0, 31)); got != "2023-12-31" {
		t.Errorf("month underflow: got %s", got)
	}
}

func TestDayDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	in := time.Date(2024, 3, 15, 23, 30, 0, 0, loc)
	got := Day(in)
	if Format(got) != "2024-03-15" || got.Hour() != 0 || got.Location() != time.UTC {
		t.Errorf("Day(%v) = %v", in, got)
	}
}

func TestAddDaysCrossesMonth(t *testing.T) {
	if got := Format(AddDays(mustParse(t, "2024-02-29"), 1)); got != "2024-03-01" {
		t.Errorf("got %s", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("15/03/2024"); err == nil {
		t.Error("expected error")
	}
	if _, err := ParseMonth("2024-13"); err == nil {
		t.Error("expected error")
	}
}

func TestFixedClock(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	if got := Format(Today(FixedClock(now))); got != "2024-03-15" {
		t.Errorf("got %s", got)
	}
}
