// internal/statement/statement.go
package statement

import (
	"time"

	"finance-tracker/internal/calendar"
)

// Window is one credit-card billing cycle: from the day after the previous
// closing up to and including ClosingDate.
type Window struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ClosingDate time.Time `json:"closing_date"`
}

// Contains reports whether day falls inside the window (inclusive).
func (w Window) Contains(day time.Time) bool {
	d := calendar.Day(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// closingIn returns the closing date of the given month. closingDay is
// re-applied to every month so a 31 does not drift after a short month.
func closingIn(year int, month time.Month, closingDay int) time.Time {
	return calendar.Date(year, month, closingDay)
}

// GetWindow computes the billing window that ref belongs to.
func GetWindow(closingDay int, ref time.Time) Window {
	if closingDay < 1 {
		closingDay = 1
	}
	ref = calendar.Day(ref)

	lastClosing := closingIn(ref.Year(), ref.Month(), closingDay)
	if !ref.After(lastClosing) {
		// ref is on or before this month's closing, so the last one was a month earlier
		lastClosing = closingIn(ref.Year(), ref.Month()-1, closingDay)
	}
	nextClosing := closingIn(lastClosing.Year(), lastClosing.Month()+1, closingDay)

	return Window{
		Start:       calendar.AddDays(lastClosing, 1),
		End:         nextClosing,
		ClosingDate: nextClosing,
	}
}

// DueDate returns the payment due date of a statement closing on closingDate.
// A dueDay at or before the closing day rolls into the following month, so
// closing 10 / due 10 is due on the 10th of the next month. The result is
// always strictly after closingDate.
func DueDate(closingDate time.Time, dueDay int) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	closingDate = calendar.Day(closingDate)

	month := closingDate.Month()
	if dueDay <= closingDate.Day() {
		month++
	}
	due := calendar.Date(closingDate.Year(), month, dueDay)

	// due 30 after a Feb 28 closing clamps to the 28th; move a month on
	if !due.After(closingDate) {
		due = calendar.Date(closingDate.Year(), month+1, dueDay)
	}
	return due
}

// Statement is a window plus the due date of its closing.
type Statement struct {
	Window
	DueDate time.Time `json:"due_date"`
}

// Cycle computes the statement that ref belongs to for a card configured with
// closingDay/dueDay.
func Cycle(closingDay, dueDay int, ref time.Time) Statement {
	w := GetWindow(closingDay, ref)
	return Statement{Window: w, DueDate: DueDate(w.ClosingDate, dueDay)}
}

// AlignToDueDate moves day onto the due date of the statement it is billed in.
func AlignToDueDate(closingDay, dueDay int, day time.Time) time.Time {
	return DueDate(GetWindow(closingDay, day).ClosingDate, dueDay)
}
