package core

import "time"

// CalendarCell is one day within the displayed month grid. Cells are values
// and never mutate once built; navigating to another month rebuilds the
// whole grid.
type CalendarCell struct {
	Date      Date
	InMonth   bool
	Today     bool
	Aggregate DayAggregate
}

// BuildMonthGrid expands a target month into a Sunday-aligned grid of full
// weeks: it starts on the Sunday on or before the 1st and ends on the
// Saturday on or after the month's last day, so the result is always a
// multiple of seven cells.
//
// Each cell carries the day's aggregate from the summary, or an empty
// aggregate when no transactions exist for that date. Cells outside the
// target month are flagged via InMonth; today is the caller's notion of the
// current date so rendering stays deterministic.
func BuildMonthGrid(year int, month time.Month, summary *Summary, today Date) []CalendarCell {
	first := NewDate(year, int(month), 1)
	last := Date{Time: first.AddDate(0, 1, -1)}

	start := first.AddDays(-int(first.Weekday()))
	end := last.AddDays(int(time.Saturday - last.Weekday()))

	var cells []CalendarCell
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		agg := EmptyDay(d)
		if summary != nil {
			agg = summary.Day(d)
		}
		cells = append(cells, CalendarCell{
			Date:      d,
			InMonth:   d.Time.Month() == month && d.Year() == year,
			Today:     d.Equal(today),
			Aggregate: agg,
		})
	}
	return cells
}

// CanQuickAdd implements the calendar's quick-add restriction: at most one
// income and one expense entry per day per project. Bulk or edited data may
// legitimately exceed this; it is a UI convenience, not a data invariant.
// Investments are never quick-added.
func CanQuickAdd(day DayAggregate, projectID string, typ TransactionType) bool {
	if typ != Income && typ != Expense {
		return false
	}
	for _, t := range day.Transactions {
		if t.ProjectID == projectID && t.Type == typ {
			return false
		}
	}
	return true
}
