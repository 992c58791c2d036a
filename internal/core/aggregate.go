package core

import (
	"fmt"
	"math/rand"
)

type (
	// DayAggregate is the derived per-day rollup consumed by the calendar
	// grid. It is rebuilt on every aggregation pass and never mutated in
	// place. Investment entries are rolled up separately and excluded from
	// the income/expense totals.
	DayAggregate struct {
		Date         Date
		Income       float64
		Expense      float64
		Investment   float64
		Transactions []Transaction
	}

	// ProjectSummary rolls a single project up. Balance nets income against
	// expense over non-investment entries only; Investment is a separate
	// running sum and never nets against the balance.
	ProjectSummary struct {
		ProjectID  string
		Income     float64
		Expense    float64
		Investment float64
		Balance    float64
	}

	// Summary is the full derived view over a transaction list. Unassigned
	// transactions (empty project ID) are grouped under the empty key and
	// participate in the portfolio totals like any project.
	Summary struct {
		Days       map[string]*DayAggregate
		Projects   map[string]*ProjectSummary
		Portfolio  float64
		Investment float64
	}
)

// OperatingBalance is the day's income minus expense.
func (d DayAggregate) OperatingBalance() float64 {
	return d.Income - d.Expense
}

// EmptyDay returns the zero-valued aggregate used for dates without data.
func EmptyDay(date Date) DayAggregate {
	return DayAggregate{Date: date}
}

// Aggregate derives per-day, per-project, and portfolio totals from a flat
// transaction list. The input is not mutated and the result depends only on
// the input: repeated invocations yield identical totals, and transactions
// inside each day keep their input order.
//
// Grouping is by the transaction's stated calendar date; no timezone
// conversion is applied.
func Aggregate(transactions []Transaction) *Summary {
	s := &Summary{
		Days:     make(map[string]*DayAggregate),
		Projects: make(map[string]*ProjectSummary),
	}

	for _, t := range transactions {
		key := t.Date.Key()
		day, ok := s.Days[key]
		if !ok {
			day = &DayAggregate{Date: t.Date}
			s.Days[key] = day
		}

		proj, ok := s.Projects[t.ProjectID]
		if !ok {
			proj = &ProjectSummary{ProjectID: t.ProjectID}
			s.Projects[t.ProjectID] = proj
		}

		switch t.Type {
		case Income:
			day.Income += t.Amount
			proj.Income += t.Amount
			proj.Balance += t.Amount
			s.Portfolio += t.Amount
		case Expense:
			day.Expense += t.Amount
			proj.Expense += t.Amount
			proj.Balance -= t.Amount
			s.Portfolio -= t.Amount
		case Investment:
			day.Investment += t.Amount
			proj.Investment += t.Amount
			s.Investment += t.Amount
		}

		day.Transactions = append(day.Transactions, t)
	}

	return s
}

// Day returns the aggregate for the given date, or an empty aggregate when
// no transactions exist for it.
func (s *Summary) Day(date Date) DayAggregate {
	if day, ok := s.Days[date.Key()]; ok {
		return *day
	}
	return EmptyDay(date)
}

// ProjectBalance returns the operating balance for a project, zero when the
// project has no transactions.
func (s *Summary) ProjectBalance(projectID string) float64 {
	if p, ok := s.Projects[projectID]; ok {
		return p.Balance
	}
	return 0
}

// RandomColor generates the cosmetic color assigned to new projects: a hue
// drawn uniformly from [0, 360) at fixed 70% saturation and 60% lightness.
func RandomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", rand.Intn(360))
}
