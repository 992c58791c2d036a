package core

import (
	"strings"
	"testing"
)

func sampleTransactions() []Transaction {
	return []Transaction{
		{ID: "t1", ProjectID: "p1", Type: Income, Amount: 1000, Date: NewDate(2024, 3, 1)},
		{ID: "t2", ProjectID: "p1", Type: Expense, Amount: 400, Date: NewDate(2024, 3, 1)},
		{ID: "t3", ProjectID: "p1", Type: Investment, Amount: 5000, Date: NewDate(2024, 3, 2)},
	}
}

func TestAggregateScenario(t *testing.T) {
	s := Aggregate(sampleTransactions())

	day := s.Day(NewDate(2024, 3, 1))
	if day.Income != 1000 || day.Expense != 400 {
		t.Fatalf("expected income 1000 / expense 400, got %v / %v", day.Income, day.Expense)
	}
	if day.Investment != 0 {
		t.Fatalf("investment must not leak into 2024-03-01, got %v", day.Investment)
	}
	if len(day.Transactions) != 2 {
		t.Fatalf("expected 2 transactions on 2024-03-01, got %d", len(day.Transactions))
	}

	if got := s.ProjectBalance("p1"); got != 600 {
		t.Fatalf("expected project balance 600, got %v", got)
	}
	if s.Investment != 5000 {
		t.Fatalf("expected investment total 5000, got %v", s.Investment)
	}
	if s.Portfolio != 600 {
		t.Fatalf("expected portfolio balance 600, got %v", s.Portfolio)
	}
}

func TestAggregateEmptyDay(t *testing.T) {
	s := Aggregate(sampleTransactions())
	day := s.Day(NewDate(2024, 3, 15))
	if day.Income != 0 || day.Expense != 0 || day.Investment != 0 || len(day.Transactions) != 0 {
		t.Fatalf("expected zero aggregate for empty day, got %+v", day)
	}
}

// Portfolio balance must equal the sum of per-project balances.
func TestAggregatePortfolioIsSumOfProjects(t *testing.T) {
	txs := []Transaction{
		{ProjectID: "p1", Type: Income, Amount: 100, Date: NewDate(2024, 1, 1)},
		{ProjectID: "p1", Type: Expense, Amount: 30, Date: NewDate(2024, 1, 2)},
		{ProjectID: "p2", Type: Income, Amount: 250.50, Date: NewDate(2024, 1, 2)},
		{ProjectID: "p2", Type: Investment, Amount: 9000, Date: NewDate(2024, 1, 3)},
		{ProjectID: "", Type: Expense, Amount: 12.25, Date: NewDate(2024, 1, 3)}, // unassigned
	}
	s := Aggregate(txs)

	var sum float64
	for _, p := range s.Projects {
		sum += p.Balance
	}
	if s.Portfolio != sum {
		t.Fatalf("portfolio %v != sum of project balances %v", s.Portfolio, sum)
	}
	if s.ProjectBalance("p2") != 250.50 {
		t.Fatalf("investment must not net against p2 balance, got %v", s.ProjectBalance("p2"))
	}
	if _, ok := s.Projects[""]; !ok {
		t.Fatal("unassigned transactions should form their own bucket")
	}
}

func TestAggregateIsPureAndIdempotent(t *testing.T) {
	txs := sampleTransactions()
	before := make([]Transaction, len(txs))
	copy(before, txs)

	first := Aggregate(txs)
	second := Aggregate(txs)

	if first.Portfolio != second.Portfolio || first.Investment != second.Investment {
		t.Fatalf("repeated aggregation diverged: %v/%v vs %v/%v",
			first.Portfolio, first.Investment, second.Portfolio, second.Investment)
	}
	for key, day := range first.Days {
		other := second.Days[key]
		if other == nil || day.Income != other.Income || day.Expense != other.Expense ||
			day.Investment != other.Investment || len(day.Transactions) != len(other.Transactions) {
			t.Fatalf("day %s diverged between runs", key)
		}
	}
	for i := range txs {
		if txs[i] != before[i] {
			t.Fatalf("input transaction %d was mutated", i)
		}
	}
}

func TestAggregateKeepsInputOrderWithinDay(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Type: Income, Amount: 1, Date: NewDate(2024, 5, 5)},
		{ID: "b", Type: Expense, Amount: 2, Date: NewDate(2024, 5, 5)},
		{ID: "c", Type: Income, Amount: 3, Date: NewDate(2024, 5, 5)},
	}
	day := Aggregate(txs).Day(NewDate(2024, 5, 5))
	got := make([]string, 0, len(day.Transactions))
	for _, tx := range day.Transactions {
		got = append(got, tx.ID)
	}
	if strings.Join(got, "") != "abc" {
		t.Fatalf("expected input order abc, got %v", got)
	}
}

func TestRandomColor(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := RandomColor()
		if !strings.HasPrefix(c, "hsl(") || !strings.HasSuffix(c, ", 70%, 60%)") {
			t.Fatalf("unexpected color format %q", c)
		}
	}
}
