package backup

import (
	"testing"

	"financeflow/internal/core"
)

func TestBuildRows(t *testing.T) {
	projects := []core.Project{
		{ID: "p1", Name: "House", Description: "main residence"},
	}
	transactions := []core.Transaction{
		{ID: "t1", ProjectID: "p1", Type: core.Income, Amount: 1250.5, Date: core.NewDate(2024, 3, 1), Note: "salary"},
		{ID: "t2", Type: core.Expense, Amount: 40, Date: core.NewDate(2024, 3, 2)},
	}

	rows := buildRows(projects, transactions)

	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 1 project + 2 transactions", len(rows))
	}
	if rows[0][0] != "record_type" || rows[0][4] != "date" {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[1][0] != "project" || rows[1][1] != "p1" || rows[1][2] != "House" {
		t.Errorf("project row = %v", rows[1])
	}
	if rows[2][4] != "2024-03-01" {
		t.Errorf("transaction date = %v, want ISO day", rows[2][4])
	}
	if rows[2][5] != "1250.50" {
		t.Errorf("transaction amount = %v, want two-decimal string", rows[2][5])
	}
	if rows[3][2] != "" {
		t.Errorf("unassigned transaction project = %v, want empty", rows[3][2])
	}
}

func TestBuildRows_Empty(t *testing.T) {
	rows := buildRows(nil, nil)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}
