package parsers

import (
	"testing"

	"github.com/username/playerstatements/backend/src/models"
)

func TestMonthFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     int
	}{
		{"Cashless_July_2025.xlsx", 7},
		{"cashless-AUG-2025.csv", 8},
		{"September Statement.csv", 9},
		{"Sept Statement.csv", 9},
		{"export_2025.csv", 0},
		{"DECEMBER.xlsx", 12},
	}
	for _, tt := range tests {
		if got := MonthFromFilename(tt.filename); got != tt.want {
			t.Errorf("MonthFromFilename(%q) = %d, want %d", tt.filename, got, tt.want)
		}
	}
}

func TestTransformCashlessRowsMonthInference(t *testing.T) {
	rows := []models.Row{{
		"Account Number":  "A100",
		"First Name":      "Dana",
		"Last Name":       "Wu",
		"Statement Month": "3",
	}}

	// Filename month overrides the row's own field.
	got := TransformCashlessRows(rows, "Cashless_July_2025.csv")
	if len(got) != 1 || got[0].StatementMonth != 7 {
		t.Fatalf("filename month override: got %+v, want StatementMonth 7", got)
	}

	// No filename month falls back to the row field.
	got = TransformCashlessRows(rows, "export.csv")
	if got[0].StatementMonth != 3 {
		t.Errorf("row field fallback: got %d, want 3", got[0].StatementMonth)
	}

	// Unparsable row field defaults to 0.
	rows[0]["Statement Month"] = "unknown"
	got = TransformCashlessRows(rows, "")
	if got[0].StatementMonth != 0 {
		t.Errorf("unparsable month: got %d, want 0", got[0].StatementMonth)
	}
}

func TestTransformCashlessRowsDayGroups(t *testing.T) {
	row := models.Row{
		"Account Number": "A200",
		"Cash to Card":   "1,000.50",
		"Total Bets":     "$2,500",
		"Net Win/Loss":   "-120",

		// Days 1 and 3 have gaming dates; day 2 is blank and must be
		// skipped entirely, not zero-filled.
		"Gaming Date 1":  "01/07/2025",
		"Cash to Card 1": "100",
		"Gaming Date 2":  "",
		"Cash to Card 2": "999",
		"Gaming Date 3":  "45858", // Excel serial, 20/07/2025
		"Total Bets 3":   "250",
	}

	got := TransformCashlessRows([]models.Row{row}, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 player, got %d", len(got))
	}
	player := got[0]

	if player.Totals.CashToCard != 1000.5 {
		t.Errorf("CashToCard = %v, want 1000.5", player.Totals.CashToCard)
	}
	if player.Totals.TotalBets != 2500 {
		t.Errorf("TotalBets = %v, want 2500", player.Totals.TotalBets)
	}
	if player.Totals.NetWinLoss != -120 {
		t.Errorf("NetWinLoss = %v, want -120", player.Totals.NetWinLoss)
	}

	if len(player.Daily) != 2 {
		t.Fatalf("expected 2 daily transactions, got %d", len(player.Daily))
	}
	if player.Daily[0].GamingDate != "01/07/2025" || player.Daily[0].CashToCard != 100 {
		t.Errorf("day 1 = %+v", player.Daily[0])
	}
	if player.Daily[1].GamingDate != "20/07/2025" || player.Daily[1].TotalBets != 250 {
		t.Errorf("day 3 = %+v", player.Daily[1])
	}
}

func TestTransformCashlessRowsDropsEmptyAccounts(t *testing.T) {
	rows := []models.Row{
		{"Account Number": ""},
		{"Account Number": "A300"},
	}
	got := TransformCashlessRows(rows, "")
	if len(got) != 1 || got[0].Info.Account != "A300" {
		t.Errorf("expected only A300, got %+v", got)
	}
}
