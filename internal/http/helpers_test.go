package http

import (
	"testing"
	"time"

	"finwise/internal/core"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{150000, "R$ 1500.00"},
		{5, "R$ 0.05"},
		{0, "R$ 0.00"},
		{-190000, "R$ -1900.00"},
	}
	for _, tt := range tests {
		if got := formatCurrency(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("formatCurrency(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatSignedAmount(t *testing.T) {
	in := core.Transaction{Type: core.Income, Amount: core.Money{Cents: 500000}}
	out := core.Transaction{Type: core.Expense, Amount: core.Money{Cents: 40000}}
	if got := formatSignedAmount(in); got != "+ R$ 5000.00" {
		t.Errorf("income = %q", got)
	}
	if got := formatSignedAmount(out); got != "- R$ 400.00" {
		t.Errorf("expense = %q", got)
	}
}

func TestMonthLabel(t *testing.T) {
	tests := []struct {
		key  core.MonthKey
		want string
	}{
		{core.MonthKey{Year: 2024, Month: time.March}, "março de 2024"},
		{core.MonthKey{Year: 2023, Month: time.December}, "dezembro de 2023"},
		{core.MonthKey{Year: 2024, Month: time.January}, "janeiro de 2024"},
		{core.MonthKey{Year: 2024, Month: 13}, "2024-13"},
	}
	for _, tt := range tests {
		if got := monthLabel(tt.key); got != tt.want {
			t.Errorf("monthLabel(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseShowPaid(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"true", true, false},
		{"1", true, false},
		{"false", false, false},
		{"yes", false, true},
	}
	for _, tt := range tests {
		got, err := parseShowPaid(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseShowPaid(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)); got != "05/03/2024" {
		t.Errorf("formatDate = %q", got)
	}
}

func TestParseExpanded(t *testing.T) {
	march := core.MonthKey{Year: 2024, Month: time.March}
	feb := core.MonthKey{Year: 2024, Month: time.February}

	open := parseExpanded(" 2024-03 ,nope,2024-13,")
	if !open(march) {
		t.Error("2024-03 should be open")
	}
	if open(feb) {
		t.Error("2024-02 should be closed")
	}
	if parseExpanded("")(march) {
		t.Error("empty list should close every month")
	}
	if !onlyMonth(feb)(feb) || onlyMonth(feb)(march) {
		t.Error("onlyMonth should match a single key")
	}
}
