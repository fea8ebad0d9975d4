package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		Type:        Expense,
		Amount:      Money{Cents: 100},
		Description: "Aluguel",
		Category:    "Moradia",
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	oks := map[string]func(*NewTransaction){
		"zero amount":      func(n *NewTransaction) { n.Amount = Money{} },
		"max amount":       func(n *NewTransaction) { n.Amount = MaxAmount },
		"long description": func(n *NewTransaction) { n.Description = strings.Repeat("a", 500) },
		"zero date":        func(n *NewTransaction) { n.Date = time.Time{} },
	}
	for name, mutate := range oks {
		t.Run(name, func(t *testing.T) {
			in := good
			mutate(&in)
			if err := in.Validate(); err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
		})
	}

	bads := map[string]func(*NewTransaction){
		"negative amount":   func(n *NewTransaction) { n.Amount = Money{Cents: -500} },
		"empty description": func(n *NewTransaction) { n.Description = "  " },
		"empty category":    func(n *NewTransaction) { n.Category = "" },
		"unknown type":      func(n *NewTransaction) { n.Type = "transfer" },
		"amount over max":   func(n *NewTransaction) { n.Amount = Money{Cents: MaxAmount.Cents + 1} },
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			in := good
			mutate(&in)
			err := in.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field == "" {
				t.Fatalf("expected *ValidationError with field, got %#v", err)
			}
		})
	}
}

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"EXPENSE", Expense, true},
		{" expense ", Expense, true},
		{"", "", false},
		{"refund", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", tc.in, err)
		}
	}
}

func TestSignedAndWithPaid(t *testing.T) {
	tx := Transaction{ID: "a", Type: Expense, Amount: Money{Cents: 250}}
	if got := tx.Signed().Cents; got != -250 {
		t.Fatalf("expense signed = %d, want -250", got)
	}
	tx.Type = Income
	if got := tx.Signed().Cents; got != 250 {
		t.Fatalf("income signed = %d, want 250", got)
	}

	paid := tx.WithPaid(true)
	if !paid.Paid || tx.Paid {
		t.Fatalf("WithPaid must return a modified copy")
	}
	paid.Paid = false
	if paid != tx {
		t.Fatalf("copy differs in more than Paid: %+v vs %+v", paid, tx)
	}
}
