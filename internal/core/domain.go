package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType is the closed set of transaction kinds.
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is one recorded income or expense event. Paid is the only
	// field that changes after creation, and only through the ledger.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Description string
		Category    string // Free text, see DefaultCategories for suggestions
		Date        time.Time
		Paid        bool
	}

	// NewTransaction carries the user supplied fields of a transaction.
	NewTransaction struct {
		Type        TransactionType
		Amount      Money
		Description string
		Category    string
		Date        time.Time
	}
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("transaction not found")
)

// ValidationError reports the offending field. It matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ParseTransactionType accepts "income" or "expense", case-insensitive.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", invalid("type", fmt.Sprintf("unknown transaction type %q", s))
	}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// Sign is +1 for income and -1 for expense.
func (t TransactionType) Sign() int64 {
	if t == Expense {
		return -1
	}
	return 1
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return invalid("amount", "must not be negative")
	}
	if m.Cents > MaxAmount.Cents {
		return invalid("amount", "out of range")
	}
	return nil
}

func (in NewTransaction) Validate() error {
	if !in.Type.IsValid() {
		return invalid("type", fmt.Sprintf("unknown transaction type %q", in.Type))
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "must not be empty")
	}
	if strings.TrimSpace(in.Category) == "" {
		return invalid("category", "must not be empty")
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	return Money{Cents: t.Type.Sign() * t.Amount.Cents}
}

// WithPaid returns a copy of t that differs only in Paid.
func (t Transaction) WithPaid(paid bool) Transaction {
	t.Paid = paid
	return t
}
