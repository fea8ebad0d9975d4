package core

import (
	"math"
	"time"
)

// Summary holds the figures of the dashboard cards. Balance covers the
// reference month only, not all time.
type Summary struct {
	Month             MonthKey
	TotalIncome       Money
	TotalExpenses     Money
	Balance           Money
	SavingsPercentage int
	// Expenses of the month by category, largest first.
	ExpensesByCategory []CategoryAmount
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthView is one month of the transaction list as the dashboard shows it.
type MonthView struct {
	Key     MonthKey
	Total   Money         // Signed total over every transaction of the month
	Visible []Transaction // Transactions left after the paid filter
	Count   int           // Transactions in the month before filtering
}

// CurrentMonthSummary computes income, expenses, balance and savings rate
// over the transactions dated in the same calendar month as ref.
func CurrentMonthSummary(txs []Transaction, ref time.Time) Summary {
	key := MonthKeyOf(ref)
	s := Summary{Month: key}
	var month []Transaction
	for _, t := range txs {
		if !key.Contains(t.Date) {
			continue
		}
		month = append(month, t)
		switch t.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	s.SavingsPercentage = savingsPercentage(s.TotalIncome, s.TotalExpenses)
	s.ExpensesByCategory = CategoryBreakdown(month, Expense)
	return s
}

// savingsPercentage rounds halves towards positive infinity, so -12.5 -> -12.
func savingsPercentage(income, expenses Money) int {
	if income.Cents == 0 {
		return 0
	}
	ratio := float64(income.Cents-expenses.Cents) / float64(income.Cents) * 100
	return int(math.Floor(ratio + 0.5))
}
