package http

import (
	"html/template"
	"strconv"

	"finwise/internal/core"
)

var templateFuncs = template.FuncMap{
	"currency": formatCurrency,
}

// summaryView feeds the four dashboard cards. The trend figures are fixed
// decoration and never derived from data.
type summaryView struct {
	MonthLabel      string
	Balance         core.Money
	BalancePositive bool
	Income          core.Money
	Expenses        core.Money
	Savings         int
	Trends          trendView
}

type trendView struct {
	Balance  int
	Income   int
	Expenses int
}

type monthsView struct {
	ShowPaid bool
	Toggle   string // show_paid value the toggle button requests
	Months   []monthView
}

type monthView struct {
	Key           string
	Label         string
	Total         core.Money
	TotalPositive bool
	Count         int
	Expanded      bool
	Transactions  []transactionView
}

type transactionView struct {
	ID          string
	Description string
	Category    string
	Amount      string
	Date        string
	Income      bool
	Paid        bool
}

func newSummaryView(sum core.Summary) summaryView {
	return summaryView{
		MonthLabel:      monthLabel(sum.Month),
		Balance:         sum.Balance,
		BalancePositive: sum.Balance.Cents >= 0,
		Income:          sum.TotalIncome,
		Expenses:        sum.TotalExpenses,
		Savings:         sum.SavingsPercentage,
		Trends:          trendView{Balance: 12, Income: 8, Expenses: 5},
	}
}

// newMonthsView renders months for display. expanded decides which months
// start open.
func newMonthsView(months []core.MonthView, showPaid bool, expanded func(core.MonthKey) bool) monthsView {
	v := monthsView{
		ShowPaid: showPaid,
		Toggle:   strconv.FormatBool(!showPaid),
		Months:   make([]monthView, 0, len(months)),
	}
	for _, m := range months {
		mv := monthView{
			Key:           m.Key.String(),
			Label:         monthLabel(m.Key),
			Total:         m.Total,
			TotalPositive: m.Total.Cents >= 0,
			Count:         m.Count,
			Expanded:      expanded(m.Key),
			Transactions:  make([]transactionView, 0, len(m.Visible)),
		}
		for _, t := range m.Visible {
			mv.Transactions = append(mv.Transactions, newTransactionView(t))
		}
		v.Months = append(v.Months, mv)
	}
	return v
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Description: t.Description,
		Category:    t.Category,
		Amount:      formatSignedAmount(t),
		Date:        formatDate(t.Date),
		Income:      t.Type == core.Income,
		Paid:        t.Paid,
	}
}

type indexView struct {
	Summary           summaryView
	Months            monthsView
	Today             string
	IncomeCategories  []string
	ExpenseCategories []string
}
