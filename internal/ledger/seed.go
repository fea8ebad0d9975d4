package ledger

import (
	"time"

	"finwise/internal/core"
)

// DemoSeed returns the three sample transactions the dashboard ships with.
func DemoSeed() []core.Transaction {
	return []core.Transaction{
		{
			ID:          "1",
			Type:        core.Income,
			Amount:      core.Money{Cents: 500000},
			Description: "Salário",
			Category:    "Renda",
			Date:        time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Paid:        true,
		},
		{
			ID:          "2",
			Type:        core.Expense,
			Amount:      core.Money{Cents: 150000},
			Description: "Aluguel",
			Category:    "Moradia",
			Date:        time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			Paid:        false,
		},
		{
			ID:          "3",
			Type:        core.Expense,
			Amount:      core.Money{Cents: 40000},
			Description: "Supermercado",
			Category:    "Alimentação",
			Date:        time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
			Paid:        true,
		},
	}
}
