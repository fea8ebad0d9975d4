package core

import (
	"sort"
	"strings"
)

// MonthGroups maps a month to its transactions in input order.
type MonthGroups map[MonthKey][]Transaction

// GroupByMonth partitions txs by the calendar month of their date. Each
// group keeps the relative order of the input.
func GroupByMonth(txs []Transaction) MonthGroups {
	groups := make(MonthGroups)
	for _, t := range txs {
		key := MonthKeyOf(t.Date)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// SortedMonthKeys returns the keys of groups, most recent month first.
func SortedMonthKeys(groups MonthGroups) []MonthKey {
	keys := make([]MonthKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[j].Before(keys[i])
	})
	return keys
}

// MonthTotal sums income as positive and expenses as negative amounts.
func MonthTotal(txs []Transaction) Money {
	var total Money
	for _, t := range txs {
		total = total.Add(t.Signed())
	}
	return total
}

// FilterByPaidVisibility returns txs unchanged when showPaid is true and
// only the unpaid transactions otherwise.
func FilterByPaidVisibility(txs []Transaction, showPaid bool) []Transaction {
	if showPaid {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Paid {
			out = append(out, t)
		}
	}
	return out
}

// BuildMonthViews groups, sorts and filters txs the way the transaction list
// renders them. With showPaid false, months with nothing left to show are
// dropped.
func BuildMonthViews(txs []Transaction, showPaid bool) []MonthView {
	groups := GroupByMonth(txs)
	keys := SortedMonthKeys(groups)
	views := make([]MonthView, 0, len(keys))
	for _, k := range keys {
		month := groups[k]
		visible := FilterByPaidVisibility(month, showPaid)
		if len(visible) == 0 && !showPaid {
			continue
		}
		views = append(views, MonthView{
			Key:     k,
			Total:   MonthTotal(month),
			Visible: visible,
			Count:   len(month),
		})
	}
	return views
}

// CategoryBreakdown sums the amounts of the given type by category, largest
// first. Category names are compared after trimming.
func CategoryBreakdown(txs []Transaction, typ TransactionType) []CategoryAmount {
	sums := make(map[string]int64)
	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		sums[strings.TrimSpace(t.Category)] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
