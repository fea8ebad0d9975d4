package core

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func sample() []Transaction {
	return []Transaction{
		{ID: "6", Type: Expense, Amount: Money{Cents: 2000}, Description: "Cinema", Category: "Lazer", Date: day(2024, 4, 2)},
		{ID: "5", Type: Income, Amount: Money{Cents: 80000}, Description: "Projeto", Category: "Freelance", Date: day(2023, 12, 20), Paid: true},
		{ID: "1", Type: Income, Amount: Money{Cents: 500000}, Description: "Salário", Category: "Renda", Date: day(2024, 3, 5), Paid: true},
		{ID: "2", Type: Expense, Amount: Money{Cents: 150000}, Description: "Aluguel", Category: "Moradia", Date: day(2024, 3, 10)},
		{ID: "3", Type: Expense, Amount: Money{Cents: 40000}, Description: "Supermercado", Category: "Alimentação", Date: day(2024, 3, 12), Paid: true},
		{ID: "4", Type: Expense, Amount: Money{Cents: 1000}, Description: "Pão", Category: "Alimentação", Date: day(2024, 4, 1), Paid: true},
	}
}

func ids(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func TestGroupByMonthPartitionsInput(t *testing.T) {
	txs := sample()
	groups := GroupByMonth(txs)

	if len(groups) != 3 {
		t.Fatalf("expected 3 months, got %d", len(groups))
	}
	seen := map[string]int{}
	for key, month := range groups {
		for _, tx := range month {
			if MonthKeyOf(tx.Date) != key {
				t.Fatalf("transaction %s filed under %s", tx.ID, key)
			}
			seen[tx.ID]++
		}
	}
	for _, tx := range txs {
		if seen[tx.ID] != 1 {
			t.Fatalf("transaction %s appears %d times", tx.ID, seen[tx.ID])
		}
	}
	if len(seen) != len(txs) {
		t.Fatalf("union has %d transactions, input has %d", len(seen), len(txs))
	}

	// Relative input order is kept inside a group.
	march := groups[MonthKey{Year: 2024, Month: time.March}]
	if got := ids(march); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("march order = %v", got)
	}
	april := groups[MonthKey{Year: 2024, Month: time.April}]
	if got := ids(april); !reflect.DeepEqual(got, []string{"6", "4"}) {
		t.Fatalf("april order = %v", got)
	}
}

func TestGroupByMonthUsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	// 2024-04-01 01:00 UTC is still March 31st in BRT.
	tx := Transaction{ID: "x", Type: Expense, Date: time.Date(2024, 3, 31, 22, 0, 0, 0, loc)}
	groups := GroupByMonth([]Transaction{tx})
	if _, ok := groups[MonthKey{Year: 2024, Month: time.March}]; !ok {
		t.Fatalf("expected March group, got %v", groups)
	}
}

func TestGroupByMonthEmpty(t *testing.T) {
	if groups := GroupByMonth(nil); len(groups) != 0 {
		t.Fatalf("expected empty grouping, got %v", groups)
	}
	if keys := SortedMonthKeys(nil); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestSortedMonthKeysDescending(t *testing.T) {
	keys := SortedMonthKeys(GroupByMonth(sample()))
	want := []string{"2024-04", "2024-03", "2023-12"}
	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.String()
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	// Strictly descending for random groupings too.
	r := rand.New(rand.NewSource(7))
	var txs []Transaction
	for i := 0; i < 200; i++ {
		txs = append(txs, Transaction{Date: day(2000+r.Intn(30), time.Month(1+r.Intn(12)), 1)})
	}
	keys = SortedMonthKeys(GroupByMonth(txs))
	for i := 1; i < len(keys); i++ {
		if !keys[i].Before(keys[i-1]) {
			t.Fatalf("keys not strictly descending at %d: %v then %v", i, keys[i-1], keys[i])
		}
	}
}

func TestMonthTotal(t *testing.T) {
	march := GroupByMonth(sample())[MonthKey{Year: 2024, Month: time.March}]
	if got := MonthTotal(march).Cents; got != 310000 {
		t.Fatalf("march total = %d, want 310000", got)
	}
	if got := MonthTotal(nil).Cents; got != 0 {
		t.Fatalf("empty total = %d", got)
	}
	onlyExpense := []Transaction{{Type: Expense, Amount: Money{Cents: 700}}}
	if got := MonthTotal(onlyExpense).Cents; got != -700 {
		t.Fatalf("expense-only total = %d, want -700", got)
	}
}

func TestMonthTotalOrderInvariant(t *testing.T) {
	txs := sample()
	want := MonthTotal(txs)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := MonthTotal(shuffled); got != want {
			t.Fatalf("shuffle %d: total %d, want %d", i, got.Cents, want.Cents)
		}
	}
}

func TestFilterByPaidVisibility(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Paid: true},
		{ID: "b", Paid: false},
		{ID: "c", Paid: true},
		{ID: "d", Paid: false},
	}
	if got := ids(FilterByPaidVisibility(txs, true)); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("showPaid=true: %v", got)
	}
	if got := ids(FilterByPaidVisibility(txs, false)); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("showPaid=false: %v", got)
	}

	two := []Transaction{{ID: "paid", Paid: true}, {ID: "unpaid"}}
	if got := ids(FilterByPaidVisibility(two, false)); !reflect.DeepEqual(got, []string{"unpaid"}) {
		t.Fatalf("expected only the unpaid element, got %v", got)
	}
	if got := FilterByPaidVisibility(nil, false); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestBuildMonthViews(t *testing.T) {
	views := BuildMonthViews(sample(), false)
	// December 2023 only has a paid income and is hidden.
	if len(views) != 2 {
		t.Fatalf("expected 2 visible months, got %d", len(views))
	}
	if views[0].Key.String() != "2024-04" || views[1].Key.String() != "2024-03" {
		t.Fatalf("unexpected order: %v, %v", views[0].Key, views[1].Key)
	}
	march := views[1]
	if march.Total.Cents != 310000 {
		t.Fatalf("month total must include paid transactions, got %d", march.Total.Cents)
	}
	if got := ids(march.Visible); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("march visible = %v", got)
	}
	if march.Count != 3 {
		t.Fatalf("march count = %d", march.Count)
	}

	all := BuildMonthViews(sample(), true)
	if len(all) != 3 {
		t.Fatalf("showPaid=true should keep every month, got %d", len(all))
	}
}

func TestCategoryBreakdown(t *testing.T) {
	got := CategoryBreakdown(sample(), Expense)
	want := []CategoryAmount{
		{Name: "Moradia", Amount: Money{Cents: 150000}},
		{Name: "Alimentação", Amount: Money{Cents: 41000}},
		{Name: "Lazer", Amount: Money{Cents: 2000}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("breakdown = %+v", got)
	}
	if got := CategoryBreakdown(nil, Income); len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %v", got)
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories(Expense)
	if len(cats) == 0 || cats[0] != "Moradia" {
		t.Fatalf("unexpected expense categories: %v", cats)
	}
	cats[0] = "changed"
	if DefaultCategories(Expense)[0] != "Moradia" {
		t.Fatalf("DefaultCategories must return a copy")
	}
	if len(DefaultCategories("other")) != 0 {
		t.Fatalf("unknown type should have no suggestions")
	}
}
