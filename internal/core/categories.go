package core

var defaultCategories = map[TransactionType][]string{
	Expense: {"Moradia", "Alimentação", "Transporte", "Saúde", "Educação", "Lazer", "Outros"},
	Income:  {"Salário", "Freelance", "Investimentos", "Outros"},
}

// DefaultCategories returns the suggested category labels for typ. Category
// stays free text; these only feed the form.
func DefaultCategories(typ TransactionType) []string {
	return append([]string(nil), defaultCategories[typ]...)
}
