package google

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"finwise/internal/core"
)

// Column layout: A id, B date, C type, D description, E category, F amount,
// G paid.
var header = []string{"ID", "Date", "Type", "Description", "Category", "Amount", "Paid"}

func headerRow() []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

func rowValues(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.Format("2006-01-02"),
		string(t.Type),
		t.Description,
		t.Category,
		t.Amount.String(),
		paidCell(t.Paid),
	}
}

func paidCell(paid bool) string {
	if paid {
		return "TRUE"
	}
	return "FALSE"
}

// indexRows maps ids in column A to 1-based row numbers. The header row and
// blank cells are skipped; the first occurrence of an id wins.
func indexRows(values [][]any) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || (i == 0 && strings.EqualFold(id, header[0])) {
			continue
		}
		if _, ok := index[id]; !ok {
			index[id] = i + 1
		}
	}
	return index
}

var rangeRowPattern = regexp.MustCompile(`![A-Z]+(\d+)(?::[A-Z]+\d+)?$`)

// rowNumberFromRange extracts the first row of an A1 range such as
// "Transactions!A5:G5".
func rowNumberFromRange(rng string) (int, bool) {
	m := rangeRowPattern.FindStringSubmatch(rng)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
