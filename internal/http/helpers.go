package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"finwise/internal/core"
)

const dateLayout = "2006-01-02"

var monthNamesPtBR = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// formatCurrency renders an amount in the dashboard's "R$ 1500.00" form.
func formatCurrency(m core.Money) string {
	return "R$ " + m.String()
}

// formatSignedAmount prefixes the unsigned amount with + for income and -
// for expenses, e.g. "- R$ 1500.00".
func formatSignedAmount(t core.Transaction) string {
	sign := "+"
	if t.Type == core.Expense {
		sign = "-"
	}
	return sign + " " + formatCurrency(t.Amount)
}

// monthLabel returns the pt-BR month name, e.g. "março de 2024".
func monthLabel(k core.MonthKey) string {
	if k.Month < time.January || k.Month > time.December {
		return k.String()
	}
	return monthNamesPtBR[k.Month-1] + " de " + strconv.Itoa(k.Year)
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// parseDate reads a YYYY-MM-DD value as midnight UTC. Empty means today.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// parseShowPaid reads the show_paid flag; absent means false.
func parseShowPaid(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("show_paid: %q is not a boolean", v)
	}
	return b, nil
}

func onlyMonth(k core.MonthKey) func(core.MonthKey) bool {
	return func(o core.MonthKey) bool { return o == k }
}

// parseExpanded reads a comma separated list of YYYY-MM keys. Malformed
// entries are skipped.
func parseExpanded(v string) func(core.MonthKey) bool {
	open := make(map[core.MonthKey]bool)
	for _, part := range strings.Split(v, ",") {
		if k, err := core.ParseMonthKey(strings.TrimSpace(part)); err == nil {
			open[k] = true
		}
	}
	return func(k core.MonthKey) bool { return open[k] }
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
