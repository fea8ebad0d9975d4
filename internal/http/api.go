package http

import (
	"net/http"
	"strings"
	"time"

	"finwise/internal/core"
)

type transactionJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Paid        bool   `json:"paid"`
}

type summaryJSON struct {
	Month              string `json:"month"`
	TotalIncome        string `json:"total_income"`
	TotalIncomeCents   int64  `json:"total_income_cents"`
	TotalExpenses      string `json:"total_expenses"`
	TotalExpensesCents int64  `json:"total_expenses_cents"`
	Balance            string `json:"balance"`
	BalanceCents       int64  `json:"balance_cents"`
	SavingsPercentage  int    `json:"savings_percentage"`

	ExpensesByCategory []categoryJSON `json:"expenses_by_category"`
}

type categoryJSON struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type monthJSON struct {
	Month        string            `json:"month"`
	Label        string            `json:"label"`
	Total        string            `json:"total"`
	TotalCents   int64             `json:"total_cents"`
	Count        int               `json:"count"`
	Transactions []transactionJSON `json:"transactions"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        t.Type.String(),
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date.Format(dateLayout),
		Paid:        t.Paid,
	}
}

func toSummaryJSON(s core.Summary) summaryJSON {
	byCategory := make([]categoryJSON, 0, len(s.ExpensesByCategory))
	for _, c := range s.ExpensesByCategory {
		byCategory = append(byCategory, categoryJSON{Category: c.Name, Amount: c.Amount.String(), AmountCents: c.Amount.Cents})
	}
	return summaryJSON{
		Month:              s.Month.String(),
		TotalIncome:        s.TotalIncome.String(),
		TotalIncomeCents:   s.TotalIncome.Cents,
		TotalExpenses:      s.TotalExpenses.String(),
		TotalExpensesCents: s.TotalExpenses.Cents,
		Balance:            s.Balance.String(),
		BalanceCents:       s.Balance.Cents,
		SavingsPercentage:  s.SavingsPercentage,
		ExpensesByCategory: byCategory,
	}
}

func toMonthsJSON(views []core.MonthView) []monthJSON {
	out := make([]monthJSON, 0, len(views))
	for _, v := range views {
		m := monthJSON{
			Month:        v.Key.String(),
			Label:        monthLabel(v.Key),
			Total:        v.Total.String(),
			TotalCents:   v.Total.Cents,
			Count:        v.Count,
			Transactions: make([]transactionJSON, 0, len(v.Visible)),
		}
		for _, t := range v.Visible {
			m.Transactions = append(m.Transactions, toTransactionJSON(t))
		}
		out = append(out, m)
	}
	return out
}

// wantsJSON is true for API clients: an Accept header asking for JSON on a
// request that htmx did not send.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("HX-Request") != "" {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// handleAPITransactions lists every transaction in store order.
func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.svc.List()
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAPISummary summarizes the month of ?ref=YYYY-MM-DD, today by default.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ref := s.now()
	if v := strings.TrimSpace(r.URL.Query().Get("ref")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "ref must be YYYY-MM-DD", Field: "ref"})
			return
		}
		ref = t
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(s.summaryAt(ref)))
}

func (s *Server) handleAPIMonths(w http.ResponseWriter, r *http.Request) {
	showPaid, err := parseShowPaid(r.URL.Query().Get("show_paid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error(), Field: "show_paid"})
		return
	}
	writeJSON(w, http.StatusOK, toMonthsJSON(s.monthViews(showPaid)))
}

// handleAPICategories returns the suggested categories of ?type=, or of
// both types when it is absent.
func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	v := strings.TrimSpace(r.URL.Query().Get("type"))
	if v == "" {
		writeJSON(w, http.StatusOK, map[string][]string{
			string(core.Income):  core.DefaultCategories(core.Income),
			string(core.Expense): core.DefaultCategories(core.Expense),
		})
		return
	}
	typ, err := core.ParseTransactionType(v)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error(), Field: "type"})
		return
	}
	writeJSON(w, http.StatusOK, core.DefaultCategories(typ))
}
