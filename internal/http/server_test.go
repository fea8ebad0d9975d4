package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"finwise/internal/ledger"
	applog "finwise/internal/log"
	"finwise/internal/services"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *services.TransactionService) {
	t.Helper()
	store, err := ledger.New(ledger.DemoSeed())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	svc := services.NewTransactionService(store, nil, nil)
	opts := Options{
		Addr:     ":0",
		Service:  svc,
		Logger:   applog.New(applog.Config{Output: io.Discard}),
		CacheTTL: time.Minute,
		Now:      func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := NewServer(opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
}

func postForm(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return do(t, srv, req)
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(t, srv, req)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestIndexRendersDashboard(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Dashboard Financeiro",
		"Saldo Total",
		"R$ 3100.00",
		"R$ 5000.00",
		"R$ 1900.00",
		"62%",
		"março de 2024",
		"Aluguel",
		"Mostrar Pagas",
		`value="2024-03-15"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	// Paid transactions are hidden by default.
	if strings.Contains(body, "Supermercado") {
		t.Errorf("paid transaction rendered with show_paid off")
	}

	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers not applied")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("missing request id header")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if rr := get(t, srv, "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := get(t, srv, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if decode[map[string]any](t, rr)["status"] != "ok" {
		t.Fatalf("healthz body=%s", rr.Body.String())
	}

	rr = get(t, srv, "/readyz")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestReadyReportsFailingCheck(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.ReadinessChecks = map[string]ReadinessCheck{
			"sqlite": func(context.Context) error { return errors.New("database is locked") },
		}
	})

	rr := get(t, srv, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	checks := body["checks"].(map[string]any)
	if !strings.Contains(checks["sqlite"].(string), "database is locked") {
		t.Fatalf("checks=%v", checks)
	}
}

func TestMissingTemplates(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.TemplatesFS = fstest.MapFS{}
	})

	if rr := get(t, srv, "/"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("index status=%d, want 500", rr.Code)
	}
	if rr := get(t, srv, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
	// The JSON API does not depend on templates.
	if rr := get(t, srv, "/api/transactions"); rr.Code != http.StatusOK {
		t.Fatalf("api status=%d", rr.Code)
	}
}

func TestCreateTransactionForm(t *testing.T) {
	srv, svc := newTestServer(t, nil)

	rr := postForm(t, srv, "/transactions", "type=expense&amount=89,90&description=Internet&category=Moradia&date=2024-03-14")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `class="success"`) || !strings.Contains(rr.Body.String(), "- R$ 89.90") {
		t.Fatalf("body=%s", rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{"transaction:created", "summary:refresh", "months:refresh", "form:reset"} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}

	list := svc.List()
	if len(list) != 4 || list[0].Description != "Internet" || list[0].Amount.Cents != 8990 || list[0].Paid {
		t.Fatalf("ledger head = %+v (len %d)", list[0], len(list))
	}
}

func TestCreateTransactionJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := postJSON(t, srv, "/transactions", `{"type":"income","amount":250,"description":"Freela","category":"Freelance","date":"2024-03-20"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[transactionJSON](t, rr)
	if got.ID == "" || got.Type != "income" || got.AmountCents != 25000 || got.Amount != "250.00" || got.Date != "2024-03-20" || got.Paid {
		t.Fatalf("created = %+v", got)
	}

	list := decode[[]transactionJSON](t, get(t, srv, "/api/transactions"))
	if len(list) != 4 || list[0].ID != got.ID {
		t.Fatalf("new transaction must be first: %+v", list)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, svc := newTestServer(t, nil)

	rr := postForm(t, srv, "/transactions", "type=expense&amount=-10&description=x&category=y")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("form status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `class="error"`) {
		t.Fatalf("form body=%s", rr.Body.String())
	}

	rr = postJSON(t, srv, "/transactions", `{"type":"expense","amount":"10","description":"","category":"y"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("json status=%d, want 422", rr.Code)
	}
	if e := decode[errorJSON](t, rr); e.Field != "description" {
		t.Fatalf("error = %+v", e)
	}

	rr = postJSON(t, srv, "/transactions", `{"type":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed status=%d, want 400", rr.Code)
	}

	if n := len(svc.List()); n != 3 {
		t.Fatalf("rejected requests changed the ledger: %d transactions", n)
	}
}

func TestTogglePaid(t *testing.T) {
	srv, svc := newTestServer(t, nil)

	rr := postForm(t, srv, "/transactions/2/toggle-paid", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[transactionJSON](t, rr); got.ID != "2" || !got.Paid {
		t.Fatalf("toggled = %+v", got)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "transaction:paid-toggled") {
		t.Fatalf("HX-Trigger = %s", rr.Header().Get("HX-Trigger"))
	}

	postForm(t, srv, "/transactions/2/toggle-paid", "")
	if tx, _ := svc.Get("2"); tx.Paid {
		t.Fatalf("second toggle must restore the flag")
	}

	if rr := postForm(t, srv, "/transactions/missing/toggle-paid", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d, want 404", rr.Code)
	}
	if rr := get(t, srv, "/transactions/2/toggle-paid"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET toggle status=%d, want 405", rr.Code)
	}
}

func TestAPISummary(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	got := decode[summaryJSON](t, get(t, srv, "/api/summary?ref=2024-03-20"))
	want := summaryJSON{
		Month:              "2024-03",
		TotalIncome:        "5000.00",
		TotalIncomeCents:   500000,
		TotalExpenses:      "1900.00",
		TotalExpensesCents: 190000,
		Balance:            "3100.00",
		BalanceCents:       310000,
		SavingsPercentage:  62,
		ExpensesByCategory: []categoryJSON{
			{Category: "Moradia", Amount: "1500.00", AmountCents: 150000},
			{Category: "Alimentação", Amount: "400.00", AmountCents: 40000},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("summary = %+v, want %+v", got, want)
	}

	empty := decode[summaryJSON](t, get(t, srv, "/api/summary?ref=2024-04-01"))
	if empty.TotalIncomeCents != 0 || empty.TotalExpensesCents != 0 || empty.SavingsPercentage != 0 {
		t.Fatalf("April summary = %+v", empty)
	}

	// Without ref the server clock decides the month.
	if got := decode[summaryJSON](t, get(t, srv, "/api/summary")); got.Month != "2024-03" {
		t.Fatalf("default month = %s", got.Month)
	}

	if rr := get(t, srv, "/api/summary?ref=march"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad ref status=%d", rr.Code)
	}
}

func TestSummaryFollowsMutations(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	before := decode[summaryJSON](t, get(t, srv, "/api/summary"))
	postJSON(t, srv, "/transactions", `{"type":"income","amount":"1000","description":"Bônus","category":"Salário","date":"2024-03-20"}`)
	after := decode[summaryJSON](t, get(t, srv, "/api/summary"))

	if after.TotalIncomeCents != before.TotalIncomeCents+100000 {
		t.Fatalf("income before=%d after=%d", before.TotalIncomeCents, after.TotalIncomeCents)
	}
	if after.SavingsPercentage != 68 {
		t.Fatalf("savings = %d, want 68", after.SavingsPercentage)
	}
}

func TestAPIMonths(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	hidden := decode[[]monthJSON](t, get(t, srv, "/api/months"))
	if len(hidden) != 1 || hidden[0].Month != "2024-03" || hidden[0].Label != "março de 2024" {
		t.Fatalf("months = %+v", hidden)
	}
	m := hidden[0]
	if m.Total != "3100.00" || m.Count != 3 || len(m.Transactions) != 1 || m.Transactions[0].ID != "2" {
		t.Fatalf("month = %+v", m)
	}

	all := decode[[]monthJSON](t, get(t, srv, "/api/months?show_paid=true"))
	if len(all) != 1 || len(all[0].Transactions) != 3 {
		t.Fatalf("show_paid months = %+v", all)
	}

	postJSON(t, srv, "/transactions", `{"type":"expense","amount":"30","description":"Cinema","category":"Lazer","date":"2024-02-10"}`)
	all = decode[[]monthJSON](t, get(t, srv, "/api/months?show_paid=true"))
	if len(all) != 2 || all[0].Month != "2024-03" || all[1].Month != "2024-02" {
		t.Fatalf("months must be most recent first: %+v", all)
	}

	if rr := get(t, srv, "/api/months?show_paid=maybe"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad show_paid status=%d", rr.Code)
	}
}

func TestAPICategories(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	both := decode[map[string][]string](t, get(t, srv, "/api/categories"))
	if len(both["income"]) == 0 || len(both["expense"]) == 0 {
		t.Fatalf("categories = %v", both)
	}

	expense := decode[[]string](t, get(t, srv, "/api/categories?type=expense"))
	if expense[0] != "Moradia" {
		t.Fatalf("expense categories = %v", expense)
	}

	if rr := get(t, srv, "/api/categories?type=transfer"); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown type status=%d", rr.Code)
	}
}

func TestPartials(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rr := get(t, srv, "/ui/summary")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `id="summary"`) || !strings.Contains(rr.Body.String(), "R$ 3100.00") {
		t.Fatalf("summary partial status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = get(t, srv, "/ui/months?show_paid=true")
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "Ocultar Pagas") || !strings.Contains(body, "Supermercado") {
		t.Fatalf("months partial status=%d body=%s", rr.Code, body)
	}
	if !strings.Contains(body, "/transactions/3/toggle-paid") {
		t.Fatalf("months partial missing toggle button")
	}

	if rr := get(t, srv, "/ui/months?show_paid=x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad flag status=%d", rr.Code)
	}
}

func TestMonthsPartialKeepsExpandedMonths(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	postJSON(t, srv, "/transactions", `{"type":"expense","amount":"30","description":"Cinema","category":"Lazer","date":"2024-02-10"}`)

	tests := []struct {
		name     string
		query    string
		wantOpen map[string]bool
	}{
		{"current month by default", "", map[string]bool{"2024-03": true, "2024-02": false}},
		{"keeps the open months", "&expanded=2024-02", map[string]bool{"2024-03": false, "2024-02": true}},
		{"several months", "&expanded=2024-02,2024-03", map[string]bool{"2024-03": true, "2024-02": true}},
		{"everything collapsed", "&expanded=", map[string]bool{"2024-03": false, "2024-02": false}},
		{"malformed keys ignored", "&expanded=feb,2024-02", map[string]bool{"2024-03": false, "2024-02": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, srv, "/ui/months?show_paid=true"+tt.query)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			body := rr.Body.String()
			for month, want := range tt.wantOpen {
				if !strings.Contains(body, `data-month="`+month+`"`) {
					t.Fatalf("month %s not rendered", month)
				}
				if got := strings.Contains(body, `open data-month="`+month+`"`); got != want {
					t.Fatalf("month %s open = %v, want %v", month, got, want)
				}
			}
		})
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rr := get(t, srv, "/static/app.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("static assets should be cacheable")
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		if rr := postForm(t, srv, "/transactions/1/toggle-paid", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := postForm(t, srv, "/transactions/1/toggle-paid", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}

	// Reads are never limited.
	for i := 0; i < 5; i++ {
		if rr := get(t, srv, "/api/summary"); rr.Code != http.StatusOK {
			t.Fatalf("read status=%d", rr.Code)
		}
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	get(t, srv, "/api/summary")
	get(t, srv, "/api/summary")
	postJSON(t, srv, "/transactions", `{"type":"expense","amount":"-1","description":"x","category":"y"}`)

	rr := get(t, srv, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE http_requests_total counter",
		"transactions 3\n",
		"validation_errors_total 1\n",
		`cache_hits_total{cache="summary"} 1`,
		`cache_misses_total{cache="summary"} 1`,
		"uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}
