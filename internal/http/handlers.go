package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"finwise/internal/core"
	applog "finwise/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports templates and every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	_, version := s.svc.Snapshot()
	checks["ledger"] = map[string]interface{}{
		"version": version,
		"status":  "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes the counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	summaryHits, summaryMisses := s.summaryMemo.Stats()
	monthsHits, monthsMisses := s.monthsMemo.Stats()
	txs, version := s.svc.Snapshot()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "# HELP http_request_duration_avg_seconds Mean request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_seconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_seconds %.6f\n\n", traceMetrics.AverageResponseTime.Seconds())

	writeMetric(w, "transactions", "gauge", "Transactions currently in the ledger", int64(len(txs)))
	writeMetric(w, "ledger_version", "gauge", "Mutation counter of the ledger", int64(version))
	writeMetric(w, "transactions_added_total", "counter", "Transactions added through HTTP", s.appMetrics.transactionsAdded.Load())
	writeMetric(w, "paid_toggles_total", "counter", "Paid flag toggles through HTTP", s.appMetrics.paidToggles.Load())
	writeMetric(w, "validation_errors_total", "counter", "Rejected add requests", s.appMetrics.validationErrors.Load())

	fmt.Fprintf(w, "# HELP cache_hits_total Aggregation cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{cache=\"summary\"} %d\n", summaryHits)
	fmt.Fprintf(w, "cache_hits_total{cache=\"months\"} %d\n\n", monthsHits)
	fmt.Fprintf(w, "# HELP cache_misses_total Aggregation cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{cache=\"summary\"} %d\n", summaryMisses)
	fmt.Fprintf(w, "cache_misses_total{cache=\"months\"} %d\n\n", monthsMisses)
	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{cache=\"summary\"} %d\n", s.summaryMemo.Size())
	fmt.Fprintf(w, "cache_entries{cache=\"months\"} %d\n\n", s.monthsMemo.Size())

	writeMetric(w, "rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "invalid_forwarded_headers_total", "counter", "Forwarding headers without a valid IP", s.clientIP.InvalidForwardedHeaders())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := s.now()
	data := indexView{
		Summary:           newSummaryView(s.summaryAt(now)),
		Months:            newMonthsView(s.monthViews(false), false, onlyMonth(core.MonthKeyOf(now))),
		Today:             now.Format(dateLayout),
		IncomeCategories:  core.DefaultCategories(core.Income),
		ExpenseCategories: core.DefaultCategories(core.Expense),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary", newSummaryView(s.summaryAt(s.now())))
}

func (s *Server) handleMonthsPartial(w http.ResponseWriter, r *http.Request) {
	showPaid, err := parseShowPaid(r.URL.Query().Get("show_paid"))
	if err != nil {
		BadRequestError("Parâmetro show_paid inválido").Write(w)
		return
	}
	// The page sends the months it has open so a refresh keeps them open.
	expanded := onlyMonth(core.MonthKeyOf(s.now()))
	if q := r.URL.Query(); q.Has("expanded") {
		expanded = parseExpanded(q.Get("expanded"))
	}
	s.render(w, r, "months", newMonthsView(s.monthViews(showPaid), showPaid, expanded))
}

// render executes a template into w. Partials are rendered into a buffer
// first so a failure never leaves half a fragment on the page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if s.templates == nil {
		InternalServerError("Erro ao carregar a página").Write(w)
		return
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Erro ao renderizar a página").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// handleCreateTransaction adds a transaction from a form or JSON body.
// Validation failures answer 422 and leave the ledger untouched.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		if isBodyTooLarge(err) {
			s.writeCreateError(w, r, parser, http.StatusRequestEntityTooLarge, "Requisição muito grande", "")
			return
		}
		logger.WarnContext(ctx, "Invalid request body", applog.FieldError, err)
		s.writeCreateError(w, r, parser, http.StatusBadRequest, "Formato de requisição inválido", "")
		return
	}

	in, err := parseNewTransaction(parser, s.now())
	if err != nil {
		s.rejectInvalid(w, r, parser, err)
		return
	}

	t, err := s.svc.AddTransaction(ctx, in)
	if errors.Is(err, core.ErrValidation) {
		s.rejectInvalid(w, r, parser, err)
		return
	}
	if err != nil {
		s.events.LogError(ctx, "Add transaction failed", err, applog.ComponentTransaction, applog.OpCreate, nil)
		s.writeCreateError(w, r, parser, http.StatusInternalServerError, "Erro ao salvar a transação", "")
		return
	}

	s.appMetrics.transactionsAdded.Add(1)
	s.events.LogTransactionAdded(ctx, t.ID, t.Type.String(), t.Amount.Cents, t.Category)
	s.writeCreated(w, r, parser, t)
}

func (s *Server) rejectInvalid(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, err error) {
	field := ""
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	s.appMetrics.validationErrors.Add(1)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction rejected",
		"field", field,
		applog.FieldOperation, applog.OpValidate)

	msg := err.Error()
	if verr != nil {
		msg = verr.Error()
	}
	s.writeCreateError(w, r, p, http.StatusUnprocessableEntity, msg, field)
}

func (s *Server) writeCreated(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, t core.Transaction) {
	if p.IsJSON() || wantsJSON(r) {
		w.Header().Set("Location", "/api/transactions")
		writeJSON(w, http.StatusCreated, toTransactionJSON(t))
		return
	}
	NewHTMXResponse().
		TriggerTransactionCreated(t.ID, core.MonthKeyOf(t.Date)).
		TriggerFormReset().
		TriggerDashboardRefresh().
		TriggerSuccessNotification("Transação adicionada").
		BodyHTML(`<div class="success">Transação registrada: ` +
			template.HTMLEscapeString(t.Description) + ` (` +
			template.HTMLEscapeString(formatSignedAmount(t)) + `)</div>`).
		Write(w)
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, status int, msg, field string) {
	if p.IsJSON() || wantsJSON(r) {
		writeJSON(w, status, errorJSON{Error: msg, Field: field})
		return
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

// handleTogglePaid flips the paid flag of {id}. The body is the updated
// transaction as JSON; htmx callers refresh through the triggers instead.
func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	t, err := s.svc.TogglePaid(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		applog.FromContext(ctx).InfoContext(ctx, "Toggle of unknown transaction",
			applog.FieldTransactionID, id)
		writeJSON(w, http.StatusNotFound, errorJSON{Error: "transaction not found"})
		return
	}
	if err != nil {
		s.events.LogError(ctx, "Toggle paid failed", err, applog.ComponentTransaction, applog.OpTogglePaid, nil)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "toggle failed"})
		return
	}

	s.appMetrics.paidToggles.Add(1)
	s.events.LogPaidToggled(ctx, t.ID, t.Paid)

	NewHTMXResponse().
		TriggerPaidToggled(t.ID, t.Paid).
		TriggerDashboardRefresh().
		BodyJSON(toTransactionJSON(t)).
		Write(w)
}
