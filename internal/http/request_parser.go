package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"finwise/internal/core"
)

const (
	maxBodyBytes = 64 << 10
	// maxDescriptionLen caps descriptions typed into the form, in characters.
	maxDescriptionLen = 200
)

// RequestBodyParser reads a request body once and serves fields from it,
// whether it was sent as JSON (API clients) or form encoded (htmx).
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of r's body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like a JSON object and as
// form values otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitized value of key, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Number returns key as a float when the body was JSON and the value a
// JSON number.
func (p *RequestBodyParser) Number(key string) (float64, bool) {
	if p.jsonData == nil {
		return 0, false
	}
	f, ok := p.jsonData[key].(float64)
	return f, ok
}

// IsJSON reports whether the client sent, or meant to send, JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil || strings.HasPrefix(p.contentType, "application/json")
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseNewTransaction builds the add command from the parsed body. Every
// failure is a *core.ValidationError.
func parseNewTransaction(p *RequestBodyParser, now time.Time) (core.NewTransaction, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.NewTransaction{}, err
	}
	amount, err := parseAmountField(p)
	if err != nil {
		return core.NewTransaction{}, err
	}
	date, err := parseDate(p.Get("date"), now)
	if err != nil {
		return core.NewTransaction{}, err
	}
	description := p.Get("description")
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return core.NewTransaction{}, &core.ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("too long (max %d characters)", maxDescriptionLen),
		}
	}
	in := core.NewTransaction{
		Type:        typ,
		Amount:      amount,
		Description: description,
		Category:    p.Get("category"),
		Date:        date,
	}
	if err := in.Validate(); err != nil {
		return core.NewTransaction{}, err
	}
	return in, nil
}

// parseAmountField converts JSON numbers directly and decimal strings, from
// forms or JSON, through ParseAmount.
func parseAmountField(p *RequestBodyParser) (core.Money, error) {
	if f, ok := p.Number("amount"); ok {
		return core.MoneyFromFloat(f)
	}
	return core.ParseAmount(p.Get("amount"))
}

// isBodyTooLarge reports whether err came from the MaxBytesReader limit.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
