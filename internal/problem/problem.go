// Package problem writes RFC 7807 problem+json error responses.
package problem

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const ContentType = "application/problem+json"

// Details is the error body. CorrelationID is unique per response so a
// client report can be matched to a log line.
type Details struct {
	Type          string       `json:"type"`
	Title         string       `json:"title"`
	Status        int          `json:"status"`
	Detail        string       `json:"detail"`
	CorrelationID string       `json:"correlation_id"`
	Errors        []FieldError `json:"errors,omitempty"`
}

// FieldError describes one invalid input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// Title derives the title for status, e.g. 404 becomes "NotFound".
func Title(status int) string {
	if status == http.StatusUnprocessableEntity {
		return "ValidationError"
	}
	t := strings.ReplaceAll(http.StatusText(status), " ", "")
	if t == "" {
		return "Error"
	}
	return strings.ReplaceAll(t, "-", "")
}

// New builds Details with a fresh correlation id.
func New(status int, detail string) Details {
	return Details{
		Type:          "about:blank",
		Title:         Title(status),
		Status:        status,
		Detail:        detail,
		CorrelationID: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// Write sends a problem response and returns its correlation id.
func Write(w http.ResponseWriter, status int, detail string) string {
	return WriteDetails(w, New(status, detail))
}

// Validation sends a 422 listing the offending fields.
func Validation(w http.ResponseWriter, errs ...FieldError) string {
	d := New(http.StatusUnprocessableEntity, "Validation error")
	d.Errors = errs
	return WriteDetails(w, d)
}

func WriteDetails(w http.ResponseWriter, d Details) string {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(d.Status)
	if err := json.NewEncoder(w).Encode(d); err != nil {
		slog.Error("encode problem", "error", err, "correlation_id", d.CorrelationID)
	}
	return d.CorrelationID
}
