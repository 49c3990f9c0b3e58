// Package handler implements the JSON HTTP endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/websocket"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var textPolicy = bluemonday.StrictPolicy()

// cleanText trims s and strips any markup. Entities escaped by the policy
// are decoded again so "Pots & pans" survives unchanged.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseIDParam reads a positive integer path value. On failure it writes a
// 422 naming the parameter and returns false.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		problem.Validation(w, problem.FieldError{Field: "path." + name, Message: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// parseIDQuery reads an optional positive integer query parameter.
func parseIDQuery(r *http.Request, name string) (*int64, *problem.FieldError) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, &problem.FieldError{Field: "query." + name, Message: "must be a positive integer"}
	}
	return &id, nil
}

// decodeJSON decodes the request body into dst, writing a 422 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			problem.Validation(w, problem.FieldError{Field: "body." + typeErr.Field, Message: "invalid type"})
			return false
		}
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		problem.Validation(w, problem.FieldError{Field: "body", Message: msg})
		return false
	}
	return true
}

func serverError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	id := problem.Write(w, http.StatusInternalServerError, "Internal server error")
	logger.Error(msg, "error", err, "correlation_id", id)
}

func broadcast(hub *websocket.Hub, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(msg)
	}
}
