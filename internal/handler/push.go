package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/push"
)

type PushHandler struct {
	subs      push.SubscriptionStore
	publicKey string
	logger    *slog.Logger
}

// NewPushHandler returns a handler for Web Push subscriptions. An empty
// publicKey means push is not configured.
func NewPushHandler(subs push.SubscriptionStore, publicKey string, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, publicKey: publicKey, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// VAPIDKey handles GET /push/vapid-public-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		problem.Write(w, http.StatusNotFound, "Push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}

// Subscribe handles POST /push/subscriptions
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs []problem.FieldError
	for _, f := range []struct{ name, v string }{
		{"endpoint", req.Endpoint},
		{"p256dh", req.P256dh},
		{"auth", req.Auth},
	} {
		if strings.TrimSpace(f.v) == "" {
			errs = append(errs, problem.FieldError{Field: "body." + f.name, Message: "field required"})
		}
	}
	if len(errs) > 0 {
		problem.Validation(w, errs...)
		return
	}

	userID := auth.UserID(r.Context())
	sub, err := h.subs.SaveSubscription(userID, req.Endpoint, req.P256dh, req.Auth, cleanText(req.DeviceName))
	if err != nil {
		serverError(w, h.logger, "save push subscription", err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /push/subscriptions
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		problem.Validation(w, problem.FieldError{Field: "body.endpoint", Message: "field required"})
		return
	}

	userID := auth.UserID(r.Context())
	subs, err := h.subs.ListSubscriptions(userID)
	if err != nil {
		serverError(w, h.logger, "list push subscriptions", err)
		return
	}
	for _, s := range subs {
		if s.Endpoint == req.Endpoint {
			if err := h.subs.DeleteSubscription(s.ID, userID); err != nil {
				serverError(w, h.logger, "delete push subscription", err)
				return
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
