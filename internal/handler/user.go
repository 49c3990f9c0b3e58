package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/tracker"
)

type UserHandler struct {
	store  tracker.Store
	logger *slog.Logger
}

func NewUserHandler(store tracker.Store, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		serverError(w, h.logger, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.write(w, auth.UserID(r.Context()))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	h.write(w, id)
}

func (h *UserHandler) write(w http.ResponseWriter, id int64) {
	user, err := h.store.GetUser(id)
	if err != nil {
		serverError(w, h.logger, "get user", err)
		return
	}
	if user == nil {
		problem.Write(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
