package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/websocket"
)

type ChoreHandler struct {
	store  tracker.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(store tracker.Store, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: store, hub: hub, logger: logger}
}

type choreRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	CreatedByUserID *int64  `json:"created_by_user_id"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	title := cleanText(req.Title)
	if title == "" {
		problem.Validation(w, problem.FieldError{Field: "body.title", Message: "field required"})
		return
	}

	var description *string
	if req.Description != nil {
		d := cleanText(*req.Description)
		description = &d
	}

	createdBy := auth.UserID(r.Context())
	if req.CreatedByUserID != nil && *req.CreatedByUserID != 0 {
		createdBy = *req.CreatedByUserID
	}
	creator, err := h.store.GetUser(createdBy)
	if err != nil {
		serverError(w, h.logger, "get creator", err)
		return
	}
	if creator == nil {
		problem.Write(w, http.StatusNotFound, "Creator user not found")
		return
	}

	chore, err := h.store.CreateChore(title, description, &createdBy)
	if errors.Is(err, tracker.ErrNotFound) {
		problem.Write(w, http.StatusNotFound, "Creator user not found")
		return
	}
	if err != nil {
		serverError(w, h.logger, "create chore", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("chore", "created", chore.ID, nil))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.store.ListChores()
	if err != nil {
		serverError(w, h.logger, "list chores", err)
		return
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	chore, err := h.store.GetChore(id)
	if err != nil {
		serverError(w, h.logger, "get chore", err)
		return
	}
	if chore == nil {
		problem.Write(w, http.StatusNotFound, "Chore not found")
		return
	}
	writeJSON(w, http.StatusOK, chore)
}
