package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/websocket"
)

type GroupHandler struct {
	store  tracker.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewGroupHandler(store tracker.Store, hub *websocket.Hub, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{store: store, hub: hub, logger: logger}
}

type groupRequest struct {
	Name string `json:"name"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := cleanText(req.Name)
	if name == "" {
		problem.Validation(w, problem.FieldError{Field: "body.name", Message: "field required"})
		return
	}

	group, err := h.store.CreateGroup(name)
	if err != nil {
		serverError(w, h.logger, "create group", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("group", "created", group.ID, nil))
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGroups()
	if err != nil {
		serverError(w, h.logger, "list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	group, err := h.store.GetGroup(id)
	if err != nil {
		serverError(w, h.logger, "get group", err)
		return
	}
	if group == nil {
		problem.Write(w, http.StatusNotFound, "Group not found")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// AddMember handles POST /groups/{group_id}/users/{user_id}
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "added", h.store.AddMember)
}

// RemoveMember handles DELETE /groups/{group_id}/users/{user_id}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "removed", h.store.RemoveMember)
}

func (h *GroupHandler) membership(w http.ResponseWriter, r *http.Request, action string, apply func(userID, groupID int64) error) {
	groupID, ok := parseIDParam(w, r, "group_id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(w, r, "user_id")
	if !ok {
		return
	}

	err := apply(userID, groupID)
	if errors.Is(err, tracker.ErrNotFound) {
		problem.Write(w, http.StatusNotFound, "Group or User not found")
		return
	}
	if err != nil {
		serverError(w, h.logger, "update membership", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("group_member", action, groupID, map[string]any{
		"user_id": userID,
	}).InGroup(groupID))
	w.WriteHeader(http.StatusNoContent)
}
