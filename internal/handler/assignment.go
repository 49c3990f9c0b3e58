package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/metrics"
	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/problem"
	"github.com/dukerupert/choretracker/internal/push"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/websocket"
)

type AssignmentHandler struct {
	store    tracker.Store
	hub      *websocket.Hub
	notifier *push.Notifier
	metrics  *metrics.Metrics
	clock    tracker.Clock
	logger   *slog.Logger
}

func NewAssignmentHandler(store tracker.Store, hub *websocket.Hub, notifier *push.Notifier, m *metrics.Metrics, clock tracker.Clock, logger *slog.Logger) *AssignmentHandler {
	if clock == nil {
		clock = tracker.UTCClock
	}
	return &AssignmentHandler{store: store, hub: hub, notifier: notifier, metrics: m, clock: clock, logger: logger}
}

type assignmentRequest struct {
	ChoreID          *int64      `json:"chore_id"`
	GroupID          *int64      `json:"group_id"`
	AssignedToUserID *int64      `json:"assigned_to_user_id"`
	AssignedByUserID *int64      `json:"assigned_by_user_id"`
	DueDate          *civil.Date `json:"due_date"`
}

// assignmentResponse adds the overdue flag, derived from the server clock
// at response time.
type assignmentResponse struct {
	model.Assignment
	Overdue bool `json:"overdue"`
}

func (h *AssignmentHandler) response(a model.Assignment) assignmentResponse {
	return assignmentResponse{Assignment: a, Overdue: a.IsOverdue(civil.DateOf(h.clock()))}
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs []problem.FieldError
	for _, f := range []struct {
		name string
		v    *int64
	}{
		{"chore_id", req.ChoreID},
		{"group_id", req.GroupID},
		{"assigned_to_user_id", req.AssignedToUserID},
	} {
		if f.v == nil {
			errs = append(errs, problem.FieldError{Field: "body." + f.name, Message: "field required"})
		}
	}
	if len(errs) > 0 {
		problem.Validation(w, errs...)
		return
	}

	in := model.NewAssignment{
		ChoreID:          *req.ChoreID,
		GroupID:          *req.GroupID,
		AssignedToUserID: *req.AssignedToUserID,
		AssignedByUserID: auth.UserID(r.Context()),
		DueDate:          req.DueDate,
	}
	if req.AssignedByUserID != nil && *req.AssignedByUserID != 0 {
		in.AssignedByUserID = *req.AssignedByUserID
	}

	a, err := h.store.CreateAssignment(in)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		h.metrics.AssignmentEvent(metrics.EventRejected)
		h.notFound(w, in)
		return
	case errors.Is(err, tracker.ErrInvalidMembership):
		h.metrics.AssignmentEvent(metrics.EventRejected)
		problem.Write(w, http.StatusBadRequest, "User to be assigned is not a member of the specified group")
		return
	case err != nil:
		serverError(w, h.logger, "create assignment", err)
		return
	}

	h.metrics.AssignmentEvent(metrics.EventCreated)
	broadcast(h.hub, websocket.NewMessage("assignment", "created", a.ID, map[string]any{
		"assigned_to_user_id": a.AssignedToUserID,
	}).InGroup(a.GroupID))

	if h.notifier.Enabled() {
		chore, err := h.store.GetChore(a.ChoreID)
		if err == nil && chore != nil {
			go h.notifier.AssignmentCreated(a, chore.Title)
		}
	}

	writeJSON(w, http.StatusCreated, h.response(*a))
}

// notFound reports which reference was missing. The assigner is named
// separately because it defaults to the caller.
func (h *AssignmentHandler) notFound(w http.ResponseWriter, in model.NewAssignment) {
	detail := "chore/group/user not found"
	if u, err := h.store.GetUser(in.AssignedByUserID); err == nil && u == nil {
		c, _ := h.store.GetChore(in.ChoreID)
		g, _ := h.store.GetGroup(in.GroupID)
		to, _ := h.store.GetUser(in.AssignedToUserID)
		if c != nil && g != nil && to != nil {
			detail = "Assigned-by user not found"
		}
	}
	problem.Write(w, http.StatusNotFound, detail)
}

// List handles GET /assignments/?group_id=&user_id=
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	var f model.AssignmentFilter
	var errs []problem.FieldError
	var fe *problem.FieldError
	if f.GroupID, fe = parseIDQuery(r, "group_id"); fe != nil {
		errs = append(errs, *fe)
	}
	if f.UserID, fe = parseIDQuery(r, "user_id"); fe != nil {
		errs = append(errs, *fe)
	}
	if len(errs) > 0 {
		problem.Validation(w, errs...)
		return
	}

	assignments, err := h.store.ListAssignments(f)
	if err != nil {
		serverError(w, h.logger, "list assignments", err)
		return
	}

	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, h.response(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.store.GetAssignment(id)
	if err != nil {
		serverError(w, h.logger, "get assignment", err)
		return
	}
	if a == nil {
		problem.Write(w, http.StatusNotFound, "Assignment not found")
		return
	}
	writeJSON(w, http.StatusOK, h.response(*a))
}

// Done handles POST /assignments/{id}/done
func (h *AssignmentHandler) Done(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.store.MarkDone, "done", metrics.EventDone)
}

// Skip handles POST /assignments/{id}/skip
func (h *AssignmentHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.store.MarkSkipped, "skipped", metrics.EventSkipped)
}

func (h *AssignmentHandler) resolve(w http.ResponseWriter, r *http.Request, mark func(int64) (*model.Assignment, error), action, event string) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	a, err := mark(id)
	if errors.Is(err, tracker.ErrNotFound) {
		problem.Write(w, http.StatusNotFound, "Assignment not found")
		return
	}
	if err != nil {
		serverError(w, h.logger, "mark assignment "+action, err)
		return
	}

	h.metrics.AssignmentEvent(event)
	broadcast(h.hub, websocket.NewMessage("assignment", action, a.ID, map[string]any{
		"assigned_to_user_id": a.AssignedToUserID,
	}).InGroup(a.GroupID))
	w.WriteHeader(http.StatusNoContent)
}
