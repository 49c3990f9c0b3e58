package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.Middleware(mux)

	for _, path := range []string{"/users/1", "/users/2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "GET /users/{id}", "200")); got != 2 {
		t.Errorf("matched count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched count = %v, want 1", got)
	}
}

func TestAssignmentEvent(t *testing.T) {
	m := New()
	m.AssignmentEvent(EventCreated)
	m.AssignmentEvent(EventCreated)
	m.AssignmentEvent(EventDone)

	if got := testutil.ToFloat64(m.Assignments.WithLabelValues(EventCreated)); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Assignments.WithLabelValues(EventDone)); got != 1 {
		t.Errorf("done = %v, want 1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.WebsocketClients.Set(3)
	m.AssignmentEvent(EventSkipped)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"choretracker_websocket_clients 3",
		`choretracker_assignments_total{event="skipped"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
