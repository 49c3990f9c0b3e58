package model

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestStatusText(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusDone, StatusSkipped} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var got Status
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if got != s {
			t.Errorf("round trip = %v, want %v", got, s)
		}
	}
}

func TestParseStatusUnknown(t *testing.T) {
	if _, err := ParseStatus("completed"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := Status(9).MarshalText(); err == nil {
		t.Error("expected error marshalling out-of-range status")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !StatusDone.Terminal() || !StatusSkipped.Terminal() {
		t.Error("done and skipped should be terminal")
	}
}

func TestAssignmentJSON(t *testing.T) {
	due := civil.Date{Year: 2026, Month: time.March, Day: 4}
	a := Assignment{ID: 1, ChoreID: 2, GroupID: 3, AssignedToUserID: 4, AssignedByUserID: 5, DueDate: &due}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["status"] != "pending" {
		t.Errorf("status = %v, want pending", raw["status"])
	}
	if raw["due_date"] != "2026-03-04" {
		t.Errorf("due_date = %v, want 2026-03-04", raw["due_date"])
	}
	if raw["completed_at"] != nil {
		t.Errorf("completed_at = %v, want null", raw["completed_at"])
	}
}

func TestResolve(t *testing.T) {
	a := Assignment{ID: 1}
	at := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)

	if err := a.Resolve(StatusDone, at); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.Status != StatusDone {
		t.Errorf("status = %v, want done", a.Status)
	}
	if a.CompletedAt == nil || !a.CompletedAt.Equal(at) {
		t.Errorf("completed_at = %v, want %v", a.CompletedAt, at)
	}

	later := at.Add(time.Hour)
	if err := a.Resolve(StatusSkipped, later); err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if a.Status != StatusSkipped || !a.CompletedAt.Equal(later) {
		t.Errorf("re-resolve = %v at %v, want skipped at %v", a.Status, a.CompletedAt, later)
	}
}

func TestResolvePendingRejected(t *testing.T) {
	a := Assignment{ID: 1}
	if err := a.Resolve(StatusPending, time.Now()); err == nil {
		t.Error("expected error resolving to pending")
	}
	if a.CompletedAt != nil {
		t.Error("completed_at should stay nil")
	}
}

func TestIsOverdue(t *testing.T) {
	today := civil.Date{Year: 2026, Month: time.February, Day: 5}
	yesterday := today.AddDays(-1)
	tomorrow := today.AddDays(1)

	tests := []struct {
		name   string
		status Status
		due    *civil.Date
		want   bool
	}{
		{"pending past due", StatusPending, &yesterday, true},
		{"pending due today", StatusPending, &today, false},
		{"pending future", StatusPending, &tomorrow, false},
		{"pending no due date", StatusPending, nil, false},
		{"done past due", StatusDone, &yesterday, false},
		{"skipped past due", StatusSkipped, &yesterday, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assignment{Status: tt.status, DueDate: tt.due}
			if got := a.IsOverdue(today); got != tt.want {
				t.Errorf("IsOverdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	g, u := int64(1), int64(2)
	a := Assignment{GroupID: 1, AssignedToUserID: 2}
	b := Assignment{GroupID: 1, AssignedToUserID: 3}

	if !(AssignmentFilter{}).Match(a) {
		t.Error("empty filter should match")
	}
	f := AssignmentFilter{GroupID: &g, UserID: &u}
	if !f.Match(a) {
		t.Error("expected a to match group+user filter")
	}
	if f.Match(b) {
		t.Error("expected b not to match user filter")
	}
}
