package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Status is the lifecycle state of an assignment.
type Status uint8

const (
	StatusPending Status = iota
	StatusDone
	StatusSkipped
)

var statusNames = [...]string{
	StatusPending: "pending",
	StatusDone:    "done",
	StatusSkipped: "skipped",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// Terminal reports whether s ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusSkipped
}

// ParseStatus converts the wire form of a status.
func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if name == v {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Assignment binds a chore to a group member.
type Assignment struct {
	ID               int64       `json:"id"`
	ChoreID          int64       `json:"chore_id"`
	GroupID          int64       `json:"group_id"`
	AssignedToUserID int64       `json:"assigned_to_user_id"`
	AssignedByUserID int64       `json:"assigned_by_user_id"`
	AssignedAt       time.Time   `json:"assigned_at"`
	DueDate          *civil.Date `json:"due_date"`
	Status           Status      `json:"status"`
	CompletedAt      *time.Time  `json:"completed_at"`
}

// Resolve moves the assignment into the terminal status s and stamps the
// completion time. Resolving an already terminal assignment re-stamps it.
func (a *Assignment) Resolve(s Status, at time.Time) error {
	if !s.Terminal() {
		return fmt.Errorf("resolve assignment %d: %s is not a terminal status", a.ID, s)
	}
	a.Status = s
	a.CompletedAt = &at
	return nil
}

// IsOverdue reports whether a pending assignment's due date is strictly
// before today.
func (a Assignment) IsOverdue(today civil.Date) bool {
	if a.Status != StatusPending || a.DueDate == nil {
		return false
	}
	return a.DueDate.Before(today)
}

// NewAssignment carries the inputs of an assignment creation.
type NewAssignment struct {
	ChoreID          int64
	GroupID          int64
	AssignedToUserID int64
	AssignedByUserID int64
	DueDate          *civil.Date
}

// AssignmentFilter narrows ListAssignments. Nil fields do not filter.
type AssignmentFilter struct {
	GroupID *int64
	UserID  *int64
}

// Match reports whether a satisfies every set filter.
func (f AssignmentFilter) Match(a Assignment) bool {
	if f.GroupID != nil && a.GroupID != *f.GroupID {
		return false
	}
	if f.UserID != nil && a.AssignedToUserID != *f.UserID {
		return false
	}
	return true
}
