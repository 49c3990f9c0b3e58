// Package tracker holds the chore tracking core: the entity store,
// membership index, assignment lifecycle and assignment queries.
//
// Store is implemented in memory by Tracker and durably by
// internal/store. Both satisfy the same contract, checked by
// internal/tracker/trackertest.
package tracker

import (
	"errors"
	"time"

	"github.com/dukerupert/choretracker/internal/model"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidMembership is returned when an assignee is not a member
	// of the assignment's group.
	ErrInvalidMembership = errors.New("assignee is not a member of the group")
)

// Store is the full set of core operations.
//
// Get methods return (nil, nil) for unknown ids. Mutations that reference
// a missing entity return an error wrapping ErrNotFound.
type Store interface {
	CreateUser(name string) (*model.User, error)
	GetUser(id int64) (*model.User, error)
	ListUsers() ([]model.User, error)

	CreateGroup(name string) (*model.Group, error)
	GetGroup(id int64) (*model.Group, error)
	ListGroups() ([]model.Group, error)

	CreateChore(title string, description *string, createdByUserID *int64) (*model.Chore, error)
	GetChore(id int64) (*model.Chore, error)
	ListChores() ([]model.Chore, error)

	AddMember(userID, groupID int64) error
	RemoveMember(userID, groupID int64) error
	IsMember(userID, groupID int64) (bool, error)

	CreateAssignment(in model.NewAssignment) (*model.Assignment, error)
	GetAssignment(id int64) (*model.Assignment, error)
	MarkDone(id int64) (*model.Assignment, error)
	MarkSkipped(id int64) (*model.Assignment, error)
	ListAssignments(f model.AssignmentFilter) ([]model.Assignment, error)
}

// Clock returns the current time.
type Clock func() time.Time

// UTCClock is the default clock.
func UTCClock() time.Time {
	return time.Now().UTC()
}
