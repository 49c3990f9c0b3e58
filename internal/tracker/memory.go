package tracker

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dukerupert/choretracker/internal/model"
)

var _ Store = (*Tracker)(nil)

type membership struct {
	userID  int64
	groupID int64
}

type userRecord struct {
	id   int64
	name string
}

type groupRecord struct {
	id   int64
	name string
}

// Tracker is an in-memory Store. A single RWMutex guards all state, so
// readers never see a half-applied mutation.
type Tracker struct {
	mu    sync.RWMutex
	clock Clock

	users       map[int64]userRecord
	groups      map[int64]groupRecord
	chores      map[int64]model.Chore
	assignments map[int64]model.Assignment
	members     map[membership]struct{}

	userOrder       []int64
	groupOrder      []int64
	choreOrder      []int64
	assignmentOrder []int64

	nextUserID       int64
	nextGroupID      int64
	nextChoreID      int64
	nextAssignmentID int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for lifecycle timestamps.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// New returns an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		clock:            UTCClock,
		users:            make(map[int64]userRecord),
		groups:           make(map[int64]groupRecord),
		chores:           make(map[int64]model.Chore),
		assignments:      make(map[int64]model.Assignment),
		members:          make(map[membership]struct{}),
		nextUserID:       1,
		nextGroupID:      1,
		nextChoreID:      1,
		nextAssignmentID: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// --- Users ---

func (t *Tracker) CreateUser(name string) (*model.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := userRecord{id: t.nextUserID, name: name}
	t.nextUserID++
	t.users[u.id] = u
	t.userOrder = append(t.userOrder, u.id)
	return t.userLocked(u), nil
}

func (t *Tracker) GetUser(id int64) (*model.User, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.users[id]
	if !ok {
		return nil, nil
	}
	return t.userLocked(u), nil
}

func (t *Tracker) ListUsers() ([]model.User, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]model.User, 0, len(t.userOrder))
	for _, id := range t.userOrder {
		users = append(users, *t.userLocked(t.users[id]))
	}
	return users, nil
}

func (t *Tracker) userLocked(u userRecord) *model.User {
	groupIDs := []int64{}
	for m := range t.members {
		if m.userID == u.id {
			groupIDs = append(groupIDs, m.groupID)
		}
	}
	slices.Sort(groupIDs)
	return &model.User{ID: u.id, Name: u.name, GroupIDs: groupIDs}
}

// --- Groups ---

func (t *Tracker) CreateGroup(name string) (*model.Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := groupRecord{id: t.nextGroupID, name: name}
	t.nextGroupID++
	t.groups[g.id] = g
	t.groupOrder = append(t.groupOrder, g.id)
	return t.groupLocked(g), nil
}

func (t *Tracker) GetGroup(id int64) (*model.Group, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	g, ok := t.groups[id]
	if !ok {
		return nil, nil
	}
	return t.groupLocked(g), nil
}

func (t *Tracker) ListGroups() ([]model.Group, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	groups := make([]model.Group, 0, len(t.groupOrder))
	for _, id := range t.groupOrder {
		groups = append(groups, *t.groupLocked(t.groups[id]))
	}
	return groups, nil
}

func (t *Tracker) groupLocked(g groupRecord) *model.Group {
	userIDs := []int64{}
	for m := range t.members {
		if m.groupID == g.id {
			userIDs = append(userIDs, m.userID)
		}
	}
	slices.Sort(userIDs)
	return &model.Group{ID: g.id, Name: g.name, UserIDs: userIDs}
}

// --- Chores ---

func (t *Tracker) CreateChore(title string, description *string, createdByUserID *int64) (*model.Chore, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if createdByUserID != nil {
		if _, ok := t.users[*createdByUserID]; !ok {
			return nil, fmt.Errorf("create chore: user %d: %w", *createdByUserID, ErrNotFound)
		}
	}

	c := model.Chore{
		ID:              t.nextChoreID,
		Title:           title,
		Description:     cloneString(description),
		CreatedByUserID: cloneInt64(createdByUserID),
	}
	t.nextChoreID++
	t.chores[c.ID] = c
	t.choreOrder = append(t.choreOrder, c.ID)
	return cloneChore(c), nil
}

func (t *Tracker) GetChore(id int64) (*model.Chore, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chores[id]
	if !ok {
		return nil, nil
	}
	return cloneChore(c), nil
}

func (t *Tracker) ListChores() ([]model.Chore, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	chores := make([]model.Chore, 0, len(t.choreOrder))
	for _, id := range t.choreOrder {
		chores = append(chores, *cloneChore(t.chores[id]))
	}
	return chores, nil
}

// --- Membership ---

func (t *Tracker) AddMember(userID, groupID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkPairLocked(userID, groupID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	t.members[membership{userID: userID, groupID: groupID}] = struct{}{}
	return nil
}

func (t *Tracker) RemoveMember(userID, groupID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkPairLocked(userID, groupID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	delete(t.members, membership{userID: userID, groupID: groupID})
	return nil
}

func (t *Tracker) IsMember(userID, groupID int64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.members[membership{userID: userID, groupID: groupID}]
	return ok, nil
}

func (t *Tracker) checkPairLocked(userID, groupID int64) error {
	if _, ok := t.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if _, ok := t.groups[groupID]; !ok {
		return fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	return nil
}

// --- Assignments ---

func (t *Tracker) CreateAssignment(in model.NewAssignment) (*model.Assignment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.chores[in.ChoreID]; !ok {
		return nil, fmt.Errorf("create assignment: chore %d: %w", in.ChoreID, ErrNotFound)
	}
	if _, ok := t.groups[in.GroupID]; !ok {
		return nil, fmt.Errorf("create assignment: group %d: %w", in.GroupID, ErrNotFound)
	}
	if _, ok := t.users[in.AssignedToUserID]; !ok {
		return nil, fmt.Errorf("create assignment: user %d: %w", in.AssignedToUserID, ErrNotFound)
	}
	if _, ok := t.users[in.AssignedByUserID]; !ok {
		return nil, fmt.Errorf("create assignment: user %d: %w", in.AssignedByUserID, ErrNotFound)
	}
	if _, ok := t.members[membership{userID: in.AssignedToUserID, groupID: in.GroupID}]; !ok {
		return nil, fmt.Errorf("create assignment: user %d, group %d: %w", in.AssignedToUserID, in.GroupID, ErrInvalidMembership)
	}

	a := model.Assignment{
		ID:               t.nextAssignmentID,
		ChoreID:          in.ChoreID,
		GroupID:          in.GroupID,
		AssignedToUserID: in.AssignedToUserID,
		AssignedByUserID: in.AssignedByUserID,
		AssignedAt:       t.clock(),
		Status:           model.StatusPending,
	}
	if in.DueDate != nil {
		due := *in.DueDate
		a.DueDate = &due
	}
	t.nextAssignmentID++
	t.assignments[a.ID] = a
	t.assignmentOrder = append(t.assignmentOrder, a.ID)
	return cloneAssignment(a), nil
}

func (t *Tracker) GetAssignment(id int64) (*model.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.assignments[id]
	if !ok {
		return nil, nil
	}
	return cloneAssignment(a), nil
}

func (t *Tracker) MarkDone(id int64) (*model.Assignment, error) {
	return t.resolve(id, model.StatusDone)
}

func (t *Tracker) MarkSkipped(id int64) (*model.Assignment, error) {
	return t.resolve(id, model.StatusSkipped)
}

func (t *Tracker) resolve(id int64, s model.Status) (*model.Assignment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.assignments[id]
	if !ok {
		return nil, fmt.Errorf("mark %s: assignment %d: %w", s, id, ErrNotFound)
	}
	if err := a.Resolve(s, t.clock()); err != nil {
		return nil, err
	}
	t.assignments[id] = a
	return cloneAssignment(a), nil
}

func (t *Tracker) ListAssignments(f model.AssignmentFilter) ([]model.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	assignments := []model.Assignment{}
	for _, id := range t.assignmentOrder {
		a := t.assignments[id]
		if f.Match(a) {
			assignments = append(assignments, *cloneAssignment(a))
		}
	}
	return assignments, nil
}

func cloneChore(c model.Chore) *model.Chore {
	c.Description = cloneString(c.Description)
	c.CreatedByUserID = cloneInt64(c.CreatedByUserID)
	return &c
}

func cloneAssignment(a model.Assignment) *model.Assignment {
	if a.DueDate != nil {
		due := *a.DueDate
		a.DueDate = &due
	}
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		a.CompletedAt = &at
	}
	return &a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
