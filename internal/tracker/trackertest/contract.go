// Package trackertest provides the behavioural contract every
// tracker.Store implementation must satisfy.
package trackertest

import (
	"errors"
	"slices"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/tracker"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) tracker.Store

// Run executes the contract against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, tracker.Store)
	}{
		{"IDsStartAtOneAndIncrease", testIDs},
		{"GetUnknownReturnsNil", testGetUnknown},
		{"ListInInsertionOrder", testListOrder},
		{"ChoreFields", testChoreFields},
		{"ChoreCreatorNotFound", testChoreCreatorNotFound},
		{"AddMemberBothSides", testAddMember},
		{"AddMemberIdempotent", testAddMemberIdempotent},
		{"RemoveMember", testRemoveMember},
		{"RemoveNonMember", testRemoveNonMember},
		{"MembershipNotFound", testMembershipNotFound},
		{"AssignmentRequiresMembership", testAssignmentRequiresMembership},
		{"AssignmentNotFound", testAssignmentNotFound},
		{"AssignmentCreatedPending", testAssignmentPending},
		{"MembershipChangeKeepsAssignment", testMembershipChangeKeepsAssignment},
		{"MarkDone", testMarkDone},
		{"MarkSkipped", testMarkSkipped},
		{"RemarkTerminalIsIdempotent", testRemarkTerminal},
		{"MarkUnknown", testMarkUnknown},
		{"ListAssignmentsFilters", testListAssignmentsFilters},
		{"FlatmatesScenario", testFlatmatesScenario},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func mustUser(t *testing.T, s tracker.Store, name string) *model.User {
	t.Helper()
	u, err := s.CreateUser(name)
	if err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return u
}

func mustGroup(t *testing.T, s tracker.Store, name string) *model.Group {
	t.Helper()
	g, err := s.CreateGroup(name)
	if err != nil {
		t.Fatalf("create group %q: %v", name, err)
	}
	return g
}

func mustChore(t *testing.T, s tracker.Store, title string, by *int64) *model.Chore {
	t.Helper()
	c, err := s.CreateChore(title, nil, by)
	if err != nil {
		t.Fatalf("create chore %q: %v", title, err)
	}
	return c
}

func mustAdd(t *testing.T, s tracker.Store, userID, groupID int64) {
	t.Helper()
	if err := s.AddMember(userID, groupID); err != nil {
		t.Fatalf("add member %d to %d: %v", userID, groupID, err)
	}
}

func mustAssign(t *testing.T, s tracker.Store, in model.NewAssignment) *model.Assignment {
	t.Helper()
	a, err := s.CreateAssignment(in)
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}

func assignmentCount(t *testing.T, s tracker.Store) int {
	t.Helper()
	all, err := s.ListAssignments(model.AssignmentFilter{})
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	return len(all)
}

func testIDs(t *testing.T, s tracker.Store) {
	u1 := mustUser(t, s, "alice")
	u2 := mustUser(t, s, "bob")
	g1 := mustGroup(t, s, "Flatmates")
	c1 := mustChore(t, s, "Trash", nil)

	if u1.ID != 1 || u2.ID != 2 {
		t.Errorf("user ids = %d, %d, want 1, 2", u1.ID, u2.ID)
	}
	if g1.ID != 1 {
		t.Errorf("group id = %d, want 1", g1.ID)
	}
	if c1.ID != 1 {
		t.Errorf("chore id = %d, want 1", c1.ID)
	}
}

func testGetUnknown(t *testing.T, s tracker.Store) {
	if u, err := s.GetUser(99); err != nil || u != nil {
		t.Errorf("GetUser(99) = %v, %v, want nil, nil", u, err)
	}
	if g, err := s.GetGroup(99); err != nil || g != nil {
		t.Errorf("GetGroup(99) = %v, %v, want nil, nil", g, err)
	}
	if c, err := s.GetChore(99); err != nil || c != nil {
		t.Errorf("GetChore(99) = %v, %v, want nil, nil", c, err)
	}
	if a, err := s.GetAssignment(99); err != nil || a != nil {
		t.Errorf("GetAssignment(99) = %v, %v, want nil, nil", a, err)
	}
}

func testListOrder(t *testing.T, s tracker.Store) {
	for _, name := range []string{"carol", "alice", "bob"} {
		mustUser(t, s, name)
	}
	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Name)
	}
	if !slices.Equal(names, []string{"carol", "alice", "bob"}) {
		t.Errorf("names = %v, want insertion order", names)
	}

	mustGroup(t, s, "B")
	mustGroup(t, s, "A")
	groups, err := s.ListGroups()
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "B" || groups[1].Name != "A" {
		t.Errorf("groups = %+v, want [B A]", groups)
	}

	mustChore(t, s, "Vacuum", nil)
	mustChore(t, s, "Dishes", nil)
	chores, err := s.ListChores()
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 2 || chores[0].Title != "Vacuum" || chores[1].Title != "Dishes" {
		t.Errorf("chores = %+v, want [Vacuum Dishes]", chores)
	}
}

func testChoreFields(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	desc := "Take out trash"
	c, err := s.CreateChore("Trash", &desc, &u.ID)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	got, err := s.GetChore(c.ID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if got.Title != "Trash" {
		t.Errorf("title = %q, want Trash", got.Title)
	}
	if got.Description == nil || *got.Description != desc {
		t.Errorf("description = %v, want %q", got.Description, desc)
	}
	if got.CreatedByUserID == nil || *got.CreatedByUserID != u.ID {
		t.Errorf("created_by = %v, want %d", got.CreatedByUserID, u.ID)
	}

	bare := mustChore(t, s, "Sweep", nil)
	if bare.Description != nil || bare.CreatedByUserID != nil {
		t.Errorf("bare chore = %+v, want nil optionals", bare)
	}
}

func testAddMember(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	mustAdd(t, s, u.ID, g.ID)

	ok, err := s.IsMember(u.ID, g.ID)
	if err != nil || !ok {
		t.Errorf("IsMember = %v, %v, want true", ok, err)
	}
	gotU, _ := s.GetUser(u.ID)
	if !slices.Contains(gotU.GroupIDs, g.ID) {
		t.Errorf("user group_ids = %v, want to contain %d", gotU.GroupIDs, g.ID)
	}
	gotG, _ := s.GetGroup(g.ID)
	if !slices.Contains(gotG.UserIDs, u.ID) {
		t.Errorf("group user_ids = %v, want to contain %d", gotG.UserIDs, u.ID)
	}
}

func testAddMemberIdempotent(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	mustAdd(t, s, u.ID, g.ID)
	mustAdd(t, s, u.ID, g.ID)

	gotU, _ := s.GetUser(u.ID)
	if !slices.Equal(gotU.GroupIDs, []int64{g.ID}) {
		t.Errorf("user group_ids = %v, want [%d]", gotU.GroupIDs, g.ID)
	}
	gotG, _ := s.GetGroup(g.ID)
	if !slices.Equal(gotG.UserIDs, []int64{u.ID}) {
		t.Errorf("group user_ids = %v, want [%d]", gotG.UserIDs, u.ID)
	}
}

func testRemoveMember(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	g1 := mustGroup(t, s, "Flatmates")
	g2 := mustGroup(t, s, "Family")
	mustAdd(t, s, u.ID, g1.ID)
	mustAdd(t, s, u.ID, g2.ID)

	if err := s.RemoveMember(u.ID, g1.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if ok, _ := s.IsMember(u.ID, g1.ID); ok {
		t.Error("IsMember after remove = true, want false")
	}
	gotU, _ := s.GetUser(u.ID)
	if !slices.Equal(gotU.GroupIDs, []int64{g2.ID}) {
		t.Errorf("user group_ids = %v, want [%d]", gotU.GroupIDs, g2.ID)
	}
	gotG, _ := s.GetGroup(g1.ID)
	if len(gotG.UserIDs) != 0 {
		t.Errorf("group user_ids = %v, want empty", gotG.UserIDs)
	}
}

func testRemoveNonMember(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	if err := s.RemoveMember(u.ID, g.ID); err != nil {
		t.Errorf("remove non-member: %v", err)
	}
}

func testChoreCreatorNotFound(t *testing.T, s tracker.Store) {
	missing := int64(99)
	if c, err := s.CreateChore("Trash", nil, &missing); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("CreateChore(by 99) = %v, %v, want ErrNotFound", c, err)
	}
	chores, err := s.ListChores()
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 0 {
		t.Errorf("chores = %d, want 0", len(chores))
	}

	c := mustChore(t, s, "Dishes", nil)
	if c.ID != 1 {
		t.Errorf("chore id = %d, want 1", c.ID)
	}
}

func testMembershipNotFound(t *testing.T, s tracker.Store) {
	u := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")

	if err := s.AddMember(99, g.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("add unknown user: err = %v, want ErrNotFound", err)
	}
	if err := s.AddMember(u.ID, 99); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("add to unknown group: err = %v, want ErrNotFound", err)
	}
	if err := s.RemoveMember(99, g.ID); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("remove unknown user: err = %v, want ErrNotFound", err)
	}
	if err := s.RemoveMember(u.ID, 99); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("remove from unknown group: err = %v, want ErrNotFound", err)
	}
	if ok, err := s.IsMember(99, 99); err != nil || ok {
		t.Errorf("IsMember(unknown) = %v, %v, want false, nil", ok, err)
	}
}

func testAssignmentRequiresMembership(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", &alice.ID)

	_, err := s.CreateAssignment(model.NewAssignment{
		ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: bob.ID, AssignedByUserID: alice.ID,
	})
	if !errors.Is(err, tracker.ErrInvalidMembership) {
		t.Fatalf("err = %v, want ErrInvalidMembership", err)
	}
	if n := assignmentCount(t, s); n != 0 {
		t.Errorf("assignment count = %d, want 0", n)
	}

	mustAdd(t, s, bob.ID, g.ID)
	a := mustAssign(t, s, model.NewAssignment{
		ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: bob.ID, AssignedByUserID: alice.ID,
	})
	if a.ID != 1 {
		t.Errorf("first successful assignment id = %d, want 1", a.ID)
	}
}

func testAssignmentNotFound(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", nil)
	mustAdd(t, s, alice.ID, g.ID)

	valid := model.NewAssignment{ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: alice.ID, AssignedByUserID: alice.ID}
	cases := map[string]func(model.NewAssignment) model.NewAssignment{
		"chore":       func(in model.NewAssignment) model.NewAssignment { in.ChoreID = 99; return in },
		"group":       func(in model.NewAssignment) model.NewAssignment { in.GroupID = 99; return in },
		"assignee":    func(in model.NewAssignment) model.NewAssignment { in.AssignedToUserID = 99; return in },
		"assigned_by": func(in model.NewAssignment) model.NewAssignment { in.AssignedByUserID = 99; return in },
	}
	for name, mutate := range cases {
		if _, err := s.CreateAssignment(mutate(valid)); !errors.Is(err, tracker.ErrNotFound) {
			t.Errorf("missing %s: err = %v, want ErrNotFound", name, err)
		}
	}
	if n := assignmentCount(t, s); n != 0 {
		t.Errorf("assignment count = %d, want 0", n)
	}
}

func testAssignmentPending(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", nil)
	mustAdd(t, s, alice.ID, g.ID)

	due := civil.Date{Year: 2026, Month: time.March, Day: 1}
	before := time.Now().Add(-time.Minute)
	a := mustAssign(t, s, model.NewAssignment{
		ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: alice.ID, AssignedByUserID: alice.ID, DueDate: &due,
	})

	if a.Status != model.StatusPending {
		t.Errorf("status = %v, want pending", a.Status)
	}
	if a.CompletedAt != nil {
		t.Errorf("completed_at = %v, want nil", a.CompletedAt)
	}
	if a.AssignedAt.Before(before) {
		t.Errorf("assigned_at = %v, want recent", a.AssignedAt)
	}
	if a.DueDate == nil || *a.DueDate != due {
		t.Errorf("due_date = %v, want %v", a.DueDate, due)
	}

	got, err := s.GetAssignment(a.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got.ChoreID != c.ID || got.GroupID != g.ID || got.AssignedToUserID != alice.ID || got.AssignedByUserID != alice.ID {
		t.Errorf("stored assignment = %+v, want references preserved", got)
	}
}

func testMembershipChangeKeepsAssignment(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", nil)
	mustAdd(t, s, alice.ID, g.ID)
	a := mustAssign(t, s, model.NewAssignment{ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: alice.ID, AssignedByUserID: alice.ID})

	if err := s.RemoveMember(alice.ID, g.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	got, err := s.GetAssignment(a.ID)
	if err != nil || got == nil {
		t.Fatalf("get assignment after leaving group = %v, %v", got, err)
	}
	if _, err := s.MarkDone(a.ID); err != nil {
		t.Errorf("mark done after leaving group: %v", err)
	}
}

func setupAssignment(t *testing.T, s tracker.Store) *model.Assignment {
	t.Helper()
	alice := mustUser(t, s, "alice")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", nil)
	mustAdd(t, s, alice.ID, g.ID)
	return mustAssign(t, s, model.NewAssignment{ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: alice.ID, AssignedByUserID: alice.ID})
}

func testMarkDone(t *testing.T, s tracker.Store) {
	a := setupAssignment(t, s)
	done, err := s.MarkDone(a.ID)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if done.Status != model.StatusDone {
		t.Errorf("status = %v, want done", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at = nil, want timestamp")
	}
	got, _ := s.GetAssignment(a.ID)
	if got.Status != model.StatusDone || got.CompletedAt == nil {
		t.Errorf("stored = %v at %v, want done with timestamp", got.Status, got.CompletedAt)
	}
}

func testMarkSkipped(t *testing.T, s tracker.Store) {
	a := setupAssignment(t, s)
	skipped, err := s.MarkSkipped(a.ID)
	if err != nil {
		t.Fatalf("mark skipped: %v", err)
	}
	if skipped.Status != model.StatusSkipped {
		t.Errorf("status = %v, want skipped", skipped.Status)
	}
	if skipped.CompletedAt == nil {
		t.Error("completed_at = nil, want timestamp")
	}
}

func testRemarkTerminal(t *testing.T, s tracker.Store) {
	a := setupAssignment(t, s)
	first, err := s.MarkDone(a.ID)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	again, err := s.MarkDone(a.ID)
	if err != nil {
		t.Fatalf("re-mark done: %v", err)
	}
	if again.Status != model.StatusDone {
		t.Errorf("status = %v, want done", again.Status)
	}
	if again.CompletedAt.Before(*first.CompletedAt) {
		t.Errorf("completed_at moved backwards: %v < %v", again.CompletedAt, first.CompletedAt)
	}

	skipped, err := s.MarkSkipped(a.ID)
	if err != nil {
		t.Fatalf("skip after done: %v", err)
	}
	if skipped.Status != model.StatusSkipped || skipped.CompletedAt == nil {
		t.Errorf("after skip = %v at %v, want skipped with timestamp", skipped.Status, skipped.CompletedAt)
	}
}

func testMarkUnknown(t *testing.T, s tracker.Store) {
	if _, err := s.MarkDone(42); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("MarkDone(42) err = %v, want ErrNotFound", err)
	}
	if _, err := s.MarkSkipped(42); !errors.Is(err, tracker.ErrNotFound) {
		t.Errorf("MarkSkipped(42) err = %v, want ErrNotFound", err)
	}
}

func testListAssignmentsFilters(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	g1 := mustGroup(t, s, "Flatmates")
	g2 := mustGroup(t, s, "Family")
	c := mustChore(t, s, "Trash", nil)
	for _, pair := range [][2]int64{{alice.ID, g1.ID}, {bob.ID, g1.ID}, {alice.ID, g2.ID}} {
		mustAdd(t, s, pair[0], pair[1])
	}

	a1 := mustAssign(t, s, model.NewAssignment{ChoreID: c.ID, GroupID: g1.ID, AssignedToUserID: alice.ID, AssignedByUserID: bob.ID})
	a2 := mustAssign(t, s, model.NewAssignment{ChoreID: c.ID, GroupID: g1.ID, AssignedToUserID: bob.ID, AssignedByUserID: alice.ID})
	a3 := mustAssign(t, s, model.NewAssignment{ChoreID: c.ID, GroupID: g2.ID, AssignedToUserID: alice.ID, AssignedByUserID: alice.ID})

	ids := func(f model.AssignmentFilter) []int64 {
		t.Helper()
		list, err := s.ListAssignments(f)
		if err != nil {
			t.Fatalf("list assignments: %v", err)
		}
		out := []int64{}
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}

	tests := []struct {
		name string
		f    model.AssignmentFilter
		want []int64
	}{
		{"none", model.AssignmentFilter{}, []int64{a1.ID, a2.ID, a3.ID}},
		{"group", model.AssignmentFilter{GroupID: &g1.ID}, []int64{a1.ID, a2.ID}},
		{"user", model.AssignmentFilter{UserID: &alice.ID}, []int64{a1.ID, a3.ID}},
		{"both", model.AssignmentFilter{GroupID: &g1.ID, UserID: &alice.ID}, []int64{a1.ID}},
		{"no match", model.AssignmentFilter{GroupID: &g2.ID, UserID: &bob.ID}, []int64{}},
	}
	for _, tt := range tests {
		if got := ids(tt.f); !slices.Equal(got, tt.want) {
			t.Errorf("%s: ids = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func testFlatmatesScenario(t *testing.T, s tracker.Store) {
	alice := mustUser(t, s, "Alice")
	bob := mustUser(t, s, "Bob")
	g := mustGroup(t, s, "Flatmates")
	c := mustChore(t, s, "Trash", &alice.ID)
	if alice.ID != 1 || bob.ID != 2 || g.ID != 1 || c.ID != 1 {
		t.Fatalf("ids = %d %d %d %d, want 1 2 1 1", alice.ID, bob.ID, g.ID, c.ID)
	}

	in := model.NewAssignment{ChoreID: 1, GroupID: 1, AssignedToUserID: 2, AssignedByUserID: 1}
	if _, err := s.CreateAssignment(in); !errors.Is(err, tracker.ErrInvalidMembership) {
		t.Fatalf("assign before join: err = %v, want ErrInvalidMembership", err)
	}

	mustAdd(t, s, 2, 1)
	a := mustAssign(t, s, in)
	if a.AssignedToUserID != 2 || a.Status != model.StatusPending {
		t.Errorf("assignment = %+v, want assigned to 2 and pending", a)
	}

	done, err := s.MarkDone(a.ID)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if done.Status != model.StatusDone {
		t.Errorf("status = %v, want done", done.Status)
	}
}
