package tracker_test

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/tracker/trackertest"
)

func TestTrackerContract(t *testing.T) {
	trackertest.Run(t, func(t *testing.T) tracker.Store {
		return tracker.New()
	})
}

func TestTrackerClock(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	tr := tracker.New(tracker.WithClock(func() time.Time { return now }))

	u, _ := tr.CreateUser("alice")
	g, _ := tr.CreateGroup("Flatmates")
	c, _ := tr.CreateChore("Trash", nil, nil)
	if err := tr.AddMember(u.ID, g.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	a, err := tr.CreateAssignment(model.NewAssignment{ChoreID: c.ID, GroupID: g.ID, AssignedToUserID: u.ID, AssignedByUserID: u.ID})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if !a.AssignedAt.Equal(now) {
		t.Errorf("assigned_at = %v, want %v", a.AssignedAt, now)
	}

	now = now.Add(2 * time.Hour)
	done, err := tr.MarkDone(a.ID)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if !done.CompletedAt.Equal(now) {
		t.Errorf("completed_at = %v, want %v", done.CompletedAt, now)
	}
}

func TestTrackerReturnsCopies(t *testing.T) {
	tr := tracker.New()
	u, _ := tr.CreateUser("alice")
	g, _ := tr.CreateGroup("Flatmates")
	tr.AddMember(u.ID, g.ID)

	got, _ := tr.GetUser(u.ID)
	got.Name = "mallory"
	got.GroupIDs[0] = 42

	again, _ := tr.GetUser(u.ID)
	if again.Name != "alice" {
		t.Errorf("name = %q, want alice", again.Name)
	}
	if !slices.Equal(again.GroupIDs, []int64{g.ID}) {
		t.Errorf("group_ids = %v, want [%d]", again.GroupIDs, g.ID)
	}
}

// Concurrent membership churn must leave the user and group views of
// the relation in agreement.
func TestTrackerConcurrentMembership(t *testing.T) {
	tr := tracker.New()
	var users, groups []int64
	for i := 0; i < 4; i++ {
		u, _ := tr.CreateUser("u")
		g, _ := tr.CreateGroup("g")
		users = append(users, u.ID)
		groups = append(groups, g.ID)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				u := users[(w+i)%len(users)]
				g := groups[(w*3+i)%len(groups)]
				if i%3 == 0 {
					tr.RemoveMember(u, g)
				} else {
					tr.AddMember(u, g)
				}
				tr.ListUsers()
			}
		}(w)
	}
	wg.Wait()

	us, _ := tr.ListUsers()
	gs, _ := tr.ListGroups()
	fromUsers := map[[2]int64]bool{}
	for _, u := range us {
		for _, g := range u.GroupIDs {
			fromUsers[[2]int64{u.ID, g}] = true
		}
	}
	fromGroups := map[[2]int64]bool{}
	for _, g := range gs {
		for _, u := range g.UserIDs {
			fromGroups[[2]int64{u, g.ID}] = true
		}
	}
	if len(fromUsers) != len(fromGroups) {
		t.Fatalf("user view has %d pairs, group view has %d", len(fromUsers), len(fromGroups))
	}
	for pair := range fromUsers {
		if !fromGroups[pair] {
			t.Errorf("pair %v missing from group view", pair)
		}
		if ok, _ := tr.IsMember(pair[0], pair[1]); !ok {
			t.Errorf("IsMember%v = false", pair)
		}
	}
}
