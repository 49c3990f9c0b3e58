package store

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestSaveSubscriptionUpsert(t *testing.T) {
	s := setupTestStore(t)
	u, _ := s.CreateUser("alice")

	sub, err := s.SaveSubscription(u.ID, "https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Chrome Desktop")
	if err != nil {
		t.Fatalf("save subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.DeviceName != "Chrome Desktop" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Chrome Desktop")
	}

	again, err := s.SaveSubscription(u.ID, "https://push.example.com/sub1", "p256dh_key2", "auth_key2", "Firefox")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("upsert id = %d, want %d", again.ID, sub.ID)
	}
	if again.P256dhKey != "p256dh_key2" || again.DeviceName != "Firefox" {
		t.Errorf("upsert = %+v, want updated keys", again)
	}
}

func TestListAndDeleteSubscriptions(t *testing.T) {
	s := setupTestStore(t)
	alice, _ := s.CreateUser("alice")
	bob, _ := s.CreateUser("bob")

	a1, _ := s.SaveSubscription(alice.ID, "https://push.example.com/a1", "p", "k", "")
	s.SaveSubscription(alice.ID, "https://push.example.com/a2", "p", "k", "")
	s.SaveSubscription(bob.ID, "https://push.example.com/b1", "p", "k", "")

	subs, err := s.ListSubscriptions(alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("subscriptions = %d, want 2", len(subs))
	}

	if err := s.DeleteSubscription(a1.ID, bob.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if subs, _ := s.ListSubscriptions(alice.ID); len(subs) != 2 {
		t.Error("another user's delete removed a subscription")
	}

	s.DeleteSubscription(a1.ID, alice.ID)
	s.DeleteByEndpoint("https://push.example.com/a2")
	if subs, _ := s.ListSubscriptions(alice.ID); len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}

func TestMarkReminderSent(t *testing.T) {
	s := setupTestStore(t)
	u, _ := s.CreateUser("alice")
	g, _ := s.CreateGroup("Flatmates")
	c, _ := s.CreateChore("Trash", nil, nil)
	s.AddMember(u.ID, g.ID)
	a := mustCreateAssignment(t, s, c.ID, g.ID, u.ID)

	day := civil.Date{Year: 2026, Month: time.February, Day: 5}
	if ok, err := s.MarkReminderSent(a.ID, day); err != nil || !ok {
		t.Errorf("first mark = %v, %v, want true", ok, err)
	}
	if ok, err := s.MarkReminderSent(a.ID, day); err != nil || ok {
		t.Errorf("second mark = %v, %v, want false", ok, err)
	}
	if ok, _ := s.MarkReminderSent(a.ID, day.AddDays(1)); !ok {
		t.Error("next day should be fresh")
	}
}
