package push

import (
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/model"
)

func TestNotifyPrunesExpired(t *testing.T) {
	subs := NewMemorySubscriptions()
	subs.SaveSubscription(1, "https://push.example.com/ok", "p", "k", "laptop")
	subs.SaveSubscription(1, "https://push.example.com/gone", "p", "k", "old phone")
	subs.SaveSubscription(1, "https://push.example.com/broken", "p", "k", "tablet")
	subs.SaveSubscription(2, "https://push.example.com/other", "p", "k", "laptop")

	snd := &fakeSender{expired: map[string]bool{"https://push.example.com/gone": true}}
	n := NewNotifier(subs, snd, slog.Default())

	if got := n.Notify(1, Payload{Title: "hi"}); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}

	left, _ := subs.ListSubscriptions(1)
	if len(left) != 2 {
		t.Fatalf("remaining subscriptions = %d, want 2", len(left))
	}
	for _, s := range left {
		if s.Endpoint == "https://push.example.com/gone" {
			t.Error("expired subscription was not removed")
		}
	}
}

func TestNotifyDisabled(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Error("nil notifier should be disabled")
	}
	if got := n.Notify(1, Payload{}); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
}

func TestAssignmentCreated(t *testing.T) {
	subs := NewMemorySubscriptions()
	subs.SaveSubscription(2, "https://push.example.com/bob", "p", "k", "")
	snd := &fakeSender{}
	n := NewNotifier(subs, snd, slog.Default())

	due := civil.Date{Year: 2026, Month: time.March, Day: 1}
	n.AssignmentCreated(&model.Assignment{ID: 9, AssignedToUserID: 2, DueDate: &due}, "Trash")

	if len(snd.sent) != 1 || snd.sent[0] != "https://push.example.com/bob|New chore" {
		t.Errorf("sent = %v", snd.sent)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	subs := NewMemorySubscriptions()
	a, _ := subs.SaveSubscription(1, "https://push.example.com/x", "p1", "k1", "phone")
	b, _ := subs.SaveSubscription(1, "https://push.example.com/x", "p2", "k2", "phone 2")
	if a.ID != b.ID {
		t.Errorf("upsert changed id: %d -> %d", a.ID, b.ID)
	}
	if b.P256dhKey != "p2" {
		t.Errorf("p256dh = %q, want p2", b.P256dhKey)
	}

	if err := subs.DeleteSubscription(b.ID, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := subs.ListSubscriptions(1); len(list) != 1 {
		t.Error("delete by another user should not remove subscription")
	}
	subs.DeleteSubscription(b.ID, 1)
	if list, _ := subs.ListSubscriptions(1); len(list) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(list))
	}

	day := civil.Date{Year: 2026, Month: time.February, Day: 5}
	if ok, _ := subs.MarkReminderSent(1, day); !ok {
		t.Error("first mark should be fresh")
	}
	if ok, _ := subs.MarkReminderSent(1, day); ok {
		t.Error("second mark should not be fresh")
	}
	if ok, _ := subs.MarkReminderSent(1, day.AddDays(1)); !ok {
		t.Error("next day should be fresh")
	}
}
