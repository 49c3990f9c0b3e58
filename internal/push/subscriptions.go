package push

import (
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/model"
)

// SubscriptionStore persists push subscriptions and reminder dedup marks.
type SubscriptionStore interface {
	// SaveSubscription upserts by endpoint.
	SaveSubscription(userID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error)
	ListSubscriptions(userID int64) ([]model.PushSubscription, error)
	DeleteSubscription(id, userID int64) error
	DeleteByEndpoint(endpoint string) error
	// MarkReminderSent records a reminder for (assignmentID, day) and
	// reports whether it was newly recorded.
	MarkReminderSent(assignmentID int64, day civil.Date) (bool, error)
}

type reminderKey struct {
	assignmentID int64
	day          civil.Date
}

// MemorySubscriptions is a SubscriptionStore for the in-memory backend.
type MemorySubscriptions struct {
	mu        sync.Mutex
	nextID    int64
	subs      map[string]model.PushSubscription
	reminders map[reminderKey]struct{}
}

func NewMemorySubscriptions() *MemorySubscriptions {
	return &MemorySubscriptions{
		nextID:    1,
		subs:      make(map[string]model.PushSubscription),
		reminders: make(map[reminderKey]struct{}),
	}
}

func (m *MemorySubscriptions) SaveSubscription(userID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subs[endpoint]
	if !ok {
		sub = model.PushSubscription{ID: m.nextID, Endpoint: endpoint, CreatedAt: time.Now().UTC()}
		m.nextID++
	}
	sub.UserID = userID
	sub.P256dhKey = p256dh
	sub.AuthKey = auth
	sub.DeviceName = deviceName
	m.subs[endpoint] = sub
	return &sub, nil
}

func (m *MemorySubscriptions) ListSubscriptions(userID int64) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.PushSubscription{}
	for _, sub := range m.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemorySubscriptions) DeleteSubscription(id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for endpoint, sub := range m.subs {
		if sub.ID == id && sub.UserID == userID {
			delete(m.subs, endpoint)
		}
	}
	return nil
}

func (m *MemorySubscriptions) DeleteByEndpoint(endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, endpoint)
	return nil
}

func (m *MemorySubscriptions) MarkReminderSent(assignmentID int64, day civil.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := reminderKey{assignmentID: assignmentID, day: day}
	if _, ok := m.reminders[k]; ok {
		return false, nil
	}
	m.reminders[k] = struct{}{}
	return true, nil
}
