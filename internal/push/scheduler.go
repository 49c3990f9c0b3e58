package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/tracker"
	"github.com/dukerupert/choretracker/internal/websocket"
)

// Broadcaster receives change notifications for live clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Scheduler periodically looks for overdue assignments and reminds each
// assignee at most once per day.
type Scheduler struct {
	mu       sync.RWMutex
	store    tracker.Store
	subs     SubscriptionStore
	notifier *Notifier
	hub      Broadcaster
	logger   *slog.Logger
	clock    tracker.Clock
	interval time.Duration
	overdue  prometheus.Counter
	cancel   context.CancelFunc
	done     chan struct{}
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

func WithClock(c tracker.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithOverdueCounter counts reminders emitted.
func WithOverdueCounter(c prometheus.Counter) SchedulerOption {
	return func(s *Scheduler) { s.overdue = c }
}

func NewScheduler(store tracker.Store, subs SubscriptionStore, notifier *Notifier, hub Broadcaster, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:    store,
		subs:     subs,
		notifier: notifier,
		hub:      hub,
		logger:   logger,
		clock:    tracker.UTCClock,
		interval: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce()
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunOnce emits reminders for assignments overdue as of the current day
// and returns how many were emitted.
func (s *Scheduler) RunOnce() int {
	today := civil.DateOf(s.clock())

	assignments, err := s.store.ListAssignments(model.AssignmentFilter{})
	if err != nil {
		s.logger.Error("overdue scan: list assignments", "error", err)
		return 0
	}

	emitted := 0
	for i := range assignments {
		a := &assignments[i]
		if !a.IsOverdue(today) {
			continue
		}

		fresh, err := s.subs.MarkReminderSent(a.ID, today)
		if err != nil {
			s.logger.Error("overdue scan: record reminder", "assignment_id", a.ID, "error", err)
			continue
		}
		if !fresh {
			continue
		}

		s.remind(a, today)
		emitted++
	}
	if emitted > 0 {
		s.logger.Info("overdue reminders sent", "count", emitted, "day", today.String())
	}
	return emitted
}

func (s *Scheduler) remind(a *model.Assignment, today civil.Date) {
	if s.overdue != nil {
		s.overdue.Inc()
	}

	days := today.DaysSince(*a.DueDate)
	if s.hub != nil {
		s.hub.Broadcast(websocket.NewMessage("assignment", "overdue", a.ID, map[string]any{
			"assigned_to_user_id": a.AssignedToUserID,
			"due_date":            a.DueDate.String(),
			"days_overdue":        days,
		}).InGroup(a.GroupID))
	}

	if !s.notifier.Enabled() {
		return
	}
	title := "a chore"
	if c, err := s.store.GetChore(a.ChoreID); err == nil && c != nil {
		title = c.Title
	}
	s.notifier.Notify(a.AssignedToUserID, Payload{
		Title: "Chore overdue",
		Body:  fmt.Sprintf("%s was due %s", title, a.DueDate),
		URL:   fmt.Sprintf("/assignments/%d", a.ID),
		Tag:   fmt.Sprintf("overdue-%d", a.ID),
	})
}
