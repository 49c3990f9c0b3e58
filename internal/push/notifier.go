package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/choretracker/internal/model"
)

// Notifier sends payloads to every subscription of a user and prunes
// subscriptions the push service reports as gone. A nil sender disables
// delivery.
type Notifier struct {
	subs   SubscriptionStore
	sender Sender
	logger *slog.Logger
}

func NewNotifier(subs SubscriptionStore, sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{subs: subs, sender: sender, logger: logger}
}

// Enabled reports whether the notifier has a sender.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Notify sends payload to all of userID's subscriptions and returns how
// many deliveries succeeded.
func (n *Notifier) Notify(userID int64, payload Payload) int {
	if !n.Enabled() {
		return 0
	}

	subs, err := n.subs.ListSubscriptions(userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return 0
	}

	sent := 0
	for i := range subs {
		sub := &subs[i]
		err := n.sender.Send(sub, payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			n.logger.Info("removing expired push subscription", "user_id", userID, "subscription_id", sub.ID)
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "error", err)
			}
		default:
			n.logger.Warn("push send failed", "user_id", userID, "subscription_id", sub.ID, "error", err)
		}
	}
	return sent
}

// AssignmentCreated tells the assignee about a new assignment.
func (n *Notifier) AssignmentCreated(a *model.Assignment, choreTitle string) {
	body := fmt.Sprintf("You were assigned: %s", choreTitle)
	if a.DueDate != nil {
		body = fmt.Sprintf("You were assigned: %s (due %s)", choreTitle, a.DueDate)
	}
	n.Notify(a.AssignedToUserID, Payload{
		Title: "New chore",
		Body:  body,
		URL:   fmt.Sprintf("/assignments/%d", a.ID),
		Tag:   fmt.Sprintf("assignment-%d", a.ID),
	})
}
