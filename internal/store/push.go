package store

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/push"
)

var _ push.SubscriptionStore = (*Store)(nil)

const subscriptionCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) SaveSubscription(userID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	id, err := s.insert(s.db,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key,
		 auth_key = excluded.auth_key, device_name = excluded.device_name`,
		userID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("save push subscription: %w", err)
	}

	row := s.db.QueryRow(s.q(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE id = ?`), id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *Store) ListSubscriptions(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		s.q(`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY id`), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []model.PushSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *Store) DeleteSubscription(id, userID int64) error {
	_, err := s.db.Exec(s.q(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *Store) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(s.q(`DELETE FROM push_subscriptions WHERE endpoint = ?`), endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func (s *Store) MarkReminderSent(assignmentID int64, day civil.Date) (bool, error) {
	res, err := s.db.Exec(
		s.q(`INSERT INTO sent_reminders (assignment_id, day) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		assignmentID, day.String(),
	)
	if err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
