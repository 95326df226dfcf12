package store

import (
	"database/sql"
	"fmt"

	"github.com/dining/totable/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.Topic, &sub.Kind, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const subscriptionCols = `id, topic, kind, endpoint, p256dh_key, auth_key, created_at`

// CreateSubscription registers an endpoint on a topic. Re-registering the
// same endpoint on the same topic refreshes its kind and keys.
func (s *PushStore) CreateSubscription(topic, kind, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (topic, kind, endpoint, p256dh_key, auth_key) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(topic, endpoint) DO UPDATE SET kind = excluded.kind, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key`,
		topic, kind, endpoint, p256dh, auth,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE topic = ? AND endpoint = ?`,
		topic, endpoint,
	)
	return scanSubscription(row)
}

func (s *PushStore) ListByTopic(topic string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE topic = ?`,
		topic,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes one endpoint from one topic (topic switch).
func (s *PushStore) DeleteSubscription(topic, endpoint string) error {
	_, err := s.db.Exec(
		`DELETE FROM push_subscriptions WHERE topic = ? AND endpoint = ?`,
		topic, endpoint,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes an endpoint from every topic (expired endpoint).
func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push endpoint: %w", err)
	}
	return nil
}
