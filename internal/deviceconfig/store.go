package deviceconfig

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dining/totable/internal/model"
)

const configKey = "config"

// Observer is notified whenever the stored configuration changes. cfg is nil
// after Clear. Used by the agent to move its push topic subscription.
type Observer func(cfg *model.DeviceConfiguration)

// Store persists the device's identity in the local database. One
// configuration per device, replaced wholesale on save and removed wholesale
// on logout.
type Store struct {
	db *sql.DB

	mu        sync.Mutex
	observers []Observer
}

// NewStore creates a Store over the device-local database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save serializes and persists the configuration, replacing any prior value,
// then notifies observers.
func (s *Store) Save(cfg model.DeviceConfiguration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal device config: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO device_config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		configKey, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save device config: %w", err)
	}

	s.notify(&cfg)
	return nil
}

// Load returns the last saved configuration, or nil if none was ever saved
// or it was cleared.
func (s *Store) Load() (*model.DeviceConfiguration, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM device_config WHERE key = ?`, configKey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load device config: %w", err)
	}

	var cfg model.DeviceConfiguration
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, fmt.Errorf("decode device config: %w", err)
	}
	return &cfg, nil
}

// Clear removes the stored configuration and signals observers that the
// identity is gone.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM device_config WHERE key = ?`, configKey)
	if err != nil {
		return fmt.Errorf("clear device config: %w", err)
	}
	s.notify(nil)
	return nil
}

// OnChange registers an observer for configuration changes.
func (s *Store) OnChange(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) notify(cfg *model.DeviceConfiguration) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(cfg)
	}
}
