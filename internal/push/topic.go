package push

import (
	"fmt"
	"sync"
)

// TopicName returns the topic a device subscribes to for order alerts
// scoped to one role of one restaurant.
func TopicName(restaurantID, roleID string) string {
	return fmt.Sprintf("restaurant_%s_role_%s", restaurantID, roleID)
}

// TopicTracker remembers the one topic a device is currently subscribed
// to, so a role switch can drop the old topic before taking the new one.
// The zero value is unsubscribed.
type TopicTracker struct {
	mu      sync.Mutex
	current string
}

// Switch records a move to the given topic and reports the previously
// held topic, empty when there was none. Switching to the topic already
// held returns ("", false) so callers skip the round trip.
func (t *TopicTracker) Switch(topic string) (previous string, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == topic {
		return "", false
	}
	previous = t.current
	t.current = topic
	return previous, true
}

// Clear drops the held topic and reports what it was.
func (t *TopicTracker) Clear() (previous string, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == "" {
		return "", false
	}
	previous = t.current
	t.current = ""
	return previous, true
}

// Current returns the held topic, empty when unsubscribed.
func (t *TopicTracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
