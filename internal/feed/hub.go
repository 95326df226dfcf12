package feed

import (
	"fmt"
	"log/slog"
	"sync"
)

// Loader fetches the current full document list for a restaurant, ordered by
// timestamp descending.
type Loader func(restaurantID string) ([]Document, error)

// Hub maintains snapshot subscriptions per restaurant and republishes the
// full document list to every subscriber whenever the collection changes.
type Hub struct {
	mu     sync.RWMutex
	load   Loader
	nextID int
	subs   map[string]map[int]chan Update
	logger *slog.Logger
}

// NewHub creates a Hub that loads snapshots through load.
func NewHub(load Loader, logger *slog.Logger) *Hub {
	return &Hub{
		load:   load,
		subs:   make(map[string]map[int]chan Update),
		logger: logger,
	}
}

// Subscribe registers a subscriber for one restaurant and immediately queues
// the current snapshot. The returned cancel function is safe to call twice.
func (h *Hub) Subscribe(restaurantID string) (<-chan Update, func(), error) {
	docs, err := h.load(restaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("load initial snapshot: %w", err)
	}

	ch := make(chan Update, 1)
	ch <- Update{Documents: docs}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[restaurantID] == nil {
		h.subs[restaurantID] = make(map[int]chan Update)
	}
	h.subs[restaurantID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[restaurantID], id)
			if len(h.subs[restaurantID]) == 0 {
				delete(h.subs, restaurantID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// Publish reloads the restaurant's documents and fans the snapshot out to
// all subscribers. A subscriber that has not drained its previous snapshot
// has it replaced by the newer one; the newest state always wins.
func (h *Hub) Publish(restaurantID string) {
	h.mu.RLock()
	n := len(h.subs[restaurantID])
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	docs, err := h.load(restaurantID)
	if err != nil {
		h.logger.Error("load snapshot", "restaurant_id", restaurantID, "error", err)
		h.deliver(restaurantID, Update{Err: err})
		return
	}
	h.deliver(restaurantID, Update{Documents: docs})
}

func (h *Hub) deliver(restaurantID string, u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[restaurantID] {
		select {
		case ch <- u:
		default:
			// Stale snapshot still queued — replace it with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of open subscriptions for a restaurant.
func (h *Hub) SubscriberCount(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[restaurantID])
}
