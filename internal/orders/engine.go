package orders

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dining/totable/internal/feed"
	"github.com/dining/totable/internal/model"
)

// Engine maintains a live, role-filtered view of open orders for one
// restaurant. It holds at most one feed subscription at a time; resubscribing
// replaces the previous subscription and no update from the old scope is
// ever delivered afterwards.
type Engine struct {
	source feed.Source
	logger *slog.Logger

	mu     sync.Mutex
	gen    int
	cancel func()
	out    chan []model.Order
	last   []model.Order
}

// NewEngine creates an engine reading from source.
func NewEngine(source feed.Source, logger *slog.Logger) *Engine {
	return &Engine{source: source, logger: logger}
}

// Subscribe opens a subscription scoped to restaurantID. deviceRoleID
// filters items to that role; empty means no filtering. The returned channel
// delivers replace-in-full order lists and is closed when the subscription
// is replaced or the engine unsubscribed.
func (e *Engine) Subscribe(restaurantID, deviceRoleID string) (<-chan []model.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	e.gen++
	gen := e.gen

	updates, cancel, err := e.source.Subscribe(restaurantID)
	if err != nil {
		return nil, fmt.Errorf("subscribe orders feed: %w", err)
	}
	e.cancel = cancel
	e.out = make(chan []model.Order, 1)
	out := e.out

	go e.run(gen, deviceRoleID, updates)
	return out, nil
}

// Unsubscribe releases the active subscription. Safe to call with none
// active, and safe to call twice.
func (e *Engine) Unsubscribe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	e.gen++
}

// Orders returns the most recently published list.
func (e *Engine) Orders() []model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) releaseLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.out != nil {
		close(e.out)
		e.out = nil
	}
}

func (e *Engine) run(gen int, deviceRoleID string, updates <-chan feed.Update) {
	for u := range updates {
		if u.Err != nil {
			// Keep the previously published list; staleness over garbage.
			e.logger.Error("orders feed", "error", u.Err)
			continue
		}

		orders := Project(u.Documents, deviceRoleID)

		e.mu.Lock()
		if gen != e.gen {
			// Superseded by a newer Subscribe or Unsubscribe.
			e.mu.Unlock()
			return
		}
		e.last = orders
		select {
		case e.out <- orders:
		default:
			select {
			case <-e.out:
			default:
			}
			select {
			case e.out <- orders:
			default:
			}
		}
		e.mu.Unlock()
	}
}

// Project decodes raw documents into the role's view: items are filtered by
// deviceRoleID (empty keeps all), and orders that end up with no items, or
// only complete ones, are dropped. Document order is preserved.
func Project(docs []feed.Document, deviceRoleID string) []model.Order {
	orders := make([]model.Order, 0, len(docs))
	for _, doc := range docs {
		order := model.DecodeOrder(doc.ID, doc.Data)

		if deviceRoleID != "" {
			kept := order.Items[:0]
			for _, item := range order.Items {
				if item.RoleID == deviceRoleID {
					kept = append(kept, item)
				}
			}
			order.Items = kept
		}

		if len(order.Items) == 0 {
			continue
		}
		done := true
		for _, item := range order.Items {
			if item.Status != model.StatusComplete {
				done = false
				break
			}
		}
		if done {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}
