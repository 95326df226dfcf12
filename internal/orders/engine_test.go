package orders

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dining/totable/internal/feed"
	"github.com/dining/totable/internal/model"
)

// fakeSource hands out manually-driven subscriptions and records how many
// times each was cancelled.
type fakeSource struct {
	mu      sync.Mutex
	subs    []*fakeSub
	nextErr error
}

type fakeSub struct {
	restaurantID string
	ch           chan feed.Update
	cancelled    int
}

func (s *fakeSource) Subscribe(restaurantID string) (<-chan feed.Update, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextErr != nil {
		return nil, nil, s.nextErr
	}
	sub := &fakeSub{restaurantID: restaurantID, ch: make(chan feed.Update, 4)}
	s.subs = append(s.subs, sub)
	return sub.ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sub.cancelled++
		if sub.cancelled == 1 {
			close(sub.ch)
		}
	}, nil
}

func (s *fakeSource) latest() *fakeSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[len(s.subs)-1]
}

func itemDoc(name, roleID string, status model.Status) map[string]any {
	d := map[string]any{
		"itemName": name,
		"price":    5.0,
		"quantity": 1,
		"status":   string(status),
	}
	if roleID != "" {
		d["roleId"] = roleID
	}
	return d
}

func recvOrders(t *testing.T, ch <-chan []model.Order) []model.Order {
	t.Helper()
	select {
	case orders, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while waiting for orders")
		}
		return orders
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for orders")
		return nil
	}
}

func TestSubscribeRoleFiltering(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	ch, err := engine.Subscribe("r1", "kitchen")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer engine.Unsubscribe()

	source.latest().ch <- feed.Update{Documents: []feed.Document{
		{ID: "o1", Data: map[string]any{
			"items": []any{
				itemDoc("Risotto", "kitchen", model.StatusPending),
				itemDoc("Spritz", "bar", model.StatusPending),
			},
		}},
	}}

	orders := recvOrders(t, ch)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].ItemName != "Risotto" {
		t.Fatalf("expected only the kitchen item, got %+v", orders[0].Items)
	}
}

func TestSubscribeNoRoleKeepsAllItems(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	ch, err := engine.Subscribe("r1", "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer engine.Unsubscribe()

	source.latest().ch <- feed.Update{Documents: []feed.Document{
		{ID: "o1", Data: map[string]any{
			"items": []any{
				itemDoc("Risotto", "kitchen", model.StatusPending),
				itemDoc("Spritz", "bar", model.StatusPending),
			},
		}},
	}}

	orders := recvOrders(t, ch)
	if len(orders) != 1 || len(orders[0].Items) != 2 {
		t.Fatalf("expected both items, got %+v", orders)
	}
}

func TestDropWhenDone(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	ch, err := engine.Subscribe("r1", "kitchen")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer engine.Unsubscribe()

	source.latest().ch <- feed.Update{Documents: []feed.Document{
		// All kitchen items complete — done for this role's view.
		{ID: "done", Data: map[string]any{
			"items": []any{
				itemDoc("Risotto", "kitchen", model.StatusComplete),
				itemDoc("Spritz", "bar", model.StatusPending),
			},
		}},
		// No kitchen items at all.
		{ID: "empty", Data: map[string]any{
			"items": []any{itemDoc("Spritz", "bar", model.StatusPending)},
		}},
		// Still open for the kitchen.
		{ID: "open", Data: map[string]any{
			"items": []any{itemDoc("Tiramisu", "kitchen", model.StatusInProgress)},
		}},
	}}

	orders := recvOrders(t, ch)
	if len(orders) != 1 || orders[0].ID != "open" {
		t.Fatalf("expected only the open order, got %+v", orders)
	}
}

func TestResubscribeReplacesSubscription(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	ch1, err := engine.Subscribe("r1", "kitchen")
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	first := source.latest()

	ch2, err := engine.Subscribe("r2", "")
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	defer engine.Unsubscribe()
	second := source.latest()

	if first.cancelled == 0 {
		t.Fatal("first subscription was not released")
	}
	if second.restaurantID != "r2" {
		t.Fatalf("second subscription scope = %q, want r2", second.restaurantID)
	}

	// The first channel must be closed without further deliveries.
	select {
	case orders, ok := <-ch1:
		if ok {
			t.Fatalf("first channel delivered after replacement: %+v", orders)
		}
	case <-time.After(time.Second):
		t.Fatal("first channel not closed after replacement")
	}

	second.ch <- feed.Update{Documents: []feed.Document{
		{ID: "o2", Data: map[string]any{
			"items": []any{itemDoc("Burger", "", model.StatusPending)},
		}},
	}}
	orders := recvOrders(t, ch2)
	if len(orders) != 1 || orders[0].ID != "o2" {
		t.Fatalf("unexpected orders on second subscription: %+v", orders)
	}
}

func TestFeedErrorKeepsPreviousList(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	ch, err := engine.Subscribe("r1", "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer engine.Unsubscribe()

	sub := source.latest()
	sub.ch <- feed.Update{Documents: []feed.Document{
		{ID: "o1", Data: map[string]any{
			"items": []any{itemDoc("Burger", "", model.StatusPending)},
		}},
	}}
	recvOrders(t, ch)

	sub.ch <- feed.Update{Err: errors.New("feed broke")}

	// No new publish; the previously published list stands.
	select {
	case orders, ok := <-ch:
		if ok {
			t.Fatalf("unexpected publish after feed error: %+v", orders)
		}
		t.Fatal("channel closed after feed error")
	case <-time.After(100 * time.Millisecond):
	}

	last := engine.Orders()
	if len(last) != 1 || last[0].ID != "o1" {
		t.Fatalf("previous list not retained: %+v", last)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, slog.Default())

	// No subscription active — must be a no-op.
	engine.Unsubscribe()

	if _, err := engine.Subscribe("r1", ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub := source.latest()

	engine.Unsubscribe()
	engine.Unsubscribe()

	if sub.cancelled == 0 {
		t.Fatal("subscription was not released")
	}
}

func TestSubscribeSourceError(t *testing.T) {
	source := &fakeSource{nextErr: errors.New("no connection")}
	engine := NewEngine(source, slog.Default())

	if _, err := engine.Subscribe("r1", ""); err == nil {
		t.Fatal("expected subscribe error")
	}
}
