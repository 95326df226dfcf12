package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dining/totable/internal/model"
)

// ErrInvalidStatus is returned when a transition names an unknown status.
var ErrInvalidStatus = errors.New("invalid status")

// DocumentStore is the narrow write surface of the order document store.
type DocumentStore interface {
	GetOrderDocument(ctx context.Context, restaurantID, orderID string) (map[string]any, error)
	// UpdateOrderDocument applies all fields as a single atomic update.
	UpdateOrderDocument(ctx context.Context, restaurantID, orderID string, fields map[string]any) error
}

// Mutator transitions item statuses within one order and keeps the order's
// cached aggregate status consistent with its items.
//
// The update is a read-modify-write with no revision check: two devices
// advancing the same order concurrently race, and the last writer wins.
type Mutator struct {
	docs   DocumentStore
	logger *slog.Logger
}

// NewMutator creates a mutator over docs.
func NewMutator(docs DocumentStore, logger *slog.Logger) *Mutator {
	return &Mutator{docs: docs, logger: logger}
}

// AdvanceAllEligibleItems sets every non-complete item of the order to
// newStatus, recomputes the aggregate order status, and writes the full item
// sequence plus the aggregate back in one update. Items already complete are
// never regressed. Failures are logged and returned; nothing is retried and
// no partial state is written.
func (m *Mutator) AdvanceAllEligibleItems(ctx context.Context, restaurantID, orderID string, newStatus model.Status) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	data, err := m.docs.GetOrderDocument(ctx, restaurantID, orderID)
	if err != nil {
		m.logger.Error("read order", "restaurant_id", restaurantID, "order_id", orderID, "error", err)
		return fmt.Errorf("read order %s: %w", orderID, err)
	}

	order := model.DecodeOrder(orderID, data)
	for i := range order.Items {
		order.Items[i].Status = Advance(order.Items[i].Status, newStatus)
	}

	fields := map[string]any{
		"items":  model.EncodeItems(order.Items),
		"status": string(Aggregate(order.Items)),
	}
	if err := m.docs.UpdateOrderDocument(ctx, restaurantID, orderID, fields); err != nil {
		m.logger.Error("write order", "restaurant_id", restaurantID, "order_id", orderID, "error", err)
		return fmt.Errorf("write order %s: %w", orderID, err)
	}
	return nil
}
