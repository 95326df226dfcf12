package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dining/totable/internal/model"
)

// Sender delivers one notification to one subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// SubscriptionStore is the slice of the push store the notifier needs.
type SubscriptionStore interface {
	ListByTopic(topic string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier fans a new-order alert out to every device subscribed to a
// role that the order's items touch.
type Notifier struct {
	sender Sender
	subs   SubscriptionStore
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		subs:   subs,
		logger: logger,
	}
}

// NotifyNewOrder alerts each role with at least one item on the order.
// Delivery failures are logged per endpoint and never fail the order;
// endpoints the push service reports gone are pruned.
func (n *Notifier) NotifyNewOrder(ctx context.Context, restaurantID string, order *model.Order) {
	payload := Payload{
		Title: "New Order",
		Body:  "A new order has been received",
		Tag:   order.ID,
	}
	if order.TableNumber != "" {
		payload.Body = fmt.Sprintf("New order for table %s", order.TableNumber)
	}

	for _, roleID := range distinctRoles(order.Items) {
		topic := TopicName(restaurantID, roleID)
		subs, err := n.subs.ListByTopic(topic)
		if err != nil {
			n.logger.Error("list subscriptions", "topic", topic, "error", err)
			continue
		}
		for i := range subs {
			if subs[i].Kind == model.SubscriptionKindDevice {
				// Device registrations get the order over the live feed;
				// webpush delivery targets browser subscriptions only.
				continue
			}
			n.deliver(ctx, topic, &subs[i], payload)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, topic string, sub *model.PushSubscription, payload Payload) {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := n.sender.Send(sub, payload)
		if errors.Is(err, ErrExpired) {
			return err
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if errors.Is(err, ErrExpired) {
		n.logger.Info("pruning expired push endpoint", "topic", topic)
		if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
			n.logger.Error("delete expired endpoint", "error", err)
		}
		return
	}
	if err != nil {
		n.logger.Error("push delivery failed", "topic", topic, "error", err)
	}
}

func distinctRoles(items []model.Item) []string {
	seen := make(map[string]struct{})
	var roles []string
	for _, item := range items {
		if item.RoleID == "" {
			continue
		}
		if _, ok := seen[item.RoleID]; ok {
			continue
		}
		seen[item.RoleID] = struct{}{}
		roles = append(roles, item.RoleID)
	}
	return roles
}
