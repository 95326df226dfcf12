package model

import "time"

// Subscription kinds. Web subscriptions carry webpush keys and receive
// notifications over the push service; device registrations mark a headless
// device's membership on a topic and are fed over the live order feed.
const (
	SubscriptionKindWeb    = "web"
	SubscriptionKindDevice = "device"
)

// PushSubscription maps an endpoint to a notification topic.
// Topics follow the restaurant_{restaurantId}_role_{roleId} naming scheme.
type PushSubscription struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Kind      string    `json:"kind"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}
