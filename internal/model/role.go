package model

import "time"

// Role is a selectable device persona (kitchen, waiter, bar). Read-only to
// devices; managed on the restaurant side.
type Role struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}
