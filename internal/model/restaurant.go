package model

import "time"

// Restaurant is the tenant scope; orders and roles are partitioned by it.
type Restaurant struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated device session for one restaurant account.
type Session struct {
	ID           int64     `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
