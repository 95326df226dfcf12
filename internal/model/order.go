package model

import "time"

// Status is the lifecycle state shared by orders and their items.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// Item is one line within an order. Items carry their own status; the
// order's status is a cached projection over them.
type Item struct {
	ItemName        string  `json:"itemName"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	SpecialRequests string  `json:"specialRequests"`
	Status          Status  `json:"status"`
	RoleID          string  `json:"roleId,omitempty"`
}

// Order is one ticket raised by front-of-house.
type Order struct {
	ID          string    `json:"id"`
	TableNumber string    `json:"tableNumber"`
	Status      Status    `json:"status"`
	Total       float64   `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
	Items       []Item    `json:"items"`
}

// DecodeOrder builds an Order from a raw document. Individual missing or
// malformed fields fall back to defaults; only item records of entirely the
// wrong shape are dropped. Decoding never fails.
func DecodeOrder(id string, data map[string]any) Order {
	o := Order{
		ID:          id,
		TableNumber: docString(data, "tableNumber", ""),
		Status:      Status(docString(data, "status", string(StatusPending))),
		Total:       docFloat(data, "total", 0),
		Timestamp:   docTime(data, "timestamp"),
	}
	if !o.Status.Valid() {
		o.Status = StatusPending
	}

	raw, _ := data["items"].([]any)
	for _, entry := range raw {
		if item, ok := DecodeItem(entry); ok {
			o.Items = append(o.Items, item)
		}
	}
	return o
}

// DecodeItem decodes a single item record. It returns false for records that
// are not maps at all; a map with missing fields decodes with defaults.
func DecodeItem(v any) (Item, bool) {
	data, ok := v.(map[string]any)
	if !ok {
		return Item{}, false
	}

	item := Item{
		ItemName:        docString(data, "itemName", ""),
		Price:           docFloat(data, "price", 0),
		Quantity:        docInt(data, "quantity", 1),
		SpecialRequests: docString(data, "specialRequests", ""),
		Status:          Status(docString(data, "status", string(StatusPending))),
		RoleID:          docString(data, "roleId", ""),
	}
	if !item.Status.Valid() {
		item.Status = StatusPending
	}
	return item, true
}

// EncodeItems converts items back into the raw document representation used
// by the store, for whole-sequence write-back.
func EncodeItems(items []Item) []any {
	encoded := make([]any, 0, len(items))
	for _, item := range items {
		record := map[string]any{
			"itemName":        item.ItemName,
			"price":           item.Price,
			"quantity":        item.Quantity,
			"specialRequests": item.SpecialRequests,
			"status":          string(item.Status),
		}
		if item.RoleID != "" {
			record["roleId"] = item.RoleID
		}
		encoded = append(encoded, record)
	}
	return encoded
}

func docString(data map[string]any, key, fallback string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return fallback
}

func docFloat(data map[string]any, key string, fallback float64) float64 {
	switch n := data[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

func docInt(data map[string]any, key string, fallback int) int {
	switch n := data[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return fallback
}

func docTime(data map[string]any, key string) time.Time {
	switch t := data[key].(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	case float64:
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Time{}
}
