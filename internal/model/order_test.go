package model

import (
	"testing"
	"time"
)

func TestDecodeOrderDefaults(t *testing.T) {
	o := DecodeOrder("ord-1", map[string]any{})

	if o.ID != "ord-1" {
		t.Errorf("id = %q, want %q", o.ID, "ord-1")
	}
	if o.Status != StatusPending {
		t.Errorf("status = %q, want %q", o.Status, StatusPending)
	}
	if o.Total != 0 {
		t.Errorf("total = %v, want 0", o.Total)
	}
	if len(o.Items) != 0 {
		t.Errorf("expected no items, got %d", len(o.Items))
	}
}

func TestDecodeItemDefaults(t *testing.T) {
	// Missing price and quantity must default, not fail or drop the item.
	item, ok := DecodeItem(map[string]any{
		"itemName": "Margherita",
	})
	if !ok {
		t.Fatal("expected item to decode")
	}
	if item.Price != 0.0 {
		t.Errorf("price = %v, want 0.0", item.Price)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
	if item.SpecialRequests != "" {
		t.Errorf("specialRequests = %q, want empty", item.SpecialRequests)
	}
	if item.Status != StatusPending {
		t.Errorf("status = %q, want %q", item.Status, StatusPending)
	}
}

func TestDecodeItemMalformedFields(t *testing.T) {
	item, ok := DecodeItem(map[string]any{
		"itemName": 42,           // wrong type
		"price":    "not-a-num",  // wrong type
		"quantity": 2.0,          // JSON number
		"status":   "lost-track", // unknown status
	})
	if !ok {
		t.Fatal("expected item to decode")
	}
	if item.ItemName != "" {
		t.Errorf("itemName = %q, want empty", item.ItemName)
	}
	if item.Price != 0 {
		t.Errorf("price = %v, want 0", item.Price)
	}
	if item.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", item.Quantity)
	}
	if item.Status != StatusPending {
		t.Errorf("status = %q, want %q", item.Status, StatusPending)
	}
}

func TestDecodeOrderDropsWrongShapeRecords(t *testing.T) {
	o := DecodeOrder("ord-2", map[string]any{
		"items": []any{
			"not a record",
			map[string]any{"itemName": "Espresso", "price": 2.5, "quantity": float64(2)},
			nil,
		},
	})

	if len(o.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(o.Items))
	}
	if o.Items[0].ItemName != "Espresso" {
		t.Errorf("itemName = %q, want %q", o.Items[0].ItemName, "Espresso")
	}
	if o.Items[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", o.Items[0].Quantity)
	}
}

func TestDecodeOrderTimestampFormats(t *testing.T) {
	want := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	fromTime := DecodeOrder("a", map[string]any{"timestamp": want})
	if !fromTime.Timestamp.Equal(want) {
		t.Errorf("time.Time timestamp = %v, want %v", fromTime.Timestamp, want)
	}

	fromString := DecodeOrder("b", map[string]any{"timestamp": want.Format(time.RFC3339Nano)})
	if !fromString.Timestamp.Equal(want) {
		t.Errorf("RFC3339 timestamp = %v, want %v", fromString.Timestamp, want)
	}

	fromUnix := DecodeOrder("c", map[string]any{"timestamp": float64(want.Unix())})
	if !fromUnix.Timestamp.Equal(want) {
		t.Errorf("unix timestamp = %v, want %v", fromUnix.Timestamp, want)
	}
}

func TestEncodeItemsRoundTrip(t *testing.T) {
	items := []Item{
		{ItemName: "Carbonara", Price: 12.5, Quantity: 1, Status: StatusInProgress, RoleID: "kitchen"},
		{ItemName: "Negroni", Price: 9, Quantity: 2, SpecialRequests: "less ice", Status: StatusPending},
	}

	encoded := EncodeItems(items)
	if len(encoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(encoded))
	}

	for i, record := range encoded {
		decoded, ok := DecodeItem(record)
		if !ok {
			t.Fatalf("record %d did not decode", i)
		}
		if decoded != items[i] {
			t.Errorf("record %d = %+v, want %+v", i, decoded, items[i])
		}
	}

	// roleId should be omitted entirely when unset
	second := encoded[1].(map[string]any)
	if _, present := second["roleId"]; present {
		t.Error("roleId should be omitted for items without a role")
	}
}
