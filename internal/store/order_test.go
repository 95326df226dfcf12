package store

import (
	"context"
	"testing"
	"time"

	"github.com/dining/totable/internal/model"
)

func TestOrderCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	os := NewOrderStore(db)

	created, err := os.Create(restaurantID, "12", 21.5, []model.Item{
		{ItemName: "Risotto", Price: 12.5, Quantity: 1, RoleID: "kitchen"},
		{ItemName: "Spritz", Price: 4.5, Quantity: 2, RoleID: "bar"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.TableNumber != "12" {
		t.Errorf("table = %q, want 12", created.TableNumber)
	}
	if len(created.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(created.Items))
	}
	if created.Items[0].Status != model.StatusPending {
		t.Errorf("item status = %q, want pending", created.Items[0].Status)
	}
	if created.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	got, err := os.GetByID(restaurantID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("get = %+v", got)
	}
}

func TestOrderListDocumentsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	os := NewOrderStore(db)

	first, err := os.Create(restaurantID, "1", 5, []model.Item{{ItemName: "Espresso"}})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	// Force distinct timestamps; sqlite stores them with full precision but
	// two inserts can land in the same instant on a fast machine.
	if _, err := db.Exec(`UPDATE orders SET timestamp = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Minute), first.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	second, err := os.Create(restaurantID, "2", 7, []model.Item{{ItemName: "Cornetto"}})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	docs, err := os.ListDocuments(restaurantID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != second.ID || docs[1].ID != first.ID {
		t.Fatalf("not newest-first: %s, %s", docs[0].ID, docs[1].ID)
	}

	items, ok := docs[0].Data["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("document items = %+v", docs[0].Data["items"])
	}
}

func TestOrderListDocumentsScopedToRestaurant(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	rs := NewRestaurantStore(db)
	other, err := rs.Create("other@example.com", "Other", "pw")
	if err != nil {
		t.Fatalf("create other restaurant: %v", err)
	}
	os := NewOrderStore(db)

	if _, err := os.Create(restaurantID, "1", 5, []model.Item{{ItemName: "Espresso"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	docs, err := os.ListDocuments(other.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents for other restaurant, got %d", len(docs))
	}
}

func TestOrderUpdateDocument(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	os := NewOrderStore(db)

	created, err := os.Create(restaurantID, "3", 12.5, []model.Item{
		{ItemName: "Risotto", Price: 12.5, Quantity: 1, RoleID: "kitchen"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items := model.EncodeItems([]model.Item{
		{ItemName: "Risotto", Price: 12.5, Quantity: 1, Status: model.StatusComplete, RoleID: "kitchen"},
	})
	err = os.UpdateOrderDocument(context.Background(), restaurantID, created.ID, map[string]any{
		"items":  items,
		"status": string(model.StatusComplete),
	})
	if err != nil {
		t.Fatalf("update document: %v", err)
	}

	got, err := os.GetByID(restaurantID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusComplete {
		t.Errorf("status = %q, want complete", got.Status)
	}
	if got.Items[0].Status != model.StatusComplete {
		t.Errorf("item status = %q, want complete", got.Items[0].Status)
	}
}

func TestOrderUpdateDocumentUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	os := NewOrderStore(db)

	err := os.UpdateOrderDocument(context.Background(), restaurantID, "missing", map[string]any{
		"status": "complete",
	})
	if err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestOrderGetDocument(t *testing.T) {
	db := setupTestDB(t)
	restaurantID := seedRestaurant(t, db)
	os := NewOrderStore(db)

	created, err := os.Create(restaurantID, "7", 4.5, []model.Item{
		{ItemName: "Spritz", Price: 4.5, Quantity: 1, RoleID: "bar"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	data, err := os.GetOrderDocument(context.Background(), restaurantID, created.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}

	decoded := model.DecodeOrder(created.ID, data)
	if decoded.TableNumber != "7" {
		t.Errorf("tableNumber = %q, want 7", decoded.TableNumber)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].RoleID != "bar" {
		t.Fatalf("items = %+v", decoded.Items)
	}
}
