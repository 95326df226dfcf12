package store

import (
	"database/sql"
	"testing"

	"github.com/dining/totable/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedRestaurant creates a restaurant for tests that need a tenant to hang
// orders and roles off.
func seedRestaurant(t *testing.T, db *sql.DB) string {
	t.Helper()
	rs := NewRestaurantStore(db)
	r, err := rs.Create("owner@trattoria.example", "Trattoria da Test", "correct-horse")
	if err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	return r.ID
}
