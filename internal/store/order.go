package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dining/totable/internal/feed"
	"github.com/dining/totable/internal/model"
)

// ErrOrderNotFound is returned by document reads and writes that name an
// order the restaurant does not have.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore persists order documents. Items live in the row as a JSON
// sequence so the item set and the aggregate status can be replaced in one
// statement, the way a document update replaces fields atomically.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

func scanOrder(scanner interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var items string
	err := scanner.Scan(&o.ID, &o.TableNumber, &o.Status, &o.Total, &o.Timestamp, &items)
	if err != nil {
		return nil, err
	}

	var raw []any
	if err := json.Unmarshal([]byte(items), &raw); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	for _, entry := range raw {
		if item, ok := model.DecodeItem(entry); ok {
			o.Items = append(o.Items, item)
		}
	}
	return &o, nil
}

const orderCols = `id, table_number, status, total, timestamp, items`

// Create inserts a new order with a generated id and the current timestamp.
// The aggregate status is derived from the items by the caller's layer; at
// creation every item defaults to pending, so the order does too.
func (s *OrderStore) Create(restaurantID, tableNumber string, total float64, items []model.Item) (*model.Order, error) {
	for i := range items {
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
		if !items[i].Status.Valid() {
			items[i].Status = model.StatusPending
		}
	}

	encoded, err := json.Marshal(model.EncodeItems(items))
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO orders (id, restaurant_id, table_number, status, total, timestamp, items) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, restaurantID, tableNumber, string(model.StatusPending), total, time.Now().UTC(), string(encoded),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return s.GetByID(restaurantID, id)
}

func (s *OrderStore) GetByID(restaurantID, id string) (*model.Order, error) {
	row := s.db.QueryRow(
		`SELECT `+orderCols+` FROM orders WHERE restaurant_id = ? AND id = ?`,
		restaurantID, id,
	)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListDocuments returns the restaurant's orders as raw documents, newest
// first. This is the feed.Loader the snapshot hub is wired with; decoding
// stays with the subscriber.
func (s *OrderStore) ListDocuments(restaurantID string) ([]feed.Document, error) {
	rows, err := s.db.Query(
		`SELECT `+orderCols+` FROM orders WHERE restaurant_id = ? ORDER BY timestamp DESC`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var docs []feed.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(scanner interface{ Scan(...any) error }) (feed.Document, error) {
	var id, tableNumber, status, items string
	var total float64
	var timestamp time.Time
	if err := scanner.Scan(&id, &tableNumber, &status, &total, &timestamp, &items); err != nil {
		return feed.Document{}, err
	}

	var raw []any
	if err := json.Unmarshal([]byte(items), &raw); err != nil {
		return feed.Document{}, fmt.Errorf("decode items: %w", err)
	}

	return feed.Document{
		ID: id,
		Data: map[string]any{
			"tableNumber": tableNumber,
			"status":      status,
			"total":       total,
			"timestamp":   timestamp,
			"items":       raw,
		},
	}, nil
}

// GetOrderDocument returns one order as a raw document, for read-modify-write.
func (s *OrderStore) GetOrderDocument(ctx context.Context, restaurantID, orderID string) (map[string]any, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE restaurant_id = ? AND id = ?`,
		restaurantID, orderID,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order document: %w", err)
	}
	return doc.Data, nil
}

// UpdateOrderDocument applies the given fields to one order in a single
// statement. Supported fields: items, status, tableNumber, total.
func (s *OrderStore) UpdateOrderDocument(ctx context.Context, restaurantID, orderID string, fields map[string]any) error {
	set := ""
	args := []any{}
	add := func(col string, v any) {
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, v)
	}

	for key, v := range fields {
		switch key {
		case "items":
			encoded, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode items: %w", err)
			}
			add("items", string(encoded))
		case "status":
			add("status", fmt.Sprint(v))
		case "tableNumber":
			add("table_number", fmt.Sprint(v))
		case "total":
			add("total", v)
		default:
			return fmt.Errorf("unsupported order field %q", key)
		}
	}
	if set == "" {
		return nil
	}

	args = append(args, restaurantID, orderID)
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET `+set+` WHERE restaurant_id = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	return nil
}

func (s *OrderStore) Delete(restaurantID, id string) error {
	_, err := s.db.Exec(`DELETE FROM orders WHERE restaurant_id = ? AND id = ?`, restaurantID, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
