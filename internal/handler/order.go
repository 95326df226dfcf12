package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/feed"
	"github.com/dining/totable/internal/model"
	"github.com/dining/totable/internal/orders"
	"github.com/dining/totable/internal/push"
	"github.com/dining/totable/internal/store"
)

type OrderHandler struct {
	orderStore *store.OrderStore
	hub        *feed.Hub
	mutator    *orders.Mutator
	notifier   *push.Notifier // nil when push is not configured
	logger     *slog.Logger
}

func NewOrderHandler(os *store.OrderStore, hub *feed.Hub, mutator *orders.Mutator, notifier *push.Notifier, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderStore: os,
		hub:        hub,
		mutator:    mutator,
		notifier:   notifier,
		logger:     logger,
	}
}

type createOrderRequest struct {
	TableNumber string       `json:"tableNumber"`
	Total       float64      `json:"total"`
	Items       []model.Item `json:"items"`
}

// Create handles POST /api/orders. The new order lands in the feed and, when
// push is configured, alerts every role that has items on it.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	order, err := h.orderStore.Create(restaurantID, req.TableNumber, req.Total, req.Items)
	if err != nil {
		h.logger.Error("create order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	h.hub.Publish(restaurantID)
	if h.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			h.notifier.NotifyNewOrder(ctx, restaurantID, order)
		}()
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	docs, err := h.orderStore.ListDocuments(restaurantID)
	if err != nil {
		h.logger.Error("list orders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	list := make([]model.Order, 0, len(docs))
	for _, doc := range docs {
		list = append(list, model.DecodeOrder(doc.ID, doc.Data))
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	order, err := h.orderStore.GetByID(restaurantID, r.PathValue("id"))
	if err != nil {
		h.logger.Error("get order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}, voiding an order entirely. The
// removal reaches every connected device through the feed.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())
	orderID := r.PathValue("id")

	order, err := h.orderStore.GetByID(restaurantID, orderID)
	if err != nil {
		h.logger.Error("get order", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if err := h.orderStore.Delete(restaurantID, orderID); err != nil {
		h.logger.Error("delete order", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	h.hub.Publish(restaurantID)
	w.WriteHeader(http.StatusNoContent)
}

type advanceRequest struct {
	Status model.Status `json:"status"`
}

// Advance handles POST /api/orders/{id}/advance. Every item not yet complete
// moves to the requested status; the order's status follows from its items.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())
	orderID := r.PathValue("id")

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := h.mutator.AdvanceAllEligibleItems(r.Context(), restaurantID, orderID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, orders.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("advance order", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	h.hub.Publish(restaurantID)

	order, err := h.orderStore.GetByID(restaurantID, orderID)
	if err != nil || order == nil {
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}
