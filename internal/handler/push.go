package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/model"
	"github.com/dining/totable/internal/push"
	"github.com/dining/totable/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

type subscribeRequest struct {
	RoleID   string `json:"roleId"`
	Kind     string `json:"kind,omitempty"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh,omitempty"`
	Auth     string `json:"auth,omitempty"`
}

// Subscribe handles POST /api/push/subscribe. The topic is derived from the
// session's restaurant and the requested role, never taken from the client.
// Web subscriptions must carry webpush keys; device registrations carry only
// their endpoint identifier.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Kind == "" {
		req.Kind = model.SubscriptionKindWeb
	}
	if req.Kind != model.SubscriptionKindWeb && req.Kind != model.SubscriptionKindDevice {
		writeError(w, http.StatusBadRequest, "kind must be web or device")
		return
	}
	if req.RoleID == "" || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "roleId and endpoint are required")
		return
	}
	if req.Kind == model.SubscriptionKindWeb && (req.P256dh == "" || req.Auth == "") {
		writeError(w, http.StatusBadRequest, "p256dh and auth are required")
		return
	}

	topic := push.TopicName(restaurantID, req.RoleID)
	sub, err := h.pushStore.CreateSubscription(topic, req.Kind, req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type unsubscribeRequest struct {
	RoleID   string `json:"roleId,omitempty"`
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/push/unsubscribe. With a roleId it drops the
// endpoint from that role's topic (role switch); without one it drops the
// endpoint everywhere (device reset).
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	var err error
	if req.RoleID != "" {
		err = h.pushStore.DeleteSubscription(push.TopicName(restaurantID, req.RoleID), req.Endpoint)
	} else {
		err = h.pushStore.DeleteByEndpoint(req.Endpoint)
	}
	if err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key.
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
