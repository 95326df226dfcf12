package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/model"
	"github.com/dining/totable/internal/store"
)

type RoleHandler struct {
	roleStore *store.RoleStore
	logger    *slog.Logger
}

func NewRoleHandler(rs *store.RoleStore, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{roleStore: rs, logger: logger}
}

// List handles GET /api/roles. Devices pick their persona from this list.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	roles, err := h.roleStore.ListByRestaurant(restaurantID)
	if err != nil {
		h.logger.Error("list roles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list roles")
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	writeJSON(w, http.StatusOK, roles)
}

type createRoleRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/roles.
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())

	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	role, err := h.roleStore.Create(restaurantID, req.Name)
	if err != nil {
		h.logger.Error("create role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create role")
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

// Delete handles DELETE /api/roles/{id}.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())
	id := r.PathValue("id")

	role, err := h.roleStore.GetByID(id)
	if err != nil {
		h.logger.Error("get role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	if role == nil || role.RestaurantID != restaurantID {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	if err := h.roleStore.Delete(id); err != nil {
		h.logger.Error("delete role", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
