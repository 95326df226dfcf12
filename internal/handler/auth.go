package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/store"
)

const sessionCookieName = "totable_session"

type AuthHandler struct {
	restaurantStore *store.RestaurantStore
	sessionStore    *store.SessionStore
	logger          *slog.Logger
}

func NewAuthHandler(rs *store.RestaurantStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		restaurantStore: rs,
		sessionStore:    ss,
		logger:          logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/login. On success it issues a session token,
// returned in the body for device agents and set as a cookie for browsers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	restaurant, err := h.restaurantStore.Authenticate(req.Email, req.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	sess, err := h.sessionStore.Create(restaurant.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"restaurant": restaurant,
	})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		token = cookie.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			token = t
		}
	}
	if token != "" {
		if err := h.sessionStore.Delete(token); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me, returning the authenticated restaurant.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	restaurantID := auth.RestaurantID(r.Context())
	restaurant, err := h.restaurantStore.GetByID(restaurantID)
	if err != nil || restaurant == nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}
