package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dining/totable/internal/auth"
	"github.com/dining/totable/internal/database"
	"github.com/dining/totable/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.RestaurantStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db), store.NewRestaurantStore(db)
}

func TestRequireAuthNoCredentials(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidSessionCookie(t *testing.T) {
	ss, rs := setupAuthMiddlewareDB(t)

	r, err := rs.Create("owner@example.com", "Trattoria", "pw")
	if err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	sess, err := ss.Create(r.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ac, ok := auth.FromContext(req.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.RestaurantID != r.ID {
		t.Errorf("RestaurantID = %q, want %q", gotAC.RestaurantID, r.ID)
	}
	if gotAC.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", gotAC.SessionID, sess.ID)
	}
}

func TestRequireAuthBearerToken(t *testing.T) {
	ss, rs := setupAuthMiddlewareDB(t)

	r, err := rs.Create("owner@example.com", "Trattoria", "pw")
	if err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	sess, err := ss.Create(r.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	handler := RequireAuth(ss)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if auth.RestaurantID(req.Context()) != r.ID {
			t.Error("wrong restaurant in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
