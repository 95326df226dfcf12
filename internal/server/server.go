package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dining/totable/internal/backup"
	"github.com/dining/totable/internal/feed"
	"github.com/dining/totable/internal/handler"
	"github.com/dining/totable/internal/middleware"
	"github.com/dining/totable/internal/orders"
	"github.com/dining/totable/internal/push"
	"github.com/dining/totable/internal/store"
	ws "github.com/dining/totable/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *feed.Hub
	authH         *handler.AuthHandler
	orderH        *handler.OrderHandler
	roleH         *handler.RoleHandler
	pushH         *handler.PushHandler // nil when push is not configured
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	restaurantStore := store.NewRestaurantStore(db)
	sessionStore := store.NewSessionStore(db)
	roleStore := store.NewRoleStore(db)
	orderStore := store.NewOrderStore(db)
	pushStore := store.NewPushStore(db)

	hub := feed.NewHub(orderStore.ListDocuments, logger.With("component", "feed"))
	mutator := orders.NewMutator(orderStore, logger.With("component", "orders"))

	var pushH *handler.PushHandler
	var notifier *push.Notifier
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		svc := push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(svc, pushStore, pushLogger)
		pushH = handler.NewPushHandler(pushStore, svc, pushLogger)
	}

	backupMgr := backup.NewManager(backupCfg, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(restaurantStore, sessionStore, logger.With("component", "auth")),
		orderH:        handler.NewOrderHandler(orderStore, hub, mutator, notifier, logger.With("component", "order")),
		roleH:         handler.NewRoleHandler(roleStore, logger.With("component", "role")),
		pushH:         pushH,
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Order API routes
	mux.HandleFunc("POST /api/orders", s.orderH.Create)
	mux.HandleFunc("GET /api/orders", s.orderH.List)
	mux.HandleFunc("GET /api/orders/{id}", s.orderH.Get)
	mux.HandleFunc("POST /api/orders/{id}/advance", s.orderH.Advance)
	mux.HandleFunc("DELETE /api/orders/{id}", s.orderH.Delete)

	// Role API routes
	mux.HandleFunc("GET /api/roles", s.roleH.List)
	mux.HandleFunc("POST /api/roles", s.roleH.Create)
	mux.HandleFunc("DELETE /api/roles/{id}", s.roleH.Delete)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// Live order feed
	mux.HandleFunc("GET /api/orders/feed", ws.Handler(s.hub, s.logger.With("component", "websocket")))
}
