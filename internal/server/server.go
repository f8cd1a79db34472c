package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/client"
	"catalog-admin/internal/config"
	"catalog-admin/internal/database"
	custommiddleware "catalog-admin/internal/middleware"
	"catalog-admin/internal/session"
	"catalog-admin/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	janitorInterval = 5 * time.Minute
	workspaceIdle   = 30 * time.Minute
)

var ErrUnknownSessionStore = errors.New("unknown session store")

type Server struct {
	*http.Server
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	store      session.Store
	workspaces *transport.Workspaces

	stopJanitor context.CancelFunc
	janitorDone sync.WaitGroup
}

// NewServer wires the console. db and rdb may be nil when the configured
// session store does not need them.
func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, rdb *redis.Client) (*Server, error) {
	store, err := newStore(cfg.Session, db, rdb)
	if err != nil {
		return nil, err
	}

	renderer, err := transport.NewRenderer(logger)
	if err != nil {
		return nil, err
	}

	// Create the backend client
	apiClient := client.New(cfg.Catalog.BaseURL,
		client.WithTimeout(cfg.Catalog.Timeout),
		client.WithLogger(logger.Named("client")),
	)
	authAPI := catalog.NewAuthAPI(apiClient)
	productAPI := catalog.NewProductAPI(apiClient, cfg.Catalog.ServerSort)

	workspaces := transport.NewWorkspaces(productAPI, store, transport.WorkspaceConfig{
		CacheMaxAge: cfg.Catalog.CacheMaxAge,
		Debounce:    cfg.Catalog.SearchDebounce,
		AutoLoad:    true,
		LoadTimeout: cfg.Catalog.Timeout,
	}, logger)

	cookie := custommiddleware.SessionCookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
	}

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authAPI, store, workspaces, renderer, cookie, logger)
	productHandler := transport.NewProductHandler(workspaces, renderer, cookie, logger)
	apiHandler := transport.NewAPIHandler(workspaces, cookie, logger)

	s := &Server{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      rdb,
		store:      store,
		workspaces: workspaces,
	}

	// Create router
	router := chi.NewRouter()
	router.Use(custommiddleware.BaseStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.SessionMiddleware(store, cookie, logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))

	router.Get("/health", s.health)

	loginLimit := custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.LoginLimit,
		Window:            cfg.RateLimit.LoginWindow,
		KeyPrefix:         "catalog-admin:ratelimit:signin",
		OnLimit:           authHandler.TooManyAttempts,
	}, logger)
	requireSession := custommiddleware.RequireSession(logger)
	cors := custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env != "production")

	// Register routes
	authHandler.RegisterRoutes(router, loginLimit)
	productHandler.RegisterRoutes(router, requireSession)
	apiHandler.RegisterRoutes(router, cors, requireSession)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	s.janitorDone.Add(1)
	go s.janitor(ctx)

	return s, nil
}

func newStore(cfg config.SessionConfig, db *sql.DB, rdb *redis.Client) (session.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return session.NewMemoryStore(cfg.TTL), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis session store needs REDIS_HOST")
		}
		return session.NewRedisStore(rdb, cfg.TTL), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("postgres session store needs a database")
		}
		return session.NewPostgresStore(db, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSessionStore, cfg.Store)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}

	if s.db != nil {
		dbHealth := database.Health(r.Context(), s.db)
		body["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			body["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["redis"] = "up"
		}
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

// janitor closes idle workspaces and purges expired sessions from stores
// that keep them
func (s *Server) janitor(ctx context.Context) {
	defer s.janitorDone.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	if n := s.workspaces.Sweep(workspaceIdle); n > 0 {
		s.logger.Info("Closed idle workspaces", zap.Int("count", n))
	}

	sweeper, ok := s.store.(session.Sweeper)
	if !ok {
		return
	}
	n, err := sweeper.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("Failed to purge expired sessions", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Purged expired sessions", zap.Int64("count", n))
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.stopJanitor()
	s.janitorDone.Wait()
	s.workspaces.Sweep(-time.Hour)

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
