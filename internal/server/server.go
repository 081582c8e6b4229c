// internal/server/server.go
// HTTP server setup with dependency injection: wires the storage,
// changelog, sync engine, view cache and websocket hub into the
// internal/api route surface.

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tournament-engine/internal/api"
	"tournament-engine/internal/changelog"
	"tournament-engine/internal/config"
	"tournament-engine/internal/database"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/syncengine"
	"tournament-engine/internal/viewcache"
	"tournament-engine/internal/websocket"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	hub    *websocket.Hub
	logger *log.Logger
	server *http.Server
}

// New creates a new server with all dependencies wired: an
// entities.Store and changelog.LogStore over the MySQL connection
// (their schemas ensured up front), a syncengine.Engine over both, a
// viewcache.Cache backed by the built-in draw/tab/status views, and
// the websocket hub that broadcasts their change notifications.
func New(ctx context.Context, cfg *config.Config, db *database.Connections, logger *log.Logger) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store := entities.NewMySQLStore(db.MySQL)
	logStore := changelog.NewMySQLLogStore(db.MySQL)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure entity schema: %w", err)
	}
	if err := logStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure log schema: %w", err)
	}
	syncEngine := syncengine.NewEngine(store, logStore)

	hub := websocket.NewHub(logger)
	if cfg.Features.EnableWebSocket {
		go hub.Run()
	}

	views := viewcache.NewCache(store, viewcache.DefaultFactory, func(format string, args ...interface{}) {
		logger.Printf(format, args...)
	})

	deps := &api.Deps{
		Store:  store,
		Log:    logStore,
		Sync:   syncEngine,
		Views:  views,
		Hub:    hub,
		MySQL:  db.MySQL,
		Redis:  db.Redis,
		Mongo:  db.MongoDB,
		Config: cfg,
		Logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		config: cfg,
		router: router,
		hub:    hub,
		logger: logger,
		server: srv,
	}, nil
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down server...")
	return s.server.Shutdown(ctx)
}
