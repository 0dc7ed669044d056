package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/poiesic/gamescout/core"
)

var (
	// ErrSearcherRequired indicates a nil searcher was provided.
	ErrSearcherRequired = errors.New("searcher is required")

	// ErrLabelsRequired indicates a nil label source was provided.
	ErrLabelsRequired = errors.New("label source is required")
)

// Searcher answers hybrid queries. search.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, filter core.SearchFilter) ([]*core.SearchResult, error)
}

// Labels lists the known filter values. storage.GameRepository satisfies it.
type Labels interface {
	Categories(ctx context.Context) ([]string, error)
	Genres(ctx context.Context) ([]string, error)
}

// Config holds the HTTP settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// Mode is the gin mode: debug, release or test.
	Mode string
	// AllowOrigins lists CORS origins. Empty allows every origin.
	AllowOrigins []string
}

// DefaultConfig returns a release-mode config listening on :8080.
func DefaultConfig() Config {
	return Config{Addr: ":8080", Mode: gin.ReleaseMode}
}

// Server exposes search and label listing over HTTP.
type Server struct {
	config   Config
	router   *gin.Engine
	searcher Searcher
	labels   Labels
	server   *http.Server
	logger   *slog.Logger
}

// New creates a server with its routes and middleware installed.
// A nil logger means slog.Default().
func New(cfg Config, searcher Searcher, labels Labels, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if labels == nil {
		return nil, ErrLabelsRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		searcher: searcher,
		labels:   labels,
		logger:   logger.With("component", "server"),
	}
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(corsMiddleware(s.config.AllowOrigins))

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.POST("/search", s.search)
		api.GET("/categories", s.categories)
		api.GET("/genres", s.genres)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
