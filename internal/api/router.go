package api

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intraceai/archive-viewer/internal/cache"
	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/internal/metrics"
	"github.com/intraceai/archive-viewer/internal/renderer"
	"github.com/intraceai/archive-viewer/pkg/models"
)

// Backend is the archive service the viewer reads from.
type Backend interface {
	ListSnapshots(ctx context.Context, domain string) (*models.ArchiveResponse, error)
	GetSnapshotContent(ctx context.Context, domain, timestamp string) ([]byte, error)
	DeleteSnapshots(ctx context.Context, domain string, snapshots []models.Snapshot) error
	Health(ctx context.Context) error
}

type Server struct {
	router      *gin.Engine
	backend     Backend
	cache       *cache.Cache
	jobs        *export.Jobs
	renderer    *renderer.Renderer
	backendURL  string
	allowDelete bool
	logger      *slog.Logger
}

type ServerConfig struct {
	Backend     Backend
	Cache       *cache.Cache
	Jobs        *export.Jobs
	Renderer    *renderer.Renderer
	BackendURL  string
	AllowDelete bool
	Logger      *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Cache == nil {
		cfg.Cache = cache.New(nil, cache.DefaultPolicy())
	}
	if cfg.Jobs == nil {
		cfg.Jobs = export.NewJobs(export.NewWorkflow(), 0)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = renderer.New("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(metricsMiddleware())
	router.SetHTMLTemplate(template.Must(parseTemplates()))

	s := &Server{
		router:      router,
		backend:     cfg.Backend,
		cache:       cfg.Cache,
		jobs:        cfg.Jobs,
		renderer:    cfg.Renderer,
		backendURL:  cfg.BackendURL,
		allowDelete: cfg.AllowDelete,
		logger:      cfg.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/", s.home)
	s.router.POST("/search", s.search)

	archive := s.router.Group("/archive/:domain")
	{
		archive.GET("", s.archivePage)
		archive.POST("/open", s.openSnapshot)
		archive.POST("/delete", s.deleteSnapshots)
		archive.POST("/export", s.startExport)
	}

	exports := s.router.Group("/exports")
	{
		exports.GET("/:id", s.exportPage)
		exports.GET("/:id/ws", s.exportProgress)
		exports.GET("/:id/download", s.downloadExport)
	}

	s.router.GET("/snapshot/:domain/:timestamp", s.viewSnapshot)
	if !s.renderer.SeparateOrigin() {
		s.router.GET("/raw/:domain/:timestamp", s.rawSnapshot)
	}

	api := s.router.Group("/api", corsMiddleware())
	{
		api.GET("/archive/:domain", s.archiveJSON)
		api.OPTIONS("/archive/:domain", func(c *gin.Context) {})
	}
}

// Handler serves the viewer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SandboxHandler serves only raw snapshot bodies, for use on a separate
// origin.
func (s *Server) SandboxHandler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(metricsMiddleware())
	router.GET("/health", s.healthCheck)
	router.GET("/raw/:domain/:timestamp", s.rawSnapshot)
	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	backend := "ok"
	if err := s.backend.Health(ctx); err != nil {
		backend = "unreachable"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": backend})
}

func (s *Server) newView() *collection.View {
	opts := []collection.Option{
		collection.WithBackendURL(s.backendURL),
		collection.WithLogger(s.logger),
	}
	if s.allowDelete {
		opts = append(opts, collection.WithDeleter(invalidatingDeleter{backend: s.backend, cache: s.cache}))
	}
	lister := collection.ListerFunc(func(ctx context.Context, domain string) (*models.ArchiveResponse, error) {
		return s.cache.Snapshots(ctx, domain, s.backend.ListSnapshots)
	})
	return collection.New(lister, opts...)
}

// invalidatingDeleter drops the cached listing after every delete
// attempt, failed ones included.
type invalidatingDeleter struct {
	backend Backend
	cache   *cache.Cache
}

func (d invalidatingDeleter) DeleteSnapshots(ctx context.Context, domain string, snapshots []models.Snapshot) error {
	err := d.backend.DeleteSnapshots(ctx, domain, snapshots)
	if cerr := d.cache.Invalidate(ctx, domain); cerr != nil {
		slog.Warn("cache invalidation failed", "domain", domain, "error", cerr)
	}
	return err
}
