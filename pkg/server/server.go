// Package server exposes the export directory and store statistics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/storage"
	"tikscraper/pkg/store"
)

// Server exposes record statistics and the export directory over HTTP
type Server struct {
	logger    logger.Logger
	store     store.Store
	exportDir string
	router    *gin.Engine
}

// New builds the router. s may be nil, in which case /api/stats reports
// 503.
func New(log logger.Logger, s store.Store, exportDir string) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &Server{
		logger:    log,
		store:     s,
		exportDir: exportDir,
		router:    gin.New(),
	}

	r := srv.router
	r.Use(gin.Recovery())
	r.Use(srv.loggingMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	{
		api.GET("/stats", srv.stats)
		api.GET("/exports", srv.listExports)
		api.GET("/exports/latest", srv.latestExport)
	}

	return srv
}

// Handler returns the router, for tests and for mounting under another
// server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("http server listening", map[string]interface{}{"addr": addr})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.DebugWithFields("http request", map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		})
	}
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func (s *Server) stats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("no_store", "no database configured"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.WithError(err).Error("stats query failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "failed to read statistics"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) listExports(c *gin.Context) {
	files, err := storage.NewManager(s.exportDir)
	if err != nil {
		s.logger.WithError(err).Error("export directory unavailable")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "export directory unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": files.List()})
}

func (s *Server) latestExport(c *gin.Context) {
	files, err := storage.NewManager(s.exportDir)
	if err != nil {
		s.logger.WithError(err).Error("export directory unavailable")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "export directory unavailable"))
		return
	}

	path, err := files.Latest()
	if errors.Is(err, storage.ErrNoExports) {
		c.JSON(http.StatusNotFound, errorBody("not_found", "no export available, run tikscraper export first"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("internal", err.Error()))
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
