// Package server exposes the HTTP API: subject management, uploads, file
// serving with alternate-path fallback, listings, verification, storage
// sync, and profile pictures.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sncop/coursestore/internal/logger"
	"github.com/sncop/coursestore/internal/storage"
	"github.com/sncop/coursestore/pkg/config"
)

// Server is the HTTP front-end over the storage catalog.
type Server struct {
	cfg      config.ServerConfig
	catalog  *storage.Catalog
	layout   *storage.Layout
	pipeline *storage.Pipeline
	profiles *ProfileStore
	engine   *gin.Engine
	httpSrv  *http.Server
}

// New builds a server with all routes registered.
func New(cfg config.ServerConfig, catalog *storage.Catalog, layout *storage.Layout, profiles *ProfileStore) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		catalog:  catalog,
		layout:   layout,
		pipeline: storage.NewPipeline(layout, catalog),
		profiles: profiles,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.MaxMultipartMemory = 32 << 20
	s.registerRoutes()

	s.httpSrv = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs the HTTP server until ctx is canceled, then drains in-flight
// requests within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s", s.cfg.ListenAddress)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown did not complete: %v", err)
		return err
	}
	return <-errCh
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.POST("/subjects", s.createSubject)
		api.POST("/subjects/:subjectName/units", s.addUnit)
		api.DELETE("/subjects/:subjectName", s.deleteSubject)

		api.POST("/upload", s.upload)

		// Optional trailing :unit becomes two registered routes.
		api.GET("/files/:subject/:type", s.listFiles)
		api.GET("/files/:subject/:type/:unit", s.listOrServeFile)
		api.GET("/files/:subject/:type/:unit/:filename", s.serveFile)
		// gin requires the same wildcard name per position, so the
		// three-segment delete reads its filename from :unit.
		api.DELETE("/files/:subject/:type/:unit", s.deleteFileFlat)
		api.DELETE("/files/:subject/:type/:unit/:filename", s.deleteFileNested)

		api.POST("/verify-files", s.verifyFiles)
		api.GET("/storage-sync", s.storageSync)
		api.GET("/storage-sync/:subject", s.storageSync)
		api.GET("/assignments", s.assignments)
		api.GET("/health", s.health)

		api.POST("/upload-profile-picture", s.uploadProfilePicture)
		api.GET("/profile-pictures/:filename", s.serveProfilePicture)
		api.DELETE("/remove-profile-picture", s.removeProfilePicture)
	}

	s.engine.Static("/storage", s.layout.Root())

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
		})
	})
}

// requestLogger logs each request through the service logger instead of
// gin's default writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
