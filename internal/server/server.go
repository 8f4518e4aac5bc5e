// Package server implements the upload endpoints of the gallery API:
// destination issuance, confirm, duplicate check and the multipart
// init/complete/abort handshake.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/storage"
	"github.com/zaitanabil/galerly-sub009/internal/store"
)

// Options configures the API server.
type Options struct {
	Addr           string
	URLExpiry      time.Duration
	MaxUploadBytes int64
	ChunkSize      int64
}

// Server wires the photo store and the object-store presigner behind the
// upload API.
type Server struct {
	opts      Options
	store     store.Store
	presigner storage.Presigner
	logger    *zap.Logger
	http      *http.Server
}

// New creates a server.
func New(opts Options, st store.Store, presigner storage.Presigner, logger *zap.Logger) *Server {
	return &Server{
		opts:      opts,
		store:     st,
		presigner: presigner,
		logger:    logger,
	}
}

// Router builds the gin engine with all upload routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	uploads := r.Group("/api/uploads")
	{
		uploads.POST("/direct", s.handleDirectUpload)
		uploads.POST("/confirm", s.handleConfirmUpload)
		uploads.POST("/duplicates", s.handleCheckDuplicates)
		uploads.POST("/multipart/init", s.handleMultipartInit)
		uploads.POST("/multipart/complete", s.handleMultipartComplete)
		uploads.POST("/multipart/abort", s.handleMultipartAbort)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", zap.String("addr", s.opts.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
