// Package livehttp serves the read-only HTTP API of a running engine.
package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"quorum/internal/logger"

	"github.com/gin-gonic/gin"
)

const shutdownGrace = 5 * time.Second

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr string
	Deps Deps
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Deps.Store == nil && cfg.Deps.Engine == nil {
		return nil, errors.New("live http server requires a store or an engine")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	return &Server{addr: cfg.Addr, router: newEngine(cfg.Deps)}, nil
}

func newEngine(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewRouter(deps).Register(router.Group("/api/v1"))
	return router
}

func requestLogger() gin.HandlerFunc {
	log := logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		log.Debug("request", attrs...)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled or the listener fails. Shutdown waits
// up to shutdownGrace for in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe() }()
	logger.Infof("http api listening on %s", s.addr)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
