// Package server hosts a gin engine as an app runnable with graceful
// shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"grocerly/internal/middleware"
	"grocerly/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type HTTP struct {
	name   string
	addr   string
	engine *gin.Engine
	log    *logger.Logger
}

func NewHTTP(name, port string, engine *gin.Engine, log *logger.Logger) *HTTP {
	return &HTTP{
		name:   name,
		addr:   ":" + port,
		engine: engine,
		log:    log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTP) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("%s: listening on %s", s.name, s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Infof("%s: shutting down", s.name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// NewEngine builds a gin engine with the shared middleware stack and a
// health endpoint.
func NewEngine(environment string, log *logger.Logger) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CorrelationMiddleware(),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return engine
}
