// Package api exposes the ingestion and query pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/metrics"
	"github.com/code-sleuth/ike-tube/internal/manager/ratelimit"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	routeIngest = "ingest"
	routeAsk    = "ask"
)

// Config represents API server configuration.
type Config struct {
	Addr          string
	IngestLimit   int
	AskLimit      int
	WindowSeconds int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	Stage         string

	// TrustedProxies lists the proxy addresses or CIDRs whose X-Forwarded-For
	// header is believed. Empty means the client IP is the peer address.
	TrustedProxies []string
}

// Server represents the API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer wires the routes and middleware around ingester and answerer.
func NewServer(config Config, ingester Ingester, answerer Answerer, limiter *ratelimit.Limiter) (*Server, error) {
	if config.IngestLimit <= 0 {
		config.IngestLimit = 5
	}
	if config.AskLimit <= 0 {
		config.AskLimit = 20
	}
	if config.WindowSeconds <= 0 {
		config.WindowSeconds = 60
	}
	if config.WriteTimeout <= 0 {
		// ingestion of a large channel can take minutes
		config.WriteTimeout = 10 * time.Minute
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if strings.EqualFold(config.Stage, "local") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := util.NewLoggerFromEnv().With().Str("component", "api").Logger()
	handler := NewHandler(ingester, answerer, logger)

	router := gin.New()
	// rate limits key on ClientIP, so forwarding headers count only from known proxies
	if err := router.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(SecurityHeaders())
	router.Use(RequestLogger(logger))

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.POST("/ingest",
			RateLimit(limiter, routeIngest, config.IngestLimit, config.WindowSeconds, logger),
			handler.Ingest)
		api.POST("/ask",
			RateLimit(limiter, routeAsk, config.AskLimit, config.WindowSeconds, logger),
			handler.Ask)
	}

	return &Server{
		config: config,
		router: router,
		httpServer: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger,
	}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
