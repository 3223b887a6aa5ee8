package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantfolio/portfolio-engine/internal/analytics"
	"github.com/quantfolio/portfolio-engine/internal/store"
	"github.com/quantfolio/portfolio-engine/internal/ws"
	"github.com/quantfolio/portfolio-engine/pkg/metrics"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
	"github.com/quantfolio/portfolio-engine/pkg/utils/ratelimit"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
	RateLimit    int
	RateBurst    int
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	engine     *analytics.Engine
	registry   *analytics.Registry
	portfolios *store.PortfolioStore
	hub        *ws.Hub
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewServer creates a new API server
func NewServer(config Config, engine *analytics.Engine, registry *analytics.Registry, portfolios *store.PortfolioStore, hub *ws.Hub, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:     config,
		router:     gin.New(),
		engine:     engine,
		registry:   registry,
		portfolios: portfolios,
		hub:        hub,
		recorder:   recorder,
		log:        logger.GetLogger("api.server"),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware())
	s.router.Use(RecoveryMiddleware())
	s.router.Use(CORSMiddleware())
	if s.recorder != nil {
		s.router.Use(MetricsMiddleware(s.recorder))
	}
	s.router.Use(RateLimitMiddleware(ratelimit.NewBucket(float64(s.config.RateLimit), s.config.RateBurst)))

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.hub != nil {
		s.router.GET("/ws", func(c *gin.Context) {
			s.hub.HandleWebSocket(c.Writer, c.Request)
		})
	}

	v1 := s.router.Group("/api/v1")

	portfolio := v1.Group("/portfolio")
	portfolio.POST("/risk", s.handleRisk)
	portfolio.POST("/analyze", s.handleAnalyze)
	portfolio.POST("/optimize", s.handleOptimize)
	portfolio.POST("/monte-carlo", s.handleMonteCarlo)
	portfolio.POST("/market-data", s.handleMarketData)

	portfolios := v1.Group("/portfolios")
	portfolios.POST("", s.handleUpsertPortfolio)
	portfolios.GET("", s.handleListPortfolios)
	portfolios.GET("/:id", s.handleGetPortfolio)
	portfolios.DELETE("/:id", s.handleDeletePortfolio)

	v1.GET("/analyzers", s.handleListAnalyzers)
}

// Start starts the API server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
