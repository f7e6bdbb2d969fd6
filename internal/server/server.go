package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/AgentOS/gfxboot/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/tracing"
)

const shutdownTimeout = 5 * time.Second

// Sources are the components the diagnostics endpoints report on
type Sources struct {
	Registry handlers.DisplayRegistry
	Tasks    handlers.TaskLister
	Boot     handlers.BootReporter
}

// Server wraps the diagnostics HTTP server
type Server struct {
	router  *gin.Engine
	addr    string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates the diagnostics server. metrics and tracer may be nil.
func New(cfg *config.Config, src Sources, logger *logging.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("server")

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	h := handlers.NewHandlers(src.Registry, src.Tasks, src.Boot)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/display", h.Display)
	router.GET("/tasks", h.ListTasks)
	router.GET("/boot", h.Boot)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		router:  router,
		addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		logger:  logger,
		metrics: metrics,
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting diagnostics server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down diagnostics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
