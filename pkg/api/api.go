package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/apiresponses"
	"github.com/moative/overlap-escalation/pkg/config"
	"github.com/moative/overlap-escalation/pkg/metrics"
	"github.com/moative/overlap-escalation/pkg/ratelimit"
	"github.com/moative/overlap-escalation/pkg/system"
	"github.com/moative/overlap-escalation/pkg/version"
)

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// HealthChecker is consulted by /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	gin         *gin.Engine
	config      config.Config
	log         *zap.SugaredLogger
	health      HealthChecker
	rateLimiter *ratelimit.IPRateLimiter
	http        *http.Server
}

// NewServer builds the engine with logging, recovery, CORS and rate limiting
// middleware. health may be nil.
func NewServer(log *zap.Logger, cfg config.Config,
	debug bool, health HealthChecker,
) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar().Named("http")),
	)
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Sugar().Warnw("Invalid trusted proxies, trusting none", "proxies", cfg.Server.TrustedProxies, "error", err)
			_ = engine.SetTrustedProxies(nil)
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	if origins := allowedOrigins(cfg, debug); len(origins) > 0 {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: origins,
				AllowMethods: []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Content-Type", system.RequestIDHeader},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
		log:    log.Sugar().Named("api"),
		health: health,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if rlCfg, ok := ratelimit.FromConfig(cfg.RateLimit); ok {
		s.rateLimiter = ratelimit.New(rlCfg)
	}

	engine.NoRoute(func(c *gin.Context) {
		apiresponses.RespondNotFound(c, "route", c.Request.URL.Path)
	})
	engine.GET("/healthz", s.getHealth)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return s
}

func allowedOrigins(cfg config.Config, debug bool) []string {
	var origins []string
	if cfg.Frontend.BaseURL != "" {
		origins = append(origins, strings.TrimRight(cfg.Frontend.BaseURL, "/"))
	}
	origins = append(origins, cfg.Frontend.AllowedOrigins...)
	if debug {
		origins = append(origins, "http://localhost:5173", "http://127.0.0.1:8080")
	}
	return origins
}

// RegisterAll mounts /api/version and every controller below /api, behind
// the rate limiter.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Middleware())
	}
	r.Use(countRequests())
	r.GET("/version", s.getVersion)
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.APIEndpointRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *Server) Listen() error {
	s.log.Infow("HTTP server listening", "address", s.config.Server.ListenAddress,
		"tls", s.config.Server.TLSCertFile != "")

	var err error
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		err = s.http.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	} else {
		err = s.http.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Close releases background resources held by middleware.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) getHealth(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warnw("Health check failed", "error", err)
			apiresponses.RespondServiceUnavailable(c, "store")
			return
		}
	}
	apiresponses.RespondOK(c, gin.H{"status": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	apiresponses.RespondOK(c, version.GetBuildInfo())
}
