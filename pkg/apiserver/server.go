// Package apiserver exposes a read-only debug and metrics surface over a
// running dual-tree queue: size/empty introspection, a metrics snapshot,
// a live event stream, and a login route gating the rest. Grounded on the
// teacher's pkg/api server.go (gin + gin-contrib/cors setup) and
// pkg/auth/jwt.go (JWT issuance).
package apiserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
)

// Config configures the debug server.
type Config struct {
	Listen      string
	JWTSecret   string
	TokenExpiry time.Duration
	CorsOrigins []string
}

// Server is the HTTP debug/metrics surface over a dualtree.Queue.
type Server struct {
	cfg    Config
	queue  *dualtree.Queue
	auth   *authService
	events *eventHub
	logger *slog.Logger
	srv    *http.Server
}

// New constructs a Server for queue.
func New(cfg Config, queue *dualtree.Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		queue:  queue,
		auth:   newAuthService(cfg.JWTSecret, cfg.TokenExpiry),
		events: newEventHub(logger),
		logger: logger,
	}
	queue.WithObserver(func(ev dualtree.Event) {
		s.events.Publish(Event{Kind: ev.Kind, SlotIndex: ev.SlotIndex, CacheID: ev.CacheID, Time: time.Now()})
	})
	return s
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.logger.Info("starting debug api server", "address", s.cfg.Listen)
	return s.srv.ListenAndServe()
}

// SetOperatorPassword hashes and stores the password the login route
// checks. It must be called before Start; until then every login attempt
// is rejected.
func (s *Server) SetOperatorPassword(password string) error {
	return s.auth.SetOperatorPassword(password)
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = s.cfg.CorsOrigins
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.POST("/v1/auth/login", s.handleLogin)

	v1 := r.Group("/v1/queue")
	v1.Use(s.auth.middleware())
	v1.GET("/size", s.handleSize)
	v1.GET("/empty", s.handleEmpty)
	v1.GET("/metrics", s.handleMetrics)
	v1.GET("/stream", s.handleStream)

	return r
}
