package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pagebridge/pagebridge/internal/config"
	bridgehttp "github.com/pagebridge/pagebridge/internal/http"
	"github.com/pagebridge/pagebridge/internal/middleware"
	"github.com/pagebridge/pagebridge/internal/monitoring"
	"github.com/pagebridge/pagebridge/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Server hosts session connections plus the health and metrics
// surface.
type Server struct {
	cfg     config.Config
	router  *gin.Engine
	logger  *zap.Logger
	metrics *monitoring.Metrics
	httpSrv *http.Server

	mu       sync.Mutex
	sessions map[string]*Session

	started time.Time
}

// New assembles the server from configuration.
func New(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.New(registry)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
		started:  time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
			TTL:   10 * time.Minute,
		}))
	}

	handlers := bridgehttp.NewHandlers(s, s.started)
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// WebSocket
	router.GET("/ws", s.handleConnect)

	s.router = router
	return s
}

// Run starts the listener and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.Addr(),
		Handler: s.router,
	}

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.metrics.UpdateUptime()
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// addSession inserts the session unless the configured cap is already
// reached. Check and insert happen under one lock so concurrent
// upgrades cannot exceed the cap.
func (s *Server) addSession(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max := s.cfg.Session.MaxSessions; max > 0 && len(s.sessions) >= max {
		return false
	}
	s.sessions[session.ID()] = session
	return true
}

func (s *Server) removeSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session.ID())
}

// Count reports the number of active sessions.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// IDs lists the active session identifiers.
func (s *Server) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) handleConnect(c *gin.Context) {
	// Best-effort reject before upgrading; addSession is authoritative.
	if max := s.cfg.Session.MaxSessions; max > 0 && s.Count() >= max {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session limit reached"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	conn := transport.NewConn(ws, s.metrics)
	session := NewSession(conn, s.logger, s.metrics)

	if !s.addSession(session) {
		conn.WriteError("", "session limit reached")
		session.close()
		return
	}
	defer s.removeSession(session)

	session.evalTimeout = s.cfg.Session.EvalTimeout
	if rps := s.cfg.Session.EvalRPS; rps > 0 {
		burst := s.cfg.Session.EvalBurst
		if burst < 1 {
			burst = 1
		}
		session.evalLimit = rate.NewLimiter(rate.Limit(rps), burst)
	}
	session.Run(c.Request.Context())
}
