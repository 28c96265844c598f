package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/extension"
	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/host/simhost"
	"github.com/dshills/reabridge/internal/observability"
	"github.com/dshills/reabridge/internal/reaper"
)

// DefaultCallTimeout bounds how long a request waits for the main thread.
const DefaultCallTimeout = 2 * time.Second

// ErrServerRunning is returned when Start is called twice.
var ErrServerRunning = errors.New("server already running")

// Host is the part of the simulated host the server drives.
type Host interface {
	Call(ctx context.Context, fn func()) error
	Invoke(name string) error
	ToggleState(name string) (host.ToggleActionResult, error)
	CommandName(id host.CommandID) (string, bool)
	Registrations() simhost.Registrations
	Version() *semver.Version
	Blocks() uint64
}

// Extensions is the part of the extension manager the server drives.
type Extensions interface {
	List() []extension.Status
	Reload(name string) error
}

// Server is the HTTP introspection server.
type Server struct {
	host       Host
	reaper     *reaper.Reaper
	extensions Extensions
	logger     *zap.Logger
	timeout    time.Duration
	started    time.Time
	engine     *gin.Engine

	mu   sync.Mutex
	http *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCallTimeout sets how long a request waits for the main thread.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithExtensions enables the extension routes.
func WithExtensions(e Extensions) Option {
	return func(s *Server) {
		s.extensions = e
	}
}

// New builds the server and its routes.
func New(h Host, r *reaper.Reaper, opts ...Option) *Server {
	s := &Server{
		host:    h,
		reaper:  r,
		logger:  zap.NewNop(),
		timeout: DefaultCallTimeout,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observability.RequestLogger(s.logger))
	engine.Use(observability.RequestMetricsMiddleware())
	_ = engine.SetTrustedProxies(nil)
	s.engine = engine
	s.registerRoutes()
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr and serves in the background. It returns the
// address actually bound, which differs from addr when addr ends in ":0".
func (s *Server) Start(addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return "", ErrServerRunning
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.http
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// onMain runs fn on the host's main thread within the request's deadline.
func (s *Server) onMain(c *gin.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()
	return s.host.Call(ctx, fn)
}
