// Package httpserver runs the service's HTTP listener with graceful
// shutdown, env-driven timeouts, lifecycle hooks, and a combined
// liveness/readiness probe handler.
//
// The caller owns signal handling: Run blocks until the passed context is
// cancelled (or the listener fails) and then drains in-flight requests
// within the shutdown timeout. Listen failures wrap ErrStart, shutdown
// failures wrap ErrShutdown.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var (
	// ErrStart reports that the listener could not start or exited abnormally.
	ErrStart = errors.New("httpserver: listener failed")
	// ErrShutdown reports that in-flight requests did not drain in time.
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)

// Config carries the listener settings, parsed from the environment.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`          // Addr is the listen address.
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`    // ReadTimeout bounds reading one full request.
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`   // WriteTimeout bounds writing one full response.
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`   // IdleTimeout bounds keep-alive waits between requests.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout bounds draining on shutdown.
}

// Server wraps http.Server with context-driven lifecycle management.
type Server struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	onStart         []func(*slog.Logger)
	onStop          []func(*slog.Logger)

	mu       sync.Mutex
	srv      *http.Server
	shutdown sync.Once
}

// Option adjusts a Server at construction time.
type Option func(*Server)

// WithAddr sets the listen address. Panics on an empty address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: WithAddr requires an address")
	}
	return func(s *Server) { s.addr = addr }
}

// WithReadTimeout bounds how long one request may take to arrive.
func WithReadTimeout(d time.Duration) Option {
	mustPositive("WithReadTimeout", d)
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout bounds how long one response may take to send.
func WithWriteTimeout(d time.Duration) Option {
	mustPositive("WithWriteTimeout", d)
	return func(s *Server) { s.writeTimeout = d }
}

// WithIdleTimeout bounds keep-alive waits between requests.
func WithIdleTimeout(d time.Duration) Option {
	mustPositive("WithIdleTimeout", d)
	return func(s *Server) { s.idleTimeout = d }
}

// WithShutdownTimeout bounds request draining during shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("WithShutdownTimeout", d)
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithLogger supplies the lifecycle logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStartHook runs h right before the listener starts accepting.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: WithStartHook requires a hook")
	}
	return func(s *Server) { s.onStart = append(s.onStart, h) }
}

// WithStopHook runs h after the listener has drained.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: WithStopHook requires a hook")
	}
	return func(s *Server) { s.onStop = append(s.onStop, h) }
}

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + " requires a positive duration")
	}
}

// New creates a Server with the package defaults and applies opts.
func New(opts ...Option) *Server {
	s := &Server{
		addr:            ":8080",
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// NewFromConfig creates a Server from cfg. Zero-valued config fields keep
// the package defaults; opts apply last and win.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	all := make([]Option, 0, len(opts)+5)
	if cfg.Addr != "" {
		all = append(all, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		all = append(all, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		all = append(all, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		all = append(all, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		all = append(all, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	all = append(all, opts...)
	return New(all...)
}

// Run serves handler until ctx is cancelled, then shuts down gracefully.
// It returns nil on a clean shutdown. A Server runs at most once.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, errors.New("already running"))
	}
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	srv := s.srv
	s.mu.Unlock()

	for _, h := range s.onStart {
		h(s.logger)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	var err error
	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.Background())
		err = <-serveErr
	case err = <-serveErr:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}
	return nil
}

// Shutdown drains in-flight requests within the shutdown timeout and runs
// the stop hooks. Safe to call more than once; later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdown.Do(func() {
		s.mu.Lock()
		srv := s.srv
		s.mu.Unlock()
		if srv == nil {
			return
		}
		drainCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(drainCtx)
		for _, h := range s.onStop {
			h(s.logger)
		}
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
