// Package server wires the proxy, the notification stream relay and the
// replay store into an HTTP server with graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	demoproxy "github.com/AnandSundar/go-demoproxy"
	"github.com/AnandSundar/go-demoproxy/internal/config"
	"github.com/AnandSundar/go-demoproxy/mock"
	"github.com/AnandSundar/go-demoproxy/store"
)

// Server is the giftify-proxy HTTP server.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	handler http.Handler
	closers []func() error
}

// New builds the server from cfg. The caller must call Close to release the
// replay store.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{cfg: cfg, logger: logger}

	// No client timeout: the stream relay holds its upstream open indefinitely
	// and proxy calls are bounded by the inbound request context.
	client := &http.Client{}
	tokens := demoproxy.SessionTokens{Cookie: cfg.TokenCookie}
	opts := []demoproxy.Option{
		demoproxy.WithHTTPClient(client),
		demoproxy.WithTokenSource(tokens),
		demoproxy.WithMocks(mock.Default()),
		demoproxy.WithDemoMode(cfg.DemoMode),
		demoproxy.WithPrefix(cfg.ProxyPrefix),
	}

	var proxy http.Handler = demoproxy.New(cfg.BackendURL, append(opts, demoproxy.WithLogger(logger.Named("proxy")))...)
	if cfg.Idempotency.Enabled {
		replay, err := s.newStore()
		if err != nil {
			return nil, err
		}
		proxy = demoproxy.Idempotency(replay,
			demoproxy.WithTTL(cfg.Idempotency.TTL),
			demoproxy.WithReplayTokenSource(tokens),
			demoproxy.WithReplayLogger(logger.Named("idempotency")),
		)(proxy)
	}
	stream := demoproxy.NewStreamHandler(cfg.BackendURL, append(opts, demoproxy.WithLogger(logger.Named("stream")))...)

	mux := http.NewServeMux()
	mux.Handle(cfg.ProxyPrefix, proxy)
	mux.Handle(cfg.StreamPath, stream)
	mux.HandleFunc("GET /healthz", s.health)

	s.handler = recoverMiddleware(logger)(requestIDMiddleware(loggingMiddleware(logger)(mux)))
	return s, nil
}

func (s *Server) newStore() (demoproxy.Store, error) {
	switch s.cfg.Idempotency.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: s.cfg.Idempotency.RedisAddr})
		s.closers = append(s.closers, client.Close)
		s.logger.Info("idempotency enabled", zap.String("store", "redis"), zap.String("addr", s.cfg.Idempotency.RedisAddr))
		return store.NewRedisStore(client), nil
	case config.StoreMemory:
		memory := store.NewMemoryStore()
		s.closers = append(s.closers, memory.Close)
		s.logger.Info("idempotency enabled", zap.String("store", "memory"))
		return memory, nil
	default:
		return nil, fmt.Errorf("unknown idempotency store %q", s.cfg.Idempotency.Store)
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"demo_mode": s.cfg.DemoMode,
	})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting",
			zap.String("addr", ln.Addr().String()),
			zap.String("backend", s.cfg.BackendURL),
			zap.Bool("demo_mode", s.cfg.DemoMode),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the replay store.
func (s *Server) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
