//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=server_mocks
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tracklive/internal/engine"
	"tracklive/internal/hub"
	"tracklive/internal/track"
)

const defaultHeartbeat = 25 * time.Second

// Engine is the tracking core the HTTP layer exposes.
type Engine interface {
	ProcessEvent(ctx context.Context, payload map[string]any) engine.Result
	QueryState(ctx context.Context, key string) track.OrderState
	MockEvent(ctx context.Context, key, rawStatus string) (track.OrderState, error)
	Subscribe(ctx context.Context, key string) (*hub.Subscriber, error)
	Unsubscribe(sub *hub.Subscriber)
}

// Config carries the HTTP-facing knobs.
type Config struct {
	Addr              string
	WebhookToken      string
	WebhookSecret     string
	AdminPasswordHash string
	Heartbeat         time.Duration
}

type Server struct {
	engine Engine
	cfg    Config
	log    *zap.Logger
	server *http.Server
}

func New(engine Engine, cfg Config, log *zap.Logger) *Server {
	return &Server{
		engine: engine,
		cfg:    cfg,
		log:    log.With(zap.String("component", "http")),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. Request
// contexts derive from ctx, so open event streams end with the server.
func (s *Server) Run(ctx context.Context) error {
	router := s.routes()

	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// WriteTimeout stays zero: /orders/{order}/events streams indefinitely.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown failed", zap.Error(err))
		}
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	webhooks := r.PathPrefix("/webhooks").Subrouter()
	webhooks.Use(s.webhookAuthMiddleware)
	webhooks.HandleFunc("/delivery", s.handleWebhook).Methods(http.MethodPost)

	r.HandleFunc("/orders/{order}", s.handleQuery).Methods(http.MethodGet)
	r.HandleFunc("/orders/{order}/events", s.handleEvents).Methods(http.MethodGet)

	// Manual injection stays off entirely unless an admin credential is set.
	if s.cfg.AdminPasswordHash != "" {
		r.Handle("/orders/{order}/mock",
			s.adminAuthMiddleware(http.HandlerFunc(s.handleMock))).Methods(http.MethodPost)
	}

	return r
}

func (s *Server) heartbeatEvery() time.Duration {
	if s.cfg.Heartbeat > 0 {
		return s.cfg.Heartbeat
	}
	return defaultHeartbeat
}
