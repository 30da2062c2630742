// Package api serves the dashboard: REST endpoints per engine and a websocket status stream.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/trading"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit  = 100
	maxHistoryLimit      = 5000
	defaultSuggestLimit  = 500
	defaultSuggestPeriod = "1h"
	statusTimeout        = 5 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// Server exposes a trading.System over HTTP.
type Server struct {
	system trading.System
	hub    *Hub
	log    *logger.Logger

	// baseCtx outlives requests; engines started over HTTP run under it.
	baseCtx context.Context

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server. Engines started through the API stop when ctx is cancelled.
func NewServer(ctx context.Context, system trading.System, hub *Hub, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if hub == nil {
		hub = NewHub(log)
	}

	return &Server{
		system:     system,
		hub:        hub,
		log:        log.Named("api"),
		baseCtx:    ctx,
		httpServer: nil,
		listener:   nil,
	}
}

// Handler returns the router with every endpoint registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleStream)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	v1.HandleFunc("/pairs", s.handlePairs).Methods(http.MethodGet)
	v1.HandleFunc("/pairs/suggest", s.handleSuggestPair).Methods(http.MethodGet)
	v1.HandleFunc("/engines", s.handleListEngines).Methods(http.MethodGet)

	e := v1.PathPrefix("/engines/{engine}").Subrouter()
	e.HandleFunc("", s.handleStatus).Methods(http.MethodGet)
	e.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	e.HandleFunc("/config", s.handlePutConfig).Methods(http.MethodPut)
	e.HandleFunc("/config", s.handlePatchConfig).Methods(http.MethodPatch)
	e.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	e.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	e.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	e.HandleFunc("/preview", s.handlePreview).Methods(http.MethodPost)
	e.HandleFunc("/trade", s.handleManualTrade).Methods(http.MethodPost)
	e.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	e.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	e.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	e.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	for _, r := range []*mux.Router{router, v1, e} {
		r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	router.Use(s.logRequests)

	return router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start listens on address and serves in the background.
// If address is empty or ":0", a random available port is used.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeConfigInvalid, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.log.Info("HTTP server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// BroadcastStatus pushes the status of every engine to the stream every interval until ctx is done.
// Status is also pushed by the engines after each tick; this keeps idle dashboards current.
func (s *Server) BroadcastStatus(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}

			for _, status := range s.statuses(ctx) {
				s.hub.Publish(trading.Event{Type: trading.EventStatus, Engine: status.Engine, Time: time.Now(), Payload: status})
			}
		}
	}
}
