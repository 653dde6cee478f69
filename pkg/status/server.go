package status

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/julienschmidt/httprouter"
	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/skevetter/echod/pkg/echo"
)

const shutdownTimeout = 5 * time.Second

// Source is the echo server state exposed over HTTP
type Source interface {
	Ready() bool
	Tracker() *echo.ConnectionTracker
	Metrics() *echo.Metrics
}

// Server exposes health, readiness, live connections and metrics of an
// echo server.
type Server struct {
	addr   string
	source Source
	server *http.Server
	log    log.Logger
}

// NewServer creates a new status server
func NewServer(addr string, source Source, log log.Logger) *Server {
	return &Server{
		addr:   addr,
		source: source,
		log:    log,
	}
}

// Handler returns the routed and instrumented HTTP handler
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	router := httprouter.New()
	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)
	router.GET("/connections", s.handleConnections)
	router.GET("/connections/:id", s.handleConnection)
	router.GET("/metrics", s.handleMetrics)

	return handlers.RecoveryHandler()(handlers.LoggingHandler(accessLog, router))
}

// Start binds the configured address and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	accessLog := s.log.Writer(logrus.DebugLevel, false)
	defer func() { _ = accessLog.Close() }()

	s.server = &http.Server{
		Handler:           s.Handler(accessLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("status server listening on %s", listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop stops the status server
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.source.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, s.source.Tracker().List())
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	info, ok := s.source.Tracker().Get(params.ByName("id"))
	if !ok {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, info)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, s.source.Metrics().Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
