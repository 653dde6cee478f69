package echo

import (
	"context"
	"math"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrListenerClosed is returned by Serve when the listener was closed by
// something other than cancellation of the serve context.
var ErrListenerClosed = errors.New("echo: listener closed")

// DefaultAcceptBackoff paces the accept loop after consecutive accept
// failures, e.g. while the descriptor table is exhausted.
var DefaultAcceptBackoff = wait.Backoff{
	Duration: 5 * time.Millisecond,
	Factor:   2,
	Cap:      time.Second,
	Steps:    math.MaxInt32,
}

type ServerConfig struct {
	Handler HandlerConfig
	// MaxConnections caps concurrently served connections. Zero keeps the
	// unbounded thread-per-connection behavior.
	MaxConnections int64
	// AcceptBackoff overrides DefaultAcceptBackoff when Duration is set
	AcceptBackoff wait.Backoff
}

// Server owns the listening socket and runs the accept loop. Every accepted
// connection is handed to its own goroutine and never touched again by the
// accept loop.
type Server struct {
	listener  net.Listener
	handler   *Handler
	admission *Admission
	tracker   *ConnectionTracker
	metrics   *Metrics
	backoff   wait.Backoff
	log       log.Logger

	handlers sync.WaitGroup
	ready    atomic.Bool
}

// NewServer creates a server for an already bound listener
func NewServer(listener net.Listener, config ServerConfig, logger log.Logger) *Server {
	tracker := NewConnectionTracker()
	metrics := &Metrics{}

	backoff := config.AcceptBackoff
	if backoff.Duration <= 0 {
		backoff = DefaultAcceptBackoff
	}

	return &Server{
		listener:  listener,
		handler:   NewHandler(config.Handler, tracker, metrics, logger),
		admission: NewAdmission(config.MaxConnections),
		tracker:   tracker,
		metrics:   metrics,
		backoff:   backoff,
		log:       logger,
	}
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Tracker returns the live connection registry
func (s *Server) Tracker() *ConnectionTracker {
	return s.tracker
}

// Metrics returns the server metrics for observability
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Ready reports whether the accept loop is running
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Serve accepts connections until ctx is cancelled. Accept failures are
// logged and retried; they never stop the loop. On cancellation the listener
// is closed, every handler is cancelled and Serve returns nil once all of
// them have exited.
func (s *Server) Serve(ctx context.Context) error {
	handlerCtx, cancelHandlers := context.WithCancel(ctx)
	defer func() {
		cancelHandlers()
		s.handlers.Wait()
		s.log.Infof("echo server on %s stopped", s.listener.Addr())
	}()
	defer func() { _ = s.listener.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = s.listener.Close() })
	defer stop()

	s.logLimits()
	s.ready.Store(true)
	defer s.ready.Store(false)

	backoff := s.backoff
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Infof("shutting down echo server, waiting for %d connections", s.tracker.Count())
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrListenerClosed
			}

			s.metrics.RecordAcceptError()
			delay := backoff.Step()
			s.log.Errorf("couldn't handle the incoming connection, retrying in %s: %v", delay, err)
			if !sleepContext(ctx, delay) {
				return nil
			}
			continue
		}

		backoff = s.backoff
		s.dispatch(handlerCtx, conn)
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn) {
	if !s.admission.TryAdmit() {
		s.metrics.RecordRejected()
		s.log.Warnf("rejecting connection from %s: %d connections already open", peerAddr(conn), s.admission.Limit())
		_ = conn.Close()
		return
	}

	s.metrics.RecordAccepted()
	s.handlers.Go(func() {
		defer s.admission.Release()
		_ = s.handler.Serve(ctx, conn)
	})
}

func (s *Server) logLimits() {
	maxConnections := "unbounded"
	if limit := s.admission.Limit(); limit > 0 {
		maxConnections = strconv.FormatInt(limit, 10)
	}

	fileLimit, err := OpenFileLimit()
	if err != nil {
		s.log.Debugf("unable to read open file limit: %v", err)
		s.log.Infof("listening on: %s (max connections %s)", s.listener.Addr(), maxConnections)
		return
	}
	s.log.Infof("listening on: %s (max connections %s, open file limit %d)", s.listener.Addr(), maxConnections, fileLimit)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
