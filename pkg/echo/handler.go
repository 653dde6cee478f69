package echo

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/loft-sh/log"
	"github.com/pkg/errors"
)

// DefaultBufferSize is the per connection read buffer. It only affects
// throughput: echoed chunk boundaries are not part of the wire contract.
const DefaultBufferSize = 256

// HandlerConfig configures a connection handler
type HandlerConfig struct {
	BufferSize int
	// IdleTimeout terminates a connection that sends nothing for this long,
	// or whose peer does not take the echo within it. Zero disables it.
	IdleTimeout time.Duration
}

// Handler echoes every byte received on a connection back to the peer.
type Handler struct {
	bufferSize  int
	idleTimeout time.Duration
	tracker     *ConnectionTracker
	metrics     *Metrics
	log         log.Logger
}

// NewHandler creates a new connection handler
func NewHandler(config HandlerConfig, tracker *ConnectionTracker, metrics *Metrics, log log.Logger) *Handler {
	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Handler{
		bufferSize:  bufferSize,
		idleTimeout: config.IdleTimeout,
		tracker:     tracker,
		metrics:     metrics,
		log:         log,
	}
}

// Serve takes ownership of conn and echoes it until the peer closes its
// write side, an I/O error occurs or ctx is cancelled. It returns nil on an
// orderly close, ctx.Err() on shutdown and the I/O error otherwise. The
// connection is always closed on return.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) error {
	defer func() { _ = conn.Close() }()

	id := NewConnectionID()
	remoteAddr := peerAddr(conn)

	h.tracker.Add(id, remoteAddr)
	defer h.tracker.Remove(id)
	h.metrics.IncrementActive()
	defer h.metrics.DecrementActive()

	h.log.Infof("new connection %s from %s", id, remoteAddr)

	// unblocks a pending read when the server shuts down
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	total, err := h.echo(ctx, id, conn)
	switch {
	case err == nil:
		h.log.Infof("connection %s from %s closed by peer after %d bytes", id, remoteAddr, total)
		return nil
	case ctx.Err() != nil:
		h.log.Debugf("connection %s from %s closed on shutdown after %d bytes", id, remoteAddr, total)
		return ctx.Err()
	default:
		h.metrics.RecordHandlerError()
		h.log.Errorf("connection %s from %s terminated after %d bytes: %v", id, remoteAddr, total, err)
		return err
	}
}

func (h *Handler) echo(ctx context.Context, id string, conn net.Conn) (int64, error) {
	buf := make([]byte, h.bufferSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		// the deadline also bounds the echo write, so a peer that stops
		// reading cannot pin the handler
		if h.idleTimeout > 0 {
			if err := conn.SetDeadline(time.Now().Add(h.idleTimeout)); err != nil {
				return total, errors.Wrap(err, "set deadline")
			}
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			written, err := conn.Write(buf[:n])
			if err == nil && written != n {
				err = io.ErrShortWrite
			}
			if err != nil {
				return total, errors.Wrap(err, "write")
			}

			total += int64(n)
			h.tracker.Update(id, n)
			h.metrics.RecordBytes(n)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return total, nil
			}
			// terminal: retrying a broken socket only spins
			return total, errors.Wrap(readErr, "read")
		}

		// a net.Conn never reports 0, nil for a non-empty buffer; treat it as a close
		if n == 0 {
			return total, nil
		}
	}
}

func peerAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
