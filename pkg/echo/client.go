package echo

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Client is a minimal echo client used by the ping command and the tests.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to an echo server. timeout bounds the dial and every
// subsequent round trip; zero means no timeout.
func Dial(ctx context.Context, address string, timeout time.Duration) (*Client, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", address)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Conn returns the underlying connection
func (c *Client) Conn() net.Conn {
	return c.conn
}

// RoundTrip writes payload and reads exactly len(payload) bytes back. The
// server may return the bytes in different chunks than they were sent. A
// failed read closes the connection, so the client is unusable afterwards.
func (c *Client) RoundTrip(payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, errors.Wrap(err, "set deadline")
		}
	}

	// write concurrently so payloads larger than the socket buffers cannot
	// deadlock against the echo coming back
	writeErr := make(chan error, 1)
	go func() {
		_, err := c.conn.Write(payload)
		writeErr <- err
	}()

	reply := make([]byte, len(payload))
	if _, err := io.ReadFull(c.conn, reply); err != nil {
		// the write may be stuck on a peer that stopped reading
		_ = c.conn.Close()
		<-writeErr
		return nil, errors.Wrap(err, "read echo")
	}
	if err := <-writeErr; err != nil {
		return nil, errors.Wrap(err, "write")
	}
	return reply, nil
}

// CloseWrite half-closes the connection, which the server observes as an
// orderly close.
func (c *Client) CloseWrite() error {
	if tcpConn, ok := c.conn.(*net.TCPConn); ok {
		return tcpConn.CloseWrite()
	}
	return c.conn.Close()
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
