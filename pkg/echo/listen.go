package echo

import (
	"context"
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"
)

// DefaultAddress is the loopback endpoint the server binds when nothing else
// is configured.
const DefaultAddress = "127.0.0.1:8080"

// ListenOptions configures how the server socket is obtained
type ListenOptions struct {
	// SocketActivation uses a listener passed in by systemd (LISTEN_FDS)
	// when one is present and falls back to binding the address otherwise.
	SocketActivation bool
}

// BindError is returned when the server socket cannot be obtained. It is
// fatal and never retried.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("unable to bind address %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Listen binds a TCP listening socket to address (host:port).
func Listen(ctx context.Context, address string, opts ListenOptions) (net.Listener, error) {
	if opts.SocketActivation {
		l, err := activatedListener()
		if err != nil {
			return nil, &BindError{Address: "systemd socket", Err: err}
		}
		if l != nil {
			return l, nil
		}
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, &BindError{Address: address, Err: err}
	}

	lc := net.ListenConfig{}
	l, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, &BindError{Address: address, Err: err}
	}
	return l, nil
}

func activatedListener() (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, err
	}

	switch {
	case len(listeners) == 0:
		return nil, nil
	case len(listeners) == 1:
		if listeners[0] == nil {
			return nil, fmt.Errorf("LISTEN_FDS=1 but no listening socket found")
		}
		return listeners[0], nil
	default:
		return nil, fmt.Errorf("too many (%d) FDs passed through socket activation", len(listeners))
	}
}
