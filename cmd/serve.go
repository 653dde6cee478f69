package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/skevetter/echod/pkg/echo"
	"github.com/skevetter/echod/pkg/pidfile"
	"github.com/skevetter/echod/pkg/status"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ServeCmd holds the serve cmd flags
type ServeCmd struct {
	*flags.GlobalFlags
	Log log.Logger

	Address          string
	BufferSize       int
	MaxConnections   int
	IdleTimeout      time.Duration
	StatusAddress    string
	SocketActivation bool
	PIDFile          string

	// started is called once the echo listener is bound
	started func(addr net.Addr)
}

// NewServeCmd creates a new serve command
func NewServeCmd(globalFlags *flags.GlobalFlags) *cobra.Command {
	cmd := &ServeCmd{
		GlobalFlags: globalFlags,
		Log:         log.Default,
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the echo server",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.Run(cobraCmd.Context())
		},
	}

	f := serveCmd.Flags()
	flags.StringVarE(f, &cmd.Address, "address", flags.EchodEnvPrefix+"ADDRESS", echo.DefaultAddress, "The host:port to listen on")
	flags.IntVarE(f, &cmd.BufferSize, "buffer-size", flags.EchodEnvPrefix+"BUFFER_SIZE", echo.DefaultBufferSize, "The per connection read buffer size in bytes")
	flags.IntVarE(f, &cmd.MaxConnections, "max-connections", flags.EchodEnvPrefix+"MAX_CONNECTIONS", 0, "The maximum number of concurrent connections, 0 means unbounded")
	flags.DurationVarE(f, &cmd.IdleTimeout, "idle-timeout", flags.EchodEnvPrefix+"IDLE_TIMEOUT", 0, "Close connections that stay silent for this long, 0 disables the timeout")
	flags.StringVarE(f, &cmd.StatusAddress, "status-address", flags.EchodEnvPrefix+"STATUS_ADDRESS", "", "If set, serve health, readiness, connections and metrics over HTTP on this address")
	flags.BoolVarE(f, &cmd.SocketActivation, "socket-activation", flags.EchodEnvPrefix+"SOCKET_ACTIVATION", false, "Use the listener passed by systemd socket activation if present")
	flags.StringVarE(f, &cmd.PIDFile, "pid-file", flags.EchodEnvPrefix+"PID_FILE", "", "If set, write the process id to this absolute path and hold a lock on it while serving")
	return serveCmd
}

// Validate checks the flag values before anything is bound
func (cmd *ServeCmd) Validate() error {
	if cmd.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", cmd.BufferSize)
	}
	if cmd.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative, got %d", cmd.MaxConnections)
	}
	if cmd.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", cmd.IdleTimeout)
	}
	return nil
}

// Run binds the listener and serves until ctx is cancelled
func (cmd *ServeCmd) Run(ctx context.Context) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if cmd.PIDFile != "" {
		pidFile, err := pidfile.Acquire(cmd.PIDFile)
		if err != nil {
			return err
		}
		cmd.Log.Debugf("wrote pid %d to %s", os.Getpid(), pidFile.Path())
		defer func() {
			if err := pidFile.Release(); err != nil {
				cmd.Log.Warnf("release pid file: %v", err)
			}
		}()
	}

	listener, err := echo.Listen(ctx, cmd.Address, echo.ListenOptions{SocketActivation: cmd.SocketActivation})
	if err != nil {
		return errors.Wrap(err, "start listener")
	}

	server := echo.NewServer(listener, echo.ServerConfig{
		Handler: echo.HandlerConfig{
			BufferSize:  cmd.BufferSize,
			IdleTimeout: cmd.IdleTimeout,
		},
		MaxConnections: int64(cmd.MaxConnections),
	}, cmd.Log)
	if cmd.started != nil {
		cmd.started(server.Addr())
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Serve(groupCtx)
	})
	if cmd.StatusAddress != "" {
		statusServer := status.NewServer(cmd.StatusAddress, server, cmd.Log)
		group.Go(func() error {
			return errors.Wrap(statusServer.Start(groupCtx), "status server")
		})
	}

	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		cmd.Log.Debugf("unable to notify systemd: %v", err)
	} else if sent {
		cmd.Log.Debugf("notified systemd that echod is ready")
	}

	return group.Wait()
}
