package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/skevetter/echod/pkg/echo"
	"github.com/spf13/cobra"
)

const defaultPingPayload = "hello"

// PingCmd holds the ping cmd flags
type PingCmd struct {
	*flags.GlobalFlags
	Log log.Logger

	Address string
	Count   int
	Timeout time.Duration
}

// NewPingCmd creates a new ping command
func NewPingCmd(globalFlags *flags.GlobalFlags) *cobra.Command {
	cmd := &PingCmd{
		GlobalFlags: globalFlags,
		Log:         log.Default,
	}
	pingCmd := &cobra.Command{
		Use:   "ping [payload]",
		Short: "Sends a payload to an echo server and verifies the echo",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			payload := defaultPingPayload
			if len(args) > 0 {
				payload = args[0]
			}
			return cmd.Run(cobraCmd.Context(), []byte(payload))
		},
	}

	f := pingCmd.Flags()
	flags.StringVarE(f, &cmd.Address, "address", flags.EchodEnvPrefix+"ADDRESS", echo.DefaultAddress, "The host:port of the echo server")
	flags.IntVarE(f, &cmd.Count, "count", flags.EchodEnvPrefix+"PING_COUNT", 1, "How many round trips to perform")
	flags.DurationVarE(f, &cmd.Timeout, "timeout", flags.EchodEnvPrefix+"PING_TIMEOUT", 5*time.Second, "Timeout for dialing and for each round trip")
	return pingCmd
}

// Run performs Count round trips of payload against the server
func (cmd *PingCmd) Run(ctx context.Context, payload []byte) error {
	if cmd.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", cmd.Count)
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload must not be empty")
	}

	client, err := echo.Dial(ctx, cmd.Address, cmd.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var total time.Duration
	for i := range cmd.Count {
		start := time.Now()
		reply, err := client.RoundTrip(payload)
		if err != nil {
			return errors.Wrapf(err, "round trip %d", i+1)
		}
		if !bytes.Equal(reply, payload) {
			return fmt.Errorf("round trip %d: echo mismatch, sent %q got %q", i+1, payload, reply)
		}

		elapsed := time.Since(start)
		total += elapsed
		cmd.Log.Infof("%d bytes from %s: seq=%d time=%s", len(reply), cmd.Address, i+1, elapsed)
	}

	cmd.Log.Donef("%d round trips to %s, avg %s", cmd.Count, cmd.Address, total/time.Duration(cmd.Count))
	return nil
}
