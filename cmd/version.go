package cmd

import (
	"fmt"
	"runtime"

	"github.com/skevetter/echod/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates a new version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the echod version",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cobraCmd.OutOrStdout(), "echod %s %s/%s\n", version.GetVersion(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
