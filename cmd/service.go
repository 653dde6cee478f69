package cmd

import (
	"github.com/loft-sh/log"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/skevetter/echod/pkg/service"
	"github.com/spf13/cobra"
)

// ServiceCmd holds the service cmd flags
type ServiceCmd struct {
	*flags.GlobalFlags
	Log log.Logger

	Scope string
}

// NewServiceCmd creates a new service command
func NewServiceCmd(globalFlags *flags.GlobalFlags) *cobra.Command {
	cmd := &ServiceCmd{
		GlobalFlags: globalFlags,
		Log:         log.Default,
	}
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manages echod as an operating system service",
	}
	flags.StringVarE(serviceCmd.PersistentFlags(), &cmd.Scope, "scope", flags.EchodEnvPrefix+"SERVICE_SCOPE", "system", "Install as a system service or as a user agent. Can be either system or user")

	serviceCmd.AddCommand(&cobra.Command{
		Use:   "install [-- serve flags]",
		Short: "Installs the service, running echod with the given arguments",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.run(func(m *service.Manager) (string, error) { return m.Install(args...) })
		},
	})
	serviceCmd.AddCommand(cmd.action("uninstall", "Stops and removes the service", (*service.Manager).Uninstall))
	serviceCmd.AddCommand(cmd.action("start", "Starts the service", (*service.Manager).Start))
	serviceCmd.AddCommand(cmd.action("stop", "Stops the service", (*service.Manager).Stop))
	serviceCmd.AddCommand(cmd.action("status", "Prints the service status", (*service.Manager).Status))
	return serviceCmd
}

func (cmd *ServiceCmd) action(use, short string, fn func(*service.Manager) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.run(fn)
		},
	}
}

func (cmd *ServiceCmd) run(fn func(*service.Manager) (string, error)) error {
	manager, err := service.NewManager(cmd.Scope)
	if err != nil {
		return err
	}

	status, err := fn(manager)
	if err != nil {
		return err
	}
	cmd.Log.Done(status)
	return nil
}
