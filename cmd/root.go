package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/skevetter/echod/cmd/flags"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var globalFlags *flags.GlobalFlags

// NewRootCmd returns a new root command
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "echod",
		Short:         "Concurrent TCP echo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cobraCmd *cobra.Command, args []string) error {
			return configureLogger(globalFlags)
		},
	}
}

func configureLogger(globalFlags *flags.GlobalFlags) error {
	switch globalFlags.LogOutput {
	case "json":
		log.Default.SetFormat(log.JSONFormat)
	case "raw":
		log.Default.SetFormat(log.RawFormat)
	case "plain":
	default:
		return fmt.Errorf("unrecognized log format %s, needs to be either plain, raw or json", globalFlags.LogOutput)
	}

	if globalFlags.Silent {
		log.Default.SetLevel(logrus.FatalLevel)
	} else if globalFlags.Debug {
		log.Default.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := loadEnvFile(); err != nil {
		log.Default.Fatal(err)
	}
	rootCmd := BuildRoot()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if globalFlags.Debug {
			log.Default.Fatalf("%+v", err)
		}
		log.Default.Fatal(err)
	}
}

// loadEnvFile exports the variables of the file named by ECHOD_ENV_FILE.
// Variables already present in the environment win.
func loadEnvFile() error {
	envFile, ok := os.LookupEnv(flags.EchodEnvPrefix + "ENV_FILE")
	if !ok || envFile == "" {
		return nil
	}

	env, err := godotenv.Read(envFile)
	if err != nil {
		return errors.Wrapf(err, "read env file %s", envFile)
	}
	for key, value := range env {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return errors.Wrapf(err, "set %s", key)
		}
	}
	return nil
}

// BuildRoot creates a new root command with all sub commands
func BuildRoot() *cobra.Command {
	rootCmd := NewRootCmd()
	persistentFlags := rootCmd.PersistentFlags()
	globalFlags = flags.SetGlobalFlags(persistentFlags)

	rootCmd.AddCommand(NewServeCmd(globalFlags))
	rootCmd.AddCommand(NewPingCmd(globalFlags))
	rootCmd.AddCommand(NewServiceCmd(globalFlags))
	rootCmd.AddCommand(NewVersionCmd())

	inheritCommandFlagsFromEnvironment(rootCmd)

	return rootCmd
}

func inheritCommandFlagsFromEnvironment(cmd *cobra.Command) {
	inheritFlagsFromEnvironment(cmd.Flags())
	inheritFlagsFromEnvironment(cmd.PersistentFlags())

	for _, sub := range cmd.Commands() {
		inheritCommandFlagsFromEnvironment(sub)
	}
}

// Inherits default values for all flags that have a corresponding environment variable set.
func inheritFlagsFromEnvironment(flags *flag.FlagSet) {
	flags.VisitAll(func(flag *flag.Flag) {
		environmentVariable := EnvironmentVariable(flag.Name)

		if value, exists := os.LookupEnv(environmentVariable); exists {
			// set the variable holding the flag's value to the default supplied by the environment
			err := flag.Value.Set(value)
			if err != nil {
				log.Default.Fatalf("failed to set flag %s from the environment variable %s with value %s: %+v", flag.Name, environmentVariable, value, err)
			}
			// reflect this default in the usage output
			flag.DefValue = value
		}

		// add note about environment variable to usage, but only if it is not there yet -
		// in case we visit the same flag more than once.
		usageAddition := ". You can also use " + environmentVariable + " to set this"
		if !strings.HasSuffix(flag.Usage, usageAddition) {
			flag.Usage = flag.Usage + usageAddition
		}
	})
}

// EnvironmentVariable returns the environment variable backing a flag
func EnvironmentVariable(flagName string) string {
	return flags.EchodEnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
