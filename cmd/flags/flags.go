package flags

import (
	"os"
	"strconv"
	"time"

	"github.com/loft-sh/log"
	flag "github.com/spf13/pflag"
)

type GlobalFlags struct {
	LogOutput string
	Debug     bool
	Silent    bool
}

const EchodEnvPrefix = "ECHOD_"

// Defines a string flag with specified name, environment variable, default value, and usage string.
// The argument variable points to a string variable in which to store the value of the flag.
func StringVarE(f *flag.FlagSet, variable *string, name string, environmentVariable string, defaultValue string, usage string) {
	f.StringVar(variable, name, GetStringEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetStringEnv(environmentVariable string, defaultValue string) string {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		return value
	}
	return defaultValue
}

// Defines a bool flag with specified name, environment variable, default value, and usage string.
// The argument variable points to a bool variable in which to store the value of the flag.
func BoolVarE(f *flag.FlagSet, variable *bool, name string, environmentVariable string, defaultValue bool, usage string) {
	f.BoolVar(variable, name, GetBoolEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetBoolEnv(environmentVariable string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		result, err := strconv.ParseBool(value)
		if err != nil {
			log.Default.Warnf("invalid boolean value %s for environment variable %s, falling back to default %v", value, environmentVariable, defaultValue)
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// Defines an int flag with specified name, environment variable, default value, and usage string.
func IntVarE(f *flag.FlagSet, variable *int, name string, environmentVariable string, defaultValue int, usage string) {
	f.IntVar(variable, name, GetIntEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetIntEnv(environmentVariable string, defaultValue int) int {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		result, err := strconv.Atoi(value)
		if err != nil {
			log.Default.Warnf("invalid integer value %s for environment variable %s, falling back to default %d", value, environmentVariable, defaultValue)
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// Defines a duration flag with specified name, environment variable, default value, and usage string.
func DurationVarE(f *flag.FlagSet, variable *time.Duration, name string, environmentVariable string, defaultValue time.Duration, usage string) {
	f.DurationVar(variable, name, GetDurationEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetDurationEnv(environmentVariable string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		result, err := time.ParseDuration(value)
		if err != nil {
			log.Default.Warnf("invalid duration value %s for environment variable %s, falling back to default %s", value, environmentVariable, defaultValue)
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// SetGlobalFlags applies the global flags
func SetGlobalFlags(flags *flag.FlagSet) *GlobalFlags {
	globalFlags := &GlobalFlags{}

	StringVarE(flags, &globalFlags.LogOutput, "log-output", EchodEnvPrefix+"LOG_OUTPUT", "plain", "The log format to use. Can be either plain, raw or json")
	BoolVarE(flags, &globalFlags.Debug, "debug", EchodEnvPrefix+"DEBUG", false, "Prints the stack trace if an error occurs")
	BoolVarE(flags, &globalFlags.Silent, "silent", EchodEnvPrefix+"SILENT", false, "Run in silent mode and prevents any echod log output except panics & fatals")
	return globalFlags
}
