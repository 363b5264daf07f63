package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/revyl/shunt/internal/supervisor"
)

// envPrefix namespaces every flag's environment variable, e.g. SHUNT_ON_EXIT.
const envPrefix = "SHUNT"

const defaultGracePeriod = supervisor.DefaultGracePeriod

// settings are the effective flag values after environment overrides.
type settings struct {
	OnExit      string
	GracePeriod time.Duration
	NoColor     bool
	Debug       bool
	Report      string
}

// addRunFlags registers the flags of a run on fs.
func addRunFlags(fs *pflag.FlagSet) {
	fs.String("on-exit", "continue", "What to do when a command exits: continue, cascade or cascade-on-failure")
	fs.Duration("grace-period", defaultGracePeriod, "How long commands get to exit after an interrupt before they are killed")
	fs.Bool("no-color", false, "Disable colored prefixes")
	fs.String("report", "", "Write a JSON summary of the run to this file")
}

// loadSettings merges flags with SHUNT_* environment variables. A flag set on
// the command line wins over the environment, which wins over the flag
// default. NO_COLOR is honored as well as SHUNT_NO_COLOR.
//
// Parameters:
//   - flags: The parsed flag set of the running command
//
// Returns:
//   - *settings: The effective settings
//   - error: Any error binding a flag
func loadSettings(flags *pflag.FlagSet) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("grace-period", defaultGracePeriod)

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	s := &settings{
		OnExit:      v.GetString("on-exit"),
		GracePeriod: v.GetDuration("grace-period"),
		NoColor:     v.GetBool("no-color"),
		Debug:       v.GetBool("debug"),
		Report:      v.GetString("report"),
	}
	if os.Getenv("NO_COLOR") != "" {
		s.NoColor = true
	}
	return s, nil
}
