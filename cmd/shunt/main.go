// Package main provides the entry point for the shunt CLI.
//
// shunt starts every command of a config file at once, prefixes each line of
// their output with the command's name and exits with the first failing
// command's exit code.
package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/revyl/shunt/internal/ui"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitStatus carries a run's exit code out of RunE without printing it as an
// error.
type exitStatus int

func (e exitStatus) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}

// rootCmd runs a config file.
var rootCmd = &cobra.Command{
	Use:           "shunt [flags] CONFIG",
	Short:         "Run commands concurrently with prefixed output",
	Long:          ui.GetHelpText(),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		if s.Debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}
		return nil
	},
	RunE: runShunt,
}

// exitCode maps the error returned by rootCmd to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	return 1
}

// Execute runs the root command and exits the process with its result.
func Execute() {
	err := rootCmd.Execute()
	var status exitStatus
	if err != nil && !errors.As(err, &status) {
		ui.PrintError("%v", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	addRunFlags(rootCmd.Flags())

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ui.PrintInfo("Version: %s", version)
		ui.PrintDim("Commit: %s", commit)
		ui.PrintDim("Built: %s", date)
	},
}

func main() {
	Execute()
}
