package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/revyl/shunt/pkg/shunt"
)

// runnerOptions turns settings into runner options for the config at path.
func runnerOptions(path string, s *settings) []shunt.Option {
	opts := []shunt.Option{
		shunt.WithConfigFile(path),
		shunt.WithPolicy(s.OnExit),
		shunt.WithGracePeriod(s.GracePeriod),
		shunt.WithLogger(log.Default()),
	}
	if s.NoColor {
		opts = append(opts, shunt.WithColor(false))
	}
	return opts
}

func runShunt(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	runner, err := shunt.NewRunner(runnerOptions(args[0], s)...)
	if err != nil {
		return err
	}

	stop := forwardSignals(runner)
	defer stop()

	result, runErr := runner.Run(cmd.Context())

	if s.Report != "" {
		if err := writeReport(s.Report, result); err != nil {
			log.Error("failed to write report", "path", s.Report, "error", err)
		} else {
			log.Debug("wrote report", "path", s.Report)
		}
	}

	if runErr != nil {
		return fmt.Errorf("writing output: %w", runErr)
	}
	if code := result.ExitCode(); code != 0 {
		return exitStatus(code)
	}
	return nil
}

// writeReport writes the JSON run summary to path.
func writeReport(path string, result *shunt.Result) error {
	data, err := result.Report()
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
