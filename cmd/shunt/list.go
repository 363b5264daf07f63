package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/revyl/shunt/internal/resolve"
	"github.com/revyl/shunt/internal/ui"
	"github.com/revyl/shunt/pkg/shunt"
)

// listCmd shows what a config would run.
var listCmd = &cobra.Command{
	Use:   "list CONFIG",
	Short: "Show the commands a config would run",
	Long: `Show the commands a config would run, without running them.

Each command is listed with its tty policy, its resolved working directory
and its argv quoted for a POSIX shell.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

// listEntry is one command in `shunt list --json` output.
type listEntry struct {
	Name    string   `json:"name"`
	TTY     string   `json:"tty"`
	Workdir string   `json:"workdir"`
	Argv    []string `json:"argv"`
	Command string   `json:"command"`
}

func runList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	runner, err := shunt.NewRunner(
		shunt.WithConfigFile(args[0]),
		shunt.WithOutput(io.Discard),
	)
	if err != nil {
		return err
	}

	return printCommands(cmd.OutOrStdout(), runner.Commands(), asJSON)
}

// printCommands writes cmds to w as a table, or as indented JSON.
func printCommands(w io.Writer, cmds []resolve.Command, asJSON bool) error {
	if asJSON {
		entries := make([]listEntry, 0, len(cmds))
		for _, c := range cmds {
			entries = append(entries, listEntry{
				Name:    c.Name,
				TTY:     string(c.TTY),
				Workdir: c.Dir,
				Argv:    c.Argv,
				Command: shellquote.Join(c.Argv...),
			})
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode commands: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	table := ui.NewTable("NAME", "TTY", "WORKDIR", "COMMAND")
	for _, c := range cmds {
		table.AddRow(c.Name, string(c.TTY), c.Dir, shellquote.Join(c.Argv...))
	}
	table.Render(w)
	return nil
}
