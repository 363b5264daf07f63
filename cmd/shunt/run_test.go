//go:build !windows

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
)

func TestRunShunt_ExitCodeAndReport(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "shunt.yaml")
	report := filepath.Join(dir, "report.json")
	doc := `commands:
  ok: [sh, -c, "exit 0"]
  fails: [sh, -c, "exit 3"]
`
	if err := os.WriteFile(cfg, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{"--no-color", "--grace-period", "1s", "--report", report, cfg})
	err := rootCmd.Execute()
	if got := exitCode(err); got != 3 {
		t.Fatalf("exit code = %d (err %v), want 3", got, err)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	r := gjson.ParseBytes(data)
	if got := r.Get("exit_code").Int(); got != 3 {
		t.Errorf("report exit_code = %d, want 3", got)
	}
	if got := r.Get("commands.#.name").String(); got != `["ok","fails"]` {
		t.Errorf("report command names = %s", got)
	}
	if r.Get("run_id").String() == "" {
		t.Error("report has no run_id")
	}
}
