//go:build !windows

package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/revyl/shunt/internal/config"
	"github.com/revyl/shunt/internal/launch"
	"github.com/revyl/shunt/internal/mux"
	"github.com/revyl/shunt/internal/resolve"
	"github.com/revyl/shunt/internal/ui"
)

// notifyOutput forwards to a ui.Writer and reports every child line on lines.
type notifyOutput struct {
	*ui.Writer
	lines chan string
}

func (o *notifyOutput) WriteLine(ev mux.LineEvent) error {
	select {
	case o.lines <- string(ev.Data):
	default:
	}
	return o.Writer.WriteLine(ev)
}

type harness struct {
	dir  string
	buf  bytes.Buffer
	out  *notifyOutput
	cmds []resolve.Command
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{dir: t.TempDir()}
}

func (h *harness) add(name string, argv ...string) {
	h.cmds = append(h.cmds, resolve.Command{
		Name: name,
		Argv: argv,
		Dir:  h.dir,
		Env:  os.Environ(),
		TTY:  config.TTYNever,
	})
}

func (h *harness) supervisor(opts ...Option) *Supervisor {
	names := make([]string, len(h.cmds))
	for i, c := range h.cmds {
		names[i] = c.Name
	}
	h.out = &notifyOutput{
		Writer: ui.NewWriter(&h.buf, ui.NewLabels(names, false), false),
		lines:  make(chan string, 64),
	}
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(h.out, &launch.Launcher{}, opts...)
}

// waitForLine blocks until a child prints want.
func (h *harness) waitForLine(t *testing.T, want string) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case line := <-h.out.lines:
			if line == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for line %q", want)
		}
	}
}

func TestRunAll_PrefixesOutput(t *testing.T) {
	h := newHarness(t)
	h.add("a", "printf", "hello")
	h.add("b", "printf", "world")

	result, err := h.supervisor().RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	out := h.buf.String()
	for _, want := range []string{"[a] hello\n", "[b] world\n", "[a] exited with code 0\n", "[b] exited with code 0\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
	if code := result.ExitCode(); code != 0 {
		t.Errorf("ExitCode() = %d, want 0", code)
	}
	if len(result.Outcomes) != 2 {
		t.Errorf("got %d outcomes, want 2", len(result.Outcomes))
	}
}

// TestRunAll_LinesStayWhole verifies that stdout and stderr of several
// chatty children arrive as whole prefixed lines.
func TestRunAll_LinesStayWhole(t *testing.T) {
	h := newHarness(t)
	script := `i=0; while [ $i -lt 200 ]; do echo "out-$i-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"; echo "err-$i-yyyyyyyyyyyyyyyyyyyy" >&2; i=$((i+1)); done`
	h.add("one", "sh", "-c", script)
	h.add("two", "sh", "-c", script)
	h.add("six", "sh", "-c", script)

	if _, err := h.supervisor().RunAll(context.Background(), h.cmds); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(h.buf.String(), "\n"), "\n")
	if len(lines) != 3*400+3 {
		t.Fatalf("got %d lines, want %d", len(lines), 3*400+3)
	}
	for _, line := range lines {
		ok := strings.HasSuffix(line, "exited with code 0") ||
			strings.HasSuffix(line, "-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx") ||
			strings.HasSuffix(line, "-yyyyyyyyyyyyyyyyyyyy")
		if !ok || !(strings.HasPrefix(line, "[one] ") || strings.HasPrefix(line, "[two] ") || strings.HasPrefix(line, "[six] ")) {
			t.Fatalf("torn line: %q", line)
		}
	}
}

func TestRunAll_MissingExecutable(t *testing.T) {
	h := newHarness(t)
	h.add("missing", "shunt-test-no-such-binary")
	h.add("ok", "true")

	result, err := h.supervisor().RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if code := result.ExitCode(); code != ExitNotFound {
		t.Errorf("ExitCode() = %d, want %d", code, ExitNotFound)
	}
	missing, ok := result.Get("missing")
	if !ok || !errors.Is(missing.Err, launch.ErrNotFound) {
		t.Errorf("missing outcome = %+v, want ErrNotFound", missing)
	}
	if okOutcome, _ := result.Get("ok"); okOutcome.ExitCode() != 0 || okOutcome.Pid == 0 {
		t.Errorf("ok outcome = %+v", okOutcome)
	}
	if !strings.Contains(h.buf.String(), "[missing] failed to start: ") {
		t.Errorf("output %q has no start failure line", h.buf.String())
	}
}

// TestRunAll_OneOutcomePerCommand verifies every command gets exactly one
// outcome whatever the mix of successes and failures.
func TestRunAll_OneOutcomePerCommand(t *testing.T) {
	h := newHarness(t)
	h.add("ok", "true")
	h.add("fails", "sh", "-c", "exit 3")
	h.add("missing", "shunt-test-no-such-binary")
	h.add("signalled", "sh", "-c", "kill -TERM $$")
	h.add("bad-dir", "true")
	h.cmds[4].Dir = filepath.Join(h.dir, "does-not-exist")

	result, err := h.supervisor().RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	want := map[string]int{
		"ok":        0,
		"fails":     3,
		"missing":   ExitNotFound,
		"signalled": 128 + int(syscall.SIGTERM),
		"bad-dir":   ExitStartError,
	}
	byName := result.ByName()
	if len(result.Outcomes) != len(want) || len(byName) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(result.Outcomes), len(want))
	}
	for name, code := range want {
		if got := byName[name].ExitCode(); got != code {
			t.Errorf("%s: ExitCode() = %d, want %d", name, got, code)
		}
	}
	for i, o := range result.Outcomes {
		if o.Command != h.cmds[i].Name {
			t.Errorf("outcome %d is %q, want launch order %q", i, o.Command, h.cmds[i].Name)
		}
	}
	if code := result.ExitCode(); code != 3 {
		t.Errorf("ExitCode() = %d, want 3 (first failure in launch order)", code)
	}
}

func TestRunAll_PolicyContinue(t *testing.T) {
	h := newHarness(t)
	h.add("fails", "false")
	h.add("slow", "sh", "-c", "sleep 1; echo survived")

	result, err := h.supervisor(WithPolicy(PolicyContinue)).RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if !strings.Contains(h.buf.String(), "[slow]  survived\n") {
		t.Errorf("output %q, want the slow command to finish", h.buf.String())
	}
	if code := result.ExitCode(); code != 1 {
		t.Errorf("ExitCode() = %d, want 1", code)
	}
}

func TestRunAll_PolicyCascade(t *testing.T) {
	h := newHarness(t)
	h.add("server", "sleep", "30")
	h.add("quick", "true")

	start := time.Now()
	result, err := h.supervisor(WithPolicy(PolicyCascade)).RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("RunAll took %v, want the server stopped early", elapsed)
	}

	server, _ := result.Get("server")
	if server.Signal != syscall.SIGTERM {
		t.Errorf("server outcome = %+v, want SIGTERM", server)
	}
	if code := result.ExitCode(); code != 128+int(syscall.SIGTERM) {
		t.Errorf("ExitCode() = %d, want %d", code, 128+int(syscall.SIGTERM))
	}
}

func TestRunAll_PolicyCascadeOnFailure(t *testing.T) {
	h := newHarness(t)
	h.add("fails", "sh", "-c", "sleep 0.2; exit 4")
	h.add("server", "sh", "-c", "sleep 30; echo survived")

	result, err := h.supervisor(WithPolicy(PolicyCascadeOnFailure)).RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if strings.Contains(h.buf.String(), "survived") {
		t.Errorf("server was not stopped: %q", h.buf.String())
	}
	if code := result.ExitCode(); code != 4 {
		t.Errorf("ExitCode() = %d, want 4", code)
	}
}

func TestRunAll_CascadeOnFailureIgnoresSuccess(t *testing.T) {
	h := newHarness(t)
	h.add("ok", "true")
	h.add("slow", "sh", "-c", "sleep 1; echo survived")

	result, err := h.supervisor(WithPolicy(PolicyCascadeOnFailure)).RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if !strings.Contains(h.buf.String(), "survived") {
		t.Errorf("slow command was stopped: %q", h.buf.String())
	}
	if code := result.ExitCode(); code != 0 {
		t.Errorf("ExitCode() = %d, want 0", code)
	}
}

// TestInterrupt_KillsAfterGrace verifies that a child ignoring SIGTERM is
// killed once the grace period runs out.
func TestInterrupt_KillsAfterGrace(t *testing.T) {
	h := newHarness(t)
	h.add("stubborn", "sh", "-c", "trap '' TERM; echo ready; sleep 30")
	sup := h.supervisor(WithGracePeriod(200 * time.Millisecond))

	type runResult struct {
		result *Result
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		r, err := sup.RunAll(context.Background(), h.cmds)
		done <- runResult{r, err}
	}()

	h.waitForLine(t, "ready")
	sup.Interrupt()

	var rr runResult
	select {
	case rr = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("RunAll did not return after interrupt")
	}
	if rr.err != nil {
		t.Fatalf("RunAll() error = %v", rr.err)
	}
	o, _ := rr.result.Get("stubborn")
	if o.Signal != syscall.SIGKILL {
		t.Errorf("outcome = %+v, want SIGKILL", o)
	}
	if code := rr.result.ExitCode(); code != 128+int(syscall.SIGKILL) {
		t.Errorf("ExitCode() = %d, want %d", code, 128+int(syscall.SIGKILL))
	}
}

// TestInterrupt_SecondCallForcesKill verifies that a repeated interrupt does
// not wait out a long grace period.
func TestInterrupt_SecondCallForcesKill(t *testing.T) {
	h := newHarness(t)
	h.add("stubborn", "sh", "-c", "trap '' TERM; echo ready; sleep 30")
	sup := h.supervisor(WithGracePeriod(time.Minute))

	done := make(chan *Result, 1)
	go func() {
		r, _ := sup.RunAll(context.Background(), h.cmds)
		done <- r
	}()

	h.waitForLine(t, "ready")
	go sup.Interrupt()
	sup.Interrupt()

	select {
	case r := <-done:
		if o, _ := r.Get("stubborn"); o.Signal != syscall.SIGKILL {
			t.Errorf("outcome = %+v, want SIGKILL", o)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunAll did not return after second interrupt")
	}
}

func TestInterrupt_LeavesExitedChildrenAlone(t *testing.T) {
	h := newHarness(t)
	h.add("done", "sh", "-c", "echo finished")
	h.add("running", "sh", "-c", "echo ready; sleep 30")
	sup := h.supervisor(WithGracePeriod(5 * time.Second))

	done := make(chan *Result, 1)
	go func() {
		r, _ := sup.RunAll(context.Background(), h.cmds)
		done <- r
	}()

	h.waitForLine(t, "ready")
	// Wait for the first command's status line before interrupting.
	deadline := time.Now().Add(10 * time.Second)
	for {
		sup.mu.Lock()
		exited := sup.outcomes[0].Command != ""
		sup.mu.Unlock()
		if exited || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	sup.Interrupt()

	r := <-done
	if o, _ := r.Get("done"); o.ExitCode() != 0 {
		t.Errorf("done outcome = %+v, want exit 0", o)
	}
	if o, _ := r.Get("running"); o.Signal != syscall.SIGTERM {
		t.Errorf("running outcome = %+v, want SIGTERM", o)
	}
}

func TestInterrupt_BeforeRun(t *testing.T) {
	h := newHarness(t)
	h.add("a", "true")
	h.add("b", "true")
	sup := h.supervisor()

	sup.Interrupt()
	result, err := sup.RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	for _, o := range result.Outcomes {
		if !errors.Is(o.Err, ErrNotStarted) {
			t.Errorf("%s: Err = %v, want ErrNotStarted", o.Command, o.Err)
		}
	}
	if code := result.ExitCode(); code != ExitStartError {
		t.Errorf("ExitCode() = %d, want %d", code, ExitStartError)
	}
}

func TestRunAll_ContextCancel(t *testing.T) {
	h := newHarness(t)
	h.add("server", "sh", "-c", "echo ready; exec sleep 30")
	sup := h.supervisor(WithGracePeriod(5 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan *Result, 1)
	go func() {
		r, _ := sup.RunAll(ctx, h.cmds)
		done <- r
	}()

	h.waitForLine(t, "ready")
	cancel()

	select {
	case r := <-done:
		if o, _ := r.Get("server"); o.Signal != syscall.SIGTERM {
			t.Errorf("outcome = %+v, want SIGTERM", o)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, syscall.EPIPE }

// TestRunAll_WriteError verifies that a failing output stops every child and
// is returned.
func TestRunAll_WriteError(t *testing.T) {
	dir := t.TempDir()
	cmds := []resolve.Command{
		{Name: "talker", Argv: []string{"sh", "-c", "echo hi; sleep 30"}, Dir: dir, Env: os.Environ(), TTY: config.TTYNever},
		{Name: "quiet", Argv: []string{"sleep", "30"}, Dir: dir, Env: os.Environ(), TTY: config.TTYNever},
	}
	w := ui.NewWriter(brokenWriter{}, ui.NewLabels([]string{"talker", "quiet"}, false), false)
	sup := New(w, &launch.Launcher{}, WithLogger(log.New(io.Discard)), WithGracePeriod(200*time.Millisecond))

	start := time.Now()
	result, err := sup.RunAll(context.Background(), cmds)

	var writeErr *ui.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("RunAll() error = %v, want *ui.WriteError", err)
	}
	if !errors.Is(err, syscall.EPIPE) {
		t.Errorf("RunAll() error = %v, want EPIPE", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("RunAll took %v after a write error", elapsed)
	}
	if len(result.Outcomes) != 2 {
		t.Errorf("got %d outcomes, want 2", len(result.Outcomes))
	}
}

func TestRunID(t *testing.T) {
	h := newHarness(t)
	h.add("a", "true")
	sup := h.supervisor()

	result, err := sup.RunAll(context.Background(), h.cmds)
	if err != nil {
		t.Fatal(err)
	}
	if result.RunID == "" || result.RunID != sup.RunID() {
		t.Errorf("RunID = %q, want %q", result.RunID, sup.RunID())
	}
}
