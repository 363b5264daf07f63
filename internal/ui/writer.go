package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/revyl/shunt/internal/mux"
	"github.com/revyl/shunt/internal/status"
)

// WriteError is a failure to write to the output. Once a Writer fails it
// returns the same WriteError to every caller.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write output: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer serializes labelled lines onto one output. Each line (prefix,
// content and newline) reaches the underlying writer in a single Write call
// made under a mutex, so lines from concurrent callers never interleave.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	labels *Labels
	color  bool
	buf    []byte
	err    *WriteError
}

// NewWriter creates a Writer on out. color controls status line styling;
// prefix colors are decided by labels.
func NewWriter(out io.Writer, labels *Labels, color bool) *Writer {
	return &Writer{out: out, labels: labels, color: color}
}

// WriteLine writes one child output line. It implements mux.Sink.
func (w *Writer) WriteLine(ev mux.LineEvent) error {
	return w.write(ev.Command, ev.Data)
}

// Status writes a supervisor status line for command, such as
// "exited with code 1". category is one of the status package's categories
// and picks the style when color is on.
func (w *Writer) Status(command, category, msg string) error {
	if w.color {
		msg = categoryStyle(category).Render(status.StatusIcon(category) + " " + msg)
	}
	return w.write(command, []byte(msg))
}

// Err returns the sticky write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		return nil
	}
	return w.err
}

func (w *Writer) write(command string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.buf = append(w.buf[:0], w.labels.Prefix(command)...)
	w.buf = append(w.buf, data...)
	w.buf = append(w.buf, '\n')

	n, err := w.out.Write(w.buf)
	if err == nil && n < len(w.buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = &WriteError{Err: err}
		return w.err
	}
	return nil
}
