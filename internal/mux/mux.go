// Package mux turns raw child output into discrete lines.
//
// One Drain call runs per (child, stream). It reassembles newline-delimited
// lines from whatever chunks the stream delivers and hands each complete line
// to a Sink as soon as it is seen, so a long-running child's output appears
// line by line rather than when the child exits.
package mux

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxLine is the longest line kept in one piece. Longer lines are
	// emitted in chunks of this size.
	DefaultMaxLine = 1024 * 1024

	readSize = 32 * 1024
)

// LineEvent is one line of child output. Data excludes the terminator and is
// owned by the receiver. Partial marks the unterminated remainder at
// end-of-stream.
type LineEvent struct {
	Command string
	Stream  string
	Data    []byte
	Partial bool
}

// Sink consumes lines. WriteLine is called from many goroutines at once.
type Sink interface {
	WriteLine(LineEvent) error
}

// ReadError is a stream that ended with something other than end-of-file.
type ReadError struct {
	Command string
	Stream  string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s of %s: %v", e.Stream, e.Command, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Multiplexer feeds the streams of one command into a Sink.
type Multiplexer struct {
	command string
	sink    Sink

	// MaxLine overrides DefaultMaxLine when positive.
	MaxLine int
}

// New creates a multiplexer for the named command.
func New(command string, sink Sink) *Multiplexer {
	return &Multiplexer{command: command, sink: sink}
}

// Drain reads r until end-of-file and emits one LineEvent per line. A "\r\n"
// terminator is treated like "\n". Whatever is buffered when the stream ends
// is emitted with Partial set, including after a read failure.
//
// Parameters:
//   - stream: The stream name carried on every event
//   - r: The stream to read; Drain does not close it
//
// Returns:
//   - error: nil at end-of-file, the Sink's error if a write failed, or a
//     *ReadError if the stream failed
func (m *Multiplexer) Drain(stream string, r io.Reader) error {
	maxLine := m.MaxLine
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}

	buf := make([]byte, readSize)
	var pending []byte

	emit := func(line []byte, partial bool) error {
		data := make([]byte, len(line))
		copy(data, line)
		return m.sink.WriteLine(LineEvent{
			Command: m.command,
			Stream:  stream,
			Data:    data,
			Partial: partial,
		})
	}

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)

			start := 0
			for {
				i := bytes.IndexByte(pending[start:], '\n')
				if i < 0 {
					break
				}
				line := pending[start : start+i]
				start += i + 1
				for len(line) > maxLine {
					if err := emit(line[:maxLine], false); err != nil {
						return err
					}
					line = line[maxLine:]
				}
				if err := emit(bytes.TrimSuffix(line, []byte{'\r'}), false); err != nil {
					return err
				}
			}

			for len(pending)-start > maxLine {
				if err := emit(pending[start:start+maxLine], false); err != nil {
					return err
				}
				start += maxLine
			}

			// Compact so the buffer only ever holds one unfinished line.
			pending = append(pending[:0], pending[start:]...)
		}

		if readErr == nil {
			continue
		}

		if len(pending) > 0 {
			if err := emit(pending, true); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		return &ReadError{Command: m.command, Stream: stream, Err: readErr}
	}
}
