package ndjson

import (
	"bufio"
	"io"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	// Sink is an append-only NDJSON stream. A path sink opens its file on
	// first use (the first Enabled or Write call); an open failure logs one
	// diagnostic and disables
	// the sink for the rest of the process. Both behaviors are part of the
	// sink's contract, not the caller's.
	Sink struct {
		path string
		from loc.PC

		w  io.Writer
		f  *os.File
		bw *bufio.Writer

		dead  bool
		lines int
	}
)

// NewSink makes a sink writing to path. An empty path is a disabled sink.
func NewSink(path string) *Sink {
	return &Sink{
		path: path,
		from: loc.Caller(1),
		dead: path == "",
	}
}

// NewWriterSink makes a sink over an explicit writer. Used by hosts and
// tests that own the stream themselves.
func NewWriterSink(w io.Writer) *Sink {
	return &Sink{w: w, from: loc.Caller(1), dead: w == nil}
}

// Enabled reports whether the sink accepts writes, opening the file on
// first use.
func (s *Sink) Enabled() bool {
	if s == nil || s.dead {
		return false
	}

	if s.w != nil {
		return true
	}

	f, err := os.Create(s.path)
	if err != nil {
		tlog.Printw("failed to open sink", "path", s.path, "err", err, "from", s.from)

		s.dead = true

		return false
	}

	s.f = f
	s.bw = bufio.NewWriter(f)
	s.w = s.bw

	return true
}

// Write appends one record as a single line. rec must not contain the
// trailing newline. Returns the 1-based line number of the written line.
func (s *Sink) Write(rec []byte) int {
	if !s.Enabled() {
		return 0
	}

	rec = append(rec, '\n')

	_, err := s.w.Write(rec)
	if err != nil {
		tlog.Printw("sink write failed", "path", s.path, "err", err)

		s.dead = true

		return 0
	}

	s.lines++

	return s.lines
}

// Lines returns the number of lines written so far.
func (s *Sink) Lines() int {
	if s == nil {
		return 0
	}

	return s.lines
}

func (s *Sink) Close() (err error) {
	if s == nil {
		return nil
	}

	if s.bw != nil {
		err = s.bw.Flush()
		if err != nil {
			err = errors.Wrap(err, "flush %v", s.path)
		}
	}

	if s.f != nil {
		e := s.f.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close %v", s.path)
		}
	}

	s.w = nil
	s.f = nil
	s.bw = nil
	s.dead = true

	return err
}
