package logger

import (
	"fmt"
	"io"
)

// TextSink writes a human-readable line per record, mirroring the
// teacher's Coordinator.printResult text branch.
type TextSink struct {
	baseSink
	Out        io.Writer
	Verbose    bool // log every URL, not just errors (-v)
	NoWarnings bool
}

func NewTextSink(out io.Writer, verbose, noWarnings bool) *TextSink {
	return &TextSink{Out: out, Verbose: verbose, NoWarnings: noWarnings}
}

func (s *TextSink) Log(r Record) {
	if !s.Verbose && r.Valid && len(r.Warnings) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := "ok"
	if !r.Valid {
		status = "error"
	}
	fmt.Fprintf(s.Out, "%-6s %s\n", status, r.URL)
	if r.ParentURL != "" {
		fmt.Fprintf(s.Out, "  from %s, line %d, col %d\n", r.ParentURL, r.Line, r.Column)
	}
	if r.Result != "" {
		fmt.Fprintf(s.Out, "  result: %s\n", r.Result)
	}
	if !s.NoWarnings {
		for _, w := range r.Warnings {
			fmt.Fprintf(s.Out, "  warning: %s\n", w)
		}
	}
}

func (s *TextSink) Close() error { return nil }
