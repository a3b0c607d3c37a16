package logger

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// CSVSink writes one row per record: url, parent_url, valid, result,
// warnings (semicolon-joined), content_type, size.
type CSVSink struct {
	baseSink
	w *csv.Writer
}

func NewCSVSink(out io.Writer) *CSVSink {
	w := csv.NewWriter(out)
	w.Write([]string{"url", "parent_url", "valid", "result", "warnings", "content_type", "size"})
	return &CSVSink{w: w}
}

func (s *CSVSink) Log(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Write([]string{
		r.URL,
		r.ParentURL,
		strconv.FormatBool(r.Valid),
		r.Result,
		strings.Join(r.Warnings, ";"),
		r.ContentType,
		strconv.FormatInt(r.Size, 10),
	})
	s.w.Flush()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.w.Error()
}
