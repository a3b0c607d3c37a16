package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextSinkSkipsCleanURLsUnlessVerbose(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf, false, false)
	s.Log(Record{URL: "http://example.com", Valid: true})
	require.Empty(t, buf.String())

	s.Log(Record{URL: "http://example.com/broken", Valid: false, Result: "404"})
	require.Contains(t, buf.String(), "http://example.com/broken")
}

func TestTextSinkVerboseLogsEverything(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf, true, false)
	s.Log(Record{URL: "http://example.com", Valid: true})
	require.Contains(t, buf.String(), "http://example.com")
}

func TestJSONSinkWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONSink(&buf)
	s.Log(Record{URL: "http://example.com", Valid: true})
	s.Log(Record{URL: "http://example.com/b", Valid: false, Result: "404"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"url":"http://example.com"`)
}

func TestCSVSinkHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)
	s.Log(Record{URL: "http://example.com", Valid: true, Size: 10})
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "url")
}

func TestGraphSinkDotSkipsInvalid(t *testing.T) {
	var buf bytes.Buffer
	s := NewGraphSink(&buf, "dot")
	s.Log(Record{URL: "http://example.com", Valid: true})
	s.Log(Record{URL: "http://example.com/bad", Valid: false})
	require.NoError(t, s.Close())

	out := buf.String()
	require.Contains(t, out, "digraph")
	require.NotContains(t, out, "bad")
}

func TestFanOutDispatchesToAllSinks(t *testing.T) {
	var a, b bytes.Buffer
	f := NewFanOut(NewTextSink(&a, true, false), NewJSONSink(&b))
	f.Log(Record{URL: "http://example.com", Valid: true})
	require.NotEmpty(t, a.String())
	require.NotEmpty(t, b.String())
	require.NoError(t, f.Close())
}

func TestFailuresSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures")
	require.NoError(t, os.WriteFile(path, []byte(`3 "(http://p, http://example.com/gone)"`+"\n"), 0o644))

	s, err := NewFailuresSink(path)
	require.NoError(t, err)

	s.Log(Record{ParentURL: "http://p", URL: "http://example.com/gone", Valid: false})
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `4 "(http://p, http://example.com/gone)"`)
}

func TestFailuresSinkRemovesNowPassing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures")
	require.NoError(t, os.WriteFile(path, []byte(`2 "(http://p, http://example.com/fixed)"`+"\n"), 0o644))

	s, err := NewFailuresSink(path)
	require.NoError(t, err)

	s.Log(Record{ParentURL: "http://p", URL: "http://example.com/fixed", Valid: true})
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(string(data)))
}

func TestFailuresSinkMissingFileStartsEmpty(t *testing.T) {
	s, err := NewFailuresSink(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, s.counts)
}
