package plugin

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/cametumbling/linkchecker/internal/cache"
	"github.com/stretchr/testify/require"
)

func TestAnchorCheckCachesOnce(t *testing.T) {
	ac := &AnchorCheck{Cache: cache.NewAnchorCache(10)}
	ac.OnContent(context.Background(), "http://example.com/a", "text/html", nil, []string{"top"}, "")

	v, ok := ac.Cache.Get("http://example.com/a", "anchors")
	require.True(t, ok)
	require.Equal(t, []string{"top"}, v)
}

func TestAnchorCheckMissingFragmentWarns(t *testing.T) {
	ac := &AnchorCheck{Cache: cache.NewAnchorCache(10)}
	warnings := ac.OnContent(context.Background(), "file:///data/anchor.html", "text/html", nil, []string{"myid:"}, "broken")

	require.Len(t, warnings, 1)
	require.Equal(t, "Anchor 'broken' not found. Available anchors: 'myid:'.", warnings[0].Message)
}

func TestAnchorCheckFoundFragmentNoWarning(t *testing.T) {
	ac := &AnchorCheck{Cache: cache.NewAnchorCache(10)}
	warnings := ac.OnContent(context.Background(), "file:///data/anchor.html", "text/html", nil, []string{"myid"}, "myid")
	require.Empty(t, warnings)
}

func TestAnchorCheckReusesCachedAnchors(t *testing.T) {
	ac := &AnchorCheck{Cache: cache.NewAnchorCache(10)}
	ac.OnContent(context.Background(), "http://example.com/a", "text/html", nil, []string{"top"}, "")

	// A second call for the same cache URL reuses the cached anchor set
	// even when passed a different (e.g. empty, re-fetched-from-cache) slice.
	warnings := ac.OnContent(context.Background(), "http://example.com/a", "text/html", nil, nil, "top")
	require.Empty(t, warnings)
}

func TestAnchorCheckDecodedEquality(t *testing.T) {
	ac := &AnchorCheck{Cache: cache.NewAnchorCache(10)}
	warnings := ac.OnContent(context.Background(), "http://example.com/a", "text/html", nil, []string{"my id"}, "my%20id")
	require.Empty(t, warnings)
}

func TestRegexWarningMatches(t *testing.T) {
	r := &RegexWarning{Pattern: regexp.MustCompile(`TODO`), Tag: "todo"}
	warnings := r.OnContent(context.Background(), "u", "text/plain", []byte("TODO: fix"), nil, "")
	require.Len(t, warnings, 1)
}

func TestRegexWarningNoMatch(t *testing.T) {
	r := &RegexWarning{Pattern: regexp.MustCompile(`TODO`), Tag: "todo"}
	warnings := r.OnContent(context.Background(), "u", "text/plain", []byte("done"), nil, "")
	require.Empty(t, warnings)
}

func TestSizeWarningThreshold(t *testing.T) {
	s := &SizeWarning{ThresholdBytes: 4}
	require.Empty(t, s.OnContent(context.Background(), "u", "", []byte("ab"), nil, ""))
	require.Len(t, s.OnContent(context.Background(), "u", "", []byte("abcdefgh"), nil, ""), 1)
}

func TestManagerRunsAllContentPlugins(t *testing.T) {
	m := &Manager{Contents: []Content{
		&SizeWarning{ThresholdBytes: 1},
		&RegexWarning{Pattern: regexp.MustCompile(`x`), Tag: "x"},
	}}
	warnings := m.RunContent(context.Background(), "u", "text/plain", []byte("xx"), nil, "")
	require.Len(t, warnings, 2)
}

func TestSSLCertCheckNilLeaf(t *testing.T) {
	s := &SSLCertCheck{WarnWithin: time.Hour}
	require.Empty(t, s.OnConnect(context.Background(), "u", nil))
}
