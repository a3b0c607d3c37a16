// Package plugin implements the plugin manager (C12): three hook points
// — pre-connection, connection, and content — run against a URL object
// at well-defined points in its C7 lifecycle (spec §4.10). Plugins are a
// compile-time registry rather than the original's directory-scanned
// classes (SPEC_FULL.md §C item 7).
package plugin

import (
	"context"
	"crypto/x509"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cametumbling/linkchecker/internal/cache"
	"github.com/cametumbling/linkchecker/internal/checkers"
)

// PreConnection sees a built URL before any network I/O; it may add info
// or a warning, or cancel the check by returning an error.
type PreConnection interface {
	PreConnect(ctx context.Context, rawURL string) ([]checkers.Warning, error)
}

// Connection sees the live response headers and, for HTTPS, the peer
// certificate chain; it may add a warning (e.g. certificate expiry).
type Connection interface {
	OnConnect(ctx context.Context, rawURL string, certs []*x509.Certificate) []checkers.Warning
}

// Content sees the parsed content of a fetched URL; it may add a
// warning (e.g. anchor-set validation, regex match, size threshold).
// anchors is the set of anchor identifiers the page itself defines;
// fragment is the checked URL's own fragment, or "" if it has none or
// the content is not HTML (spec §4.4, §4.10).
type Content interface {
	OnContent(ctx context.Context, cacheURL string, contentType string, body []byte, anchors []string, fragment string) []checkers.Warning
}

// Manager runs the registered plugins of each kind at their hook point.
type Manager struct {
	PreConnections []PreConnection
	Connections    []Connection
	Contents       []Content
}

func (m *Manager) RunPreConnection(ctx context.Context, rawURL string) ([]checkers.Warning, error) {
	var warnings []checkers.Warning
	for _, p := range m.PreConnections {
		w, err := p.PreConnect(ctx, rawURL)
		if err != nil {
			return warnings, err
		}
		warnings = append(warnings, w...)
	}
	return warnings, nil
}

func (m *Manager) RunConnection(ctx context.Context, rawURL string, certs []*x509.Certificate) []checkers.Warning {
	var warnings []checkers.Warning
	for _, p := range m.Connections {
		warnings = append(warnings, p.OnConnect(ctx, rawURL, certs)...)
	}
	return warnings
}

func (m *Manager) RunContent(ctx context.Context, cacheURL, contentType string, body []byte, anchors []string, fragment string) []checkers.Warning {
	var warnings []checkers.Warning
	for _, p := range m.Contents {
		warnings = append(warnings, p.OnContent(ctx, cacheURL, contentType, body, anchors, fragment)...)
	}
	return warnings
}

// AnchorCheck is a content plugin validating that every fragment a page
// is linked-to-with actually names an anchor on that page, via the
// shared anchor cache (C4) so a page's anchor set is computed at most
// once (spec §4.4, and spec §9 open-question (a): this later revision
// does not unconditionally return false on a cache miss — it computes
// and caches the set instead). When the checked URL itself carries a
// fragment, it is compared decoded against the page's own anchor set and
// a miss produces a warning (spec §8 scenario S1).
type AnchorCheck struct {
	Cache *cache.AnchorCache
}

func (a *AnchorCheck) OnContent(_ context.Context, cacheURL, _ string, _ []byte, anchors []string, fragment string) []checkers.Warning {
	if a.Cache != nil {
		if cached, ok := a.Cache.Get(cacheURL, "anchors"); ok {
			if cachedAnchors, ok := cached.([]string); ok {
				anchors = cachedAnchors
			}
		} else if anchors != nil {
			a.Cache.Put(cacheURL, "anchors", anchors)
		}
	}

	if fragment == "" {
		return nil
	}

	decoded := decodeAnchor(fragment)
	for _, name := range anchors {
		if decodeAnchor(name) == decoded {
			return nil
		}
	}
	return []checkers.Warning{{
		Tag:     "anchor-not-found",
		Message: fmt.Sprintf("Anchor '%s' not found. Available anchors: %s.", fragment, formatAnchors(anchors)),
	}}
}

// decodeAnchor percent-decodes an anchor/fragment for comparison, per
// spec §9 open-question (c): "decoded-equality for anchor comparison".
func decodeAnchor(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

// formatAnchors renders a page's anchor set for the "not found" warning,
// sorted and deduplicated, or "-" when the page defines none.
func formatAnchors(anchors []string) string {
	if len(anchors) == 0 {
		return "-"
	}
	seen := make(map[string]bool, len(anchors))
	names := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if !seen[a] {
			seen[a] = true
			names = append(names, a)
		}
	}
	sort.Strings(names)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}

// RegexWarning flags content matching a configured regular expression
// (spec §4.10, named after the original's regex-match content plugin).
type RegexWarning struct {
	Pattern *regexp.Regexp
	Tag     string
}

func (r *RegexWarning) OnContent(_ context.Context, _ string, _ string, body []byte, _ []string, _ string) []checkers.Warning {
	if r.Pattern == nil || !r.Pattern.Match(body) {
		return nil
	}
	return []checkers.Warning{{Tag: r.Tag, Message: "content matched configured pattern"}}
}

// SizeWarning flags content whose body exceeds a configured threshold,
// distinct from the hard maxfilesizedownload cutoff (spec §4.10).
type SizeWarning struct {
	ThresholdBytes int64
}

func (s *SizeWarning) OnContent(_ context.Context, _ string, _ string, body []byte, _ []string, _ string) []checkers.Warning {
	if int64(len(body)) <= s.ThresholdBytes {
		return nil
	}
	return []checkers.Warning{{
		Tag:     "large-content",
		Message: fmt.Sprintf("content size %d exceeds warning threshold %d", len(body), s.ThresholdBytes),
	}}
}

// SSLCertCheck is a connection plugin warning when the leaf certificate
// of an HTTPS response expires within WarnWithin (spec §4.10 example).
type SSLCertCheck struct {
	WarnWithin time.Duration
}

func (s *SSLCertCheck) OnConnect(_ context.Context, _ string, certs []*x509.Certificate) []checkers.Warning {
	if len(certs) == 0 {
		return nil
	}
	leaf := certs[0]
	remaining := time.Until(leaf.NotAfter)
	if remaining > s.WarnWithin {
		return nil
	}
	return []checkers.Warning{{
		Tag:     "cert-expiry",
		Message: fmt.Sprintf("certificate expires in %s", remaining.Round(time.Hour)),
	}}
}
