// Package urlparts implements the link checker's URL normaliser: parsing,
// canonicalising, quoting, and IDN-encoding a raw URL string into a
// structured URLParts value plus its canonical string form.
package urlparts

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// Query is a single ordered key/value pair from a query string, along with
// the separator that followed it ("&" or ";"). HasEquals tracks whether the
// raw pair had an "=" at all, so that "k" and "k=" round-trip distinctly.
type Query struct {
	Key       string
	Value     string
	HasEquals bool
	Sep       byte
}

// URLParts is the immutable seven-tuple the normaliser produces: scheme,
// userinfo, host, port, path, query, fragment.
type URLParts struct {
	Scheme    string
	UserInfo  string
	Host      string
	Port      string // empty when it equals the scheme default
	Path      string
	Query     []Query
	Fragment  string
	HasHash   bool // true if a bare trailing "#" was present with no fragment
	IsIDN     bool
	Whitespace bool // raw string had leading/trailing whitespace (warning only)
}

// defaultPorts maps a scheme to its default port, dropped from URLParts.Port
// when it matches.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
}

// safeFragment is the character set left unescaped in a fragment (rule 7).
const safeFragment = "!$&'()*+,-./;=?@_~"

// safePath is the reserved set left unescaped in a path (§4.1 rule 5).
const safePath = "-;/=,~*+()@!"

var waybackRe = regexp.MustCompile(`https?%3A/`)

// Parse normalises rawURL against an optional parent and base-ref URL and
// returns its structured parts plus the canonical string form.
//
// parent is the URL the link was discovered on (used to resolve relative
// references); baseRef is the value of a <base href> element in scope, if
// any, and takes priority over parent when resolving relative references.
func Parse(rawURL string, parent *URLParts, baseRef *URLParts) (*URLParts, string, error) {
	trimmed := strings.TrimSpace(rawURL)
	hadWhitespace := trimmed != rawURL

	joined, err := join(trimmed, parent, baseRef)
	if err != nil {
		return nil, "", err
	}

	u, err := url.Parse(joined)
	if err != nil {
		return nil, "", fmt.Errorf("urlparts: parse %q: %w", rawURL, err)
	}

	parts := &URLParts{
		Scheme:     strings.ToLower(u.Scheme),
		Whitespace: hadWhitespace,
	}

	if parts.Scheme == "mailto" {
		return parseMailto(u, parts)
	}

	if u.User != nil {
		parts.UserInfo = u.User.String()
	}

	if err := parts.setHost(u.Hostname()); err != nil {
		return nil, "", err
	}
	parts.setPort(u.Port())

	parts.Path = normalizePath(u.EscapedPath())
	parts.Path = waybackRe.ReplaceAllString(parts.Path, "https://")

	parts.Query = parseQuery(u.RawQuery)

	rawFrag := u.EscapedFragment()
	parts.Fragment = requote(mustUnescape(rawFrag), safeFragment)
	parts.HasHash = strings.HasSuffix(joined, "#") && rawFrag == ""

	return parts, parts.String(), nil
}

// join resolves rawURL against parent/baseRef per RFC 3986 using
// net/url's ResolveReference. It has no scheme-specific cases: mailto:
// query splitting happens later in parseMailto, and the Windows
// four-slash file:////… form is not produced.
func join(rawURL string, parent, baseRef *URLParts) (string, error) {
	if looksAbsolute(rawURL) {
		return rawURL, nil
	}

	base := baseRef
	if base == nil {
		base = parent
	}
	if base == nil {
		return rawURL, nil
	}

	baseURL, err := url.Parse(base.String())
	if err != nil {
		return "", fmt.Errorf("urlparts: bad base %q: %w", base.String(), err)
	}

	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlparts: bad reference %q: %w", rawURL, err)
	}

	resolved := baseURL.ResolveReference(ref)
	return resolved.String(), nil
}

// looksAbsolute reports whether s begins with a scheme (letter followed by
// letters/digits/+/-/. then a colon).
func looksAbsolute(s string) bool {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return false
	}
	for j := 0; j < i; j++ {
		c := s[j]
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isRest := isLetter || (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
		if j == 0 && !isLetter {
			return false
		}
		if !isRest {
			return false
		}
	}
	return true
}

// parseMailto splits a mailto: URL into the address list and query
// parameters (§4.1 rule 3). net/url already separates the query into
// RawQuery; a "?" still left in the address part is split off as well.
func parseMailto(u *url.URL, parts *URLParts) (*URLParts, string, error) {
	parts.Scheme = "mailto"
	opaque := u.Opaque
	if opaque == "" {
		opaque = strings.TrimPrefix(u.String(), "mailto:")
	}
	path := opaque
	query := u.RawQuery
	if i := strings.IndexByte(opaque, '?'); i >= 0 {
		path = opaque[:i]
		query = opaque[i+1:]
	}
	parts.Path = path
	parts.Query = parseQuery(query)
	return parts, parts.String(), nil
}

func (p *URLParts) setHost(host string) error {
	decoded := mustUnescape(host)
	lower := strings.ToLower(decoded)
	lower = strings.TrimSuffix(lower, ".")
	if lower == "" {
		p.Host = ""
		return nil
	}
	encoded, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		// Not all hosts are valid IDNA (IP literals, etc.); fall back to the
		// lowercased, percent-decoded form rather than failing the parse.
		p.Host = lower
		return nil
	}
	if encoded != lower {
		p.IsIDN = true
	}
	p.Host = encoded
	return nil
}

func (p *URLParts) setPort(port string) {
	if port == "" {
		p.Port = ""
		return
	}
	if def, ok := defaultPorts[p.Scheme]; ok && def == port {
		p.Port = ""
		return
	}
	p.Port = port
}

// normalizePath percent-decodes then collapses the path per §4.1 rule 5:
// backslashes become slashes, "//+"->"/", "./" segments drop, ".." segments
// collapse against their predecessor, repeated to a fixed point.
func normalizePath(escaped string) string {
	decoded := mustUnescape(escaped)
	decoded = strings.ReplaceAll(decoded, "\\", "/")

	for {
		collapsed := collapseOnce(decoded)
		if collapsed == decoded {
			break
		}
		decoded = collapsed
	}
	return requote(decoded, safePath)
}

func collapseOnce(path string) string {
	leadingSlash := strings.HasPrefix(path, "/")
	segments := strings.Split(path, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			if seg == "" && len(out) == 0 && !leadingSlash {
				out = append(out, seg)
			}
			continue
		case "..":
			if n := len(out); n > 0 && out[n-1] != ".." {
				out = out[:n-1]
			} else if !leadingSlash {
				out = append(out, seg)
			}
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, "/")
	if leadingSlash && !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(joined, "/") && joined != "" {
		joined += "/"
	}
	return joined
}

// parseQuery splits raw into ordered Query pairs, tracking "&" vs ";"
// separators and whether "=" was present (§4.1 rule 6).
func parseQuery(raw string) []Query {
	if raw == "" {
		return nil
	}
	var out []Query
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '&' || raw[i] == ';' {
			pair := raw[start:i]
			sep := byte('&')
			if i < len(raw) {
				sep = raw[i]
			}
			if pair != "" {
				out = append(out, splitPair(pair, sep))
			}
			start = i + 1
		}
	}
	return out
}

func splitPair(pair string, sep byte) Query {
	if idx := strings.IndexByte(pair, '='); idx >= 0 {
		k := requote(mustUnescape(pair[:idx]), safePath)
		v := requote(mustUnescape(pair[idx+1:]), safePath)
		return Query{Key: k, Value: v, HasEquals: true, Sep: sep}
	}
	return Query{Key: requote(mustUnescape(pair), safePath), HasEquals: false, Sep: sep}
}

func mustUnescape(s string) string {
	out, err := url.QueryUnescape(strings.ReplaceAll(s, "+", "%2B"))
	if err != nil {
		return s
	}
	return out
}

// requote percent-encodes every byte not in the unreserved set or extra.
func requote(s string, extra string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(extra, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// String re-emits the URLParts as a single canonical string, preserving a
// trailing bare "#" when the original had one (§4.1 rule 9).
func (p *URLParts) String() string {
	var b strings.Builder
	b.WriteString(p.Scheme)
	b.WriteByte(':')

	if p.Scheme == "mailto" {
		b.WriteString(p.Path)
		writeQuery(&b, p.Query)
		return b.String()
	}

	b.WriteString("//")
	if p.UserInfo != "" {
		b.WriteString(p.UserInfo)
		b.WriteByte('@')
	}
	b.WriteString(p.Host)
	if p.Port != "" {
		b.WriteByte(':')
		b.WriteString(p.Port)
	}
	b.WriteString(p.Path)
	writeQuery(&b, p.Query)

	if p.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(p.Fragment)
	} else if p.HasHash {
		b.WriteByte('#')
	}
	return b.String()
}

func writeQuery(b *strings.Builder, q []Query) {
	if len(q) == 0 {
		return
	}
	b.WriteByte('?')
	for i, pair := range q {
		if i > 0 {
			b.WriteByte(pair.Sep)
		}
		b.WriteString(pair.Key)
		if pair.HasEquals {
			b.WriteByte('=')
			b.WriteString(pair.Value)
		} else {
			// preserve "k&" form: nothing to write, separator already added
		}
	}
}

// CacheURL returns the normalised URL with its fragment removed — the
// fingerprint used for at-most-once checking (§4.1, "the fingerprint").
func CacheURL(canonical string) string {
	if i := strings.IndexByte(canonical, '#'); i >= 0 {
		return canonical[:i]
	}
	return canonical
}
