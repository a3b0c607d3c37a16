// Package linkextract implements the link checker's link extractor (C2):
// given parsed content of a known MIME type, it emits (url, line, column,
// name, base) tuples for the checker's work queue to turn into child
// URLObjects.
package linkextract

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Link is one discovered reference, with enough provenance to build a
// child URLObject (spec §4.2).
type Link struct {
	URL    string
	Line   int
	Column int
	Name   string
	Base   string // <base href> in scope, if any
	Page   int    // page number, for multi-page formats
}

// linkTags mirrors linkcheck/htmlutil/linkparse.py's LinkTags table: for a
// closed table of tag/attribute pairs, emit a link tuple.
var linkTags = map[string][]string{
	"a":          {"href"},
	"applet":     {"archive", "src"},
	"area":       {"href"},
	"audio":      {"src"},
	"bgsound":    {"src"},
	"blockquote": {"cite"},
	"body":       {"background"},
	"button":     {"formaction"},
	"del":        {"cite"},
	"embed":      {"pluginspage", "src"},
	"form":       {"action"},
	"frame":      {"src", "longdesc"},
	"head":       {"profile"},
	"html":       {"manifest"},
	"iframe":     {"src", "longdesc"},
	"ilayer":     {"background"},
	"img":        {"src", "lowsrc", "longdesc", "usemap", "srcset"},
	"input":      {"src", "usemap", "formaction"},
	"ins":        {"cite"},
	"isindex":    {"action"},
	"layer":      {"background", "src"},
	"link":       {"href"},
	"meta":       {"content", "href"},
	"object":     {"classid", "data", "archive", "usemap", "codebase"},
	"q":          {"cite"},
	"script":     {"src"},
	"source":     {"src"},
	"table":      {"background"},
	"td":         {"background"},
	"th":         {"background"},
	"tr":         {"background"},
	"track":      {"src"},
	"video":      {"src"},
	"xmp":        {"href"},
}

// universalAttrs apply to every tag (the None key in linkparse.py).
var universalAttrs = []string{"style", "itemtype"}

var (
	refreshRe = regexp.MustCompile(`(?i)^\d+;\s*url=(.+)$`)
	cssURLRe  = regexp.MustCompile(`(?i)url\(\s*('[^']+'|"[^"]+"|[^)\s]+)\s*\)`)
	cCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	swfURLRe   = regexp.MustCompile(`(?i)[a-z][a-z0-9+.-]*://[^\s"'<>]+`)
)

// ExtractHTML walks every tag of an HTML document and emits link tuples
// per the tag/attribute table above, handling the meta/form/srcset/style
// special cases and the dns-prefetch/preconnect rewrite (spec §4.2).
func ExtractHTML(r io.Reader, page int) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []Link
	var baseRef string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := attrMap(n)
			tag := n.Data

			if tag == "base" && baseRef == "" {
				baseRef = attrs["href"]
			}

			names := make(map[string]bool)
			for _, a := range linkTags[tag] {
				names[a] = true
			}
			for _, a := range universalAttrs {
				names[a] = true
			}

			keys := sortedKeys(names)
			for _, attr := range keys {
				val, has := attrs[attr]
				if !has {
					continue
				}
				if tag == "meta" && !isMetaURL(attr, attrs) {
					continue
				}
				if tag == "form" && !isFormGet(attrs) {
					continue
				}

				name := linkName(tag, attr, attrs, textContent(n))
				base := baseRef
				if tag == "applet" {
					if cb := attrs["codebase"]; cb != "" {
						base = cb
					}
				}

				if tag == "link" {
					rel := strings.ToLower(attrs["rel"])
					if strings.Contains(rel, "dns-prefetch") || strings.Contains(rel, "preconnect") {
						v := val
						if i := strings.IndexByte(v, ':'); i >= 0 {
							v = v[i+1:]
						}
						v = strings.TrimLeft(v, "/")
						if i := strings.IndexByte(v, '/'); i >= 0 {
							v = v[:i]
						}
						val = "dns:" + v
					}
				}

				line, col := 0, 0 // golang.org/x/net/html does not track positions

				links = append(links, emitTagLinks(tag, attr, val, name, base, line, col, page)...)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// ExtractMetaRobots returns the content attribute of the page's first
// <meta name="robots"> tag, or "" if none is present (spec §4.7, the
// nofollow gate applied after a successful HTML fetch).
func ExtractMetaRobots(r io.Reader) string {
	doc, err := html.Parse(r)
	if err != nil {
		return ""
	}

	var content string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if content != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			attrs := attrMap(n)
			if strings.EqualFold(attrs["name"], "robots") {
				content = attrs["content"]
				return
			}
		}
		for c := n.FirstChild; c != nil && content == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return content
}

// ExtractAnchors returns every anchor identifier a page defines: each
// element's id attribute plus each <a name="..."> (spec §4.4, the set an
// AnchorCheck content plugin validates fragment links against).
func ExtractAnchors(r io.Reader) []string {
	doc, err := html.Parse(r)
	if err != nil {
		return nil
	}

	var anchors []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := attrMap(n)
			if id := attrs["id"]; id != "" {
				anchors = append(anchors, id)
			}
			if n.Data == "a" {
				if name := attrs["name"]; name != "" {
					anchors = append(anchors, name)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return anchors
}

func emitTagLinks(tag, attr, value, name, base string, line, col, page int) []Link {
	mk := func(u string) Link { return Link{URL: u, Line: line, Column: col, Name: name, Base: base, Page: page} }

	switch {
	case tag == "meta" && value != "":
		if m := refreshRe.FindStringSubmatch(value); m != nil {
			return []Link{mk(m[1])}
		}
		if attr != "content" {
			return []Link{mk(value)}
		}
		return nil
	case attr == "style" && value != "":
		var out []Link
		for _, m := range cssURLRe.FindAllStringSubmatch(value, -1) {
			out = append(out, mk(unquoteCSSURL(m[1])))
		}
		return out
	case attr == "archive":
		var out []Link
		for _, u := range strings.Split(value, ",") {
			out = append(out, mk(strings.TrimSpace(u)))
		}
		return out
	case attr == "srcset":
		var out []Link
		for _, u := range parseSrcset(value) {
			out = append(out, mk(u))
		}
		return out
	default:
		return []Link{mk(value)}
	}
}

func unquoteCSSURL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isMetaURL(attr string, attrs map[string]string) bool {
	if attr == "content" {
		equiv := strings.ToLower(attrs["http-equiv"])
		scheme := strings.ToLower(attrs["scheme"])
		return equiv == "refresh" || scheme == "dcterms.uri"
	}
	if attr == "href" {
		rel := strings.ToLower(attrs["rel"])
		return rel == "shortcut icon" || rel == "icon"
	}
	return false
}

func isFormGet(attrs map[string]string) bool {
	return strings.ToLower(attrs["method"]) != "post"
}

func linkName(tag, attr string, attrs map[string]string, text string) string {
	switch {
	case tag == "a" && attr == "href":
		if n := attrs["title"]; n != "" {
			return n
		}
		return ""
	case tag == "img":
		if n := attrs["alt"]; n != "" {
			return n
		}
		return attrs["title"]
	default:
		return ""
	}
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Stable, deterministic order without pulling in "sort" for 2-3 keys
	// in the common case; attribute count per tag is small.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ExtractCSS strips /* */ comments then applies the same url(...) regex
// used for inline style attributes (spec §4.2, CSS).
func ExtractCSS(r io.Reader, page int) ([]Link, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := cCommentRe.ReplaceAllString(string(data), "")
	var out []Link
	for _, m := range cssURLRe.FindAllStringSubmatch(text, -1) {
		out = append(out, Link{URL: unquoteCSSURL(m[1]), Page: page})
	}
	return out, nil
}

// ExtractTextList extracts one URL per non-blank, non-"#" line (spec §4.2,
// plain-text URL lists).
func ExtractTextList(r io.Reader, page int) ([]Link, error) {
	var out []Link
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, Link{URL: text, Line: line, Page: page})
	}
	return out, scanner.Err()
}

// ExtractSWF scans an SWF body with a byte-level regex for well-formed
// URLs (spec §4.2, Flash bodies).
func ExtractSWF(data []byte, page int) []Link {
	var out []Link
	for _, m := range swfURLRe.FindAll(data, -1) {
		out = append(out, Link{URL: string(m), Page: page})
	}
	return out
}

// ExtractPlainTextURLs scans arbitrary extracted text (PDF/DOC plugin
// output) for URL-shaped substrings (spec §4.2, "scan extracted text with
// the URL regex").
func ExtractPlainTextURLs(text string, page int) []Link {
	var out []Link
	for _, m := range swfURLRe.FindAllString(text, -1) {
		out = append(out, Link{URL: m, Page: page})
	}
	return out
}

// DetectEncoding implements the §4.7 fallback: use the declared
// Content-Type charset if present, otherwise BS4's detection heuristic —
// here, golang.org/x/net/html/charset's meta/BOM sniff — falling back to
// ISO-8859-1 for undeclared text/* content per HTTP/1.1.
func DetectEncoding(body []byte, contentType string) string {
	if _, name, ok := charsetFromContentType(contentType); ok {
		return name
	}
	if _, name, certain := charset.DetermineEncoding(body, contentType); certain {
		return name
	}
	return "iso-8859-1"
}

func charsetFromContentType(contentType string) (string, string, bool) {
	_, params, err := mimeParse(contentType)
	if err != nil {
		return "", "", false
	}
	if cs, ok := params["charset"]; ok && cs != "" {
		return contentType, strings.ToLower(cs), true
	}
	return "", "", false
}

// mimeParse is a tiny "type/subtype; k=v" splitter, avoiding a dependency
// on mime.ParseMediaType's stricter RFC 2045 quoting for the common case.
func mimeParse(contentType string) (string, map[string]string, error) {
	parts := strings.Split(contentType, ";")
	params := make(map[string]string)
	for _, p := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) == 2 {
			params[strings.ToLower(strings.TrimSpace(kv[0]))] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
	}
	return strings.TrimSpace(parts[0]), params, nil
}
