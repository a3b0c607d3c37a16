package linkextract

import (
	"strings"
	"testing"
)

func TestExtractHTMLAnchor(t *testing.T) {
	doc := `<html><body><a href="/about" title="About us">About</a></body></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "/about" {
		t.Fatalf("got %+v", links)
	}
	if links[0].Name != "About us" {
		t.Errorf("name = %q, want %q", links[0].Name, "About us")
	}
}

func TestExtractHTMLMetaRefresh(t *testing.T) {
	doc := `<html><head><meta http-equiv="refresh" content="5; url=/next"></head></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "/next" {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractHTMLMetaIconOnly(t *testing.T) {
	doc := `<html><head><meta name="description" content="not a link"></head></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no links, got %+v", links)
	}
}

func TestExtractHTMLFormPostSkipped(t *testing.T) {
	doc := `<html><body><form method="post" action="/submit"></form><form action="/search"></form></body></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "/search" {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractHTMLDNSPrefetchRewrite(t *testing.T) {
	doc := `<html><head><link rel="dns-prefetch" href="//fonts.example.com/"></head></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "dns:fonts.example.com" {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractHTMLStyleInline(t *testing.T) {
	doc := `<html><body><div style="background: url('/img.png')"></div></body></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "/img.png" {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractHTMLSrcset(t *testing.T) {
	doc := `<html><body><img src="/a.png" srcset="/b.png 1x, /c.png 2x"></body></html>`
	links, err := ExtractHTML(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	want := map[string]bool{"/a.png": true, "/b.png": true, "/c.png": true}
	if len(urls) != 3 {
		t.Fatalf("got %v", urls)
	}
	for _, u := range urls {
		if !want[u] {
			t.Errorf("unexpected url %q", u)
		}
	}
}

func TestExtractCSS(t *testing.T) {
	css := `/* comment url(ignored) */ .bg { background: url(/img.png); }`
	links, err := ExtractCSS(strings.NewReader(css), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].URL != "/img.png" {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractTextList(t *testing.T) {
	list := "http://example.com/a\n# comment\n\nhttp://example.com/b\n"
	links, err := ExtractTextList(strings.NewReader(list), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractSitemap(t *testing.T) {
	doc := `<?xml version="1.0"?><urlset><url><loc>http://example.com/a</loc></url><url><loc>http://example.com/b</loc></url></urlset>`
	links, err := ExtractSitemap(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("got %+v", links)
	}
}
