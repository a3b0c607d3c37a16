package urlparts

import "testing"

func TestParseBasic(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase scheme", "HTTP://Example.com/Path", "http://example.com/Path"},
		{"default port dropped", "http://example.com:80/", "http://example.com/"},
		{"non-default port kept", "http://example.com:8080/", "http://example.com:8080/"},
		{"trailing dot stripped", "http://example.com./", "http://example.com/"},
		{"dot segment collapsed", "http://example.com/a/./b", "http://example.com/a/b"},
		{"dotdot segment collapsed", "http://example.com/a/b/../c", "http://example.com/a/c"},
		{"double slash collapsed", "http://example.com/a//b", "http://example.com/a/b"},
		{"trailing hash preserved", "http://example.com/page#", "http://example.com/page#"},
		{"fragment requoted", "http://example.com/page#a b", "http://example.com/page#a%20b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := Parse(tt.raw, nil, nil)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseRelative(t *testing.T) {
	parent, _, err := Parse("http://example.com/dir/page.html", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, got, err := Parse("../other.html", parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "http://example.com/other.html"
	if got != want {
		t.Errorf("relative join = %q, want %q", got, want)
	}
}

func TestIdempotence(t *testing.T) {
	urls := []string{
		"HTTP://Example.COM:80/a/./b/../c?x=1&y=2#frag",
		"https://example.com/path%20with%20space",
		"ftp://example.com:21/pub/",
	}
	for _, u := range urls {
		_, once, err := Parse(u, nil, nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", u, err)
		}
		_, twice, err := Parse(once, nil, nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: norm(%q)=%q, norm(norm(%q))=%q", u, once, u, twice)
		}
	}
}

func TestCacheURLStableUnderFragment(t *testing.T) {
	_, base, err := Parse("http://example.com/page", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, withFrag, err := Parse("http://example.com/page#section", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if CacheURL(base) != CacheURL(withFrag) {
		t.Errorf("CacheURL differs: %q vs %q", CacheURL(base), CacheURL(withFrag))
	}
}

func TestMailto(t *testing.T) {
	parts, canon, err := Parse("mailto:user@example.com?subject=hi", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if parts.Path != "user@example.com" {
		t.Errorf("mailto path = %q", parts.Path)
	}
	if canon != "mailto:user@example.com?subject=hi" {
		t.Errorf("mailto canonical = %q", canon)
	}
}

func TestIDNHost(t *testing.T) {
	parts, _, err := Parse("http://xn--nxasmq6b.example/", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if parts.Host == "" {
		t.Fatal("expected host to be set")
	}
}
