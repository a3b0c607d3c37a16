// Package robots implements the link checker's robots.txt cache (C3): a
// per-(scheme, host, port) fetch-parse-evaluate cache answering "may
// agent X fetch URL Y?", gated behind robots_lock per spec §5.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsPath        = "/robots.txt"
	maxRobotsBodyBytes = 512 * 1024
)

// entry holds the parsed robots.txt for one (scheme, host, port), or the
// "allow everything" state when the fetch itself errored (spec §4.3:
// "If the fetch itself errors, treat as allows everything").
type entry struct {
	data      *robotstxt.RobotsData
	allowAll  bool
	fetchedAt time.Time
}

// Cache fetches, parses and caches robots.txt per host for the process
// lifetime (spec §3, RobotsEntry: "created on first need, kept for the
// process lifetime").
type Cache struct {
	client    *http.Client
	userAgent string

	mu      sync.Mutex // robots_lock
	entries map[string]*entry
}

// New creates a robots.txt cache using client for fetches and userAgent
// for both the fetch's User-Agent header and rule evaluation.
func New(client *http.Client, userAgent string) *Cache {
	return &Cache{
		client:    client,
		userAgent: userAgent,
		entries:   make(map[string]*entry),
	}
}

func key(scheme, host, port string) string {
	return scheme + "://" + host + ":" + port
}

// AllowsURL answers "may agent fetch u?" per spec §4.3: missing or errored
// robots.txt allows everything; otherwise the parsed rule set is
// evaluated against the URL's path for the configured user agent.
func (c *Cache) AllowsURL(ctx context.Context, u *url.URL) (bool, error) {
	e, err := c.get(ctx, u)
	if err != nil {
		return true, err
	}
	if e.allowAll {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return e.data.TestAgent(path, c.userAgent), nil
}

// CrawlDelay returns the Crawl-delay directive for host, or 0 if none is
// set or robots.txt has not yet been fetched.
func (c *Cache) CrawlDelay(scheme, host, port string) time.Duration {
	c.mu.Lock()
	e, ok := c.entries[key(scheme, host, port)]
	c.mu.Unlock()
	if !ok || e.allowAll || e.data == nil {
		return 0
	}
	group := e.data.FindGroup(c.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (c *Cache) get(ctx context.Context, u *url.URL) (*entry, error) {
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	k := key(u.Scheme, strings.ToLower(u.Hostname()), port)

	c.mu.Lock()
	if e, ok := c.entries[k]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	e := c.fetch(ctx, u.Scheme, u.Hostname(), port)

	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()

	return e, nil
}

func (c *Cache) fetch(ctx context.Context, scheme, host, port string) *entry {
	robotsURL := fmt.Sprintf("%s://%s:%s%s", scheme, host, port, robotsPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}

	return &entry{data: data, fetchedAt: time.Now()}
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	default:
		return "80"
	}
}

// nofollowRe matches the "nofollow" token in a robots meta content value,
// bounded by non-word characters, case-insensitively (spec §4.3).
var nofollowRe = regexp.MustCompile(`(?i)\bnofollow\b`)

// HasNofollow reports whether an HTML <meta name="robots" content="...">
// value instructs the crawler not to recurse into this page's links.
func HasNofollow(metaRobotsContent string) bool {
	return nofollowRe.MatchString(metaRobotsContent)
}
