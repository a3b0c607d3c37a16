package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// classifyExtern decides a URL's (is-external, is-strict) tuple (spec §3
// URLObject "extern") against the seed host: a host-mismatch is
// external; checkExtern controls whether external URLs still recurse.
func classifyExtern(rawURL, seedHost string, checkExtern bool) (extern bool, strict bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == strings.ToLower(seedHost) {
		return false, false
	}
	return true, !checkExtern
}

// matchesAny reports whether rawURL matches any of patterns.
func matchesAny(patterns []*regexp.Regexp, rawURL string) bool {
	for _, p := range patterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}
