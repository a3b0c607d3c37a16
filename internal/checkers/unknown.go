package checkers

import (
	"context"
	"net/url"
	"strings"
)

// ignoredSchemes mirrors spec §4.7 rule 2's "large IANA list" of schemes
// that are never dereferenced, only recorded as ignored.
var ignoredSchemes = map[string]bool{
	"javascript": true,
	"tel":        true,
	"sms":        true,
	"callto":     true,
	"skype":      true,
	"geo":        true,
	"data":       true,
	"about":      true,
	"nntp":       true,
	"news":       true,
	"irc":        true,
	"ed2k":       true,
	"magnet":     true,
	"urn":        true,
	"tag":        true,
}

// IgnoredScheme reports whether scheme is in the IANA-ignored set that
// C7 classifies built→ignored without ever dispatching a checker
// (spec §4.7 transition 2).
func IgnoredScheme(scheme string) bool {
	return ignoredSchemes[scheme]
}

// UnknownChecker implements the UnknownUrl variant (spec §4.8): schemes
// from the IANA-ignored set are reported as "ignored" without being
// dereferenced, and everything else is reported invalid with the
// "unrecognized or has invalid syntax" result text.
type UnknownChecker struct{}

func (c *UnknownChecker) Check(_ context.Context, req Request) (Outcome, error) {
	scheme := schemeOf(req.RawURL)

	if ignoredSchemes[scheme] {
		return Outcome{
			Valid:      true,
			ResultText: "ignored",
			Warnings:   []Warning{{Tag: "ignored-scheme", Message: "scheme " + scheme + " is not checked"}},
		}, nil
	}

	return Outcome{Valid: false, ResultText: "URL is unrecognized or has invalid syntax"},
		&SyntaxError{URL: req.RawURL, Reason: "unrecognized scheme " + scheme}
}

func schemeOf(rawURL string) string {
	if i := strings.IndexByte(rawURL, ':'); i > 0 {
		return rawURL[:i]
	}
	return ""
}

// ItmsServicesChecker implements the ItmsServicesUrl variant: a
// syntax-only check that the iOS over-the-air install manifest query
// parameter is present (SPEC_FULL.md §C item 2).
type ItmsServicesChecker struct{}

func (c *ItmsServicesChecker) Check(_ context.Context, req Request) (Outcome, error) {
	u, err := url.Parse(req.RawURL)
	if err != nil || u.Scheme != "itms-services" {
		return Outcome{Valid: false, ResultText: "invalid itms-services URL"},
			&SyntaxError{URL: req.RawURL, Reason: "not an itms-services: URL"}
	}

	q := u.Query()
	if q.Get("action") != "download-manifest" {
		return Outcome{Valid: false, ResultText: "missing action=download-manifest"},
			&SyntaxError{URL: req.RawURL, Reason: "action parameter must be download-manifest"}
	}
	if q.Get("url") == "" {
		return Outcome{Valid: false, ResultText: "missing manifest url parameter"},
			&SyntaxError{URL: req.RawURL, Reason: "url parameter is required"}
	}

	return Outcome{Valid: true, ResultText: "itms-services syntax OK"}, nil
}
