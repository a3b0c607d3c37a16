// Package checkers implements the scheme-dispatched checkers (C8):
// HTTP(S), FTP, file, mailto, DNS, itms-services, and unknown/ignored,
// all sharing the CheckOutcome result type and Checker interface that
// spec §4.7/§4.9 call the URL object's "lifecycle".
package checkers

import (
	"context"
	"crypto/x509"
	"time"
)

// Warning is a (tag, message) pair appended to a URLObject (spec §3).
type Warning struct {
	Tag     string
	Message string
}

// Outcome is the "exception control flow replaced with a result-like sum
// type" design note (spec §9): Ok carries info/warnings/content; Failed
// carries a short result string and whether it should be treated as a
// syntax-only validity (e.g. robots-denied).
type Outcome struct {
	Valid           bool
	ResultText      string // short status string, e.g. "200 OK", "404 Not Found"
	Info            []string
	Warnings        []Warning
	ContentType     string
	ContentEncoding string
	Size            int64
	Body            []byte
	FinalURL        string // after following redirects
	Aliases         []string
	Modified        time.Time
	DLTime          time.Duration
	Parseable        bool
	PeerCertificates []*x509.Certificate // set for https, nil otherwise
}

// Request is everything a scheme checker needs to check one URL.
type Request struct {
	RawURL              string
	RecursionLevel      int
	MaxRedirects        int
	MaxFileSizeDownload int64
	MaxFileSizeParse    int64
	Timeout             time.Duration
	UserAgent           string
	AuthUser            string // HTTP basic / FTP login, if configured for this URL
	AuthPassword        string
}

// Checker performs the scheme-specific fetch, classify and read-content
// steps of the URL object lifecycle (spec §4.7 states checking->fetched,
// fetched->parsed) and returns a finished Outcome. It never panics; any
// failure is reported through Outcome/err per spec §7 error kind 2.
type Checker interface {
	Check(ctx context.Context, req Request) (Outcome, error)
}

// Category values used by typed errors across scheme checkers, mirroring
// the teacher's *HTTPError.Category() pattern (SPEC_FULL.md §A).
const (
	CategoryNetwork  = "network"
	CategoryTimeout  = "timeout"
	CategoryHTTP     = "http"
	CategoryFTP      = "ftp"
	CategoryDNS      = "dns"
	CategoryMail     = "mail"
	CategoryFile     = "file"
	CategorySyntax   = "syntax"
	CategoryRedirect = "redirect"
	CategorySize     = "size"
)
