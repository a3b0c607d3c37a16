// Package urlobject implements the URL object state machine (C7): the
// per-URL lifecycle new -> built -> {ignored, cached, checking} ->
// fetched -> parsed -> done, plus the scheme dispatch table (C8) that
// picks which checkers.Checker handles a built URL.
package urlobject

import (
	"strings"

	"github.com/cametumbling/linkchecker/internal/checkers"
	"github.com/cametumbling/linkchecker/internal/urlparts"
)

// State is one point in the C7 lifecycle (spec §4.7).
type State int

const (
	StateNew State = iota
	StateBuilt
	StateIgnored
	StateCached
	StateChecking
	StateFetched
	StateParsed
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateBuilt:
		return "built"
	case StateIgnored:
		return "ignored"
	case StateCached:
		return "cached"
	case StateChecking:
		return "checking"
	case StateFetched:
		return "fetched"
	case StateParsed:
		return "parsed"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// SchemeClass is the C8 dispatch outcome: which checker variant a built
// URL routes to.
type SchemeClass int

const (
	ClassHTTP SchemeClass = iota
	ClassFTP
	ClassFile
	ClassMailto
	ClassDNS
	ClassItmsServices
	ClassUnknown
)

// URLObject carries one URL through its C7 lifecycle: parent/provenance
// for loggers, the normalised URLParts, its classification, and — once
// terminal — the finished checkers.Outcome.
type URLObject struct {
	Raw            string
	ParentURL      string
	Line, Column   int
	Name           string
	RecursionLevel int

	Parts     *urlparts.URLParts
	Canonical string
	CacheURL  string

	Extern bool // does not match the intern host/pattern scope
	Strict bool // extern link whose children are not recursed (spec §3 "extern" tuple)
	Class  SchemeClass
	State  State

	Outcome checkers.Outcome
	Err     error
}

// Build runs §4.1 normalisation and classifies the resulting URL,
// transitioning new -> built. parent/baseRef may be nil for seed URLs.
func Build(raw string, parent, baseRef *urlparts.URLParts, parentURL, name string, line, col, recursion int) (*URLObject, error) {
	parts, canonical, err := urlparts.Parse(raw, parent, baseRef)
	if err != nil {
		return &URLObject{
			Raw:            raw,
			ParentURL:      parentURL,
			Name:           name,
			Line:           line,
			Column:         col,
			RecursionLevel: recursion,
			State:          StateFailed,
			Err:            err,
		}, err
	}

	class := dispatch(parts.Scheme, recursion)
	cacheURL := urlparts.CacheURL(canonical)
	if class == ClassMailto {
		// The mailto cache key is the sorted, deduped recipient list, not
		// the order-sensitive canonical string (spec §4.7): two mailto
		// URLs addressing the same recipients must collide in the result
		// cache regardless of order or duplicates.
		cacheURL = checkers.MailtoCacheKey(canonical)
	}

	obj := &URLObject{
		Raw:            raw,
		ParentURL:      parentURL,
		Name:           name,
		Line:           line,
		Column:         col,
		RecursionLevel: recursion,
		Parts:          parts,
		Canonical:      canonical,
		CacheURL:       cacheURL,
		State:          StateBuilt,
		Class:          class,
	}
	return obj, nil
}

// dispatch implements the C8 scheme dispatch table (spec §4.8).
func dispatch(scheme string, recursionLevel int) SchemeClass {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return ClassHTTP
	case "ftp":
		return ClassFTP
	case "file":
		return ClassFile
	case "mailto":
		return ClassMailto
	case "dns":
		return ClassDNS
	case "itms-services":
		return ClassItmsServices
	case "":
		if recursionLevel == 0 {
			return ClassFile
		}
		return ClassUnknown
	default:
		return ClassUnknown
	}
}

// IsIgnored reports whether obj's scheme belongs to the IANA-ignored set,
// per transition built->ignored (spec §4.7 transition 2). An empty scheme
// is not ignored; at a non-zero recursion level it dispatches to
// ClassUnknown. Callers additionally apply any config-level
// ignore regex, which this package has no knowledge of.
func (o *URLObject) IsIgnored() bool {
	return checkers.IgnoredScheme(strings.ToLower(o.Parts.Scheme))
}

// Checker returns the Checker implementation that should dispatch obj,
// built from the supplied concrete instances (the caller owns their
// lifetime and shared configuration, e.g. a single *http.Client per
// worker session).
func Checker(class SchemeClass, http *checkers.HTTPChecker, ftp *checkers.FTPChecker, file *checkers.FileChecker, mailto *checkers.MailtoChecker, dns *checkers.DNSChecker, itms *checkers.ItmsServicesChecker, unknown *checkers.UnknownChecker) checkers.Checker {
	switch class {
	case ClassHTTP:
		return http
	case ClassFTP:
		return ftp
	case ClassFile:
		return file
	case ClassMailto:
		return mailto
	case ClassDNS:
		return dns
	case ClassItmsServices:
		return itms
	default:
		return unknown
	}
}
