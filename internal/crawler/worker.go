package crawler

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/cametumbling/linkchecker/internal/cache"
	"github.com/cametumbling/linkchecker/internal/checkers"
	"github.com/cametumbling/linkchecker/internal/linkextract"
	"github.com/cametumbling/linkchecker/internal/logger"
	"github.com/cametumbling/linkchecker/internal/robots"
	"github.com/cametumbling/linkchecker/internal/urlobject"
)

// process drives one URLObject through its C7 lifecycle: built ->
// {ignored, cached, checking} -> fetched -> parsed -> done, handing the
// finished record to C13 on every terminal transition (spec §4.7).
func (a *Aggregate) process(ctx context.Context, obj *urlobject.URLObject) {
	if obj.State == urlobject.StateFailed {
		a.finish(obj)
		return
	}

	if obj.IsIgnored() || matchesAny(a.cfg.IgnoreURLPatterns, obj.Canonical) {
		obj.State = urlobject.StateIgnored
		obj.Outcome = checkers.Outcome{Valid: true, ResultText: "ignored"}
		a.finish(obj)
		return
	}

	if cached, ok := a.results.Get(obj.CacheURL); ok {
		obj.State = urlobject.StateCached
		obj.Outcome = fromCacheResult(cached)
		a.finish(obj)
		return
	}

	done, owner := a.results.ClaimCheck(obj.CacheURL)
	if !owner {
		select {
		case <-done:
		case <-ctx.Done():
			obj.State = urlobject.StateFailed
			obj.Err = ctx.Err()
			a.finish(obj)
			return
		}
		if cached, ok := a.results.Get(obj.CacheURL); ok {
			obj.State = urlobject.StateCached
			obj.Outcome = fromCacheResult(cached)
		} else {
			obj.State = urlobject.StateFailed
		}
		a.finish(obj)
		return
	}

	obj.State = urlobject.StateChecking
	a.check(ctx, obj)
	a.results.Finish(obj.CacheURL, toCacheResult(obj.Outcome))
	a.finish(obj)
}

// check runs the pre-connection plugins, robots gate, throttle, scheme
// checker, and — if the result is parseable within recursion budget —
// the link extractor and content plugins (spec §4.7 transitions 5-7).
func (a *Aggregate) check(ctx context.Context, obj *urlobject.URLObject) {
	rawURL := obj.Canonical

	if warnings, err := a.plugins.RunPreConnection(ctx, rawURL); err != nil {
		obj.State = urlobject.StateFailed
		obj.Err = err
		obj.Outcome = checkers.Outcome{Valid: false, ResultText: err.Error()}
		return
	} else {
		for _, w := range warnings {
			obj.Outcome.Warnings = append(obj.Outcome.Warnings, w)
		}
	}

	if obj.Class == urlobject.ClassHTTP && a.cfg.Robots {
		if allowed, denied := a.checkRobots(ctx, rawURL); denied {
			obj.State = urlobject.StateDone
			obj.Outcome.Valid = true
			obj.Outcome.Info = append(obj.Outcome.Info, "Access denied by robots.txt, checked only syntax")
			_ = allowed
			return
		}
	}

	host := hostOf(rawURL)
	if host != "" {
		if err := a.throttle.WaitForHost(ctx, host); err != nil {
			obj.State = urlobject.StateFailed
			obj.Err = err
			obj.Outcome = checkers.Outcome{Valid: false, ResultText: "throttle wait cancelled"}
			return
		}
	}

	var authUser, authPassword string
	if a.cfg.AuthFor != nil {
		authUser, authPassword, _ = a.cfg.AuthFor(rawURL)
	}

	ftpChecker := &checkers.FTPChecker{User: authUser, Password: authPassword}
	checker := urlobject.Checker(obj.Class,
		&checkers.HTTPChecker{Client: a.client, OnMaxRated: a.throttle.SetMaxRated},
		ftpChecker,
		&checkers.FileChecker{},
		&checkers.MailtoChecker{},
		&checkers.DNSChecker{},
		&checkers.ItmsServicesChecker{},
		&checkers.UnknownChecker{},
	)

	outcome, err := checker.Check(ctx, checkers.Request{
		RawURL:              rawURL,
		RecursionLevel:      obj.RecursionLevel,
		MaxRedirects:        a.cfg.MaxRedirects,
		MaxFileSizeDownload: a.cfg.MaxFileSizeDownload,
		MaxFileSizeParse:    a.cfg.MaxFileSizeParse,
		Timeout:             a.cfg.Timeout,
		UserAgent:           a.cfg.UserAgent,
		AuthUser:            authUser,
		AuthPassword:        authPassword,
	})
	obj.Outcome.Valid = outcome.Valid
	obj.Outcome.ResultText = outcome.ResultText
	obj.Outcome.Info = append(obj.Outcome.Info, outcome.Info...)
	obj.Outcome.Warnings = append(obj.Outcome.Warnings, outcome.Warnings...)
	obj.Outcome.ContentType = outcome.ContentType
	obj.Outcome.Size = outcome.Size
	obj.Outcome.Body = outcome.Body
	obj.Outcome.FinalURL = outcome.FinalURL
	obj.Outcome.Aliases = outcome.Aliases
	obj.Outcome.Parseable = outcome.Parseable

	if outcome.PeerCertificates != nil {
		obj.Outcome.Warnings = append(obj.Outcome.Warnings,
			a.plugins.RunConnection(ctx, rawURL, outcome.PeerCertificates)...)
	}

	a.bytesDown.Add(outcome.Size)

	if err != nil {
		obj.State = urlobject.StateFailed
		obj.Err = err
		if obj.Outcome.ResultText == "" {
			obj.Outcome.ResultText = err.Error()
		}
		return
	}

	obj.State = urlobject.StateFetched

	withinDepth := a.cfg.MaxRecursion < 0 || obj.RecursionLevel < a.cfg.MaxRecursion
	recurse := withinDepth && !(obj.Extern && obj.Strict)
	if !outcome.Parseable || !recurse || len(outcome.Body) == 0 {
		obj.State = urlobject.StateDone
		return
	}

	obj.State = urlobject.StateParsed
	a.parse(ctx, obj)
	obj.State = urlobject.StateDone
}

// checkRobots answers the robots.txt gate for an HTTP(S) URL (spec
// §4.3): a fetch error is treated as "allows everything".
func (a *Aggregate) checkRobots(ctx context.Context, rawURL string) (allowed bool, denied bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, false
	}
	ok, err := a.robots.AllowsURL(ctx, u)
	if err != nil {
		return true, false
	}
	return ok, !ok
}

// parse extracts child links from a fetched body, classifies them
// extern/intern, applies nofollow/no-follow-url policy, and enqueues
// them at recursion_level+1 (spec §4.7 transition 7).
func (a *Aggregate) parse(ctx context.Context, obj *urlobject.URLObject) {
	pageURL := obj.Outcome.FinalURL
	if pageURL == "" {
		pageURL = obj.Canonical
	}

	kind := contentKind(obj.Outcome.ContentType)

	var links []linkextract.Link
	var pageAnchors []string
	var err error
	switch kind {
	case "html":
		if robots.HasNofollow(linkextract.ExtractMetaRobots(bytes.NewReader(obj.Outcome.Body))) {
			return
		}
		links, err = linkextract.ExtractHTML(bytes.NewReader(obj.Outcome.Body), 0)
		pageAnchors = linkextract.ExtractAnchors(bytes.NewReader(obj.Outcome.Body))
	case "css":
		links, err = linkextract.ExtractCSS(bytes.NewReader(obj.Outcome.Body), 0)
	case "sitemap":
		links, err = linkextract.ExtractSitemap(bytes.NewReader(obj.Outcome.Body), 0)
	case "text":
		links, err = linkextract.ExtractTextList(bytes.NewReader(obj.Outcome.Body), 0)
	default:
		return
	}
	if err != nil {
		return
	}

	// Only HTML pages carry an anchor set; a fragment on a non-HTML
	// resource is never checked against one (spec §4.4 "is_html() and
	// url_data.anchor").
	var fragment string
	if kind == "html" && obj.Parts != nil {
		fragment = obj.Parts.Fragment
	}
	warnings := a.plugins.RunContent(ctx, obj.CacheURL, obj.Outcome.ContentType, obj.Outcome.Body, pageAnchors, fragment)
	obj.Outcome.Warnings = append(obj.Outcome.Warnings, warnings...)

	for _, link := range links {
		child, err := urlobject.Build(link.URL, obj.Parts, nil, pageURL, link.Name, link.Line, link.Column, obj.RecursionLevel+1)
		if err != nil {
			continue
		}
		extern, strict := classifyExtern(child.Canonical, a.seedHost, a.cfg.CheckExtern)
		child.Extern = extern
		child.Strict = strict
		if matchesAny(a.cfg.NoFollowURLPatterns, child.Canonical) {
			continue
		}
		a.queue.Push(child)
	}
}

func contentKind(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case ct == "" || ct == "text/html" || ct == "application/xhtml+xml":
		return "html"
	case ct == "text/css":
		return "css"
	case ct == "text/xml" || ct == "application/xml" || ct == "application/x-sitemap+xml" || strings.HasSuffix(ct, "+xml"):
		return "sitemap"
	case ct == "text/plain":
		return "text"
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func fromCacheResult(r cache.Result) checkers.Outcome {
	return checkers.Outcome{
		Valid:       r.Valid,
		ResultText:  r.ResultText,
		Info:        r.Info,
		ContentType: r.ContentType,
		Size:        r.Size,
	}
}

func toCacheResult(o checkers.Outcome) cache.Result {
	warnings := make([]string, len(o.Warnings))
	for i, w := range o.Warnings {
		warnings[i] = w.Tag + ": " + w.Message
	}
	return cache.Result{
		Valid:       o.Valid,
		ResultText:  o.ResultText,
		Info:        o.Info,
		Warnings:    warnings,
		ContentType: o.ContentType,
		Size:        o.Size,
	}
}

// finish hands a terminal URLObject to the logger fan-out (C13).
func (a *Aggregate) finish(obj *urlobject.URLObject) {
	a.visitCount.Add(1)
	if !obj.Outcome.Valid {
		a.errorCount.Add(1)
	}
	if len(obj.Outcome.Warnings) > 0 {
		a.warnCount.Add(1)
	}

	warnings := make([]string, len(obj.Outcome.Warnings))
	for i, w := range obj.Outcome.Warnings {
		warnings[i] = w.Tag + ": " + w.Message
	}

	a.log.Log(logger.Record{
		URL:         obj.Canonical,
		ParentURL:   obj.ParentURL,
		Line:        obj.Line,
		Column:      obj.Column,
		Name:        obj.Name,
		Valid:       obj.Outcome.Valid,
		Result:      obj.Outcome.ResultText,
		Info:        obj.Outcome.Info,
		Warnings:    warnings,
		ContentType: obj.Outcome.ContentType,
		Size:        obj.Outcome.Size,
		Cached:      obj.State == urlobject.StateCached,
	})

	a.zlog.Infow("url checked",
		"url", obj.Canonical,
		"state", obj.State.String(),
		"valid", obj.Outcome.Valid,
		"result", obj.Outcome.ResultText,
	)
}
