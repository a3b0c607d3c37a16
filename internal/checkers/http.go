package checkers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// redirectStati is the set of HTTP redirect status codes the checker
// follows itself (spec §9 design note (b): "replicate the same status
// code set {301, 302, 303, 307, 308}" that requests' REDIRECT_STATI uses).
var redirectStati = map[int]bool{
	301: true, 302: true, 303: true, 307: true, 308: true,
}

// HTTPChecker implements the HttpUrl / HttpsUrl variant (spec §4.7, §4.8).
// A single *http.Client is shared by every call. Check never lets it follow
// redirects itself: requests go through a copy of Client whose
// CheckRedirect returns http.ErrUseLastResponse, so the checker applies
// the hop bound and the cross-scheme refusal rule itself.
type HTTPChecker struct {
	Client *http.Client
	// OnMaxRated is invoked when a response carries a "LinkChecker:" echo
	// header, so the caller's host throttle can widen its interval
	// (spec §4.6 "set_maxrated").
	OnMaxRated func(host string)
}

func (c *HTTPChecker) Check(ctx context.Context, req Request) (Outcome, error) {
	current := req.RawURL
	var aliases []string

	client := *c.Client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	for hop := 0; ; hop++ {
		if hop > req.MaxRedirects {
			return Outcome{Valid: false, ResultText: "too many redirects", Aliases: aliases},
				&RedirectError{URL: req.RawURL, Reason: "exceeded maxhttpredirects"}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return Outcome{Valid: false, ResultText: "invalid URL"}, &SyntaxError{URL: current, Reason: err.Error()}
		}
		if req.UserAgent != "" {
			httpReq.Header.Set("User-Agent", req.UserAgent)
		}
		if req.AuthUser != "" {
			httpReq.SetBasicAuth(req.AuthUser, req.AuthPassword)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return Outcome{Valid: false, ResultText: "connection failed", Aliases: aliases}, err
		}

		if c.OnMaxRated != nil && resp.Header.Get("LinkChecker") != "" {
			c.OnMaxRated(httpReq.URL.Hostname())
		}

		if redirectStati[resp.StatusCode] {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return Outcome{Valid: false, ResultText: "redirect with no Location", Aliases: aliases},
					&RedirectError{URL: current, Reason: "missing Location header"}
			}
			next, err := url.Parse(loc)
			if err != nil {
				return Outcome{Valid: false, ResultText: "invalid redirect target", Aliases: aliases},
					&RedirectError{URL: current, Reason: err.Error()}
			}
			resolved := httpReq.URL.ResolveReference(next)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				return Outcome{Valid: false, ResultText: "redirect to foreign scheme refused", Aliases: aliases},
					&RedirectError{URL: current, Reason: fmt.Sprintf("refusing redirect to %s:", resolved.Scheme)}
			}
			aliases = append(aliases, current)
			current = resolved.String()
			continue
		}

		return c.finish(resp, req, aliases, current)
	}
}

func (c *HTTPChecker) finish(resp *http.Response, req Request, aliases []string, finalURL string) (Outcome, error) {
	defer resp.Body.Close()

	out := Outcome{
		FinalURL:    finalURL,
		Aliases:     aliases,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.TLS != nil {
		out.PeerCertificates = resp.TLS.PeerCertificates
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		out.Valid = true
		out.ResultText = "204 No Content"
		out.Warnings = append(out.Warnings, Warning{Tag: "no-content", Message: "No Content"})
		return out, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		out.Valid = true
		out.ResultText = "429 Too Many Requests"
		retryAfter := resp.Header.Get("Retry-After")
		out.Warnings = append(out.Warnings, Warning{
			Tag:     "rate-limited",
			Message: fmt.Sprintf("Rate limited (Retry-After: %s)", retryAfter),
		})

	case resp.StatusCode >= 400:
		out.Valid = false
		out.ResultText = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return out, &HTTPError{StatusCode: resp.StatusCode, URL: finalURL}

	default:
		out.Valid = true
		out.ResultText = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limit := req.MaxFileSizeDownload
	if limit <= 0 {
		limit = 10 << 20
	}
	if cl := resp.ContentLength; cl > 0 && cl > limit {
		return out, &SizeError{URL: finalURL, Size: cl, MaxBytes: limit}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return out, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > limit {
		return out, &SizeError{URL: finalURL, Size: int64(len(body)), MaxBytes: limit}
	}
	out.Body = body
	out.Size = int64(len(body))
	out.Parseable = isParseableContentType(out.ContentType)
	return out, nil
}

func isParseableContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "", "text/html", "application/xhtml+xml", "text/xml", "application/xml",
		"text/css", "text/plain", "application/x-sitemap+xml":
		return true
	}
	return strings.HasSuffix(ct, "+xml")
}
