package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// login performs the single pre-crawl login request (spec §4.9): GET
// the login URL, find the first form whose input names include the
// configured user/password fields, POST the form values to its action,
// and fail if the response sets no cookies. The resulting cookie jar
// (already shared with a.client) is adopted by every worker session.
func (a *Aggregate) login(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.LoginURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("crawler: GET login page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("crawler: parsing login page: %w", err)
	}

	userField := a.cfg.LoginUserField
	if userField == "" {
		userField = "username"
	}
	passField := a.cfg.LoginPasswordField
	if passField == "" {
		passField = "password"
	}

	form, fields, ok := findLoginForm(doc, userField, passField)
	if !ok {
		return fmt.Errorf("crawler: no form with fields %q/%q found on login page", userField, passField)
	}

	values := url.Values{}
	for name, val := range fields {
		values.Set(name, val)
	}
	values.Set(userField, a.cfg.LoginUser)
	values.Set(passField, a.cfg.LoginPassword)

	action := resp.Request.URL.String()
	if form.action != "" {
		actionURL, err := resp.Request.URL.Parse(form.action)
		if err == nil {
			action = actionURL.String()
		}
	}

	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.Header.Set("User-Agent", a.cfg.UserAgent)

	postResp, err := a.client.Do(postReq)
	if err != nil {
		return fmt.Errorf("crawler: POST login form: %w", err)
	}
	defer postResp.Body.Close()

	if len(a.jar.Cookies(postResp.Request.URL)) == 0 {
		return fmt.Errorf("crawler: login response set no cookies")
	}
	return nil
}

type loginForm struct {
	action string
}

// findLoginForm walks the document for the first <form> containing
// input elements named userField and passField, returning the form's
// action plus any other named inputs (e.g. a CSRF token) to carry
// through unchanged.
func findLoginForm(n *html.Node, userField, passField string) (loginForm, map[string]string, bool) {
	var walk func(*html.Node) (loginForm, map[string]string, bool)
	walk = func(n *html.Node) (loginForm, map[string]string, bool) {
		if n.Type == html.ElementNode && n.Data == "form" {
			fields := collectInputs(n)
			if _, hasUser := fields[userField]; hasUser {
				if _, hasPass := fields[passField]; hasPass {
					return loginForm{action: attr(n, "action")}, fields, true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if f, fields, ok := walk(c); ok {
				return f, fields, true
			}
		}
		return loginForm{}, nil, false
	}
	return walk(n)
}

func collectInputs(form *html.Node) map[string]string {
	fields := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "input" || n.Data == "select" || n.Data == "textarea") {
			name := attr(n, "name")
			if name != "" {
				fields[name] = attr(n, "value")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return fields
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
