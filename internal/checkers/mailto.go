package checkers

import (
	"context"
	"net/mail"
	"net/url"
	"sort"
	"strings"
)

// MailtoChecker implements the MailtoUrl variant (spec §4.7 "mailto:").
// Syntax is validated per a RFC 5322-lite subset: local/domain parts,
// no leading/trailing/double dots, a bounded host length, and no stray
// quote characters. An empty path with a non-empty name is accepted
// (mail subject-only "mailto:?subject=..." URLs).
type MailtoChecker struct{}

const maxMailHostLen = 255

func (c *MailtoChecker) Check(_ context.Context, req Request) (Outcome, error) {
	addrPart, err := mailtoAddrPart(req.RawURL)
	if err != nil {
		return Outcome{Valid: false, ResultText: "invalid mailto syntax"}, &SyntaxError{URL: req.RawURL, Reason: err.Error()}
	}

	if addrPart == "" {
		// Subject-only mailto URL: accepted per spec §4.7 edge case.
		return Outcome{Valid: true, ResultText: "mailto syntax OK", FinalURL: CacheKey(nil)}, nil
	}

	addrs := splitAddresses(addrPart)
	var validated []string
	for _, a := range addrs {
		if err := validateMailAddress(a); err != nil {
			return Outcome{Valid: false, ResultText: "invalid mail address"}, err
		}
		validated = append(validated, strings.ToLower(a))
	}

	return Outcome{
		Valid:      true,
		ResultText: "mailto syntax OK",
		FinalURL:   CacheKey(validated),
	}, nil
}

// mailtoAddrPart extracts the comma-joined address list from a mailto
// URL, stripping any "?subject=..."-style query.
func mailtoAddrPart(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	opaque := u.Opaque
	if opaque == "" {
		opaque = strings.TrimPrefix(rawURL, "mailto:")
	}
	if i := strings.IndexByte(opaque, '?'); i >= 0 {
		opaque = opaque[:i]
	}
	return opaque, nil
}

// MailtoCacheKey computes the mailto cache fingerprint — "mailto:<sorted,
// deduped addr list>" (spec §4.7) — straight from a raw mailto URL,
// without validating the addresses. Used to key the result cache so that
// two mailto URLs addressing the same recipients in a different order,
// or with duplicates, are treated as one cache entry.
func MailtoCacheKey(rawURL string) string {
	addrPart, err := mailtoAddrPart(rawURL)
	if err != nil {
		return rawURL
	}
	addrs := splitAddresses(addrPart)
	for i, a := range addrs {
		addrs[i] = strings.ToLower(a)
	}
	return CacheKey(addrs)
}

func splitAddresses(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CacheKey builds the mailto cache fingerprint: "mailto:<sorted,deduped
// addr list>" (spec §4.7).
func CacheKey(addrs []string) string {
	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	uniq := make([]string, 0, len(set))
	for a := range set {
		uniq = append(uniq, a)
	}
	sort.Strings(uniq)
	return "mailto:" + strings.Join(uniq, ",")
}

func validateMailAddress(addr string) error {
	if strings.ContainsAny(addr, `"'`) {
		return &MailSyntaxError{Address: addr, Reason: "stray quote character"}
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return &MailSyntaxError{Address: addr, Reason: err.Error()}
	}

	at := strings.LastIndexByte(parsed.Address, '@')
	if at <= 0 || at == len(parsed.Address)-1 {
		return &MailSyntaxError{Address: addr, Reason: "missing local or domain part"}
	}
	local, domain := parsed.Address[:at], parsed.Address[at+1:]

	if err := checkDots(local); err != nil {
		return &MailSyntaxError{Address: addr, Reason: "local part: " + err.Error()}
	}
	if err := checkDots(domain); err != nil {
		return &MailSyntaxError{Address: addr, Reason: "domain part: " + err.Error()}
	}
	if len(domain) > maxMailHostLen {
		return &MailSyntaxError{Address: addr, Reason: "domain too long"}
	}
	if !strings.Contains(domain, ".") {
		return &MailSyntaxError{Address: addr, Reason: "domain has no dot"}
	}

	return nil
}

// checkDots rejects a leading, trailing, or doubled dot (spec §4.7:
// "no leading/trailing/double dots").
func checkDots(s string) error {
	if s == "" {
		return errEmptyPart
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return errDotPlacement
	}
	if strings.Contains(s, "..") {
		return errDotPlacement
	}
	return nil
}

var (
	errEmptyPart    = simpleErr("empty part")
	errDotPlacement = simpleErr("leading, trailing, or doubled dot")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
