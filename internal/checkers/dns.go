package checkers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/miekg/dns"
)

// DNSChecker implements the DnsUrl variant (spec §4.7 "DNS: resolve
// A/AAAA; valid iff at least one address returns"). It speaks the DNS
// wire protocol directly via github.com/miekg/dns rather than the
// standard resolver, so A and AAAA can be queried and counted explicitly
// (SPEC_FULL.md §B).
type DNSChecker struct {
	// Server is the resolver to query, e.g. "8.8.8.8:53". Empty uses
	// "127.0.0.1:53".
	Server string
}

func (c *DNSChecker) Check(ctx context.Context, req Request) (Outcome, error) {
	host, err := hostFromDNSURL(req.RawURL)
	if err != nil {
		return Outcome{Valid: false, ResultText: "invalid dns: URL"}, err
	}

	server := c.Server
	if server == "" {
		server = "127.0.0.1:53"
	}

	client := new(dns.Client)
	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = timeUntil(deadline)
	}

	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			continue
		}
		for _, rr := range resp.Answer {
			switch v := rr.(type) {
			case *dns.A:
				addrs = append(addrs, v.A.String())
			case *dns.AAAA:
				addrs = append(addrs, v.AAAA.String())
			}
		}
	}

	if len(addrs) == 0 {
		return Outcome{Valid: false, ResultText: "no A/AAAA records"},
			&DNSError{Host: host, Err: fmt.Errorf("no addresses returned")}
	}

	return Outcome{
		Valid:      true,
		ResultText: fmt.Sprintf("resolved to %d address(es)", len(addrs)),
		Info:       addrs,
	}, nil
}

func hostFromDNSURL(rawURL string) (string, error) {
	trimmed := strings.TrimPrefix(rawURL, "dns:")
	if trimmed == rawURL {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			return "", &SyntaxError{URL: rawURL, Reason: "not a dns: URL"}
		}
		return u.Host, nil
	}
	trimmed = strings.TrimPrefix(trimmed, "//")
	if trimmed == "" {
		return "", &SyntaxError{URL: rawURL, Reason: "empty host"}
	}
	return trimmed, nil
}
