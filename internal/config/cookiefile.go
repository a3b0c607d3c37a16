package config

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCookieFile parses a Netscape-format cookie file into *http.Cookie
// values, one per non-comment, non-blank, tab-separated line: domain,
// domain-flag, path, secure, expiry, name, value (SPEC_FULL.md §C).
// RFC-805-style header blocks (Host/Scheme/Path/Set-cookie fields) are not
// read: any line without exactly seven tab-separated fields is an error.
func LoadCookieFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookiefile: line %d: expected 7 tab-separated fields, got %d", lineNo, len(fields))
		}

		domain, _, path, secureFlag, expiryStr, name, value := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]

		expirySecs, err := strconv.ParseInt(expiryStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cookiefile: line %d: bad expiry %q: %w", lineNo, expiryStr, err)
		}

		cookies = append(cookies, &http.Cookie{
			Domain:  strings.TrimPrefix(domain, "."),
			Path:    path,
			Secure:  strings.EqualFold(secureFlag, "TRUE"),
			Expires: time.Unix(expirySecs, 0),
			Name:    name,
			Value:   value,
		})
	}
	return cookies, scanner.Err()
}
