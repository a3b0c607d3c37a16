// Package config implements the configuration contract (spec §6 "Config
// file"): an INI-like file with [checking]/[filtering]/[authentication]/
// [output] sections. Config-file parsing is explicitly out of scope per
// spec §1 — this package implements only the stated contract (parse,
// reject unknown keys, hand back a Config) on a minimal hand-rolled
// reader; no third-party INI library fits a contract this small (see
// DESIGN.md).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// AuthEntry is one authentication rule: the first whose Pattern matches
// a URL wins (spec §6 "the first matching entry wins").
type AuthEntry struct {
	User     string
	Password string
	Pattern  *regexp.Regexp
}

// Checking mirrors the [checking] section.
type Checking struct {
	Threads             int
	RecursionLevel      int
	Timeout             int
	MaxRequestsPerSecond float64
	MaxFileSizeDownload  int64
	MaxFileSizeParse     int64
	UserAgent            string
	Robots               bool
	CheckExtern          bool
	CookieFile           string
}

// Filtering mirrors the [filtering] section.
type Filtering struct {
	IgnoreURLPatterns    []string
	NoFollowURLPatterns  []string
}

// Output mirrors the [output] section: one sub-map per configured
// logger name (e.g. "text" -> {"encoding": "utf-8"}).
type Output struct {
	Loggers map[string]map[string]string
}

// Config is the parsed contract: checking + filtering + authentication
// + output, matching spec §6's table.
type Config struct {
	Checking  Checking
	Filtering Filtering
	Auth      []AuthEntry
	Output    Output
}

// allowedKeys enumerates every key this contract recognises; any other
// key fails validation (spec §6 "Unknown keys are rejected").
var allowedKeys = map[string]map[string]bool{
	"checking": {
		"threads": true, "recursionlevel": true, "timeout": true,
		"maxrequestspersecond": true, "maxfilesizedownload": true,
		"maxfilesizeparse": true, "useragent": true, "robots": true,
		"checkextern": true, "cookiefile": true,
	},
	"filtering": {
		"ignoreurl": true, "nofollowurl": true,
	},
}

// Parse reads an INI-like config from r: "[section]" headers and
// "key = value" lines; "#"/";" prefixed lines and blank lines are
// skipped. Authentication entries use the special section name
// "[authentication]" with "user/password/pattern" keys repeated per
// entry, separated by blank "---" delimiter lines. Output loggers use
// "[output.<name>]" sections.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{Output: Output{Loggers: make(map[string]map[string]string)}}
	cfg.Checking.Robots = true

	var section string
	var authPending AuthEntry
	var authHasFields bool

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if section == "authentication" && authHasFields {
				cfg.Auth = append(cfg.Auth, authPending)
				authPending = AuthEntry{}
				authHasFields = false
			}
			section = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			if strings.HasPrefix(section, "output.") {
				name := strings.TrimPrefix(section, "output.")
				cfg.Output.Loggers[name] = make(map[string]string)
			}
			continue
		}

		if section == "authentication" && line == "---" {
			if authHasFields {
				cfg.Auth = append(cfg.Auth, authPending)
				authPending = AuthEntry{}
				authHasFields = false
			}
			continue
		}

		key, value, ok := splitKV(line)
		if !ok {
			return nil, fmt.Errorf("config: line %d: expected key = value", lineNo)
		}
		key = strings.ToLower(key)

		switch {
		case section == "authentication":
			authHasFields = true
			switch key {
			case "user":
				authPending.User = value
			case "password":
				authPending.Password = value
			case "pattern":
				re, err := regexp.Compile(value)
				if err != nil {
					return nil, fmt.Errorf("config: line %d: bad pattern: %w", lineNo, err)
				}
				authPending.Pattern = re
			default:
				return nil, fmt.Errorf("config: line %d: unknown key %q in [authentication]", lineNo, key)
			}

		case strings.HasPrefix(section, "output."):
			cfg.Output.Loggers[strings.TrimPrefix(section, "output.")][key] = value

		case section == "filtering":
			if !allowedKeys["filtering"][key] {
				return nil, fmt.Errorf("config: line %d: unknown key %q in [filtering]", lineNo, key)
			}
			switch key {
			case "ignoreurl":
				cfg.Filtering.IgnoreURLPatterns = append(cfg.Filtering.IgnoreURLPatterns, value)
			case "nofollowurl":
				cfg.Filtering.NoFollowURLPatterns = append(cfg.Filtering.NoFollowURLPatterns, value)
			}

		case section == "checking" || section == "":
			if !allowedKeys["checking"][key] {
				return nil, fmt.Errorf("config: line %d: unknown key %q in [checking]", lineNo, key)
			}
			if err := setChecking(&cfg.Checking, key, value); err != nil {
				return nil, fmt.Errorf("config: line %d: %w", lineNo, err)
			}

		default:
			return nil, fmt.Errorf("config: line %d: unknown section %q", lineNo, section)
		}
	}
	if section == "authentication" && authHasFields {
		cfg.Auth = append(cfg.Auth, authPending)
	}

	return cfg, scanner.Err()
}

func setChecking(c *Checking, key, value string) error {
	switch key {
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.Threads = n
	case "recursionlevel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.RecursionLevel = n
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.Timeout = n
	case "maxrequestspersecond":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		c.MaxRequestsPerSecond = f
	case "maxfilesizedownload":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		c.MaxFileSizeDownload = n
	case "maxfilesizeparse":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		c.MaxFileSizeParse = n
	case "useragent":
		c.UserAgent = value
	case "robots":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.Robots = b
	case "checkextern":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.CheckExtern = b
	case "cookiefile":
		c.CookieFile = value
	}
	return nil
}

func splitKV(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// Load opens path and parses it per Parse.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// AuthFor returns the first AuthEntry whose Pattern matches rawURL.
func (c *Config) AuthFor(rawURL string) (AuthEntry, bool) {
	for _, a := range c.Auth {
		if a.Pattern != nil && a.Pattern.MatchString(rawURL) {
			return a, true
		}
	}
	return AuthEntry{}, false
}
