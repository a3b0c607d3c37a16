package checkers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FTPChecker implements the FtpUrl variant (spec §4.7 "FTP"): log in
// (anonymous or configured), CWD into the target directory, LIST it to
// find the trailing path component, and either RETR the file or fabricate
// an index page when the target is itself a directory. Built directly on
// net/textproto — no FTP client library appears anywhere in the example
// pack, see DESIGN.md.
type FTPChecker struct {
	User     string // default "anonymous"
	Password string // default "linkchecker@example.com"
	Dial     func(ctx context.Context, addr string) (net.Conn, error)
}

func (c *FTPChecker) Check(ctx context.Context, req Request) (Outcome, error) {
	u, err := url.Parse(req.RawURL)
	if err != nil || u.Scheme != "ftp" {
		return Outcome{Valid: false}, &SyntaxError{URL: req.RawURL, Reason: "not an ftp: URL"}
	}

	addr := u.Host
	if !strings.Contains(addr, ":") {
		addr += ":21"
	}

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return Outcome{Valid: false, ResultText: "connection failed"}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	if _, _, err := tp.ReadResponse(2); err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}

	user := c.User
	if user == "" {
		user = "anonymous"
	}
	pass := c.Password
	if pass == "" {
		pass = "linkchecker@example.com"
	}

	if err := cmd(tp, 3, "USER %s", user); err != nil {
		return Outcome{Valid: false}, err
	}
	if err := cmd(tp, 2, "PASS %s", pass); err != nil {
		return Outcome{Valid: false, ResultText: "login failed"}, err
	}

	// Negotiate UTF-8 filenames via FEAT when advertised (best effort;
	// failure here does not fail the check).
	if id, err := tp.Cmd("FEAT"); err == nil {
		_, feat, _ := tp.ReadResponse(0)
		tp.StartResponse(id)
		tp.EndResponse(id)
		if strings.Contains(strings.ToUpper(feat), "UTF8") {
			cmd(tp, 2, "OPTS UTF8 ON")
		}
	}

	if err := cmd(tp, 2, "CWD /"); err != nil {
		return Outcome{Valid: false}, err
	}

	dir, base := splitFTPPath(u.Path)
	for _, seg := range dir {
		if seg == "" {
			continue
		}
		if err := cmd(tp, 2, "CWD %s", seg); err != nil {
			return Outcome{Valid: false, ResultText: "directory not found"}, err
		}
	}

	if base == "" {
		return c.listDirectory(tp, req.RawURL)
	}

	names, err := listNames(tp)
	if err != nil {
		return Outcome{Valid: false}, err
	}
	if !containsName(names, base) {
		if containsName(names, base+"/") {
			return Outcome{
				Valid:      true,
				ResultText: "200 OK",
				Warnings:   []Warning{{Tag: "missing-slash", Message: "missing trailing slash"}},
			}, nil
		}
		return Outcome{Valid: false, ResultText: "not found"}, &FTPError{URL: req.RawURL, Msg: "550 file not found", Code: 550}
	}
	if err := cmd(tp, 2, "CWD %s", base); err == nil {
		return c.listDirectory(tp, req.RawURL)
	}

	return c.retrieve(tp, req, base)
}

func (c *FTPChecker) dial(ctx context.Context, addr string) (net.Conn, error) {
	if c.Dial != nil {
		return c.Dial(ctx, addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func (c *FTPChecker) listDirectory(tp *textproto.Conn, rawURL string) (Outcome, error) {
	names, err := listNames(tp)
	if err != nil {
		return Outcome{Valid: false}, err
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<html><body><ul>\n")
	for _, n := range names {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", n, n)
	}
	b.WriteString("</ul></body></html>\n")

	return Outcome{
		Valid:       true,
		ResultText:  "200 OK (directory listing)",
		Body:        []byte(b.String()),
		Size:        int64(b.Len()),
		ContentType: "text/html",
		Parseable:   true,
	}, nil
}

func (c *FTPChecker) retrieve(tp *textproto.Conn, req Request, name string) (Outcome, error) {
	pasvID, err := tp.Cmd("PASV")
	if err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}
	tp.StartResponse(pasvID)
	_, pasvMsg, err := tp.ReadResponse(2)
	tp.EndResponse(pasvID)
	if err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}
	dataAddr, err := parsePASV(pasvMsg)
	if err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}

	dataConn, err := net.Dial("tcp", dataAddr)
	if err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}
	defer dataConn.Close()

	if err := cmd(tp, 1, "RETR %s", name); err != nil {
		return Outcome{Valid: false, ResultText: "not found"}, err
	}

	limit := req.MaxFileSizeDownload
	if limit <= 0 {
		limit = 10 << 20
	}
	body, err := io.ReadAll(io.LimitReader(dataConn, limit+1))
	if err != nil {
		return Outcome{Valid: false}, &FTPError{URL: req.RawURL, Msg: err.Error()}
	}
	if int64(len(body)) > limit {
		return Outcome{Valid: false}, &SizeError{URL: req.RawURL, Size: int64(len(body)), MaxBytes: limit}
	}

	tp.ReadResponse(2)

	return Outcome{
		Valid:      true,
		ResultText: "200 OK",
		Body:       body,
		Size:       int64(len(body)),
		Parseable:  isParseableContentType(contentTypeForExt(extOf(name))),
	}, nil
}

func cmd(tp *textproto.Conn, expectCode int, format string, args ...any) error {
	id, err := tp.Cmd(format, args...)
	if err != nil {
		return &FTPError{Msg: err.Error()}
	}
	tp.StartResponse(id)
	defer tp.EndResponse(id)
	code, msg, err := tp.ReadResponse(expectCode * 100)
	if err != nil {
		return &FTPError{Code: code, Msg: msg}
	}
	return nil
}

func listNames(tp *textproto.Conn) ([]string, error) {
	pasvID, err := tp.Cmd("PASV")
	if err != nil {
		return nil, &FTPError{Msg: err.Error()}
	}
	tp.StartResponse(pasvID)
	_, pasvMsg, err := tp.ReadResponse(2)
	tp.EndResponse(pasvID)
	if err != nil {
		return nil, &FTPError{Msg: err.Error()}
	}
	dataAddr, err := parsePASV(pasvMsg)
	if err != nil {
		return nil, &FTPError{Msg: err.Error()}
	}

	dataConn, err := net.Dial("tcp", dataAddr)
	if err != nil {
		return nil, &FTPError{Msg: err.Error()}
	}
	defer dataConn.Close()

	if err := cmd(tp, 1, "LIST"); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(dataConn)
	var names []string
	for scanner.Scan() {
		line := scanner.Text()
		if name := lastField(line); name != "" {
			names = append(names, name)
		}
	}
	tp.ReadResponse(2)
	return names, nil
}

func lastField(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func splitFTPPath(p string) (dir []string, base string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, ""
	}
	parts := strings.Split(p, "/")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// parsePASV parses a "227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)" reply.
func parsePASV(msg string) (string, error) {
	start := strings.IndexByte(msg, '(')
	end := strings.IndexByte(msg, ')')
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("malformed PASV reply: %q", msg)
	}
	parts := strings.Split(msg[start+1:end], ",")
	if len(parts) != 6 {
		return "", fmt.Errorf("malformed PASV reply: %q", msg)
	}
	ip := strings.Join(parts[:4], ".")
	p1, err1 := strconv.Atoi(parts[4])
	p2, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("malformed PASV port: %q", msg)
	}
	port := p1*256 + p2
	return fmt.Sprintf("%s:%d", ip, port), nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
