package checkers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileChecker implements the FileUrl variant (spec §4.7 "file://"):
// directories are fabricated into a listing HTML page for recursive
// parsing; regular files are streamed with the same size cap as HTTP.
type FileChecker struct{}

func (c *FileChecker) Check(_ context.Context, req Request) (Outcome, error) {
	path, err := filePathFromURL(req.RawURL)
	if err != nil {
		return Outcome{Valid: false, ResultText: "invalid file URL"}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Outcome{Valid: false, ResultText: "not found"}, &FileError{Path: path, Err: err}
	}

	if info.IsDir() {
		return c.listDir(path, req.RawURL)
	}

	limit := req.MaxFileSizeDownload
	if limit <= 0 {
		limit = 10 << 20
	}
	if info.Size() > limit {
		return Outcome{Valid: false, ResultText: "file too large"}, &SizeError{URL: req.RawURL, Size: info.Size(), MaxBytes: limit}
	}

	f, err := os.Open(path)
	if err != nil {
		return Outcome{Valid: false, ResultText: "cannot open"}, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return Outcome{Valid: false, ResultText: "read error"}, &FileError{Path: path, Err: err}
	}
	if int64(len(body)) > limit {
		return Outcome{Valid: false}, &SizeError{URL: req.RawURL, Size: int64(len(body)), MaxBytes: limit}
	}

	return Outcome{
		Valid:       true,
		ResultText:  "200 OK",
		Body:        body,
		Size:        int64(len(body)),
		ContentType: contentTypeForExt(filepath.Ext(path)),
		Modified:    info.ModTime(),
		Parseable:   isParseableContentType(contentTypeForExt(filepath.Ext(path))),
	}, nil
}

// listDir fabricates an index HTML page listing children, the same
// strategy used for FTP directory listings (spec §4.7).
func (c *FileChecker) listDir(path, rawURL string) (Outcome, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Outcome{Valid: false}, &FileError{Path: path, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
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

func filePathFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" && u.Scheme != "" {
		return "", &SyntaxError{URL: rawURL, Reason: "not a file: URL"}
	}

	// UNC form: file:////server/path (four slashes) per spec §4.1 rule 2.
	if strings.HasPrefix(rawURL, "file:////") {
		return `\\` + strings.TrimPrefix(rawURL, "file:////"), nil
	}

	path := u.Path
	if u.Host != "" {
		path = "/" + u.Host + path
	}
	return path, nil
}

var extContentTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".xhtml": "application/xhtml+xml",
	".xml":  "text/xml",
	".css":  "text/css",
	".txt":  "text/plain",
}

func contentTypeForExt(ext string) string {
	if ct, ok := extContentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
