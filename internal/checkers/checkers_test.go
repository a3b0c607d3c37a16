package checkers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPCheckerOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := &HTTPChecker{Client: srv.Client()}
	out, err := c.Check(context.Background(), Request{RawURL: srv.URL, MaxRedirects: 5})
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.True(t, out.Parseable)
}

func TestHTTPCheckerNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &HTTPChecker{Client: srv.Client()}
	out, err := c.Check(context.Background(), Request{RawURL: srv.URL, MaxRedirects: 5})
	require.Error(t, err)
	require.False(t, out.Valid)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 404, httpErr.StatusCode)
}

func TestHTTPCheckerTooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	c := &HTTPChecker{Client: srv.Client()}
	_, err := c.Check(context.Background(), Request{RawURL: srv.URL, MaxRedirects: 2})
	require.Error(t, err)
	var redirErr *RedirectError
	require.ErrorAs(t, err, &redirErr)
}

func TestHTTPCheckerCrossSchemeRedirectRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "ftp://example.com/x")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	c := &HTTPChecker{Client: srv.Client()}
	out, err := c.Check(context.Background(), Request{RawURL: srv.URL, MaxRedirects: 5})
	require.Error(t, err)
	require.False(t, out.Valid)
}

func TestHTTPCheckerNoContentWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := &HTTPChecker{Client: srv.Client()}
	out, err := c.Check(context.Background(), Request{RawURL: srv.URL, MaxRedirects: 5})
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Len(t, out.Warnings, 1)
}

func TestMailtoCheckerValid(t *testing.T) {
	c := &MailtoChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "mailto:a@example.com,b@example.com"})
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Equal(t, "mailto:a@example.com,b@example.com", out.FinalURL)
}

func TestMailtoCheckerDedupAndSort(t *testing.T) {
	c := &MailtoChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "mailto:b@example.com,a@example.com,a@example.com"})
	require.NoError(t, err)
	require.Equal(t, "mailto:a@example.com,b@example.com", out.FinalURL)
}

func TestMailtoCheckerInvalidDoubleDot(t *testing.T) {
	c := &MailtoChecker{}
	_, err := c.Check(context.Background(), Request{RawURL: "mailto:a..b@example.com"})
	require.Error(t, err)
	var mailErr *MailSyntaxError
	require.ErrorAs(t, err, &mailErr)
}

func TestMailtoCheckerSubjectOnly(t *testing.T) {
	c := &MailtoChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "mailto:?subject=hello"})
	require.NoError(t, err)
	require.True(t, out.Valid)
}

func TestMailtoCacheKeyIgnoresOrderAndDuplicates(t *testing.T) {
	require.Equal(t,
		MailtoCacheKey("mailto:b@example.com,a@example.com"),
		MailtoCacheKey("mailto:a@example.com,b@example.com,a@example.com"))
}

func TestMailtoCacheKeyMatchesCheckerFinalURL(t *testing.T) {
	c := &MailtoChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "mailto:B@Example.com,a@example.com"})
	require.NoError(t, err)
	require.Equal(t, MailtoCacheKey("mailto:B@Example.com,a@example.com"), out.FinalURL)
}

func TestUnknownCheckerIgnoredScheme(t *testing.T) {
	c := &UnknownChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "javascript:alert(1)"})
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Equal(t, "ignored", out.ResultText)
}

func TestUnknownCheckerInvalidScheme(t *testing.T) {
	c := &UnknownChecker{}
	out, err := c.Check(context.Background(), Request{RawURL: "foobarscheme:whatever"})
	require.Error(t, err)
	require.False(t, out.Valid)
}

func TestItmsServicesCheckerValid(t *testing.T) {
	c := &ItmsServicesChecker{}
	out, err := c.Check(context.Background(), Request{
		RawURL: "itms-services://?action=download-manifest&url=https://example.com/app.plist",
	})
	require.NoError(t, err)
	require.True(t, out.Valid)
}

func TestItmsServicesCheckerMissingAction(t *testing.T) {
	c := &ItmsServicesChecker{}
	_, err := c.Check(context.Background(), Request{RawURL: "itms-services://?url=https://example.com/app.plist"})
	require.Error(t, err)
}

func TestParsePASV(t *testing.T) {
	addr, err := parsePASV("227 Entering Passive Mode (192,168,1,10,200,10)")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.10:51210", addr)
}

func TestParsePASVMalformed(t *testing.T) {
	_, err := parsePASV("227 nonsense")
	require.Error(t, err)
}

func TestSplitFTPPath(t *testing.T) {
	dir, base := splitFTPPath("/pub/linux/readme.txt")
	require.Equal(t, []string{"pub", "linux"}, dir)
	require.Equal(t, "readme.txt", base)
}

func TestSplitFTPPathRoot(t *testing.T) {
	dir, base := splitFTPPath("/")
	require.Nil(t, dir)
	require.Equal(t, "", base)
}

func TestFilePathFromURL(t *testing.T) {
	p, err := filePathFromURL("file:///tmp/x.html")
	require.NoError(t, err)
	require.Equal(t, "/tmp/x.html", p)
}

func TestFilePathFromURLUNC(t *testing.T) {
	p, err := filePathFromURL("file:////server/share/x.html")
	require.NoError(t, err)
	require.Equal(t, `\\server/share/x.html`, p)
}
