package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowsURLDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == robotsPath {
			w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), "testbot")
	target, err := url.Parse(srv.URL + "/secret")
	require.NoError(t, err)

	allowed, err := c.AllowsURL(context.Background(), target)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAllowsURLMissingRobotsAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.Client(), "testbot")
	target, err := url.Parse(srv.URL + "/anything")
	require.NoError(t, err)

	allowed, err := c.AllowsURL(context.Background(), target)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestHasNofollow(t *testing.T) {
	cases := map[string]bool{
		"noindex, nofollow": true,
		"NOFOLLOW":          true,
		"index, follow":     false,
		"followme":          false,
	}
	for content, want := range cases {
		if got := HasNofollow(content); got != want {
			t.Errorf("HasNofollow(%q) = %v, want %v", content, got, want)
		}
	}
}
