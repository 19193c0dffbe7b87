package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newsharvest-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>hello</h1></body></html>"))
	}))
	t.Cleanup(server.Close)

	c := NewClient(5*time.Second, "newsharvest-test/1.0")
	res := c.Fetch(context.Background(), server.URL)

	assert.True(t, res.OK())
	assert.Contains(t, res.Content, "<h1>hello</h1>")
	assert.Equal(t, server.URL, res.URL)
	assert.False(t, res.FetchedAt.IsZero())
}

func TestClientFetchHTTPErrorIsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	res := NewClient(5*time.Second, "").Fetch(context.Background(), server.URL)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, res.Content)
	assert.Contains(t, res.Reason, "404")
}

func TestClientFetchInvalidURL(t *testing.T) {
	c := NewClient(time.Second, "")

	for _, bad := range []string{"", "not a url", "/relative", "ftp//:x"} {
		res := c.Fetch(context.Background(), bad)
		assert.Equal(t, StatusFailed, res.Status, "url %q", bad)
	}
}

func TestClientFetchConnectionRefused(t *testing.T) {
	// Reserve a port then close it so nothing is listening.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := NewClient(time.Second, "").Fetch(context.Background(), url)

	assert.Equal(t, StatusFailed, res.Status)
	assert.NotEmpty(t, res.Reason)
}

func TestClientFetchNonUTF8Decoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in latin-1
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	}))
	t.Cleanup(server.Close)

	res := NewClient(5*time.Second, "").Fetch(context.Background(), server.URL)

	assert.True(t, res.OK())
	assert.Contains(t, res.Content, "café")
}
