package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const defaultSizeCap = 10 << 20 // 10 MiB

// Client is a Fetcher for static pages that need no script execution.
type Client struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
}

// NewClient builds an HTTP fetcher with a tuned transport.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap:   defaultSizeCap,
		userAgent: userAgent,
	}
}

// Fetch performs a single GET. Bodies are capped, gzip is handled and the
// result is decoded to UTF-8 based on the declared charset.
func (c *Client) Fetch(ctx context.Context, rawURL string) FetchResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return failed(rawURL, "invalid url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return failed(rawURL, err.Error())
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return failed(rawURL, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return failed(rawURL, fmt.Sprintf("http status %d", resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return failed(rawURL, fmt.Sprintf("gzip: %v", err))
		}
		defer gz.Close()
		body = gz
	}

	body = io.LimitReader(body, c.sizeCap)

	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return failed(rawURL, fmt.Sprintf("charset: %v", err))
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return failed(rawURL, err.Error())
	}

	return succeeded(rawURL, string(data))
}
