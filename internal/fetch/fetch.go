// Package fetch retrieves the rendered content of single pages, either
// through a shared headless-browser session or a plain HTTP client.
package fetch

import (
	"context"
	"time"
)

// Status indicates whether a page load produced usable content.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

// FetchResult holds the outcome of loading one URL. A failed fetch is a
// normal result, not an error: Status is StatusFailed, Content is empty
// and Reason says why.
type FetchResult struct {
	URL       string
	Content   string
	FetchedAt time.Time
	Status    Status
	Reason    string
}

// OK reports whether the fetch produced content.
func (r FetchResult) OK() bool {
	return r.Status == StatusOK
}

// Fetcher loads a single absolute URL. Implementations must not return
// network or HTTP errors to the caller; those become StatusFailed results.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

func succeeded(url, content string) FetchResult {
	return FetchResult{
		URL:       url,
		Content:   content,
		FetchedAt: time.Now(),
		Status:    StatusOK,
	}
}

func failed(url, reason string) FetchResult {
	return FetchResult{
		URL:       url,
		FetchedAt: time.Now(),
		Status:    StatusFailed,
		Reason:    reason,
	}
}
