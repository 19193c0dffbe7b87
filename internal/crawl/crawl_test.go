package crawl

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/newsharvest/internal/extract"
	"github.com/go-scripts/newsharvest/internal/fetch"
)

// stubFetcher serves canned HTML per URL so crawl runs are deterministic.
// Unknown URLs and URLs in fail come back as failed fetches.
type stubFetcher struct {
	pages map[string]string
	fail  map[string]bool
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) fetch.FetchResult {
	s.calls = append(s.calls, url)
	if s.fail[url] {
		return fetch.FetchResult{URL: url, Status: fetch.StatusFailed, Reason: "connection refused"}
	}
	content, ok := s.pages[url]
	if !ok {
		return fetch.FetchResult{URL: url, Status: fetch.StatusFailed, Reason: "http status 404"}
	}
	return fetch.FetchResult{URL: url, Content: content, Status: fetch.StatusOK}
}

func (s *stubFetcher) callCount(url string) int {
	n := 0
	for _, c := range s.calls {
		if c == url {
			n++
		}
	}
	return n
}

func listingPage(hrefs ...string) string {
	page := "<html><body>"
	for _, h := range hrefs {
		page += fmt.Sprintf(`<div class="teaser"><a href=%q>link</a></div>`, h)
	}
	return page + "</body></html>"
}

func articlePage(title, published, body string) string {
	return fmt.Sprintf(`<html><body><article>
		<h1>%s</h1>
		<time datetime=%q>%s</time>
		<div class="content"><p>%s</p></div>
	</article></body></html>`, title, published, published, body)
}

func testConfig() Config {
	return Config{
		ListingRules: []extract.Rule{
			{Field: FieldLinks, Selector: ".teaser a", Mode: extract.List, Attr: "href"},
		},
		ArticleRules: []extract.Rule{
			{Field: FieldTitle, Selector: "h1", Mode: extract.First},
			{Field: FieldPublishedAt, Selector: "time", Mode: extract.First, Attr: "datetime"},
			{Field: FieldBody, Selector: ".content p", Mode: extract.JoinText},
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/tag?page=1": listingPage("/articles/a", "/articles/c"),
		"https://example.test/tag?page=2": listingPage("/articles/b", "/articles/c"),
		"https://example.test/articles/a": articlePage("Article A", "2024-03-15T09:30:00Z", "Body of A."),
		"https://example.test/articles/b": articlePage("Article B", "2024-03-16", "Body of B."),
		"https://example.test/articles/c": articlePage("Article C", "2024-03-17", "Body of C."),
	}}

	state := NewOrchestrator(f, testConfig(), nil).Run(context.Background(), "https://example.test/tag", 2)

	// One link is shared between the two listing pages.
	assert.Equal(t, 3, state.Links.Len())
	require.Len(t, state.Records, 3)
	assert.Empty(t, state.Failures)

	// Discovery order.
	assert.Equal(t, []string{
		"https://example.test/articles/a",
		"https://example.test/articles/c",
		"https://example.test/articles/b",
	}, state.Links.URLs())

	assert.Equal(t, "Article A", state.Records[0].Title)
	assert.Equal(t, "Body of A.", state.Records[0].Body)
	assert.False(t, state.Records[0].PublishedAt.IsZero())
}

func TestRunFetchesEachArticleOnce(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/tag?page=1": listingPage("/articles/a"),
		"https://example.test/tag?page=2": listingPage("/articles/a"),
		"https://example.test/articles/a": articlePage("A", "2024-01-01", "body"),
	}}

	NewOrchestrator(f, testConfig(), nil).Run(context.Background(), "https://example.test/tag", 2)

	assert.Equal(t, 1, f.callCount("https://example.test/articles/a"))
}

func TestRunListingFailureIsolation(t *testing.T) {
	f := &stubFetcher{
		pages: map[string]string{
			"https://example.test/tag?page=1": listingPage("/articles/a"),
			"https://example.test/tag?page=3": listingPage("/articles/b"),
			"https://example.test/articles/a": articlePage("A", "2024-01-01", "body a"),
			"https://example.test/articles/b": articlePage("B", "2024-01-02", "body b"),
		},
		fail: map[string]bool{"https://example.test/tag?page=2": true},
	}

	state := NewOrchestrator(f, testConfig(), nil).Run(context.Background(), "https://example.test/tag", 3)

	// Pages 1 and 3 processed normally; exactly one failure entry for page 2.
	assert.Len(t, state.ListingPages, 3)
	assert.Equal(t, 2, state.Links.Len())
	assert.Len(t, state.Records, 2)
	require.Len(t, state.Failures, 1)
	assert.Equal(t, "https://example.test/tag?page=2", state.Failures[0].URL)
	assert.Equal(t, PhaseListing, state.Failures[0].Phase)
}

func TestRunArticleFailureRecorded(t *testing.T) {
	f := &stubFetcher{
		pages: map[string]string{
			"https://example.test/tag?page=1": listingPage("/articles/a", "/articles/b"),
			"https://example.test/articles/b": articlePage("B", "2024-01-02", "body b"),
		},
		fail: map[string]bool{"https://example.test/articles/a": true},
	}

	state := NewOrchestrator(f, testConfig(), nil).Run(context.Background(), "https://example.test/tag", 1)

	require.Len(t, state.Records, 1)
	assert.Equal(t, "B", state.Records[0].Title)
	require.Len(t, state.Failures, 1)
	assert.Equal(t, PhaseArticle, state.Failures[0].Phase)
}

func TestRunIdempotent(t *testing.T) {
	pages := map[string]string{
		"https://example.test/tag?page=1": listingPage("/articles/a", "/articles/b"),
		"https://example.test/articles/a": articlePage("A", "2024-01-01", "body a"),
		"https://example.test/articles/b": articlePage("B", "2024-01-02", "body b"),
	}

	first := NewOrchestrator(&stubFetcher{pages: pages}, testConfig(), nil).
		Run(context.Background(), "https://example.test/tag", 1)
	second := NewOrchestrator(&stubFetcher{pages: pages}, testConfig(), nil).
		Run(context.Background(), "https://example.test/tag", 1)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Failures, second.Failures)
	assert.Equal(t, first.Links.URLs(), second.Links.URLs())
}

func TestRunMissingArticleFieldsAreAbsent(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"https://example.test/tag?page=1": listingPage("/articles/bare"),
		"https://example.test/articles/bare": `<html><body>
			<div class="content"><p>Only a body.</p></div>
		</body></html>`,
	}}

	state := NewOrchestrator(f, testConfig(), nil).Run(context.Background(), "https://example.test/tag", 1)

	require.Len(t, state.Records, 1)
	rec := state.Records[0]
	assert.Empty(t, rec.Title)
	assert.True(t, rec.PublishedAt.IsZero())
	assert.Equal(t, "Only a body.", rec.Body)
	assert.Empty(t, state.Failures)
}

func TestRunCancelledContextReturnsPartialState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &stubFetcher{pages: map[string]string{}}
	state := NewOrchestrator(f, testConfig(), nil).Run(ctx, "https://example.test/tag", 5)

	require.NotNil(t, state)
	assert.Empty(t, f.calls)
	assert.Empty(t, state.Records)
}
