// Package crawl drives the two-phase crawl: walk the listing pages to
// discover article links, then fetch and extract each article once.
package crawl

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/newsharvest/internal/extract"
	"github.com/go-scripts/newsharvest/internal/fetch"
	"github.com/go-scripts/newsharvest/internal/paging"
)

// Field names the orchestrator reads from extraction results.
const (
	FieldLinks       = "links"
	FieldTitle       = "title"
	FieldPublishedAt = "published_at"
	FieldBody        = "body"
)

// Phases recorded on failure entries.
const (
	PhaseListing = "listing"
	PhaseArticle = "article"
)

// Record is one extracted article. Never mutated after creation.
type Record struct {
	URL         string
	PublishedAt time.Time
	Title       string
	Body        string
}

// Failure is a page that could not be fetched or parsed. Failures are part
// of the run's outcome, not errors.
type Failure struct {
	URL    string
	Reason string
	Phase  string
}

// State is the complete outcome of one crawl run. A partially filled State
// (interrupted run, failed pages) is always valid.
type State struct {
	ListingPages []string
	Links        *LinkSet
	Records      []Record
	Failures     []Failure
}

// Config holds the per-run extraction setup.
type Config struct {
	ListingRules []extract.Rule
	ArticleRules []extract.Rule
	// PageParam is the listing-page index query parameter. Empty means
	// paging.DefaultParam.
	PageParam string
}

// Orchestrator owns the crawl loop and its state for the duration of a run.
type Orchestrator struct {
	fetcher fetch.Fetcher
	cfg     Config
	logger  *log.Logger
}

// NewOrchestrator wires a fetcher and rule sets into an orchestrator.
// A nil logger disables logging.
func NewOrchestrator(fetcher fetch.Fetcher, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Run crawls pageCount listing pages under baseURL and then every
// discovered article link. Single attempt per URL, one fetch in flight at a
// time. Run always returns a usable State: per-page problems become failure
// entries and the loops continue, and cancelling ctx stops between fetches
// with everything collected so far intact.
func (o *Orchestrator) Run(ctx context.Context, baseURL string, pageCount int) *State {
	state := &State{Links: NewLinkSet()}

	for pageURL := range paging.Pages(baseURL, o.cfg.PageParam, pageCount) {
		if ctx.Err() != nil {
			return state
		}
		state.ListingPages = append(state.ListingPages, pageURL)
		o.discoverLinks(ctx, pageURL, state)
	}

	for _, link := range state.Links.URLs() {
		if ctx.Err() != nil {
			return state
		}
		o.collectArticle(ctx, link, state)
	}

	o.logger.Info("crawl finished",
		"listing_pages", len(state.ListingPages),
		"links", state.Links.Len(),
		"records", len(state.Records),
		"failures", len(state.Failures))

	return state
}

func (o *Orchestrator) discoverLinks(ctx context.Context, pageURL string, state *State) {
	res := o.fetcher.Fetch(ctx, pageURL)
	if !res.OK() {
		state.Failures = append(state.Failures, Failure{URL: pageURL, Reason: res.Reason, Phase: PhaseListing})
		o.logger.Warn("listing fetch failed", "url", pageURL, "reason", res.Reason)
		return
	}

	fields, err := extract.Extract(res.Content, o.cfg.ListingRules)
	if err != nil {
		state.Failures = append(state.Failures, Failure{URL: pageURL, Reason: err.Error(), Phase: PhaseListing})
		o.logger.Warn("listing parse failed", "url", pageURL, "err", err)
		return
	}

	links := extract.ResolveLinks(pageURL, fields.List(FieldLinks))
	added := 0
	for _, link := range links {
		if state.Links.Add(link) {
			added++
		}
	}
	if added == 0 {
		// Likely past the last real page; the page count is caller-supplied
		// so this is only an operator signal.
		o.logger.Warn("listing page yielded no new links", "url", pageURL)
	}
	o.logger.Debug("listing processed", "url", pageURL, "links", len(links), "new", added)
}

func (o *Orchestrator) collectArticle(ctx context.Context, link string, state *State) {
	res := o.fetcher.Fetch(ctx, link)
	if !res.OK() {
		state.Failures = append(state.Failures, Failure{URL: link, Reason: res.Reason, Phase: PhaseArticle})
		o.logger.Warn("article fetch failed", "url", link, "reason", res.Reason)
		return
	}

	fields, err := extract.Extract(res.Content, o.cfg.ArticleRules)
	if err != nil {
		state.Failures = append(state.Failures, Failure{URL: link, Reason: err.Error(), Phase: PhaseArticle})
		o.logger.Warn("article parse failed", "url", link, "err", err)
		return
	}

	rec := Record{URL: link}
	rec.Title, _ = fields.Text(FieldTitle)
	rec.Body, _ = fields.Text(FieldBody)
	rec.PublishedAt, _ = fields.Time(FieldPublishedAt)
	state.Records = append(state.Records, rec)

	o.logger.Debug("article collected", "url", link, "title", rec.Title)
}
