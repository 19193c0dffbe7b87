package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserOptions configures the rendering session.
type BrowserOptions struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
	// SettleWait is an extra pause after the body is ready, for pages that
	// populate content asynchronously after the initial load.
	SettleWait time.Duration
}

// Browser is a Fetcher backed by a persistent chromedp session. The browser
// process is started once and reused for every page load; each Fetch runs in
// its own tab. Callers must Close the session when the run ends.
type Browser struct {
	opts          BrowserOptions
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowser starts the headless browser. An unusable environment (no
// browser binary, sandbox failure) is reported here, at startup, rather
// than surfacing as per-page fetch failures later.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 30 * time.Second
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if !opts.Headless {
		// The default allocator options run headless; turn it off on request.
		execOpts = append(execOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}

	// One browser context shared across all fetches in the run.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser to start now.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start rendering session: %w", err)
	}

	return &Browser{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts down the browser session. Safe to call exactly once on every
// exit path.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Fetch navigates a fresh tab to the target URL, waits for the page (and
// any settle time) and returns the rendered markup.
func (b *Browser) Fetch(ctx context.Context, target string) FetchResult {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, b.opts.PageTimeout)
	defer timeoutCancel()

	// The tab context descends from the browser, not the caller; propagate
	// caller cancellation by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tasks := []chromedp.Action{
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
	}
	if b.opts.SettleWait > 0 {
		tasks = append(tasks, chromedp.Sleep(b.opts.SettleWait))
	}

	var pageHTML string
	tasks = append(tasks, chromedp.OuterHTML("html", &pageHTML))

	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return failed(target, fmt.Sprintf("navigation failed: %v", err))
	}

	return succeeded(target, pageHTML)
}
