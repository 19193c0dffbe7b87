package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/go-scripts/newsharvest/internal/config"
	"github.com/go-scripts/newsharvest/internal/crawl"
	"github.com/go-scripts/newsharvest/internal/fetch"
	"github.com/go-scripts/newsharvest/internal/sink"
)

// CLI flags. File configuration carries the rule sets; flags override the
// run-level knobs.
type CLIFlags struct {
	Config  string `help:"Path to configuration file" default:"config.yaml" type:"path"`
	BaseURL string `help:"Override the base listing URL" short:"u"`
	Pages   int    `help:"Override the listing page count" short:"p"`
	Output  string `help:"Override the output CSV path" short:"o"`
	Append  bool   `help:"Append to the output file instead of overwriting"`
	Static  bool   `help:"Fetch with a plain HTTP client instead of the browser"`
	Verbose bool   `help:"Enable debug logging" short:"v"`
}

func main() {
	var flags CLIFlags
	kong.Parse(&flags,
		kong.Name("newsharvest"),
		kong.Description("Crawl paginated news listings and persist extracted articles as CSV."))

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "newsharvest",
	})
	if flags.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(flags, logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(flags CLIFlags, logger *log.Logger) error {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	fetcher, cleanup, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// An interrupt stops the run between fetches; whatever was collected by
	// then is still persisted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := crawl.NewOrchestrator(fetcher, crawl.Config{
		ListingRules: cfg.ListingRules,
		ArticleRules: cfg.ArticleRules,
		PageParam:    cfg.PageParam,
	}, logger)

	var sp *spinner.Spinner
	if isatty.IsTerminal(os.Stderr.Fd()) && !flags.Verbose {
		sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = fmt.Sprintf(" crawling %s (%d pages)", cfg.BaseURL, cfg.PageCount)
		sp.Start()
	}

	state := orch.Run(ctx, cfg.BaseURL, cfg.PageCount)

	if sp != nil {
		sp.Stop()
	}

	mode := sink.Overwrite
	if cfg.Output.Append || flags.Append {
		mode = sink.Append
	}
	if err := sink.WriteCSV(state.Records, cfg.Output.Path, mode); err != nil {
		return fmt.Errorf("persist records: %w", err)
	}

	logger.Info("records persisted", "path", cfg.Output.Path, "records", len(state.Records))
	for _, f := range state.Failures {
		logger.Warn("page failed", "phase", f.Phase, "url", f.URL, "reason", f.Reason)
	}
	if ctx.Err() != nil {
		logger.Warn("run interrupted; partial results persisted")
	}
	return nil
}

func applyOverrides(cfg *config.Config, flags CLIFlags) {
	if flags.BaseURL != "" {
		cfg.BaseURL = flags.BaseURL
	}
	if flags.Pages > 0 {
		cfg.PageCount = flags.Pages
	}
	if flags.Output != "" {
		cfg.Output.Path = flags.Output
	}
	if flags.Static {
		cfg.Fetch.Static = true
	}
}

// newFetcher picks the browser session or the plain HTTP client. The
// cleanup func releases the session and is safe on every exit path.
func newFetcher(cfg *config.Config) (fetch.Fetcher, func(), error) {
	timeout := time.Duration(cfg.Fetch.TimeoutSec) * time.Second
	if cfg.Fetch.Static {
		return fetch.NewClient(timeout, cfg.Fetch.UserAgent), func() {}, nil
	}
	browser, err := fetch.NewBrowser(fetch.BrowserOptions{
		Headless:    true,
		UserAgent:   cfg.Fetch.UserAgent,
		PageTimeout: timeout,
		SettleWait:  time.Duration(cfg.Fetch.SettleWaitMS) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}
	return browser, browser.Close, nil
}
