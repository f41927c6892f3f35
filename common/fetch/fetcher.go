package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/counciljobs/ingestion-service/common/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// FetchError wraps a failure while retrieving a single page. Callers decide
// whether to retry; the fetcher itself never does.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Fetcher retrieves page HTML either with a direct GET or through a headless
// browser for sources that build their listings with JavaScript. The browser
// connection is established lazily on the first rendered fetch.
type Fetcher struct {
	cfg    config.FetcherConfig
	client *http.Client

	mu      sync.Mutex
	browser *rod.Browser
	pages   rod.Pool[rod.Page]
}

func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Fetch returns the HTML body of url. With renderJS the page is loaded in the
// headless browser and the rendered DOM is returned instead of the raw body.
func (f *Fetcher) Fetch(ctx context.Context, url string, renderJS bool) (string, error) {
	if renderJS {
		return f.fetchRendered(ctx, url)
	}
	return f.fetchStatic(ctx, url)
}

func (f *Fetcher) fetchStatic(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: url, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Cause: err}
	}
	return string(body), nil
}

func (f *Fetcher) fetchRendered(ctx context.Context, url string) (string, error) {
	if err := f.ensureBrowser(); err != nil {
		return "", &FetchError{URL: url, Cause: err}
	}

	page, err := f.pages.Get(f.createPage)
	if err != nil {
		log.Error().Err(err).Msg("Error getting page from pool")
		return "", &FetchError{URL: url, Cause: err}
	}
	defer f.pages.Put(page)

	rpCtx := page.Context(ctx).Timeout(f.cfg.NavTimeout)

	// The browser renders error pages like any other document, so the main
	// document status has to be read off the network event.
	var status int
	waitStatus := rpCtx.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = int(e.Response.Status)
			return true
		}
		return false
	})

	wait := rpCtx.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := rpCtx.Navigate(url); err != nil {
		log.Error().Str("url", url).Err(err).Msg("Error navigating to url")
		return "", &FetchError{URL: url, Cause: err}
	}
	wait()
	waitStatus()

	if err := documentStatusError(url, status); err != nil {
		log.Error().Str("url", url).Int("status", status).Msg("Error status on rendered document")
		return "", err
	}

	if err := rpCtx.WaitStable(f.cfg.SettleDelay); err != nil {
		log.Error().Str("url", url).Err(err).Msg("Error waiting for stable page")
		return "", &FetchError{URL: url, Cause: err}
	}

	html, err := rpCtx.HTML()
	if err != nil {
		return "", &FetchError{URL: url, Cause: err}
	}
	return html, nil
}

// documentStatusError converts the main-document status of a rendered fetch
// into a FetchError. Redirects are already followed by the browser, so only
// 4xx and 5xx remain to reject.
func documentStatusError(url string, status int) error {
	if status >= 400 {
		return &FetchError{URL: url, Cause: fmt.Errorf("unexpected status %d", status)}
	}
	return nil
}

func (f *Fetcher) ensureBrowser() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return nil
	}

	browser := rod.New()
	if f.cfg.BrowserURL != "" {
		browser = browser.ControlURL(f.cfg.BrowserURL)
	}
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	f.browser = browser
	f.pages = rod.NewPagePool(f.cfg.PagePoolSize)
	return nil
}

func (f *Fetcher) createPage() (*rod.Page, error) {
	incognito, err := f.browser.Incognito()
	if err != nil {
		log.Error().Err(err).Msg("Error creating incognito context")
		return nil, err
	}
	return incognito.MustPage(), nil
}

// Close releases all pooled pages and the browser connection. Safe to call
// when no rendered fetch ever happened.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}

	f.pages.Cleanup(func(p *rod.Page) {
		if err := p.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing page")
		}
	})

	browser := f.browser
	f.browser = nil
	return browser.Close()
}
