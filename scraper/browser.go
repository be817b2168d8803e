package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	defaultNavTimeout     = 45 * time.Second
	defaultHeadingTimeout = 15 * time.Second
	defaultSettleDelay    = 3 * time.Second

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// RenderError is a failed attempt to produce a rendered document for a
// URL: navigation timeout, network error, or browser crash.
type RenderError struct {
	URL   string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Renderer produces the fully rendered HTML for a URL. The orchestrator
// depends on this interface so tests can substitute a fake.
type Renderer interface {
	Acquire() error
	Render(ctx context.Context, url string) (string, error)
	Release()
}

// Browser owns one shared headless Chromium process. The process is
// created on first use, reused while connected, and recreated after a
// crash. Acquire and Release are both idempotent; every Render gets an
// isolated page context so no cookies or storage leak between URLs.
type Browser struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser

	headless       bool
	navTimeout     time.Duration
	headingTimeout time.Duration
	settleDelay    time.Duration
}

// BrowserOptions tunes the shared browser. Zero values fall back to
// defaults.
type BrowserOptions struct {
	Headless       bool
	NavTimeout     time.Duration
	HeadingTimeout time.Duration
	SettleDelay    time.Duration
}

func NewBrowser(opts BrowserOptions) *Browser {
	b := &Browser{
		headless:       opts.Headless,
		navTimeout:     opts.NavTimeout,
		headingTimeout: opts.HeadingTimeout,
		settleDelay:    opts.SettleDelay,
	}
	if b.navTimeout <= 0 {
		b.navTimeout = defaultNavTimeout
	}
	if b.headingTimeout <= 0 {
		b.headingTimeout = defaultHeadingTimeout
	}
	if b.settleDelay <= 0 {
		b.settleDelay = defaultSettleDelay
	}
	return b
}

// Acquire launches the shared browser if it is absent or disconnected.
// Idempotent: a live browser is left alone.
func (b *Browser) Acquire() error {
	_, err := b.acquire()
	return err
}

// acquire returns a live browser, launching one if absent or
// disconnected.
func (b *Browser) acquire() (playwright.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil && b.browser.IsConnected() {
		return b.browser, nil
	}

	if b.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("start playwright: %w", err)
		}
		b.pw = pw
	}

	browser, err := b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b.browser = browser
	return browser, nil
}

// Release closes the shared browser if one is running. Safe to call
// repeatedly and on a Browser that never launched.
func (b *Browser) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.pw != nil {
		b.pw.Stop()
		b.pw = nil
	}
}

// Render loads the URL in an isolated page context and returns the
// rendered HTML once client-side content has settled. The page context
// is always torn down, success or failure.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &RenderError{URL: url, Cause: err}
	}

	browser, err := b.acquire()
	if err != nil {
		return "", &RenderError{URL: url, Cause: err}
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
		UserAgent: playwright.String(browserUserAgent),
	})
	if err != nil {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("new context: %w", err)}
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("new page: %w", err)}
	}

	// Skip resources the extractor never reads. Images stay enabled:
	// gallery extraction needs their URLs present in the DOM.
	err = page.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "stylesheet", "font", "media":
			route.Abort()
		default:
			route.Continue()
		}
	})
	if err != nil {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("route setup: %w", err)}
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(b.navTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("navigation: %w", err)}
	}

	// The heading is the best signal that primary content arrived, but
	// a miss is non-fatal: extraction proceeds with whatever rendered.
	_ = page.Locator("h1").First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(b.headingTimeout.Milliseconds())),
	})

	page.WaitForTimeout(float64(b.settleDelay.Milliseconds()))

	content, err := page.Content()
	if err != nil {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("read content: %w", err)}
	}

	return content, nil
}
