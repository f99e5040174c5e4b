package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultBrowserTimeout bounds a headless render.
const DefaultBrowserTimeout = 30 * time.Second

// ShouldUseBrowser returns true if a plain HTTP fetch returned no form,
// which usually means the CRM injects the webform with JavaScript.
func ShouldUseBrowser(html string) bool {
	return !HasForm(html)
}

// WithBrowser renders a page in a headless browser and returns the rendered
// HTML once a form is present. Requires Chrome/Chromium to be installed.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, verbose bool) (string, error) {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	if verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("form", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	if verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}

	return html, nil
}

// Page fetches a page over HTTP and falls back to the headless browser when
// useBrowser is set or the plain response holds no form.
func Page(ctx context.Context, url string, opts *Options, useBrowser, verbose bool) (string, error) {
	if !useBrowser {
		result, err := URL(ctx, url, opts)
		if err != nil {
			return "", err
		}
		if !ShouldUseBrowser(result.HTML()) {
			return result.HTML(), nil
		}
		if verbose {
			log.Printf("[FETCH] No form in HTTP response for %s, rendering in browser", url)
		}
	}

	timeout := DefaultBrowserTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return WithBrowser(ctx, url, timeout, verbose)
}
