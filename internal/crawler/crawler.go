package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"brand-dna-studio/internal/extract"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080
	maxImages      = 10
)

const textScript = `(() => {
	const elements = document.querySelectorAll('h1, h2, h3, p, .about, .mission, .description');
	return Array.from(elements).map(el => el.textContent).join(' ');
})()`

const cssScript = `(() => {
	const body = document.body;
	const h1 = document.querySelector('h1');
	const p = document.querySelector('p');
	const bodyStyle = window.getComputedStyle(body);
	const h1Style = h1 ? window.getComputedStyle(h1) : null;
	const pStyle = p ? window.getComputedStyle(p) : null;
	return {
		backgroundColor: bodyStyle.backgroundColor,
		headingFont: h1Style ? h1Style.fontFamily : 'sans-serif',
		bodyFont: pStyle ? pStyle.fontFamily : 'sans-serif',
		primaryColor: bodyStyle.color
	};
})()`

const imagesScript = `(() => {
	const imgs = document.querySelectorAll('img');
	return Array.from(imgs).slice(0, 10).map(img => img.src).filter(Boolean);
})()`

type Options struct {
	Headless  bool
	UserAgent string
	// Settle is how long to wait after load for client-side rendering.
	Settle time.Duration
	Logger *slog.Logger
}

// Chrome crawls pages with a fresh headless browser per call.
type Chrome struct {
	headless  bool
	userAgent string
	settle    time.Duration
	logger    *slog.Logger
}

func New(opts Options) *Chrome {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "BrandDNAStudio/1.0 (+crawler)"
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Chrome{
		headless:  opts.Headless,
		userAgent: ua,
		settle:    settle,
		logger:    logger,
	}
}

func (c *Chrome) Crawl(ctx context.Context, url string) (extract.Signals, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return extract.Signals{}, errors.New("url is empty")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", c.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(c.userAgent),
			chromedp.WindowSize(viewportWidth, viewportHeight),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var (
		sig        extract.Signals
		screenshot []byte
	)
	start := time.Now()
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.settle),
		chromedp.Title(&sig.Title),
		chromedp.FullScreenshot(&screenshot, 100),
		chromedp.Evaluate(textScript, &sig.TextContent),
		chromedp.Evaluate(cssScript, &sig.CSS),
		chromedp.Evaluate(imagesScript, &sig.Images),
	)
	if err != nil {
		return extract.Signals{}, fmt.Errorf("crawl %s: %w", url, err)
	}

	if len(screenshot) > 0 {
		sig.Screenshots = [][]byte{screenshot}
	}
	if len(sig.Images) > maxImages {
		sig.Images = sig.Images[:maxImages]
	}
	sig.TextContent = strings.Join(strings.Fields(sig.TextContent), " ")

	c.logger.Info("page crawled",
		"url", url,
		"title", sig.Title,
		"text_chars", len(sig.TextContent),
		"images", len(sig.Images),
		"screenshot_bytes", len(screenshot),
		"elapsed", time.Since(start).String(),
	)
	return sig, nil
}
