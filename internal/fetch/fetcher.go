// Package fetch implements the page-fetch adapter for the upstream listing:
// a Colly HTTP fetch, goquery extraction of release cards, and a headless
// fallback for anti-bot interstitials.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/release"
)

// Config controls adapter behavior.
type Config struct {
	// BaseURL is the listing URL; page 1 is BaseURL itself, later pages append
	// ?page=N.
	BaseURL   string
	UserAgent string
	// Timeout bounds one page fetch end to end.
	Timeout time.Duration
}

// Renderer produces a JS-rendered DOM for a URL. Implemented by the chromedp
// renderer; nil disables the fallback.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Fetcher implements release.PageFetcher against the listing site.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	detector      *Detector
	renderer      Renderer
	logger        *zap.Logger
}

// New builds a Fetcher. detector and renderer may be nil, which disables the
// headless promotion path.
func New(cfg Config, detector *Detector, renderer Renderer, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		detector:      detector,
		renderer:      renderer,
		logger:        logger,
	}
}

// FetchPage fetches and extracts one listing page. It returns an empty slice
// for a missing page, an item-less page, and for any fetch or parse failure;
// the error is informational only.
func (f *Fetcher) FetchPage(ctx context.Context, page int) ([]release.Item, error) {
	url := f.PageURL(page)

	body, status, err := f.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	if status == http.StatusNotFound {
		f.logger.Debug("page not found", zap.Int("page", page))
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch page %d: unexpected status %d", page, status)
	}

	if f.detector != nil && f.renderer != nil && f.detector.NeedsJS(body) {
		f.logger.Info("promoting page to headless fetch", zap.Int("page", page))
		rendered, renderErr := f.renderer.Render(ctx, url)
		if renderErr != nil {
			return nil, fmt.Errorf("render page %d: %w", page, renderErr)
		}
		body = rendered
	}

	items, err := ExtractItems(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page %d: %w", page, err)
	}
	f.logger.Debug("page fetched", zap.Int("page", page), zap.Int("items", len(items)))
	return items, nil
}

// PageURL builds the listing URL for a page index.
func (f *Fetcher) PageURL(page int) string {
	if page <= 1 {
		return f.cfg.BaseURL
	}
	return fmt.Sprintf("%s?page=%d", f.cfg.BaseURL, page)
}

// get executes a single HTTP GET using a cloned collector, bridging context
// cancellation the way the collector cannot natively.
func (f *Fetcher) get(ctx context.Context, url string) (body []byte, status int, err error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, e error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = e
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		// A 404 surfaces through OnError and Visit; the caller treats it as
		// an empty page, not a failure.
		if status == http.StatusNotFound {
			return nil, status, nil
		}
		if visitErr != nil {
			return nil, status, fmt.Errorf("visit failed: %w", visitErr)
		}
		if fetchErr != nil {
			return nil, status, fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, status, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
