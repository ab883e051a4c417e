// Package crawl orchestrates the bounded-concurrency paginated crawl of the
// upstream listing.
package crawl

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solewatch/solewatch/internal/metrics"
	"github.com/solewatch/solewatch/internal/release"
)

// Config bounds a crawl session.
type Config struct {
	// MaxPages is the hard upper bound on page indexes requested (1..MaxPages).
	MaxPages int
	// Concurrency is the worker-pool size for page fetches.
	Concurrency int
}

// Crawler fetches up to MaxPages pages through a PageFetcher and assembles the
// aggregate in page-index order.
type Crawler struct {
	fetcher release.PageFetcher
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Crawler. Zero config values fall back to the listing
// defaults (10 pages, 3 workers).
func New(fetcher release.PageFetcher, cfg Config, logger *zap.Logger) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Crawl fetches pages 1..MaxPages with bounded concurrency and returns the
// concatenation of all pages before the first empty one, sorted ascending by
// raw release-date string. An all-empty crawl returns an empty slice.
//
// Every page is submitted to the pool up front; the stop-on-empty rule is
// applied during assembly only, so pages past the stop point may still be
// fetched and then discarded.
func (c *Crawler) Crawl(ctx context.Context) []release.Item {
	pages := make([][]release.Item, c.cfg.MaxPages)

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i := 1; i <= c.cfg.MaxPages; i++ {
		g.Go(func() error {
			items, err := c.fetcher.FetchPage(ctx, i)
			if err != nil {
				// A failed page is indistinguishable from an empty one.
				c.logger.Warn("page fetch failed", zap.Int("page", i), zap.Error(err))
				metrics.ObservePage(metrics.PageOutcomeError)
				return nil
			}
			if len(items) == 0 {
				metrics.ObservePage(metrics.PageOutcomeEmpty)
				return nil
			}
			metrics.ObservePage(metrics.PageOutcomeOK)
			pages[i-1] = items
			return nil
		})
	}
	// Workers never return errors; Wait is only a barrier.
	_ = g.Wait()

	var all []release.Item
	for i, page := range pages {
		if len(page) == 0 {
			c.logger.Debug("stopping aggregation at empty page", zap.Int("page", i+1))
			break
		}
		all = append(all, page...)
	}

	// Lexicographic on the raw string, matching the listing's observed order.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ReleaseDate < all[j].ReleaseDate
	})

	if len(all) == 0 {
		c.logger.Warn("crawl produced no releases")
	} else {
		c.logger.Info("crawl complete", zap.Int("releases", len(all)))
	}
	return all
}
