// Package release defines core types shared across subsystems.
package release

import (
	"fmt"
	"time"
)

// Item is one sneaker release as listed upstream. Every field except
// IsTrending may be empty; the listing does not expose a stable identity, so
// duplicates across pages are possible and are not deduplicated.
type Item struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	Price       string `json:"price"`
	SKU         string `json:"sku"`
	Link        string `json:"link"`
	IsTrending  bool   `json:"is_trending"`
}

// Markdown renders the item as a markdown hyperlink, or the bare name when no
// link was scraped.
func (i Item) Markdown() string {
	name := i.Name
	if name == "" {
		name = "Unknown"
	}
	if i.Link == "" {
		return name
	}
	return fmt.Sprintf("[%s](%s)", name, i.Link)
}

// Snapshot is one complete, immutable capture of the upstream listing. The
// counters are derived from Releases at construction time; a Snapshot whose
// counters disagree with its items never leaves this package.
type Snapshot struct {
	TotalReleases    int       `json:"total_releases"`
	TrendingReleases int       `json:"trending_releases"`
	Releases         []Item    `json:"releases"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewSnapshot builds a Snapshot from a completed crawl, computing the derived
// counters.
func NewSnapshot(items []Item, fetchedAt time.Time) Snapshot {
	trending := 0
	for _, it := range items {
		if it.IsTrending {
			trending++
		}
	}
	return Snapshot{
		TotalReleases:    len(items),
		TrendingReleases: trending,
		Releases:         items,
		LastUpdated:      fetchedAt,
	}
}

// Clone returns a deep copy so readers never hold a mutable handle on the
// cache's own item slice.
func (s Snapshot) Clone() Snapshot {
	cp := s
	if s.Releases != nil {
		cp.Releases = make([]Item, len(s.Releases))
		copy(cp.Releases, s.Releases)
	}
	return cp
}

// IsZero reports whether the snapshot has never been populated.
func (s Snapshot) IsZero() bool {
	return s.Releases == nil && s.LastUpdated.IsZero()
}
