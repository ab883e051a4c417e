// Package query answers date-window/trending queries against a snapshot.
package query

import (
	"time"

	"github.com/solewatch/solewatch/internal/dates"
	"github.com/solewatch/solewatch/internal/release"
)

// Filter evaluates snapshot queries using a shared date normalizer.
type Filter struct {
	dates *dates.Normalizer
}

// New builds a Filter.
func New(n *dates.Normalizer) *Filter {
	return &Filter{dates: n}
}

// Upcoming returns the trending items whose release date falls within
// [today, today+days] inclusive. Items that are not trending or whose date
// does not parse are silently excluded.
func (f *Filter) Upcoming(items []release.Item, days int, today time.Time) []release.Item {
	start := dates.Day(today)
	end := start.AddDate(0, 0, days)

	var out []release.Item
	for _, item := range items {
		if !item.IsTrending {
			continue
		}
		day, ok := f.dates.Parse(item.ReleaseDate)
		if !ok {
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		out = append(out, item)
	}
	return out
}
