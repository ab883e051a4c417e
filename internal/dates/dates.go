// Package dates parses the heterogeneous date strings the listing uses into
// canonical calendar days.
package dates

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize bounds the parse memo. The same raw strings recur across
// repeated queries, so a small cache covers almost every lookup.
const DefaultMemoSize = 32

// formats are tried in order; the first successful parse wins.
var formats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

type memoEntry struct {
	day time.Time
	ok  bool
}

// Normalizer parses raw date strings, memoizing results by exact input string
// in a fixed-capacity LRU. Safe for concurrent use.
type Normalizer struct {
	memo *lru.Cache[string, memoEntry]
}

// New builds a Normalizer with the given memo capacity (DefaultMemoSize when
// size <= 0).
func New(size int) (*Normalizer, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, err := lru.New[string, memoEntry](size)
	if err != nil {
		return nil, err
	}
	return &Normalizer{memo: memo}, nil
}

// Parse returns the calendar day for raw, normalized to midnight UTC, and
// whether any format matched. Empty input and unparseable strings report
// ok=false; both outcomes are memoized.
func (n *Normalizer) Parse(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if entry, hit := n.memo.Get(raw); hit {
		return entry.day, entry.ok
	}
	entry := parse(raw)
	n.memo.Add(raw, entry)
	return entry.day, entry.ok
}

func parse(raw string) memoEntry {
	for _, layout := range formats {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return memoEntry{day: Day(t), ok: true}
	}
	return memoEntry{}
}

// Day truncates t to its calendar day at midnight UTC, the granularity all
// date-window comparisons use.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
