package release

import (
	"context"
	"time"
)

// PageFetcher turns one upstream page index into raw items. Implementations
// return an empty slice (with or without an error) for "page not found", "no
// items on page", and fetch/parse failures alike; the crawler does not
// distinguish these cases.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]Item, error)
}

// SnapshotStore persists the last successful snapshot. Load reports ok=false
// for a missing or unreadable snapshot; it never fails the caller just because
// no durable state exists yet.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
}

// Publisher pushes refresh-completed events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
