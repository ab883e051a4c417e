// Package cache implements the snapshot cache's state machine: staleness
// policy, single-flight refresh coordination, and the atomic snapshot swap.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/metrics"
	"github.com/solewatch/solewatch/internal/query"
	"github.com/solewatch/solewatch/internal/release"
)

// DefaultStaleness is the age past which a held snapshot warrants a refresh.
const DefaultStaleness = 6 * time.Hour

// RefreshEventTopic labels refresh-completed notifications.
const RefreshEventTopic = "snapshot.refreshed"

// Crawler produces one full pass over the upstream listing. An empty result
// means the crawl failed and the held snapshot must be retained.
type Crawler interface {
	Crawl(ctx context.Context) []release.Item
}

// RefreshEvent is published after each successful refresh.
type RefreshEvent struct {
	RefreshID        string    `json:"refresh_id"`
	TotalReleases    int       `json:"total_releases"`
	TrendingReleases int       `json:"trending_releases"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Config tunes the coordinator.
type Config struct {
	// Staleness is the maximum snapshot age before a refresh is warranted.
	Staleness time.Duration
}

// Coordinator owns the process-wide cache state. All public operations return
// in-memory state immediately and at most schedule a background refresh; they
// never block on network I/O.
type Coordinator struct {
	crawler   Crawler
	store     release.SnapshotStore
	publisher release.Publisher
	clock     release.Clock
	filter    *query.Filter
	logger    *zap.Logger
	staleness time.Duration

	// mu guards snapshot, hasSnapshot and lastFetch; they are always swapped
	// as a unit. Readers take the lock only long enough to copy.
	mu          sync.RWMutex
	snapshot    release.Snapshot
	hasSnapshot bool
	lastFetch   time.Time

	// refreshing is the single-flight gate: a CAS acquire so callers never
	// block, a Store(false) release deferred on every refresh exit path.
	refreshing atomic.Bool
	// firstRun forces exactly one refresh regardless of staleness.
	firstRun atomic.Bool
}

// New builds a Coordinator. publisher may be nil, which disables refresh
// events.
func New(
	crawler Crawler,
	store release.SnapshotStore,
	publisher release.Publisher,
	clock release.Clock,
	filter *query.Filter,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.Staleness <= 0 {
		cfg.Staleness = DefaultStaleness
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		crawler:   crawler,
		store:     store,
		publisher: publisher,
		clock:     clock,
		filter:    filter,
		logger:    logger,
		staleness: cfg.Staleness,
	}
	c.firstRun.Store(true)
	return c
}

// Get returns the currently held snapshot, scheduling a background refresh
// first when one is warranted. It never waits for that refresh: callers see
// stale data until the swap lands (stale-while-revalidate).
func (c *Coordinator) Get(ctx context.Context, forceRefresh bool) release.Snapshot {
	snap, hasSnap, age := c.currentState(ctx)

	first := c.firstRun.Load()
	if !forceRefresh && !first && hasSnap && age < c.staleness {
		c.logger.Debug("serving cached snapshot", zap.Duration("age", age))
		return snap
	}

	// Single CAS covers both "refresh already in progress" and the try-lock
	// race: the loser returns the held snapshot either way.
	if !c.refreshing.CompareAndSwap(false, true) {
		c.logger.Debug("refresh already in progress, serving cached snapshot")
		return snap
	}
	c.firstRun.Store(false)

	refreshID := uuid.NewString()
	c.logger.Info("scheduling background refresh",
		zap.String("refresh_id", refreshID),
		zap.Bool("forced", forceRefresh),
		zap.Bool("first_run", first),
	)
	// Detached from the caller: no cancellation is modeled for a started
	// crawl, and the caller must not wait on it.
	go c.refresh(context.Background(), refreshID)

	return snap
}

// Upcoming applies the same freshness policy as Get, then filters whatever
// snapshot is currently held (stale or fresh) down to trending items within
// [today, today+days].
func (c *Coordinator) Upcoming(ctx context.Context, days int, forceRefresh bool) []release.Item {
	snap := c.Get(ctx, forceRefresh)
	metrics.ObserveUpcomingQuery()
	return c.filter.Upcoming(snap.Releases, days, c.clock.Now())
}

// Refreshing reports whether a background refresh is currently in flight.
func (c *Coordinator) Refreshing() bool {
	return c.refreshing.Load()
}

// LastFetch returns the timestamp of the last successful fetch and whether a
// snapshot is held at all.
func (c *Coordinator) LastFetch() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch, c.hasSnapshot
}

// currentState returns a copy of the held snapshot and its age, lazily
// adopting the durable snapshot when memory is still empty.
func (c *Coordinator) currentState(ctx context.Context) (release.Snapshot, bool, time.Duration) {
	c.mu.RLock()
	if c.hasSnapshot {
		snap := c.snapshot.Clone()
		age := c.clock.Now().Sub(c.lastFetch)
		c.mu.RUnlock()
		return snap, true, age
	}
	c.mu.RUnlock()

	loaded, ok, err := c.store.Load(ctx)
	if err != nil {
		// Load failures leave the cache empty; the first refresh repopulates.
		c.logger.Warn("snapshot load failed, starting empty", zap.Error(err))
		return release.Snapshot{}, false, 0
	}
	if !ok {
		return release.Snapshot{}, false, 0
	}

	c.mu.Lock()
	// Another caller may have raced the load or a refresh may have landed;
	// the in-memory snapshot always wins over the durable copy.
	if !c.hasSnapshot {
		c.snapshot = loaded
		c.hasSnapshot = true
		c.lastFetch = loaded.LastUpdated
	}
	snap := c.snapshot.Clone()
	age := c.clock.Now().Sub(c.lastFetch)
	c.mu.Unlock()
	return snap, true, age
}

// refresh runs one background crawl-persist-swap cycle. The single-flight
// gate is released on every exit path, including panics, so a failed refresh
// can never starve later ones.
func (c *Coordinator) refresh(ctx context.Context, refreshID string) {
	start := c.clock.Now()
	defer c.refreshing.Store(false)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh panicked",
				zap.String("refresh_id", refreshID),
				zap.Any("panic", r),
			)
			metrics.ObserveRefresh(metrics.RefreshOutcomePanic, c.clock.Now().Sub(start))
		}
	}()

	items := c.crawler.Crawl(ctx)
	if len(items) == 0 {
		c.logger.Warn("refresh produced no releases, keeping previous snapshot",
			zap.String("refresh_id", refreshID),
		)
		metrics.ObserveRefresh(metrics.RefreshOutcomeEmpty, c.clock.Now().Sub(start))
		return
	}

	snap := release.NewSnapshot(items, c.clock.Now())

	// Persist first: the in-memory swap only happens when durable state moved
	// with it, so the two can never diverge.
	if err := c.store.Save(ctx, snap); err != nil {
		c.logger.Error("snapshot save failed, keeping previous snapshot",
			zap.String("refresh_id", refreshID),
			zap.Error(err),
		)
		metrics.ObserveRefresh(metrics.RefreshOutcomeSaveFailed, c.clock.Now().Sub(start))
		return
	}

	c.mu.Lock()
	c.snapshot = snap
	c.hasSnapshot = true
	c.lastFetch = snap.LastUpdated
	c.mu.Unlock()

	metrics.SetSnapshot(snap.TotalReleases, snap.TrendingReleases, snap.LastUpdated)
	metrics.ObserveRefresh(metrics.RefreshOutcomeSuccess, c.clock.Now().Sub(start))
	c.logger.Info("snapshot refreshed",
		zap.String("refresh_id", refreshID),
		zap.Int("releases", snap.TotalReleases),
		zap.Int("trending", snap.TrendingReleases),
	)

	c.publishEvent(ctx, refreshID, snap)
}

func (c *Coordinator) publishEvent(ctx context.Context, refreshID string, snap release.Snapshot) {
	if c.publisher == nil {
		return
	}
	event := RefreshEvent{
		RefreshID:        refreshID,
		TotalReleases:    snap.TotalReleases,
		TrendingReleases: snap.TrendingReleases,
		FetchedAt:        snap.LastUpdated,
	}
	if _, err := c.publisher.Publish(ctx, RefreshEventTopic, event); err != nil {
		// Notification is best effort; the refresh itself already landed.
		c.logger.Warn("publish refresh event failed",
			zap.String("refresh_id", refreshID),
			zap.Error(err),
		)
	}
}
