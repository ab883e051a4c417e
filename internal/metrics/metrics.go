// Package metrics exposes Prometheus collectors for the release cache service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page fetch outcomes.
const (
	PageOutcomeOK    = "ok"
	PageOutcomeEmpty = "empty"
	PageOutcomeError = "error"
)

// Refresh outcomes.
const (
	RefreshOutcomeSuccess    = "success"
	RefreshOutcomeEmpty      = "empty"
	RefreshOutcomeSaveFailed = "save_failed"
	RefreshOutcomePanic      = "panic"
)

var (
	pagesFetchedTotal       *prometheus.CounterVec
	refreshesTotal          *prometheus.CounterVec
	upcomingQueriesTotal    prometheus.Counter
	snapshotReleases        prometheus.Gauge
	snapshotTrending        prometheus.Gauge
	snapshotLastRefreshUnix prometheus.Gauge
	refreshDurationSeconds  prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solewatch_pages_fetched_total",
				Help: "Total listing pages fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		refreshesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solewatch_refreshes_total",
				Help: "Total background refreshes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upcomingQueriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "solewatch_upcoming_queries_total",
				Help: "Total upcoming-release queries served from the cache.",
			},
		)

		snapshotReleases = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "solewatch_snapshot_releases",
				Help: "Release count in the currently held snapshot.",
			},
		)

		snapshotTrending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "solewatch_snapshot_trending_releases",
				Help: "Trending release count in the currently held snapshot.",
			},
		)

		snapshotLastRefreshUnix = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "solewatch_snapshot_last_refresh_timestamp_seconds",
				Help: "Unix timestamp of the last successful refresh.",
			},
		)

		refreshDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "solewatch_refresh_duration_seconds",
				Help:    "Histogram of end-to-end refresh durations.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page fetch counter for the given outcome.
func ObservePage(outcome string) {
	if pagesFetchedTotal == nil {
		return
	}
	pagesFetchedTotal.WithLabelValues(outcome).Inc()
}

// ObserveRefresh records one completed refresh attempt.
func ObserveRefresh(outcome string, duration time.Duration) {
	if refreshesTotal == nil {
		return
	}
	refreshesTotal.WithLabelValues(outcome).Inc()
	refreshDurationSeconds.Observe(duration.Seconds())
}

// ObserveUpcomingQuery increments the upcoming-query counter.
func ObserveUpcomingQuery() {
	if upcomingQueriesTotal == nil {
		return
	}
	upcomingQueriesTotal.Inc()
}

// SetSnapshot updates the snapshot gauges after a successful swap.
func SetSnapshot(total, trending int, refreshedAt time.Time) {
	if snapshotReleases == nil {
		return
	}
	snapshotReleases.Set(float64(total))
	snapshotTrending.Set(float64(trending))
	snapshotLastRefreshUnix.Set(float64(refreshedAt.Unix()))
}
