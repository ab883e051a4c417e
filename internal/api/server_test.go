package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/release"
)

type fakeCache struct {
	snap     release.Snapshot
	upcoming []release.Item

	getForce      bool
	upcomingDays  int
	upcomingForce bool
}

func (f *fakeCache) Get(_ context.Context, forceRefresh bool) release.Snapshot {
	f.getForce = forceRefresh
	return f.snap
}

func (f *fakeCache) Upcoming(_ context.Context, days int, forceRefresh bool) []release.Item {
	f.upcomingDays = days
	f.upcomingForce = forceRefresh
	return f.upcoming
}

func newTestServer(t *testing.T, cache *fakeCache) *httptest.Server {
	t.Helper()
	srv := NewServer(cache, Config{DefaultUpcomingDays: 7}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeCache{})

	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGetReleases(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{
		snap: release.NewSnapshot([]release.Item{
			{Name: "Air Jordan 4", ReleaseDate: "2024-06-01", IsTrending: true},
			{Name: "Dunk Low", ReleaseDate: "2024-06-02"},
		}, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)),
	}
	ts := newTestServer(t, cache)

	var body release.Snapshot
	resp := getJSON(t, ts.URL+"/v1/releases", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 2, body.TotalReleases)
	assert.Equal(t, 1, body.TrendingReleases)
	assert.False(t, cache.getForce)
}

func TestGetReleases_RefreshParam(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{}
	ts := newTestServer(t, cache)

	getJSON(t, ts.URL+"/v1/releases?refresh=true", nil)
	assert.True(t, cache.getForce)
}

func TestGetUpcoming_DefaultDays(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{
		upcoming: []release.Item{{Name: "Air Jordan 4", ReleaseDate: "2024-06-01", IsTrending: true}},
	}
	ts := newTestServer(t, cache)

	var body struct {
		Days     int            `json:"days"`
		Count    int            `json:"count"`
		Releases []release.Item `json:"releases"`
	}
	resp := getJSON(t, ts.URL+"/v1/releases/upcoming", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, body.Days)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Releases, 1)
	assert.Equal(t, 7, cache.upcomingDays)
}

func TestGetUpcoming_CustomDays(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{}
	ts := newTestServer(t, cache)

	var body struct {
		Days     int            `json:"days"`
		Releases []release.Item `json:"releases"`
	}
	resp := getJSON(t, ts.URL+"/v1/releases/upcoming?days=30&refresh=1", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, body.Days)
	assert.NotNil(t, body.Releases, "empty result serializes as [], not null")
	assert.Equal(t, 30, cache.upcomingDays)
	assert.True(t, cache.upcomingForce)
}

func TestGetUpcoming_InvalidDays(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeCache{})

	for _, days := range []string{"0", "-3", "soon"} {
		var body map[string]string
		resp := getJSON(t, ts.URL+"/v1/releases/upcoming?days="+days, &body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "days=%s", days)
		assert.NotEmpty(t, body["error"])
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeCache{})
	resp := getJSON(t, ts.URL+"/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
