package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/release"
)

func testSnapshot() release.Snapshot {
	return release.NewSnapshot([]release.Item{
		{
			Name:        "Air Jordan 4 Retro",
			ReleaseDate: "June 1, 2024",
			Price:       "$215",
			SKU:         "FV5029-141",
			Link:        "https://www.soleretriever.com/sneaker-release-dates/air-jordan-4",
			IsTrending:  true,
		},
		{Name: "Dunk Low Panda", ReleaseDate: "2024-06-02"},
	}, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sneaker_releases.json")
	s, err := NewFileStore(FileConfig{Path: path}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore(FileConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newFileStore(t)
	want := testSnapshot()
	require.NoError(t, s.Save(context.Background(), want))

	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.TotalReleases, got.TotalReleases)
	assert.Equal(t, want.TrendingReleases, got.TrendingReleases)
	assert.Equal(t, want.Releases, got.Releases)
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
}

func TestFileStore_SaveOverwritesWholesale(t *testing.T) {
	t.Parallel()

	s := newFileStore(t)
	require.NoError(t, s.Save(context.Background(), testSnapshot()))

	smaller := release.NewSnapshot([]release.Item{{Name: "only one"}}, time.Now().UTC())
	require.NoError(t, s.Save(context.Background(), smaller))

	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, got.TotalReleases)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	s := newFileStore(t)
	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_LoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sneaker_releases.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(FileConfig{Path: path}, zap.NewNop())
	require.NoError(t, err)

	_, ok, loadErr := s.Load(context.Background())
	require.NoError(t, loadErr, "a corrupt file must not error, only report absence")
	assert.False(t, ok)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	want := testSnapshot()
	require.NoError(t, s.Save(context.Background(), want))

	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Releases, got.Releases)

	// Mutating the loaded copy must not leak back into the store.
	got.Releases[0].Name = "mutated"
	again, _, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Air Jordan 4 Retro", again.Releases[0].Name)
}
