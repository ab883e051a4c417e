package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solewatch/solewatch/internal/dates"
	"github.com/solewatch/solewatch/internal/release"
)

func newFilter(t *testing.T) *Filter {
	t.Helper()
	n, err := dates.New(dates.DefaultMemoSize)
	require.NoError(t, err)
	return New(n)
}

func TestUpcoming_TrendingWithinWindow(t *testing.T) {
	t.Parallel()

	f := newFilter(t)
	today := time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)
	items := []release.Item{
		{Name: "in-window trending", ReleaseDate: "2024-06-01", IsTrending: true},
		{Name: "not trending", ReleaseDate: "2024-06-02", IsTrending: false},
		{Name: "too far out", ReleaseDate: "2024-07-01", IsTrending: true},
	}

	got := f.Upcoming(items, 30, today)
	require.Len(t, got, 2)
	assert.Equal(t, "in-window trending", got[0].Name)
	assert.Equal(t, "too far out", got[1].Name)

	got = f.Upcoming(items, 29, today)
	require.Len(t, got, 1)
	assert.Equal(t, "in-window trending", got[0].Name)
}

func TestUpcoming_WindowIsInclusive(t *testing.T) {
	t.Parallel()

	f := newFilter(t)
	today := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	items := []release.Item{
		{Name: "today", ReleaseDate: "2024-06-01", IsTrending: true},
		{Name: "last day", ReleaseDate: "2024-06-08", IsTrending: true},
		{Name: "one past", ReleaseDate: "2024-06-09", IsTrending: true},
		{Name: "yesterday", ReleaseDate: "2024-05-31", IsTrending: true},
	}

	got := f.Upcoming(items, 7, today)
	require.Len(t, got, 2)
	assert.Equal(t, "today", got[0].Name)
	assert.Equal(t, "last day", got[1].Name)
}

func TestUpcoming_UnparseableDatesSilentlyExcluded(t *testing.T) {
	t.Parallel()

	f := newFilter(t)
	today := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	items := []release.Item{
		{Name: "tba", ReleaseDate: "TBA", IsTrending: true},
		{Name: "blank", IsTrending: true},
		{Name: "good", ReleaseDate: "June 3, 2024", IsTrending: true},
	}

	got := f.Upcoming(items, 7, today)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Name)
}

func TestUpcoming_EmptyInput(t *testing.T) {
	t.Parallel()

	f := newFilter(t)
	assert.Empty(t, f.Upcoming(nil, 7, time.Now()))
}
