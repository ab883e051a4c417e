package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, size int) *Normalizer {
	t.Helper()
	n, err := New(size)
	require.NoError(t, err)
	return n
}

func TestParse_Formats(t *testing.T) {
	t.Parallel()

	n := mustNew(t, DefaultMemoSize)
	want := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
	}{
		{"LongMonth", "June 1, 2024"},
		{"AbbreviatedMonth", "Jun 1, 2024"},
		{"ISO", "2024-06-01"},
		{"USSlash", "06/01/2024"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := n.Parse(tc.raw)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_DayFirstSlashFallback(t *testing.T) {
	t.Parallel()

	n := mustNew(t, DefaultMemoSize)

	// 13/06/2024 cannot be MM/DD, so the DD/MM format catches it.
	got, ok := n.Parse("13/06/2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 13, 0, 0, 0, 0, time.UTC), got)

	// An ambiguous value resolves in format order: MM/DD wins.
	got, ok = n.Parse("03/04/2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestParse_Failures(t *testing.T) {
	t.Parallel()

	n := mustNew(t, DefaultMemoSize)

	for _, raw := range []string{"", "TBA", "Summer 2024", "2024/06/01"} {
		_, ok := n.Parse(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestParse_MemoizesNegativeResults(t *testing.T) {
	t.Parallel()

	n := mustNew(t, 4)
	_, ok := n.Parse("TBA")
	require.False(t, ok)
	_, ok = n.Parse("TBA")
	assert.False(t, ok)
	assert.Equal(t, 1, n.memo.Len())
}

func TestParse_MemoEviction(t *testing.T) {
	t.Parallel()

	n := mustNew(t, 2)
	n.Parse("2024-06-01")
	n.Parse("2024-06-02")
	n.Parse("2024-06-03")

	assert.Equal(t, 2, n.memo.Len())
	_, hit := n.memo.Get("2024-06-01")
	assert.False(t, hit, "oldest entry is evicted")

	// Evicted entries still parse correctly on re-lookup.
	got, ok := n.Parse("2024-06-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDay_TruncatesToMidnightUTC(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, time.June, 1, 23, 59, 58, 12345, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), Day(in))
}
