package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewPostgresStoreWithPool(mock, "snapshots")
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresStoreWithPool_RejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStoreWithPool(mock, "snapshots; DROP TABLE users")
	assert.Error(t, err)
}

func TestPostgresStore_SaveUpserts(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	snap := testSnapshot()
	doc, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(doc, snap.LastUpdated).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRoundTrip(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	want := testSnapshot()
	doc, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT document FROM snapshots").
		WillReturnRows(pgxmock.NewRows([]string{"document"}).AddRow(doc))

	got, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.TotalReleases, got.TotalReleases)
	assert.Equal(t, want.Releases, got.Releases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadNoRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT document FROM snapshots").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := s.Load(context.Background())
	require.NoError(t, err, "an empty table is absence, not failure")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
