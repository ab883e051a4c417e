package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solewatch/solewatch/internal/release"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool for the snapshot row.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// snapshotPool is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type snapshotPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps the latest snapshot as a single upserted row holding the
// full JSON document.
//
// Assumed schema:
//
//	CREATE TABLE snapshots (
//	    id INT PRIMARY KEY,
//	    document JSONB NOT NULL,
//	    fetched_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool  snapshotPool
	table string
}

// NewPostgresStore creates a Postgres-backed snapshot store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool snapshotPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts the snapshot document, replacing the previous one.
func (s *PostgresStore) Save(ctx context.Context, snap release.Snapshot) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("snapshot store is not configured")
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, document, fetched_at)
VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, fetched_at = EXCLUDED.fetched_at`,
		s.table)
	if _, err := s.pool.Exec(ctx, query, doc, snap.LastUpdated); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot row. No row reports ok=false with no error.
func (s *PostgresStore) Load(ctx context.Context) (release.Snapshot, bool, error) {
	if s == nil || s.pool == nil {
		return release.Snapshot{}, false, fmt.Errorf("snapshot store is not configured")
	}
	query := fmt.Sprintf(`SELECT document FROM %s WHERE id = 1`, s.table)

	var doc []byte
	if err := s.pool.QueryRow(ctx, query).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return release.Snapshot{}, false, nil
		}
		return release.Snapshot{}, false, fmt.Errorf("select snapshot: %w", err)
	}

	var snap release.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return release.Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}
