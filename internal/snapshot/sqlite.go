package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"flowvault/internal/flow"
	logx "flowvault/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
	max int
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrStorageUnavailable)
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, max: cfg.maxSnapshots()}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts the snapshot and evicts the oldest overflow entries in
// one transaction, so a crash mid-save never leaves the window over
// its bound.
func (s *sqliteStore) Save(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if s == nil || s.db == nil {
		return snap, ErrStorageUnavailable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	defer func() { _ = tx.Rollback() }()

	var newest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM snapshots`).Scan(&newest); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if newest.Valid && snap.Timestamp <= newest.Int64 {
		snap = snap.restamp(newest.Int64 + 1)
	}

	body, err := json.Marshal(snap.Flow)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots(id, timestamp, date_str, flow) VALUES(?,?,?,?)`,
		snap.ID, snap.Timestamp, snap.DateStr, string(body),
	); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if over := count - s.max; over > 0 {
		// The new row has the strictly newest timestamp, so ascending
		// order can never select it for eviction.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM snapshots WHERE id IN
			 (SELECT id FROM snapshots ORDER BY timestamp ASC LIMIT ?)`,
			over,
		); err != nil {
			return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
		}
		s.log.Debug("evicted oldest snapshots", logx.Int("evicted", over), logx.Int("kept", s.max))
	}

	if err := tx.Commit(); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	return snap, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, ErrStorageUnavailable
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, date_str, flow FROM snapshots ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var body string
		if err := rows.Scan(&snap.ID, &snap.Timestamp, &snap.DateStr, &body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		var f flow.Flow
		if err := json.Unmarshal([]byte(body), &f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		snap.Flow = f
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return out, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrStorageUnavailable
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return n, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStorageUnavailable
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}
	return nil
}
