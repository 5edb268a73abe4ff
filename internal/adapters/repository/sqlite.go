package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/zeroflops/internal/domain/model"
	"github.com/okian/zeroflops/pkg/metrics"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lists (
	id      TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	body    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS tournaments (
	list_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	body    BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
	list_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	ts      INTEGER NOT NULL,
	score   REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS history_list_item_ts ON history (list_id, item_id, ts);
`

// SQLiteStore is a Store backed by a sqlite database. Lists and tournaments
// are kept as JSON snapshots next to their version; writes are conditional
// updates on that version.
type SQLiteStore struct {
	db *sql.DB

	updater
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create tables: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.start(ctx, o.metricsUpdateInterval, func() { s.updateMetrics(ctx) })
	return s, nil
}

// GetList implements Store.
func (s *SQLiteStore) GetList(ctx context.Context, id string) (model.List, error) {
	defer observe("get_list", time.Now())

	var l model.List
	version, err := s.load(ctx, `SELECT version, body FROM lists WHERE id = ?`, id, &l)
	if err != nil {
		return model.List{}, fmt.Errorf("list %q: %w", id, err)
	}
	l.Version = version
	return l, nil
}

// SaveList implements Store.
func (s *SQLiteStore) SaveList(ctx context.Context, list model.List, expectedVersion int64) (int64, error) {
	defer observe("save_list", time.Now())
	if err := list.Validate(); err != nil {
		return 0, err
	}

	list.Version = expectedVersion + 1
	v, err := s.save(ctx, "lists", "id", list.ID, list, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("list %q at version %d: %w", list.ID, expectedVersion, err)
	}
	return v, nil
}

// GetTournament implements Store.
func (s *SQLiteStore) GetTournament(ctx context.Context, listID string) (model.Tournament, error) {
	defer observe("get_tournament", time.Now())

	var t model.Tournament
	version, err := s.load(ctx, `SELECT version, body FROM tournaments WHERE list_id = ?`, listID, &t)
	if err != nil {
		return model.Tournament{}, fmt.Errorf("tournament for list %q: %w", listID, err)
	}
	t.Version = version
	return t, nil
}

// SaveTournament implements Store.
func (s *SQLiteStore) SaveTournament(ctx context.Context, t model.Tournament, expectedVersion int64) (int64, error) {
	defer observe("save_tournament", time.Now())

	t.Version = expectedVersion + 1
	v, err := s.save(ctx, "tournaments", "list_id", t.ListID, t, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("tournament for list %q at version %d: %w", t.ListID, expectedVersion, err)
	}
	return v, nil
}

// Commit implements Store. The list, tournament and history rows share one
// transaction.
func (s *SQLiteStore) Commit(ctx context.Context, w Write) (Versions, error) {
	defer observe("commit", time.Now())
	if err := w.validate(); err != nil {
		return Versions{}, err
	}

	list, t := w.List, w.Tournament
	list.Version = w.ListVersion + 1
	t.Version = w.TournamentVersion + 1

	var v Versions
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if v.List, err = saveSnapshot(ctx, tx, "lists", "id", list.ID, list, w.ListVersion); err != nil {
			return fmt.Errorf("list %q at version %d: %w", list.ID, w.ListVersion, err)
		}
		if v.Tournament, err = saveSnapshot(ctx, tx, "tournaments", "list_id", t.ListID, t, w.TournamentVersion); err != nil {
			return fmt.Errorf("tournament for list %q at version %d: %w", t.ListID, w.TournamentVersion, err)
		}
		return insertHistory(ctx, tx, w.History)
	})
	if err != nil {
		return Versions{}, err
	}
	return v, nil
}

// AppendHistory implements Store.
func (s *SQLiteStore) AppendHistory(ctx context.Context, points ...model.HistoryPoint) error {
	defer observe("append_history", time.Now())
	if len(points) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertHistory(ctx, tx, points)
	})
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, listID, itemID string) ([]model.HistoryPoint, error) {
	defer observe("history", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, score FROM history WHERE list_id = ? AND item_id = ? ORDER BY ts, rowid`, listID, itemID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query history for %q in list %q: %w", itemID, listID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.HistoryPoint
	for rows.Next() {
		var ts int64
		p := model.HistoryPoint{ListID: listID, ItemID: itemID}
		if err := rows.Scan(&ts, &p.Score); err != nil {
			return nil, fmt.Errorf("sqlite: scan history: %w", err)
		}
		p.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read history: %w", err)
	}
	return out, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	s.stop()
	return s.db.Close()
}

func (s *SQLiteStore) load(ctx context.Context, query, key string, into any) (int64, error) {
	var (
		version int64
		body    []byte
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: load: %w", err)
	}
	if err := json.Unmarshal(body, into); err != nil {
		return 0, fmt.Errorf("sqlite: decode snapshot: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) save(ctx context.Context, table, column, key string, snapshot any, expected int64) (int64, error) {
	var next int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		next, err = saveSnapshot(ctx, tx, table, column, key, snapshot, expected)
		return err
	})
	return next, err
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// saveSnapshot writes a snapshot under the optimistic version rule. table and
// column are package constants, never caller input.
func saveSnapshot(ctx context.Context, tx *sql.Tx, table, column, key string, snapshot any, expected int64) (int64, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("sqlite: encode snapshot: %w", err)
	}

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE `+column+` = ?`, key).Scan(&current)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sqlite: read version: %w", err)
	}
	if err := checkVersion(exists, current, expected); err != nil {
		return 0, err
	}

	next := expected + 1
	if exists {
		res, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET version = ?, body = ? WHERE `+column+` = ? AND version = ?`,
			next, body, key, expected)
		if err != nil {
			return 0, fmt.Errorf("sqlite: update: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return 0, ErrVersionConflict
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (`+column+`, version, body) VALUES (?, ?, ?)`,
			key, next, body); err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	return next, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, points []model.HistoryPoint) error {
	if len(points) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO history (list_id, item_id, ts, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare history insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.ListID, p.ItemID, p.Timestamp.UnixNano(), p.Score); err != nil {
			return fmt.Errorf("sqlite: insert history for %q: %w", p.ItemID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) updateMetrics(ctx context.Context) {
	for kind, table := range map[string]string{kindLists: "lists", kindTournaments: "tournaments", kindHistory: "history"} {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err == nil {
			metrics.UpdateStoreRecords(kind, n)
		}
	}
}
