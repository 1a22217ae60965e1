// Package tracker implements page-change tracking: the target/snapshot
// store, the scan pipeline, and the comparison rendering built on the
// textdiff core.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mchen/pagewatch/pkg/storage"
)

// Snapshot kinds. Each target keeps at most one row of each: "current" is
// the most recently stored capture, "previous" the capture from before the
// most recent detected change.
const (
	SnapCurrent  = "current"
	SnapPrevious = "previous"
)

// DefaultThreshold is applied to targets added without an explicit change
// distance threshold.
const DefaultThreshold = 100

const schema = `
CREATE TABLE IF NOT EXISTS targets (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	url             TEXT NOT NULL UNIQUE,
	threshold       INTEGER NOT NULL DEFAULT 100,
	color           TEXT NOT NULL DEFAULT '#ffff66',
	interval_secs   INTEGER NOT NULL DEFAULT 0,
	enabled         INTEGER NOT NULL DEFAULT 1,
	last_checked_at TIMESTAMP,
	last_changed_at TIMESTAMP,
	last_error      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id   INTEGER NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL CHECK (kind IN ('current', 'previous')),
	html        TEXT NOT NULL,
	text_len    INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL,
	captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (target_id, kind)
);

CREATE TABLE IF NOT EXISTS changes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id   INTEGER NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	distance    INTEGER NOT NULL,
	old_len     INTEGER NOT NULL,
	new_len     INTEGER NOT NULL,
	detected_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store provides persistence for tracked targets using the common storage
// layer.
type Store struct {
	db *storage.DB
}

// NewStore creates a new store with the given storage database.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tracker tables.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, schema)
}

// --- Targets ---

// Target represents a tracked page.
type Target struct {
	ID            int
	Name          string
	URL           string
	Threshold     int
	Color         string
	IntervalSecs  int
	Enabled       bool
	LastCheckedAt *time.Time
	LastChangedAt *time.Time
	LastError     string
	CreatedAt     time.Time
}

// Due reports whether the target's own scan interval has elapsed since the
// last check. Targets without an interval are due on every scan round.
func (t Target) Due(now time.Time) bool {
	if t.IntervalSecs <= 0 || t.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*t.LastCheckedAt) >= time.Duration(t.IntervalSecs)*time.Second
}

// AddTarget inserts a target, or updates name/threshold/color/interval when
// the URL is already tracked, and returns its id.
func (s *Store) AddTarget(ctx context.Context, t Target) (int, error) {
	if t.Threshold < 0 {
		return 0, fmt.Errorf("threshold must be >= 0, got %d", t.Threshold)
	}
	if t.Threshold == 0 {
		t.Threshold = DefaultThreshold
	}
	if t.Color == "" {
		t.Color = "#ffff66"
	}
	if t.Name == "" {
		t.Name = strings.TrimPrefix(strings.TrimPrefix(t.URL, "https://"), "http://")
	}

	// The conflict branch does not refresh last_insert_rowid, so the id is
	// resolved by URL rather than taken from the insert result.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO targets (name, url, threshold, color, interval_secs) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET name=excluded.name, threshold=excluded.threshold,
		   color=excluded.color, interval_secs=excluded.interval_secs`,
		t.Name, t.URL, t.Threshold, t.Color, t.IntervalSecs)
	if err != nil {
		return 0, fmt.Errorf("add target: %w", err)
	}

	var id int
	row := s.db.QueryRowContext(ctx, `SELECT id FROM targets WHERE url = ?`, t.URL)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const targetColumns = `id, name, url, threshold, color, interval_secs, enabled, last_checked_at, last_changed_at, last_error, created_at`

func scanTarget(row interface{ Scan(...any) error }) (Target, error) {
	var t Target
	err := row.Scan(&t.ID, &t.Name, &t.URL, &t.Threshold, &t.Color, &t.IntervalSecs,
		&t.Enabled, &t.LastCheckedAt, &t.LastChangedAt, &t.LastError, &t.CreatedAt)
	return t, err
}

// GetTarget returns a target by id, or nil when it does not exist.
func (s *Store) GetTarget(ctx context.Context, id int) (*Target, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTargets returns all targets ordered by name.
func (s *Store) ListTargets(ctx context.Context) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM targets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// ListEnabledTargets returns the targets the scanner should check.
func (s *Store) ListEnabledTargets(ctx context.Context) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// RemoveTarget deletes a target and, via cascade, its snapshots and changes.
func (s *Store) RemoveTarget(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	return err
}

// SetEnabled toggles scanning for a target.
func (s *Store) SetEnabled(ctx context.Context, id int, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE targets SET enabled = ? WHERE id = ?`, enabled, id)
	return err
}

// UpdateThreshold changes the sensitivity threshold for a target.
func (s *Store) UpdateThreshold(ctx context.Context, id, threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %d", threshold)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE targets SET threshold = ? WHERE id = ?`, threshold, id)
	return err
}

// SetLastError records the outcome of the most recent scan attempt. An
// empty message clears a previous failure.
func (s *Store) SetLastError(ctx context.Context, id int, msg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE targets SET last_error = ? WHERE id = ?`, msg, id)
	return err
}

// UpdateLastChecked stamps the last scan time for a target.
func (s *Store) UpdateLastChecked(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE targets SET last_checked_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// --- Snapshots ---

// Snapshot is one stored capture of a target.
type Snapshot struct {
	ID         int
	TargetID   int
	Kind       string
	HTML       string
	TextLen    int
	Checksum   string
	CapturedAt time.Time
}

// GetSnapshot returns the snapshot of the given kind, or nil when none is
// stored yet.
func (s *Store) GetSnapshot(ctx context.Context, targetID int, kind string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, target_id, kind, html, text_len, checksum, captured_at
		 FROM snapshots WHERE target_id = ? AND kind = ?`, targetID, kind)
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.TargetID, &snap.Kind, &snap.HTML, &snap.TextLen, &snap.Checksum, &snap.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveCurrentSnapshot upserts the current snapshot for a target without
// touching the previous one. Used for first captures and below-threshold
// drift.
func (s *Store) SaveCurrentSnapshot(ctx context.Context, targetID int, html string, textLen int, checksum string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (target_id, kind, html, text_len, checksum) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(target_id, kind) DO UPDATE SET
		   html = excluded.html, text_len = excluded.text_len, checksum = excluded.checksum,
		   captured_at = CURRENT_TIMESTAMP`,
		targetID, SnapCurrent, html, textLen, checksum)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RotateSnapshots promotes the current snapshot to previous and stores the
// new capture as current, atomically. Called when a change is detected so
// the pre-change markup stays available for visual comparison.
func (s *Store) RotateSnapshots(ctx context.Context, targetID int, html string, textLen int, checksum string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (target_id, kind, html, text_len, checksum, captured_at)
			 SELECT target_id, ?, html, text_len, checksum, captured_at FROM snapshots
			 WHERE target_id = ? AND kind = ?
			 ON CONFLICT(target_id, kind) DO UPDATE SET
			   html = excluded.html, text_len = excluded.text_len, checksum = excluded.checksum,
			   captured_at = excluded.captured_at`,
			SnapPrevious, targetID, SnapCurrent)
		if err != nil {
			return fmt.Errorf("rotate previous: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshots (target_id, kind, html, text_len, checksum) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(target_id, kind) DO UPDATE SET
			   html = excluded.html, text_len = excluded.text_len, checksum = excluded.checksum,
			   captured_at = CURRENT_TIMESTAMP`,
			targetID, SnapCurrent, html, textLen, checksum)
		if err != nil {
			return fmt.Errorf("rotate current: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE targets SET last_changed_at = CURRENT_TIMESTAMP WHERE id = ?`, targetID)
		return err
	})
}

// --- Changes ---

// Change records one detected change.
type Change struct {
	ID         int
	TargetID   int
	Distance   int
	OldLen     int
	NewLen     int
	DetectedAt time.Time
}

// SaveChange records a detected change.
func (s *Store) SaveChange(ctx context.Context, c Change) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO changes (target_id, distance, old_len, new_len) VALUES (?, ?, ?, ?)`,
		c.TargetID, c.Distance, c.OldLen, c.NewLen)
	if err != nil {
		return 0, fmt.Errorf("save change: %w", err)
	}
	id, _ := res.LastInsertId()
	return int(id), nil
}

// ChangeTimeline returns the change history for a target, newest first.
func (s *Store) ChangeTimeline(ctx context.Context, targetID int) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_id, distance, old_len, new_len, detected_at
		 FROM changes WHERE target_id = ? ORDER BY detected_at DESC, id DESC`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ID, &c.TargetID, &c.Distance, &c.OldLen, &c.NewLen, &c.DetectedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- Metadata ---

// GetMeta returns a metadata value, or "" when the key is absent.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}
