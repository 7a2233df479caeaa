// Package store keeps the admin telemetry: hashed visitor records and
// images whose candidate extensions were all exhausted.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Visitor struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// AssetFailure is a reference that could not be displayed with any candidate.
type AssetFailure struct {
	Reference string    `json:"reference"`
	Tried     []string  `json:"tried"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
}

type Stats struct {
	TotalVisitors    int64          `json:"total_visitors"`
	UniqueVisitors   int64          `json:"unique_visitors"`
	VisitorsToday    int64          `json:"visitors_today"`
	VisitorsThisWeek int64          `json:"visitors_this_week"`
	FailingAssets    int64          `json:"failing_assets"`
	TopFailures      []AssetFailure `json:"top_failures"`
	RecentVisitors   []Visitor      `json:"recent_visitors"`
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors(timestamp);
CREATE TABLE IF NOT EXISTS asset_failures (
	reference TEXT PRIMARY KEY,
	tried TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 1,
	last_seen DATETIME NOT NULL
);`

// Open opens (creating if needed) the database at path. ":memory:" works
// for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TrackVisitor records one page view. The IP must already be hashed.
func (s *Store) TrackVisitor(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, at.UTC())
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// RecordTerminalFailure counts a reference whose candidates were exhausted.
func (s *Store) RecordTerminalFailure(ctx context.Context, reference string, tried []string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_failures (reference, tried, count, last_seen)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(reference) DO UPDATE SET
			tried = excluded.tried,
			count = asset_failures.count + 1,
			last_seen = excluded.last_seen
	`, reference, strings.Join(tried, ","), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record asset failure: %w", err)
	}
	return nil
}

// ClearFailure forgets a reference, e.g. after the missing file was added.
func (s *Store) ClearFailure(ctx context.Context, reference string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM asset_failures WHERE reference = ?`, reference)
	if err != nil {
		return false, fmt.Errorf("clear asset failure: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Failures lists failing references, most frequent first.
func (s *Store) Failures(ctx context.Context, limit int) ([]AssetFailure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reference, tried, count, last_seen
		FROM asset_failures
		ORDER BY count DESC, last_seen DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query asset failures: %w", err)
	}
	defer rows.Close()

	var out []AssetFailure
	for rows.Next() {
		var f AssetFailure
		var tried string
		if err := rows.Scan(&f.Reference, &tried, &f.Count, &f.LastSeen); err != nil {
			return nil, fmt.Errorf("scan asset failure: %w", err)
		}
		if tried != "" {
			f.Tried = strings.Split(tried, ",")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecentVisitors lists the latest visits.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query visitors: %w", err)
	}
	defer rows.Close()

	var out []Visitor
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Stats aggregates the dashboard numbers relative to now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{}
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	queries := []struct {
		query string
		args  []any
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM visitors`, nil, &stats.TotalVisitors},
		{`SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil, &stats.UniqueVisitors},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{dayStart}, &stats.VisitorsToday},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.AddDate(0, 0, -7)}, &stats.VisitorsThisWeek},
		{`SELECT COUNT(*) FROM asset_failures`, nil, &stats.FailingAssets},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	var err error
	if stats.TopFailures, err = s.Failures(ctx, 10); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

// CleanupVisitors deletes visits older than the cutoff and reports how many
// rows went away.
func (s *Store) CleanupVisitors(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return res.RowsAffected()
}
