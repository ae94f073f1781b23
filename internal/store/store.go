package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS views (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip  TEXT NOT NULL,
	user_agent TEXT,
	path       TEXT NOT NULL,
	viewed_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_views_viewed_at ON views (viewed_at);
CREATE INDEX IF NOT EXISTS idx_views_path ON views (path);
`

// Store persists dashboard view events in SQLite. Only hashed client
// addresses are ever written.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// View is one recorded page or chart request.
type View struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// PathCount is a view total for one path.
type PathCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// Stats summarises recorded views.
type Stats struct {
	TotalViews     int64       `json:"total_views"`
	UniqueVisitors int64       `json:"unique_visitors"`
	ViewsToday     int64       `json:"views_today"`
	ViewsThisWeek  int64       `json:"views_this_week"`
	TopPaths       []PathCount `json:"top_paths"`
	RecentViews    []View      `json:"recent_views,omitempty"`
}

// New opens (creating if needed) the database at path.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordView inserts one view, stamped with the current time.
func (s *Store) RecordView(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO views (hashed_ip, user_agent, path, viewed_at) VALUES (?, ?, ?, ?)`,
		hashedIP, userAgent, path, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// Cleanup deletes views older than retention and reports how many went.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE viewed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup views: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup views: %w", err)
	}
	return n, nil
}

// Stats aggregates the recorded views. topN bounds TopPaths and recent
// bounds RecentViews; recent <= 0 lists none.
func (s *Store) Stats(ctx context.Context, topN, recent int) (*Stats, error) {
	now := s.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{TopPaths: []PathCount{}, RecentViews: []View{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT hashed_ip),
			COALESCE(SUM(CASE WHEN viewed_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN viewed_at >= ? THEN 1 ELSE 0 END), 0)
		FROM views
	`, startOfDay, weekAgo).Scan(&stats.TotalViews, &stats.UniqueVisitors, &stats.ViewsToday, &stats.ViewsThisWeek)
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS n
		FROM views
		GROUP BY path
		ORDER BY n DESC, path ASC
		LIMIT ?
	`, topN)
	if err != nil {
		return nil, fmt.Errorf("top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Views); err != nil {
			return nil, fmt.Errorf("scan top paths: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top paths: %w", err)
	}
	if recent <= 0 {
		return stats, nil
	}

	recentRows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), path, viewed_at
		FROM views
		ORDER BY viewed_at DESC, id DESC
		LIMIT ?
	`, recent)
	if err != nil {
		return nil, fmt.Errorf("recent views: %w", err)
	}
	defer recentRows.Close()
	for recentRows.Next() {
		var v View
		var ts int64
		if err := recentRows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan recent views: %w", err)
		}
		v.ViewedAt = time.Unix(ts, 0).UTC()
		stats.RecentViews = append(stats.RecentViews, v)
	}
	if err := recentRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent views: %w", err)
	}
	return stats, nil
}
