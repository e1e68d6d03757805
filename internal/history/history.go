// Package history keeps a local log of pages the engine has visited.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/v0xg/shadow/internal/crawler"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// DefaultLimit is how many entries Recent returns when asked for none.
const DefaultLimit = 20

// Entry is one recorded navigation.
type Entry struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	PageType  string    `json:"page_type"`
	VisitedAt time.Time `json:"visited_at"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS visits(
	  id         INTEGER PRIMARY KEY,
	  visited_ms INTEGER NOT NULL,
	  url        TEXT    NOT NULL,
	  title      TEXT    NOT NULL,
	  page_type  TEXT    NOT NULL CHECK (page_type IN ('ecommerce','informational','general'))
	);
	CREATE INDEX IF NOT EXISTS idx_visits_ts  ON visits(visited_ms);
	CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
	`)
	if err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

// Record stores a navigation result.
func (s *Store) Record(ctx context.Context, state *crawler.PageState) error {
	if state.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	pageType := state.PageType
	if pageType == "" {
		pageType = crawler.PageGeneral
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits(visited_ms, url, title, page_type) VALUES(?,?,?,?)`,
		s.now().UnixMilli(), state.URL, state.Title, string(pageType))
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// Recent returns up to limit visits, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, visited_ms, url, title, page_type FROM visits ORDER BY visited_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &ms, &e.URL, &e.Title, &e.PageType); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		e.VisitedAt = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
