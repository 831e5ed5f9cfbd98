// Package stats persists search statistics and global site popularity in SQLite
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/igusev/siterank/internal/model"
)

// popularityChunk bounds the rows per INSERT to stay below SQLite's variable limit
const popularityChunk = 200

const schema = `
CREATE TABLE IF NOT EXISTS search_queries (
	term       TEXT    NOT NULL,
	network    TEXT    NOT NULL,
	count      INTEGER NOT NULL DEFAULT 1,
	first_seen TEXT    NOT NULL,
	last_seen  TEXT    NOT NULL,
	PRIMARY KEY (term, network)
);
CREATE TABLE IF NOT EXISTS search_clicks (
	domain    TEXT    NOT NULL,
	url       TEXT    NOT NULL,
	term      TEXT    NOT NULL,
	count     INTEGER NOT NULL DEFAULT 1,
	last_seen TEXT    NOT NULL,
	PRIMARY KEY (domain, url, term)
);
CREATE TABLE IF NOT EXISTS site_popularity (
	domain     TEXT PRIMARY KEY,
	score      REAL NOT NULL,
	updated_at TEXT NOT NULL
);`

// QueryCount is an aggregated search term
type QueryCount struct {
	Term     string    `json:"term"`
	Network  string    `json:"network"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// ClickCount is an aggregated result click
type ClickCount struct {
	Domain   string    `json:"domain"`
	URL      string    `json:"url"`
	Term     string    `json:"term"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// Store is the SQLite-backed statistics store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the statistics database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create stats directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // Ignore close error on error path
		return nil, fmt.Errorf("failed to migrate stats database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// AddOrIncrementQuery counts one search for term on a network
func (s *Store) AddOrIncrementQuery(ctx context.Context, term, network string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	now := s.timestamp()

	query, args, err := sq.Insert("search_queries").
		Columns("term", "network", "count", "first_seen", "last_seen").
		Values(term, network, 1, now, now).
		Suffix("ON CONFLICT (term, network) DO UPDATE SET count = count + 1, last_seen = excluded.last_seen").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert query: %w", err)
	}
	return nil
}

// AddOrIncrementClick counts one click on url of domain after searching term
func (s *Store) AddOrIncrementClick(ctx context.Context, domain, url, term string) error {
	query, args, err := sq.Insert("search_clicks").
		Columns("domain", "url", "term", "count", "last_seen").
		Values(domain, url, strings.TrimSpace(term), 1, s.timestamp()).
		Suffix("ON CONFLICT (domain, url, term) DO UPDATE SET count = count + 1, last_seen = excluded.last_seen").
		ToSql()
	if err != nil {
		return fmt.Errorf("build click upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert click: %w", err)
	}
	return nil
}

// PopularityScores returns the stored global popularity of the given sites
// Unknown sites are absent from the map.
func (s *Store) PopularityScores(ctx context.Context, siteIDs []string) (map[string]float64, error) {
	scores := make(map[string]float64, len(siteIDs))
	if len(siteIDs) == 0 {
		return scores, nil
	}

	query, args, err := sq.Select("domain", "score").
		From("site_popularity").
		Where(sq.Eq{"domain": siteIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build popularity query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query popularity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var domain string
		var score float64
		if err := rows.Scan(&domain, &score); err != nil {
			return nil, fmt.Errorf("scan popularity: %w", err)
		}
		scores[domain] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return scores, nil
}

// SavePopularity replaces all stored global popularity scores
func (s *Store) SavePopularity(ctx context.Context, scores []model.PopularityScore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin popularity tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op after commit
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM site_popularity"); err != nil {
		return fmt.Errorf("clear popularity: %w", err)
	}

	now := s.timestamp()
	for begin := 0; begin < len(scores); begin += popularityChunk {
		end := begin + popularityChunk
		if end > len(scores) {
			end = len(scores)
		}

		insert := sq.Insert("site_popularity").Columns("domain", "score", "updated_at")
		for _, score := range scores[begin:end] {
			insert = insert.Values(score.SiteID, score.Score, now)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build popularity insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert popularity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit popularity: %w", err)
	}
	return nil
}

// TopQueries returns the most frequent search terms, optionally for one network
func (s *Store) TopQueries(ctx context.Context, network string, limit int) ([]QueryCount, error) {
	builder := sq.Select("term", "network", "count", "last_seen").
		From("search_queries").
		OrderBy("count DESC", "last_seen DESC", "term ASC")
	if network != "" {
		builder = builder.Where(sq.Eq{"network": network})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top queries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top queries: %w", err)
	}
	defer rows.Close()

	var result []QueryCount
	for rows.Next() {
		var qc QueryCount
		var lastSeen string
		if err := rows.Scan(&qc.Term, &qc.Network, &qc.Count, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan query count: %w", err)
		}
		qc.LastSeen, _ = time.Parse(time.RFC3339, lastSeen) //nolint:errcheck // Written by this store
		result = append(result, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// TopClicks returns the most clicked results
func (s *Store) TopClicks(ctx context.Context, limit int) ([]ClickCount, error) {
	builder := sq.Select("domain", "url", "term", "count", "last_seen").
		From("search_clicks").
		OrderBy("count DESC", "last_seen DESC", "url ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top clicks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top clicks: %w", err)
	}
	defer rows.Close()

	var result []ClickCount
	for rows.Next() {
		var cc ClickCount
		var lastSeen string
		if err := rows.Scan(&cc.Domain, &cc.URL, &cc.Term, &cc.Count, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan click count: %w", err)
		}
		cc.LastSeen, _ = time.Parse(time.RFC3339, lastSeen) //nolint:errcheck // Written by this store
		result = append(result, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}
