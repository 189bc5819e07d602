// ABOUTME: SQLite-backed cache decorator for a catalog
// ABOUTME: Stores audio features and analysis bodies by track id; every other call passes through

// Package cache wraps a catalog.Catalog and persists audio features and analysis
// in SQLite so repeated runs over the same playlist skip the slow fetches.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"playlist-simmer/catalog"
)

// Cache implements catalog.Catalog over an upstream catalog
type Cache struct {
	catalog.Catalog

	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

var _ catalog.Catalog = (*Cache)(nil)

// Open creates the cache database at path (":memory:" works) and runs the schema migration
func Open(path string, upstream catalog.Catalog) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// One connection serializes writers from the construction worker pool
	// and keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	c := &Cache{Catalog: upstream, db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return c, nil
}

// Close closes the database; the upstream catalog is left alone
func (c *Cache) Close() error {
	return c.db.Close()
}

// Stats returns cache hits and misses since Open
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audio_features (
		id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS audio_analysis (
		id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := c.db.Exec(query)
	return err
}

// GetAudioFeatures serves cached records and fetches all misses in one upstream call.
// A missing upstream record is cached too, as JSON null.
func (c *Cache) GetAudioFeatures(ctx context.Context, ids []string) ([]*catalog.AudioFeatures, error) {
	out := make([]*catalog.AudioFeatures, len(ids))

	var missIDs []string
	var missIdx []int

	for i, id := range ids {
		var feat *catalog.AudioFeatures
		found, err := c.load(ctx, "audio_features", id, &feat)
		if err != nil {
			return nil, err
		}
		if found {
			out[i] = feat
			continue
		}
		missIDs = append(missIDs, id)
		missIdx = append(missIdx, i)
	}

	c.hits.Add(int64(len(ids) - len(missIDs)))
	c.misses.Add(int64(len(missIDs)))

	if len(missIDs) == 0 {
		return out, nil
	}

	fetched, err := c.Catalog.GetAudioFeatures(ctx, missIDs)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missIDs) {
		return nil, fmt.Errorf("cache: upstream returned %d features for %d ids", len(fetched), len(missIDs))
	}

	for j, feat := range fetched {
		if err := c.store(ctx, "audio_features", missIDs[j], feat); err != nil {
			return nil, err
		}
		out[missIdx[j]] = feat
	}

	return out, nil
}

// GetAudioAnalysis serves a cached analysis or fetches and stores it
func (c *Cache) GetAudioAnalysis(ctx context.Context, trackID string) (*catalog.AudioAnalysis, error) {
	var analysis catalog.AudioAnalysis
	found, err := c.load(ctx, "audio_analysis", trackID, &analysis)
	if err != nil {
		return nil, err
	}
	if found {
		c.hits.Add(1)
		return &analysis, nil
	}
	c.misses.Add(1)

	fetched, err := c.Catalog.GetAudioAnalysis(ctx, trackID)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, "audio_analysis", trackID, fetched); err != nil {
		return nil, err
	}

	return fetched, nil
}

// load decodes the cached body for id into v. table is one of the two fixed table names.
func (c *Cache) load(ctx context.Context, table, id string, v any) (bool, error) {
	var body string
	row := c.db.QueryRowContext(ctx, "SELECT body FROM "+table+" WHERE id = ?", id)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("cache: load %s %s: %w", table, id, err)
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return false, fmt.Errorf("cache: decode %s %s: %w", table, id, err)
	}

	return true, nil
}

func (c *Cache) store(ctx context.Context, table, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s %s: %w", table, id, err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO "+table+" (id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body, fetched_at = CURRENT_TIMESTAMP",
		id, string(body))
	if err != nil {
		return fmt.Errorf("cache: store %s %s: %w", table, id, err)
	}

	return nil
}
