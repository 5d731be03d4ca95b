package utils

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"
)

const chunkCacheSchema = `
create table if not exists chunk_segments (
	cache_key  text primary key,
	segments   text not null,
	created_at timestamp not null default current_timestamp
)`

// ChunkCache persists the segments of transcribed chunks in SQLite.
type ChunkCache struct {
	db *sql.DB
}

// OpenChunkCache opens (creating if needed) the cache database at path.
func OpenChunkCache(path string) (*ChunkCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open chunk cache: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(chunkCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunk cache schema: %w", err)
	}
	return &ChunkCache{db: db}, nil
}

func (c *ChunkCache) Close() error {
	return c.db.Close()
}

func (c *ChunkCache) Lookup(ctx context.Context, key string) ([]Segment, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, "select segments from chunk_segments where cache_key = $1", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup chunk %s: %w", key, err)
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, false, fmt.Errorf("decode cached chunk %s: %w", key, err)
	}
	return segments, true, nil
}

func (c *ChunkCache) Store(ctx context.Context, key string, segments []Segment) error {
	if segments == nil {
		segments = []Segment{}
	}
	raw, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("encode chunk %s: %w", key, err)
	}
	_, err = c.db.ExecContext(ctx,
		"insert into chunk_segments (cache_key, segments) values ($1, $2) on conflict (cache_key) do update set segments = excluded.segments",
		key, string(raw))
	if err != nil {
		return fmt.Errorf("store chunk %s: %w", key, err)
	}
	return nil
}

// FingerprintFile returns the hex blake3 digest of the file at path.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChunkCacheKey identifies one chunk of one source under one model configuration.
func ChunkCacheKey(fingerprint string, rng ChunkRange, model, language string) string {
	h := blake3.New(16, nil)
	for _, part := range []string{
		fingerprint,
		strconv.FormatFloat(rng.Start, 'f', 3, 64),
		strconv.FormatFloat(rng.End, 'f', 3, 64),
		model,
		language,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
