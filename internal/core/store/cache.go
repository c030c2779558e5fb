package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leadgate/leadgate/internal/core"
)

// GetCachedResponse returns the cache entry for a request key under the
// given generation, or nil on miss.
func (s *Store) GetCachedResponse(ctx context.Context, key, generation string) (*core.CachedResponse, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var (
		statusCode  int
		headersJSON string
		body        []byte
		fetchedAt   int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT status_code, headers, body, fetched_at
		FROM response_cache
		WHERE request_key = ? AND generation = ?
	`, key, generation)

	if err := row.Scan(&statusCode, &headersJSON, &body, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	header := http.Header{}
	if headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &header); err != nil {
			return nil, fmt.Errorf("decode cached headers: %w", err)
		}
	}

	return &core.CachedResponse{
		Key:        key,
		Generation: generation,
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
		FetchedAt:  time.Unix(fetchedAt, 0).UTC(),
	}, nil
}

// PutCachedResponse stores or overwrites a cache entry. Writes are
// last-write-wins; racing with reads is harmless.
func (s *Store) PutCachedResponse(ctx context.Context, entry *core.CachedResponse) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if entry == nil {
		return errors.New("cache entry is required")
	}
	key := strings.TrimSpace(entry.Key)
	if key == "" {
		return errors.New("cache key is required")
	}

	headersJSON, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode cached headers: %w", err)
	}

	fetched := entry.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO response_cache (request_key, generation, status_code, headers, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_key, generation) DO UPDATE SET
			status_code = excluded.status_code,
			headers = excluded.headers,
			body = excluded.body,
			fetched_at = excluded.fetched_at
	`, key, entry.Generation, entry.StatusCode, string(headersJSON), entry.Body, fetched.Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	return nil
}

// DeleteCachedResponse evicts a single entry.
func (s *Store) DeleteCachedResponse(ctx context.Context, key, generation string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM response_cache WHERE request_key = ? AND generation = ?
	`, strings.TrimSpace(key), generation)
	if err != nil {
		return fmt.Errorf("evict cached response: %w", err)
	}
	return nil
}

// PurgeOtherGenerations deletes every entry whose generation differs
// from current. Run at activation so a version rollover drops stale
// caches in one sweep.
func (s *Store) PurgeOtherGenerations(ctx context.Context, current string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM response_cache WHERE generation != ?
	`, current)
	if err != nil {
		return 0, fmt.Errorf("purge stale cache generations: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge stale cache generations: %w", err)
	}
	return affected, nil
}
