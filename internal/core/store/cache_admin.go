package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CacheEntrySummary describes one cache row without its body.
type CacheEntrySummary struct {
	Key        string    `json:"key"`
	Generation string    `json:"generation"`
	StatusCode int       `json:"status_code"`
	Size       int64     `json:"size"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// ListCachedResponses returns summaries of all cache entries, newest first.
func (s *Store) ListCachedResponses(ctx context.Context) ([]CacheEntrySummary, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT request_key, generation, status_code, LENGTH(body), fetched_at
		FROM response_cache
		ORDER BY fetched_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cached responses: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []CacheEntrySummary{}
	for rows.Next() {
		var (
			entry     CacheEntrySummary
			fetchedAt int64
		)
		if err := rows.Scan(&entry.Key, &entry.Generation, &entry.StatusCode, &entry.Size, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan cached responses: %w", err)
		}
		entry.FetchedAt = time.Unix(fetchedAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cached responses: %w", err)
	}

	return entries, nil
}

// PurgeCache deletes every cache entry and reports how many were removed.
func (s *Store) PurgeCache(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache`)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return affected, nil
}
