package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leadgate/leadgate/internal/core"
)

// pruneThreshold bounds the shared window table. Expired rows are
// swept only once the table grows past this size.
const pruneThreshold = 10000

// IncrementWindow records one request for a client key and returns the
// state after the increment. Implements engine.Store so the limiter
// can run against a shared counter instead of the per-instance memory
// table. The restart-or-increment choice happens inside one UPSERT, so
// concurrent requests for the same key never lose an update, even
// across instances.
func (s *Store) IncrementWindow(ctx context.Context, key string, now time.Time, window time.Duration) (*core.WindowState, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("client key is required")
	}

	nowUnix := now.UTC().Unix()
	resetUnix := now.Add(window).UTC().Unix()

	var (
		requestCount int
		resetAt      int64
	)

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO rate_limits (client_key, request_count, reset_at)
		VALUES (?, 1, ?)
		ON CONFLICT(client_key) DO UPDATE SET
			request_count = CASE WHEN ? > rate_limits.reset_at THEN 1 ELSE rate_limits.request_count + 1 END,
			reset_at = CASE WHEN ? > rate_limits.reset_at THEN excluded.reset_at ELSE rate_limits.reset_at END
		RETURNING request_count, reset_at
	`, key, resetUnix, nowUnix, nowUnix)

	if err := row.Scan(&requestCount, &resetAt); err != nil {
		return nil, fmt.Errorf("increment rate limit window: %w", err)
	}

	// Opportunistic sweep: a failed count or prune never fails the
	// increment.
	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rate_limits`).Scan(&total); err == nil && total > pruneThreshold {
		_, _ = s.PruneExpiredWindows(ctx)
	}

	return &core.WindowState{
		Count:   requestCount,
		ResetAt: time.Unix(resetAt, 0).UTC(),
	}, nil
}

// PruneExpiredWindows deletes windows whose reset time has passed.
func (s *Store) PruneExpiredWindows(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM rate_limits WHERE reset_at < ?
	`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune rate limit windows: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rate limit windows: %w", err)
	}
	return affected, nil
}
