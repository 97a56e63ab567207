package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore shares window records across gateway instances through
// a rate_limits table, so the limit holds in multi-instance
// deployments where per-process maps each count independently.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu  sync.Mutex
	ops int
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const takeQueryTimeout = 5 * time.Second

func (s *PostgresStore) Take(ctx context.Context, scope, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, takeQueryTimeout)
	defer cancel()

	s.mu.Lock()
	s.ops++
	sweep := s.ops%sweepEvery == 0
	s.mu.Unlock()
	if sweep {
		// best effort: dead rows only affect table size, not counting
		if _, err := s.pool.Exec(ctx, `DELETE FROM rate_limits WHERE reset_at < $1`, now); err != nil {
			log.Printf("WARNING: rate limit sweep failed: %v", err)
		}
	}

	resetAt := now.Add(window)

	// Fast path: first request from this key starts a window.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rate_limits (scope, client_key, count, reset_at)
		VALUES ($1, $2, 1, $3)
	`, scope, key, resetAt)
	if err == nil {
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: resetAt}, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return Result{}, fmt.Errorf("rate limit insert: %w", err)
	}

	// A record exists: lock it and apply the window rules.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	var storedReset time.Time
	err = tx.QueryRow(ctx, `
		SELECT count, reset_at FROM rate_limits
		WHERE scope = $1 AND client_key = $2
		FOR UPDATE
	`, scope, key).Scan(&count, &storedReset)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit select: %w", err)
	}

	res := Result{ResetAt: storedReset}
	switch {
	case now.After(storedReset):
		count = 1
		res = Result{Allowed: true, Remaining: limit - 1, ResetAt: resetAt}
		_, err = tx.Exec(ctx, `
			UPDATE rate_limits SET count = $3, reset_at = $4
			WHERE scope = $1 AND client_key = $2
		`, scope, key, count, resetAt)
	case count >= limit:
		res.Allowed = false
		res.Remaining = 0
	default:
		count++
		res.Allowed = true
		res.Remaining = limit - count
		_, err = tx.Exec(ctx, `
			UPDATE rate_limits SET count = $3
			WHERE scope = $1 AND client_key = $2
		`, scope, key, count)
	}
	if err != nil {
		return Result{}, fmt.Errorf("rate limit update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit commit: %w", err)
	}
	return res, nil
}
