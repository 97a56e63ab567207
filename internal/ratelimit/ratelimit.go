// Package ratelimit gates requests per client key within a fixed
// 60-second window before they reach the model gateway.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store is the window-record backend. Take atomically applies one
// request against the (scope, key) window: it starts a fresh window
// when none exists or the old one expired, increments below the limit,
// and leaves the record untouched when the limit is already reached.
//
// The in-memory store is per-process best-effort; the Postgres store
// shares quota across instances.
type Store interface {
	Take(ctx context.Context, scope, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// Limiter binds a Store to one endpoint's scope, limit and window.
type Limiter struct {
	store  Store
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store Store, scope string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// WithClock overrides the limiter's clock. Tests use this to step
// through windows without sleeping.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow checks and consumes one request for the given client key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.store.Take(ctx, l.scope, key, l.limit, l.window, l.now())
}

type record struct {
	count   int
	resetAt time.Time
}

// sweepEvery bounds how often stores scan for expired records. Clients
// control their own keys (spoofable X-Forwarded-For), so without
// eviction the record set grows with every distinct key ever seen.
const sweepEvery = 256

// MemoryStore keeps window records in a process-local map. State is
// lost on restart; acceptable for abuse mitigation, not strict quota.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	ops     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

func (s *MemoryStore) Take(_ context.Context, scope, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops++
	if s.ops%sweepEvery == 0 {
		for k, rec := range s.records {
			if now.After(rec.resetAt) {
				delete(s.records, k)
			}
		}
	}

	mapKey := scope + ":" + key
	rec, ok := s.records[mapKey]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(window)}
		s.records[mapKey] = rec
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: rec.resetAt}, nil
	}

	if rec.count >= limit {
		// denied requests do not mutate the window
		return Result{Allowed: false, Remaining: 0, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return Result{Allowed: true, Remaining: limit - rec.count, ResetAt: rec.resetAt}, nil
}

// Len reports the number of live records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
