// Package requestlog records one audit row per gateway request.
package requestlog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one gateway request's audit record.
type Entry struct {
	ID        uuid.UUID
	Endpoint  string
	ClientKey string
	Status    int
	ErrorCode string
	Latency   time.Duration
	CreatedAt time.Time
}

// Recorder persists entries. Recording is best-effort: failures are
// logged, never surfaced to the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Nop discards entries. Used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// PostgresRecorder writes entries to the request_log table.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

const recordTimeout = 5 * time.Second

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) {
	// detach from the request context so a client disconnect does not
	// lose the row
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO request_log (id, endpoint, client_key, status, error_code, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Endpoint, e.ClientKey, e.Status, e.ErrorCode, e.Latency.Milliseconds(), e.CreatedAt)
	if err != nil {
		log.Printf("failed to record request log entry: %v", err)
	}
}
