package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthController serves GET /healthz.
type HealthController struct {
	pool *pgxpool.Pool // nil when no database is configured
}

func NewHealthController(pool *pgxpool.Pool) *HealthController {
	return &HealthController{pool: pool}
}

func (c *HealthController) GetHealth(w http.ResponseWriter, r *http.Request) {
	if c.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := c.pool.Ping(ctx); err != nil {
			respondValue(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondValue(w, http.StatusOK, map[string]string{"status": "ok"})
}
