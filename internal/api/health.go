package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process liveness and dependency readiness. Redis
// going down degrades the service (slot locks and booking flows stop) but
// Postgres going down makes it unusable, so only the latter fails readiness.
type HealthHandler struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{pool: pool, redis: rdb, env: env, version: version}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version, Env: h.env})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{"postgres": "ok", "redis": "ok"}
	status := "ok"

	if err := h.ping(ctx, func(c context.Context) error { return h.pool.Ping(c) }); err != nil {
		deps["postgres"] = "down"
		status = "error"
	}
	if err := h.ping(ctx, func(c context.Context) error { return h.redis.Ping(c).Err() }); err != nil {
		deps["redis"] = "down"
		if status == "ok" {
			status = "degraded"
		}
	}

	code := http.StatusOK
	if status == "error" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, Version: h.version, Env: h.env, Dependencies: deps})
}

func (h *HealthHandler) ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return fn(ctx)
}
