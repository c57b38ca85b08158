package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const serviceName = "docquery"

type HealthHandler struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// Healthz reports liveness only; it must stay cheap and dependency-free.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

// Readyz pings postgres and redis. Postgres holds the documents and
// the index; redis carries the ingestion queue. Either one down means
// the service cannot take traffic.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.db != nil {
		checks["postgres"] = checkResult(h.db.Ping(r.Context()))
	}
	if h.redis != nil {
		checks["redis"] = checkResult(pingRedis(r.Context(), h.redis))
	}

	status, label := http.StatusOK, "ready"
	for _, v := range checks {
		if v != "ok" {
			status, label = http.StatusServiceUnavailable, "unavailable"
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{
		"status":  label,
		"service": serviceName,
		"checks":  checks,
	})
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}

func checkResult(err error) string {
	if err != nil {
		return "unhealthy: " + err.Error()
	}
	return "ok"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
