package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/redis/go-redis/v9"
)

// SystemHandler exposes health and liveness information.
type SystemHandler struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	registry *duel.Registry
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, registry *duel.Registry) *SystemHandler {
	return &SystemHandler{pool: pool, rdb: rdb, registry: registry}
}

// Health godoc
// GET /api/v1/health
// Reports dependency health and the number of live sessions.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbOK := h.pool.Ping(ctx) == nil
	redisOK := h.rdb.Ping(ctx).Err() == nil

	status := http.StatusOK
	if !dbOK || !redisOK {
		status = http.StatusServiceUnavailable
	}

	response.Success(c, status, gin.H{
		"database":      dbOK,
		"redis":         redisOK,
		"live_sessions": h.registry.Len(),
	})
}
