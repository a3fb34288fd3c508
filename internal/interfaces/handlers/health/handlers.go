package health

import (
	"context"
	"time"

	"gatelist-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb *redis.Client
	DB  *gorm.DB
}

// JSON GET /health/json — liveness plus the traffic counters kept by the
// health marker middleware.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx := context.Background()

	dbStatus := "not configured"
	if h.DB != nil {
		dbStatus = "up"
		if sqlDB, err := h.DB.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "down"
		}
	}

	redisStatus := "not configured"
	traffic := fiber.Map{}
	if h.Rdb != nil {
		redisStatus = "up"
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		} else {
			total, _ := h.Rdb.Get(ctx, middleware.KeyReqTotal).Int64()
			errCount, _ := h.Rdb.Get(ctx, middleware.KeyReqErrors).Int64()
			resTime, _ := h.Rdb.Get(ctx, middleware.KeyResTime).Float64()
			resCount, _ := h.Rdb.Get(ctx, middleware.KeyResCount).Int64()
			avg := 0.0
			if resCount > 0 {
				avg = resTime / float64(resCount)
			}
			traffic = fiber.Map{
				"requests_total":  total,
				"request_errors":  errCount,
				"avg_response_ms": avg,
			}
		}
	}

	status := "ok"
	if dbStatus == "down" || redisStatus == "down" {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"service": "gatelist-api",
		"status":  status,
		"time":    time.Now().UTC(),
		"dependencies": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"traffic": traffic,
	})
}
