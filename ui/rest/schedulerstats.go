package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressgen/pressgen/pkg/runworker"
)

var runPool *runworker.RunWorkerPool

// SetRunWorkerPool wires the pool whose stats the endpoint exposes.
func SetRunWorkerPool(pool *runworker.RunWorkerPool) {
	runPool = pool
}

// GetSchedulerStats returns real-time run worker pool statistics
func GetSchedulerStats(c *fiber.Ctx) error {
	if runPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Run worker pool not initialized",
		})
	}

	return c.JSON(runPool.GetStats())
}
