package middleware

import (
	"strconv"
	"time"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"
)

// LimiterStorage keeps rate-limit counters in Redis so every instance shares them.
// Redis must be reachable: the storage pings on construction.
func LimiterStorage(cfg *config.Config) fiber.Storage {
	port := 6379
	if v, err := strconv.Atoi(cfg.RedisPort); err == nil {
		port = v
	}
	// Counters live one database above the job queue.
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.RedisHost,
		Port:     port,
		Password: cfg.RedisPassword,
		Database: cfg.RedisDB + 1,
		Reset:    false,
	})
}

// RateLimit allows max requests per minute per client IP. A nil storage keeps
// counters in process memory.
func RateLimit(max int, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Storage:           storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Too many requests, please slow down",
			})
		},
	})
}
