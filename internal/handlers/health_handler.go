package handlers

import (
	"context"
	"time"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/severity"
	"github.com/gofiber/fiber/v2"
)

// Pinger checks a backing service.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	db        Pinger
	redis     Pinger
	predictor severity.Predictor
}

// NewHealthHandler takes optional pingers; a nil pinger reports "disabled".
func NewHealthHandler(db, redis Pinger, predictor severity.Predictor) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, predictor: predictor}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        pingStatus(ctx, h.db),
		Redis:     pingStatus(ctx, h.redis),
	}
	if h.predictor != nil {
		resp.ModelLoaded = h.predictor.Loaded()
	}

	status := fiber.StatusOK
	if resp.DB != "ok" {
		resp.Status = "degraded"
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}

func pingStatus(ctx context.Context, ping Pinger) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "ok"
}
