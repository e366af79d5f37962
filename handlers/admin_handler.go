package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/services"
)

type AdminHandler struct {
	Pipeline *services.CollectionPipeline
}

func NewAdminHandler(pipeline *services.CollectionPipeline) *AdminHandler {
	return &AdminHandler{Pipeline: pipeline}
}

// TriggerCollection runs one collection cycle on demand. The cycle runs
// inline; the response reports its outcome.
func (h *AdminHandler) TriggerCollection(c *fiber.Ctx) error {
	logrus.Info("Manual collection cycle triggered via admin endpoint")

	startTime := time.Now()
	result, err := h.Pipeline.Run(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "collection cycle completed",
		"duration":      time.Since(startTime).String(),
		"offerings":     len(result.Offerings),
		"new_offerings": result.NewNames,
		"used_fallback": result.UsedFallback,
		"timestamp":     time.Now(),
	})
}
