package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/services"
)

type OfferingHandler struct {
	Pipeline *services.CollectionPipeline
}

func NewOfferingHandler(pipeline *services.CollectionPipeline) *OfferingHandler {
	return &OfferingHandler{Pipeline: pipeline}
}

// GetOfferings returns the offerings from the most recent collection cycle.
func (h *OfferingHandler) GetOfferings(c *fiber.Ctx) error {
	result := h.Pipeline.LatestResult()
	if result == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "no collection cycle has completed yet",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetAnalyses returns the graded analyses from the most recent cycle.
func (h *OfferingHandler) GetAnalyses(c *fiber.Ctx) error {
	analyses := h.Pipeline.LatestAnalyses()
	if len(analyses) == 0 && h.Pipeline.LatestResult() == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "no collection cycle has completed yet",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    analyses,
	})
}

// GetAnalysisByName returns one offering's analysis by issuer name.
func (h *OfferingHandler) GetAnalysisByName(c *fiber.Ctx) error {
	name := c.Params("name")
	for _, analysis := range h.Pipeline.LatestAnalyses() {
		if analysis.Offering.Name == name {
			return c.JSON(fiber.Map{
				"success": true,
				"data":    analysis,
			})
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "offering not found",
	})
}

// GetTomorrowSubscriptions returns offerings whose subscription window opens
// tomorrow in market time.
func (h *OfferingHandler) GetTomorrowSubscriptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Pipeline.TomorrowSubscriptions(),
	})
}

// GetGradeTable returns the static grade descriptor table in canonical
// order, for clients rendering legends.
func (h *OfferingHandler) GetGradeTable(c *fiber.Ctx) error {
	table := make([]models.GradeDescriptor, 0, len(models.GradeOrder))
	for _, grade := range models.GradeOrder {
		table = append(table, grade.Descriptor())
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    table,
	})
}
