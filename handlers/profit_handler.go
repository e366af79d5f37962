package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/services"
	"github.com/gongmoalim/gongmo-backend/shared"
)

type ProfitHandler struct {
	Ledger     services.LedgerStore
	Aggregator *services.ProfitAggregator
}

func NewProfitHandler(ledger services.LedgerStore, aggregator *services.ProfitAggregator) *ProfitHandler {
	return &ProfitHandler{Ledger: ledger, Aggregator: aggregator}
}

// GetProfitSummary aggregates the full ledger and returns the summary. The
// snapshot tables are refreshed as a side effect so report consumers see the
// same figures.
func (h *ProfitHandler) GetProfitSummary(c *fiber.Ctx) error {
	records, err := h.Ledger.ReadAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	summary := h.Aggregator.Aggregate(records)

	if err := h.Ledger.SaveSummary(c.Context(), summary); err != nil {
		// Snapshot persistence is derived data; the response stays usable.
		logrus.WithError(err).Warn("Failed to persist profit summary snapshot")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}

// GetProfitReport renders the ledger as the Markdown report.
func (h *ProfitHandler) GetProfitReport(c *fiber.Ctx) error {
	records, err := h.Ledger.ReadAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	summary := h.Aggregator.Aggregate(records)
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(h.Aggregator.FormatReport(summary))
}

type createTradeRequest struct {
	Name             string `json:"name"`
	SubscriptionDate string `json:"subscription_date"`
	OfferPrice       int64  `json:"offer_price"`
	Quantity         int64  `json:"quantity"`
	SellPrice        int64  `json:"sell_price"`
	SellDate         string `json:"sell_date"`
	Grade            string `json:"grade"`
}

// CreateTrade appends one record to the trade ledger. Profit and return rate
// are computed here from prices and quantity; clients cannot submit them.
func (h *ProfitHandler) CreateTrade(c *fiber.Ctx) error {
	var req createTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "name is required",
		})
	}
	if req.OfferPrice < 0 || req.Quantity < 0 || req.SellPrice < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "prices and quantity must be non-negative",
		})
	}
	if req.Grade != "" {
		if _, err := models.ParseGrade(req.Grade); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "unknown grade",
			})
		}
	}
	// Monthly rollups bucket on the sell date's YYYY-MM prefix, so a
	// free-form date here would silently create bogus periods.
	if req.SellDate != "" {
		if _, err := time.Parse("2006-01-02", req.SellDate); err != nil {
			serviceErr := shared.NewServiceError(
				shared.ErrorCategoryValidation, shared.CodeMalformedDate,
				"sell_date must be YYYY-MM-DD", "profit-handler", "CreateTrade", false, err,
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   serviceErr.Error(),
			})
		}
	}

	record := models.TradeRecord{
		Name:             req.Name,
		SubscriptionDate: req.SubscriptionDate,
		OfferPrice:       req.OfferPrice,
		Quantity:         req.Quantity,
		InvestedAmount:   req.OfferPrice * req.Quantity,
		SellPrice:        req.SellPrice,
		SellDate:         req.SellDate,
		Grade:            req.Grade,
	}
	if record.Completed() {
		record.Profit = (record.SellPrice - record.OfferPrice) * record.Quantity
		if record.InvestedAmount > 0 {
			record.ReturnRate = float64(record.Profit) / float64(record.InvestedAmount) * 100
		}
	}

	if err := h.Ledger.Append(c.Context(), &record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}
