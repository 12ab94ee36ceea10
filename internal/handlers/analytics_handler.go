package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"talentscan/cv-screener/internal/services"
)

type AnalyticsHandler struct {
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// HandleGet handles GET /analytics
func (h *AnalyticsHandler) HandleGet(c *fiber.Ctx) error {
	trend := services.DefaultTrendSize
	if raw := c.Query("trend"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "trend must be a positive integer",
			})
		}
		trend = n
	}

	overview, err := h.analytics.Overview(trend)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build analytics",
		})
	}

	return c.JSON(overview)
}
