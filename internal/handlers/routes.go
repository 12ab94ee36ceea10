package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Screening *ScreeningHandler
	Candidate *CandidateHandler
	Analytics *AnalyticsHandler
}

// Endpoints is echoed by the root route.
var Endpoints = []string{
	"GET /api/v1/health",
	"POST /api/v1/screenings",
	"POST /api/v1/screenings/drive",
	"GET /api/v1/screenings/:id",
	"GET /api/v1/screenings/:id/export",
	"GET /api/v1/candidates",
	"GET /api/v1/candidates/search",
	"GET /api/v1/candidates/:id",
	"PATCH /api/v1/candidates/:id/stage",
	"GET /api/v1/roles",
	"GET /api/v1/analytics",
}

func RegisterRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/screenings", h.Screening.HandleCreate)
	api.Post("/screenings/drive", h.Screening.HandleCreateFromDrive)
	api.Get("/screenings/:id", h.Screening.HandleGet)
	api.Get("/screenings/:id/export", h.Screening.HandleExport)

	api.Get("/candidates", h.Candidate.HandleList)
	api.Get("/candidates/search", h.Candidate.HandleSearch)
	api.Get("/candidates/:id", h.Candidate.HandleGet)
	api.Patch("/candidates/:id/stage", h.Candidate.HandleUpdateStage)

	api.Get("/roles", h.Candidate.HandleRoles)
	api.Get("/analytics", h.Analytics.HandleGet)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "TalentScan CV Screener API",
			"version":   "1.0.0",
			"endpoints": Endpoints,
		})
	})
}

// ErrorHandler renders unhandled errors with the same {"error": ...} shape as the handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
