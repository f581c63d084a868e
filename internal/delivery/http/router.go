package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, analysisSvc *service.AnalysisService, trafficSvc *service.TrafficService) {
	handler := NewHandler(analysisSvc, trafficSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Segment analyses
		api.Post("/analyses", handler.CreateAnalysis)
		api.Get("/analyses", handler.ListAnalyses)
		api.Post("/curve", handler.Curve)

		// Demand conversion
		api.Get("/demand/hourly", handler.HourlyVolume)
		api.Get("/demand/adt", handler.ADT)

		// Reference tables
		api.Get("/tables/los", handler.LOSTable)
	}
}
