package http

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	analysisSvc *service.AnalysisService
	trafficSvc  *service.TrafficService
}

// NewHandler creates a new handler
func NewHandler(analysisSvc *service.AnalysisService, trafficSvc *service.TrafficService) *Handler {
	return &Handler{
		analysisSvc: analysisSvc,
		trafficSvc:  trafficSvc,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	storage := "ok"
	if err := h.analysisSvc.Health(c.UserContext()); err != nil {
		log.Printf("Storage health check failed: %v", err)
		storage = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "expressway-capacity",
		"version": "1.0.0",
		"storage": storage,
	})
}

// CreateAnalysis computes and records a segment analysis
func (h *Handler) CreateAnalysis(c *fiber.Ctx) error {
	var req domain.AnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	analysis, err := h.analysisSvc.Analyze(c.UserContext(), req)
	if err != nil {
		return toFiberError(err, "Failed to analyse segment")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    analysis,
	})
}

// ListAnalyses returns analyses recorded within the last ?hours (default 24)
func (h *Handler) ListAnalyses(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", service.DefaultHistoryHours)

	data, err := h.analysisSvc.History(c.UserContext(), hours)
	if err != nil {
		return toFiberError(err, "Failed to fetch analysis history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// Curve returns chart data for the speed-flow diagram of a segment
func (h *Handler) Curve(c *fiber.Ctx) error {
	var req domain.AnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	points := c.QueryInt("points", service.DefaultCurvePoints)
	curve, err := h.trafficSvc.Curve(req, points)
	if err != nil {
		return toFiberError(err, "Failed to compute curve")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    curve,
	})
}

// HourlyVolume converts ?adt for ?profile into a design hourly volume
func (h *Handler) HourlyVolume(c *fiber.Ctx) error {
	demand, err := h.trafficSvc.HourlyVolume(c.QueryInt("adt", 0), c.Query("profile"))
	if err != nil {
		return toFiberError(err, "Failed to convert demand")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    demand,
	})
}

// ADT converts ?volume for ?profile back into two-way ADT
func (h *Handler) ADT(c *fiber.Ctx) error {
	demand, err := h.trafficSvc.ADT(c.QueryInt("volume", 0), c.Query("profile"))
	if err != nil {
		return toFiberError(err, "Failed to convert demand")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    demand,
	})
}

// LOSTable returns the density boundary of each level of service
func (h *Handler) LOSTable(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.trafficSvc.LOSBoundaries(),
	})
}

// toFiberError maps domain errors onto HTTP status codes. Unknown errors are
// logged and hidden behind fallback.
func toFiberError(err error, fallback string) error {
	var (
		verr *domain.ValidationError
		lerr *domain.LookupError
		cerr *domain.ConfigurationError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.As(err, &lerr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, lerr.Error())
	case errors.As(err, &cerr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, cerr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Request cancelled")
	}

	log.Printf("%s: %v", fallback, err)
	return fiber.NewError(fiber.StatusInternalServerError, fallback)
}

// ErrorHandler renders every error as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
