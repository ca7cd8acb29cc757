package api

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-rover/controller/pkg/log"
)

// Threshold bounds accepted at the HTTP boundary. The core only requires a
// positive threshold; the operator-facing range mirrors the physical limits
// of the proximity sensor.
const (
	MinThresholdM = 1.0
	MaxThresholdM = 10.0
)

// SafetyHandler holds dependencies for the safety API endpoints.
type SafetyHandler struct {
	ctrl   RoverControl
	logger customlog.Logger
}

// NewSafetyHandler creates a new handler for safety endpoints.
func NewSafetyHandler(ctrl RoverControl, logger customlog.Logger) *SafetyHandler {
	if ctrl == nil {
		panic("RoverControl cannot be nil in NewSafetyHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewSafetyHandler")
	}
	return &SafetyHandler{ctrl: ctrl, logger: logger}
}

// RegisterSafetyRoutes registers the safety API endpoints with the Fiber app.
func RegisterSafetyRoutes(app *fiber.App, ctrl RoverControl, logger customlog.Logger) {
	h := NewSafetyHandler(ctrl, logger)

	apiGroup := app.Group("/api/v1")

	apiGroup.Get("/safety", h.handleGetSafetyState)
	apiGroup.Put("/safety/threshold", h.handleUpdateThreshold)
	apiGroup.Put("/safety/override", h.handleSetOverride)
	apiGroup.Post("/control/stop", h.handleEmergencyStop)

	logger.Infof("Registered safety API endpoints under /api/v1")
}

// handleGetSafetyState returns the current hazard and safe-mode state.
func (h *SafetyHandler) handleGetSafetyState(c *fiber.Ctx) error {
	return c.JSON(h.ctrl.Snapshot())
}

// handleUpdateThreshold handles PUT requests to change the hazard threshold.
func (h *SafetyHandler) handleUpdateThreshold(c *fiber.Ctx) error {
	var req ThresholdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
	}

	if req.ThresholdM < MinThresholdM || req.ThresholdM > MaxThresholdM {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Threshold must be between %.1f and %.1f meters", MinThresholdM, MaxThresholdM),
		})
	}

	if err := h.ctrl.OnThresholdChange(req.ThresholdM); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Threshold rejected: %v", err),
		})
	}

	h.logger.Infof("Threshold change accepted: %.2fm", req.ThresholdM)
	return c.JSON(fiber.Map{
		"message":     "Threshold updated. Takes effect on the next sensor reading.",
		"threshold_m": req.ThresholdM,
	})
}

// handleSetOverride handles PUT requests to toggle the manual override.
func (h *SafetyHandler) handleSetOverride(c *fiber.Ctx) error {
	var req OverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
	}

	h.ctrl.OnOverrideToggle(req.Enabled)

	if req.Enabled {
		h.logger.Warnf("Operator requested safe mode override")
	} else {
		h.logger.Infof("Operator released safe mode override")
	}
	return c.JSON(fiber.Map{"override": req.Enabled})
}

// handleEmergencyStop handles POST requests to halt the rover.
func (h *SafetyHandler) handleEmergencyStop(c *fiber.Ctx) error {
	h.ctrl.EmergencyStop()
	h.logger.Infof("Emergency stop requested via API")
	return c.JSON(fiber.Map{"message": "Emergency stop issued"})
}
