package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/devphilip/clausewatch/internal/alerts"
	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/pkg/models"
)

func (s *Server) handleListContractAlerts(c *fiber.Ctx) error {
	contractID, err := s.parseContractID(c)
	if err != nil {
		return err
	}

	filter := models.AlertFilter{
		Status: models.AlertStatus(c.Query("status")),
	}
	if sevStr := c.Query("min_severity"); sevStr != "" {
		sev, err := strconv.Atoi(sevStr)
		if err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid min_severity parameter", models.ValidationErrorType)
		}
		filter.MinSeverity = sev
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	alertList, err := core.ListContractAlerts(c.Context(), s.sqlite, s.log, contractID, filter)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrContractNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Contract not found", models.NotFoundErrorType)
		case errors.Is(err, core.ErrInvalidAlertFilter):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		default:
			s.log.Error("failed to list alerts", "contract_id", contractID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list alerts", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, alertList)
}

func (s *Server) handleGetAlert(c *fiber.Ctx) error {
	alertIDStr := c.Params("alertID")
	parsedID, err := strconv.ParseInt(alertIDStr, 10, 64)
	if err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid alert ID", models.ValidationErrorType)
	}

	alert, err := core.GetAlert(c.Context(), s.sqlite, s.log, models.AlertID(parsedID))
	if err != nil {
		if errors.Is(err, core.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get alert", "alert_id", parsedID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

// handleListDueAlerts is the dry-run view of the dispatch queue: the alerts
// the next run would pick up, in dispatch order.
// URL: GET /api/v1/alerts/due
func (s *Server) handleListDueAlerts(c *fiber.Ctx) error {
	limit := s.config.Alerts.BatchLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	due, err := core.ListDueAlerts(c.Context(), s.sqlite, limit, s.config.Alerts.MaxAttempts)
	if err != nil {
		s.log.Error("failed to list due alerts", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list due alerts", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, due)
}

// handleDispatchNow triggers one dispatch run immediately instead of
// waiting for the scheduler tick.
// URL: POST /api/v1/alerts/dispatch
func (s *Server) handleDispatchNow(c *fiber.Ctx) error {
	if s.dispatcher == nil {
		return SendErrorWithType(c, fiber.StatusServiceUnavailable, "Alert dispatch is not configured", models.GeneralErrorType)
	}

	sent, err := s.dispatcher.RunOnce(c.Context())
	if err != nil {
		if errors.Is(err, alerts.ErrRunInProgress) {
			return SendErrorWithType(c, fiber.StatusConflict, "A dispatch run is already in progress", models.ConflictErrorType)
		}
		s.log.Error("manual dispatch run failed", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Dispatch run failed", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"sent": sent})
}
