package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/pkg/models"
)

// RiskFindingResponse pairs the stored risk with the alert it produced,
// when severity reached the alert threshold.
type RiskFindingResponse struct {
	Risk  *models.Risk  `json:"risk"`
	Alert *models.Alert `json:"alert,omitempty"`
}

func (s *Server) handleRecordRiskFinding(c *fiber.Ctx) error {
	contractID, err := s.parseContractID(c)
	if err != nil {
		return err
	}

	var req models.RiskFindingRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	risk, alert, err := core.RecordRiskFinding(c.Context(), s.sqlite, s.log, s.drafter, s.config.Alerts, contractID, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidRiskFinding):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case errors.Is(err, core.ErrContractNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Contract not found", models.NotFoundErrorType)
		default:
			s.log.Error("failed to record risk finding", "contract_id", contractID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to record risk finding", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusCreated, RiskFindingResponse{Risk: risk, Alert: alert})
}

func (s *Server) handleListContractRisks(c *fiber.Ctx) error {
	contractID, err := s.parseContractID(c)
	if err != nil {
		return err
	}

	risks, err := core.ListContractRisks(c.Context(), s.sqlite, s.log, contractID)
	if err != nil {
		if errors.Is(err, core.ErrContractNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Contract not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to list risks", "contract_id", contractID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list risks", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, risks)
}
