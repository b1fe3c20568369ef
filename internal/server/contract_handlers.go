package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/pkg/models"
)

func (s *Server) handleCreateContract(c *fiber.Ctx) error {
	var req models.CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	contract, err := core.CreateContract(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidContract) {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		}
		s.log.Error("failed to create contract", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create contract", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, contract)
}

func (s *Server) handleGetContract(c *fiber.Ctx) error {
	contractID, err := s.parseContractID(c)
	if err != nil {
		return err
	}

	contract, err := core.GetContract(c.Context(), s.sqlite, s.log, contractID)
	if err != nil {
		if errors.Is(err, core.ErrContractNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Contract not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get contract", "contract_id", contractID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve contract", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, contract)
}

func (s *Server) handleListContractAudit(c *fiber.Ctx) error {
	contractID, err := s.parseContractID(c)
	if err != nil {
		return err
	}
	if _, err := core.GetContract(c.Context(), s.sqlite, s.log, contractID); err != nil {
		if errors.Is(err, core.ErrContractNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Contract not found", models.NotFoundErrorType)
		}
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list audit events", models.GeneralErrorType)
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := core.ListContractAudit(c.Context(), s.sqlite, contractID, limit)
	if err != nil {
		s.log.Error("failed to list audit events", "contract_id", contractID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list audit events", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, events)
}

func (s *Server) parseContractID(c *fiber.Ctx) (models.ContractID, error) {
	contractIDStr := c.Params("contractID")
	if contractIDStr == "" {
		return "", SendErrorWithType(c, fiber.StatusBadRequest, "Contract ID is required", models.ValidationErrorType)
	}
	return models.ContractID(contractIDStr), nil
}
