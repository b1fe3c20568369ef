package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/pkg/models"
)

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	user, err := core.CreateUser(c.Context(), s.sqlite, s.log, &req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidUser):
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
		case strings.Contains(err.Error(), "already exists"):
			return SendErrorWithType(c, fiber.StatusConflict, "A user with this email already exists", models.ConflictErrorType)
		default:
			s.log.Error("failed to create user", "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to create user", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusCreated, user)
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	userIDStr := c.Params("userID")
	parsedID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid user ID", models.ValidationErrorType)
	}

	user, err := core.GetUser(c.Context(), s.sqlite, s.log, models.UserID(parsedID))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "User not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get user", "user_id", parsedID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve user", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, user)
}
