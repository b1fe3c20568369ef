package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/devphilip/clausewatch/internal/sqlite"
	"github.com/devphilip/clausewatch/pkg/models"
)

var (
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUser indicates the request payload failed validation.
	ErrInvalidUser = errors.New("invalid user")
)

// CreateUser registers a contract owner who can receive alerts.
func CreateUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateUserRequest) (*models.User, error) {
	if req == nil {
		return nil, ErrInvalidUser
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidUser, email)
	}

	user := &models.User{
		Email:       email,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		FullName:    strings.TrimSpace(req.FullName),
	}
	if err := db.CreateUser(ctx, user); err != nil {
		log.Error("failed to create user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info("user created", "user_id", user.ID, "email", email)
	return user, nil
}

// GetUser retrieves a single user by ID.
func GetUser(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.UserID) (*models.User, error) {
	user, err := db.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error("failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
