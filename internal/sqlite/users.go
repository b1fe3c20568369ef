package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

const (
	insertUserQuery = `INSERT INTO users (email, phone_number, full_name)
VALUES (?, ?, ?)
RETURNING id, created_at`

	selectUserBase = `SELECT
    id,
    email,
    phone_number,
    full_name,
    created_at
FROM users`
)

// CreateUser inserts a new user record, populating ID and created_at on the
// input model.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertUserQuery,
		user.Email,
		nullableString(user.PhoneNumber),
		nullableString(user.FullName),
	)

	var (
		id        int64
		createdAt time.Time
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user with email %q already exists", user.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID = models.UserID(id)
	user.CreatedAt = createdAt
	return nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	row := db.readDB.QueryRowContext(ctx, selectUserBase+" WHERE id = ?", int64(id))
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		id        int64
		email     string
		phone     sql.NullString
		fullName  sql.NullString
		createdAt time.Time
	)
	if err := scanner.Scan(&id, &email, &phone, &fullName, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &models.User{
		ID:          models.UserID(id),
		Email:       email,
		PhoneNumber: phone.String,
		FullName:    fullName.String,
		CreatedAt:   createdAt,
	}, nil
}
