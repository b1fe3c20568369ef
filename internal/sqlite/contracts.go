package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

const (
	insertContractQuery = `INSERT INTO contracts (id, user_id, title, counterparty, renewal_at)
VALUES (?, ?, ?, ?, ?)
RETURNING created_at`

	selectContractBase = `SELECT
    id,
    user_id,
    title,
    counterparty,
    renewal_at,
    created_at
FROM contracts`

	// The contact source: contract -> owning user, zero or one row.
	ownerContactQuery = `SELECT u.email, u.phone_number
FROM contracts c
LEFT JOIN users u ON u.id = c.user_id
WHERE c.id = ?
LIMIT 1`
)

// CreateContract inserts a contract record. The caller assigns the ID.
func (db *DB) CreateContract(ctx context.Context, contract *models.Contract) error {
	if contract == nil {
		return fmt.Errorf("contract payload is required")
	}

	var userID any
	if contract.UserID != nil {
		userID = int64(*contract.UserID)
	}
	row := db.writeDB.QueryRowContext(ctx, insertContractQuery,
		string(contract.ID),
		userID,
		contract.Title,
		nullableString(contract.Counterparty),
		nullableTime(contract.RenewalAt),
	)

	var createdAt time.Time
	if err := row.Scan(&createdAt); err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	contract.CreatedAt = createdAt
	return nil
}

// GetContract retrieves a contract by ID.
func (db *DB) GetContract(ctx context.Context, id models.ContractID) (*models.Contract, error) {
	row := db.readDB.QueryRowContext(ctx, selectContractBase+" WHERE id = ?", string(id))
	contract, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return contract, err
}

// GetOwnerContact returns the raw email and phone fields of the contract's
// owning user. A missing contract or an unclaimed contract yields empty
// strings, not an error; absence is a normal case.
func (db *DB) GetOwnerContact(ctx context.Context, id models.ContractID) (email, phone string, err error) {
	var e, p sql.NullString
	row := db.readDB.QueryRowContext(ctx, ownerContactQuery, string(id))
	if err := row.Scan(&e, &p); err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to fetch owner contact: %w", err)
	}
	return e.String, p.String, nil
}

func scanContract(scanner interface{ Scan(dest ...any) error }) (*models.Contract, error) {
	var (
		id           string
		userID       sql.NullInt64
		title        string
		counterparty sql.NullString
		renewalAt    sql.NullTime
		createdAt    time.Time
	)
	if err := scanner.Scan(&id, &userID, &title, &counterparty, &renewalAt, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan contract: %w", err)
	}

	contract := &models.Contract{
		ID:           models.ContractID(id),
		Title:        title,
		Counterparty: counterparty.String,
		CreatedAt:    createdAt,
	}
	if userID.Valid {
		uid := models.UserID(userID.Int64)
		contract.UserID = &uid
	}
	if renewalAt.Valid {
		contract.RenewalAt = &renewalAt.Time
	}
	return contract, nil
}
