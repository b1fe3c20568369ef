package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devphilip/clausewatch/internal/sqlite"
	"github.com/devphilip/clausewatch/pkg/models"
)

var (
	// ErrContractNotFound is returned when a contract cannot be located.
	ErrContractNotFound = errors.New("contract not found")
	// ErrInvalidContract indicates the request payload failed validation.
	ErrInvalidContract = errors.New("invalid contract")
)

// CreateContract registers a new contract and assigns it a UUID.
func CreateContract(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateContractRequest) (*models.Contract, error) {
	if req == nil {
		return nil, ErrInvalidContract
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidContract)
	}

	var renewalAt *time.Time
	if strings.TrimSpace(req.RenewalAt) != "" {
		t, err := time.Parse(time.RFC3339, req.RenewalAt)
		if err != nil {
			return nil, fmt.Errorf("%w: renewal_at must be RFC 3339: %s", ErrInvalidContract, err)
		}
		utc := t.UTC()
		renewalAt = &utc
	}

	if req.UserID != nil {
		if _, err := GetUser(ctx, db, log, *req.UserID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, fmt.Errorf("%w: owner user %d does not exist", ErrInvalidContract, *req.UserID)
			}
			return nil, err
		}
	}

	contract := &models.Contract{
		ID:           models.ContractID(uuid.NewString()),
		UserID:       req.UserID,
		Title:        title,
		Counterparty: strings.TrimSpace(req.Counterparty),
		RenewalAt:    renewalAt,
	}
	if err := db.CreateContract(ctx, contract); err != nil {
		log.Error("failed to create contract", "title", title, "error", err)
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	log.Info("contract created", "contract_id", contract.ID, "title", title)
	return contract, nil
}

// GetContract retrieves a single contract by ID.
func GetContract(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.ContractID) (*models.Contract, error) {
	contract, err := db.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		log.Error("failed to get contract", "contract_id", id, "error", err)
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return contract, nil
}

// ListContractAudit returns recent audit events for a contract, newest first.
func ListContractAudit(ctx context.Context, db *sqlite.DB, id models.ContractID, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	events, err := db.ListAuditEvents(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
