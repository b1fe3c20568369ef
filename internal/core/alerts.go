package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devphilip/clausewatch/internal/sqlite"
	"github.com/devphilip/clausewatch/pkg/models"
)

var (
	// ErrAlertNotFound is returned when an alert cannot be located.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidAlertFilter indicates the listing filter failed validation.
	ErrInvalidAlertFilter = errors.New("invalid alert filter")
)

var validStatuses = map[models.AlertStatus]struct{}{
	models.AlertStatusOpen:    {},
	models.AlertStatusPending: {},
	models.AlertStatusSent:    {},
	models.AlertStatusFailed:  {},
	models.AlertStatusDead:    {},
}

// maxAlertListLimit caps listings regardless of the requested limit.
const maxAlertListLimit = 1000

func validateAlertFilter(filter *models.AlertFilter) error {
	if filter.Status != "" {
		if _, ok := validStatuses[filter.Status]; !ok {
			return fmt.Errorf("invalid status %q", filter.Status)
		}
	}
	if filter.MinSeverity < 0 || filter.MinSeverity > 10 {
		return fmt.Errorf("min_severity must be between 0 and 10")
	}
	if filter.Limit <= 0 {
		filter.Limit = models.DefaultAlertListLimit
	}
	if filter.Limit > maxAlertListLimit {
		filter.Limit = maxAlertListLimit
	}
	return nil
}

// GetAlert retrieves a single alert by ID.
func GetAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, alertID models.AlertID) (*models.Alert, error) {
	alert, err := db.GetAlert(ctx, alertID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to get alert", "alert_id", alertID, "error", err)
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// ListContractAlerts returns alerts for one contract, filtered and ordered
// by severity then due time.
func ListContractAlerts(ctx context.Context, db *sqlite.DB, log *slog.Logger, contractID models.ContractID, filter models.AlertFilter) ([]*models.Alert, error) {
	if _, err := GetContract(ctx, db, log, contractID); err != nil {
		return nil, err
	}
	if err := validateAlertFilter(&filter); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlertFilter, err)
	}
	alerts, err := db.ListAlertsByContract(ctx, contractID, filter)
	if err != nil {
		log.Error("failed to list alerts", "contract_id", contractID, "error", err)
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// ListDueAlerts returns the alerts the next dispatch run would pick up,
// without delivering anything.
func ListDueAlerts(ctx context.Context, db *sqlite.DB, limit, maxAttempts int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = models.DefaultDispatchBatchLimit
	}
	alerts, err := db.ListDueAlerts(ctx, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to list due alerts: %w", err)
	}
	return alerts, nil
}
