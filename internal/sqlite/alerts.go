package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

const (
	upsertAlertQuery = `INSERT INTO alerts (
    contract_id,
    risk_id,
    kind,
    severity,
    message,
    due_at,
    status,
    channel_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (contract_id, risk_id, kind) DO UPDATE SET
    severity = excluded.severity,
    message = excluded.message,
    due_at = excluded.due_at,
    status = excluded.status,
    channel_json = excluded.channel_json
RETURNING id, contract_id, risk_id, kind, severity, message, channel_json,
    due_at, status, attempts, notified_at, last_error, created_at`

	selectAlertBase = `SELECT
    id,
    contract_id,
    risk_id,
    kind,
    severity,
    message,
    channel_json,
    due_at,
    status,
    attempts,
    notified_at,
    last_error,
    created_at
FROM alerts`

	// Dispatchable statuses plus unexhausted retry budget. Ordering is
	// deterministic: due time ascending with NULLs treated as "now", then id.
	listDueAlertsQuery = selectAlertBase + `
WHERE LOWER(TRIM(COALESCE(status, ''))) IN ('open', 'pending', 'failed')
  AND attempts < ?
  AND (due_at IS NULL OR due_at <= datetime('now'))
ORDER BY COALESCE(due_at, datetime('now')) ASC, id ASC
LIMIT ?`

	markAlertSentQuery = `UPDATE alerts
SET status = 'sent',
    attempts = attempts + 1,
    notified_at = datetime('now'),
    last_error = NULL
WHERE id = ?
  AND LOWER(TRIM(COALESCE(status, ''))) IN ('open', 'pending', 'failed')`

	// Exhausting the retry budget flips the alert to the terminal dead
	// status instead of failed.
	markAlertFailedQuery = `UPDATE alerts
SET status = CASE WHEN attempts + 1 >= ? THEN 'dead' ELSE 'failed' END,
    attempts = attempts + 1,
    notified_at = datetime('now'),
    last_error = ?
WHERE id = ?
  AND LOWER(TRIM(COALESCE(status, ''))) IN ('open', 'pending', 'failed')
RETURNING status`
)

// UpsertAlert inserts an alert or, on a (contract_id, risk_id, kind)
// conflict, overwrites severity, message, due time, status, and channel
// preferences. Returns the stored row.
func (db *DB) UpsertAlert(ctx context.Context, params models.UpsertAlertParams) (*models.Alert, error) {
	channelsJSON, err := json.Marshal(params.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert channels: %w", err)
	}

	var riskID any
	if params.RiskID != nil {
		riskID = int64(*params.RiskID)
	}
	status := params.Status
	if status == "" {
		status = models.AlertStatusOpen
	}

	row := db.writeDB.QueryRowContext(ctx, upsertAlertQuery,
		string(params.ContractID),
		riskID,
		params.Kind,
		params.Severity,
		params.Message,
		nullableTime(params.DueAt),
		string(status),
		string(channelsJSON),
	)
	alert, err := scanAlert(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert alert: %w", err)
	}
	return alert, nil
}

// GetAlert retrieves an alert by its identifier.
func (db *DB) GetAlert(ctx context.Context, alertID models.AlertID) (*models.Alert, error) {
	row := db.readDB.QueryRowContext(ctx, selectAlertBase+" WHERE id = ?", int64(alertID))
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return alert, err
}

// ListDueAlerts returns alerts eligible for dispatch: status open, pending,
// or failed with attempts below maxAttempts, and due time unset or reached.
func (db *DB) ListDueAlerts(ctx context.Context, limit, maxAttempts int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = models.DefaultDispatchBatchLimit
	}
	rows, err := db.readDB.QueryContext(ctx, listDueAlertsQuery, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due alerts: %w", err)
	}
	return alerts, nil
}

// ListAlertsByContract returns a contract's alerts, optionally filtered by
// status and minimum severity, ordered by severity descending then due time.
func (db *DB) ListAlertsByContract(ctx context.Context, contractID models.ContractID, filter models.AlertFilter) ([]*models.Alert, error) {
	query := selectAlertBase + " WHERE contract_id = ? AND severity >= ?"
	args := []any{string(contractID), filter.MinSeverity}

	if filter.Status != "" {
		query += " AND LOWER(TRIM(COALESCE(status, ''))) = LOWER(TRIM(?))"
		args = append(args, string(filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultAlertListLimit
	}
	query += `
ORDER BY severity DESC, COALESCE(due_at, datetime('now')) ASC, id DESC
LIMIT ?`
	args = append(args, limit)

	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// MarkAlertSent transitions the alert to sent, clears last_error, and
// stamps notified_at. The update is conditional on the alert still being
// dispatchable; ErrNotFound signals a concurrent transition.
func (db *DB) MarkAlertSent(ctx context.Context, alertID models.AlertID) error {
	res, err := db.writeDB.ExecContext(ctx, markAlertSentQuery, int64(alertID))
	if err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAlertFailed records a delivery failure, retaining the error text.
// When the attempt budget is exhausted the alert transitions to dead.
// Returns the resulting status.
func (db *DB) MarkAlertFailed(ctx context.Context, alertID models.AlertID, errText string, maxAttempts int) (models.AlertStatus, error) {
	var status string
	err := db.writeDB.QueryRowContext(ctx, markAlertFailedQuery,
		maxAttempts, nullableString(errText), int64(alertID),
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to mark alert failed: %w", err)
	}
	return models.AlertStatus(status), nil
}

func scanAlert(scanner interface{ Scan(dest ...any) error }) (*models.Alert, error) {
	var (
		id           int64
		contractID   string
		riskID       sql.NullInt64
		kind         string
		severity     int
		message      string
		channelsJSON sql.NullString
		dueAt        sql.NullTime
		status       string
		attempts     int
		notifiedAt   sql.NullTime
		lastError    sql.NullString
		createdAt    time.Time
	)
	if err := scanner.Scan(&id, &contractID, &riskID, &kind, &severity, &message, &channelsJSON, &dueAt, &status, &attempts, &notifiedAt, &lastError, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	var channels models.ChannelSet
	if channelsJSON.Valid && channelsJSON.String != "" {
		if err := json.Unmarshal([]byte(channelsJSON.String), &channels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert channels: %w", err)
		}
	}

	alert := &models.Alert{
		ID:         models.AlertID(id),
		ContractID: models.ContractID(contractID),
		Kind:       kind,
		Severity:   severity,
		Message:    message,
		Channels:   channels,
		Status:     models.AlertStatus(status),
		Attempts:   attempts,
		CreatedAt:  createdAt,
	}
	if riskID.Valid {
		rid := models.RiskID(riskID.Int64)
		alert.RiskID = &rid
	}
	if dueAt.Valid {
		alert.DueAt = &dueAt.Time
	}
	if notifiedAt.Valid {
		alert.NotifiedAt = &notifiedAt.Time
	}
	if lastError.Valid {
		alert.LastError = &lastError.String
	}
	return alert, nil
}
