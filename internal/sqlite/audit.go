package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

const (
	insertAuditEventQuery = `INSERT INTO audit_log (contract_id, actor, event, payload)
VALUES (?, ?, ?, ?)`

	selectAuditBase = `SELECT
    id,
    contract_id,
    actor,
    event,
    payload,
    created_at
FROM audit_log`
)

// InsertAuditEvent appends one pipeline decision record. Callers treat
// failures as non-fatal; the audit trail is diagnostic, not authoritative.
func (db *DB) InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	if event == nil {
		return fmt.Errorf("audit event is required")
	}
	actor := event.Actor
	if actor == "" {
		actor = "system"
	}
	if _, err := db.writeDB.ExecContext(ctx, insertAuditEventQuery,
		string(event.ContractID),
		actor,
		event.Event,
		nullableString(event.Payload),
	); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// ListAuditEvents returns a contract's audit trail, newest first.
func (db *DB) ListAuditEvents(ctx context.Context, contractID models.ContractID, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := selectAuditBase + " WHERE contract_id = ? ORDER BY id DESC LIMIT ?"
	rows, err := db.readDB.QueryContext(ctx, query, string(contractID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var (
			id        int64
			cid       string
			actor     string
			eventName string
			payload   sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&id, &cid, &actor, &eventName, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &models.AuditEvent{
			ID:         id,
			ContractID: models.ContractID(cid),
			Actor:      actor,
			Event:      eventName,
			Payload:    payload.String,
			CreatedAt:  createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}
