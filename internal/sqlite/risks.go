package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devphilip/clausewatch/pkg/models"
)

const (
	insertRiskQuery = `INSERT INTO risks (contract_id, clause_type, severity, rule_id, rationale, suggested_fix)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, created_at`

	selectRiskBase = `SELECT
    id,
    contract_id,
    clause_type,
    severity,
    rule_id,
    rationale,
    suggested_fix,
    created_at
FROM risks`
)

// CreateRisk inserts a scored risk finding, populating ID and created_at.
func (db *DB) CreateRisk(ctx context.Context, risk *models.Risk) error {
	if risk == nil {
		return fmt.Errorf("risk payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertRiskQuery,
		string(risk.ContractID),
		risk.ClauseType,
		risk.Severity,
		risk.RuleID,
		risk.Rationale,
		nullableString(risk.SuggestedFix),
	)

	var (
		id        int64
		createdAt time.Time
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("failed to insert risk: %w", err)
	}
	risk.ID = models.RiskID(id)
	risk.CreatedAt = createdAt
	return nil
}

// ListRisksByContract returns a contract's risk findings, most severe first.
func (db *DB) ListRisksByContract(ctx context.Context, contractID models.ContractID) ([]*models.Risk, error) {
	query := selectRiskBase + " WHERE contract_id = ? ORDER BY severity DESC, id DESC"
	rows, err := db.readDB.QueryContext(ctx, query, string(contractID))
	if err != nil {
		return nil, fmt.Errorf("failed to list risks: %w", err)
	}
	defer rows.Close()

	var risks []*models.Risk
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risks: %w", err)
	}
	return risks, nil
}

func scanRisk(scanner interface{ Scan(dest ...any) error }) (*models.Risk, error) {
	var (
		id           int64
		contractID   string
		clauseType   string
		severity     int
		ruleID       string
		rationale    string
		suggestedFix sql.NullString
		createdAt    time.Time
	)
	if err := scanner.Scan(&id, &contractID, &clauseType, &severity, &ruleID, &rationale, &suggestedFix, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan risk: %w", err)
	}
	return &models.Risk{
		ID:           models.RiskID(id),
		ContractID:   models.ContractID(contractID),
		ClauseType:   clauseType,
		Severity:     severity,
		RuleID:       ruleID,
		Rationale:    rationale,
		SuggestedFix: suggestedFix.String,
		CreatedAt:    createdAt,
	}, nil
}
