package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/internal/sqlite"
	"github.com/devphilip/clausewatch/pkg/models"
)

// ErrInvalidRiskFinding indicates the finding payload failed validation.
var ErrInvalidRiskFinding = errors.New("invalid risk finding")

// dueDayPattern extracts a day count from rationale text such as
// "termination requires 30 day notice".
var dueDayPattern = regexp.MustCompile(`(\d+)\s*day`)

// ShouldAlert reports whether a finding's severity warrants an alert.
func ShouldAlert(severity, threshold int) bool {
	return severity >= threshold
}

// DeriveDueAt scans the given texts for a day-count mention and returns
// now plus that many days, or nil when no deadline is mentioned. The first
// match across the texts wins.
func DeriveDueAt(now time.Time, texts ...string) *time.Time {
	for _, text := range texts {
		m := dueDayPattern.FindStringSubmatch(strings.ToLower(text))
		if m == nil {
			continue
		}
		days, err := strconv.Atoi(m[1])
		if err != nil || days <= 0 {
			continue
		}
		due := now.Add(time.Duration(days) * 24 * time.Hour).UTC()
		return &due
	}
	return nil
}

// clampSeverity pins a score to the [0, 10] scale.
func clampSeverity(severity int) int {
	if severity < 0 {
		return 0
	}
	if severity > 10 {
		return 10
	}
	return severity
}

func validateRiskFinding(req *models.RiskFindingRequest) error {
	if strings.TrimSpace(req.ClauseType) == "" {
		return fmt.Errorf("clause_type is required")
	}
	if strings.TrimSpace(req.RuleID) == "" {
		return fmt.Errorf("rule_id is required")
	}
	return nil
}

// RecordRiskFinding persists a scored clause finding and, when severity
// reaches the alert threshold, upserts the corresponding risk_high alert.
// Re-recording the same finding refreshes the alert in place rather than
// creating a duplicate. The returned alert is nil below the threshold.
func RecordRiskFinding(ctx context.Context, db *sqlite.DB, log *slog.Logger, drafter *MessageDrafter, cfg config.AlertsConfig, contractID models.ContractID, req *models.RiskFindingRequest) (*models.Risk, *models.Alert, error) {
	if req == nil {
		return nil, nil, ErrInvalidRiskFinding
	}
	if err := validateRiskFinding(req); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRiskFinding, err)
	}
	if _, err := GetContract(ctx, db, log, contractID); err != nil {
		return nil, nil, err
	}

	risk := &models.Risk{
		ContractID:   contractID,
		ClauseType:   strings.TrimSpace(req.ClauseType),
		Severity:     clampSeverity(req.Severity),
		RuleID:       strings.TrimSpace(req.RuleID),
		Rationale:    strings.TrimSpace(req.Rationale),
		SuggestedFix: strings.TrimSpace(req.SuggestedFix),
	}
	if err := db.CreateRisk(ctx, risk); err != nil {
		log.Error("failed to create risk", "contract_id", contractID, "error", err)
		return nil, nil, fmt.Errorf("failed to create risk: %w", err)
	}
	writeAuditEvent(ctx, db, log, contractID, models.AuditEventRiskRecorded,
		fmt.Sprintf(`{"risk_id":%d,"clause_type":%q,"severity":%d}`, risk.ID, risk.ClauseType, risk.Severity))

	if !ShouldAlert(risk.Severity, cfg.SeverityThreshold) {
		log.Debug("risk below alert threshold", "contract_id", contractID, "risk_id", risk.ID, "severity", risk.Severity)
		return risk, nil, nil
	}

	// Channels stay empty here; the planner derives the channel set from
	// severity at dispatch time.
	riskID := risk.ID
	alert, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: contractID,
		RiskID:     &riskID,
		Kind:       models.AlertKindRiskHigh,
		Severity:   risk.Severity,
		Message:    drafter.Draft(ctx, risk),
		DueAt:      DeriveDueAt(time.Now().UTC(), risk.Rationale, risk.SuggestedFix),
		Status:     models.AlertStatusOpen,
	})
	if err != nil {
		log.Error("failed to upsert alert for risk", "contract_id", contractID, "risk_id", risk.ID, "error", err)
		return nil, nil, fmt.Errorf("failed to upsert alert: %w", err)
	}
	log.Info("alert upserted for high risk", "contract_id", contractID, "risk_id", risk.ID, "alert_id", alert.ID, "severity", risk.Severity)
	writeAuditEvent(ctx, db, log, contractID, models.AuditEventAlertCreated,
		fmt.Sprintf(`{"alert_id":%d,"risk_id":%d,"severity":%d}`, alert.ID, risk.ID, risk.Severity))
	return risk, alert, nil
}

// ListContractRisks returns all risk findings for a contract, highest
// severity first.
func ListContractRisks(ctx context.Context, db *sqlite.DB, log *slog.Logger, contractID models.ContractID) ([]*models.Risk, error) {
	if _, err := GetContract(ctx, db, log, contractID); err != nil {
		return nil, err
	}
	risks, err := db.ListRisksByContract(ctx, contractID)
	if err != nil {
		log.Error("failed to list risks", "contract_id", contractID, "error", err)
		return nil, fmt.Errorf("failed to list risks: %w", err)
	}
	return risks, nil
}

// writeAuditEvent records a pipeline decision; failures are logged only.
func writeAuditEvent(ctx context.Context, db *sqlite.DB, log *slog.Logger, contractID models.ContractID, event, payload string) {
	if err := db.InsertAuditEvent(ctx, &models.AuditEvent{
		ContractID: contractID,
		Event:      event,
		Payload:    payload,
	}); err != nil {
		log.Warn("failed to write audit event", "contract_id", contractID, "event", event, "error", err)
	}
}
