package models

import "time"

// ContractID is the UUID assigned to a contract at ingestion time.
type ContractID string

// Contract is the stored record for an ingested contract document.
type Contract struct {
	ID           ContractID `json:"id"`
	UserID       *UserID    `json:"user_id,omitempty"`
	Title        string     `json:"title"`
	Counterparty string     `json:"counterparty,omitempty"`
	RenewalAt    *time.Time `json:"renewal_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateContractRequest registers a contract, optionally claimed by an owner.
type CreateContractRequest struct {
	Title        string  `json:"title"`
	Counterparty string  `json:"counterparty"`
	UserID       *UserID `json:"user_id"`
	RenewalAt    string  `json:"renewal_at"` // RFC 3339, optional
}

// Risk is one scored finding against a classified clause.
type Risk struct {
	ID           RiskID     `json:"id"`
	ContractID   ContractID `json:"contract_id"`
	ClauseType   string     `json:"clause_type"`
	Severity     int        `json:"severity"`
	RuleID       string     `json:"rule_id"`
	Rationale    string     `json:"rationale"`
	SuggestedFix string     `json:"suggested_fix,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RiskFindingRequest is the producer-facing payload for recording a scored
// clause finding. Severity outside [0,10] is clamped by the producer.
type RiskFindingRequest struct {
	ClauseType   string `json:"clause_type"`
	Severity     int    `json:"severity"`
	RuleID       string `json:"rule_id"`
	Rationale    string `json:"rationale"`
	SuggestedFix string `json:"suggested_fix"`
}

// AuditEvent is one append-only pipeline decision record.
type AuditEvent struct {
	ID         int64      `json:"id"`
	ContractID ContractID `json:"contract_id"`
	Actor      string     `json:"actor"`
	Event      string     `json:"event"`
	Payload    string     `json:"payload,omitempty"` // JSON blob
	CreatedAt  time.Time  `json:"created_at"`
}

// Audit event names written by the producer and dispatcher.
const (
	AuditEventRiskRecorded = "RISK_RECORDED"
	AuditEventAlertCreated = "ALERT_CREATED"
	AuditEventAlertSent    = "ALERT_SENT"
	AuditEventAlertFailed  = "ALERT_FAILED"
	AuditEventAlertDead    = "ALERT_DEAD"
)
