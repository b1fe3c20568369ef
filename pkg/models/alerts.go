package models

import "time"

// AlertID identifies a stored alert row.
type AlertID int64

// RiskID identifies a risk finding produced by clause scoring.
type RiskID int64

// AlertStatus captures the lifecycle state of an alert.
type AlertStatus string

const (
	// AlertStatusOpen marks an alert awaiting its first delivery attempt.
	AlertStatusOpen AlertStatus = "open"
	// AlertStatusPending is accepted as a synonym for open; some producers
	// write it and the due query treats both as dispatchable.
	AlertStatusPending AlertStatus = "pending"
	// AlertStatusSent marks a fully delivered alert. Terminal.
	AlertStatusSent AlertStatus = "sent"
	// AlertStatusFailed marks a delivery failure with retry budget remaining.
	AlertStatusFailed AlertStatus = "failed"
	// AlertStatusDead marks an alert that exhausted its retry budget. Terminal.
	AlertStatusDead AlertStatus = "dead"
)

// IsTerminal reports whether the status permits no further dispatch attempts.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusSent || s == AlertStatusDead
}

// Well-known alert kinds. The kind participates in the dedup key, so
// producers should keep these stable.
const (
	AlertKindRiskHigh      = "risk_high"
	AlertKindRenewalNotice = "renewal_notice"
	AlertKindSLABreach     = "sla_breach"
)

// ChannelSet is the fixed-shape channel preference attached to an alert.
// It round-trips through the channel_json column; list order within each
// channel is preserved.
type ChannelSet struct {
	Email    []string `json:"email,omitempty"`
	SMS      []string `json:"sms,omitempty"`
	Call     []string `json:"call,omitempty"`
	Calendar bool     `json:"calendar,omitempty"`
}

// IsEmpty reports whether no channel has been selected. An empty set means
// the planner derives defaults from severity at dispatch time.
func (c ChannelSet) IsEmpty() bool {
	return len(c.Email) == 0 && len(c.SMS) == 0 && len(c.Call) == 0 && !c.Calendar
}

// Clone returns a deep copy so planner merges never mutate stored preferences.
func (c ChannelSet) Clone() ChannelSet {
	out := ChannelSet{Calendar: c.Calendar}
	if len(c.Email) > 0 {
		out.Email = append([]string(nil), c.Email...)
	}
	if len(c.SMS) > 0 {
		out.SMS = append([]string(nil), c.SMS...)
	}
	if len(c.Call) > 0 {
		out.Call = append([]string(nil), c.Call...)
	}
	return out
}

// Alert is a stored notification obligation tied to a contract and
// optionally a specific risk finding. At most one row exists per
// (contract_id, risk_id, kind); rows with a NULL risk_id are exempt from
// that constraint.
type Alert struct {
	ID         AlertID     `json:"id"`
	ContractID ContractID  `json:"contract_id"`
	RiskID     *RiskID     `json:"risk_id,omitempty"`
	Kind       string      `json:"kind"`
	Severity   int         `json:"severity"`
	Message    string      `json:"message"`
	Channels   ChannelSet  `json:"channels"`
	DueAt      *time.Time  `json:"due_at,omitempty"`
	Status     AlertStatus `json:"status"`
	Attempts   int         `json:"attempts"`
	NotifiedAt *time.Time  `json:"notified_at,omitempty"`
	LastError  *string     `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// UpsertAlertParams is the payload for the (contract, risk, kind) keyed
// upsert. On conflict severity, message, due_at, status, and channels are
// overwritten; passing StatusOpen for an already sent alert deliberately
// re-opens it, which is the caller's responsibility.
type UpsertAlertParams struct {
	ContractID ContractID
	RiskID     *RiskID
	Kind       string
	Severity   int
	Message    string
	DueAt      *time.Time
	Status     AlertStatus
	Channels   ChannelSet
}

// Contacts is the live contact view for a contract owner, derived on each
// dispatch. Absence of an owner yields empty slices, never an error.
type Contacts struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// AlertFilter narrows per-contract alert listings.
type AlertFilter struct {
	Status      AlertStatus
	MinSeverity int
	Limit       int
}

// DefaultAlertListLimit caps per-contract listings when no limit is given.
const DefaultAlertListLimit = 200

// DefaultDispatchBatchLimit bounds how many due alerts one dispatch run
// processes.
const DefaultDispatchBatchLimit = 50
