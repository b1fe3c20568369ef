package core

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/pkg/models"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		severity  int
		threshold int
		want      bool
	}{
		{severity: 7, threshold: 8, want: false},
		{severity: 8, threshold: 8, want: true},
		{severity: 9, threshold: 8, want: true},
		{severity: 0, threshold: 8, want: false},
		{severity: 10, threshold: 10, want: true},
	}

	for _, tt := range tests {
		if got := ShouldAlert(tt.severity, tt.threshold); got != tt.want {
			t.Errorf("ShouldAlert(%d, %d) = %v, want %v", tt.severity, tt.threshold, got, tt.want)
		}
	}
}

func TestDeriveDueAt(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		texts    []string
		wantDays int
		wantNil  bool
	}{
		{
			name:     "explicit day count",
			texts:    []string{"termination requires 30 day notice"},
			wantDays: 30,
		},
		{
			name:     "plural days",
			texts:    []string{"must cure within 14 days of notice"},
			wantDays: 14,
		},
		{
			name:     "no space before day",
			texts:    []string{"7day remediation window"},
			wantDays: 7,
		},
		{
			name:     "uppercase",
			texts:    []string{"Breach must be cured in 45 DAYS"},
			wantDays: 45,
		},
		{
			name:     "first text wins",
			texts:    []string{"respond within 10 days", "or 90 days otherwise"},
			wantDays: 10,
		},
		{
			name:     "falls through to second text",
			texts:    []string{"auto-renews annually", "notice period of 60 days"},
			wantDays: 60,
		},
		{
			name:    "no deadline mentioned",
			texts:   []string{"unlimited liability with no cap"},
			wantNil: true,
		},
		{
			name:    "zero days ignored",
			texts:   []string{"0 day window"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveDueAt(now, tt.texts...)
			if tt.wantNil {
				if got != nil {
					t.Errorf("DeriveDueAt() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("DeriveDueAt() = nil, want a deadline")
			}
			want := now.Add(time.Duration(tt.wantDays) * 24 * time.Hour)
			if !got.Equal(want) {
				t.Errorf("DeriveDueAt() = %v, want %v", got, want)
			}
		})
	}
}

func TestClampSeverity(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: 0},
		{in: 0, want: 0},
		{in: 7, want: 7},
		{in: 10, want: 10},
		{in: 99, want: 10},
	}

	for _, tt := range tests {
		if got := clampSeverity(tt.in); got != tt.want {
			t.Errorf("clampSeverity(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTemplateMessage(t *testing.T) {
	risk := &models.Risk{
		Severity:     9,
		ClauseType:   "termination",
		Rationale:    "unilateral termination without notice",
		SuggestedFix: "add 30 day notice requirement",
	}

	msg := templateMessage(risk)
	if !strings.Contains(msg, "9/10") {
		t.Errorf("message %q missing severity score", msg)
	}
	if !strings.Contains(msg, `"termination"`) {
		t.Errorf("message %q missing clause type", msg)
	}
	if !strings.Contains(msg, "Suggested action: add 30 day notice requirement") {
		t.Errorf("message %q missing suggested action", msg)
	}

	risk.SuggestedFix = ""
	msg = templateMessage(risk)
	if strings.Contains(msg, "Suggested action") {
		t.Errorf("message %q should omit suggested action when no fix given", msg)
	}
}

// With AI disabled the drafter must return the templated message directly.
func TestMessageDrafter_Disabled(t *testing.T) {
	drafter := NewMessageDrafter(config.AIConfig{Enabled: false}, slog.New(slog.DiscardHandler))

	risk := &models.Risk{
		Severity:   8,
		ClauseType: "liability",
		Rationale:  "uncapped indemnification",
	}

	got := drafter.Draft(context.Background(), risk)
	if got != templateMessage(risk) {
		t.Errorf("Draft() = %q, want templated message", got)
	}
}

func TestValidateRiskFinding(t *testing.T) {
	tests := []struct {
		name    string
		req     models.RiskFindingRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  models.RiskFindingRequest{ClauseType: "termination", RuleID: "TERM-001"},
		},
		{
			name:    "missing clause type",
			req:     models.RiskFindingRequest{RuleID: "TERM-001"},
			wantErr: true,
		},
		{
			name:    "missing rule id",
			req:     models.RiskFindingRequest{ClauseType: "termination"},
			wantErr: true,
		},
		{
			name:    "whitespace only clause type",
			req:     models.RiskFindingRequest{ClauseType: "   ", RuleID: "TERM-001"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRiskFinding(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRiskFinding() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
