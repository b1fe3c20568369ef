package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Options{
		Logger: slog.New(slog.DiscardHandler),
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func seedContract(t *testing.T, db *DB, id models.ContractID, userID *models.UserID) {
	t.Helper()

	contract := &models.Contract{
		ID:     id,
		UserID: userID,
		Title:  "MSA with " + string(id),
	}
	if err := db.CreateContract(context.Background(), contract); err != nil {
		t.Fatalf("failed to seed contract %s: %v", id, err)
	}
}

func seedRisk(t *testing.T, db *DB, contractID models.ContractID, severity int) models.RiskID {
	t.Helper()

	risk := &models.Risk{
		ContractID: contractID,
		ClauseType: "liability",
		Severity:   severity,
		RuleID:     "LIAB-001",
		Rationale:  "uncapped liability",
	}
	if err := db.CreateRisk(context.Background(), risk); err != nil {
		t.Fatalf("failed to seed risk: %v", err)
	}
	return risk.ID
}

func TestUpsertAlert_DedupByKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)
	riskID := seedRisk(t, db, "c-1", 9)

	first, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		RiskID:     &riskID,
		Kind:       models.AlertKindRiskHigh,
		Severity:   7,
		Message:    "initial finding",
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if first.Status != models.AlertStatusOpen {
		t.Errorf("expected default status open, got %s", first.Status)
	}

	due := time.Now().UTC().Add(24 * time.Hour)
	second, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		RiskID:     &riskID,
		Kind:       models.AlertKindRiskHigh,
		Severity:   9,
		Message:    "rescored finding",
		DueAt:      &due,
		Channels:   models.ChannelSet{Email: []string{"counsel@acme.com"}},
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected upsert to reuse row %d, got %d", first.ID, second.ID)
	}
	if second.Severity != 9 {
		t.Errorf("expected severity overwritten to 9, got %d", second.Severity)
	}
	if second.Message != "rescored finding" {
		t.Errorf("expected message overwritten, got %q", second.Message)
	}
	if second.DueAt == nil {
		t.Error("expected due_at to be set after upsert")
	}
	if len(second.Channels.Email) != 1 || second.Channels.Email[0] != "counsel@acme.com" {
		t.Errorf("expected stored channel preferences, got %+v", second.Channels)
	}
}

func TestUpsertAlert_NullRiskNotDeduped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)

	first, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		Kind:       models.AlertKindRenewalNotice,
		Severity:   3,
		Message:    "renewal in 30 days",
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	second, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		Kind:       models.AlertKindRenewalNotice,
		Severity:   3,
		Message:    "renewal in 7 days",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	// NULL risk_id rows are exempt from the dedup constraint.
	if second.ID == first.ID {
		t.Errorf("expected distinct rows for NULL risk_id, both got id %d", first.ID)
	}
}

func TestListDueAlerts_FilteringAndOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)

	now := time.Now().UTC()
	past := now.Add(-2 * time.Hour)
	future := now.Add(48 * time.Hour)

	mustUpsert := func(kind string, dueAt *time.Time, status models.AlertStatus) *models.Alert {
		t.Helper()
		alert, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
			ContractID: "c-1",
			Kind:       kind,
			Severity:   5,
			Message:    "msg",
			DueAt:      dueAt,
			Status:     status,
		})
		if err != nil {
			t.Fatalf("upsert %s failed: %v", kind, err)
		}
		return alert
	}

	pastDue := mustUpsert("past_due", &past, models.AlertStatusOpen)
	noDue := mustUpsert("no_due", nil, models.AlertStatusOpen)
	pending := mustUpsert("pending_no_due", nil, models.AlertStatusPending)
	mustUpsert("future_due", &future, models.AlertStatusOpen)
	mustUpsert("already_sent", &past, models.AlertStatusSent)
	mustUpsert("gone_dead", &past, models.AlertStatusDead)

	exhausted := mustUpsert("exhausted", &past, models.AlertStatusOpen)
	if _, err := db.MarkAlertFailed(ctx, exhausted.ID, "smtp timeout", 10); err != nil {
		t.Fatalf("failed to bump attempts: %v", err)
	}

	// attempts < 1 excludes the exhausted alert (one recorded attempt).
	alerts, err := db.ListDueAlerts(ctx, 10, 1)
	if err != nil {
		t.Fatalf("ListDueAlerts failed: %v", err)
	}

	if len(alerts) != 3 {
		t.Fatalf("expected 3 due alerts, got %d", len(alerts))
	}
	// Past due first, then NULL due treated as now, ties broken by id.
	wantOrder := []models.AlertID{pastDue.ID, noDue.ID, pending.ID}
	for i, want := range wantOrder {
		if alerts[i].ID != want {
			t.Errorf("position %d: expected alert %d, got %d (%s)", i, want, alerts[i].ID, alerts[i].Kind)
		}
	}
}

func TestListDueAlerts_RespectsLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)

	for _, kind := range []string{"a", "b", "c"} {
		if _, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
			ContractID: "c-1",
			Kind:       kind,
			Severity:   5,
			Message:    "msg",
		}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	alerts, err := db.ListDueAlerts(ctx, 2, 3)
	if err != nil {
		t.Fatalf("ListDueAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("expected limit of 2 to apply, got %d alerts", len(alerts))
	}
}

func TestMarkAlertSent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)

	alert, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		Kind:       models.AlertKindRiskHigh,
		Severity:   8,
		Message:    "msg",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := db.MarkAlertSent(ctx, alert.ID); err != nil {
		t.Fatalf("MarkAlertSent failed: %v", err)
	}

	got, err := db.GetAlert(ctx, alert.ID)
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if got.Status != models.AlertStatusSent {
		t.Errorf("expected status sent, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
	if got.NotifiedAt == nil {
		t.Error("expected notified_at to be stamped")
	}
	if got.LastError != nil {
		t.Errorf("expected last_error cleared, got %q", *got.LastError)
	}

	// Already sent: the conditional update matches nothing.
	if err := db.MarkAlertSent(ctx, alert.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on repeat send, got %v", err)
	}
}

func TestMarkAlertFailed_DeadAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)

	alert, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
		ContractID: "c-1",
		Kind:       models.AlertKindRiskHigh,
		Severity:   8,
		Message:    "msg",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	status, err := db.MarkAlertFailed(ctx, alert.ID, "connection refused", 2)
	if err != nil {
		t.Fatalf("first MarkAlertFailed failed: %v", err)
	}
	if status != models.AlertStatusFailed {
		t.Errorf("expected failed after first attempt, got %s", status)
	}

	status, err = db.MarkAlertFailed(ctx, alert.ID, "connection refused", 2)
	if err != nil {
		t.Fatalf("second MarkAlertFailed failed: %v", err)
	}
	if status != models.AlertStatusDead {
		t.Errorf("expected dead after exhausting attempts, got %s", status)
	}

	got, err := db.GetAlert(ctx, alert.ID)
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if got.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", got.Attempts)
	}
	if got.LastError == nil || *got.LastError != "connection refused" {
		t.Errorf("expected last_error retained, got %v", got.LastError)
	}

	// Dead is terminal.
	if _, err := db.MarkAlertFailed(ctx, alert.ID, "late failure", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on dead alert, got %v", err)
	}
}

func TestGetAlert_NotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GetAlert(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAlertsByContract_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedContract(t, db, "c-1", nil)
	seedContract(t, db, "c-2", nil)

	mustUpsert := func(contractID models.ContractID, kind string, severity int, status models.AlertStatus) *models.Alert {
		t.Helper()
		alert, err := db.UpsertAlert(ctx, models.UpsertAlertParams{
			ContractID: contractID,
			Kind:       kind,
			Severity:   severity,
			Message:    "msg",
			Status:     status,
		})
		if err != nil {
			t.Fatalf("upsert %s failed: %v", kind, err)
		}
		return alert
	}

	low := mustUpsert("c-1", "low", 3, models.AlertStatusOpen)
	high := mustUpsert("c-1", "high", 9, models.AlertStatusOpen)
	sent := mustUpsert("c-1", "sent", 6, models.AlertStatusSent)
	mustUpsert("c-2", "other_contract", 9, models.AlertStatusOpen)

	t.Run("all for contract, severity descending", func(t *testing.T) {
		alerts, err := db.ListAlertsByContract(ctx, "c-1", models.AlertFilter{})
		if err != nil {
			t.Fatalf("ListAlertsByContract failed: %v", err)
		}
		if len(alerts) != 3 {
			t.Fatalf("expected 3 alerts, got %d", len(alerts))
		}
		wantOrder := []models.AlertID{high.ID, sent.ID, low.ID}
		for i, want := range wantOrder {
			if alerts[i].ID != want {
				t.Errorf("position %d: expected alert %d, got %d", i, want, alerts[i].ID)
			}
		}
	})

	t.Run("min severity", func(t *testing.T) {
		alerts, err := db.ListAlertsByContract(ctx, "c-1", models.AlertFilter{MinSeverity: 6})
		if err != nil {
			t.Fatalf("ListAlertsByContract failed: %v", err)
		}
		if len(alerts) != 2 {
			t.Errorf("expected 2 alerts at severity >= 6, got %d", len(alerts))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		alerts, err := db.ListAlertsByContract(ctx, "c-1", models.AlertFilter{Status: models.AlertStatusSent})
		if err != nil {
			t.Fatalf("ListAlertsByContract failed: %v", err)
		}
		if len(alerts) != 1 || alerts[0].ID != sent.ID {
			t.Errorf("expected only the sent alert, got %d alerts", len(alerts))
		}
	})
}
