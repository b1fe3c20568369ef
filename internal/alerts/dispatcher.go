package alerts

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/internal/template"
	"github.com/devphilip/clausewatch/pkg/models"
)

// ErrRunInProgress is returned when a dispatch run is requested while a
// previous run has not finished. Overlapping runs could double-deliver.
var ErrRunInProgress = errors.New("dispatch run already in progress")

// AlertStore is the durable alert state the dispatcher consumes.
type AlertStore interface {
	ListDueAlerts(ctx context.Context, limit, maxAttempts int) ([]*models.Alert, error)
	MarkAlertSent(ctx context.Context, alertID models.AlertID) error
	MarkAlertFailed(ctx context.Context, alertID models.AlertID, errText string, maxAttempts int) (models.AlertStatus, error)
}

// AuditWriter records pipeline decisions. Audit failures are logged and
// never affect delivery.
type AuditWriter interface {
	InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error
}

// Options encapsulates the dependencies required to run the dispatcher.
type Options struct {
	Config   config.AlertsConfig
	Store    AlertStore
	Resolver ContactResolver
	Senders  Senders
	Audit    AuditWriter // optional
	Logger   *slog.Logger
}

// Dispatcher orchestrates the alert delivery cycle: fetch due alerts, plan
// channels, resolve contacts, merge, deliver, and record the outcome.
// Alerts are processed sequentially so burst load on the external channel
// services stays bounded and failure attribution stays per-alert.
type Dispatcher struct {
	cfg      config.AlertsConfig
	store    AlertStore
	resolver ContactResolver
	planner  Planner
	senders  Senders
	audit    AuditWriter
	log      *slog.Logger

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup

	runsTotal   *metrics.Counter
	sentTotal   *metrics.Counter
	failedTotal *metrics.Counter
	deadTotal   *metrics.Counter
}

// NewDispatcher constructs a dispatcher instance.
func NewDispatcher(opts Options) *Dispatcher {
	return &Dispatcher{
		cfg:      opts.Config,
		store:    opts.Store,
		resolver: opts.Resolver,
		planner: Planner{
			SeverityThreshold: opts.Config.SeverityThreshold,
			FallbackEmail:     opts.Config.FallbackEmail,
		},
		senders:     opts.Senders,
		audit:       opts.Audit,
		log:         opts.Logger.With("component", "alert_dispatcher"),
		stop:        make(chan struct{}),
		runsTotal:   metrics.GetOrCreateCounter(`clausewatch_dispatch_runs_total`),
		sentTotal:   metrics.GetOrCreateCounter(`clausewatch_alerts_sent_total`),
		failedTotal: metrics.GetOrCreateCounter(`clausewatch_alerts_failed_total`),
		deadTotal:   metrics.GetOrCreateCounter(`clausewatch_alerts_dead_total`),
	}
}

// Start launches the periodic dispatch loop. It is a no-op when alerting
// is disabled.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.cfg.Enabled {
		d.log.Info("alert dispatch disabled; dispatcher will not start")
		return
	}
	interval := d.cfg.DispatchInterval
	if interval <= 0 {
		interval = time.Minute
	}
	d.log.Info("starting alert dispatcher", "interval", interval)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run once at startup so overdue alerts go out promptly.
		d.runScheduled(ctx)

		for {
			select {
			case <-ticker.C:
				d.runScheduled(ctx)
			case <-d.stop:
				d.log.Info("alert dispatcher stopping")
				return
			case <-ctx.Done():
				d.log.Info("alert dispatcher context cancelled")
				return
			}
		}
	}()
}

// Stop signals the dispatch loop to stop and waits for it.
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Dispatcher) runScheduled(ctx context.Context) {
	sent, err := d.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		// A previous tick is still delivering; coalesce.
		d.log.Debug("skipping dispatch tick, previous run still in flight")
	case err != nil:
		d.log.Error("dispatch run failed", "error", err)
	default:
		d.log.Debug("dispatch run complete", "sent", sent)
	}
}

// RunOnce executes one dispatch cycle over a bounded batch of due alerts
// and returns the number fully delivered. It is safe to invoke repeatedly:
// delivered alerts are not re-selected, and overlapping invocations are
// rejected with ErrRunInProgress.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if !d.running.CompareAndSwap(false, true) {
		return 0, ErrRunInProgress
	}
	defer d.running.Store(false)

	d.runsTotal.Inc()

	alerts, err := d.store.ListDueAlerts(ctx, d.cfg.BatchLimit, d.cfg.MaxAttempts)
	if err != nil {
		// Without the due list the whole run is useless; surface it.
		return 0, fmt.Errorf("failed to fetch due alerts: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}
	d.log.Info("dispatching due alerts", "count", len(alerts))

	sent := 0
	for _, alert := range alerts {
		if err := d.deliverAlert(ctx, alert); err != nil {
			d.log.Error("alert delivery failed", "alert_id", alert.ID, "contract_id", alert.ContractID, "error", err)
			d.recordFailure(ctx, alert, err)
			continue
		}
		if err := d.store.MarkAlertSent(ctx, alert.ID); err != nil {
			// The alert was delivered but its state is now unknown; leave
			// it for re-selection rather than silently losing the failure.
			d.log.Error("delivered alert but failed to persist sent status; true state unknown",
				"alert_id", alert.ID, "error", err)
			continue
		}
		sent++
		d.sentTotal.Inc()
		d.writeAudit(ctx, alert, models.AuditEventAlertSent, "")
	}
	return sent, nil
}

// deliverAlert plans, resolves, merges, and delivers one alert through the
// primary channels in fixed order: email, SMS, voice. Calendar runs last
// and never fails the alert.
func (d *Dispatcher) deliverAlert(ctx context.Context, alert *models.Alert) error {
	planned := d.planner.Plan(alert)

	contacts, err := d.resolver.Resolve(ctx, alert.ContractID)
	if err != nil {
		return fmt.Errorf("failed to resolve contacts: %w", err)
	}

	channels := d.planner.Merge(planned, contacts)

	subject := d.renderSubject(alert)
	bodyText := alert.Message
	if bodyText == "" {
		bodyText = "(no message)"
	}

	if len(channels.Email) > 0 {
		if d.senders.Email == nil {
			d.log.Warn("email channel planned but no sender configured", "alert_id", alert.ID)
		} else {
			htmlBody := fmt.Sprintf("<p>%s</p><p>Contract ID: %s</p>",
				html.EscapeString(bodyText), html.EscapeString(string(alert.ContractID)))
			if err := d.withTimeout(ctx, func(callCtx context.Context) error {
				return d.senders.Email.SendEmail(callCtx, channels.Email, subject, htmlBody)
			}); err != nil {
				return fmt.Errorf("email delivery failed: %w", err)
			}
		}
	}

	if len(channels.SMS) > 0 && d.senders.SMS != nil {
		for _, number := range channels.SMS {
			number := number
			if err := d.withTimeout(ctx, func(callCtx context.Context) error {
				return d.senders.SMS.SendSMS(callCtx, number, subject+": "+bodyText)
			}); err != nil {
				return fmt.Errorf("sms delivery to %s failed: %w", number, err)
			}
		}
	}

	if len(channels.Call) > 0 && d.senders.Voice != nil {
		for _, number := range channels.Call {
			number := number
			if err := d.withTimeout(ctx, func(callCtx context.Context) error {
				return d.senders.Voice.MakeCall(callCtx, number, subject+": "+bodyText)
			}); err != nil {
				return fmt.Errorf("voice delivery to %s failed: %w", number, err)
			}
		}
	}

	if channels.Calendar && d.senders.Calendar != nil {
		start := time.Now().UTC()
		if alert.DueAt != nil {
			start = *alert.DueAt
		}
		if err := d.withTimeout(ctx, func(callCtx context.Context) error {
			return d.senders.Calendar.AddEvent(callCtx, subject, start, start, channels.Email)
		}); err != nil {
			// Calendar is a cosmetic side channel, never a primary one.
			d.log.Warn("calendar event creation failed", "alert_id", alert.ID, "error", err)
		}
	}

	return nil
}

// renderSubject fills the configured subject template; template errors fall
// back to a fixed format so delivery never depends on template validity.
func (d *Dispatcher) renderSubject(alert *models.Alert) string {
	if d.cfg.SubjectTemplate != "" {
		subject, err := template.Substitute(d.cfg.SubjectTemplate, map[string]string{
			"kind":        alert.Kind,
			"severity":    fmt.Sprintf("%d", alert.Severity),
			"contract_id": string(alert.ContractID),
		})
		if err == nil {
			return subject
		}
		d.log.Warn("invalid subject template, using default", "error", err)
	}
	return fmt.Sprintf("[Contract Alert] %s (sev %d)", alert.Kind, alert.Severity)
}

func (d *Dispatcher) recordFailure(ctx context.Context, alert *models.Alert, deliveryErr error) {
	status, err := d.store.MarkAlertFailed(ctx, alert.ID, deliveryErr.Error(), d.cfg.MaxAttempts)
	if err != nil {
		d.log.Error("failed to persist alert failure", "alert_id", alert.ID, "error", err)
		return
	}
	if status == models.AlertStatusDead {
		d.deadTotal.Inc()
		d.log.Warn("alert exhausted retry budget", "alert_id", alert.ID, "attempts", alert.Attempts+1)
		d.writeAudit(ctx, alert, models.AuditEventAlertDead, deliveryErr.Error())
		return
	}
	d.failedTotal.Inc()
	d.writeAudit(ctx, alert, models.AuditEventAlertFailed, deliveryErr.Error())
}

func (d *Dispatcher) writeAudit(ctx context.Context, alert *models.Alert, event, detail string) {
	if d.audit == nil {
		return
	}
	payload := fmt.Sprintf(`{"alert_id":%d,"kind":%q,"severity":%d`, alert.ID, alert.Kind, alert.Severity)
	if detail != "" {
		payload += fmt.Sprintf(`,"error":%q`, detail)
	}
	payload += "}"
	if err := d.audit.InsertAuditEvent(ctx, &models.AuditEvent{
		ContractID: alert.ContractID,
		Event:      event,
		Payload:    payload,
	}); err != nil {
		d.log.Warn("failed to write audit event", "alert_id", alert.ID, "event", event, "error", err)
	}
}

// withTimeout bounds one external call so a hung channel service cannot
// stall the whole run.
func (d *Dispatcher) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	timeout := d.cfg.NotificationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}
