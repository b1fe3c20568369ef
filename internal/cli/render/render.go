// Package render provides output rendering for the clausewatch CLI.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/devphilip/clausewatch/pkg/models"
)

// Options configures the renderer.
type Options struct {
	Format string // table, json
	Color  bool
}

// Renderer renders alert listings.
type Renderer struct {
	opts Options
}

// New creates a new renderer.
func New(opts Options) (*Renderer, error) {
	if opts.Format == "" {
		opts.Format = "table"
	}
	switch opts.Format {
	case "table", "json":
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: table, json)", opts.Format)
	}
	return &Renderer{opts: opts}, nil
}

// RenderAlerts writes the alert list in the configured format.
func (r *Renderer) RenderAlerts(w io.Writer, alerts []*models.Alert) error {
	if r.opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(alerts)
	}
	return r.renderTable(w, alerts)
}

func (r *Renderer) renderTable(w io.Writer, alerts []*models.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, "No alerts.")
		return err
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("ID", "CONTRACT", "KIND", "SEV", "STATUS", "DUE", "CHANNELS")

	for _, alert := range alerts {
		t.Row(
			fmt.Sprintf("%d", alert.ID),
			shorten(string(alert.ContractID), 12),
			alert.Kind,
			fmt.Sprintf("%d", alert.Severity),
			string(alert.Status),
			formatDue(alert.DueAt),
			formatChannels(alert.Channels),
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.UTC().Format("2006-01-02 15:04")
}

func formatChannels(c models.ChannelSet) string {
	if c.IsEmpty() {
		return "auto"
	}
	var parts []string
	if len(c.Email) > 0 {
		parts = append(parts, fmt.Sprintf("email:%d", len(c.Email)))
	}
	if len(c.SMS) > 0 {
		parts = append(parts, fmt.Sprintf("sms:%d", len(c.SMS)))
	}
	if len(c.Call) > 0 {
		parts = append(parts, fmt.Sprintf("call:%d", len(c.Call)))
	}
	if c.Calendar {
		parts = append(parts, "calendar")
	}
	return strings.Join(parts, ",")
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
