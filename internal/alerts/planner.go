package alerts

import (
	"github.com/devphilip/clausewatch/pkg/models"
)

// Planner derives the channel set for an alert and merges in resolved
// contact methods. Both operations are pure; repeated planning on retry
// produces the same recipient lists.
type Planner struct {
	// SeverityThreshold is the cutoff at or above which the default plan
	// escalates beyond email.
	SeverityThreshold int
	// FallbackEmail is injected when a merged plan would otherwise have no
	// email recipient, so no alert is silently undeliverable.
	FallbackEmail string
}

// Plan returns the initial channel selection for an alert. A non-empty
// stored preference wins verbatim; otherwise defaults derive from severity:
// high severity gets email, SMS, voice, and a calendar event, everything
// else gets email only.
func (p Planner) Plan(alert *models.Alert) models.ChannelSet {
	if !alert.Channels.IsEmpty() {
		return alert.Channels.Clone()
	}
	if alert.Severity >= p.SeverityThreshold {
		return models.ChannelSet{
			Email:    []string{},
			SMS:      []string{},
			Call:     []string{},
			Calendar: true,
		}
	}
	return models.ChannelSet{Email: []string{}}
}

// Merge unions the planned recipients with the contract owner's contacts.
// Existing entries keep their position; new contacts are appended with the
// first occurrence kept. Phones feed both SMS and voice. The calendar flag
// passes through unchanged. If the merged email list is empty the fallback
// address is injected; SMS and voice get no fallback, those channels are
// simply skipped when empty.
func (p Planner) Merge(planned models.ChannelSet, contacts models.Contacts) models.ChannelSet {
	merged := planned.Clone()
	merged.Email = dedupAppend(merged.Email, contacts.Emails)
	if len(merged.Email) == 0 {
		merged.Email = []string{p.FallbackEmail}
	}
	merged.SMS = dedupAppend(merged.SMS, contacts.Phones)
	merged.Call = dedupAppend(merged.Call, contacts.Phones)
	return merged
}

// dedupAppend appends extra onto base, dropping empties and duplicates
// while preserving order of first occurrence.
func dedupAppend(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
