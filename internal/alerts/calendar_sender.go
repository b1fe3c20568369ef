package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"
)

// CalendarGatewaySender creates events through a calendar HTTP gateway.
// The dispatcher treats its failures as non-fatal.
type CalendarGatewaySender struct {
	url       string
	authToken string
	client    *http.Client
	logger    *slog.Logger
}

type calendarEvent struct {
	Summary   string    `json:"summary"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendees []string  `json:"attendees,omitempty"`
}

func NewCalendarGatewaySender(opts GatewaySenderOptions) *CalendarGatewaySender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarGatewaySender{
		url:       strings.TrimSpace(opts.URL),
		authToken: opts.AuthToken,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "calendar_sender"),
	}
}

// AddEvent creates one calendar event.
func (s *CalendarGatewaySender) AddEvent(ctx context.Context, summary string, start, end time.Time, attendees []string) error {
	if s.url == "" {
		return fmt.Errorf("calendar gateway is not configured")
	}
	payload, err := json.Marshal(calendarEvent{
		Summary:   summary,
		Start:     start,
		End:       end,
		Attendees: attendees,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal calendar event: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create calendar request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(response.Body)
		trimmed := strings.TrimSpace(string(responseBody))
		if trimmed == "" {
			trimmed = response.Status
		}
		return fmt.Errorf("calendar gateway returned status %d (%s)", response.StatusCode, trimmed)
	}
	return nil
}
