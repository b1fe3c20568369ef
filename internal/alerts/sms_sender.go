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

// GatewaySenderOptions configures the HTTP messaging gateway senders.
type GatewaySenderOptions struct {
	URL       string
	AuthToken string
	From      string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// SMSGatewaySender posts one message per number to an SMS HTTP gateway.
// Each number fails independently; the dispatcher calls it once per number.
type SMSGatewaySender struct {
	url       string
	authToken string
	from      string
	client    *http.Client
	logger    *slog.Logger
}

type gatewayMessage struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

func NewSMSGatewaySender(opts GatewaySenderOptions) *SMSGatewaySender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSGatewaySender{
		url:       strings.TrimSpace(opts.URL),
		authToken: opts.AuthToken,
		from:      opts.From,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "sms_sender"),
	}
}

// SendSMS delivers one text message to one number.
func (s *SMSGatewaySender) SendSMS(ctx context.Context, number, body string) error {
	if s.url == "" {
		return fmt.Errorf("sms gateway is not configured")
	}
	return postGatewayMessage(ctx, s.client, s.url, s.authToken, gatewayMessage{
		To:   number,
		From: s.from,
		Body: body,
	})
}

func postGatewayMessage(ctx context.Context, client *http.Client, url, authToken string, msg gatewayMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway payload: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		request.Header.Set("Authorization", "Bearer "+authToken)
	}
	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(response.Body)
		trimmed := strings.TrimSpace(string(responseBody))
		if trimmed == "" {
			trimmed = response.Status
		}
		return fmt.Errorf("gateway returned status %d (%s)", response.StatusCode, trimmed)
	}
	return nil
}
