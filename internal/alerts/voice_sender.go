package alerts

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"log/slog"
)

// VoiceGatewaySender places calls through a voice HTTP gateway. Body text
// is converted to speech-safe form before it leaves the process.
type VoiceGatewaySender struct {
	url       string
	authToken string
	from      string
	client    *http.Client
	logger    *slog.Logger
}

func NewVoiceGatewaySender(opts GatewaySenderOptions) *VoiceGatewaySender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceGatewaySender{
		url:       strings.TrimSpace(opts.URL),
		authToken: opts.AuthToken,
		from:      opts.From,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "voice_sender"),
	}
}

// MakeCall places one call to one number.
func (s *VoiceGatewaySender) MakeCall(ctx context.Context, number, body string) error {
	if s.url == "" {
		return fmt.Errorf("voice gateway is not configured")
	}
	return postGatewayMessage(ctx, s.client, s.url, s.authToken, gatewayMessage{
		To:   number,
		From: s.from,
		Body: SpeechSafeText(body),
	})
}

var (
	markupPattern  = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// SpeechSafeText strips markup and control characters and collapses
// whitespace so the gateway's text-to-speech engine gets plain prose.
func SpeechSafeText(body string) string {
	out := markupPattern.ReplaceAllString(body, " ")
	out = controlPattern.ReplaceAllString(out, " ")
	out = spacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
