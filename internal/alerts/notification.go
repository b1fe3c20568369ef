package alerts

import (
	"context"
	"time"
)

// EmailSender delivers one message to all recipients in a single call; it
// either fully succeeds or returns an error.
type EmailSender interface {
	SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) error
}

// SMSSender delivers one text message to one number.
type SMSSender interface {
	SendSMS(ctx context.Context, number, body string) error
}

// VoiceSender places one call to one number. Implementations receive text
// already sanitized for speech synthesis.
type VoiceSender interface {
	MakeCall(ctx context.Context, number, body string) error
}

// CalendarSender creates a calendar event. Calendar delivery is best-effort:
// the dispatcher logs and swallows its errors, so a failure here never
// affects an alert's status.
type CalendarSender interface {
	AddEvent(ctx context.Context, summary string, start, end time.Time, attendees []string) error
}

// Senders bundles the channel senders the dispatcher delivers through.
// A nil sender disables its channel.
type Senders struct {
	Email    EmailSender
	SMS      SMSSender
	Voice    VoiceSender
	Calendar CalendarSender
}
