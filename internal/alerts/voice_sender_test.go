package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSpeechSafeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text passes through",
			in:   "High risk detected in clause termination.",
			want: "High risk detected in clause termination.",
		},
		{
			name: "markup is stripped",
			in:   "<p>High risk</p> detected in <b>clause</b>",
			want: "High risk detected in clause",
		},
		{
			name: "control characters are stripped",
			in:   "line one\x00line\ttwo",
			want: "line one line two",
		},
		{
			name: "whitespace collapses",
			in:   "too    many\n\nspaces  here",
			want: "too many spaces here",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpeechSafeText(tt.in); got != tt.want {
				t.Errorf("SpeechSafeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestVoiceGatewaySender_MakeCall(t *testing.T) {
	var received gatewayMessage
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewVoiceGatewaySender(GatewaySenderOptions{
		URL:       server.URL,
		AuthToken: "voice-token",
		From:      "+15550123",
		Timeout:   5 * time.Second,
		Logger:    slog.New(slog.DiscardHandler),
	})

	err := sender.MakeCall(context.Background(), "+15550100", "<p>Severity 9</p> alert")
	if err != nil {
		t.Fatalf("MakeCall() error = %v", err)
	}
	if gotAuth != "Bearer voice-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if received.To != "+15550100" {
		t.Errorf("message.To = %q, want recipient number", received.To)
	}
	if received.Body != "Severity 9 alert" {
		t.Errorf("message.Body = %q, want speech-safe text", received.Body)
	}
}

func TestSMSGatewaySender_SendSMS_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := NewSMSGatewaySender(GatewaySenderOptions{
		URL:     server.URL,
		Timeout: 5 * time.Second,
		Logger:  slog.New(slog.DiscardHandler),
	})

	if err := sender.SendSMS(context.Background(), "+15550100", "test"); err == nil {
		t.Error("SendSMS() expected error on non-2xx response")
	}
}
