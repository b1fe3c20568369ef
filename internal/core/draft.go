package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/pkg/models"
)

const draftSystemPrompt = "You rewrite contract risk notifications. Keep the rewrite to two sentences, " +
	"factual and urgent, and preserve every number and clause name from the input. Reply with the rewritten text only."

// MessageDrafter produces the human-readable alert message for a risk
// finding. When an LLM is configured the templated draft is polished
// through it; any LLM failure falls back to the template so alert
// production never blocks on the model.
type MessageDrafter struct {
	client *openai.Client
	cfg    config.AIConfig
	log    *slog.Logger
}

// NewMessageDrafter builds a drafter from AI config. With AI disabled or no
// API key the drafter still works, returning templated messages only.
func NewMessageDrafter(cfg config.AIConfig, log *slog.Logger) *MessageDrafter {
	d := &MessageDrafter{cfg: cfg, log: log.With("component", "message_drafter")}
	if !cfg.Enabled || cfg.APIKey == "" {
		return d
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	d.client = openai.NewClientWithConfig(clientCfg)
	return d
}

// Draft renders the alert message for a risk finding.
func (d *MessageDrafter) Draft(ctx context.Context, risk *models.Risk) string {
	msg := templateMessage(risk)
	if d.client == nil {
		return msg
	}
	polished, err := d.polish(ctx, msg)
	if err != nil {
		d.log.Warn("LLM polish failed, using templated message", "contract_id", risk.ContractID, "error", err)
		return msg
	}
	return polished
}

func (d *MessageDrafter) polish(ctx context.Context, draft string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.cfg.Model,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: draftSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: draft},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	polished := strings.TrimSpace(resp.Choices[0].Message.Content)
	if polished == "" {
		return "", fmt.Errorf("completion returned empty content")
	}
	return polished, nil
}

func templateMessage(risk *models.Risk) string {
	msg := fmt.Sprintf("High risk (%d/10) detected in clause %q: %s",
		risk.Severity, risk.ClauseType, risk.Rationale)
	if strings.TrimSpace(risk.SuggestedFix) != "" {
		msg += fmt.Sprintf(" Suggested action: %s", risk.SuggestedFix)
	}
	return msg
}
