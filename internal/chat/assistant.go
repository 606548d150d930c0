package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/franklinsmiles/webchat/internal/observability/metrics"
	"github.com/franklinsmiles/webchat/pkg/logging"
)

// Fallback texts. The remote service is flavor-text generation, never on
// the critical path: every operation has a deterministic local substitute.
const (
	fallbackGreetingError = "Welcome back! It's great to see you again. How can we help with your smile today?"
	fallbackGreetingEmpty = "Welcome back to Franklin Bright Smiles! How can I help you today?"
	fallbackSympathyError = "I understand your concern. Would you like to book an appointment to have this looked at?"
	fallbackSympathyEmpty = "I understand your concern. The best next step is a consultation with our specialists."
)

const (
	extractionTemperature = 0.1
	maxExtractedNameLen   = 50
	minExtractedNameLen   = 2
)

// Assistant wraps the three remote-response operations the dispatcher
// uses. All three are fail-soft: they return a usable value on every
// path and never propagate transport or parse errors to the caller.
type Assistant struct {
	llm     LLMClient
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
}

// NewAssistant creates an assistant over the given completion client.
func NewAssistant(llm LLMClient, logger *logging.Logger, m *metrics.ChatMetrics) *Assistant {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assistant{llm: llm, logger: logger, metrics: m}
}

// Greeting asks the remote service for a contextual greeting. Failures
// and empty responses fall back to fixed on-brand strings.
func (a *Assistant) Greeting(ctx context.Context, utterance, historySummary, userName string) string {
	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      []string{greetingSystemPrompt(historySummary, userName)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf("The user says: %q", utterance)}},
		Temperature: -1,
	})
	if err != nil {
		a.logger.Warn("chat: greeting generation failed", "error", err)
		a.metrics.ObserveFallback("greeting")
		return fallbackGreetingError
	}
	if resp.Text == "" {
		a.metrics.ObserveFallback("greeting")
		return fallbackGreetingEmpty
	}
	a.logger.Debug("chat: greeting generated",
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text
}

// SympatheticReply asks for an empathetic reply to a described concern
// plus a call to action. Same fail-soft policy as Greeting.
func (a *Assistant) SympatheticReply(ctx context.Context, issue, userName string) string {
	resp, err := a.llm.Complete(ctx, LLMRequest{
		System:      []string{sympathySystemPrompt(issue, userName)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf("A user has shared this dental concern/interest: %q.", issue)}},
		Temperature: -1,
	})
	if err != nil {
		a.logger.Warn("chat: sympathetic reply generation failed", "error", err)
		a.metrics.ObserveFallback("sympathy")
		return fallbackSympathyError
	}
	if resp.Text == "" {
		a.metrics.ObserveFallback("sympathy")
		return fallbackSympathyEmpty
	}
	return resp.Text
}

// ExtractName attempts to pull a self-introduced name out of the
// utterance. Low-variance decoding; any failure or implausible result is
// reported as absent, never as an error.
func (a *Assistant) ExtractName(ctx context.Context, utterance string) (string, bool) {
	resp, err := a.llm.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: nameExtractionPrompt(utterance)}},
		Temperature: extractionTemperature,
	})
	if err != nil {
		a.logger.Debug("chat: name extraction failed", "error", err)
		a.metrics.ObserveFallback("name_extraction")
		return "", false
	}

	name := strings.TrimSpace(strings.ReplaceAll(resp.Text, ".", ""))
	if strings.EqualFold(name, "NONE") {
		return "", false
	}
	if n := len([]rune(name)); n < minExtractedNameLen || n > maxExtractedNameLen {
		return "", false
	}
	return name, true
}
