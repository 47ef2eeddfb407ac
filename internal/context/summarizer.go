package ctxengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/bionic/internal/provider"
	"github.com/flemzord/bionic/pkg/message"
)

// ErrSummaryFailed indicates that summarization could not produce a summary.
var ErrSummaryFailed = errors.New("ctxengine: summarization failed")

// Summarizer produces a condensed summary of a conversation segment.
// An empty summary is treated as a failure by callers.
type Summarizer interface {
	Summarize(ctx context.Context, messages []*message.Message) (string, error)
}

// SummarizerFunc adapts a plain function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, messages []*message.Message) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, messages []*message.Message) (string, error) {
	return f(ctx, messages)
}

// DefaultSummaryPrompt instructs the model how to condense a chat log.
const DefaultSummaryPrompt = "You summarize chat logs for a conversational agent. " +
	"Write a concise summary of the conversation below in the language it is written in. " +
	"Keep who said what when it matters, open questions, decisions and facts worth remembering. " +
	"Do not add commentary. Answer with the summary only."

// defaultSummaryTokens bounds the length of a generated summary.
const defaultSummaryTokens = 1024

// ProviderSummarizer summarizes through a text-generation provider.
type ProviderSummarizer struct {
	provider  provider.Provider
	prompt    string
	maxTokens int
}

var _ Summarizer = (*ProviderSummarizer)(nil)

// NewProviderSummarizer creates a ProviderSummarizer. An empty prompt
// selects DefaultSummaryPrompt; maxTokens <= 0 selects 1024.
func NewProviderSummarizer(p provider.Provider, prompt string, maxTokens int) *ProviderSummarizer {
	if prompt == "" {
		prompt = DefaultSummaryPrompt
	}
	if maxTokens <= 0 {
		maxTokens = defaultSummaryTokens
	}
	return &ProviderSummarizer{provider: p, prompt: prompt, maxTokens: maxTokens}
}

// Summarize renders messages as a transcript and asks the provider for a
// summary. A blank answer yields ErrSummaryFailed.
func (s *ProviderSummarizer) Summarize(ctx context.Context, messages []*message.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrSummaryFailed)
	}

	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role()))
		b.WriteString(": ")
		b.WriteString(m.Display())
		b.WriteByte('\n')
	}

	resp, err := s.provider.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: s.prompt},
			{Role: provider.MessageRoleUser, Content: b.String()},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummaryFailed, err)
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("%w: %w", ErrSummaryFailed, provider.ErrEmptyResponse)
	}
	return summary, nil
}
