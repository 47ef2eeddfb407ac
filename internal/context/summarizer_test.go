package ctxengine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/provider"
	"github.com/flemzord/bionic/internal/provider/providertest"
	"github.com/flemzord/bionic/pkg/message"
)

func TestSummarizerFunc(t *testing.T) {
	t.Parallel()

	var got int
	s := ctxengine.SummarizerFunc(func(_ context.Context, msgs []*message.Message) (string, error) {
		got = len(msgs)
		return "ok", nil
	})
	out, err := s.Summarize(context.Background(), makeTestMessages(3))
	if err != nil || out != "ok" || got != 3 {
		t.Errorf("Summarize() = %q, %v (saw %d messages)", out, err, got)
	}
}

func TestProviderSummarizer_Request(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		CompleteFunc: func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: "  a short summary \n"}, nil
		},
	}
	s := ctxengine.NewProviderSummarizer(mock, "", 0)

	msgs := []*message.Message{
		message.NewAuthored(message.RoleUser, "alice", "where do we eat", epoch),
		message.NewText(message.RoleAssistant, "try the noodle bar", epoch),
	}
	out, err := s.Summarize(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if out != "a short summary" {
		t.Errorf("Summarize() = %q, want trimmed summary", out)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("provider called %d times, want 1", len(reqs))
	}
	req := reqs[0]
	if req.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != provider.MessageRoleSystem {
		t.Fatalf("unexpected request messages: %+v", req.Messages)
	}
	if req.Messages[0].Content != ctxengine.DefaultSummaryPrompt {
		t.Error("empty prompt should select the default prompt")
	}
	transcript := req.Messages[1].Content
	for _, want := range []string{"user: alice[12:00]: where do we eat", "assistant: try the noodle bar"} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q:\n%s", want, transcript)
		}
	}
}

func TestProviderSummarizer_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name    string
		resp    provider.CompletionResponse
		err     error
		msgs    int
		wantErr error
	}{
		{"provider error", provider.CompletionResponse{}, boom, 2, boom},
		{"blank answer", provider.CompletionResponse{Content: "   "}, nil, 2, provider.ErrEmptyResponse},
		{"no messages", provider.CompletionResponse{Content: "x"}, nil, 0, ctxengine.ErrSummaryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := &providertest.MockProvider{
				CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
					return tt.resp, tt.err
				},
			}
			s := ctxengine.NewProviderSummarizer(mock, "custom", 64)
			out, err := s.Summarize(context.Background(), makeTestMessages(tt.msgs))
			if out != "" {
				t.Errorf("Summarize() = %q, want empty", out)
			}
			if !errors.Is(err, ctxengine.ErrSummaryFailed) || !errors.Is(err, tt.wantErr) {
				t.Errorf("Summarize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
