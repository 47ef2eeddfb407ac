package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/pkg/message"
)

func summaryConfig() conversation.Config {
	cfg := conversation.DefaultConfig()
	cfg.ShortTermLimit = 200
	cfg.Summary = ctxengine.SummaryPolicy{
		MinMessages:   50,
		MaxMessages:   100,
		Interval:      2 * time.Hour,
		ShortInterval: time.Hour,
	}
	return cfg
}

func fill(s *conversation.Store, key string, n int) {
	for i := range n {
		s.AddMessage(key, userMsg(fmt.Sprintf("message %d", i)), "")
	}
}

func constSummarizer(text string, calls *atomic.Int32) ctxengine.Summarizer {
	return ctxengine.SummarizerFunc(func(context.Context, []*message.Message) (string, error) {
		if calls != nil {
			calls.Add(1)
		}
		return text, nil
	})
}

func TestCheckAndGenerateSummaries_SummaryWindow(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	key := conversation.GroupKey("1")
	fill(s, key, 150)

	var seen int
	summarizer := ctxengine.SummarizerFunc(func(_ context.Context, msgs []*message.Message) (string, error) {
		seen = len(msgs)
		return "they talked a lot", nil
	})
	report := s.CheckAndGenerateSummaries(context.Background(), summarizer)
	if report.Succeeded != 1 || report.Due != 1 {
		t.Fatalf("report = %+v", report)
	}
	if seen != 100 {
		t.Errorf("summarizer saw %d messages, want the last 100", seen)
	}

	msgs := s.GetMessages(key, 10, "")
	if len(msgs) != 6 {
		t.Fatalf("GetMessages(10) returned %d messages, want summary plus 5", len(msgs))
	}
	if msgs[0].Kind() != message.KindSummary || msgs[0].Role() != message.RoleSystem {
		t.Errorf("first message should be the summary, got %s/%s", msgs[0].Role(), msgs[0].Kind())
	}
	if got := texts(msgs[1:]); got != "message 145,message 146,message 147,message 148,message 149" {
		t.Errorf("tail = %s", got)
	}
}

func TestCheckAndGenerateSummaries_TooShort(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	fill(s, "user_1", 10)

	var calls atomic.Int32
	report := s.CheckAndGenerateSummaries(context.Background(), constSummarizer("x", &calls))
	if report.TooShort != 1 || calls.Load() != 0 {
		t.Errorf("report = %+v, calls = %d", report, calls.Load())
	}
	if snap, _ := s.GetConversation("user_1"); snap.Summary != "" {
		t.Error("short conversations must not be summarized")
	}
}

func TestCheckAndGenerateSummaries_Triggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		extra   int
		advance time.Duration
		want    bool
	}{
		{"fresh summary", 0, 10 * time.Minute, false},
		{"interval elapsed", 0, 2*time.Hour + time.Minute, true},
		{"backlog after short interval", 60, time.Hour + time.Minute, true},
		{"backlog before short interval", 60, 30 * time.Minute, false},
		{"short interval without backlog", 0, time.Hour + time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clk := newClock()
			s := newStore(summaryConfig(), clk)
			fill(s, "user_1", 60)
			s.CheckAndGenerateSummaries(context.Background(), constSummarizer("first", nil))

			fill(s, "user_1", tt.extra)
			clk.Advance(tt.advance)
			report := s.CheckAndGenerateSummaries(context.Background(), constSummarizer("second", nil))

			snap, _ := s.GetConversation("user_1")
			if got := snap.Summary == "second"; got != tt.want {
				t.Errorf("re-summarized = %v, want %v (report %+v)", got, tt.want, report)
			}
		})
	}
}

func TestCheckAndGenerateSummaries_NeverRegresses(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := newStore(summaryConfig(), clk)
	fill(s, "user_1", 60)
	s.CheckAndGenerateSummaries(context.Background(), constSummarizer("S", nil))

	failures := []ctxengine.Summarizer{
		constSummarizer("", nil),
		constSummarizer("   ", nil),
		ctxengine.SummarizerFunc(func(context.Context, []*message.Message) (string, error) {
			return "partial", errors.New("provider unavailable")
		}),
	}
	for i, f := range failures {
		clk.Advance(3 * time.Hour)
		report := s.CheckAndGenerateSummaries(context.Background(), f)
		if report.Failed != 1 {
			t.Errorf("attempt %d: report = %+v", i, report)
		}
		snap, _ := s.GetConversation("user_1")
		if snap.Summary != "S" {
			t.Fatalf("attempt %d: summary = %q, want S", i, snap.Summary)
		}
	}
}

func TestCheckAndGenerateSummaries_SerializedPerKey(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	fill(s, "user_1", 60)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := ctxengine.SummarizerFunc(func(context.Context, []*message.Message) (string, error) {
		close(entered)
		<-release
		return "slow", nil
	})

	done := make(chan conversation.SummaryReport)
	go func() { done <- s.CheckAndGenerateSummaries(context.Background(), slow) }()
	<-entered

	var calls atomic.Int32
	second := s.CheckAndGenerateSummaries(context.Background(), constSummarizer("fast", &calls))
	if second.InFlight != 1 || calls.Load() != 0 {
		t.Errorf("concurrent sweep should skip the busy key: %+v, calls %d", second, calls.Load())
	}

	close(release)
	if first := <-done; first.Succeeded != 1 {
		t.Errorf("first sweep = %+v", first)
	}
	if snap, _ := s.GetConversation("user_1"); snap.Summary != "slow" {
		t.Errorf("summary = %q, want slow", snap.Summary)
	}
}

func TestCheckAndGenerateSummaries_DeletedMeanwhile(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	fill(s, "user_1", 60)

	summarizer := ctxengine.SummarizerFunc(func(context.Context, []*message.Message) (string, error) {
		s.Delete("user_1")
		return "orphan", nil
	})
	s.CheckAndGenerateSummaries(context.Background(), summarizer)
	if _, ok := s.GetConversation("user_1"); ok {
		t.Error("a summary must not resurrect a deleted conversation")
	}
}

func TestCheckAndGenerateSummaries_CanceledContext(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	fill(s, "user_1", 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	s.CheckAndGenerateSummaries(ctx, constSummarizer("x", &calls))
	if calls.Load() != 0 {
		t.Error("canceled sweep should not call the summarizer")
	}

	report := s.CheckAndGenerateSummaries(context.Background(), constSummarizer("x", &calls))
	if report.Succeeded != 1 {
		t.Errorf("key should be released after a canceled sweep: %+v", report)
	}
}

func TestCheckAndGenerateSummaries_NilSummarizer(t *testing.T) {
	t.Parallel()

	s := newStore(summaryConfig(), newClock())
	fill(s, "user_1", 60)
	if report := s.CheckAndGenerateSummaries(context.Background(), nil); report != (conversation.SummaryReport{}) {
		t.Errorf("report = %+v, want zero", report)
	}
}

type wordEstimator struct{}

func (wordEstimator) Estimate(text string) int { return len(strings.Fields(text)) }

func TestCheckAndGenerateSummaries_RecordsInputTokens(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	s := newStore(summaryConfig(), newClock(), func(o *conversation.Options) {
		o.Estimator = wordEstimator{}
		o.Tracer = tp.Tracer("test")
	})
	key := conversation.GroupKey("1")
	fill(s, key, 60)

	report := s.CheckAndGenerateSummaries(context.Background(), constSummarizer("short", nil))
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}
	// Each of the 60 messages displays as "message N" (2 words) plus 4 of overhead.
	if report.InputTokens != 60*6 {
		t.Errorf("InputTokens = %d, want %d", report.InputTokens, 60*6)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	var found bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "summary.tokens" {
			found = true
			if kv.Value.AsInt64() != 60*6 {
				t.Errorf("summary.tokens = %d", kv.Value.AsInt64())
			}
		}
	}
	if !found {
		t.Error("span missing summary.tokens")
	}
}
