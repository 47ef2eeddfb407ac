package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/pkg/message"
)

// ErrEmptySummary indicates the summarizer answered with blank text.
var ErrEmptySummary = errors.New("conversation: empty summary")

// SummaryReport counts what one summarization sweep did.
type SummaryReport struct {
	Checked   int `json:"checked"`
	Due       int `json:"due"`
	InFlight  int `json:"in_flight"`
	TooShort  int `json:"too_short"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// InputTokens is the estimated size of everything sent to the summarizer.
	InputTokens int `json:"input_tokens"`
}

type summaryJob struct {
	conv   *conversation
	reason ctxengine.Reason
	input  []*message.Message
	tokens int
}

// CheckAndGenerateSummaries summarizes every conversation that is due.
// Messages are captured under the lock and the summarizer runs without it,
// one conversation at a time. A conversation already being summarized by
// another sweep is skipped. A failed or empty result keeps the previous
// summary.
func (s *Store) CheckAndGenerateSummaries(ctx context.Context, summarizer ctxengine.Summarizer) SummaryReport {
	var report SummaryReport
	if summarizer == nil {
		return report
	}

	jobs := s.collectSummaryJobs(&report)
	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			s.release(jobs[i:])
			s.logger.Warn("summary sweep interrupted", "remaining", len(jobs)-i, "error", err)
			break
		}

		report.InputTokens += j.tokens
		summary, err := s.summarize(ctx, summarizer, j)
		s.commitSummary(j.conv, summary, err == nil)
		s.recorder.SummaryAttempted(string(j.reason), err == nil)
		if err != nil {
			report.Failed++
			s.logger.Warn("conversation summary failed", "key", j.conv.key, "reason", j.reason, "error", err)
			continue
		}
		report.Succeeded++
		s.logger.Info("conversation summary updated", "key", j.conv.key, "reason", j.reason, "messages", len(j.input), "tokens", j.tokens)
	}
	return report
}

func (s *Store) collectSummaryJobs(report *SummaryReport) []summaryJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	report.Checked = len(s.convs)

	var jobs []summaryJob
	for _, c := range s.convs {
		reason := s.compactor.Due(c.summary != "", len(c.history), c.lastSummarized, now)
		if reason == ctxengine.ReasonNone {
			continue
		}
		report.Due++
		if c.summarizing {
			report.InFlight++
			continue
		}
		if !s.compactor.Eligible(len(c.history)) {
			report.TooShort++
			continue
		}
		c.summarizing = true
		input := s.compactor.Input(c.history)
		jobs = append(jobs, summaryJob{
			conv:   c,
			reason: reason,
			input:  input,
			tokens: ctxengine.EstimateMessages(s.tokens, input),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].conv.key < jobs[j].conv.key })
	return jobs
}

func (s *Store) summarize(ctx context.Context, summarizer ctxengine.Summarizer, j summaryJob) (string, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.summarize", trace.WithAttributes(
		attribute.String("conversation.key", j.conv.key),
		attribute.String("summary.reason", string(j.reason)),
		attribute.Int("summary.messages", len(j.input)),
		attribute.Int("summary.tokens", j.tokens),
	))
	defer span.End()

	summary, err := summarizer.Summarize(ctx, j.input)
	if err == nil && strings.TrimSpace(summary) == "" {
		err = ErrEmptySummary
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// commitSummary stores summary when ok and the conversation was not
// deleted meanwhile, then clears the in-flight flag.
func (s *Store) commitSummary(c *conversation, summary string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.summarizing = false
	if !ok || s.convs[c.key] != c {
		return
	}
	c.summary = summary
	c.lastSummarized = s.now()
}

func (s *Store) release(jobs []summaryJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		j.conv.summarizing = false
	}
}
