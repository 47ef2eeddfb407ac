package cron

import (
	"context"
	"log/slog"
	"time"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/conversation"
)

// CleanupStore is the subset of conversation.Store needed by cleanup jobs.
type CleanupStore interface {
	CleanupExpired(timeout time.Duration) int
	CleanupThreads(timeout time.Duration) int
}

// SummaryStore is the subset of conversation.Store needed by SummaryJob.
type SummaryStore interface {
	CheckAndGenerateSummaries(ctx context.Context, summarizer ctxengine.Summarizer) conversation.SummaryReport
}

var _ CleanupStore = (*conversation.Store)(nil)
var _ SummaryStore = (*conversation.Store)(nil)

// ConversationCleanupJob deletes conversations idle longer than Timeout.
type ConversationCleanupJob struct {
	Store        CleanupStore
	Timeout      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/10 * * * *"
}

// Compile-time interface check.
var _ Job = (*ConversationCleanupJob)(nil)

// Name implements Job.
func (j *ConversationCleanupJob) Name() string { return "conversation_cleanup" }

// Schedule implements Job.
func (j *ConversationCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/10 * * * *"
}

// Run implements Job.
func (j *ConversationCleanupJob) Run(_ context.Context) error {
	if n := j.Store.CleanupExpired(j.Timeout); n > 0 {
		logger(j.Logger).Info("cron: expired conversations removed", "count", n)
	}
	return nil
}

// ThreadCleanupJob drops threads idle longer than Timeout.
type ThreadCleanupJob struct {
	Store        CleanupStore
	Timeout      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/30 * * * *"
}

// Compile-time interface check.
var _ Job = (*ThreadCleanupJob)(nil)

// Name implements Job.
func (j *ThreadCleanupJob) Name() string { return "thread_cleanup" }

// Schedule implements Job.
func (j *ThreadCleanupJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/30 * * * *"
}

// Run implements Job.
func (j *ThreadCleanupJob) Run(_ context.Context) error {
	if n := j.Store.CleanupThreads(j.Timeout); n > 0 {
		logger(j.Logger).Info("cron: inactive threads removed", "count", n)
	}
	return nil
}

// SummaryJob refreshes conversation summaries through Summarizer.
type SummaryJob struct {
	Store      SummaryStore
	Summarizer ctxengine.Summarizer
	Logger     *slog.Logger

	// Timeout bounds one sweep. Zero means no bound.
	Timeout      time.Duration
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*SummaryJob)(nil)

// Name implements Job.
func (j *SummaryJob) Name() string { return "summary" }

// Schedule implements Job.
func (j *SummaryJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run implements Job. Summarizer failures are per conversation and logged
// by the store; the sweep itself only fails when ctx ends.
func (j *SummaryJob) Run(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	report := j.Store.CheckAndGenerateSummaries(ctx, j.Summarizer)
	if report.Due > 0 {
		logger(j.Logger).Info("cron: summary sweep finished",
			"due", report.Due,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"too_short", report.TooShort,
			"in_flight", report.InFlight,
			"input_tokens", report.InputTokens,
		)
	}
	return ctx.Err()
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
