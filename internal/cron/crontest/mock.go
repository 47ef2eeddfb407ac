// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/internal/cron"
)

// MockJob is a configurable test double for cron.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Compile-time interface check.
var _ cron.Job = (*MockJob)(nil)

// Name implements cron.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements cron.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements cron.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// MockStore is a test double for cron.CleanupStore and cron.SummaryStore.
type MockStore struct {
	ExpiredFunc func(timeout time.Duration) int
	ThreadsFunc func(timeout time.Duration) int
	SummaryFunc func(ctx context.Context, s ctxengine.Summarizer) conversation.SummaryReport

	ExpiredCalls atomic.Int32
	ThreadsCalls atomic.Int32
	SummaryCalls atomic.Int32
}

var (
	_ cron.CleanupStore = (*MockStore)(nil)
	_ cron.SummaryStore = (*MockStore)(nil)
)

// CleanupExpired implements cron.CleanupStore.
func (m *MockStore) CleanupExpired(timeout time.Duration) int {
	m.ExpiredCalls.Add(1)
	if m.ExpiredFunc != nil {
		return m.ExpiredFunc(timeout)
	}
	return 0
}

// CleanupThreads implements cron.CleanupStore.
func (m *MockStore) CleanupThreads(timeout time.Duration) int {
	m.ThreadsCalls.Add(1)
	if m.ThreadsFunc != nil {
		return m.ThreadsFunc(timeout)
	}
	return 0
}

// CheckAndGenerateSummaries implements cron.SummaryStore.
func (m *MockStore) CheckAndGenerateSummaries(ctx context.Context, s ctxengine.Summarizer) conversation.SummaryReport {
	m.SummaryCalls.Add(1)
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, s)
	}
	return conversation.SummaryReport{}
}
