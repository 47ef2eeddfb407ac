package ctxengine

import (
	"time"

	"github.com/flemzord/bionic/pkg/message"
)

// fallbackTail is the number of raw messages kept after a summary when the
// caller's limit is too small to halve.
const fallbackTail = 5

// Reason explains why a conversation is due for summarization.
type Reason string

// Summarization triggers.
const (
	ReasonNone     Reason = ""
	ReasonInitial  Reason = "no_summary"
	ReasonInterval Reason = "interval"
	ReasonBacklog  Reason = "backlog"
)

// Compactor applies a SummaryPolicy to conversation history.
type Compactor struct {
	policy SummaryPolicy
}

// NewCompactor creates a Compactor for policy.
func NewCompactor(policy SummaryPolicy) *Compactor {
	return &Compactor{policy: policy.withDefaults()}
}

// Policy returns the effective policy.
func (c *Compactor) Policy() SummaryPolicy { return c.policy }

// Due reports whether a conversation should be summarized now, and why.
// A summary is due when none exists, when the regular interval has
// elapsed, or when more than MaxMessages are held and the short interval
// has elapsed.
func (c *Compactor) Due(hasSummary bool, messages int, lastSummarized, now time.Time) Reason {
	if !hasSummary {
		return ReasonInitial
	}
	since := now.Sub(lastSummarized)
	if since > c.policy.Interval {
		return ReasonInterval
	}
	if messages > c.policy.MaxMessages && since > c.policy.ShortInterval {
		return ReasonBacklog
	}
	return ReasonNone
}

// Eligible reports whether history is long enough to be worth summarizing.
func (c *Compactor) Eligible(messages int) bool {
	return messages >= c.policy.MinMessages
}

// Input returns the trailing messages handed to the summarizer.
func (c *Compactor) Input(history []*message.Message) []*message.Message {
	n := c.policy.MaxMessages
	if n >= len(history) {
		return clone(history)
	}
	return clone(history[len(history)-n:])
}

// Window returns the context to replay for history. Once a summary exists
// and history exceeds twice MinMessages, the bulk is replaced by a summary
// marker followed by the last limit/2 messages (or five when limit <= 2).
// Otherwise the most recent limit messages are returned, all when
// limit <= 0. The result never aliases history.
func (c *Compactor) Window(history []*message.Message, summary string, limit int, at time.Time) []*message.Message {
	if summary != "" && len(history) > 2*c.policy.MinMessages {
		tail := fallbackTail
		if limit > 2 {
			tail = limit / 2
		}
		if tail > len(history) {
			tail = len(history)
		}
		result := make([]*message.Message, 0, 1+tail)
		result = append(result, message.NewSummary(summary, at))
		return append(result, history[len(history)-tail:]...)
	}

	if limit > 0 && len(history) > limit {
		return clone(history[len(history)-limit:])
	}
	return clone(history)
}

func clone(msgs []*message.Message) []*message.Message {
	out := make([]*message.Message, len(msgs))
	copy(out, msgs)
	return out
}
