// Package ctxengine decides when conversation history should be compacted
// into a summary and builds the compacted context window.
package ctxengine

import "time"

// SummaryPolicy holds the summarization tuning knobs.
type SummaryPolicy struct {
	// MinMessages is the smallest history worth summarizing. Windows switch
	// to summary-plus-tail once history exceeds twice this value.
	MinMessages int

	// MaxMessages is how many trailing messages are summarized, and the
	// backlog size that allows an early re-summary.
	MaxMessages int

	// Interval is the regular re-summary period.
	Interval time.Duration

	// ShortInterval is the early re-summary period once the backlog
	// exceeds MaxMessages.
	ShortInterval time.Duration
}

// withDefaults returns a copy of p with non-positive fields replaced so the
// policy stays usable even when handed an unvalidated value.
func (p SummaryPolicy) withDefaults() SummaryPolicy {
	if p.MinMessages <= 0 {
		p.MinMessages = 50
	}
	if p.MaxMessages <= 0 {
		p.MaxMessages = 100
	}
	if p.Interval <= 0 {
		p.Interval = 2 * time.Hour
	}
	if p.ShortInterval <= 0 {
		p.ShortInterval = time.Hour
	}
	return p
}
