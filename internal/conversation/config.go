package conversation

import (
	"time"

	ctxengine "github.com/flemzord/bionic/internal/context"
)

// Nickname injection positions.
const (
	PositionTop    = "top"
	PositionBottom = "bottom"
)

// Config holds the tuning knobs of a Store. It is copied at construction
// and never mutated afterwards.
type Config struct {
	// ShortTermLimit bounds both global history and every participant context.
	ShortTermLimit int

	// ContextSwitchThreshold is the token-overlap ratio below which a
	// participant is considered to have changed subject.
	ContextSwitchThreshold float64

	// ContextSwitchMinMessages is the participant history needed before a
	// switch can be detected.
	ContextSwitchMinMessages int

	// ContextSwitchAnalyzeCount is how many recent participant messages
	// are compared against the incoming one.
	ContextSwitchAnalyzeCount int

	// TopicDetectionInterval recomputes a thread topic every N messages.
	TopicDetectionInterval int

	// ThreadActiveWindow is how recently a thread must have been used to
	// be offered a new message.
	ThreadActiveWindow time.Duration

	// ThreadTimeout is the idle time after which CleanupExpired drops
	// non-default threads of surviving conversations.
	ThreadTimeout time.Duration

	// LongTermMemoryLimit is how many memories are injected in a group prompt.
	LongTermMemoryLimit int

	// DefaultImportance is the importance of memories absorbed from replies.
	DefaultImportance float64

	// Summary is the summarization policy.
	Summary ctxengine.SummaryPolicy

	// Nicknames maps a participant nickname to the address the assistant
	// should use for them.
	Nicknames map[string]string

	// NicknameInjection enables the nickname block in system prompts.
	NicknameInjection bool

	// NicknamePosition is PositionTop or PositionBottom.
	NicknamePosition string
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		ShortTermLimit:            30,
		ContextSwitchThreshold:    0.2,
		ContextSwitchMinMessages:  5,
		ContextSwitchAnalyzeCount: 3,
		TopicDetectionInterval:    5,
		ThreadActiveWindow:        30 * time.Minute,
		ThreadTimeout:             time.Hour,
		LongTermMemoryLimit:       5,
		DefaultImportance:         1.0,
		Summary: ctxengine.SummaryPolicy{
			MinMessages:   50,
			MaxMessages:   100,
			Interval:      2 * time.Hour,
			ShortInterval: time.Hour,
		},
		NicknameInjection: true,
		NicknamePosition:  PositionBottom,
	}
}

// withDefaults clamps non-positive values to the reference tuning so a bad
// but well-typed value never breaks the store.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ShortTermLimit <= 0 {
		c.ShortTermLimit = d.ShortTermLimit
	}
	if c.ContextSwitchThreshold < 0 || c.ContextSwitchThreshold > 1 {
		c.ContextSwitchThreshold = d.ContextSwitchThreshold
	}
	if c.ContextSwitchMinMessages <= 0 {
		c.ContextSwitchMinMessages = d.ContextSwitchMinMessages
	}
	if c.ContextSwitchAnalyzeCount <= 0 {
		c.ContextSwitchAnalyzeCount = d.ContextSwitchAnalyzeCount
	}
	if c.TopicDetectionInterval <= 0 {
		c.TopicDetectionInterval = d.TopicDetectionInterval
	}
	if c.ThreadActiveWindow <= 0 {
		c.ThreadActiveWindow = d.ThreadActiveWindow
	}
	if c.ThreadTimeout <= 0 {
		c.ThreadTimeout = d.ThreadTimeout
	}
	if c.LongTermMemoryLimit <= 0 {
		c.LongTermMemoryLimit = d.LongTermMemoryLimit
	}
	if c.DefaultImportance <= 0 {
		c.DefaultImportance = d.DefaultImportance
	}
	if c.NicknamePosition != PositionTop {
		c.NicknamePosition = PositionBottom
	}
	return c
}
