// Package thread partitions one conversation's message stream into topical
// sub-threads by lexical relatedness.
package thread

import (
	"slices"
	"time"

	"github.com/flemzord/bionic/pkg/message"
)

// Thread is a lexically coherent run of messages inside a conversation.
// Messages are shared with the conversation's global history.
type Thread struct {
	id           string
	messages     []*message.Message
	participants []string
	topic        string
	lastActive   time.Time
	added        int
	limit        int
}

func newThread(id string, limit int, now time.Time) *Thread {
	return &Thread{id: id, limit: limit, lastActive: now}
}

// ID returns the thread identifier.
func (t *Thread) ID() string { return t.id }

// Topic returns the current topic label, empty until first analyzed.
func (t *Thread) Topic() string { return t.topic }

// SetTopic replaces the topic label.
func (t *Thread) SetTopic(topic string) { t.topic = topic }

// LastActive returns the time of the most recent message.
func (t *Thread) LastActive() time.Time { return t.lastActive }

// Len returns the number of messages in the thread.
func (t *Thread) Len() int { return len(t.messages) }

// Messages returns a copy of the thread's messages in order.
func (t *Thread) Messages() []*message.Message {
	return slices.Clone(t.messages)
}

// Participants returns the participant IDs in order of first appearance.
func (t *Thread) Participants() []string {
	return slices.Clone(t.participants)
}

// Added returns how many messages were ever added, evicted ones included.
func (t *Thread) Added() int { return t.added }

// Add appends msg, records participantID and bumps the activity time. The
// oldest messages are evicted beyond the manager's message limit.
func (t *Thread) Add(msg *message.Message, participantID string, now time.Time) {
	t.messages = append(t.messages, msg)
	t.added++
	if over := len(t.messages) - t.limit; t.limit > 0 && over > 0 {
		t.messages = slices.Delete(t.messages, 0, over)
	}
	t.lastActive = now
	if participantID != "" && !slices.Contains(t.participants, participantID) {
		t.participants = append(t.participants, participantID)
	}
}

// Recent returns the last n messages, or all of them when n exceeds the length.
func (t *Thread) Recent(n int) []*message.Message {
	if n <= 0 || n >= len(t.messages) {
		return t.messages
	}
	return t.messages[len(t.messages)-n:]
}

// active reports whether the thread saw a message within window.
func (t *Thread) active(now time.Time, window time.Duration) bool {
	return now.Sub(t.lastActive) < window
}

// Snapshot is a read-only view of a thread.
type Snapshot struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Participants []string  `json:"participants"`
	Messages     int       `json:"messages"`
	LastActive   time.Time `json:"last_active"`
}

// Snapshot captures the current state of t.
func (t *Thread) Snapshot() Snapshot {
	return Snapshot{
		ID:           t.id,
		Topic:        t.topic,
		Participants: t.Participants(),
		Messages:     len(t.messages),
		LastActive:   t.lastActive,
	}
}
