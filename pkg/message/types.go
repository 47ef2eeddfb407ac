// Package message defines the immutable conversation message shared between
// the conversation store, participant contexts, and threads.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser is a message written by a chat participant.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the agent.
	RoleAssistant Role = "assistant"
	// RoleSystem is an instruction or synthetic context message.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Kind discriminates the variant stored in a Payload.
type Kind string

// Supported payload kinds.
const (
	KindText    Kind = "text"
	KindSystem  Kind = "system_note"
	KindSummary Kind = "summary"
)

// Payload is the content of a message. The set of implementations is closed:
// Text, SystemNote and SummaryMarker.
type Payload interface {
	Kind() Kind
	// Render returns the text sent to the generator.
	Render() string

	payload()
}

// Text is ordinary conversational content.
type Text string

// Kind implements Payload.
func (Text) Kind() Kind { return KindText }

// Render implements Payload.
func (t Text) Render() string { return string(t) }

func (Text) payload() {}

// SystemNote is an instruction block such as the persona prompt.
type SystemNote string

// Kind implements Payload.
func (SystemNote) Kind() Kind { return KindSystem }

// Render implements Payload.
func (n SystemNote) Render() string { return string(n) }

func (SystemNote) payload() {}

// SummaryMarker stands in for a run of older history that was compacted.
type SummaryMarker struct {
	Summary string
}

// Kind implements Payload.
func (SummaryMarker) Kind() Kind { return KindSummary }

// Render implements Payload.
func (s SummaryMarker) Render() string {
	return "[Conversation Summary]\n" + s.Summary
}

func (SummaryMarker) payload() {}

// Message is a single immutable conversation turn. Messages are shared by
// pointer between containers and must never be modified after creation.
type Message struct {
	role    Role
	author  string
	payload Payload
	at      time.Time
}

// New creates a message with an explicit payload.
func New(role Role, p Payload, at time.Time) *Message {
	if p == nil {
		p = Text("")
	}
	return &Message{role: role, payload: p, at: at}
}

// NewText creates a plain text message.
func NewText(role Role, text string, at time.Time) *Message {
	return New(role, Text(text), at)
}

// NewAuthored creates a text message attributed to a named participant.
// The author appears in Display but not in Text, so lexical analysis only
// sees what was said.
func NewAuthored(role Role, author, text string, at time.Time) *Message {
	m := New(role, Text(text), at)
	m.author = author
	return m
}

// NewSystem creates a system instruction message.
func NewSystem(text string, at time.Time) *Message {
	return New(RoleSystem, SystemNote(text), at)
}

// NewSummary creates the synthetic system message that replaces compacted history.
func NewSummary(summary string, at time.Time) *Message {
	return New(RoleSystem, SummaryMarker{Summary: summary}, at)
}

// Role returns the message author role.
func (m *Message) Role() Role { return m.role }

// Author returns the display name of the sender, if any.
func (m *Message) Author() string { return m.author }

// Payload returns the message payload.
func (m *Message) Payload() Payload { return m.payload }

// Kind is shorthand for m.Payload().Kind().
func (m *Message) Kind() Kind { return m.payload.Kind() }

// Text returns the rendered payload.
func (m *Message) Text() string { return m.payload.Render() }

// At returns the message creation time.
func (m *Message) At() time.Time { return m.at }

// Display returns the line sent to the generator. Authored messages are
// stamped with the sender name and time.
func (m *Message) Display() string {
	if m.author == "" {
		return m.payload.Render()
	}
	return Stamp(m.author, m.at, m.payload.Render())
}

// Stamp formats a participant line the way it is shown to the generator:
// "name[15:04]: text".
func Stamp(name string, at time.Time, text string) string {
	return fmt.Sprintf("%s[%s]: %s", name, at.Format("15:04"), text)
}

// wireMessage is the JSON form of a Message.
type wireMessage struct {
	Role    Role      `json:"role"`
	Author  string    `json:"author,omitempty"`
	Kind    Kind      `json:"kind"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.role, Author: m.author, Kind: m.payload.Kind(), At: m.at}
	if s, ok := m.payload.(SummaryMarker); ok {
		w.Content = s.Summary
	} else {
		w.Content = m.payload.Render()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. It exists for API clients and
// test fixtures; stored messages are never re-decoded in place.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Role.Valid() {
		return fmt.Errorf("message: unknown role %q", w.Role)
	}
	var p Payload
	switch w.Kind {
	case KindText, "":
		p = Text(w.Content)
	case KindSystem:
		p = SystemNote(w.Content)
	case KindSummary:
		p = SummaryMarker{Summary: w.Content}
	default:
		return fmt.Errorf("message: unknown kind %q", w.Kind)
	}
	*m = Message{role: w.Role, author: w.Author, payload: p, at: w.At}
	return nil
}

// Texts returns the rendered text of every message, in order.
func Texts(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text()
	}
	return out
}
