package conversation_test

import (
	"strings"
	"sync"
	"time"

	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/pkg/message"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: epoch} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newStore(cfg conversation.Config, clk *clock, opts ...func(*conversation.Options)) *conversation.Store {
	o := conversation.Options{Now: clk.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return conversation.NewStore(cfg, o)
}

func userMsg(text string) *message.Message {
	return message.NewText(message.RoleUser, text, epoch)
}

func texts(msgs []*message.Message) string {
	return strings.Join(message.Texts(msgs), ",")
}

type soulFunc func() (string, error)

func (f soulFunc) Load() (string, error) { return f() }

type starMasker struct{}

func (starMasker) Redact(s string) string { return strings.ReplaceAll(s, "secret", "******") }
