package ctxengine_test

import (
	"testing"
	"time"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/pkg/message"
)

func TestNewCompactor_Defaults(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{MinMessages: -1})
	p := c.Policy()
	if p.MinMessages != 50 || p.MaxMessages != 100 {
		t.Errorf("policy counts = %d/%d, want 50/100", p.MinMessages, p.MaxMessages)
	}
	if p.Interval != 2*time.Hour || p.ShortInterval != time.Hour {
		t.Errorf("policy intervals = %v/%v, want 2h/1h", p.Interval, p.ShortInterval)
	}
}

func TestCompactor_Due(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{
		MinMessages:   2,
		MaxMessages:   10,
		Interval:      2 * time.Hour,
		ShortInterval: time.Hour,
	})

	tests := []struct {
		name       string
		hasSummary bool
		messages   int
		since      time.Duration
		want       ctxengine.Reason
	}{
		{"no summary yet", false, 3, 0, ctxengine.ReasonInitial},
		{"fresh summary", true, 3, time.Minute, ctxengine.ReasonNone},
		{"interval elapsed", true, 3, 2*time.Hour + time.Second, ctxengine.ReasonInterval},
		{"interval exactly", true, 3, 2 * time.Hour, ctxengine.ReasonNone},
		{"backlog after short interval", true, 11, time.Hour + time.Second, ctxengine.ReasonBacklog},
		{"backlog before short interval", true, 11, 30 * time.Minute, ctxengine.ReasonNone},
		{"at max is not backlog", true, 10, 90 * time.Minute, ctxengine.ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			now := epoch.Add(tt.since)
			if got := c.Due(tt.hasSummary, tt.messages, epoch, now); got != tt.want {
				t.Errorf("Due() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompactor_Eligible(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{MinMessages: 5})
	if c.Eligible(4) {
		t.Error("4 messages should not be eligible")
	}
	if !c.Eligible(5) {
		t.Error("5 messages should be eligible")
	}
}

func TestCompactor_Input(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{MaxMessages: 3})
	history := makeTestMessages(5)

	got := c.Input(history)
	if len(got) != 3 {
		t.Fatalf("Input() returned %d messages, want 3", len(got))
	}
	if got[0] != history[2] || got[2] != history[4] {
		t.Error("Input() should return the trailing messages in order")
	}

	got[0] = nil
	if history[2] == nil {
		t.Error("Input() must not alias history")
	}

	short := makeTestMessages(2)
	if n := len(c.Input(short)); n != 2 {
		t.Errorf("Input(short) returned %d messages, want 2", n)
	}
}

func TestCompactor_Window(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{MinMessages: 3})

	tests := []struct {
		name        string
		history     int
		summary     string
		limit       int
		wantLen     int
		wantSummary bool
	}{
		{"no summary, limited", 10, "", 4, 4, false},
		{"no summary, unlimited", 10, "", 0, 10, false},
		{"no summary, limit above length", 3, "", 8, 3, false},
		{"summary, history too short", 6, "s", 4, 4, false},
		{"summary, half of limit", 7, "s", 4, 3, true},
		{"summary, small limit keeps five", 7, "s", 2, 6, true},
		{"summary, zero limit keeps five", 7, "s", 0, 6, true},
		{"summary, tail capped by history", 7, "s", 40, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			history := makeTestMessages(tt.history)
			got := c.Window(history, tt.summary, tt.limit, epoch)
			if len(got) != tt.wantLen {
				t.Fatalf("Window() returned %d messages, want %d", len(got), tt.wantLen)
			}
			isSummary := got[0].Kind() == message.KindSummary
			if isSummary != tt.wantSummary {
				t.Fatalf("first message summary = %v, want %v", isSummary, tt.wantSummary)
			}
			if got[len(got)-1] != history[len(history)-1] {
				t.Error("Window() should end with the most recent message")
			}
		})
	}
}

func TestCompactor_WindowSummaryText(t *testing.T) {
	t.Parallel()

	c := ctxengine.NewCompactor(ctxengine.SummaryPolicy{MinMessages: 1})
	got := c.Window(makeTestMessages(4), "they planned a trip", 4, epoch)

	if got[0].Role() != message.RoleSystem {
		t.Errorf("summary role = %q, want system", got[0].Role())
	}
	want := "[Conversation Summary]\nthey planned a trip"
	if got[0].Text() != want {
		t.Errorf("summary text = %q, want %q", got[0].Text(), want)
	}
}
