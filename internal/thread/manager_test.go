package thread

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/bionic/internal/topic"
	"github.com/flemzord/bionic/pkg/message"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager() (*Manager, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return NewManager(Options{Now: c.Now}), c
}

func msg(text string, at time.Time) *message.Message {
	return message.NewText(message.RoleUser, text, at)
}

func TestNewManager_DefaultThread(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	def := m.Default()
	if def.ID() != DefaultID || def.Topic() != DefaultTopic {
		t.Errorf("default thread = %q/%q", def.ID(), def.Topic())
	}
}

func TestManager_GetOrCreateThread(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()

	a := m.GetOrCreateThread("")
	if !strings.HasPrefix(a.ID(), "thread_1_") {
		t.Errorf("first generated id = %q", a.ID())
	}
	b := m.GetOrCreateThread("missing")
	if !strings.HasPrefix(b.ID(), "thread_2_") {
		t.Errorf("second generated id = %q", b.ID())
	}
	if got := m.GetOrCreateThread(a.ID()); got != a {
		t.Error("known id should return the existing thread")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestManager_AssignMessage_Relatedness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		related bool
	}{
		{"two shared tokens", "golang patterns are great for servers", true},
		{"one shared token on long message", "golang is my language of choice here", false},
		{"one shared token on short message", "golang rocks", true},
		{"nothing shared on short message", "hello there", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, c := newTestManager()
			m.Default().Add(msg("golang concurrency patterns explained", c.Now()), "u1", c.Now())

			id, created := m.AssignMessage(tt.text)
			if tt.related {
				if id != DefaultID || created {
					t.Errorf("AssignMessage(%q) = %q, %v; want default thread", tt.text, id, created)
				}
				return
			}
			if id == DefaultID || !created {
				t.Errorf("AssignMessage(%q) = %q, %v; want new thread", tt.text, id, created)
			}
			if _, ok := m.Thread(id); !ok {
				t.Errorf("new thread %q was not registered", id)
			}
		})
	}
}

func TestManager_AssignMessage_EmptyThreadAdopts(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	id, created := m.AssignMessage("completely unrelated words here and there")
	if id != DefaultID || created {
		t.Errorf("empty default thread should adopt, got %q, %v", id, created)
	}
}

func TestManager_AssignMessage_PrefersMostRecentThread(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	m.Default().Add(msg("weather forecast rain", c.Now()), "u1", c.Now())

	c.Advance(time.Minute)
	other := m.GetOrCreateThread("")
	other.Add(msg("weather forecast sunshine", c.Now()), "u2", c.Now())

	id, _ := m.AssignMessage("weather forecast tomorrow please")
	if id != other.ID() {
		t.Errorf("AssignMessage picked %q, want most recent %q", id, other.ID())
	}
}

func TestManager_AssignMessage_SkipsInactiveThreads(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	m.Default().Add(msg("unrelated greeting words", c.Now()), "u1", c.Now())
	stale := m.GetOrCreateThread("")
	stale.Add(msg("chess opening theory", c.Now()), "u1", c.Now())

	c.Advance(DefaultActiveWindow + time.Minute)

	id, created := m.AssignMessage("chess opening theory is deep")
	if id == stale.ID() || !created {
		t.Errorf("inactive thread should not be matched, got %q, %v", id, created)
	}
}

func TestManager_AssignMessage_TopicSwitch(t *testing.T) {
	t.Parallel()

	tests := []string{
		"新话题：周末去哪里",
		"换个话题吧",
		"关于旅行的话题",
		"New topic: cooking",
		"let's talk about something else",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			m, _ := newTestManager()
			id, created := m.AssignMessage(text)
			if id == DefaultID || !created {
				t.Errorf("AssignMessage(%q) = %q, %v; want forced new thread", text, id, created)
			}
		})
	}
}

func TestManager_MergeThreads(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	a := m.GetOrCreateThread("")
	a.Add(msg("first", c.Now()), "u1", c.Now())

	c.Advance(5 * time.Minute)
	b := m.GetOrCreateThread("")
	b.Add(msg("second", c.Now()), "u2", c.Now())
	b.Add(msg("third", c.Now()), "u1", c.Now())

	got := m.MergeThreads(a.ID(), b.ID())
	if got != a.ID() {
		t.Errorf("MergeThreads returned %q, want %q", got, a.ID())
	}
	if _, ok := m.Thread(b.ID()); ok {
		t.Error("merged thread should be deleted")
	}
	if texts := message.Texts(a.Messages()); !slices.Equal(texts, []string{"first", "second", "third"}) {
		t.Errorf("messages = %v", texts)
	}
	if p := a.Participants(); !slices.Equal(p, []string{"u1", "u2"}) {
		t.Errorf("participants = %v", p)
	}
	if !a.LastActive().Equal(c.Now()) {
		t.Errorf("LastActive = %v, want %v", a.LastActive(), c.Now())
	}
}

func TestManager_MergeThreads_NoOps(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	a := m.GetOrCreateThread("")

	if got := m.MergeThreads(a.ID(), "unknown"); got != a.ID() {
		t.Errorf("unknown b: got %q", got)
	}
	if got := m.MergeThreads("unknown", a.ID()); got != "unknown" {
		t.Errorf("unknown a: got %q", got)
	}
	if got := m.MergeThreads(a.ID(), DefaultID); got != a.ID() {
		t.Errorf("default as b: got %q", got)
	}
	if _, ok := m.Thread(DefaultID); !ok {
		t.Fatal("default thread must survive a merge attempt")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManager_CleanupInactiveThreads(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	old := m.GetOrCreateThread("")
	c.Advance(50 * time.Minute)
	fresh := m.GetOrCreateThread("")
	c.Advance(20 * time.Minute)

	removed := m.CleanupInactiveThreads(time.Hour)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := m.Thread(old.ID()); ok {
		t.Error("stale thread should be removed")
	}
	if _, ok := m.Thread(fresh.ID()); !ok {
		t.Error("fresh thread should survive")
	}
	if _, ok := m.Thread(DefaultID); !ok {
		t.Error("default thread must never be removed")
	}
}

func TestManager_AnalyzeTopic(t *testing.T) {
	t.Parallel()

	m, c := newTestManager()
	th := m.GetOrCreateThread("")
	if got := m.AnalyzeTopic(th); got != "undetermined" {
		t.Errorf("empty thread topic = %q", got)
	}

	for _, text := range []string{"sushi sushi sushi sushi", "pizza pasta", "pizza wine", "pizza pasta dessert"} {
		th.Add(msg(text, c.Now()), "u1", c.Now())
	}
	if got := m.AnalyzeTopic(th); got != "pizza,pasta,wine" {
		t.Errorf("AnalyzeTopic = %q, want %q", got, "pizza,pasta,wine")
	}

	stop := m.GetOrCreateThread("")
	stop.Add(msg("the and is", c.Now()), "u1", c.Now())
	if got := m.AnalyzeTopic(stop); got != "undetermined" {
		t.Errorf("stop-word thread topic = %q", got)
	}
}

func TestManager_Drifted(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(Options{Now: c.Now, Detector: topic.NewDetector(0.3)})
	th := m.GetOrCreateThread("")
	for _, text := range []string{"garden tomatoes ripen", "garden tomatoes need water"} {
		th.Add(msg(text, c.Now()), "u1", c.Now())
	}

	tests := []struct {
		name   string
		thread *Thread
		text   string
		want   bool
	}{
		{"shares a topic keyword", th, "tomatoes are ripe", false},
		{"leaves the topic", th, "we need water for the office plants", true},
		{"empty thread", m.GetOrCreateThread(""), "anything at all", false},
	}
	for _, tt := range tests {
		if got := m.Drifted(tt.text, tt.thread); got != tt.want {
			t.Errorf("%s: Drifted(%q) = %v, want %v", tt.name, tt.text, got, tt.want)
		}
	}
}

func TestManager_Snapshots(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.GetOrCreateThread("")
	m.GetOrCreateThread("")

	snaps := m.Snapshots()
	if len(snaps) != 3 || snaps[0].ID != DefaultID {
		t.Fatalf("Snapshots = %+v", snaps)
	}
}

func TestManager_MessageLimit(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(Options{Now: c.Now, MessageLimit: 3})

	a := m.GetOrCreateThread("")
	b := m.GetOrCreateThread("")
	for _, text := range []string{"m1", "m2", "m3", "m4"} {
		a.Add(msg(text, c.Now()), "u1", c.Now())
	}
	if got := strings.Join(message.Texts(a.Messages()), ","); got != "m2,m3,m4" {
		t.Errorf("capped thread = %s, want m2,m3,m4", got)
	}
	if a.Added() != 4 {
		t.Errorf("Added() = %d, want 4", a.Added())
	}

	b.Add(msg("b1", c.Now()), "u2", c.Now())
	m.MergeThreads(a.ID(), b.ID())
	if got := strings.Join(message.Texts(a.Messages()), ","); got != "m3,m4,b1" {
		t.Errorf("merged thread = %s, want m3,m4,b1", got)
	}
	if a.Added() != 5 {
		t.Errorf("Added() after merge = %d, want 5", a.Added())
	}
}
