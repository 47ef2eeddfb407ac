package thread

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/flemzord/bionic/internal/topic"
)

const (
	// DefaultID identifies the thread every conversation starts with.
	DefaultID = "default"

	// DefaultTopic labels the default thread.
	DefaultTopic = "default topic"

	// DefaultActiveWindow is how long a thread stays eligible for assignment.
	DefaultActiveWindow = 30 * time.Minute

	relatedWindow    = 5  // trailing thread messages compared for relatedness
	shortMessageLen  = 20 // below this many characters one shared token suffices
	topicWindow      = 3  // trailing messages used for topic labels
	topicKeywordsTop = 3
)

// switchPatterns force a new thread when a message opens with an explicit
// change of subject.
var switchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:新话题|换个话题|讨论一下|聊点别的)`),
	regexp.MustCompile(`^(?:关于|针对|对于).*?的话题`),
	regexp.MustCompile(`(?i)^(?:new topic|change of subject|changing the subject|let'?s talk about something else)`),
	regexp.MustCompile(`(?i)^(?:about|regarding) .*? topic`),
}

// IsTopicSwitch reports whether text explicitly announces a new subject.
func IsTopicSwitch(text string) bool {
	text = strings.TrimSpace(text)
	for _, p := range switchPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Options configures a Manager.
type Options struct {
	// ActiveWindow bounds how recently a thread must have been used to be
	// considered during assignment. Zero means DefaultActiveWindow.
	ActiveWindow time.Duration

	// Detector labels thread topics. Nil means a zero-threshold detector.
	Detector *topic.Detector

	// MessageLimit caps the messages kept per thread. Zero keeps all.
	MessageLimit int

	// Now is injectable for testing. Defaults to time.Now.
	Now func() time.Time
}

// Manager owns the threads of one conversation. It is not safe for
// concurrent use; the conversation store serializes access.
type Manager struct {
	threads  map[string]*Thread
	counter  int
	window   time.Duration
	limit    int
	detector *topic.Detector
	now      func() time.Time
}

// NewManager creates a Manager holding only the default thread.
func NewManager(opts Options) *Manager {
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = DefaultActiveWindow
	}
	if opts.Detector == nil {
		opts.Detector = topic.NewDetector(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		threads:  make(map[string]*Thread),
		window:   opts.ActiveWindow,
		limit:    opts.MessageLimit,
		detector: opts.Detector,
		now:      opts.Now,
	}
	def := newThread(DefaultID, m.limit, m.now())
	def.topic = DefaultTopic
	m.threads[DefaultID] = def
	return m
}

// Len returns the number of threads, the default thread included.
func (m *Manager) Len() int { return len(m.threads) }

// Thread returns the thread with the given id.
func (m *Manager) Thread(id string) (*Thread, bool) {
	t, ok := m.threads[id]
	return t, ok
}

// Default returns the default thread.
func (m *Manager) Default() *Thread { return m.threads[DefaultID] }

// GetOrCreateThread returns the thread with id, or a new empty thread under a
// freshly generated id when id is empty or unknown.
func (m *Manager) GetOrCreateThread(id string) *Thread {
	if t, ok := m.threads[id]; ok && id != "" {
		return t
	}
	return m.create()
}

func (m *Manager) create() *Thread {
	m.counter++
	now := m.now()
	id := fmt.Sprintf("thread_%d_%d", m.counter, now.Unix())
	t := newThread(id, m.limit, now)
	m.threads[id] = t
	return t
}

// AssignMessage picks the thread text belongs to. It returns the thread id
// and whether a new thread had to be created for it. The caller adds the
// message to the returned thread.
//
// An explicit topic switch always opens a new thread. Otherwise active
// threads are tried most recent first, then the default thread, using the
// relatedness rule of Related.
func (m *Manager) AssignMessage(text string) (string, bool) {
	if IsTopicSwitch(text) {
		return m.create().id, true
	}

	for _, t := range m.Active() {
		if Related(text, t) {
			return t.id, false
		}
	}
	if def := m.Default(); Related(text, def) {
		return def.id, false
	}
	return m.create().id, true
}

// Active returns the threads used within the active window, most recent first.
func (m *Manager) Active() []*Thread {
	now := m.now()
	var out []*Thread
	for _, t := range m.threads {
		if t.active(now, m.window) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].lastActive.Equal(out[j].lastActive) {
			return out[i].id < out[j].id
		}
		return out[i].lastActive.After(out[j].lastActive)
	})
	return out
}

// Related reports whether text continues t. An empty thread adopts anything.
// Otherwise text must share at least two tokens with the thread's last five
// messages, or one token when text is shorter than twenty characters.
func Related(text string, t *Thread) bool {
	if len(t.messages) == 0 {
		return true
	}

	threadTokens := make(map[string]struct{})
	for _, msg := range t.Recent(relatedWindow) {
		for w := range topic.Tokens(msg.Text()) {
			threadTokens[w] = struct{}{}
		}
	}
	shared := topic.Overlap(threadTokens, topic.Tokens(text))

	if shared >= 2 {
		return true
	}
	if len([]rune(text)) < shortMessageLen {
		return shared >= 1
	}
	return false
}

// MergeThreads moves every message and participant of b into a, keeps the
// later activity time, deletes b and returns a. Unknown ids, a == b, or
// b being the default thread leave both threads untouched.
func (m *Manager) MergeThreads(a, b string) string {
	if a == b || b == DefaultID {
		return a
	}
	ta, okA := m.threads[a]
	tb, okB := m.threads[b]
	if !okA || !okB {
		return a
	}

	ta.messages = append(ta.messages, tb.messages...)
	ta.added += tb.added
	if over := len(ta.messages) - m.limit; m.limit > 0 && over > 0 {
		ta.messages = slices.Delete(ta.messages, 0, over)
	}
	for _, p := range tb.participants {
		if !slices.Contains(ta.participants, p) {
			ta.participants = append(ta.participants, p)
		}
	}
	if tb.lastActive.After(ta.lastActive) {
		ta.lastActive = tb.lastActive
	}
	delete(m.threads, b)
	return a
}

// CleanupInactiveThreads deletes every non-default thread idle for at least
// timeout and returns how many were removed.
func (m *Manager) CleanupInactiveThreads(timeout time.Duration) int {
	now := m.now()
	removed := 0
	for id, t := range m.threads {
		if id == DefaultID || t.active(now, timeout) {
			continue
		}
		delete(m.threads, id)
		removed++
	}
	return removed
}

// AnalyzeTopic labels t with its top three keywords over the last three
// messages, or topic.Undetermined.
func (m *Manager) AnalyzeTopic(t *Thread) string {
	info := m.TopicInfo(t)
	if info.Empty() {
		return topic.Undetermined
	}
	return strings.Join(info.Keywords, ",")
}

// TopicInfo scores the last three messages of t as one topic. An empty
// thread yields a topic without keywords.
func (m *Manager) TopicInfo(t *Thread) topic.Info {
	recent := t.Recent(topicWindow)
	texts := make([]string, len(recent))
	for i, msg := range recent {
		texts[i] = msg.Text()
	}
	return m.detector.AnalyzeTopic(texts, topicKeywordsTop)
}

// Drifted reports whether text leaves the topic of t's recent messages,
// scored with the manager's relevance threshold.
func (m *Manager) Drifted(text string, t *Thread) bool {
	return m.detector.DetectTopicChange(text, m.TopicInfo(t))
}

// Snapshots returns a view of every thread, default first then by id.
func (m *Manager) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(m.threads))
	for _, t := range m.threads {
		out = append(out, t.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID == DefaultID || out[j].ID == DefaultID {
			return out[i].ID == DefaultID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
