// Package conversation holds the bounded short-term state of every chat the
// assistant takes part in: global history, per-participant contexts, threads
// and rolling summaries.
package conversation

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/memory"
	"github.com/flemzord/bionic/internal/thread"
	"github.com/flemzord/bionic/internal/topic"
	"github.com/flemzord/bionic/internal/workspace"
	"github.com/flemzord/bionic/pkg/message"
)

const tracerName = "github.com/flemzord/bionic/internal/conversation"

// Options carries the collaborators of a Store. Every field is optional.
type Options struct {
	// Memory is the long-term memory store. Nil selects an in-memory store.
	Memory memory.Store

	// Soul supplies the persona document. Nil selects the fallback persona.
	Soul workspace.SoulProvider

	// Detector labels thread topics.
	Detector *topic.Detector

	// Tags is the memory tag syntax taught to the generator.
	Tags *memory.TagSyntax

	// Masker hides sensitive data in memory lines of the prompt.
	Masker Masker

	// Recorder receives metrics events.
	Recorder Recorder

	// Tracer wraps summarization calls in spans.
	Tracer trace.Tracer

	// Estimator sizes summarizer input. Defaults to four characters per token.
	Estimator ctxengine.TokenEstimator

	Logger *slog.Logger

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

type userContext struct {
	id         string
	messages   []*message.Message
	lastActive time.Time
}

type conversation struct {
	key            string
	history        []*message.Message
	users          map[string]*userContext
	responseID     string
	lastActive     time.Time
	summary        string
	lastSummarized time.Time
	threads        *thread.Manager
	topicChanged   bool
	summarizing    bool
}

// Snapshot is a read-only view of one conversation.
type Snapshot struct {
	Key            string    `json:"key"`
	Messages       int       `json:"messages"`
	Participants   []string  `json:"participants"`
	ResponseID     string    `json:"response_id,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	LastActive     time.Time `json:"last_active"`
	LastSummarized time.Time `json:"last_summarized"`
	Threads        int       `json:"threads"`
}

// Store owns every conversation. All methods are safe for concurrent use;
// each mutation runs entirely under one mutex so a cleanup sweep never
// interleaves with a message being added.
type Store struct {
	cfg       Config
	compactor *ctxengine.Compactor

	memory   memory.Store
	soul     workspace.SoulProvider
	detector *topic.Detector
	tags     *memory.TagSyntax
	masker   Masker
	recorder Recorder
	tracer   trace.Tracer
	tokens   ctxengine.TokenEstimator
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

// NewStore creates an empty Store.
func NewStore(cfg Config, opts Options) *Store {
	cfg = cfg.withDefaults()

	s := &Store{
		cfg:       cfg,
		compactor: ctxengine.NewCompactor(cfg.Summary),
		memory:    opts.Memory,
		soul:      opts.Soul,
		detector:  opts.Detector,
		tags:      opts.Tags,
		masker:    opts.Masker,
		recorder:  opts.Recorder,
		tracer:    opts.Tracer,
		tokens:    opts.Estimator,
		logger:    opts.Logger,
		now:       opts.Now,
		convs:     make(map[string]*conversation),
	}
	if s.memory == nil {
		s.memory = memory.NewFileStore(memory.FileConfig{Logger: opts.Logger})
	}
	if s.detector == nil {
		s.detector = topic.NewDetector(0.3)
	}
	if s.tags == nil {
		s.tags = memory.NewTagSyntax("")
	}
	if s.masker == nil {
		s.masker = nopMasker{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.tokens == nil {
		s.tokens = ctxengine.NewCharEstimator(0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// Memory returns the long-term memory store.
func (s *Store) Memory() memory.Store { return s.memory }

// getOrCreate must be called with s.mu held.
func (s *Store) getOrCreate(key string, now time.Time) *conversation {
	if c, ok := s.convs[key]; ok {
		return c
	}
	c := &conversation{
		key:            key,
		users:          make(map[string]*userContext),
		lastActive:     now,
		lastSummarized: now,
		threads: thread.NewManager(thread.Options{
			ActiveWindow: s.cfg.ThreadActiveWindow,
			Detector:     s.detector,
			MessageLimit: s.cfg.ShortTermLimit,
			Now:          s.now,
		}),
	}
	s.convs[key] = c
	s.recorder.Conversations(len(s.convs))
	return c
}

// snapshot must be called with s.mu held.
func (c *conversation) snapshot() Snapshot {
	participants := make([]string, 0, len(c.users))
	for id := range c.users {
		participants = append(participants, id)
	}
	sort.Strings(participants)
	return Snapshot{
		Key:            c.key,
		Messages:       len(c.history),
		Participants:   participants,
		ResponseID:     c.responseID,
		Summary:        c.summary,
		LastActive:     c.lastActive,
		LastSummarized: c.lastSummarized,
		Threads:        c.threads.Len(),
	}
}

// GetOrCreateConversation returns the conversation for key, creating it
// when needed.
func (s *Store) GetOrCreateConversation(key string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(key, s.now()).snapshot()
}

// GetConversation returns the conversation for key if it exists.
func (s *Store) GetConversation(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return Snapshot{}, false
	}
	return c.snapshot(), true
}

// List returns every conversation ordered by key.
func (s *Store) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of conversations held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Delete drops the conversation for key. It reports whether it existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[key]; !ok {
		return false
	}
	delete(s.convs, key)
	s.recorder.Conversations(len(s.convs))
	return true
}

// AddMessage appends msg to the conversation for key. With a participant,
// the message also goes to that participant's context, which is replaced by
// a fresh one first when the participant changed subject. Group messages
// are assigned to a thread.
func (s *Store) AddMessage(key string, msg *message.Message, participantID string) {
	if msg == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := s.getOrCreate(key, now)
	c.history = appendBounded(c.history, msg, s.cfg.ShortTermLimit)
	c.lastActive = now

	if participantID != "" {
		if s.detectSwitch(c, msg, participantID) {
			id := s.switchContext(c, participantID, now)
			c.topicChanged = true
			s.recorder.ContextSwitched()
			s.logger.Debug("participant context switched", "key", key, "participant", participantID, "context_id", id)
		}
		uc := c.user(participantID, now)
		uc.messages = appendBounded(uc.messages, msg, s.cfg.ShortTermLimit)
		uc.lastActive = now
	}

	if IsGroup(key) {
		s.assignThread(c, msg, participantID, now)
	}
	s.recorder.MessageAdded(IsGroup(key))
}

// assignThread must be called with s.mu held.
func (s *Store) assignThread(c *conversation, msg *message.Message, participantID string, now time.Time) {
	text := msg.Text()
	id, created := c.threads.AssignMessage(text)
	t := c.threads.GetOrCreateThread(id)
	if !created && c.threads.Drifted(text, t) {
		c.topicChanged = true
		s.logger.Debug("conversation thread drifted", "key", c.key, "thread", t.ID())
	}
	t.Add(msg, participantID, now)
	if created {
		c.topicChanged = true
		s.recorder.ThreadCreated()
		s.logger.Debug("conversation thread opened", "key", c.key, "thread", t.ID())
	}
	if t.Topic() == "" || t.Added()%s.cfg.TopicDetectionInterval == 0 {
		t.SetTopic(c.threads.AnalyzeTopic(t))
	}
}

// user must be called with s.mu held.
func (c *conversation) user(participantID string, now time.Time) *userContext {
	uc, ok := c.users[participantID]
	if !ok {
		uc = &userContext{lastActive: now}
		c.users[participantID] = uc
	}
	return uc
}

func appendBounded(msgs []*message.Message, msg *message.Message, limit int) []*message.Message {
	msgs = append(msgs, msg)
	if over := len(msgs) - limit; over > 0 {
		msgs = slices.Delete(msgs, 0, over)
	}
	return msgs
}

// GetMessages returns the context window for key: the participant's
// context when participantID names a known participant, global history
// otherwise. Once a summary exists and the history is long, the bulk is
// replaced by a summary message. limit <= 0 means no limit.
func (s *Store) GetMessages(key string, limit int, participantID string) []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[key]
	if !ok {
		return nil
	}
	history := c.history
	if participantID != "" {
		if uc, ok := c.users[participantID]; ok {
			history = uc.messages
		}
	}
	return s.compactor.Window(history, c.summary, limit, c.lastSummarized)
}

// DetectContextSwitch reports whether msg breaks from what the participant
// has recently been talking about.
func (s *Store) DetectContextSwitch(key string, msg *message.Message, participantID string) bool {
	if msg == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return false
	}
	return s.detectSwitch(c, msg, participantID)
}

// detectSwitch must be called with s.mu held.
func (s *Store) detectSwitch(c *conversation, msg *message.Message, participantID string) bool {
	uc, ok := c.users[participantID]
	if !ok || len(uc.messages) < s.cfg.ContextSwitchMinMessages {
		return false
	}

	start := max(0, len(uc.messages)-s.cfg.ContextSwitchAnalyzeCount)
	recent := make(map[string]struct{})
	for _, m := range uc.messages[start:] {
		for w := range topic.Tokens(m.Text()) {
			recent[w] = struct{}{}
		}
	}
	if len(recent) == 0 {
		return false
	}

	shared := topic.Overlap(recent, topic.Tokens(msg.Text()))
	return float64(shared)/float64(len(recent)) < s.cfg.ContextSwitchThreshold
}

// SwitchContext installs a fresh, empty context for the participant and
// returns its id. Global history is untouched.
func (s *Store) SwitchContext(key, participantID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c := s.getOrCreate(key, now)
	return s.switchContext(c, participantID, now)
}

// switchContext must be called with s.mu held.
func (s *Store) switchContext(c *conversation, participantID string, now time.Time) string {
	id := fmt.Sprintf("ctx_%s_%s", participantID, uuid.NewString()[:8])
	c.users[participantID] = &userContext{id: id, lastActive: now}
	return id
}

// ContextID returns the id of the participant's current context. Contexts
// created implicitly by a first message have an empty id.
func (s *Store) ContextID(key, participantID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return "", false
	}
	uc, ok := c.users[participantID]
	if !ok {
		return "", false
	}
	return uc.id, true
}

// SetResponseID stores the generator continuation handle for key.
func (s *Store) SetResponseID(key, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(key, s.now()).responseID = id
}

// TopicChanged reports whether, since the last call, a new thread was
// opened, a message drifted from its thread's topic, or a participant
// switched context. The signal is cleared.
func (s *Store) TopicChanged(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return false
	}
	changed := c.topicChanged
	c.topicChanged = false
	return changed
}

// CleanupExpired deletes every conversation idle for longer than timeout
// and drops inactive threads of the survivors. It returns the number of
// conversations deleted. A non-positive timeout is a no-op.
func (s *Store) CleanupExpired(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed, threads := 0, 0
	for key, c := range s.convs {
		if now.Sub(c.lastActive) > timeout {
			delete(s.convs, key)
			removed++
			continue
		}
		threads += c.threads.CleanupInactiveThreads(s.cfg.ThreadTimeout)
	}

	if removed > 0 {
		s.recorder.ConversationsExpired(removed)
		s.recorder.Conversations(len(s.convs))
		s.logger.Info("expired conversations removed", "count", removed, "remaining", len(s.convs))
	}
	if threads > 0 {
		s.recorder.ThreadsExpired(threads)
	}
	return removed
}

// CleanupThreads drops threads idle for longer than timeout in every
// conversation and returns how many were removed.
func (s *Store) CleanupThreads(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, c := range s.convs {
		removed += c.threads.CleanupInactiveThreads(timeout)
	}
	if removed > 0 {
		s.recorder.ThreadsExpired(removed)
		s.logger.Debug("inactive threads removed", "count", removed)
	}
	return removed
}

// Threads returns the threads of key, default thread first.
func (s *Store) Threads(key string) ([]thread.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return nil, false
	}
	return c.threads.Snapshots(), true
}

// MergeThreads folds thread b of key into thread a and relabels a. It
// returns a; unknown conversations and threads are left untouched.
func (s *Store) MergeThreads(key, a, b string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[key]
	if !ok {
		return a
	}
	before := c.threads.Len()
	id := c.threads.MergeThreads(a, b)
	if c.threads.Len() < before {
		if t, ok := c.threads.Thread(id); ok && id != thread.DefaultID {
			t.SetTopic(c.threads.AnalyzeTopic(t))
		}
	}
	return id
}
