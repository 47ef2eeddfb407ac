package conversation

// Masker hides sensitive data in text shown to the generator.
type Masker interface {
	Redact(s string) string
}

// Recorder receives store events for metrics.
type Recorder interface {
	MessageAdded(group bool)
	ContextSwitched()
	ThreadCreated()
	ConversationsExpired(n int)
	ThreadsExpired(n int)
	SummaryAttempted(reason string, ok bool)
	MemoryAbsorbed()
	Conversations(n int)
}

type nopMasker struct{}

func (nopMasker) Redact(s string) string { return s }

type nopRecorder struct{}

func (nopRecorder) MessageAdded(bool)             {}
func (nopRecorder) ContextSwitched()              {}
func (nopRecorder) ThreadCreated()                {}
func (nopRecorder) ConversationsExpired(int)      {}
func (nopRecorder) ThreadsExpired(int)            {}
func (nopRecorder) SummaryAttempted(string, bool) {}
func (nopRecorder) MemoryAbsorbed()               {}
func (nopRecorder) Conversations(int)             {}
