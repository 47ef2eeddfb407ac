// Package topic implements lexical topic detection: keyword extraction,
// relevance scoring, and topic merging. Nothing here uses embeddings;
// similarity is plain token overlap.
package topic

import (
	"sort"
	"strings"
	"time"
)

// Undetermined is the label used when a topic has no keywords.
const Undetermined = "undetermined"

const (
	// DefaultTopN is the keyword count used when callers pass topN <= 0.
	DefaultTopN = 5

	// maxKeywords caps the keyword list of a merged topic.
	maxKeywords = 5
)

// stopWords are dropped before ranking keywords.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// Chinese function words and fillers.
		"的", "了", "和", "是", "在", "有", "就", "不", "这", "那", "我", "你", "他", "她", "它",
		"们", "也", "还", "但", "而", "却", "因为", "所以", "虽然", "但是", "如果", "那么",
		"一个", "这个", "那个", "这些", "那些", "时候", "地方", "可以", "可能", "应该",
		"会", "要", "人", "事", "物", "东西", "问题", "情况", "结果", "原因", "方法",
		// English.
		"a", "an", "the", "and", "or", "but", "is", "are", "was", "were", "be", "to",
		"of", "in", "on", "at", "it", "this", "that", "these", "those", "for", "with",
		"as", "so", "if", "then", "we", "you", "he", "she", "they", "me", "my", "do",
		"does", "did", "not", "no", "can", "will", "just", "about", "what",
	} {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether w is filtered out of keyword extraction.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Info describes the topic of a group of messages.
type Info struct {
	Keywords     []string  `json:"keywords"`
	Confidence   float64   `json:"confidence"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Empty reports whether the topic carries no keywords.
func (i Info) Empty() bool { return len(i.Keywords) == 0 }

// Detector scores messages against topics. The zero value is usable
// with a relevance threshold of 0.
type Detector struct {
	// RelevanceThreshold is the minimum overlap×confidence score for a
	// message to count as on-topic.
	RelevanceThreshold float64

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewDetector creates a Detector with the given relevance threshold.
func NewDetector(threshold float64) *Detector {
	return &Detector{RelevanceThreshold: threshold, now: time.Now}
}

func (d *Detector) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// ExtractKeywords returns up to topN non-stop-word tokens of text ranked by
// frequency. Ties keep first-seen order.
func (d *Detector) ExtractKeywords(text string, topN int) []string {
	if topN <= 0 {
		topN = DefaultTopN
	}

	freq := make(map[string]int)
	var order []string
	for _, w := range Words(text) {
		if IsStopWord(w) {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

// AnalyzeTopic extracts the topic of texts taken together. Confidence is the
// fraction of the topN keyword slots that were filled.
func (d *Detector) AnalyzeTopic(texts []string, topN int) Info {
	if topN <= 0 {
		topN = DefaultTopN
	}
	now := d.clock()
	if len(texts) == 0 {
		return Info{CreatedAt: now, UpdatedAt: now}
	}

	keywords := d.ExtractKeywords(strings.Join(texts, " "), topN)
	return Info{
		Keywords:     keywords,
		Confidence:   float64(len(keywords)) / float64(topN),
		MessageCount: len(texts),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsRelevant reports whether text belongs to topic. A topic without keywords
// accepts everything.
func (d *Detector) IsRelevant(text string, topic Info) bool {
	if topic.Empty() {
		return true
	}
	keywords := d.ExtractKeywords(text, DefaultTopN)
	if len(keywords) == 0 {
		return false
	}

	topicSet := toSet(topic.Keywords)
	common := Overlap(topicSet, toSet(keywords))
	ratio := float64(common) / float64(len(topicSet))
	return ratio*topic.Confidence >= d.RelevanceThreshold
}

// DetectTopicChange reports whether text leaves an established topic.
// An empty topic never changes.
func (d *Detector) DetectTopicChange(text string, topic Info) bool {
	if topic.Empty() {
		return false
	}
	return !d.IsRelevant(text, topic)
}

// UpdateTopic folds newTexts into old. Keywords are the union (old first,
// capped at five) and confidence is the message-count-weighted mean.
func (d *Detector) UpdateTopic(old Info, newTexts []string) Info {
	if len(newTexts) == 0 {
		return old
	}
	fresh := d.AnalyzeTopic(newTexts, DefaultTopN)

	merged := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{}, maxKeywords)
	for _, kw := range append(append([]string(nil), old.Keywords...), fresh.Keywords...) {
		if len(merged) == maxKeywords {
			break
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		merged = append(merged, kw)
	}

	total := old.MessageCount + fresh.MessageCount
	confidence := fresh.Confidence
	if total > 0 {
		confidence = (old.Confidence*float64(old.MessageCount) +
			fresh.Confidence*float64(fresh.MessageCount)) / float64(total)
	}

	created := old.CreatedAt
	if created.IsZero() {
		created = fresh.CreatedAt
	}
	return Info{
		Keywords:     merged,
		Confidence:   confidence,
		MessageCount: total,
		CreatedAt:    created,
		UpdatedAt:    fresh.UpdatedAt,
	}
}

// CalculateSimilarity returns the Jaccard index of the two keyword sets,
// or 0 when either is empty.
func (d *Detector) CalculateSimilarity(a, b Info) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	setA, setB := toSet(a.Keywords), toSet(b.Keywords)
	inter := Overlap(setA, setB)
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Describe renders topic as a comma-joined keyword list.
func (d *Detector) Describe(topic Info) string {
	if topic.Empty() {
		return Undetermined
	}
	return strings.Join(topic.Keywords, ",")
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
