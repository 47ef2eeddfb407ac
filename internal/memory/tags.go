package memory

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTagLabel names the memory tag when none is configured.
const DefaultTagLabel = "memory"

// TagSyntax recognizes the three equivalent ways a generated reply can mark
// a fact for long-term memory:
//
//	【label】fact【/label】
//	[label]fact[/label]
//	<label>fact</label>
type TagSyntax struct {
	label    string
	patterns []*regexp.Regexp
}

// NewTagSyntax builds the tag patterns for label. An empty label means
// DefaultTagLabel.
func NewTagSyntax(label string) *TagSyntax {
	if label == "" {
		label = DefaultTagLabel
	}
	q := regexp.QuoteMeta(label)
	return &TagSyntax{
		label: label,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?s)【` + q + `】(.+?)【/` + q + `】`),
			regexp.MustCompile(`(?s)\[` + q + `\](.+?)\[/` + q + `\]`),
			regexp.MustCompile(`(?s)<` + q + `>(.+?)</` + q + `>`),
		},
	}
}

// Label returns the tag name.
func (t *TagSyntax) Label() string { return t.label }

// Extract returns the content of the earliest memory tag in text with
// whitespace runs collapsed. It reports false when no tag with non-blank
// content is present.
func (t *TagSyntax) Extract(text string) (string, bool) {
	best := -1
	var content string
	for _, p := range t.patterns {
		loc := p.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			content = text[loc[2]:loc[3]]
		}
	}
	if best == -1 {
		return "", false
	}
	content = normalize(content)
	return content, content != ""
}

// Strip removes every memory tag, content included, and trims the result.
func (t *TagSyntax) Strip(text string) string {
	for _, p := range t.patterns {
		text = p.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// Instruction describes the tag convention to the generator.
func (t *TagSyntax) Instruction() string {
	return fmt.Sprintf(
		"When something in this conversation is worth remembering long term, "+
			"wrap it in a tag like 【%[1]s】the fact【/%[1]s】. "+
			"[%[1]s]...[/%[1]s] and <%[1]s>...</%[1]s> are also accepted. "+
			"Tagged text is removed from your visible reply.",
		t.label,
	)
}

// ExtractMemoryTags extracts a fact using the default tag label.
func ExtractMemoryTags(text string) (string, bool) {
	return defaultTags.Extract(text)
}

var defaultTags = NewTagSyntax(DefaultTagLabel)
