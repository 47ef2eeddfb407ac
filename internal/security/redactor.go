// Package security masks sensitive data before it reaches the generator
// or the logs.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely contain secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|key|credential)`)

// Rule rewrites every match of Pattern with Replacement. Replacement may
// reference capture groups as ${1}.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Redactor rewrites sensitive values in strings and maps. Literal values
// registered at runtime are replaced first, then the rules run in order.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	rules    []Rule
	literals []string
}

// NewRedactor creates a Redactor loaded with MaskingRules followed by the
// provider token patterns.
func NewRedactor() *Redactor {
	rules := MaskingRules()
	for _, p := range DefaultPatterns() {
		rules = append(rules, Rule{Pattern: p, Replacement: RedactPlaceholder})
	}
	return &Redactor{rules: rules}
}

// AddRule appends a rule after the existing ones.
func (r *Redactor) AddRule(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// AddPattern appends a rule replacing pattern with RedactPlaceholder.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.AddRule(Rule{Pattern: pattern, Replacement: RedactPlaceholder})
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact applies every rule and literal replacement to s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	rules := r.rules
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, rule := range rules {
		s = rule.Pattern.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

// Sensitive reports whether s contains anything a rule or literal would
// rewrite.
func (r *Redactor) Sensitive(s string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(s) {
			return true
		}
	}
	for _, lit := range r.literals {
		if strings.Contains(s, lit) {
			return true
		}
	}
	return false
}

// DisplayName renders "name(id)" with the id masked.
func (r *Redactor) DisplayName(name, id string) string {
	return name + "(" + r.Redact(id) + ")"
}

// RedactMap walks a map and replaces values whose keys match common secret
// key names (secret, token, password, key, credential). Used when printing
// the resolved configuration.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

// MaskingRules returns the rules hiding account numbers, phone numbers,
// ID-card numbers and sk-/ak- keys. Order matters: the 9-12 digit rule runs
// before the 5-12 digit one and both run before the phone rule.
func MaskingRules() []Rule {
	return []Rule{
		// account numbers
		{regexp.MustCompile(`\b\d{9,12}\b`), "********"},
		// group numbers
		{regexp.MustCompile(`\b\d{5,12}\b`), "********"},
		{regexp.MustCompile(`\b(sk|ak)-[a-zA-Z0-9_-]{16,}\b`), "${1}-****************"},
		// resident ID card
		{regexp.MustCompile(`\b\d{17}[\dXx]\b`), strings.Repeat("*", 29)},
		{regexp.MustCompile(`\b1[3-9]\d{9}\b`), "1**********"},
	}
}

// DefaultPatterns returns compiled regex patterns for common API key formats.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic: sk-ant-... (at least 20 chars after prefix)
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
		// OpenAI: sk-... (at least 20 chars after prefix)
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		// GitHub: ghp_, gho_, ghs_, github_pat_
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		// AWS Access Key ID
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
		// Slack tokens
		regexp.MustCompile(`xox[bp]-[0-9]+-[a-zA-Z0-9]+`),
	}
}
