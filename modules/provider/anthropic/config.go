package anthropic

import "time"

// defaultModel is the model used when none is specified. A small model is
// enough for rolling summaries.
const defaultModel = "claude-3-5-haiku-latest"

const defaultMaxTokens = 1024

// defaultTimeout bounds one request including the response body.
const defaultTimeout = 60 * time.Second

// Config configures the Anthropic provider.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}
