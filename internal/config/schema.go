// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for bionic.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Persona   PersonaConfig   `yaml:"persona"`
	Memory    MemoryConfig    `yaml:"memory"`
	Context   ContextConfig   `yaml:"context"`
	Topic     TopicConfig     `yaml:"topic"`
	Thread    ThreadConfig    `yaml:"thread"`
	Summary   SummaryConfig   `yaml:"summary"`
	Nickname  NicknameConfig  `yaml:"nickname"`
	Provider  ProviderConfig  `yaml:"provider"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig selects the process log handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// PersonaConfig locates the persona document.
type PersonaConfig struct {
	Path    string `yaml:"path"`
	BotName string `yaml:"bot_name"`
}

// MemoryConfig holds short- and long-term memory settings.
type MemoryConfig struct {
	ShortTermLimit    int     `yaml:"short_term_limit"`
	LongTermPath      string  `yaml:"long_term_path"`
	LongTermLimit     int     `yaml:"long_term_limit"`
	DefaultImportance float64 `yaml:"default_importance"`
	TagLabel          string  `yaml:"tag_label"`
}

// ContextConfig holds conversation expiry and context-switch settings.
type ContextConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
	SwitchThreshold    float64       `yaml:"switch_threshold"`
	SwitchMinMessages  int           `yaml:"switch_min_messages"`
	SwitchAnalyzeCount int           `yaml:"switch_analyze_count"`
}

// TopicConfig tunes the topic detector.
type TopicConfig struct {
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	DetectionInterval  int     `yaml:"detection_interval"`
}

// ThreadConfig tunes thread detection and cleanup.
type ThreadConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ActiveWindow    time.Duration `yaml:"active_window"`
}

// SummaryConfig tunes summarization.
type SummaryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	MinMessages   int           `yaml:"min_messages"`
	MaxMessages   int           `yaml:"max_messages"`
	Interval      time.Duration `yaml:"interval"`
	ShortInterval time.Duration `yaml:"short_interval"`
	CheckInterval time.Duration `yaml:"check_interval"`
	Prompt        string        `yaml:"prompt"`
	MaxTokens     int           `yaml:"max_tokens"`
}

// NicknameConfig controls the nickname block of system prompts.
type NicknameConfig struct {
	Injection bool                     `yaml:"injection"`
	Position  string                   `yaml:"position"`
	Mapping   map[string]NicknameEntry `yaml:"mapping"`
}

// Addresses returns the nickname to address table.
func (n NicknameConfig) Addresses() map[string]string {
	out := make(map[string]string, len(n.Mapping))
	for nick, e := range n.Mapping {
		out[nick] = e.Address
	}
	return out
}

// NicknameEntry is the address used for a nickname, optionally bound to a
// platform user id. In YAML it is either a plain string or a mapping with
// address and id keys.
type NicknameEntry struct {
	Address string `yaml:"address"`
	ID      string `yaml:"id,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (e *NicknameEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		e.Address = value.Value
		e.ID = ""
		return nil
	case yaml.MappingNode:
		type plain NicknameEntry
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*e = NicknameEntry(p)
		return nil
	default:
		return fmt.Errorf("config: line %d: nickname entry must be a string or a mapping", value.Line)
	}
}

// ProviderConfig configures the summary generator.
type ProviderConfig struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
}

// AnthropicConfig configures the Anthropic Messages API client.
type AnthropicConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Configured reports whether an API key is present.
func (a AnthropicConfig) Configured() bool { return a.APIKey != "" }

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`

	// BearerToken guards /api. Without it only /health and /metrics are
	// served.
	BearerToken string `yaml:"bearer_token"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector URL, e.g.
	// http://localhost:4318. Empty disables export.
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}
