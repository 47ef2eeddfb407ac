package config

import "time"

// Defaults returns the reference configuration. Load decodes the file on
// top of it, so omitted keys keep these values.
func Defaults() Config {
	return Config{
		Version: "1",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Persona: PersonaConfig{
			Path:    "soul.md",
			BotName: "Bionic",
		},
		Memory: MemoryConfig{
			ShortTermLimit:    30,
			LongTermPath:      "long_term_memory.json",
			LongTermLimit:     5,
			DefaultImportance: 1.0,
			TagLabel:          "memory",
		},
		Context: ContextConfig{
			Timeout:            2 * time.Hour,
			CleanupInterval:    10 * time.Minute,
			SwitchThreshold:    0.2,
			SwitchMinMessages:  5,
			SwitchAnalyzeCount: 3,
		},
		Topic: TopicConfig{
			RelevanceThreshold: 0.3,
			DetectionInterval:  5,
		},
		Thread: ThreadConfig{
			Timeout:         time.Hour,
			CleanupInterval: 30 * time.Minute,
			ActiveWindow:    30 * time.Minute,
		},
		Summary: SummaryConfig{
			Enabled:       true,
			MinMessages:   50,
			MaxMessages:   100,
			Interval:      2 * time.Hour,
			ShortInterval: time.Hour,
			CheckInterval: 15 * time.Minute,
			MaxTokens:     1024,
		},
		Nickname: NicknameConfig{
			Injection: true,
			Position:  "bottom",
		},
		Provider: ProviderConfig{
			Anthropic: AnthropicConfig{
				Model:   "claude-3-5-haiku-latest",
				Timeout: 60 * time.Second,
			},
		},
		Gateway: GatewayConfig{
			Enabled:         true,
			Bind:            "127.0.0.1:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bionic",
		},
	}
}
