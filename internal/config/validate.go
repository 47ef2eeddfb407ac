package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Validate checks the structural validity of a Config. Every problem is
// reported, joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q must be one of debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", cfg.Log.Format))
	}

	errs = append(errs, validateMemory(cfg.Memory)...)
	errs = append(errs, validateContext(cfg.Context, cfg.Topic)...)
	errs = append(errs, validateThread(cfg.Thread)...)
	errs = append(errs, validateSummary(cfg.Summary)...)
	errs = append(errs, validateNickname(cfg.Nickname)...)

	if cfg.Gateway.Enabled {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
			errs = append(errs, fmt.Errorf("config: gateway.bind %q: %w", cfg.Gateway.Bind, err))
		}
	}

	return errors.Join(errs...)
}

func positive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("config: %s must be positive, got %d", name, v)
	}
	return nil
}

func positiveDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", name, d)
	}
	return nil
}

func ratio(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("config: %s must be within [0, 1], got %g", name, v)
	}
	return nil
}

func validateMemory(m MemoryConfig) []error {
	errs := []error{
		positive("memory.short_term_limit", m.ShortTermLimit),
		positive("memory.long_term_limit", m.LongTermLimit),
	}
	if m.DefaultImportance <= 0 {
		errs = append(errs, fmt.Errorf("config: memory.default_importance must be positive, got %g", m.DefaultImportance))
	}
	if m.TagLabel == "" {
		errs = append(errs, errors.New("config: memory.tag_label is required"))
	}
	return errs
}

func validateContext(c ContextConfig, t TopicConfig) []error {
	return []error{
		positiveDuration("context.timeout", c.Timeout),
		positiveDuration("context.cleanup_interval", c.CleanupInterval),
		ratio("context.switch_threshold", c.SwitchThreshold),
		positive("context.switch_min_messages", c.SwitchMinMessages),
		positive("context.switch_analyze_count", c.SwitchAnalyzeCount),
		ratio("topic.relevance_threshold", t.RelevanceThreshold),
		positive("topic.detection_interval", t.DetectionInterval),
	}
}

func validateThread(t ThreadConfig) []error {
	return []error{
		positiveDuration("thread.timeout", t.Timeout),
		positiveDuration("thread.cleanup_interval", t.CleanupInterval),
		positiveDuration("thread.active_window", t.ActiveWindow),
	}
}

func validateSummary(s SummaryConfig) []error {
	errs := []error{
		positive("summary.min_messages", s.MinMessages),
		positive("summary.max_messages", s.MaxMessages),
		positiveDuration("summary.interval", s.Interval),
		positiveDuration("summary.short_interval", s.ShortInterval),
		positiveDuration("summary.check_interval", s.CheckInterval),
	}
	if s.MinMessages > s.MaxMessages {
		errs = append(errs, fmt.Errorf("config: summary.min_messages (%d) exceeds summary.max_messages (%d)", s.MinMessages, s.MaxMessages))
	}
	return errs
}

func validateNickname(n NicknameConfig) []error {
	var errs []error
	if n.Position != "top" && n.Position != "bottom" {
		errs = append(errs, fmt.Errorf("config: nickname.position %q must be top or bottom", n.Position))
	}
	for nick, e := range n.Mapping {
		if nick == "" {
			errs = append(errs, errors.New("config: nickname.mapping: empty nickname"))
		}
		if e.Address == "" {
			errs = append(errs, fmt.Errorf("config: nickname.mapping[%q]: address is required", nick))
		}
	}
	return errs
}
