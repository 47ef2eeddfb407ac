package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/bionic/internal/config"
	"github.com/flemzord/bionic/internal/conversation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bionic.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfig_Explicit(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: \"1\"\nmemory:\n  short_term_limit: 12\n")
	cfg, got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.Memory.ShortTermLimit != 12 {
		t.Errorf("ShortTermLimit = %d, want 12", cfg.Memory.ShortTermLimit)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: \"1\"\nmemory:\n  short_term_limit: -1\n")
	if _, _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, err := LoadConfig("")
	if !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_RedactsConfiguredSecrets(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Log.Format = "json"
	cfg.Gateway.BearerToken = "gateway-token-value"

	var buf bytes.Buffer
	logger := NewLogger(&buf, cfg.Log, slog.LevelInfo, NewRedactor(&cfg))
	logger.Info("auth", "token", "gateway-token-value")

	out := buf.String()
	if strings.Contains(out, "gateway-token-value") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.HasPrefix(out, "{") {
		t.Errorf("expected JSON output, got %s", out)
	}
}

func TestStoreConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Memory.ShortTermLimit = 40
	cfg.Memory.LongTermLimit = 7
	cfg.Context.SwitchThreshold = 0.35
	cfg.Thread.ActiveWindow = 10 * time.Minute
	cfg.Summary.MinMessages = 20
	cfg.Nickname.Position = conversation.PositionTop
	cfg.Nickname.Mapping = map[string]config.NicknameEntry{
		"ally": {Address: "Dr. Ally", ID: "42"},
	}

	got := StoreConfig(&cfg)
	if got.ShortTermLimit != 40 {
		t.Errorf("ShortTermLimit = %d", got.ShortTermLimit)
	}
	if got.LongTermMemoryLimit != 7 {
		t.Errorf("LongTermMemoryLimit = %d", got.LongTermMemoryLimit)
	}
	if got.ContextSwitchThreshold != 0.35 {
		t.Errorf("ContextSwitchThreshold = %v", got.ContextSwitchThreshold)
	}
	if got.ThreadActiveWindow != 10*time.Minute {
		t.Errorf("ThreadActiveWindow = %v", got.ThreadActiveWindow)
	}
	if got.Summary.MinMessages != 20 {
		t.Errorf("Summary.MinMessages = %d", got.Summary.MinMessages)
	}
	if got.NicknamePosition != conversation.PositionTop {
		t.Errorf("NicknamePosition = %q", got.NicknamePosition)
	}
	if got.Nicknames["ally"] != "Dr. Ally" {
		t.Errorf("Nicknames = %v", got.Nicknames)
	}
}

func TestWire_NoProviderSkipsSummaryJob(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := config.Defaults()
	cfg.Memory.LongTermPath = filepath.Join(t.TempDir(), "memory.json")
	cfg.Persona.Path = filepath.Join(t.TempDir(), "missing.md")
	cfg.Gateway.Enabled = false

	logger := slog.New(slog.DiscardHandler)
	svc, err := wire(&cfg, NewRedactor(&cfg), logger)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	if svc.summarizer != nil {
		t.Error("summarizer should be nil without an API key")
	}
	if svc.gateway != nil {
		t.Error("gateway should be nil when disabled")
	}
	want := []string{"conversation_cleanup", "thread_cleanup"}
	got := svc.scheduler.Jobs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("jobs = %v, want %v", got, want)
	}
}

func TestWire_ProviderAddsSummaryJob(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Memory.LongTermPath = filepath.Join(t.TempDir(), "memory.json")
	cfg.Provider.Anthropic.APIKey = "test-key"
	cfg.Gateway.Bind = "127.0.0.1:0"

	svc, err := wire(&cfg, NewRedactor(&cfg), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	if svc.summarizer == nil {
		t.Fatal("summarizer should be configured")
	}
	if svc.gateway == nil {
		t.Fatal("gateway should be built")
	}
	jobs := svc.scheduler.Jobs()
	if len(jobs) != 3 || jobs[2] != "summary" {
		t.Errorf("jobs = %v", jobs)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	dir := t.TempDir()
	path := writeConfig(t, "version: \"1\"\n"+
		"memory:\n  long_term_path: "+filepath.Join(dir, "memory.json")+"\n"+
		"gateway:\n  bind: 127.0.0.1:0\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, RunParams{ConfigPath: path, Output: io.Discard}) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
