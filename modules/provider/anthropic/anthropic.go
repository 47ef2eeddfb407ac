// Package anthropic implements provider.Provider on the Anthropic Messages
// API. The conversation core uses it to write rolling summaries.
package anthropic

import (
	"errors"
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/flemzord/bionic/internal/provider"
)

// ErrNoAPIKey is returned by New when neither the config nor the
// ANTHROPIC_API_KEY environment variable carries a key.
var ErrNoAPIKey = errors.New("anthropic: no API key configured")

// Interface guard.
var _ provider.Provider = (*Anthropic)(nil)

// Anthropic is a provider.Provider backed by the Messages API.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// New builds a provider from cfg. The API key falls back to the
// ANTHROPIC_API_KEY environment variable.
func New(cfg Config, logger *slog.Logger) (*Anthropic, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(cfg.Timeout),
		// The summary sweep retries on its next tick.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	return &Anthropic{config: cfg, client: &client, logger: logger}, nil
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}
