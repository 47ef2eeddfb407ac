package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/flemzord/bionic/internal/config"
	ctxengine "github.com/flemzord/bionic/internal/context"
	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/internal/cron"
	"github.com/flemzord/bionic/internal/gateway"
	"github.com/flemzord/bionic/internal/memory"
	"github.com/flemzord/bionic/internal/security"
	"github.com/flemzord/bionic/internal/telemetry"
	"github.com/flemzord/bionic/internal/topic"
	"github.com/flemzord/bionic/internal/workspace"
	"github.com/flemzord/bionic/modules/provider/anthropic"
)

const tracerName = "github.com/flemzord/bionic"

// services holds everything Run starts and stops.
type services struct {
	store      *conversation.Store
	memory     *memory.FileStore
	summarizer ctxengine.Summarizer
	scheduler  *cron.Scheduler
	gateway    *gateway.Gateway
	metrics    *telemetry.Metrics
}

// ParseLevel maps a config level name to a slog level. Unknown names
// select info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. Every record passes through
// redactor before reaching w.
func NewLogger(w io.Writer, cfg config.LogConfig, level slog.Level, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// NewRedactor returns the masking redactor with the configured secrets
// registered as literals.
func NewRedactor(cfg *config.Config) *security.Redactor {
	r := security.NewRedactor()
	r.AddLiteral(cfg.Provider.Anthropic.APIKey)
	r.AddLiteral(cfg.Gateway.BearerToken)
	return r
}

// StoreConfig maps the file configuration onto the store tuning.
func StoreConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		ShortTermLimit:            cfg.Memory.ShortTermLimit,
		ContextSwitchThreshold:    cfg.Context.SwitchThreshold,
		ContextSwitchMinMessages:  cfg.Context.SwitchMinMessages,
		ContextSwitchAnalyzeCount: cfg.Context.SwitchAnalyzeCount,
		TopicDetectionInterval:    cfg.Topic.DetectionInterval,
		ThreadActiveWindow:        cfg.Thread.ActiveWindow,
		ThreadTimeout:             cfg.Thread.Timeout,
		LongTermMemoryLimit:       cfg.Memory.LongTermLimit,
		DefaultImportance:         cfg.Memory.DefaultImportance,
		Summary: ctxengine.SummaryPolicy{
			MinMessages:   cfg.Summary.MinMessages,
			MaxMessages:   cfg.Summary.MaxMessages,
			Interval:      cfg.Summary.Interval,
			ShortInterval: cfg.Summary.ShortInterval,
		},
		Nicknames:         cfg.Nickname.Addresses(),
		NicknameInjection: cfg.Nickname.Injection,
		NicknamePosition:  cfg.Nickname.Position,
	}
}

// OpenMemory opens the long-term memory file named by cfg.
func OpenMemory(cfg *config.Config, logger *slog.Logger) *memory.FileStore {
	return memory.NewFileStore(memory.FileConfig{
		Path:   cfg.Memory.LongTermPath,
		Logger: logger,
	})
}

// wire builds the store and its collaborators. The summarizer is nil
// when no provider is configured or summaries are disabled.
func wire(cfg *config.Config, redactor *security.Redactor, logger *slog.Logger) (*services, error) {
	metrics := telemetry.NewMetrics()
	mem := OpenMemory(cfg, logger)

	store := conversation.NewStore(StoreConfig(cfg), conversation.Options{
		Memory:   mem,
		Soul:     workspace.NewSoulLoader(cfg.Persona.Path, workspace.FallbackPrompt(cfg.Persona.BotName)),
		Detector: topic.NewDetector(cfg.Topic.RelevanceThreshold),
		Tags:     memory.NewTagSyntax(cfg.Memory.TagLabel),
		Masker:   redactor,
		Recorder: metrics,
		Tracer:   otel.Tracer(tracerName),
		Logger:   logger,
	})

	svc := &services{store: store, memory: mem, metrics: metrics}

	if cfg.Summary.Enabled {
		summarizer, err := newSummarizer(cfg, logger)
		if err != nil {
			return nil, err
		}
		if summarizer == nil {
			logger.Warn("summaries enabled but no provider configured, summary job disabled")
		}
		svc.summarizer = summarizer
	}

	scheduler, err := newScheduler(cfg, svc, logger)
	if err != nil {
		return nil, err
	}
	svc.scheduler = scheduler

	if cfg.Gateway.Enabled {
		if cfg.Gateway.BearerToken == "" {
			logger.Warn("gateway: no bearer token configured, API routes disabled")
		}
		svc.gateway = gateway.New(gateway.Config{
			Bind:            cfg.Gateway.Bind,
			BearerToken:     cfg.Gateway.BearerToken,
			ReadTimeout:     cfg.Gateway.ReadTimeout,
			WriteTimeout:    cfg.Gateway.WriteTimeout,
			ShutdownTimeout: cfg.Gateway.ShutdownTimeout,
		}, gateway.Options{
			Store:   store,
			Jobs:    scheduler,
			Metrics: metrics,
			Logger:  logger,
			BotName: cfg.Persona.BotName,
		})
	}
	return svc, nil
}

// newSummarizer returns nil, nil when no API key is available.
func newSummarizer(cfg *config.Config, logger *slog.Logger) (ctxengine.Summarizer, error) {
	a := cfg.Provider.Anthropic
	p, err := anthropic.New(anthropic.Config{
		APIKey:    a.APIKey,
		Model:     a.Model,
		BaseURL:   a.BaseURL,
		MaxTokens: cfg.Summary.MaxTokens,
		Timeout:   a.Timeout,
	}, logger)
	if err != nil {
		if errors.Is(err, anthropic.ErrNoAPIKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("app: anthropic provider: %w", err)
	}
	logger.Info("summaries enabled", "model", p.ModelName())
	return ctxengine.NewProviderSummarizer(p, cfg.Summary.Prompt, cfg.Summary.MaxTokens), nil
}

func newScheduler(cfg *config.Config, svc *services, logger *slog.Logger) (*cron.Scheduler, error) {
	s := cron.NewScheduler(logger, svc.metrics)
	jobs := []cron.Job{
		&cron.ConversationCleanupJob{
			Store:        svc.store,
			Timeout:      cfg.Context.Timeout,
			Logger:       logger,
			ScheduleExpr: cron.Every(cfg.Context.CleanupInterval),
		},
		&cron.ThreadCleanupJob{
			Store:        svc.store,
			Timeout:      cfg.Thread.Timeout,
			Logger:       logger,
			ScheduleExpr: cron.Every(cfg.Thread.CleanupInterval),
		},
	}
	if svc.summarizer != nil {
		jobs = append(jobs, &cron.SummaryJob{
			Store:        svc.store,
			Summarizer:   svc.summarizer,
			Logger:       logger,
			Timeout:      cfg.Summary.CheckInterval,
			ScheduleExpr: cron.Every(cfg.Summary.CheckInterval),
		})
	}
	for _, j := range jobs {
		if err := s.RegisterJob(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// stop shuts services down in reverse start order.
func (s *services) stop(ctx context.Context, logger *slog.Logger) {
	if s.gateway != nil {
		if err := s.gateway.Stop(ctx); err != nil {
			logger.Error("gateway: shutdown failed", "error", err)
		}
	}
	if err := s.scheduler.Stop(ctx); err != nil {
		logger.Error("cron: shutdown failed", "error", err)
	}
}
