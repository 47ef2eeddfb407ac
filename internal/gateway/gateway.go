// Package gateway serves the HTTP API of the conversation core: message
// ingestion, prompt assembly, thread and memory inspection, plus health
// and Prometheus endpoints. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/bionic/internal/conversation"
	"github.com/flemzord/bionic/internal/telemetry"
)

const tracerName = "github.com/flemzord/bionic/internal/gateway"

// JobRunner triggers scheduled jobs on demand.
type JobRunner interface {
	RunNow(ctx context.Context, name string) bool
	Jobs() []string
}

// Options carries the collaborators of a Gateway. Store is required.
type Options struct {
	Store *conversation.Store

	// Jobs enables POST /api/jobs/{name}/run.
	Jobs JobRunner

	// Metrics serves /metrics and observes requests.
	Metrics *telemetry.Metrics

	Tracer trace.Tracer
	Logger *slog.Logger

	// BotName authors replies absorbed through the API.
	BotName string

	Now func() time.Time
}

// Gateway is the HTTP server.
type Gateway struct {
	config  Config
	store   *conversation.Store
	jobs    JobRunner
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	botName string
	now     func() time.Time

	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// New creates a Gateway. It panics when opts.Store is nil.
func New(cfg Config, opts Options) *Gateway {
	if opts.Store == nil {
		panic("gateway: nil conversation store")
	}
	cfg.defaults()

	g := &Gateway{
		config:  cfg,
		store:   opts.Store,
		jobs:    opts.Jobs,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		logger:  opts.Logger,
		botName: opts.BotName,
		now:     opts.Now,
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	g.startedAt = g.now()
	return g
}

// Handler returns the routed handler, for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Addr returns the bound address once Start succeeded.
func (g *Gateway) Addr() net.Addr { return g.addr }

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	g.addr = ln.Addr()
	g.startedAt = g.now()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String(), "api", g.config.BearerToken != "")
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
