package cmd

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/config"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/session"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
	"github.com/mastershashi/llm-engineering-usecases/internal/telemetry"
	"github.com/mastershashi/llm-engineering-usecases/internal/tui"
	"github.com/mastershashi/llm-engineering-usecases/internal/ux"
)

// CommandContext holds the flags and the wired client stack of one
// command invocation. Commands build it in RunE instead of reading
// package globals:
//
//	cc, err := NewCommandContext(cmd)
//	if err != nil {
//		return err
//	}
//	defer cc.Close()
type CommandContext struct {
	// Output control
	Format  string
	NoColor bool
	Out     io.Writer

	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Client   *api.Client

	// Interactive decides whether confirmations may prompt.
	Interactive func() bool

	shutdownTracing func(context.Context) error
}

// NewCommandContext loads configuration and builds the client stack from
// the persistent flags of cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	if _, err := ux.NewFormatter(format, nil); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger := log.New(log.ConfigFrom(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()))
	log.SetDefaultLogger(logger)

	tracerCfg := cfg.TracerConfig()
	shutdown, err := telemetry.InitProvider(cmd.Context(), tracerCfg)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}

	reg, m := metrics.NewRegistry()
	client := api.NewClient(cfg.APIBaseURL(),
		api.WithToken(cfg.Server.Token),
		api.WithTimeout(cfg.Timeouts.Request),
		api.WithLogger(logger),
		api.WithMetrics(m),
	)

	return &CommandContext{
		Format:          format,
		NoColor:         noColor,
		Out:             cmd.OutOrStdout(),
		Config:          cfg,
		Logger:          logger,
		Registry:        reg,
		Metrics:         m,
		Client:          client,
		Interactive:     canPrompt,
		shutdownTracing: shutdown,
	}, nil
}

// Close flushes pending spans.
func (c *CommandContext) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.shutdownTracing(ctx); err != nil {
		c.Logger.WithError(err).Debug("tracer shutdown failed")
	}
}

// Print writes data in the selected output format.
func (c *CommandContext) Print(data any) error {
	f, err := ux.NewFormatter(c.Format, &ux.FormatterOptions{Writer: c.Out, NoColor: c.NoColor})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// Confirmer returns the confirmation source for irreversible actions:
// --yes acknowledges up front, otherwise the terminal is asked.
func (c *CommandContext) Confirmer(yes bool) approval.Confirmer {
	if yes {
		return approval.AlwaysConfirm
	}
	return tui.Confirmer{Interactive: c.Interactive}
}

// NewStore creates a plan store reporting to this context's metrics.
func (c *CommandContext) NewStore() *store.Store {
	return store.New(store.WithLogger(c.Logger), store.WithMetrics(c.Metrics))
}

// Channels returns the event channel factory for the configured engine.
func (c *CommandContext) Channels() session.ChannelFunc {
	dialer := channel.NewWebsocketDialer(c.Config.Server.Token)
	return func(planID string, opts ...channel.Option) *channel.Channel {
		base := []channel.Option{
			channel.WithDialer(dialer),
			channel.WithReconnectDelay(c.Config.Channel.ReconnectDelay),
			channel.WithKeepaliveInterval(c.Config.Channel.KeepaliveInterval),
			channel.WithLogger(c.Logger),
			channel.WithMetrics(c.Metrics),
		}
		return channel.New(planID, c.Config.WebsocketURL(planID), append(base, opts...)...)
	}
}

// NewSession wires a session over a fresh store, which closes with it.
func (c *CommandContext) NewSession(confirm approval.Confirmer) *session.Session {
	return session.New(c.Client, c.NewStore(), c.Channels(),
		session.WithConfirmer(confirm),
		session.WithLogger(c.Logger),
		session.WithMetrics(c.Metrics),
	)
}

// canPrompt reports whether confirmations may open a prompt.
var canPrompt = tui.ShouldPrompt

type runFunc func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error

// withContext adapts fn to cobra's RunE: it builds the command context and
// wraps the run in a command span.
func withContext(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		ctx, span := telemetry.StartCommandSpan(cmd.Context(), spanName(cmd))
		defer span.End()

		if err := fn(ctx, cc, cmd, args); err != nil {
			telemetry.RecordError(span, err)
			return ux.EnhanceError(err)
		}
		telemetry.RecordSuccess(span)
		return nil
	}
}

// spanName turns "amsab node approve" into "node.approve".
func spanName(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
