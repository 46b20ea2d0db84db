package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/health"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/rewind"
	"github.com/mastershashi/llm-engineering-usecases/internal/server"
	"github.com/mastershashi/llm-engineering-usecases/internal/session"
	"github.com/mastershashi/llm-engineering-usecases/internal/tui"
	"github.com/mastershashi/llm-engineering-usecases/internal/version"
)

var watchCmd = &cobra.Command{
	Use:   "watch <plan>",
	Short: "Follow a plan live in the dashboard",
	Long: `Open the interactive dashboard for a plan. The plan is refetched on
every engine event, gated steps can be approved or vetoed in place, and
any step can be rewound into a new branch.

When metrics.addr is configured, /metrics and health probes are served
there for as long as the dashboard runs.

Keys: j/k select, a approve, x veto, r rewind, e edit task, p approve
plan, K kill, ? help, q quit.`,
	Args: cobra.ExactArgs(1),
	RunE: withContext(runWatch),
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return errors.New(errors.ErrCodeInvalidArgs, "watch needs an interactive terminal").
			WithSuggestion("Use 'amsab plans show' and 'amsab plans logs' from scripts")
	}

	// The dashboard confirms veto and kill in its own modal.
	sess := cc.NewSession(approval.AlwaysConfirm)
	defer sess.Close()

	if err := sess.Refresh(ctx); err != nil {
		return err
	}
	if err := sess.SelectPlan(ctx, args[0]); err != nil {
		return err
	}

	if addr := cc.Config.Metrics.Addr; addr != "" {
		probes := startProbeServer(cc, sess, addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := probes.Shutdown(shutdownCtx); err != nil {
				cc.Logger.WithError(err).Warn("probe server shutdown failed")
			}
		}()
	}

	actions := tui.SessionActions{
		Session: sess,
		Gate:    cc.gate(sess.Store(), approval.AlwaysConfirm),
		Rewinds: cc.rewinder(sess.Store(), rewind.WithActivator(sess)),
	}
	return tui.Run(ctx, actions, sess.Store())
}

// startProbeServer serves metrics and health for the watched session in
// the background.
func startProbeServer(cc *CommandContext, sess *session.Session, addr string) *server.Server {
	h := health.NewManager(version.Version)
	h.AddChecker(health.NewChannelChecker(func() health.StateSource {
		if ch := sess.Channel(); ch != nil {
			return ch
		}
		return nil
	}))
	h.AddChecker(health.NewEngineChecker(func(ctx context.Context) error {
		_, err := cc.Client.ListPlans(ctx)
		return err
	}))

	srv := server.New(h, server.Config{
		Address: addr,
		Metrics: metrics.HandlerFor(cc.Registry),
		Logger:  cc.Logger,
	})
	go func() {
		if err := srv.Start(); err != nil {
			cc.Logger.WithError(err).Error("probe server stopped", "addr", addr)
		}
	}()
	return srv
}
