package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "amsab",
	Short: "Human-in-the-loop console for the Amsab agent engine",
	Long: `amsab follows agent plans as they execute on the engine, stops at
high-risk steps for a human decision, and branches a plan from any step
with edited arguments or task text.

Plans are fetched over REST; the watch dashboard also streams plan
events over a websocket and resynchronises on every one of them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, cancelled on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.amsab/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.String("log-format", "", "log format: text or json (overrides config)")
	pf.StringP("output", "o", "text", "output format: text, json or yaml")
	pf.Bool("no-color", false, "disable colored output")
}
