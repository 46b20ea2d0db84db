package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/ux"
)

// wipeAllPrompt guards the irreversible long-term wipe.
const wipeAllPrompt = "Delete every long-term memory the engine has stored?"

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage agent memory",
	Long: `The engine keeps short-term breadcrumbs per plan and long-term facts
shared by all plans. These commands read, search, add to and wipe them.`,
}

var memorySessionCmd = &cobra.Command{
	Use:   "session <plan>",
	Short: "Show the short-term memory of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runMemorySession),
}

var memoryWipeSessionCmd = &cobra.Command{
	Use:   "wipe-session <plan>",
	Short: "Delete the short-term memory of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runMemoryWipeSession),
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search long-term memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withContext(runMemorySearch),
}

var memoryRememberCmd = &cobra.Command{
	Use:   "remember <key> <value>",
	Short: "Store a long-term fact",
	Args:  cobra.MinimumNArgs(2),
	RunE:  withContext(runMemoryRemember),
}

var memoryWipeAllCmd = &cobra.Command{
	Use:   "wipe-all",
	Short: "Delete all long-term memory",
	Args:  cobra.NoArgs,
	RunE:  withContext(runMemoryWipeAll),
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count memories in each tier",
	Args:  cobra.NoArgs,
	RunE:  withContext(runMemoryStats),
}

func init() {
	memorySearchCmd.Flags().IntP("limit", "n", api.DefaultRecallCount, "maximum number of results")
	memoryRememberCmd.Flags().String("category", "general", "fact category")
	memoryWipeAllCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	memoryCmd.AddCommand(
		memorySessionCmd,
		memoryWipeSessionCmd,
		memorySearchCmd,
		memoryRememberCmd,
		memoryWipeAllCmd,
		memoryStatsCmd,
	)
	rootCmd.AddCommand(memoryCmd)
}

func runMemorySession(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	mem, err := cc.Client.SessionMemory(ctx, args[0])
	if err != nil {
		return err
	}
	return cc.Print(ux.SessionMemory(*mem))
}

func runMemoryWipeSession(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	res, err := cc.Client.WipeSessionMemory(ctx, args[0])
	if err != nil {
		return err
	}
	return cc.Print(ux.WipeResult(*res))
}

func runMemorySearch(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return errors.New(errors.ErrCodeInvalidArgs, "--limit must be positive").WithField("limit")
	}
	res, err := cc.Client.Recall(ctx, strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	return cc.Print(ux.RecallResult(*res))
}

func runMemoryRemember(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	ack, err := cc.Client.Remember(ctx, api.Fact{
		Key:      args[0],
		Value:    strings.Join(args[1:], " "),
		Category: category,
	})
	if err != nil {
		return err
	}
	return cc.Print(ux.RememberAck(*ack))
}

func runMemoryWipeAll(ctx context.Context, cc *CommandContext, cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	ok, err := cc.Confirmer(yes).Confirm(ctx, wipeAllPrompt)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotConfirmedError("long-term memory wipe")
	}

	ack, err := cc.Client.WipeAllMemory(ctx)
	if err != nil {
		return err
	}
	cc.Logger.Warn("long-term memory wiped", "status", ack.Status)
	return cc.Print("Long-term memory wiped (" + ack.Status + ")")
}

func runMemoryStats(ctx context.Context, cc *CommandContext, _ *cobra.Command, _ []string) error {
	stats, err := cc.Client.MemoryStats(ctx)
	if err != nil {
		return err
	}
	return cc.Print(ux.MemoryStats(*stats))
}
