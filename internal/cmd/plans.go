package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/ux"
)

var plansCmd = &cobra.Command{
	Use:     "plans",
	Aliases: []string{"plan"},
	Short:   "Inspect and control plans",
	Long: `List plans, inspect one with its projected graph and trust estimate,
approve a draft, stop a running plan or read its session log.`,
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known plans, newest first",
	Args:  cobra.NoArgs,
	RunE:  withContext(runPlansList),
}

var plansShowCmd = &cobra.Command{
	Use:   "show <plan>",
	Short: "Show a plan with its graph and trust estimate",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runPlansShow),
}

var plansApproveCmd = &cobra.Command{
	Use:   "approve <plan>",
	Short: "Start executing a draft plan",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runPlansApprove),
}

var plansKillCmd = &cobra.Command{
	Use:   "kill <plan>",
	Short: "Emergency stop: terminate every container of a plan",
	Long: `Kill immediately terminates all running containers for the plan.
It asks for confirmation unless --yes is given, and can be repeated.`,
	Args: cobra.ExactArgs(1),
	RunE: withContext(runPlansKill),
}

var plansLogsCmd = &cobra.Command{
	Use:   "logs <plan>",
	Short: "Print the session log of a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  withContext(runPlansLogs),
}

func init() {
	plansKillCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	plansCmd.AddCommand(plansListCmd, plansShowCmd, plansApproveCmd, plansKillCmd, plansLogsCmd)
	rootCmd.AddCommand(plansCmd)
}

func runPlansList(ctx context.Context, cc *CommandContext, _ *cobra.Command, _ []string) error {
	plans, err := cc.Client.ListPlans(ctx)
	if err != nil {
		return err
	}
	return cc.Print(ux.PlanList(plans))
}

func runPlansShow(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	p, err := cc.Client.GetPlan(ctx, args[0])
	if err != nil {
		return err
	}
	return cc.Print(ux.NewPlanDetail(p))
}

func runPlansApprove(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	p, err := cc.Client.GetPlan(ctx, args[0])
	if err != nil {
		return err
	}
	if p.Status != plan.StatusDraft {
		return errors.New(errors.ErrCodeNotAwaitingGate,
			fmt.Sprintf("plan %s is %s; only draft plans can be approved", p.ID, p.Status))
	}

	approved, err := cc.Client.ApprovePlan(ctx, p.ID)
	if err != nil {
		return err
	}
	cc.Logger.WithPlan(p.ID).Info("plan approved", "status", approved.Status)
	return cc.Print(ux.NewPlanDetail(approved))
}

func runPlansKill(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	p, err := cc.Client.GetPlan(ctx, args[0])
	if err != nil {
		return err
	}

	sess := cc.NewSession(cc.Confirmer(yes))
	defer sess.Close()
	sess.Store().Offer(p)

	ack, err := sess.Kill(ctx, p.ID)
	if err != nil {
		return err
	}
	return cc.Print(ux.KillAck(*ack))
}

func runPlansLogs(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	logs, err := cc.Client.GetLogs(ctx, args[0])
	if err != nil {
		return err
	}
	return cc.Print(ux.LogList(logs))
}
