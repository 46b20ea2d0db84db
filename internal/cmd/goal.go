package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/ux"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Submit goals to the engine",
}

var goalSubmitCmd = &cobra.Command{
	Use:   "submit <goal>",
	Short: "Submit a natural-language goal for planning",
	Long: `Submit a goal. The engine answers with a draft plan that must be
approved with 'amsab plans approve' before it executes.

Goals are read-only unless write, network or admin access is granted.

Examples:
  amsab goal submit "summarise research.txt"
  amsab goal submit "post the summary to the team wiki" --network --tool http_post`,
	Args: cobra.MinimumNArgs(1),
	RunE: withContext(runGoalSubmit),
}

func init() {
	goalSubmitCmd.Flags().Bool("write", false, "allow file writes")
	goalSubmitCmd.Flags().Bool("network", false, "allow network access")
	goalSubmitCmd.Flags().Bool("admin", false, "allow administrative actions")
	goalSubmitCmd.Flags().StringSlice("tool", nil, "restrict the plan to these tools (repeatable)")

	goalCmd.AddCommand(goalSubmitCmd)
	rootCmd.AddCommand(goalCmd)
}

func runGoalSubmit(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" {
		return errors.NewEmptyGoalError()
	}

	flags := cmd.Flags()
	perms := api.ReadOnly()
	perms.Write, _ = flags.GetBool("write")
	perms.Network, _ = flags.GetBool("network")
	perms.Admin, _ = flags.GetBool("admin")
	tools, _ := flags.GetStringSlice("tool")

	p, err := cc.Client.SubmitGoal(ctx, api.GoalRequest{
		Goal:         goal,
		Permissions:  perms,
		AllowedTools: tools,
	})
	if err != nil {
		return err
	}
	cc.Logger.WithPlan(p.ID).Info("goal submitted", "status", p.Status, "nodes", len(p.DAG.Nodes))
	return cc.Print(ux.NewPlanDetail(p))
}
