package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/rewind"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
	"github.com/mastershashi/llm-engineering-usecases/internal/tui"
	"github.com/mastershashi/llm-engineering-usecases/internal/ux"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Decide gated steps and branch plans",
	Long: `Approve or veto a step held for human approval, or branch a plan from a
step with new arguments or task text.

Examples:
  # Approve as planned
  amsab node approve 3f2a 4

  # Approve with edited arguments
  amsab node approve 3f2a 4 --args '{"query": "quarterly revenue"}'

  # Veto; the agent abandons the branch
  amsab node skip 3f2a 4 --yes

  # Re-run from step 2 with a different task
  amsab node edit 3f2a 2 "search only internal sources"`,
}

var nodeApproveCmd = &cobra.Command{
	Use:   "approve <plan> <node>",
	Short: "Let a gated step run, optionally with edited arguments",
	Args:  cobra.ExactArgs(2),
	RunE:  withContext(runNodeApprove),
}

var nodeSkipCmd = &cobra.Command{
	Use:   "skip <plan> <node>",
	Short: "Veto a gated step",
	Args:  cobra.ExactArgs(2),
	RunE:  withContext(runNodeSkip),
}

var nodeRewindCmd = &cobra.Command{
	Use:   "rewind <plan> <node>",
	Short: "Branch the plan and re-execute from a step",
	Long: `Rewind creates a new branch that re-executes from the given step,
optionally with new arguments. Side effects that cannot be safely
repeated are listed as idempotency warnings before the branch.`,
	Args: cobra.ExactArgs(2),
	RunE: withContext(runNodeRewind),
}

var nodeEditCmd = &cobra.Command{
	Use:   "edit <plan> <node> [task]",
	Short: "Branch the plan from a step with new task text",
	Long: `Edit branches the plan from a step with replacement task text. Without
[task] the current text is opened for editing.`,
	Args: cobra.MinimumNArgs(2),
	RunE: withContext(runNodeEdit),
}

func init() {
	nodeApproveCmd.Flags().String("args", "", "replacement arguments as a JSON object")
	nodeApproveCmd.Flags().Bool("edit", false, "edit the planned arguments interactively")
	nodeSkipCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	nodeRewindCmd.Flags().String("args", "", "replacement arguments as a JSON object")
	nodeRewindCmd.Flags().Bool("edit", false, "edit the node's arguments interactively")

	nodeCmd.AddCommand(nodeApproveCmd, nodeSkipCmd, nodeRewindCmd, nodeEditCmd)
	rootCmd.AddCommand(nodeCmd)
}

// parseNodeArgs splits "<plan> <node>" and validates the node id.
func parseNodeArgs(args []string) (string, int, error) {
	planID := strings.TrimSpace(args[0])
	if planID == "" {
		return "", 0, errors.New(errors.ErrCodeInvalidArgs, "plan id is empty").WithField("plan")
	}
	nodeID, err := strconv.Atoi(args[1])
	if err != nil || nodeID < 0 {
		return "", 0, errors.New(errors.ErrCodeInvalidArgs, "node id must be a non-negative integer: "+args[1]).
			WithField("node").
			WithSuggestion("Node ids are listed by 'amsab plans show " + planID + "'")
	}
	return planID, nodeID, nil
}

// loadPlan fetches planID into a fresh store so local gate checks see it.
func loadPlan(ctx context.Context, cc *CommandContext, planID string) (*store.Store, error) {
	p, err := cc.Client.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	st := cc.NewStore()
	st.Offer(p)
	return st, nil
}

func (c *CommandContext) gate(st *store.Store, confirm approval.Confirmer) *approval.Gate {
	return approval.NewGate(c.Client, st,
		approval.WithConfirmer(confirm),
		approval.WithLogger(c.Logger),
		approval.WithMetrics(c.Metrics),
	)
}

func (c *CommandContext) rewinder(st *store.Store, opts ...rewind.Option) *rewind.Controller {
	base := []rewind.Option{rewind.WithLogger(c.Logger), rewind.WithMetrics(c.Metrics)}
	return rewind.New(c.Client, st, append(base, opts...)...)
}

func runNodeApprove(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	planID, nodeID, err := parseNodeArgs(args)
	if err != nil {
		return err
	}

	// Malformed JSON never reaches the engine.
	override, _ := cmd.Flags().GetString("args")
	edited, err := approval.ParseOverride(override)
	if err != nil {
		return err
	}

	st, err := loadPlan(ctx, cc, planID)
	if err != nil {
		return err
	}
	defer st.Close()

	if edit, _ := cmd.Flags().GetBool("edit"); edit && edited == nil {
		if edited, err = promptOverride(ctx, cc, st, planID, nodeID); err != nil {
			return err
		}
	}

	p, err := cc.gate(st, approval.AlwaysConfirm).ApproveWith(ctx, planID, nodeID, edited)
	if err != nil {
		return err
	}
	return cc.Print(ux.NewPlanDetail(p))
}

// promptOverride asks for replacement arguments, showing the planned ones.
func promptOverride(ctx context.Context, cc *CommandContext, st *store.Store, planID string, nodeID int) (map[string]any, error) {
	if !cc.Interactive() {
		return nil, errNotInteractive("--edit", "--args '<json>'")
	}
	p, _ := st.Snapshot().Plan(planID)
	n, ok := p.Node(nodeID)
	if !ok {
		return nil, errors.NewUnknownNodeError(planID, nodeID)
	}
	raw, err := tui.PromptForOverride(ctx, n.Args)
	if err != nil {
		return nil, err
	}
	return approval.ParseOverride(raw)
}

func errNotInteractive(flag, alternative string) error {
	return errors.New(errors.ErrCodeInvalidArgs, flag+" needs an interactive terminal").
		WithSuggestion("Pass " + alternative + " instead")
}

func runNodeSkip(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	planID, nodeID, err := parseNodeArgs(args)
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")

	st, err := loadPlan(ctx, cc, planID)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := cc.gate(st, cc.Confirmer(yes)).Skip(ctx, planID, nodeID)
	if err != nil {
		return err
	}
	return cc.Print(ux.NewPlanDetail(p))
}

func runNodeRewind(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error {
	planID, nodeID, err := parseNodeArgs(args)
	if err != nil {
		return err
	}
	override, _ := cmd.Flags().GetString("args")
	newArgs, err := approval.ParseOverride(override)
	if err != nil {
		return err
	}

	st, err := loadPlan(ctx, cc, planID)
	if err != nil {
		return err
	}
	defer st.Close()

	if edit, _ := cmd.Flags().GetBool("edit"); edit && newArgs == nil {
		if newArgs, err = promptOverride(ctx, cc, st, planID, nodeID); err != nil {
			return err
		}
	}

	res, err := cc.rewinder(st).Rewind(ctx, planID, nodeID, newArgs)
	if err != nil {
		return err
	}
	return cc.Print(ux.Branch{Plan: res.Branch, Warnings: res.Warnings})
}

func runNodeEdit(ctx context.Context, cc *CommandContext, _ *cobra.Command, args []string) error {
	planID, nodeID, err := parseNodeArgs(args)
	if err != nil {
		return err
	}

	st, err := loadPlan(ctx, cc, planID)
	if err != nil {
		return err
	}
	defer st.Close()

	task := strings.Join(args[2:], " ")
	if len(args) == 2 {
		if task, err = promptTask(ctx, cc, st, planID, nodeID); err != nil {
			return err
		}
	}

	res, err := cc.rewinder(st).EditTask(ctx, planID, nodeID, task)
	if err != nil {
		return err
	}
	return cc.Print(ux.Branch{Plan: res.Branch, Warnings: res.Warnings})
}

// promptTask asks for the new task text, starting from the current one.
func promptTask(ctx context.Context, cc *CommandContext, st *store.Store, planID string, nodeID int) (string, error) {
	if !cc.Interactive() {
		return "", errNotInteractive("editing without <task>", "the new task text as an argument")
	}
	p, _ := st.Snapshot().Plan(planID)
	n, ok := p.Node(nodeID)
	if !ok {
		return "", errors.NewUnknownNodeError(planID, nodeID)
	}
	return tui.PromptForString(ctx, tui.Prompt{
		Message:  fmt.Sprintf("New task for node %d", nodeID),
		Default:  n.Task,
		Required: true,
	})
}
