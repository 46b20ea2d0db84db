// Package rewind branches a plan from a past node. The source plan is never
// touched; the branch is a new plan that points back at it.
package rewind

import (
	"context"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
)

// EditedTaskKey carries replacement task text inside the rewind arguments.
const EditedTaskKey = "_edited_task"

// Brancher asks the engine for a branch.
type Brancher interface {
	RewindNode(ctx context.Context, planID string, req api.RewindRequest) (*api.RewindResult, error)
}

// Activator switches the active-plan context to a new branch.
type Activator interface {
	ActivateBranch(ctx context.Context, branch *plan.Plan, warnings []string) error
}

// Result is a created branch and the side effects that cannot be safely
// repeated, in server order.
type Result struct {
	Branch   *plan.Plan
	Warnings []string
}

// Controller issues rewinds.
type Controller struct {
	brancher  Brancher
	store     *store.Store
	activator Activator
	logger    *log.Logger
	metrics   *metrics.Metrics
}

// Option configures a Controller
type Option func(*Controller)

// WithActivator routes branch activation through a, typically a session
// that also moves the event channel. Without one the store is switched
// directly.
func WithActivator(a Activator) Option {
	return func(c *Controller) { c.activator = a }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a controller writing into s.
func New(b Brancher, s *store.Store, opts ...Option) *Controller {
	c := &Controller{
		brancher: b,
		store:    s,
		logger:   log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Component("rewind")
	return c
}

// Rewind branches planID from nodeID, optionally replacing the node's
// arguments. Warnings from an earlier rewind are cleared before the call,
// so an empty result is shown as empty. On success the branch is first in
// the plan list and active with its warnings on display.
func (c *Controller) Rewind(ctx context.Context, planID string, nodeID int, newArgs map[string]any) (*Result, error) {
	if p, ok := c.store.Snapshot().Plan(planID); ok {
		if _, ok := p.Node(nodeID); !ok {
			return nil, errors.NewUnknownNodeError(planID, nodeID)
		}
	}

	c.store.ClearWarnings()

	res, err := c.brancher.RewindNode(ctx, planID, api.RewindRequest{NodeID: nodeID, NewArgs: newArgs})
	if err != nil {
		return nil, err
	}

	branch := &res.Plan
	warnings := append([]string{}, res.IdempotencyWarnings...)

	logger := c.logger.WithPlan(planID)
	for _, w := range warnings {
		logger.Warn("idempotency warning", "branch_id", branch.ID, "warning", w)
	}

	if c.activator != nil {
		if err := c.activator.ActivateBranch(ctx, branch, warnings); err != nil {
			// The branch exists; only the follow-up load failed.
			logger.WithError(err).Warn("branch activation incomplete", "branch_id", branch.ID)
		}
	} else {
		c.store.ActivateBranch(branch, warnings)
	}

	c.metrics.RecordRewind(len(warnings))
	logger.Info("plan branched", "branch_id", branch.ID, "node_id", nodeID, "warnings", len(warnings))
	return &Result{Branch: branch, Warnings: warnings}, nil
}

// EditTask rewinds from nodeID with replacement task text. There is no
// edit without a branch.
func (c *Controller) EditTask(ctx context.Context, planID string, nodeID int, task string) (*Result, error) {
	if strings.TrimSpace(task) == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgs, "edited task text is empty").WithField("task")
	}
	return c.Rewind(ctx, planID, nodeID, map[string]any{EditedTaskKey: task})
}
