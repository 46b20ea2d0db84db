// Package approval implements the human decision gate in front of
// high-risk nodes: approve (optionally with corrected arguments) or veto.
package approval

import (
	"context"
	"fmt"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
)

// Decider sends a gate decision to the engine.
type Decider interface {
	DecideNode(ctx context.Context, planID string, nodeID int, d api.NodeDecision) (*plan.Plan, error)
}

// Gate resolves nodes held at awaiting_approval. Results are the server's
// refreshed plan; the gate never predicts a node status locally.
type Gate struct {
	decider Decider
	store   *store.Store
	confirm Confirmer
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Gate
type Option func(*Gate)

// WithConfirmer sets how vetoes are confirmed. Without one every veto is
// declined.
func WithConfirmer(c Confirmer) Option {
	return func(g *Gate) { g.confirm = c }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a gate that writes results into s.
func NewGate(d Decider, s *store.Store, opts ...Option) *Gate {
	g := &Gate{
		decider: d,
		store:   s,
		confirm: NeverConfirm,
		logger:  log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Component("approval")
	return g
}

// Approve lets nodeID run. rawOverride, when not blank, must be a JSON
// object and replaces the planned arguments; a malformed override is
// rejected without contacting the engine.
func (g *Gate) Approve(ctx context.Context, planID string, nodeID int, rawOverride string) (*plan.Plan, error) {
	args, err := ParseOverride(rawOverride)
	if err != nil {
		g.logger.WithPlan(planID).WithError(err).Warn("argument override rejected", "node_id", nodeID)
		return nil, err
	}
	return g.ApproveWith(ctx, planID, nodeID, args)
}

// ApproveWith is Approve with already parsed arguments. nil args approve
// the node as planned.
func (g *Gate) ApproveWith(ctx context.Context, planID string, nodeID int, args map[string]any) (*plan.Plan, error) {
	if err := g.checkGate(planID, nodeID); err != nil {
		return nil, err
	}
	return g.decide(ctx, planID, nodeID, api.NodeDecision{Approved: true, EditedArgs: args})
}

// Skip vetoes nodeID after the user confirms. A declined confirmation
// makes no call and changes nothing.
func (g *Gate) Skip(ctx context.Context, planID string, nodeID int) (*plan.Plan, error) {
	if err := g.checkGate(planID, nodeID); err != nil {
		return nil, err
	}

	ok, err := g.confirm.Confirm(ctx, VetoPrompt)
	if err != nil {
		return nil, fmt.Errorf("confirm veto: %w", err)
	}
	if !ok {
		g.logger.WithPlan(planID).Info("veto cancelled", "node_id", nodeID)
		return nil, errors.NewNotConfirmedError("veto")
	}

	return g.decide(ctx, planID, nodeID, api.NodeDecision{Approved: false})
}

func (g *Gate) decide(ctx context.Context, planID string, nodeID int, d api.NodeDecision) (*plan.Plan, error) {
	p, err := g.decider.DecideNode(ctx, planID, nodeID, d)
	if err != nil {
		return nil, err
	}

	g.store.Offer(p)
	g.store.ClearSelection()
	g.store.ClearDecisionSummary()

	decision := "approve"
	if !d.Approved {
		decision = "skip"
	}
	g.metrics.RecordDecision(decision, d.EditedArgs != nil)
	g.logger.WithPlan(planID).Info("gate decided",
		"node_id", nodeID,
		"decision", decision,
		"edited", d.EditedArgs != nil)
	return p, nil
}

// checkGate rejects decisions the local snapshot proves pointless: unknown
// nodes and nodes already past the gate. Plans the store has not seen are
// left to the engine.
func (g *Gate) checkGate(planID string, nodeID int) error {
	p, ok := g.store.Snapshot().Plan(planID)
	if !ok {
		return nil
	}
	n, ok := p.Node(nodeID)
	if !ok {
		return errors.NewUnknownNodeError(planID, nodeID)
	}
	if n.Status.Resolved() {
		return errors.New(errors.ErrCodeNotAwaitingGate,
			fmt.Sprintf("node %d is already %s", nodeID, n.Status))
	}
	return nil
}
