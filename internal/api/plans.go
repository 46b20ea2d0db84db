package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

func planPath(planID string, rest ...string) string {
	p := "/plans/" + url.PathEscape(planID)
	if len(rest) > 0 {
		p += "/" + strings.Join(rest, "/")
	}
	return p
}

func nodePath(planID string, nodeID int, action string) string {
	return planPath(planID, "nodes", fmt.Sprint(nodeID), action)
}

// SubmitGoal creates a draft plan. Blank goals are rejected locally.
func (c *Client) SubmitGoal(ctx context.Context, req GoalRequest) (*plan.Plan, error) {
	if strings.TrimSpace(req.Goal) == "" {
		return nil, errors.NewEmptyGoalError()
	}
	var p plan.Plan
	if err := c.do(ctx, "submit_goal", http.MethodPost, "/goals", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns every plan the engine knows, newest first.
func (c *Client) ListPlans(ctx context.Context) ([]plan.Plan, error) {
	var plans []plan.Plan
	if err := c.do(ctx, "list_plans", http.MethodGet, "/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan fetches the authoritative snapshot of one plan.
func (c *Client) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	var p plan.Plan
	if err := c.do(ctx, "get_plan", http.MethodGet, planPath(planID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ApprovePlan moves a draft plan into execution.
func (c *Client) ApprovePlan(ctx context.Context, planID string) (*plan.Plan, error) {
	var p plan.Plan
	if err := c.do(ctx, "approve_plan", http.MethodPost, planPath(planID, "approve"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecideNode approves or vetoes a node held at an approval gate.
func (c *Client) DecideNode(ctx context.Context, planID string, nodeID int, d NodeDecision) (*plan.Plan, error) {
	op := "approve_node"
	if !d.Approved {
		op = "skip_node"
	}
	var p plan.Plan
	if err := c.do(ctx, op, http.MethodPost, nodePath(planID, nodeID, "approve"), d, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RewindNode branches planID from nodeID.
func (c *Client) RewindNode(ctx context.Context, planID string, req RewindRequest) (*RewindResult, error) {
	var res RewindResult
	if err := c.do(ctx, "rewind_node", http.MethodPost, nodePath(planID, req.NodeID, "rewind"), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// KillPlan is the emergency stop. Repeating it is harmless.
func (c *Client) KillPlan(ctx context.Context, planID string) (*KillAck, error) {
	var ack KillAck
	if err := c.do(ctx, "kill_plan", http.MethodPost, planPath(planID, "kill"), nil, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// GetLogs returns the persisted session log of a plan.
func (c *Client) GetLogs(ctx context.Context, planID string) ([]plan.LogEntry, error) {
	var logs []plan.LogEntry
	if err := c.do(ctx, "get_logs", http.MethodGet, planPath(planID, "logs"), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
