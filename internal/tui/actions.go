package tui

import (
	"context"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/rewind"
	"github.com/mastershashi/llm-engineering-usecases/internal/session"
)

// Actions is what the dashboard can ask of the engine. Irreversible
// actions arrive here already confirmed by the dashboard's own modal.
type Actions interface {
	Select(nodeID int) error
	ClearSelection()
	ApproveNode(ctx context.Context, planID string, nodeID int, rawOverride string) error
	SkipNode(ctx context.Context, planID string, nodeID int) error
	Rewind(ctx context.Context, planID string, nodeID int, rawOverride string) error
	EditTask(ctx context.Context, planID string, nodeID int, task string) error
	ApprovePlan(ctx context.Context) error
	Kill(ctx context.Context, planID string) error
	ChannelState() channel.State
}

// SessionActions drives a live session. Gate and Session must be built
// with approval.AlwaysConfirm because confirmation happens in the model.
type SessionActions struct {
	Session *session.Session
	Gate    *approval.Gate
	Rewinds *rewind.Controller
}

var _ Actions = SessionActions{}

// Select implements Actions.
func (a SessionActions) Select(nodeID int) error {
	return a.Session.Store().Select(nodeID)
}

// ClearSelection implements Actions.
func (a SessionActions) ClearSelection() {
	a.Session.Store().ClearSelection()
}

// ApproveNode implements Actions.
func (a SessionActions) ApproveNode(ctx context.Context, planID string, nodeID int, rawOverride string) error {
	_, err := a.Gate.Approve(ctx, planID, nodeID, rawOverride)
	return err
}

// SkipNode implements Actions.
func (a SessionActions) SkipNode(ctx context.Context, planID string, nodeID int) error {
	_, err := a.Gate.Skip(ctx, planID, nodeID)
	return err
}

// Rewind implements Actions.
func (a SessionActions) Rewind(ctx context.Context, planID string, nodeID int, rawOverride string) error {
	args, err := approval.ParseOverride(rawOverride)
	if err != nil {
		return err
	}
	_, err = a.Rewinds.Rewind(ctx, planID, nodeID, args)
	return err
}

// EditTask implements Actions.
func (a SessionActions) EditTask(ctx context.Context, planID string, nodeID int, task string) error {
	_, err := a.Rewinds.EditTask(ctx, planID, nodeID, task)
	return err
}

// ApprovePlan implements Actions.
func (a SessionActions) ApprovePlan(ctx context.Context) error {
	_, err := a.Session.ApprovePlan(ctx)
	return err
}

// Kill implements Actions.
func (a SessionActions) Kill(ctx context.Context, planID string) error {
	_, err := a.Session.Kill(ctx, planID)
	return err
}

// ChannelState implements Actions.
func (a SessionActions) ChannelState() channel.State {
	if ch := a.Session.Channel(); ch != nil {
		return ch.State()
	}
	return channel.Idle
}
