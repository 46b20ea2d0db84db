package health

import (
	"context"

	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
)

// StateSource reports the event channel state.
type StateSource interface {
	State() channel.State
}

// ChannelChecker is healthy while the event channel is connected and
// degraded while it reconnects. Transport loss is never fatal, so it never
// reports unhealthy for a channel that is trying.
type ChannelChecker struct {
	source func() StateSource
}

// NewChannelChecker checks whatever channel source returns at check time;
// the active channel changes as plans are selected.
func NewChannelChecker(source func() StateSource) *ChannelChecker {
	return &ChannelChecker{source: source}
}

func (c *ChannelChecker) Name() string { return "event-channel" }

func (c *ChannelChecker) Check(context.Context) *Result {
	src := c.source()
	if src == nil {
		return Unhealthy("no active plan")
	}
	state := src.State()
	var r *Result
	switch state {
	case channel.Connected:
		r = Healthy("event channel connected")
	case channel.Connecting, channel.Waiting:
		r = Degraded("event channel reconnecting")
	default:
		r = Unhealthy("event channel closed")
	}
	return r.WithDetail("state", state.String())
}

// EngineChecker probes the engine's REST surface with ping.
type EngineChecker struct {
	ping func(ctx context.Context) error
}

// NewEngineChecker wraps a cheap REST call such as listing plans.
func NewEngineChecker(ping func(ctx context.Context) error) *EngineChecker {
	return &EngineChecker{ping: ping}
}

func (c *EngineChecker) Name() string { return "engine" }

func (c *EngineChecker) Check(ctx context.Context) *Result {
	if err := c.ping(ctx); err != nil {
		return Unhealthy("engine unreachable").WithDetail("error", err.Error())
	}
	return Healthy("engine reachable")
}
