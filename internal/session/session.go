// Package session holds the explicit active-plan context: which plan the
// user is looking at, the event channel streaming it, and the resync loop
// that keeps the store authoritative.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
	"github.com/mastershashi/llm-engineering-usecases/internal/telemetry"
	"github.com/mastershashi/llm-engineering-usecases/internal/trust"
)

// KillPrompt is shown before the emergency stop.
const KillPrompt = "Kill switch: immediately terminate all running containers for this plan?"

// Commands is the part of the REST surface a session drives.
type Commands interface {
	ListPlans(ctx context.Context) ([]plan.Plan, error)
	GetPlan(ctx context.Context, planID string) (*plan.Plan, error)
	GetLogs(ctx context.Context, planID string) ([]plan.LogEntry, error)
	SubmitGoal(ctx context.Context, req api.GoalRequest) (*plan.Plan, error)
	ApprovePlan(ctx context.Context, planID string) (*plan.Plan, error)
	KillPlan(ctx context.Context, planID string) (*api.KillAck, error)
}

// ChannelFunc builds the event channel for a plan. Session appends its own
// options to the ones the factory applies.
type ChannelFunc func(planID string, opts ...channel.Option) *channel.Channel

// Session is the active-plan context.
type Session struct {
	cmds       Commands
	store      *store.Store
	newChannel ChannelFunc
	confirm    approval.Confirmer
	logger     *log.Logger
	metrics    *metrics.Metrics

	// base outlives plan switches; resyncs are never aborted when interest
	// moves on, the store discards their results instead.
	base     context.Context
	stop     context.CancelFunc
	requests chan resyncRequest
	issued   chan struct{}

	mu sync.Mutex
	ch *channel.Channel
}

// resyncQueue bounds resyncs waiting to be issued. A full queue holds up
// the channel's read loop until the issuer catches up.
const resyncQueue = 64

type resyncRequest struct {
	planID  string
	trigger string
}

// Option configures a Session
type Option func(*Session)

// WithConfirmer sets how the kill switch is confirmed.
func WithConfirmer(c approval.Confirmer) Option {
	return func(s *Session) { s.confirm = c }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a session that takes ownership of st: Close closes it.
// newChannel is called once per plan selection.
func New(cmds Commands, st *store.Store, newChannel ChannelFunc, opts ...Option) *Session {
	s := &Session{
		cmds:       cmds,
		store:      st,
		newChannel: newChannel,
		confirm:    approval.NeverConfirm,
		logger:     log.DefaultLogger(),
		requests:   make(chan resyncRequest, resyncQueue),
		issued:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Component("session")
	s.base, s.stop = context.WithCancel(context.Background())
	go s.issue()
	return s
}

// Store returns the plan store the session writes to.
func (s *Session) Store() *store.Store {
	return s.store
}

// Snapshot returns the current store view.
func (s *Session) Snapshot() store.View {
	return s.store.Snapshot()
}

// Channel returns the channel streaming the active plan, or nil.
func (s *Session) Channel() *channel.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Trust estimates the active plan from its last fully refreshed snapshot.
// Event payloads never feed into it.
func (s *Session) Trust() trust.Estimate {
	return trust.EstimateOf(s.store.Snapshot().Active)
}

// Refresh reloads the plan list.
func (s *Session) Refresh(ctx context.Context) error {
	list, err := s.cmds.ListPlans(ctx)
	if err != nil {
		return err
	}
	plans := make([]*plan.Plan, len(list))
	for i := range list {
		plans[i] = &list[i]
	}
	s.store.ReplaceAll(plans)
	return nil
}

// SelectPlan makes planID active: the previous channel is torn down, the
// per-plan context is cleared, a channel for planID is opened and the plan
// and its logs are fetched.
func (s *Session) SelectPlan(ctx context.Context, planID string) error {
	s.store.SetActive(planID)
	s.switchChannel(planID)
	return s.load(ctx, planID)
}

// ActivateBranch switches to a freshly created branch, keeping warnings on
// display while the branch's channel and logs come up.
func (s *Session) ActivateBranch(ctx context.Context, branch *plan.Plan, warnings []string) error {
	s.store.ActivateBranch(branch, warnings)
	s.switchChannel(branch.ID)
	s.recordTrust()

	logs, err := s.cmds.GetLogs(ctx, branch.ID)
	if err != nil {
		return err
	}
	s.store.SetLogs(branch.ID, logs)
	return nil
}

func (s *Session) load(ctx context.Context, planID string) error {
	p, err := s.cmds.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if s.store.ApplyResync(p, planID) == store.Applied {
		s.recordTrust()
	}

	logs, err := s.cmds.GetLogs(ctx, planID)
	if err != nil {
		return err
	}
	s.store.SetLogs(planID, logs)
	return nil
}

func (s *Session) switchChannel(planID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		s.ch.Disconnect()
		s.ch = nil
	}

	ch := s.newChannel(planID, channel.WithConnectHandler(func(reconnect bool) {
		// A fresh transport may have missed events.
		if reconnect {
			s.resync(planID, "reconnect")
		}
	}))
	ch.On(channel.Wildcard, func(ev channel.Event) {
		s.resync(planID, string(ev.Type))
	})
	ch.On(channel.NodeAwaitingApproval, func(ev channel.Event) {
		if summary, ok := ev.DecisionSummary(); ok {
			s.store.SetDecisionSummary(planID, summary)
		}
	})
	ch.On(channel.LogLine, func(ev channel.Event) {
		s.store.AppendLog(planID, logEntry(ev))
	})
	ch.Connect()
	s.ch = ch
}

// resync queues a refetch of planID. Fetches are issued one at a time in
// the order they were queued; the store keeps the newest response and
// drops those for inactive plans.
func (s *Session) resync(planID, trigger string) {
	select {
	case s.requests <- resyncRequest{planID: planID, trigger: trigger}:
	case <-s.base.Done():
	}
}

func (s *Session) issue() {
	defer close(s.issued)
	for {
		select {
		case <-s.base.Done():
			return
		case req := <-s.requests:
			s.fetch(req)
		}
	}
}

func (s *Session) fetch(req resyncRequest) {
	ctx, span := telemetry.StartResyncSpan(s.base, req.planID, req.trigger)
	defer span.End()

	p, err := s.cmds.GetPlan(ctx, req.planID)
	if err != nil {
		telemetry.RecordError(span, err)
		if s.base.Err() == nil {
			s.logger.WithPlan(req.planID).WithError(err).Warn("resync failed", "trigger", req.trigger)
		}
		return
	}

	outcome := s.store.ApplyResync(p, req.planID)
	telemetry.RecordSuccess(span, attribute.String("resync.outcome", string(outcome)))
	switch outcome {
	case store.Applied:
		s.recordTrust()
	case store.Stale:
		s.logger.WithError(errors.NewStaleResponseError(req.planID)).Debug("resync discarded", "trigger", req.trigger)
	}
}

func (s *Session) recordTrust() {
	s.metrics.RecordTrustScore(s.Trust().Score)
}

func logEntry(ev channel.Event) plan.LogEntry {
	msg := ev.String("line")
	if msg == "" {
		msg = ev.String("message")
	}
	level := ev.String("level")
	if level == "" {
		level = "info"
	}
	entry := plan.LogEntry{Message: msg, Level: level, CreatedAt: ev.Time()}
	if id, ok := ev.Int("node_id"); ok {
		entry.NodeID = &id
	}
	return entry
}

// SubmitGoal creates a plan, puts it first in the list and selects it.
func (s *Session) SubmitGoal(ctx context.Context, req api.GoalRequest) (*plan.Plan, error) {
	p, err := s.cmds.SubmitGoal(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store.Prepend(p)
	if err := s.SelectPlan(ctx, p.ID); err != nil {
		return p, err
	}
	return p, nil
}

// ApprovePlan starts execution of the active plan. Only drafts qualify.
func (s *Session) ApprovePlan(ctx context.Context) (*plan.Plan, error) {
	active := s.store.Snapshot().Active
	if active == nil {
		return nil, errors.New(errors.ErrCodeNoActivePlan, "no active plan")
	}
	if active.Status != plan.StatusDraft {
		return nil, errors.New(errors.ErrCodeNotAwaitingGate,
			fmt.Sprintf("plan %s is %s; only draft plans can be approved", active.ID, active.Status))
	}

	p, err := s.cmds.ApprovePlan(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	s.store.Offer(p)
	return p, nil
}

// Kill is the emergency stop for planID. It asks for confirmation and may
// be repeated; a plan the store knows to be idle or finished is refused.
func (s *Session) Kill(ctx context.Context, planID string) (*api.KillAck, error) {
	if p, ok := s.store.Snapshot().Plan(planID); ok && !p.Status.Killable() {
		return nil, errors.New(errors.ErrCodeNotAwaitingGate,
			fmt.Sprintf("plan %s is %s; nothing to kill", planID, p.Status))
	}

	ok, err := s.confirm.Confirm(ctx, KillPrompt)
	if err != nil {
		return nil, fmt.Errorf("confirm kill: %w", err)
	}
	if !ok {
		return nil, errors.NewNotConfirmedError("kill switch")
	}

	ack, err := s.cmds.KillPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	s.logger.WithPlan(planID).Warn("kill switch triggered", "status", ack.Status)
	s.resync(planID, "kill")
	return ack, nil
}

// Close disconnects the channel, abandons queued resyncs, waits for the
// one in flight and closes the store.
func (s *Session) Close() {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.mu.Unlock()

	if ch != nil {
		ch.Disconnect()
	}
	s.stop()
	<-s.issued
	s.store.Close()
}
