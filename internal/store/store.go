package store

import (
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// Outcome reports what happened to an offered plan snapshot.
type Outcome string

const (
	// Applied: the snapshot replaced (or was inserted as) the stored copy.
	Applied Outcome = "applied"
	// Unchanged: the snapshot was not older but hashed identically.
	Unchanged Outcome = "unchanged"
	// Stale: the stored copy has a later updated_at.
	Stale Outcome = "stale"
	// Inactive: the snapshot was fetched for a plan that is no longer active.
	Inactive Outcome = "inactive"
)

// Store is the client's view of all known plans. Every mutation runs on a
// single goroutine; methods block until their mutation has been applied.
type Store struct {
	ops  chan func(*state)
	quit chan struct{}
	done chan struct{}

	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New starts a store. Call Close to stop it.
func New(opts ...Option) *Store {
	s := &Store{
		ops:    make(chan func(*state)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Component("store")

	st := &state{
		plans:   make(map[string]*plan.Plan),
		digests: make(map[string]Digest),
		subs:    make(map[int]chan View),
		logger:  s.logger,
		metrics: s.metrics,
	}
	go s.run(st)
	return s
}

func (s *Store) run(st *state) {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.quit:
			for id, ch := range st.subs {
				close(ch)
				delete(st.subs, id)
			}
			return
		}
	}
}

// Close stops the mutation goroutine and closes every subscription.
// Calls made after Close return zero values.
func (s *Store) Close() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

func call[T any](s *Store, fn func(*state) T) T {
	res := make(chan T, 1)
	select {
	case s.ops <- func(st *state) { res <- fn(st) }:
		return <-res
	case <-s.done:
		var zero T
		return zero
	}
}

// Snapshot returns the current view.
func (s *Store) Snapshot() View {
	return call(s, func(st *state) View { return st.view() })
}

// Subscribe returns a channel receiving the view after every change. Slow
// readers only ever see the latest view. The cancel func is idempotent.
func (s *Store) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	id := call(s, func(st *state) int {
		st.nextSub++
		st.subs[st.nextSub] = ch
		return st.nextSub
	})
	if id == 0 {
		close(ch)
		return ch, func() {}
	}
	cancel := func() {
		call(s, func(st *state) struct{} {
			if sub, ok := st.subs[id]; ok {
				close(sub)
				delete(st.subs, id)
			}
			return struct{}{}
		})
	}
	return ch, cancel
}

// ReplaceAll installs the server's plan list. Stored copies newer than the
// listed ones are kept, and the active plan stays known even when the list
// omits it.
func (s *Store) ReplaceAll(plans []*plan.Plan) {
	call(s, func(st *state) struct{} {
		st.replaceAll(plans)
		return struct{}{}
	})
}

// Offer applies a snapshot under the apply-latest rule. Unknown plans are
// prepended.
func (s *Store) Offer(p *plan.Plan) Outcome {
	return call(s, func(st *state) Outcome {
		outcome := st.offer(p)
		if outcome == Applied {
			st.changed("offer")
		}
		return outcome
	})
}

// ApplyResync applies a snapshot fetched for issuedFor, discarding it when
// issuedFor is no longer the active plan.
func (s *Store) ApplyResync(p *plan.Plan, issuedFor string) Outcome {
	return call(s, func(st *state) Outcome {
		var outcome Outcome
		if st.activeID == "" || st.activeID != issuedFor || p.ID != issuedFor {
			outcome = Inactive
			st.logger.Debug("discarded resync for inactive plan",
				"error_code", errors.ErrCodeInactivePlan,
				"plan_id", p.ID,
				"active_plan_id", st.activeID)
		} else {
			outcome = st.offer(p)
			if outcome == Applied {
				st.changed("resync")
			}
		}
		st.metrics.RecordResync(string(outcome))
		return outcome
	})
}

// Prepend puts p at the head of the list, replacing any stored copy
// regardless of timestamps. Used for freshly created plans.
func (s *Store) Prepend(p *plan.Plan) {
	call(s, func(st *state) struct{} {
		st.prepend(p)
		st.changed("prepend")
		return struct{}{}
	})
}

// SetActive makes id the active plan and clears the per-plan context:
// node selection, session logs, decision summary and warnings.
func (s *Store) SetActive(id string) {
	call(s, func(st *state) struct{} {
		st.activeID = id
		st.selected = nil
		st.logs = nil
		st.summary = nil
		st.warnings = nil
		st.changed("activate")
		return struct{}{}
	})
}

// ActivateBranch prepends a freshly created branch, makes it active and
// shows warnings. Session logs are cleared with the rest of the context.
func (s *Store) ActivateBranch(p *plan.Plan, warnings []string) {
	call(s, func(st *state) struct{} {
		st.prepend(p)
		st.activeID = p.ID
		st.selected = nil
		st.logs = nil
		st.summary = nil
		st.warnings = append([]string{}, warnings...)
		st.changed("branch")
		return struct{}{}
	})
}

// Select marks a node of the active plan as selected.
func (s *Store) Select(nodeID int) error {
	return call(s, func(st *state) error {
		active := st.plans[st.activeID]
		if active == nil {
			return errors.New(errors.ErrCodeNoActivePlan, "no active plan")
		}
		if _, ok := active.Node(nodeID); !ok {
			return errors.NewUnknownNodeError(active.ID, nodeID)
		}
		id := nodeID
		st.selected = &id
		st.changed("select")
		return nil
	})
}

// ClearSelection deselects the selected node, if any.
func (s *Store) ClearSelection() {
	call(s, func(st *state) struct{} {
		if st.selected != nil {
			st.selected = nil
			st.changed("select")
		}
		return struct{}{}
	})
}

// SetLogs replaces the session log buffer if planID is still active.
func (s *Store) SetLogs(planID string, logs []plan.LogEntry) Outcome {
	return call(s, func(st *state) Outcome {
		if planID != st.activeID {
			return Inactive
		}
		st.logs = append([]plan.LogEntry{}, logs...)
		st.changed("logs")
		return Applied
	})
}

// AppendLog adds one entry to the session log buffer if planID is active.
func (s *Store) AppendLog(planID string, entry plan.LogEntry) Outcome {
	return call(s, func(st *state) Outcome {
		if planID != st.activeID {
			return Inactive
		}
		st.logs = append(st.logs, entry)
		st.changed("logs")
		return Applied
	})
}

// SetDecisionSummary records the summary carried by an approval event.
func (s *Store) SetDecisionSummary(planID string, summary plan.DecisionSummary) Outcome {
	return call(s, func(st *state) Outcome {
		if planID != st.activeID {
			return Inactive
		}
		st.summary = &summary
		st.changed("summary")
		return Applied
	})
}

// ClearDecisionSummary drops the pending decision summary.
func (s *Store) ClearDecisionSummary() {
	call(s, func(st *state) struct{} {
		if st.summary != nil {
			st.summary = nil
			st.changed("summary")
		}
		return struct{}{}
	})
}

// ClearWarnings drops displayed idempotency warnings. It always notifies so
// a following ActivateBranch with no warnings is observably distinct.
func (s *Store) ClearWarnings() {
	call(s, func(st *state) struct{} {
		st.warnings = nil
		st.changed("warnings")
		return struct{}{}
	})
}
