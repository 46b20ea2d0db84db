package store

import (
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// state is owned by the store goroutine.
type state struct {
	version uint64
	plans   map[string]*plan.Plan
	digests map[string]Digest
	order   []string // newest first

	activeID string
	selected *int
	logs     []plan.LogEntry
	summary  *plan.DecisionSummary
	warnings []string

	subs    map[int]chan View
	nextSub int

	logger  *log.Logger
	metrics *metrics.Metrics
}

func (st *state) view() View {
	v := View{
		Version:  st.version,
		Plans:    make([]*plan.Plan, 0, len(st.order)),
		ActiveID: st.activeID,
		Active:   st.plans[st.activeID],
		Logs:     append([]plan.LogEntry(nil), st.logs...),
		Warnings: append([]string(nil), st.warnings...),
	}
	for _, id := range st.order {
		v.Plans = append(v.Plans, st.plans[id])
	}
	if st.selected != nil {
		id := *st.selected
		v.SelectedNode = &id
	}
	if st.summary != nil {
		summary := *st.summary
		v.DecisionSummary = &summary
	}
	return v
}

func (st *state) changed(kind string) {
	st.version++
	st.metrics.RecordMutation(kind, len(st.order))

	v := st.view()
	for _, ch := range st.subs {
		select {
		case ch <- v:
		default:
			// Replace the unread view; only this goroutine sends.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// offer applies p unless the stored copy is newer or identical.
func (st *state) offer(p *plan.Plan) Outcome {
	digest := st.digest(p)

	stored, known := st.plans[p.ID]
	if !known {
		st.plans[p.ID] = p
		st.digests[p.ID] = digest
		st.order = append([]string{p.ID}, st.order...)
		st.logger.Debug("plan added", "plan_id", p.ID, "updated_at", p.UpdatedAt)
		return Applied
	}

	if p.UpdatedAt.Before(stored.UpdatedAt.Time) {
		st.logger.Debug("discarded stale plan snapshot",
			"plan_id", p.ID,
			"stored_updated_at", stored.UpdatedAt,
			"incoming_updated_at", p.UpdatedAt)
		return Stale
	}

	if digest == st.digests[p.ID] {
		return Unchanged
	}

	if regressed := plan.CheckTokenRegression(stored, p); len(regressed) > 0 {
		st.logger.Warn("token usage decreased between snapshots",
			"plan_id", p.ID,
			"node_ids", regressed)
	}

	st.plans[p.ID] = p
	st.digests[p.ID] = digest
	st.logger.Debug("plan snapshot applied",
		"plan_id", p.ID,
		"status", p.Status,
		"updated_at", p.UpdatedAt,
		"digest", digest.String()[:12])
	return Applied
}

func (st *state) prepend(p *plan.Plan) {
	st.plans[p.ID] = p
	st.digests[p.ID] = st.digest(p)
	order := make([]string, 0, len(st.order)+1)
	order = append(order, p.ID)
	for _, id := range st.order {
		if id != p.ID {
			order = append(order, id)
		}
	}
	st.order = order
}

func (st *state) replaceAll(list []*plan.Plan) {
	plans := make(map[string]*plan.Plan, len(list))
	digests := make(map[string]Digest, len(list))
	order := make([]string, 0, len(list))

	for _, p := range list {
		if _, dup := plans[p.ID]; dup {
			continue
		}
		kept, digest := p, st.digest(p)
		if stored, ok := st.plans[p.ID]; ok && p.UpdatedAt.Before(stored.UpdatedAt.Time) {
			kept, digest = stored, st.digests[p.ID]
		}
		plans[p.ID] = kept
		digests[p.ID] = digest
		order = append(order, p.ID)
	}

	if active, ok := st.plans[st.activeID]; ok {
		if _, listed := plans[active.ID]; !listed {
			plans[active.ID] = active
			digests[active.ID] = st.digests[active.ID]
			order = append(order, active.ID)
		}
	}

	st.plans, st.digests, st.order = plans, digests, order
	st.changed("replace")
}

func (st *state) digest(p *plan.Plan) Digest {
	d, err := DigestOf(p)
	if err != nil {
		// Zero digest never matches a real one, so the snapshot counts as changed.
		st.logger.WithError(err).Warn("plan digest failed", "plan_id", p.ID)
	}
	return d
}
