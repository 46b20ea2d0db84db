package store_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan/plantest"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
)

func newStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s := store.New(append([]store.Option{store.WithLogger(log.Discard())}, opts...)...)
	t.Cleanup(s.Close)
	return s
}

func ids(v store.View) []string {
	out := make([]string, 0, len(v.Plans))
	for _, p := range v.Plans {
		out = append(out, p.ID)
	}
	return out
}

func TestOfferAppliesLatest(t *testing.T) {
	s := newStore(t)

	older := plantest.Plan("p1", time.Minute, plantest.Node(1))
	newer := plantest.Plan("p1", 2*time.Minute, plantest.WithStatus(plantest.Node(1), plan.NodeRunning))

	assert.Equal(t, store.Applied, s.Offer(newer))
	assert.Equal(t, store.Stale, s.Offer(older))

	got, ok := s.Snapshot().Plan("p1")
	require.True(t, ok)
	assert.Equal(t, plan.NodeRunning, got.DAG.Nodes[0].Status)
}

func TestOfferUnchangedDigest(t *testing.T) {
	s := newStore(t)

	p := plantest.Plan("p1", time.Minute, plantest.Node(1))
	require.Equal(t, store.Applied, s.Offer(p))
	before := s.Snapshot().Version

	same := plantest.Plan("p1", time.Minute, plantest.Node(1))
	assert.Equal(t, store.Unchanged, s.Offer(same))
	assert.Equal(t, before, s.Snapshot().Version)
}

func TestOfferEqualTimestampDifferentContent(t *testing.T) {
	s := newStore(t)

	require.Equal(t, store.Applied, s.Offer(plantest.Plan("p1", time.Minute, plantest.Node(1))))
	changed := plantest.Plan("p1", time.Minute, plantest.WithStatus(plantest.Node(1), plan.NodeCompleted))
	assert.Equal(t, store.Applied, s.Offer(changed))
}

func TestApplyResyncStaleGuard(t *testing.T) {
	s := newStore(t)

	s.Prepend(plantest.Plan("a", 0, plantest.Node(1)))
	s.Prepend(plantest.Plan("b", 0, plantest.Node(1)))
	s.SetActive("a")

	// A resync for "a" is in flight when the user switches to "b".
	late := plantest.Plan("a", time.Hour, plantest.WithStatus(plantest.Node(1), plan.NodeFailed))
	s.SetActive("b")

	assert.Equal(t, store.Inactive, s.ApplyResync(late, "a"))

	v := s.Snapshot()
	assert.Equal(t, "b", v.ActiveID)
	stored, _ := v.Plan("a")
	assert.Equal(t, plan.NodePending, stored.DAG.Nodes[0].Status, "inactive plan entry must not be overwritten")
}

func TestApplyResyncMismatchedPlan(t *testing.T) {
	s := newStore(t)
	s.Prepend(plantest.Plan("a", 0))
	s.SetActive("a")

	assert.Equal(t, store.Inactive, s.ApplyResync(plantest.Plan("b", time.Minute), "a"))
	_, known := s.Snapshot().Plan("b")
	assert.False(t, known)
}

func TestApplyResyncOutOfOrderResponses(t *testing.T) {
	_, m := metrics.NewRegistry()
	s := newStore(t, store.WithMetrics(m))

	s.Prepend(plantest.Plan("a", 0, plantest.Node(1)))
	s.SetActive("a")

	second := plantest.Plan("a", 2*time.Second, plantest.WithStatus(plantest.Node(1), plan.NodeCompleted))
	first := plantest.Plan("a", time.Second, plantest.WithStatus(plantest.Node(1), plan.NodeRunning))

	assert.Equal(t, store.Applied, s.ApplyResync(second, "a"))
	assert.Equal(t, store.Stale, s.ApplyResync(first, "a"))

	assert.Equal(t, plan.NodeCompleted, s.Snapshot().Active.DAG.Nodes[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resyncs.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resyncs.WithLabelValues("applied")))
}

func TestApplyLatestProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offsets := rapid.SliceOfN(rapid.IntRange(0, 1000), 1, 30).Draw(t, "offsets")

		s := store.New(store.WithLogger(log.Discard()))
		defer s.Close()
		s.Prepend(plantest.Plan("p", 0))
		s.SetActive("p")

		latest := 0
		for i, off := range offsets {
			p := plantest.Plan("p", time.Duration(off)*time.Second)
			p.Goal = fmt.Sprintf("revision %d", i)
			s.ApplyResync(p, "p")
			if off > latest {
				latest = off
			}
		}

		got := s.Snapshot().Active.UpdatedAt.Time
		want := plantest.Epoch.Add(time.Duration(latest) * time.Second)
		if !got.Equal(want) {
			t.Fatalf("stored updated_at %v, want max offered %v", got, want)
		}
	})
}

func TestSetActiveClearsContext(t *testing.T) {
	s := newStore(t)
	s.Prepend(plantest.Plan("a", 0, plantest.Node(1)))
	s.Prepend(plantest.Plan("b", 0, plantest.Node(1)))

	s.SetActive("a")
	require.NoError(t, s.Select(1))
	s.AppendLog("a", plan.LogEntry{Message: "hello"})
	s.SetDecisionSummary("a", plan.DecisionSummary{Action: "write"})
	s.ActivateBranch(plantest.Plan("a2", 0, plantest.Node(1)), []string{"file written twice"})
	s.SetActive("a")
	require.NoError(t, s.Select(1))

	s.SetActive("b")
	v := s.Snapshot()
	assert.Equal(t, "b", v.ActiveID)
	assert.Nil(t, v.SelectedNode)
	assert.Empty(t, v.Logs)
	assert.Nil(t, v.DecisionSummary)
	assert.Empty(t, v.Warnings)
}

func TestActivateBranch(t *testing.T) {
	s := newStore(t)
	s.Prepend(plantest.Plan("root", 0, plantest.Node(1), plantest.Node(2, 1)))
	s.SetActive("root")
	require.NoError(t, s.Select(2))
	s.SetDecisionSummary("root", plan.DecisionSummary{Action: "delete"})

	branch := plantest.Plan("fork", time.Minute, plantest.Node(1), plantest.Node(2, 1))
	branch.BranchOf = "root"
	s.ActivateBranch(branch, []string{"email already sent"})

	v := s.Snapshot()
	assert.Equal(t, []string{"fork", "root"}, ids(v))
	assert.Equal(t, "fork", v.ActiveID)
	assert.Nil(t, v.SelectedNode)
	assert.Nil(t, v.DecisionSummary)
	assert.Equal(t, []string{"email already sent"}, v.Warnings)

	parent, ok := v.Parent(v.Active)
	require.True(t, ok)
	assert.Equal(t, "root", parent.ID)
}

func TestSelect(t *testing.T) {
	s := newStore(t)

	err := s.Select(1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActivePlan))

	s.Prepend(plantest.Plan("a", 0, plantest.Node(1)))
	s.SetActive("a")

	err = s.Select(9)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownNode))

	require.NoError(t, s.Select(1))
	node, ok := s.Snapshot().Selected()
	require.True(t, ok)
	assert.Equal(t, 1, node.ID)

	s.ClearSelection()
	_, ok = s.Snapshot().Selected()
	assert.False(t, ok)
}

func TestLogsGuardedByActivePlan(t *testing.T) {
	s := newStore(t)
	s.Prepend(plantest.Plan("a", 0))
	s.SetActive("a")

	assert.Equal(t, store.Applied, s.SetLogs("a", []plan.LogEntry{{Message: "one"}}))
	assert.Equal(t, store.Applied, s.AppendLog("a", plan.LogEntry{Message: "two"}))
	assert.Equal(t, store.Inactive, s.AppendLog("other", plan.LogEntry{Message: "lost"}))
	assert.Equal(t, store.Inactive, s.SetDecisionSummary("other", plan.DecisionSummary{Action: "x"}))

	v := s.Snapshot()
	require.Len(t, v.Logs, 2)
	assert.Equal(t, "two", v.Logs[1].Message)
	assert.Nil(t, v.DecisionSummary)
}

func TestReplaceAll(t *testing.T) {
	s := newStore(t)
	fresh := plantest.Plan("a", time.Hour, plantest.WithStatus(plantest.Node(1), plan.NodeCompleted))
	s.Prepend(fresh)
	s.Prepend(plantest.Plan("gone", 0))
	s.SetActive("gone")

	s.ReplaceAll([]*plan.Plan{
		plantest.Plan("b", 0),
		plantest.Plan("a", 0, plantest.Node(1)),
		plantest.Plan("b", time.Minute),
	})

	v := s.Snapshot()
	assert.Equal(t, []string{"b", "a", "gone"}, ids(v), "active plan is kept even when unlisted")

	a, _ := v.Plan("a")
	assert.Same(t, fresh, a, "newer stored copy survives a stale list")
}

func TestSubscribeCoalesces(t *testing.T) {
	s := newStore(t)
	views, cancel := s.Subscribe()
	defer cancel()

	s.Prepend(plantest.Plan("a", 0))
	s.Prepend(plantest.Plan("b", 0))
	s.SetActive("b")

	v := <-views
	assert.Equal(t, "b", v.ActiveID, "slow readers see only the latest view")
	assert.Equal(t, s.Snapshot().Version, v.Version)

	select {
	case extra := <-views:
		t.Fatalf("unexpected extra view %d", extra.Version)
	default:
	}
}

func TestSubscribeNotifiesOnlyOnDigestChange(t *testing.T) {
	s := newStore(t)
	s.Prepend(plantest.Plan("a", 0, plantest.Node(1)))
	s.SetActive("a")

	views, cancel := s.Subscribe()
	defer cancel()

	s.ApplyResync(plantest.Plan("a", 0, plantest.Node(1)), "a")
	select {
	case v := <-views:
		t.Fatalf("identical snapshot notified (version %d)", v.Version)
	default:
	}

	s.ApplyResync(plantest.Plan("a", time.Second, plantest.WithStatus(plantest.Node(1), plan.NodeRunning)), "a")
	select {
	case v := <-views:
		assert.Equal(t, plan.NodeRunning, v.Active.DAG.Nodes[0].Status)
	default:
		t.Fatal("changed snapshot did not notify")
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := store.New(store.WithLogger(log.Discard()))
	views, cancel := s.Subscribe()

	s.Close()
	_, open := <-views
	assert.False(t, open)

	cancel()
	assert.Equal(t, store.View{}, s.Snapshot())
	s.Close()
}

func TestDigestIgnoresMapOrder(t *testing.T) {
	a := plantest.Plan("p", 0, plantest.Node(1))
	b := plantest.Plan("p", 0, plantest.Node(1))
	a.DAG.Nodes[0].Args = map[string]any{"x": 1, "y": "z"}
	b.DAG.Nodes[0].Args = map[string]any{"y": "z", "x": 1}

	da, err := store.DigestOf(a)
	require.NoError(t, err)
	db, err := store.DigestOf(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da.String(), 64)
}
