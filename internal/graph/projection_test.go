package graph

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan/plantest"
)

var allStatuses = []plan.NodeStatus{
	plan.NodePending, plan.NodeRunning, plan.NodeAwaitingApproval, plan.NodeApproved,
	plan.NodeCompleted, plan.NodeFailed, plan.NodeSkipped,
}

func TestProjectGridPlacement(t *testing.T) {
	g := plantest.Plan("p", 0,
		plantest.Node(10), plantest.Node(20), plantest.Node(30),
		plantest.Node(40, 10), plantest.Node(50, 20, 40),
	).DAG

	layout := Project(g)

	require.Len(t, layout.Nodes, 5)
	assert.Equal(t, 2, layout.Rows)

	p, ok := layout.Placement(40)
	require.True(t, ok)
	assert.Equal(t, 1, p.Row)
	assert.Equal(t, 0, p.Col)
	assert.Equal(t, 0, p.X)
	assert.Equal(t, VGap, p.Y)

	p, _ = layout.Placement(30)
	assert.Equal(t, 2*HGap, p.X)
	assert.Equal(t, 0, p.Y)

	require.Len(t, layout.Edges, 3)
	assert.Equal(t, "10-40", layout.Edges[0].ID)
	assert.Equal(t, "20-50", layout.Edges[1].ID)
	assert.Equal(t, "40-50", layout.Edges[2].ID)

	grid := layout.Grid()
	require.Len(t, grid, 2)
	assert.Nil(t, grid[1][2])
	assert.Equal(t, 50, grid[1][1].Node.ID)
}

func TestNodeState(t *testing.T) {
	tests := []struct {
		status   plan.NodeStatus
		ghosted  bool
		animated bool
		warning  bool
	}{
		{plan.NodePending, false, false, false},
		{plan.NodeRunning, false, true, false},
		{plan.NodeAwaitingApproval, false, false, true},
		{plan.NodeApproved, false, false, false},
		{plan.NodeCompleted, false, false, false},
		{plan.NodeFailed, true, false, false},
		{plan.NodeSkipped, true, false, false},
	}

	for _, tt := range tests {
		for _, risk := range []plan.RiskLevel{plan.RiskLow, plan.RiskHigh} {
			t.Run(string(tt.status)+"/"+string(risk), func(t *testing.T) {
				n := plantest.WithStatus(plantest.Node(1), tt.status)
				n.RiskLevel = risk

				v := NodeState(n)
				assert.Equal(t, tt.ghosted, v.Ghosted, "ghosted")
				assert.Equal(t, tt.ghosted, v.Dashed, "dashed")
				assert.Equal(t, tt.animated, v.Animated, "animated")
				assert.Equal(t, tt.warning, v.Warning, "warning")
				assert.Equal(t, risk == plan.RiskHigh, v.RiskMarked, "risk marked")
				if tt.ghosted {
					assert.Equal(t, GhostOpacity, v.Opacity)
				} else {
					assert.Equal(t, 1.0, v.Opacity)
				}
			})
		}
	}
}

func TestEdgeState(t *testing.T) {
	for _, src := range allStatuses {
		for _, dst := range allStatuses {
			v := EdgeState(src, dst)
			ghost := dst == plan.NodeFailed || dst == plan.NodeSkipped
			anim := !ghost && dst == plan.NodeRunning
			emph := !ghost && !anim && src == plan.NodeCompleted

			assert.Equal(t, ghost, v.Ghosted, "%s->%s ghosted", src, dst)
			assert.Equal(t, anim, v.Animated, "%s->%s animated", src, dst)
			assert.Equal(t, emph, v.Emphasized, "%s->%s emphasized", src, dst)
			if ghost {
				assert.Equal(t, GhostDash, v.Dash)
				assert.Equal(t, GhostEdgeOpacity, v.Opacity)
			}
		}
	}
}

func TestEdgeToUnknownSourceIsPlain(t *testing.T) {
	g := plan.TaskGraph{Nodes: []plan.TaskNode{plantest.Node(2, 99)}}
	layout := Project(g)

	require.Len(t, layout.Edges, 1)
	assert.Equal(t, EdgeVisual{Opacity: 1}, layout.Edges[0].Visual)
}

func TestProjectEmpty(t *testing.T) {
	layout := Project(plan.TaskGraph{})
	assert.Empty(t, layout.Nodes)
	assert.Empty(t, layout.Edges)
	assert.Empty(t, layout.Grid())
}

func genGraph() *rapid.Generator[plan.TaskGraph] {
	return rapid.Custom(func(t *rapid.T) plan.TaskGraph {
		n := rapid.IntRange(0, 15).Draw(t, "n")
		nodes := make([]plan.TaskNode, n)
		for i := range nodes {
			var deps []int
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(t, "dep") {
					deps = append(deps, j+1)
				}
			}
			nodes[i] = plantest.Node(i+1, deps...)
			nodes[i].Status = rapid.SampledFrom(allStatuses).Draw(t, "status")
		}
		return plan.TaskGraph{Nodes: nodes}
	})
}

func TestProject_CountsAndDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph().Draw(t, "graph")

		layout := Project(g)

		if len(layout.Nodes) != len(g.Nodes) {
			t.Fatalf("placements = %d, want %d", len(layout.Nodes), len(g.Nodes))
		}
		wantEdges := 0
		for _, n := range g.Nodes {
			wantEdges += len(n.Dependencies)
		}
		if len(layout.Edges) != wantEdges {
			t.Fatalf("edges = %d, want %d", len(layout.Edges), wantEdges)
		}

		seen := map[[2]int]bool{}
		for i, p := range layout.Nodes {
			if p.Row != i/Columns || p.Col != i%Columns {
				t.Fatalf("node %d at (%d,%d)", i, p.Row, p.Col)
			}
			cell := [2]int{p.Row, p.Col}
			if seen[cell] {
				t.Fatalf("two nodes share cell %v", cell)
			}
			seen[cell] = true
			if p.Visual.Ghosted != p.Node.Status.Abandoned() {
				t.Fatalf("ghosted=%v for status %s", p.Visual.Ghosted, p.Node.Status)
			}
		}

		if !reflect.DeepEqual(layout, Project(g)) {
			t.Fatalf("projection is not deterministic")
		}
	})
}
