// Package graph projects a task graph into a deterministic grid layout
// with per-node and per-edge visual states.
package graph

import (
	"fmt"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// Layout constants. Nodes fill rows of Columns left to right in the order
// the server listed them.
const (
	Columns = 3
	HGap    = 280
	VGap    = 160

	// GhostOpacity is applied to nodes and edges on an abandoned path.
	GhostOpacity     = 0.35
	GhostEdgeOpacity = 0.4
	GhostDash        = "6 4"
)

// NodeVisual is the set of visual annotations derived from a node.
type NodeVisual struct {
	Ghosted    bool    `json:"ghosted"`
	Animated   bool    `json:"animated"`
	Warning    bool    `json:"warning"`
	RiskMarked bool    `json:"risk_marked"`
	Opacity    float64 `json:"opacity"`
	Dashed     bool    `json:"dashed"`
}

// EdgeVisual is the set of visual annotations derived from an edge.
type EdgeVisual struct {
	Ghosted    bool    `json:"ghosted"`
	Animated   bool    `json:"animated"`
	Emphasized bool    `json:"emphasized"`
	Opacity    float64 `json:"opacity"`
	Dash       string  `json:"dash,omitempty"`
}

// Placement is a node positioned on the grid.
type Placement struct {
	Node   plan.TaskNode `json:"node"`
	Index  int           `json:"index"`
	Row    int           `json:"row"`
	Col    int           `json:"col"`
	X      int           `json:"x"`
	Y      int           `json:"y"`
	Visual NodeVisual    `json:"visual"`
}

// Edge connects a dependency to the node that depends on it.
type Edge struct {
	ID     string     `json:"id"`
	Source int        `json:"source"`
	Target int        `json:"target"`
	Visual EdgeVisual `json:"visual"`
}

// Layout is the renderable projection of a task graph.
type Layout struct {
	Nodes []Placement `json:"nodes"`
	Edges []Edge      `json:"edges"`
	Rows  int         `json:"rows"`
}

// Project lays out g. The result depends only on the node order and the
// node fields, so identical input always yields an identical layout.
func Project(g plan.TaskGraph) Layout {
	layout := Layout{
		Nodes: make([]Placement, 0, len(g.Nodes)),
	}

	byID := make(map[int]plan.TaskNode, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	for i, n := range g.Nodes {
		row, col := i/Columns, i%Columns
		layout.Nodes = append(layout.Nodes, Placement{
			Node:   n,
			Index:  i,
			Row:    row,
			Col:    col,
			X:      col * HGap,
			Y:      row * VGap,
			Visual: NodeState(n),
		})
		if row+1 > layout.Rows {
			layout.Rows = row + 1
		}
	}

	for _, n := range g.Nodes {
		for _, dep := range n.Dependencies {
			src, ok := byID[dep]
			var srcStatus plan.NodeStatus
			if ok {
				srcStatus = src.Status
			}
			layout.Edges = append(layout.Edges, Edge{
				ID:     fmt.Sprintf("%d-%d", dep, n.ID),
				Source: dep,
				Target: n.ID,
				Visual: EdgeState(srcStatus, n.Status),
			})
		}
	}

	return layout
}

// NodeState derives a node's visual annotations.
func NodeState(n plan.TaskNode) NodeVisual {
	v := NodeVisual{
		Opacity:    1,
		RiskMarked: n.RiskLevel == plan.RiskHigh,
	}
	switch n.Status {
	case plan.NodeFailed, plan.NodeSkipped:
		v.Ghosted = true
		v.Dashed = true
		v.Opacity = GhostOpacity
	case plan.NodeRunning:
		v.Animated = true
	case plan.NodeAwaitingApproval:
		v.Warning = true
	}
	return v
}

// EdgeState derives an edge's annotations from its endpoints. A ghosted
// target wins over everything, then a running target, and only then does
// the edge pick up emphasis from a completed source.
func EdgeState(source, target plan.NodeStatus) EdgeVisual {
	v := EdgeVisual{Opacity: 1}
	switch {
	case target.Abandoned():
		v.Ghosted = true
		v.Opacity = GhostEdgeOpacity
		v.Dash = GhostDash
	case target == plan.NodeRunning:
		v.Animated = true
	case source == plan.NodeCompleted:
		v.Emphasized = true
	}
	return v
}

// Placement returns the placement of the node with the given id.
func (l Layout) Placement(id int) (Placement, bool) {
	for _, p := range l.Nodes {
		if p.Node.ID == id {
			return p, true
		}
	}
	return Placement{}, false
}

// Grid returns placements indexed by [row][col]; empty cells are nil.
func (l Layout) Grid() [][]*Placement {
	grid := make([][]*Placement, l.Rows)
	for r := range grid {
		grid[r] = make([]*Placement, Columns)
	}
	for i := range l.Nodes {
		p := &l.Nodes[i]
		grid[p.Row][p.Col] = p
	}
	return grid
}
