package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// Validate checks the structural invariants of a task graph: unique node
// ids, dependencies that resolve within the graph, and no cycles. Server
// snapshots that fail are still stored; callers use this to warn.
func (g *TaskGraph) Validate() error {
	ids := make(map[int]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if ids[n.ID] {
			return errors.New(errors.ErrCodeInvalidGraph,
				fmt.Sprintf("duplicate node id %d at index %d", n.ID, i))
		}
		ids[n.ID] = true

		if n.TokenUsage < 0 {
			return errors.New(errors.ErrCodeInvalidGraph,
				fmt.Sprintf("node %d has negative token usage %d", n.ID, n.TokenUsage))
		}
	}

	for _, n := range g.Nodes {
		for _, dep := range n.Dependencies {
			if !ids[dep] {
				return errors.New(errors.ErrCodeInvalidGraph,
					fmt.Sprintf("node %d depends on %d which does not exist in the graph", n.ID, dep))
			}
		}
	}

	return g.checkCircularDependencies()
}

// checkCircularDependencies detects cycles in the dependency graph
func (g *TaskGraph) checkCircularDependencies() error {
	deps := make(map[int][]int, len(g.Nodes))
	for _, n := range g.Nodes {
		deps[n.ID] = n.Dependencies
	}

	visited := make(map[int]bool)
	onStack := make(map[int]bool)

	var visit func(id int, path []string) error
	visit = func(id int, path []string) error {
		visited[id] = true
		onStack[id] = true
		path = append(path, strconv.Itoa(id))

		for _, dep := range deps[id] {
			if !visited[dep] {
				if err := visit(dep, path); err != nil {
					return err
				}
			} else if onStack[dep] {
				cycle := append(path, strconv.Itoa(dep))
				return errors.New(errors.ErrCodeInvalidGraph,
					"circular dependency detected: "+strings.Join(cycle, " -> "))
			}
		}

		onStack[id] = false
		return nil
	}

	for _, n := range g.Nodes {
		if !visited[n.ID] {
			if err := visit(n.ID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckTokenRegression reports nodes whose token usage went down between
// two snapshots of the same plan. Usage is expected to only grow.
func CheckTokenRegression(prev, next *Plan) []int {
	if prev == nil || next == nil || prev.ID != next.ID {
		return nil
	}
	var regressed []int
	for _, n := range next.DAG.Nodes {
		if old, ok := prev.Node(n.ID); ok && n.TokenUsage < old.TokenUsage {
			regressed = append(regressed, n.ID)
		}
	}
	return regressed
}
