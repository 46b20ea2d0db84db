package approval

import (
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/store"
)

// GenericWarning is shown when a node waits for approval without a
// decision summary.
const GenericWarning = "High-risk action: review the tool and arguments carefully before approving."

// DecisionView is what an approver sees before deciding.
type DecisionView struct {
	Node    plan.TaskNode
	Summary *plan.DecisionSummary
}

// ViewFor builds the decision view for nodeID of the active plan.
func ViewFor(v store.View, nodeID int) (DecisionView, bool) {
	n, ok := v.Active.Node(nodeID)
	if !ok {
		return DecisionView{}, false
	}
	dv := DecisionView{Node: n}
	if v.DecisionSummary != nil && !v.DecisionSummary.Empty() {
		s := *v.DecisionSummary
		dv.Summary = &s
	}
	return dv, true
}

// Lines renders the summary fields verbatim, or the generic warning.
func (d DecisionView) Lines() []string {
	if d.Summary == nil {
		return []string{GenericWarning}
	}
	return []string{
		"Action: " + d.Summary.Action,
		"Intent: " + d.Summary.Intent,
		"Logic: " + d.Summary.Logic,
	}
}

// Pending reports whether the node is held at the gate.
func (d DecisionView) Pending() bool {
	return d.Node.Status == plan.NodeAwaitingApproval
}
