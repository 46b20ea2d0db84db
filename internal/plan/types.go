package plan

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lifecycle state of a whole plan.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the plan has finished executing.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Killable reports whether the kill switch is offered for this status.
func (s Status) Killable() bool {
	return s == StatusRunning || s == StatusApproved
}

// NodeStatus is the execution state of a single task node.
type NodeStatus string

const (
	NodePending          NodeStatus = "pending"
	NodeRunning          NodeStatus = "running"
	NodeAwaitingApproval NodeStatus = "awaiting_approval"
	NodeApproved         NodeStatus = "approved"
	NodeCompleted        NodeStatus = "completed"
	NodeFailed           NodeStatus = "failed"
	NodeSkipped          NodeStatus = "skipped"
)

// Resolved reports whether dependants of a node in this status may run.
func (s NodeStatus) Resolved() bool {
	return s == NodeCompleted || s == NodeSkipped || s == NodeFailed
}

// Abandoned reports whether the node sits on a ghosted path.
func (s NodeStatus) Abandoned() bool {
	return s == NodeFailed || s == NodeSkipped
}

// Rewindable reports whether a rewind is offered from a node in this status.
func (s NodeStatus) Rewindable() bool {
	return s == NodeCompleted || s == NodeFailed
}

// RiskLevel is the planner-assigned risk of a node.
type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

// Plan is one goal's execution graph together with its lineage.
// It is replaced wholesale by server snapshots and never patched locally.
type Plan struct {
	ID        string    `json:"plan_id" yaml:"plan_id"`
	Goal      string    `json:"goal" yaml:"goal"`
	Status    Status    `json:"status" yaml:"status"`
	DAG       TaskGraph `json:"dag" yaml:"dag"`
	BranchOf  string    `json:"branch_of,omitempty" yaml:"branch_of,omitempty"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
	UpdatedAt Timestamp `json:"updated_at" yaml:"updated_at"`
}

// TaskGraph is the ordered node sequence produced by the planner.
type TaskGraph struct {
	Goal            string     `json:"goal" yaml:"goal"`
	Nodes           []TaskNode `json:"nodes" yaml:"nodes"`
	ExpectedOutcome string     `json:"expected_outcome" yaml:"expected_outcome"`
}

// TaskNode is a single tool invocation within a plan.
type TaskNode struct {
	ID           int            `json:"id" yaml:"id"`
	Task         string         `json:"task" yaml:"task"`
	Tool         string         `json:"tool" yaml:"tool"`
	Args         map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Dependencies []int          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	RiskLevel    RiskLevel      `json:"risk_level" yaml:"risk_level"`
	Status       NodeStatus     `json:"status" yaml:"status"`
	Result       string         `json:"result,omitempty" yaml:"result,omitempty"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	TokenUsage   int            `json:"token_usage" yaml:"token_usage"`
	StartedAt    *Timestamp     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt  *Timestamp     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// HighRisk reports whether the node carries the high-risk flag.
func (n TaskNode) HighRisk() bool {
	return n.RiskLevel == RiskHigh
}

// DecisionSummary is the approver-facing explanation attached to a
// node_awaiting_approval event. It cannot be rebuilt from plan state.
type DecisionSummary struct {
	Action string `json:"action"`
	Intent string `json:"intent"`
	Logic  string `json:"logic"`
}

// Empty reports whether no field was supplied.
func (d DecisionSummary) Empty() bool {
	return d.Action == "" && d.Intent == "" && d.Logic == ""
}

// LogEntry is one line of a plan's session log.
type LogEntry struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	NodeID    *int      `json:"node_id,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// Timestamp is a server time. The engine emits naive ISO-8601 values in
// UTC, so zone-less layouts are accepted alongside RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses s with the layouts the engine is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, firstErr
}

// MustTimestamp is ParseTimestamp for literals in tests and fixtures.
func MustTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// MarshalYAML renders the timestamp as an RFC 3339 string.
func (t Timestamp) MarshalYAML() (any, error) {
	if t.IsZero() {
		return "", nil
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

// String formats the timestamp for display.
func (t Timestamp) String() string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
