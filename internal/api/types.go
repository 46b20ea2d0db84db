package api

import "github.com/mastershashi/llm-engineering-usecases/internal/plan"

// Permissions scopes what a submitted goal may do.
type Permissions struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Network bool `json:"network"`
	Admin   bool `json:"admin"`
}

// ReadOnly is the default permission set for new goals.
func ReadOnly() Permissions {
	return Permissions{Read: true}
}

// GoalRequest submits a natural-language goal for planning.
type GoalRequest struct {
	Goal         string      `json:"goal"`
	Permissions  Permissions `json:"permissions"`
	AllowedTools []string    `json:"allowed_tools,omitempty"`
}

// NodeDecision approves or vetoes a node held at a gate.
type NodeDecision struct {
	Approved   bool           `json:"approved"`
	EditedArgs map[string]any `json:"edited_args,omitempty"`
}

// RewindRequest asks for a branch re-executing from NodeID.
type RewindRequest struct {
	NodeID  int            `json:"node_id"`
	NewArgs map[string]any `json:"new_args,omitempty"`
}

// RewindResult is the new branch and the side effects that cannot be
// safely repeated.
type RewindResult struct {
	Plan                plan.Plan `json:"plan"`
	IdempotencyWarnings []string  `json:"idempotency_warnings"`
}

// KillAck acknowledges an emergency stop.
type KillAck struct {
	Status string `json:"status"`
	PlanID string `json:"plan_id"`
}

// Breadcrumb is one short-term memory entry recorded during execution.
type Breadcrumb struct {
	Document string `json:"document"`
	NodeID   *int   `json:"node_id,omitempty"`
	Tool     string `json:"tool,omitempty"`
	TS       string `json:"ts,omitempty"`
}

// MemoryStats counts entries in each memory tier.
type MemoryStats struct {
	ShortTerm int `json:"short_term"`
	LongTerm  int `json:"long_term"`
}

// SessionMemory is the short-term memory of one plan.
type SessionMemory struct {
	PlanID      string       `json:"plan_id"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
	Stats       MemoryStats  `json:"stats"`
}

// WipeResult reports how many session entries were deleted.
type WipeResult struct {
	PlanID string `json:"plan_id"`
	Wiped  int    `json:"wiped"`
}

// Fact is a long-term memory entry.
type Fact struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category"`
}

// RememberAck acknowledges a stored fact.
type RememberAck struct {
	Status string `json:"status"`
	Key    string `json:"key"`
}

// MemoryHit is one long-term search result.
type MemoryHit struct {
	Document string  `json:"document"`
	Distance float64 `json:"distance"`
	Key      string  `json:"key,omitempty"`
	Category string  `json:"category,omitempty"`
}

// RecallResult is a long-term memory search response.
type RecallResult struct {
	Query   string      `json:"query"`
	Results []MemoryHit `json:"results"`
}

// StatusAck is a bare {status} acknowledgement.
type StatusAck struct {
	Status string `json:"status"`
}
