// Package channel is the per-plan event stream from the engine. It owns
// the transport, keepalive and reconnection; handlers register against the
// Channel and survive any number of reconnects.
package channel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// EventType tags an inbound event.
type EventType string

const (
	PlanCreated          EventType = "plan_created"
	PlanApproved         EventType = "plan_approved"
	NodeStarted          EventType = "node_started"
	NodeCompleted        EventType = "node_completed"
	NodeFailed           EventType = "node_failed"
	NodeAwaitingApproval EventType = "node_awaiting_approval"
	PlanCompleted        EventType = "plan_completed"
	PlanFailed           EventType = "plan_failed"
	LogLine              EventType = "log_line"
	TokenUpdate          EventType = "token_update"

	// Wildcard subscribes to every event.
	Wildcard EventType = "*"
)

// Keepalive frames. The engine answers every ping with a pong.
var (
	pingFrame = []byte("ping")
	pongFrame = []byte("pong")
)

// Event is one message pushed by the engine.
type Event struct {
	Type      EventType      `json:"event"`
	PlanID    string         `json:"plan_id"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Time parses the server timestamp. Unparseable values yield the zero time.
func (e Event) Time() plan.Timestamp {
	ts, _ := plan.ParseTimestamp(e.Timestamp)
	return ts
}

// String returns the payload value under key as a string.
func (e Event) String(key string) string {
	if v, ok := e.Data[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Int returns the payload value under key as an int.
func (e Event) Int(key string) (int, bool) {
	switch v := e.Data[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// DecisionSummary extracts the action/intent/logic triple carried by a
// node_awaiting_approval event, either at the top level of the payload or
// nested under "decision_summary".
func (e Event) DecisionSummary() (plan.DecisionSummary, bool) {
	src := e.Data
	if nested, ok := e.Data["decision_summary"].(map[string]any); ok {
		src = nested
	}
	str := func(k string) string {
		s, _ := src[k].(string)
		return s
	}
	ds := plan.DecisionSummary{Action: str("action"), Intent: str("intent"), Logic: str("logic")}
	return ds, !ds.Empty()
}

// errMalformed is returned by decodeFrame for frames that are not events.
type errMalformed struct {
	cause error
}

func (e errMalformed) Error() string {
	if e.cause != nil {
		return "malformed frame: " + e.cause.Error()
	}
	return "malformed frame: missing event type"
}

// decodeFrame parses an inbound frame. ok is false for keepalive replies.
func decodeFrame(frame []byte) (ev Event, ok bool, err error) {
	trimmed := bytes.TrimSpace(frame)
	if bytes.Equal(trimmed, pongFrame) {
		return Event{}, false, nil
	}
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, false, errMalformed{cause: err}
	}
	if ev.Type == "" || ev.Type == Wildcard {
		return Event{}, false, errMalformed{}
	}
	return ev, true, nil
}
