package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Transport errors (TRANSPORT-001 to TRANSPORT-099). Retried by the
	// reconnect policy, never fatal.
	ErrCodeTransportDial      ErrorCode = "TRANSPORT-001"
	ErrCodeTransportDropped   ErrorCode = "TRANSPORT-002"
	ErrCodeTransportKeepalive ErrorCode = "TRANSPORT-003"
	ErrCodeTransportClosed    ErrorCode = "TRANSPORT-004"

	// Command errors (COMMAND-001 to COMMAND-099)
	ErrCodeCommandFailed  ErrorCode = "COMMAND-001"
	ErrCodeCommandDecode  ErrorCode = "COMMAND-002"
	ErrCodeCommandTimeout ErrorCode = "COMMAND-003"
	ErrCodeCommandRequest ErrorCode = "COMMAND-004"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeInvalidArgs     ErrorCode = "VALIDATION-001"
	ErrCodeEmptyGoal       ErrorCode = "VALIDATION-002"
	ErrCodeNotConfirmed    ErrorCode = "VALIDATION-003"
	ErrCodeUnknownNode     ErrorCode = "VALIDATION-004"
	ErrCodeInvalidGraph    ErrorCode = "VALIDATION-005"
	ErrCodeNoActivePlan    ErrorCode = "VALIDATION-006"
	ErrCodeNotAwaitingGate ErrorCode = "VALIDATION-007"

	// Stale-data races (STALE-001 to STALE-099). Logged only.
	ErrCodeStaleResponse ErrorCode = "STALE-001"
	ErrCodeInactivePlan  ErrorCode = "STALE-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRead       ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalidURL ErrorCode = "CONFIG-002"
	ErrCodeConfigWrite      ErrorCode = "CONFIG-003"
)

// AmsabError represents an enhanced error with code, suggestions, and documentation
type AmsabError struct {
	Code        ErrorCode
	Message     string
	Field       string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AmsabError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Field != "" {
		b.WriteString(fmt.Sprintf(" (field: %s)", e.Field))
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AmsabError) Unwrap() error {
	return e.Cause
}

// New creates a new AmsabError
func New(code ErrorCode, message string) *AmsabError {
	return &AmsabError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AmsabError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AmsabError {
	return &AmsabError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithField names the user-supplied field a validation error refers to
func (e *AmsabError) WithField(field string) *AmsabError {
	e.Field = field
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *AmsabError) WithSuggestion(suggestion string) *AmsabError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AmsabError) WithSuggestions(suggestions ...string) *AmsabError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AmsabError) WithDocs(url string) *AmsabError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first AmsabError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var amsabErr *AmsabError
	if stderrors.As(err, &amsabErr) {
		return amsabErr.Code
	}
	return ""
}

// IsCode reports whether err's chain contains an AmsabError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Category returns the prefix of a code, e.g. "COMMAND" for COMMAND-001.
func (c ErrorCode) Category() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c)[:i]
	}
	return string(c)
}

// Common error constructors for frequently used errors

// NewInvalidArgsError creates a validation error for a malformed argument override
func NewInvalidArgsError(cause error) *AmsabError {
	return Wrap(ErrCodeInvalidArgs, "argument override is not a valid JSON object", cause).
		WithField("edited_args").
		WithSuggestion(`Provide a JSON object, e.g. {"path": "out.txt"}`).
		WithSuggestion("Leave the override empty to approve the node with its planned arguments")
}

// NewEmptyGoalError creates a validation error for a blank goal
func NewEmptyGoalError() *AmsabError {
	return New(ErrCodeEmptyGoal, "goal text is empty").
		WithField("goal").
		WithSuggestion("Describe what the agent should achieve, e.g. 'Summarise research.txt'")
}

// NewNotConfirmedError creates an error for an irreversible action the user declined
func NewNotConfirmedError(action string) *AmsabError {
	return New(ErrCodeNotConfirmed, fmt.Sprintf("%s was not confirmed", action)).
		WithSuggestion("Pass --yes to confirm non-interactively")
}

// NewUnknownNodeError creates an error for a node id missing from the plan
func NewUnknownNodeError(planID string, nodeID int) *AmsabError {
	return New(ErrCodeUnknownNode, fmt.Sprintf("node %d not found in plan %s", nodeID, planID)).
		WithSuggestion(fmt.Sprintf("Run 'amsab plans show %s' to list node ids", planID))
}

// NewCommandFailedError creates a command error for a non-success response
func NewCommandFailedError(command string, cause error) *AmsabError {
	return Wrap(ErrCodeCommandFailed, fmt.Sprintf("%s failed", command), cause).
		WithSuggestion("Check the server logs for details").
		WithSuggestion("Local state was left unchanged; retry once the cause is fixed")
}

// NewCommandTimeoutError creates a local timeout error
func NewCommandTimeoutError(command string, cause error) *AmsabError {
	return Wrap(ErrCodeCommandTimeout, fmt.Sprintf("%s timed out", command), cause).
		WithSuggestion("Planning can take minutes on a cold model; raise timeouts.request if needed")
}

// NewStaleResponseError describes a resync response older than the stored copy
func NewStaleResponseError(planID string) *AmsabError {
	return New(ErrCodeStaleResponse, fmt.Sprintf("discarded stale snapshot of plan %s", planID))
}
