package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a recovery hint to errors that carry none. Coded
// errors already have suggestions and pass through, except engine
// rejections whose status says more than the code.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := api.AsAPIError(err); ok {
		switch apiErr.StatusCode {
		case 401, 403:
			return NewErrorWithSuggestion(err,
				"Set server.token in ~/.amsab/config.yaml or AMSAB_SERVER_TOKEN")
		case 404:
			return NewErrorWithSuggestion(err,
				"List known plans with 'amsab plans list'")
		case 409:
			return NewErrorWithSuggestion(err,
				"The plan moved on; inspect it with 'amsab plans show <plan>' and retry")
		}
		return err
	}

	var coded *errors.AmsabError
	if stderrors.As(err, &coded) {
		return err
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NewErrorWithSuggestion(err,
			"Check that the engine is running and server.url points at it (amsab config init)")
	}

	if strings.Contains(errMsg, "unknown format") {
		return NewErrorWithSuggestion(err,
			"Use -o text, -o json or -o yaml")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
