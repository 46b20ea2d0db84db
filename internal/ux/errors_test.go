package ux

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

func TestNewErrorWithSuggestion(t *testing.T) {
	if NewErrorWithSuggestion(nil, "hint") != nil {
		t.Error("nil error should stay nil")
	}

	err := NewErrorWithSuggestion(stderrors.New("something failed"), "try this fix")
	if !strings.Contains(err.Error(), "Suggestion: try this fix") {
		t.Errorf("Error() = %q", err.Error())
	}

	plain := NewErrorWithSuggestion(stderrors.New("something failed"), "")
	if plain.Error() != "something failed" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unauthorized",
			err:  errors.NewCommandFailedError("list plans", &api.APIError{StatusCode: 401}),
			want: "AMSAB_SERVER_TOKEN",
		},
		{
			name: "unknown plan",
			err:  &api.APIError{StatusCode: 404, Detail: "Plan not found"},
			want: "amsab plans list",
		},
		{
			name: "engine down",
			err:  stderrors.New("dial tcp 127.0.0.1:8000: connect: connection refused"),
			want: "server.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceError(tt.err)
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("EnhanceError() = %q, want mention of %q", got.Error(), tt.want)
			}
			if !stderrors.Is(got, tt.err) {
				t.Error("enhanced error must wrap the original")
			}
		})
	}
}

func TestEnhanceErrorLeavesCodedErrors(t *testing.T) {
	err := errors.NewEmptyGoalError()
	if got := EnhanceError(err); got != error(err) {
		t.Errorf("EnhanceError() = %v, want the coded error unchanged", got)
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil, "ctx") != nil {
		t.Error("nil error should stay nil")
	}
	err := FormatError(stderrors.New("boom"), "approve node")
	if err.Error() != "approve node: boom" {
		t.Errorf("FormatError() = %q", err.Error())
	}
}
