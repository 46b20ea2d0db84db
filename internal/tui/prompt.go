package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/redact"
)

// Prompt represents a simple interactive prompt configuration
type Prompt struct {
	Message     string
	Description string
	Default     string
	Placeholder string
	Required    bool
	// Validate runs on submit; a non-nil error keeps the form open.
	Validate func(string) error
}

// PromptForString displays an interactive prompt and returns the user's input
func PromptForString(ctx context.Context, p Prompt) (string, error) {
	value := p.Default

	input := huh.NewInput().
		Title(p.Message).
		Description(p.Description).
		Placeholder(p.Placeholder).
		Value(&value)
	if p.Validate != nil {
		input = input.Validate(p.Validate)
	}

	form := huh.NewForm(huh.NewGroup(input))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	if p.Required && strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("value is required")
	}

	return value, nil
}

// PromptForOverride asks for a JSON argument override. The answer is
// checked with the same parser the approval gate uses, so a malformed
// object is corrected in place rather than sent.
func PromptForOverride(ctx context.Context, args map[string]any) (string, error) {
	return PromptForString(ctx, Prompt{
		Message:     "Edited arguments (JSON object, blank keeps the planned ones)",
		Description: "Planned: " + compactJSON(redact.Args(args)),
		Placeholder: `{"path": "out.txt"}`,
		Validate: func(s string) error {
			_, err := approval.ParseOverride(s)
			return err
		},
	})
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(ctx context.Context, message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))
	if err := form.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// Confirmer asks on the terminal. When prompting is impossible it declines,
// so irreversible actions fail closed unless --yes was given.
type Confirmer struct {
	// Interactive overrides the terminal detection.
	Interactive func() bool
}

// Confirm implements approval.Confirmer.
func (c Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	interactive := ShouldPrompt
	if c.Interactive != nil {
		interactive = c.Interactive
	}
	if !interactive() {
		return false, nil
	}
	return PromptForConfirmation(ctx, prompt, false)
}

var _ approval.Confirmer = Confirmer{}

// IsInteractive returns true if stdin is a terminal. Character devices
// such as /dev/null do not count.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
