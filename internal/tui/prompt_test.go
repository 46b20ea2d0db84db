package tui

import (
	"context"
	"os"
	"testing"
)

func TestDevNullIsNotInteractive(t *testing.T) {
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	defer f.Close()

	stdin := os.Stdin
	os.Stdin = f
	defer func() { os.Stdin = stdin }()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		t.Setenv(v, "")
	}
	if IsInteractive() {
		t.Error("IsInteractive() = true for /dev/null")
	}
	if ShouldPrompt() {
		t.Error("ShouldPrompt() = true for /dev/null")
	}

	ok, err := Confirmer{Interactive: ShouldPrompt}.Confirm(context.Background(), "Kill?")
	if err != nil || ok {
		t.Errorf("Confirm() = %v, %v; want a silent decline", ok, err)
	}
}

func TestShouldPromptInCI(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"GitHub Actions", "GITHUB_ACTIONS", "true"},
		{"GitLab CI", "GITLAB_CI", "true"},
		{"Jenkins", "JENKINS_URL", "http://jenkins.local"},
		{"Generic CI", "CI", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			if ShouldPrompt() {
				t.Errorf("ShouldPrompt() = true with %s set", tt.envVar)
			}
		})
	}
}

func TestConfirmerDeclinesWithoutTerminal(t *testing.T) {
	c := Confirmer{Interactive: func() bool { return false }}

	ok, err := c.Confirm(context.Background(), "Kill?")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if ok {
		t.Error("Confirm() = true without a terminal, want false")
	}
}
