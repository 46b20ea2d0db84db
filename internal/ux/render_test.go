package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan/plantest"
)

func renderText(t *testing.T, r TextRenderer) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.RenderText(&buf, NewStyles(true)); err != nil {
		t.Fatalf("RenderText() error = %v", err)
	}
	return buf.String()
}

func TestPlanListText(t *testing.T) {
	branch := plantest.Plan("p-43", 0, plantest.Node(1))
	branch.BranchOf = "p-42"

	out := renderText(t, PlanList{*branch, *samplePlan()})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and two plans:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "p-43") || !strings.Contains(lines[1], "branch of p-42") {
		t.Errorf("branch row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "1/2") || !strings.Contains(lines[2], "65") {
		t.Errorf("plan row = %q, want progress and trust", lines[2])
	}

	if out := renderText(t, PlanList{}); !strings.Contains(out, "No plans yet") {
		t.Errorf("empty list = %q", out)
	}
}

func TestPlanDetailText(t *testing.T) {
	p := samplePlan()
	p.DAG.Nodes = append(p.DAG.Nodes, plantest.WithStatus(plantest.Node(3, 2), plan.NodeFailed))
	p.DAG.Nodes[2].Error = "disk full"

	out := renderText(t, NewPlanDetail(p))

	for _, want := range []string{
		"Plan:     p-42 (running)",
		"Progress: 1/3",
		"Trust:    45 (moderate risk)",
		"[0,1] #2",
		"⚑ high risk",
		"awaiting approval",
		"Failed. Error: disk full",
		`Completed. The "web_search" tool was used to: step`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestBranchTextPutsWarningsFirst(t *testing.T) {
	p := plantest.Plan("p-43", 0, plantest.Node(1))
	p.BranchOf = "p-42"

	out := renderText(t, Branch{Plan: p, Warnings: []string{"email already sent", "file already written"}})

	first := strings.Index(out, "email already sent")
	second := strings.Index(out, "file already written")
	created := strings.Index(out, "Created branch p-43 of p-42")
	if first < 0 || second < first || created < second {
		t.Errorf("warnings must precede the branch in order:\n%s", out)
	}
}

func TestLogListText(t *testing.T) {
	node := 2
	out := renderText(t, LogList{
		{Message: "started", Level: "info", CreatedAt: plantest.At(0)},
		{Message: "boom", Level: "error", NodeID: &node, CreatedAt: plantest.At(0)},
	})

	if !strings.Contains(out, "2025-03-01 12:00:00 INFO started") {
		t.Errorf("unexpected first line:\n%s", out)
	}
	if !strings.Contains(out, "ERROR [#2] boom") {
		t.Errorf("unexpected second line:\n%s", out)
	}
}

func TestLogListRedactsCredentials(t *testing.T) {
	out := renderText(t, LogList{
		{Level: "info", Message: "connecting to postgres://app:hunter2@db/x", CreatedAt: plantest.At(0)},
	})
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked into log output:\n%s", out)
	}
}

func TestKillAckText(t *testing.T) {
	out := renderText(t, KillAck{Status: "killed", PlanID: "p-42"})
	if !strings.Contains(out, "Kill switch triggered: plan p-42 (killed)") {
		t.Errorf("unexpected output: %q", out)
	}
}
