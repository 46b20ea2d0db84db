package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan/plantest"
)

func samplePlan() *plan.Plan {
	return plantest.Plan("p-42", 0,
		plantest.WithStatus(plantest.Node(1), plan.NodeCompleted),
		plantest.HighRisk(plantest.WithStatus(plantest.Node(2, 1), plan.NodeAwaitingApproval)),
	)
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(NewPlanDetail(samplePlan())); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{`"plan_id": "p-42"`, `"score": 65`, `"risk_marked": true`} {
		if !strings.Contains(output, want) {
			t.Errorf("JSON output missing %s: %s", want, output)
		}
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{
		Writer:  &buf,
		Compact: true,
	})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(PlanList{*samplePlan()}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if strings.Count(buf.String(), "\n") > 1 {
		t.Errorf("Compact JSON should be single line, got: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	if err := formatter.Format(NewPlanDetail(samplePlan())); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "plan_id: p-42") {
		t.Errorf("YAML output missing plan id: %s", output)
	}
	if !strings.Contains(output, "status: awaiting_approval") {
		t.Errorf("YAML output missing node status: %s", output)
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "string data",
			data: "hello world",
			want: "hello world",
		},
		{
			name: "renderer",
			data: MemoryStats{ShortTerm: 3, LongTerm: 9},
			want: "short-term: 3\nlong-term:  9",
		},
		{
			name:    "type without a text form",
			data:    struct{ N int }{1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf, NoColor: true})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}

			err = formatter.Format(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Format() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				output := strings.TrimSpace(buf.String())
				if output != tt.want {
					t.Errorf("Format() output = %q, want %q", output, tt.want)
				}
			}
		})
	}
}
