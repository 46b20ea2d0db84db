package ux

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/mastershashi/llm-engineering-usecases/internal/api"
	"github.com/mastershashi/llm-engineering-usecases/internal/graph"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/redact"
	"github.com/mastershashi/llm-engineering-usecases/internal/trust"
)

// Styles holds the text-output styles.
type Styles struct {
	Header lipgloss.Style
	Muted  lipgloss.Style
	OK     lipgloss.Style
	Warn   lipgloss.Style
	Bad    lipgloss.Style
	Accent lipgloss.Style
}

// NewStyles returns colored styles, or plain ones when noColor is set.
func NewStyles(noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		OK:     lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
		Bad:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Accent: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	}
}

func (s Styles) band(b trust.Band) lipgloss.Style {
	switch b {
	case trust.BandLow:
		return s.OK
	case trust.BandModerate:
		return s.Warn
	default:
		return s.Bad
	}
}

// PlanList is the known-plans list, newest first.
type PlanList []plan.Plan

// RenderText implements TextRenderer.
func (l PlanList) RenderText(w io.Writer, s Styles) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, s.Muted.Render("No plans yet. Submit one with 'amsab goal submit'."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tTRUST\tGOAL")
	for i := range l {
		p := &l[i]
		done, total := p.Progress()
		goal := p.Goal
		if p.IsBranch() {
			goal = "⑂ " + goal + " (branch of " + p.BranchOf + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\n", p.ID, p.Status, done, total, trust.Score(p), goal)
	}
	return tw.Flush()
}

// PlanDetail is one plan with its derived views.
type PlanDetail struct {
	Plan   *plan.Plan     `json:"plan" yaml:"plan"`
	Trust  trust.Estimate `json:"trust" yaml:"trust"`
	Layout graph.Layout   `json:"layout" yaml:"layout"`
}

// NewPlanDetail derives trust and projection for p.
func NewPlanDetail(p *plan.Plan) PlanDetail {
	return PlanDetail{
		Plan:   p,
		Trust:  trust.EstimateOf(p),
		Layout: graph.Project(p.DAG),
	}
}

// RenderText implements TextRenderer.
func (d PlanDetail) RenderText(w io.Writer, s Styles) error {
	p := d.Plan
	done, total := p.Progress()
	percent, heat := plan.ContextHeat(p.TotalTokens())

	fmt.Fprintln(w, s.Header.Render(p.Goal))
	fmt.Fprintf(w, "Plan:     %s (%s)\n", p.ID, s.Accent.Render(string(p.Status)))
	if p.IsBranch() {
		fmt.Fprintf(w, "Branch:   of %s\n", p.BranchOf)
	}
	fmt.Fprintf(w, "Progress: %d/%d\n", done, total)
	fmt.Fprintf(w, "Trust:    %s\n", s.band(d.Trust.Band).Render(fmt.Sprintf("%d (%s)", d.Trust.Score, d.Trust.Band.Label())))
	fmt.Fprintf(w, "Context:  %.0f%% %s\n", percent, heat)
	if p.DAG.ExpectedOutcome != "" {
		fmt.Fprintf(w, "Outcome:  %s\n", p.DAG.ExpectedOutcome)
	}
	fmt.Fprintln(w)

	for _, pl := range d.Layout.Nodes {
		fmt.Fprintln(w, nodeLine(pl, s))
	}
	return nil
}

// nodeLine renders one projected node with its markers.
func nodeLine(pl graph.Placement, s Styles) string {
	n := pl.Node
	var markers []string
	if pl.Visual.RiskMarked {
		markers = append(markers, s.Bad.Render("⚑ high risk"))
	}
	if pl.Visual.Warning {
		markers = append(markers, s.Warn.Render("awaiting approval"))
	}
	if pl.Visual.Animated {
		markers = append(markers, s.Accent.Render("running"))
	}

	deps := ""
	if len(n.Dependencies) > 0 {
		ids := make([]string, len(n.Dependencies))
		for i, id := range n.Dependencies {
			ids[i] = fmt.Sprint(id)
		}
		deps = " ← " + strings.Join(ids, ",")
	}

	line := fmt.Sprintf("  [%d,%d] #%d %-12s %-18s%s", pl.Row, pl.Col, n.ID, n.Tool, n.Status, deps)
	if len(markers) > 0 {
		line += "  " + strings.Join(markers, " ")
	}
	line += "\n        " + plan.BusinessSummary(n)
	if pl.Visual.Ghosted {
		return s.Muted.Render(line)
	}
	return line
}

// LogList is a plan's session log.
type LogList []plan.LogEntry

// RenderText implements TextRenderer.
func (l LogList) RenderText(w io.Writer, s Styles) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, s.Muted.Render("No log lines"))
		return err
	}
	for _, e := range l {
		level := strings.ToUpper(e.Level)
		switch e.Level {
		case "error":
			level = s.Bad.Render(level)
		case "warning", "warn":
			level = s.Warn.Render(level)
		}
		node := ""
		if e.NodeID != nil {
			node = fmt.Sprintf(" [#%d]", *e.NodeID)
		}
		if _, err := fmt.Fprintf(w, "%s %s%s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), level, node, redact.String(e.Message)); err != nil {
			return err
		}
	}
	return nil
}

// Branch is the outcome of a rewind.
type Branch struct {
	Plan     *plan.Plan `json:"plan" yaml:"plan"`
	Warnings []string   `json:"idempotency_warnings" yaml:"idempotency_warnings"`
}

// RenderText implements TextRenderer. Every warning is printed before the
// branch itself.
func (b Branch) RenderText(w io.Writer, s Styles) error {
	if len(b.Warnings) > 0 {
		fmt.Fprintln(w, s.Warn.Render("Idempotency warnings:"))
		for _, warning := range b.Warnings {
			fmt.Fprintf(w, "  ⚠ %s\n", warning)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Created branch %s of %s\n\n", s.Accent.Render(b.Plan.ID), b.Plan.BranchOf)
	return NewPlanDetail(b.Plan).RenderText(w, s)
}

// SessionMemory wraps the short-term memory of a plan.
type SessionMemory api.SessionMemory

// RenderText implements TextRenderer.
func (m SessionMemory) RenderText(w io.Writer, s Styles) error {
	fmt.Fprintf(w, "%s  short-term: %d  long-term: %d\n", s.Header.Render("Memory for "+m.PlanID), m.Stats.ShortTerm, m.Stats.LongTerm)
	if len(m.Breadcrumbs) == 0 {
		_, err := fmt.Fprintln(w, s.Muted.Render("No breadcrumbs"))
		return err
	}
	for _, b := range m.Breadcrumbs {
		prefix := ""
		if b.NodeID != nil {
			prefix = fmt.Sprintf("#%d ", *b.NodeID)
		}
		if b.Tool != "" {
			prefix += b.Tool + ": "
		}
		fmt.Fprintf(w, "  %s%s\n", prefix, redact.String(b.Document))
	}
	return nil
}

// RecallResult wraps a long-term memory search.
type RecallResult api.RecallResult

// RenderText implements TextRenderer.
func (r RecallResult) RenderText(w io.Writer, s Styles) error {
	if len(r.Results) == 0 {
		_, err := fmt.Fprintf(w, "No memories match %q\n", r.Query)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE\tKEY\tCATEGORY\tDOCUMENT")
	for _, h := range r.Results {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\n", h.Distance, h.Key, h.Category, h.Document)
	}
	return tw.Flush()
}

// MemoryStats wraps the memory counters.
type MemoryStats api.MemoryStats

// RenderText implements TextRenderer.
func (m MemoryStats) RenderText(w io.Writer, _ Styles) error {
	_, err := fmt.Fprintf(w, "short-term: %d\nlong-term:  %d\n", m.ShortTerm, m.LongTerm)
	return err
}

// KillAck wraps the emergency stop acknowledgement.
type KillAck api.KillAck

// RenderText implements TextRenderer.
func (k KillAck) RenderText(w io.Writer, s Styles) error {
	_, err := fmt.Fprintf(w, "%s plan %s (%s)\n", s.Bad.Render("Kill switch triggered:"), k.PlanID, k.Status)
	return err
}

// WipeResult wraps a session memory wipe.
type WipeResult api.WipeResult

// RenderText implements TextRenderer.
func (r WipeResult) RenderText(w io.Writer, _ Styles) error {
	_, err := fmt.Fprintf(w, "Wiped %d session memories of %s\n", r.Wiped, r.PlanID)
	return err
}

// RememberAck wraps a stored long-term fact.
type RememberAck api.RememberAck

// RenderText implements TextRenderer.
func (a RememberAck) RenderText(w io.Writer, _ Styles) error {
	_, err := fmt.Fprintf(w, "Remembered %s (%s)\n", a.Key, a.Status)
	return err
}
