package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mastershashi/llm-engineering-usecases/internal/approval"
	"github.com/mastershashi/llm-engineering-usecases/internal/channel"
	"github.com/mastershashi/llm-engineering-usecases/internal/graph"
	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
	"github.com/mastershashi/llm-engineering-usecases/internal/redact"
	"github.com/mastershashi/llm-engineering-usecases/internal/trust"
)

// renderMain renders the projection with its side panels
func (m Model) renderMain() string {
	var b strings.Builder

	active := m.view.Active
	if active == nil {
		b.WriteString(m.styles.Title.Render("Amsab"))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("No plan selected"))
		b.WriteString("\n")
		b.WriteString(m.renderHelpLine())
		return b.String()
	}

	b.WriteString(m.styles.Title.Render(active.Goal))
	b.WriteString("\n")
	b.WriteString(m.renderPlanLine(active))
	b.WriteString("\n")
	b.WriteString(m.renderStats(active))
	b.WriteString("\n\n")

	if len(m.view.Warnings) > 0 {
		b.WriteString(m.renderWarnings())
		b.WriteString("\n")
	}

	b.WriteString(m.renderGrid())
	b.WriteString("\n")

	if node, ok := m.view.Selected(); ok {
		b.WriteString(m.renderNodeDetail(node))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Subtitle.Render("Session log"))
	b.WriteString("\n")
	b.WriteString(m.logs.View())
	b.WriteString("\n")

	switch m.mode {
	case ModeConfirm:
		b.WriteString(m.renderConfirm())
		b.WriteString("\n")
	case ModeInput:
		b.WriteString(m.renderInput())
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString(m.styles.Error.Render("Error: ") + m.lastErr)
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.styles.Muted.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

// renderPlanLine shows identity, lineage and the channel state
func (m Model) renderPlanLine(p *plan.Plan) string {
	parts := []string{
		m.styles.Muted.Render("Plan ") + p.ID,
		m.styles.Status.Render(string(p.Status)),
	}
	if p.IsBranch() {
		lineage := "⑂ branch of " + p.BranchOf
		if parent, ok := m.view.Parent(p); ok {
			lineage += " (" + truncate(parent.Goal, 30) + ")"
		}
		parts = append(parts, m.styles.Warning.Render(lineage))
	}

	state := m.chState.String()
	switch m.chState {
	case channel.Connected:
		state = m.styles.Success.Render("● live")
	case channel.Connecting, channel.Waiting:
		state = m.spinner.View() + " " + m.styles.Muted.Render(state)
	default:
		state = m.styles.Muted.Render("○ " + state)
	}
	parts = append(parts, state)

	if m.busy {
		parts = append(parts, m.spinner.View()+" "+m.styles.Muted.Render("working"))
	}
	return strings.Join(parts, "  ")
}

// renderStats renders progress, trust and context heat
func (m Model) renderStats(p *plan.Plan) string {
	done, total := p.Progress()
	est := trust.EstimateOf(p)
	percent, heat := plan.ContextHeat(p.TotalTokens())

	trustText := m.styles.Band(est.Band).Render(fmt.Sprintf("%d · %s", est.Score, est.Band.Label()))
	heatText := m.styles.Heat(heat).Render(fmt.Sprintf("%.0f%% %s", percent, heat))

	stats := []string{
		renderProgressBar(m.styles, done, total, 20),
		m.styles.Muted.Render("Trust ") + trustText,
		m.styles.Muted.Render("Context ") + heatText,
	}
	if waiting := len(p.AwaitingApproval()); waiting > 0 {
		stats = append(stats, m.styles.Warning.Render(fmt.Sprintf("%d awaiting approval", waiting)))
	}
	return strings.Join(stats, "   ")
}

// renderProgressBar renders an ASCII progress bar
func renderProgressBar(s Styles, done, total, width int) string {
	if total == 0 {
		return s.Muted.Render("No steps yet")
	}

	filled := done * width / total
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
	return s.Status.Render(bar) + s.Muted.Render(fmt.Sprintf(" %d/%d", done, total))
}

func (m Model) renderWarnings() string {
	var b strings.Builder
	b.WriteString(m.styles.Warning.Render("Idempotency warnings"))
	for _, w := range m.view.Warnings {
		b.WriteString("\n⚠ " + w)
	}
	return m.styles.Border.BorderForeground(lipgloss.Color("226")).Render(b.String())
}

// renderGrid lays node cards out on the projection grid
func (m Model) renderGrid() string {
	if len(m.layout.Nodes) == 0 {
		return m.styles.Muted.Render("The plan has no steps")
	}

	selected := -1
	if m.view.SelectedNode != nil {
		selected = *m.view.SelectedNode
	}

	rows := make([]string, 0, m.layout.Rows)
	for _, row := range m.layout.Grid() {
		cells := make([]string, 0, len(row))
		for _, p := range row {
			if p == nil {
				continue
			}
			cells = append(cells, m.renderCard(*p, p.Node.ID == selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCard(p graph.Placement, selected bool) string {
	n := p.Node

	head := fmt.Sprintf("#%d %s", n.ID, n.Tool)
	if p.Visual.RiskMarked {
		head += " " + m.styles.Error.Render("⚑")
	}
	if p.Visual.Animated {
		head += " " + m.spinner.View()
	}

	status := m.styles.StatusText(n.Status)
	if p.Visual.Ghosted {
		status = string(n.Status)
	}

	body := strings.Join([]string{head, status, truncate(n.Task, 24)}, "\n")
	return m.styles.NodeCard(p, selected).Render(body)
}

// renderNodeDetail shows the selected node and, at a gate, its decision view
func (m Model) renderNodeDetail(n plan.TaskNode) string {
	var b strings.Builder

	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("Node %d · %s", n.ID, n.Tool)))
	b.WriteString("\n")
	b.WriteString(plan.BusinessSummary(n))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Args: ") + compactJSON(redact.Args(n.Args)))
	if n.Result != "" {
		b.WriteString("\n" + m.styles.Muted.Render("Result: ") + truncate(redact.String(n.Result), 200))
	}
	if n.TokenUsage > 0 {
		b.WriteString("\n" + m.styles.Muted.Render(fmt.Sprintf("Tokens: %d", n.TokenUsage)))
	}

	if dv, ok := approval.ViewFor(m.view, n.ID); ok && dv.Pending() {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Warning.Render("Decision required"))
		for _, line := range dv.Lines() {
			b.WriteString("\n" + line)
		}
		b.WriteString("\n" + m.styles.Key.Render("a") + " approve  " + m.styles.Key.Render("x") + " veto")
	}

	style := m.styles.Border
	if n.HighRisk() {
		style = style.BorderForeground(lipgloss.Color("196"))
	}
	return style.Render(b.String())
}

func (m Model) renderConfirm() string {
	prompt := m.styles.Status.Bold(true).Render(m.pending.prompt)
	yes := m.styles.Key.Render("[y]") + " " + m.styles.KeyDesc.Render("Yes")
	no := m.styles.Key.Render("[n/Esc]") + " " + m.styles.KeyDesc.Render("No")
	return m.styles.Border.BorderForeground(lipgloss.Color("196")).Render(prompt + "\n\n" + yes + "  " + no)
}

func (m Model) renderInput() string {
	return m.styles.Border.Render(m.styles.Status.Render(m.pending.prompt) + "\n" + m.input.View())
}

// renderLogs formats the session log for the viewport
func (m Model) renderLogs() string {
	if len(m.view.Logs) == 0 {
		return m.styles.Muted.Render("No log lines yet")
	}

	lines := make([]string, 0, len(m.view.Logs))
	for _, e := range m.view.Logs {
		level := strings.ToUpper(e.Level)
		switch e.Level {
		case "error":
			level = m.styles.Error.Render(level)
		case "warning", "warn":
			level = m.styles.Warning.Render(level)
		default:
			level = m.styles.Muted.Render(level)
		}

		line := fmt.Sprintf("%s %s", e.CreatedAt.Format("15:04:05"), level)
		if e.NodeID != nil {
			line += fmt.Sprintf(" [#%d]", *e.NodeID)
		}
		lines = append(lines, line+" "+redact.String(e.Message))
	}
	return strings.Join(lines, "\n")
}

// renderHelp renders the help view
func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n")

	for _, k := range []struct{ key, desc string }{
		{m.keys.Down.Help().Key, m.keys.Down.Help().Desc},
		{m.keys.Up.Help().Key, m.keys.Up.Help().Desc},
		{m.keys.Clear.Help().Key, m.keys.Clear.Help().Desc},
		{m.keys.Approve.Help().Key, "approve the selected node, optionally editing its arguments"},
		{m.keys.Veto.Help().Key, "veto the selected node (asks first)"},
		{m.keys.Rewind.Help().Key, "branch from the selected node"},
		{m.keys.Edit.Help().Key, "branch with a new task text"},
		{m.keys.ApprovePlan.Help().Key, "approve a draft plan"},
		{m.keys.Kill.Help().Key, "terminate every running container (asks first)"},
		{m.keys.Help.Help().Key, m.keys.Help.Help().Desc},
		{m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc},
	} {
		b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-10s", k.key)) + " " + m.styles.KeyDesc.Render(k.desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Press ? or Esc to return"))
	return b.String()
}

// renderHelpLine renders the help line at the bottom
func (m Model) renderHelpLine() string {
	helpItems := []string{
		m.styles.Key.Render("j/k") + " select",
		m.styles.Key.Render("a") + " approve",
		m.styles.Key.Render("x") + " veto",
		m.styles.Key.Render("r") + " rewind",
		m.styles.Key.Render("K") + " kill",
		m.styles.Key.Render("?") + " help",
		m.styles.Key.Render("q") + " quit",
	}
	return m.styles.Help.Render(strings.Join(helpItems, " • "))
}

func compactJSON(v map[string]any) string {
	if len(v) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
